package config

// DefaultConfig returns the baseline configuration used when no config file
// or environment overrides are present.
func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: "8080",
		},
		Defra: DefraConfig{
			ContainerName: "promptlab-defra",
			Image:         "sourcenetwork/defradb:latest",
			HostPort:      "9181",
		},
		Enhance: EnhanceConfig{
			APIKey:  "${OPENAI_API_KEY}",
			Model:   "gpt-4o-mini",
			Enabled: false,
		},
		Resolver: ResolverConfig{
			TaskPick:     "newest_created",
			SprintPick:   "active_else_latest_start",
			DocumentPick: "latest_updated",
		},
	}
}
