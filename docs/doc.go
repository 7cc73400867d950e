// Package docs provides generated OpenAPI documentation.
//
// Promptlab API
//
//	@title			Promptlab API
//	@version		1.0
//	@description	Prompt library API with live project-data variables, version snapshots, and scoped sharing.
//
//	@contact.name	API Support
//	@contact.url	https://github.com/forgeworks/promptlab
//
//	@license.name	MIT
//	@license.url	https://opensource.org/licenses/MIT
//
//	@host		localhost:8080
//	@BasePath	/
//
//	@schemes	http https
package docs

//go:generate swag init -g ../cmd/promptlab/serve.go -o ./swagger --parseDependency --parseInternal
