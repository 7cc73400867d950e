//go:build tools

package docs

// Pin the swag CLI used by go:generate.
import _ "github.com/swaggo/swag"
