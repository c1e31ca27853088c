// Package docs embeds the OpenAPI description served under /docs.
package docs

import _ "embed"

//go:embed openapi.yaml
var OpenAPISpec []byte
