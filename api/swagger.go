// Package api holds the published API documents.
package api

import _ "embed"

// SwaggerJSON is the OpenAPI document for the REST API.
//
//go:embed swagger/account.swagger.json
var SwaggerJSON []byte
