// Package docs holds the swagger spec registered with swaggo/swag. It is
// normally produced by `swag init`; this copy is maintained by hand and
// should be regenerated from the annotated handlers whenever a route changes.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/healthz": {
            "get": {
                "description": "Reports that the process is serving requests; it does not inspect the tree.",
                "produces": ["application/json"],
                "tags": ["Admin"],
                "summary": "Liveness probe",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/stats": {
            "get": {
                "security": [{"Bearer": []}],
                "description": "Returns page cache and I/O counters.",
                "produces": ["application/json"],
                "tags": ["Admin"],
                "summary": "Tree debug counters",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/tree/query/{key}": {
            "get": {
                "security": [{"Bearer": []}],
                "description": "Looks up the live value for a key, or reports it absent.",
                "produces": ["application/json"],
                "tags": ["Query"],
                "summary": "Point query",
                "parameters": [
                    {
                        "type": "integer",
                        "description": "key to look up",
                        "name": "key",
                        "in": "path",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "404": {"description": "key not found"}
                }
            }
        }
    },
    "securityDefinitions": {
        "Bearer": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds the exported swagger spec, mutated by callers (e.g. to
// set Host/BasePath) before the doc endpoint is registered.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "betree admin API",
	Description:      "Operational and query surface for a running Bε-tree index.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
