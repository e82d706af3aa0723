// Package apidocs registers the OpenAPI document for the llmctl HTTP API with
// swag. It is imported for side effects by the swagger build of httpapi.
package apidocs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "license": {"name": "MIT", "url": "https://opensource.org/licenses/MIT"},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/health": {
            "get": {
                "produces": ["application/json"],
                "tags": ["health"],
                "summary": "Liveness and model state",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/types.HealthResponse"}}}
            }
        },
        "/status": {
            "get": {
                "produces": ["application/json"],
                "tags": ["health"],
                "summary": "Controller status",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/types.StatusResponse"}}}
            }
        },
        "/api/v1/generate": {
            "post": {
                "security": [{"ApiKeyAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["generate"],
                "summary": "Synchronous text completion",
                "parameters": [{
                    "description": "Generation request",
                    "name": "request",
                    "in": "body",
                    "required": true,
                    "schema": {"$ref": "#/definitions/types.GenerateRequest"}
                }],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.GenerateResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "415": {"description": "Unsupported Media Type", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "429": {"description": "Too Many Requests", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "types.Choice": {
            "type": "object",
            "properties": {
                "finish_reason": {"type": "string", "example": "length"},
                "index": {"type": "integer"},
                "logprobs": {"type": "object"},
                "text": {"type": "string"}
            }
        },
        "types.ErrorResponse": {
            "type": "object",
            "properties": {
                "code": {"type": "integer", "example": 503},
                "error": {"type": "string", "example": "Model not loaded"}
            }
        },
        "types.GenerateRequest": {
            "type": "object",
            "properties": {
                "max_tokens": {"type": "integer", "example": 128},
                "prompt": {"type": "string", "example": "Write a haiku about the ocean."},
                "stop": {"type": "array", "items": {"type": "string"}},
                "stream": {"type": "boolean", "example": false},
                "temperature": {"type": "number", "example": 0.7},
                "top_p": {"type": "number", "example": 0.95}
            }
        },
        "types.GenerateResponse": {
            "type": "object",
            "properties": {
                "choices": {"type": "array", "items": {"$ref": "#/definitions/types.Choice"}},
                "created": {"type": "integer"},
                "id": {"type": "string"},
                "model": {"type": "string"},
                "object": {"type": "string", "example": "text_completion"},
                "usage": {"$ref": "#/definitions/types.Usage"}
            }
        },
        "types.HealthResponse": {
            "type": "object",
            "properties": {
                "model_loaded": {"type": "boolean", "example": false},
                "status": {"type": "string", "example": "ok"}
            }
        },
        "types.StatusResponse": {
            "type": "object",
            "properties": {
                "addr": {"type": "string"},
                "batch_size": {"type": "integer"},
                "inflight": {"type": "integer"},
                "last_error": {"type": "string"},
                "loads_total": {"type": "integer"},
                "max_layers": {"type": "integer"},
                "model": {"type": "string", "example": "loaded"},
                "model_path": {"type": "string"},
                "n_gpu_layers": {"type": "integer"},
                "queued": {"type": "integer"},
                "server": {"type": "string", "example": "running"},
                "server_time_unix": {"type": "integer"},
                "uptime_seconds": {"type": "integer"}
            }
        },
        "types.Usage": {
            "type": "object",
            "properties": {
                "completion_tokens": {"type": "integer"},
                "prompt_tokens": {"type": "integer"},
                "total_tokens": {"type": "integer"}
            }
        }
    },
    "securityDefinitions": {
        "ApiKeyAuth": {"type": "apiKey", "name": "X-API-Key", "in": "header"}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{"http"},
	Title:            "llmctl API",
	Description:      "Local control plane for a single LLM inference engine.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
