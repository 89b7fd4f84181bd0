// Package docs registers the diffusiond OpenAPI document with swag.
// Regenerate with `swag init -g cmd/diffusiond/docs.go -o internal/httpapi/docs`.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {
            "name": "diffusiond maintainers"
        },
        "license": {
            "name": "MIT",
            "url": "https://opensource.org/licenses/MIT"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/generate": {
            "post": {
                "description": "Runs one generation behind the process-wide generation lock and returns a base64 PNG.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["generate"],
                "summary": "Generate an image",
                "parameters": [
                    {
                        "description": "Generation parameters",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/types.GenerateRequest"}
                    }
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.GenerateResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "502": {"description": "Bad Gateway", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            }
        },
        "/v1/images/generations": {
            "post": {
                "description": "Accepts an OpenAI images request. Only n=1 and response_format=b64_json are supported; size is snapped to the model family. OpenAI model names (dall-e-*, gpt-image-*) and an empty model select the default catalog entry; any other unknown model is 404.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["generate"],
                "summary": "OpenAI-compatible image generation",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            }
        },
        "/models": {
            "get": {
                "produces": ["application/json"],
                "tags": ["models"],
                "summary": "List catalog models",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.ModelsResponse"}}
                }
            }
        },
        "/models/{model}/load": {
            "post": {
                "produces": ["application/json"],
                "tags": ["models"],
                "summary": "Load a model in the background",
                "parameters": [
                    {"type": "string", "description": "Catalog label or hub id (URL-escaped)", "name": "model", "in": "path", "required": true}
                ],
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/httpapi.WarmResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            }
        },
        "/status": {
            "get": {
                "produces": ["application/json"],
                "tags": ["status"],
                "summary": "Manager status",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.StatusResponse"}}
                }
            }
        },
        "/diagnostics": {
            "get": {
                "produces": ["application/json"],
                "tags": ["status"],
                "summary": "GPU diagnostics panel",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.Diagnostics"}}
                }
            }
        }
    },
    "definitions": {
        "httpapi.WarmResponse": {
            "type": "object",
            "properties": {
                "op": {"type": "string"},
                "model": {"type": "string", "example": "SG161222/RealVisXL_V4.0"}
            }
        },
        "types.ErrorResponse": {
            "type": "object",
            "properties": {
                "code": {"type": "integer", "example": 400},
                "error": {"type": "string", "example": "invalid JSON body"}
            }
        },
        "types.GenerateRequest": {
            "type": "object",
            "properties": {
                "model": {"type": "string", "example": "Realistic Vision XL (RealVisXL V4.0)"},
                "prompt": {"type": "string", "example": "a red cube on a white table"},
                "negative_prompt": {"type": "string", "example": "blurry, low quality"},
                "steps": {"type": "integer", "example": 25},
                "guidance_scale": {"type": "number", "example": 5},
                "width": {"type": "integer", "example": 1024},
                "height": {"type": "integer", "example": 1024}
            }
        },
        "types.GenerateResponse": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "model": {"type": "string", "example": "SG161222/RealVisXL_V4.0"},
                "caption": {"type": "string"},
                "image_b64": {"type": "string"},
                "width": {"type": "integer", "example": 1024},
                "height": {"type": "integer", "example": 1024},
                "elapsed_seconds": {"type": "number", "example": 7.42},
                "memory_before_bytes": {"type": "integer"},
                "memory_after_bytes": {"type": "integer"},
                "steps": {"type": "integer"},
                "guidance_scale": {"type": "number"}
            }
        },
        "types.Model": {
            "type": "object",
            "properties": {
                "label": {"type": "string"},
                "id": {"type": "string"},
                "variant": {"type": "string"},
                "default": {"type": "boolean"},
                "sizes": {"type": "array", "items": {"type": "integer"}},
                "default_size": {"type": "integer"}
            }
        },
        "types.ModelsResponse": {
            "type": "object",
            "properties": {
                "models": {"type": "array", "items": {"$ref": "#/definitions/types.Model"}}
            }
        },
        "types.HandleStatus": {
            "type": "object",
            "properties": {
                "model_id": {"type": "string"},
                "label": {"type": "string"},
                "variant": {"type": "string"},
                "device": {"type": "string"},
                "precision": {"type": "string"},
                "loaded_at_unix": {"type": "integer"},
                "generations": {"type": "integer"}
            }
        },
        "types.StatusResponse": {
            "type": "object",
            "properties": {
                "handles": {"type": "array", "items": {"$ref": "#/definitions/types.HandleStatus"}},
                "state": {"type": "string", "example": "idle"},
                "lock_held": {"type": "boolean"},
                "waiting": {"type": "integer"},
                "generations_total": {"type": "integer"},
                "failures_total": {"type": "integer"},
                "loads_total": {"type": "integer"},
                "last_error": {"type": "string"},
                "uptime_seconds": {"type": "integer"},
                "server_time_unix": {"type": "integer"}
            }
        },
        "types.DeviceProperties": {
            "type": "object",
            "properties": {
                "index": {"type": "integer"},
                "name": {"type": "string"},
                "total_memory_bytes": {"type": "integer"},
                "processor_count": {"type": "integer"}
            }
        },
        "types.HostInfo": {
            "type": "object",
            "properties": {
                "cpu_model": {"type": "string"},
                "logical_cpus": {"type": "integer"},
                "total_memory_bytes": {"type": "integer"}
            }
        },
        "types.Diagnostics": {
            "type": "object",
            "properties": {
                "accelerator": {"type": "boolean"},
                "device": {"type": "string", "example": "cuda"},
                "precision": {"type": "string", "example": "float16"},
                "device_name": {"type": "string"},
                "versions": {"type": "object", "additionalProperties": {"type": "string"}},
                "device_count": {"type": "integer"},
                "devices": {"type": "array", "items": {"$ref": "#/definitions/types.DeviceProperties"}},
                "host": {"$ref": "#/definitions/types.HostInfo"},
                "env": {"type": "object", "additionalProperties": {"type": "string"}},
                "status_command": {"type": "string"},
                "status_output": {"type": "string"},
                "runtime_error": {"type": "string"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{"http"},
	Title:            "diffusiond API",
	Description:      "HTTP API for text-to-image generation with GPU diagnostics.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
