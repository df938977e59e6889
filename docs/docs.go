// Package docs is the OpenAPI description served under /swagger.
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
        "/health": {
            "get": {
                "produces": ["application/json"],
                "tags": ["system"],
                "summary": "Service health",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.HealthResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/types.HealthResponse"}}
                }
            }
        },
        "/api/v1/parameters": {
            "get": {
                "produces": ["application/json"],
                "tags": ["batches"],
                "summary": "Input ranges, attribution rules and business constants",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.ParametersResponse"}}
                }
            }
        },
        "/api/v1/batches/score": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["batches"],
                "summary": "Score a manually entered batch",
                "parameters": [
                    {"description": "Batch parameters", "name": "batch", "in": "body", "required": true, "schema": {"$ref": "#/definitions/types.BatchRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dashboard.Report"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "429": {"description": "Too Many Requests", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            }
        },
        "/api/v1/batches/simulate": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["batches"],
                "summary": "Score a simulated batch",
                "parameters": [
                    {"description": "Optional simulator seed", "name": "request", "in": "body", "schema": {"$ref": "#/definitions/types.SimulateRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dashboard.Report"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            }
        },
        "/api/v1/history": {
            "get": {
                "produces": ["application/json"],
                "tags": ["batches"],
                "summary": "Most recent scoring passes, oldest first",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.HistoryResponse"}}
                }
            }
        },
        "/api/v1/audit": {
            "get": {
                "produces": ["application/json"],
                "tags": ["batches"],
                "summary": "Persisted assessments, newest first",
                "parameters": [
                    {"type": "integer", "description": "Maximum rows", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.AuditResponse"}},
                    "503": {"description": "Audit log disabled", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            }
        },
        "/api/v1/live": {
            "get": {
                "produces": ["application/json"],
                "tags": ["live"],
                "summary": "Live mode status",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dashboard.LiveStatus"}}
                }
            }
        },
        "/api/v1/live/start": {
            "post": {
                "produces": ["application/json"],
                "tags": ["live"],
                "summary": "Start live mode",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dashboard.LiveStatus"}},
                    "409": {"description": "Already running", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            }
        },
        "/api/v1/live/stop": {
            "post": {
                "produces": ["application/json"],
                "tags": ["live"],
                "summary": "Stop live mode",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dashboard.LiveStatus"}},
                    "409": {"description": "Not running", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            }
        },
        "/api/v1/live/ws": {
            "get": {
                "tags": ["live"],
                "summary": "WebSocket stream of live reports",
                "responses": {
                    "101": {"description": "Switching Protocols"}
                }
            }
        },
        "/api/v1/alerts": {
            "get": {
                "produces": ["application/json"],
                "tags": ["system"],
                "summary": "Expected loss and operational alerts",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        }
    },
    "definitions": {
        "types.BatchRequest": {
            "type": "object",
            "required": ["machine_load", "material_quality", "pressure", "process_duration", "temperature"],
            "properties": {
                "temperature": {"type": "number", "example": 72},
                "pressure": {"type": "number", "example": 31},
                "process_duration": {"type": "number", "example": 64},
                "material_quality": {"type": "number", "example": 0.88},
                "machine_load": {"type": "number", "example": 58}
            }
        },
        "types.SimulateRequest": {
            "type": "object",
            "properties": {
                "seed": {"type": "integer", "example": 42}
            }
        },
        "types.ErrorResponse": {
            "type": "object",
            "properties": {
                "code": {"type": "string", "example": "VALIDATION_ERROR"},
                "message": {"type": "string", "example": "Invalid batch parameters"},
                "category": {"type": "string", "example": "validation"},
                "details": {"type": "object", "additionalProperties": {"type": "string"}},
                "request_id": {"type": "string"}
            }
        },
        "types.HistoryResponse": {
            "type": "object",
            "properties": {
                "entries": {"type": "array", "items": {"$ref": "#/definitions/history.Entry"}},
                "capacity": {"type": "integer"}
            }
        },
        "history.Entry": {
            "type": "object",
            "properties": {
                "timestamp": {"type": "string"},
                "probability": {"type": "number"},
                "risk_level": {"type": "string"},
                "severity": {"type": "string"},
                "expected_loss": {"type": "integer"}
            }
        },
        "types.AuditResponse": {
            "type": "object",
            "properties": {
                "records": {"type": "array", "items": {"type": "object"}},
                "total": {"type": "integer"},
                "alerts": {"type": "integer"},
                "limit": {"type": "integer"}
            }
        },
        "types.HealthResponse": {
            "type": "object",
            "properties": {
                "status": {"type": "string"},
                "version": {"type": "string"},
                "model": {"type": "string"},
                "narrative": {"type": "string"},
                "services": {"type": "object"},
                "timestamp": {"type": "string"}
            }
        },
        "types.ParametersResponse": {
            "type": "object",
            "properties": {
                "ranges": {"type": "array", "items": {"type": "object"}},
                "rules": {"type": "array", "items": {"type": "object"}},
                "defaults": {"type": "object"},
                "constants": {"type": "object"}
            }
        },
        "dashboard.LiveStatus": {
            "type": "object",
            "properties": {
                "running": {"type": "boolean"},
                "interval": {"type": "string"},
                "passes": {"type": "integer"},
                "started_at": {"type": "string"},
                "last_report": {"$ref": "#/definitions/dashboard.Report"}
            }
        },
        "dashboard.Report": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "source": {"type": "string", "enum": ["manual", "simulated", "live"]},
                "batch": {"type": "object"},
                "assessment": {"type": "object"},
                "attributions": {"type": "array", "items": {"type": "object"}},
                "explanations": {"type": "array", "items": {"type": "string"}},
                "top_features": {"type": "array", "items": {"type": "string"}},
                "recommendations": {"type": "array", "items": {"type": "string"}},
                "insight": {"type": "object"},
                "risk_trend": {"type": "array", "items": {"type": "number"}},
                "model": {"type": "string"},
                "created_at": {"type": "string"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "BatchMind API",
	Description:      "Batch deviation risk scoring, explanations and live monitoring.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
