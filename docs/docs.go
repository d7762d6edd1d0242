// Package docs registers the OpenAPI document of the query API with swag.
// Keep it in step with the handler annotations.
package docs

import "github.com/swaggo/swag/v2"

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
        "/dian/documents": {
            "get": {
                "security": [{"BearerAuth": []}],
                "description": "Page through the fiscal documents of one tenant company. Artifacts are never included.",
                "produces": ["application/json"],
                "tags": ["dian-documents"],
                "summary": "List electronic documents",
                "operationId": "listDianDocuments",
                "parameters": [
                    {"type": "integer", "description": "Tenant ID", "name": "tenantId", "in": "query", "required": true},
                    {"type": "integer", "description": "Company ID", "name": "companyId", "in": "query", "required": true},
                    {"enum": ["INVOICE", "CREDIT_NOTE", "DEBIT_NOTE", "PAYROLL"], "type": "string", "description": "Document type", "name": "documentType", "in": "query"},
                    {"enum": ["RECEIVED", "PROCESSING", "ACCEPTED", "REJECTED", "ERROR"], "type": "string", "description": "Status", "name": "status", "in": "query"},
                    {"type": "string", "description": "Upstream document reference", "name": "sourceDocumentId", "in": "query"},
                    {"type": "integer", "default": 1, "description": "Page number", "name": "page", "in": "query"},
                    {"maximum": 100, "type": "integer", "default": 20, "description": "Page size", "name": "page_size", "in": "query"}
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "allOf": [
                                {"$ref": "#/definitions/dto.Response"},
                                {
                                    "type": "object",
                                    "properties": {
                                        "data": {"type": "array", "items": {"$ref": "#/definitions/document.DocumentView"}},
                                        "meta": {"$ref": "#/definitions/dto.Meta"}
                                    }
                                }
                            ]
                        }
                    },
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}}
                }
            }
        },
        "/dian/documents/by-source": {
            "get": {
                "security": [{"BearerAuth": []}],
                "description": "Returns the document issued for an upstream document",
                "produces": ["application/json"],
                "tags": ["dian-documents"],
                "summary": "Get electronic document by source reference",
                "operationId": "getDianDocumentBySource",
                "parameters": [
                    {"type": "integer", "description": "Tenant ID", "name": "tenantId", "in": "query", "required": true},
                    {"type": "integer", "description": "Company ID", "name": "companyId", "in": "query", "required": true},
                    {"type": "string", "example": "INV-2024-0042", "description": "Upstream document reference", "name": "sourceDocumentId", "in": "query", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.DocumentResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}}
                }
            }
        },
        "/dian/documents/{id}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "description": "Signed XML and the raw authority response are included as base64 unless includeXml=false",
                "produces": ["application/json"],
                "tags": ["dian-documents"],
                "summary": "Get electronic document by ID",
                "operationId": "getDianDocument",
                "parameters": [
                    {"type": "string", "format": "uuid", "description": "Document ID", "name": "id", "in": "path", "required": true},
                    {"type": "boolean", "default": true, "description": "Include signed and response XML", "name": "includeXml", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.DocumentResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}}
                }
            }
        },
        "/dian/workers": {
            "get": {
                "security": [{"BearerAuth": []}],
                "description": "Returns the counters of the document worker pool",
                "produces": ["application/json"],
                "tags": ["system"],
                "summary": "Worker pool status",
                "operationId": "getDianWorkers",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "allOf": [
                                {"$ref": "#/definitions/dto.Response"},
                                {"type": "object", "properties": {"data": {"$ref": "#/definitions/worker.Stats"}}}
                            ]
                        }
                    },
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}}
                }
            }
        },
        "/health": {
            "get": {
                "description": "Reports the process is up, with build and uptime details",
                "produces": ["application/json"],
                "tags": ["system"],
                "summary": "Liveness probe",
                "operationId": "getSystemHealth",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "allOf": [
                                {"$ref": "#/definitions/dto.Response"},
                                {"type": "object", "properties": {"data": {"$ref": "#/definitions/handler.HealthResponse"}}}
                            ]
                        }
                    }
                }
            }
        },
        "/ready": {
            "get": {
                "description": "Pings the document store",
                "produces": ["application/json"],
                "tags": ["system"],
                "summary": "Readiness probe",
                "operationId": "getSystemReady",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "allOf": [
                                {"$ref": "#/definitions/dto.Response"},
                                {"type": "object", "properties": {"data": {"$ref": "#/definitions/handler.ReadyResponse"}}}
                            ]
                        }
                    },
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "document.DocumentView": {
            "type": "object",
            "properties": {
                "companyId": {"type": "integer"},
                "createdAt": {"type": "string"},
                "documentNumber": {"type": "string"},
                "documentType": {"type": "string"},
                "environment": {"type": "string"},
                "errorCode": {"type": "string"},
                "errorMessage": {"type": "string"},
                "eventId": {"type": "string"},
                "fingerprint": {"type": "string"},
                "id": {"type": "string"},
                "processedAt": {"type": "string"},
                "responseXml": {"type": "string"},
                "signedXml": {"type": "string"},
                "sourceDocumentId": {"type": "string"},
                "sourceSystem": {"type": "string"},
                "status": {"type": "string"},
                "tenantId": {"type": "integer"},
                "updatedAt": {"type": "string"}
            }
        },
        "dto.DocumentResponse": {
            "allOf": [
                {"$ref": "#/definitions/dto.Response"},
                {"type": "object", "properties": {"data": {"$ref": "#/definitions/document.DocumentView"}}}
            ]
        },
        "dto.ErrorInfo": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "request_id": {"type": "string"}
            }
        },
        "dto.ErrorResponse": {
            "allOf": [
                {"$ref": "#/definitions/dto.Response"},
                {"type": "object", "properties": {"error": {"$ref": "#/definitions/dto.ErrorInfo"}}}
            ]
        },
        "dto.Meta": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total": {"type": "integer"},
                "total_pages": {"type": "integer"}
            }
        },
        "dto.Response": {
            "type": "object",
            "properties": {
                "data": {},
                "error": {"$ref": "#/definitions/dto.ErrorInfo"},
                "meta": {"$ref": "#/definitions/dto.Meta"},
                "success": {"type": "boolean"}
            }
        },
        "handler.HealthResponse": {
            "type": "object",
            "properties": {
                "go_version": {"type": "string", "example": "go1.25.5"},
                "name": {"type": "string", "example": "dian-service"},
                "status": {"type": "string", "example": "ok"},
                "uptime": {"type": "string", "example": "1h30m45s"},
                "version": {"type": "string", "example": "1.4.0"}
            }
        },
        "handler.ReadyResponse": {
            "type": "object",
            "properties": {
                "status": {"type": "string", "example": "ready"}
            }
        },
        "worker.Stats": {
            "type": "object",
            "properties": {
                "active": {"type": "integer"},
                "completed": {"type": "integer"},
                "failed": {"type": "integer"},
                "queueSize": {"type": "integer"},
                "queued": {"type": "integer"},
                "running": {"type": "boolean"},
                "submitted": {"type": "integer"},
                "workers": {"type": "integer"}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "description": "Bearer token authentication. Format: \"Bearer {token}\"",
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "DIAN Electronic Document Service API",
	Description:      "Query API for fiscal documents issued to the DIAN",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
