// Package docs registers the OpenAPI document served under /swagger.
//
// Regenerate with: swag init -g cmd/api/main.go -o docs
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
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    },
    "paths": {
        "/auth/register": {
            "post": {
                "tags": ["auth"],
                "summary": "Register a new user",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/handler.registerRequest"}}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/handler.authResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.errorBody"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/handler.errorBody"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/handler.errorBody"}}
                }
            }
        },
        "/auth/login": {
            "post": {
                "tags": ["auth"],
                "summary": "Login",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/handler.loginRequest"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.authResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handler.errorBody"}}
                }
            }
        },
        "/v1/courses": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["courses"],
                "summary": "List courses",
                "produces": ["application/json"],
                "parameters": [{"type": "string", "description": "Owner user id (admin only)", "name": "owner", "in": "query"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.listCoursesResponse"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/handler.errorBody"}}
                }
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["courses"],
                "summary": "Add a course",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"type": "object"}}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/domain.Course"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/handler.errorBody"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/handler.errorBody"}}
                }
            },
            "delete": {
                "security": [{"BearerAuth": []}],
                "tags": ["courses"],
                "summary": "Delete all of the caller's courses",
                "produces": ["application/json"],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.batchResponse"}}
                }
            }
        },
        "/v1/courses/batch": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["courses"],
                "summary": "Add many courses",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/handler.batchRequest"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.batchResponse"}},
                    "500": {"description": "Batch aborted", "schema": {"$ref": "#/definitions/handler.batchResponse"}}
                }
            }
        },
        "/v1/courses/import": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["courses"],
                "summary": "Import courses from a spreadsheet",
                "consumes": ["multipart/form-data"],
                "produces": ["application/json"],
                "parameters": [{"type": "file", "description": "Workbook (.xlsx)", "name": "file", "in": "formData", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.batchResponse"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/handler.errorBody"}}
                }
            }
        },
        "/v1/courses/{id}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["courses"],
                "summary": "Get a course",
                "produces": ["application/json"],
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.Course"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.errorBody"}}
                }
            },
            "patch": {
                "security": [{"BearerAuth": []}],
                "tags": ["courses"],
                "summary": "Update a course",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "name": "id", "in": "path", "required": true},
                    {"in": "body", "name": "body", "required": true, "schema": {"type": "object"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.Course"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/handler.errorBody"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/handler.errorBody"}}
                }
            },
            "delete": {
                "security": [{"BearerAuth": []}],
                "tags": ["courses"],
                "summary": "Delete a course",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "204": {"description": "No Content"},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.errorBody"}}
                }
            }
        },
        "/v1/admin/users/{id}/reconcile": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["admin"],
                "summary": "Repair a user's course back-references",
                "produces": ["application/json"],
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.reconcileResponse"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/handler.errorBody"}}
                }
            }
        }
    },
    "definitions": {
        "domain.Course": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "purchaseSequence": {"type": "integer"},
                "title": {"type": "string"},
                "category": {"type": "string"},
                "tools": {"type": "string"},
                "hours": {"type": "number"},
                "sections": {"type": "integer"},
                "lectures": {"type": "integer"},
                "instructor": {"type": "string"},
                "dateBought": {"type": "string"},
                "dateStarted": {"type": "string"},
                "started": {"type": "boolean"},
                "dateCompleted": {"type": "string"},
                "completed": {"type": "boolean"},
                "description": {"type": "string"},
                "notes": {"type": "string"},
                "provider": {"type": "string"},
                "creator": {"type": "string"},
                "dateAdded": {"type": "string"},
                "dateUpdated": {"type": "string"}
            }
        },
        "domain.User": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "username": {"type": "string"},
                "email": {"type": "string"},
                "role": {"type": "string"},
                "courses": {"type": "array", "items": {"type": "string"}},
                "created_at": {"type": "string"},
                "updated_at": {"type": "string"}
            }
        },
        "handler.errorBody": {
            "type": "object",
            "properties": {
                "error": {"type": "string"},
                "kind": {"type": "string"}
            }
        },
        "handler.registerRequest": {
            "type": "object",
            "required": ["password", "username"],
            "properties": {
                "username": {"type": "string", "minLength": 3},
                "password": {"type": "string", "minLength": 6},
                "email": {"type": "string"},
                "role": {"type": "string", "enum": ["admin", "member"]}
            }
        },
        "handler.loginRequest": {
            "type": "object",
            "required": ["password", "username"],
            "properties": {
                "username": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "handler.authResponse": {
            "type": "object",
            "properties": {
                "token": {"type": "string"},
                "user": {"$ref": "#/definitions/domain.User"}
            }
        },
        "handler.batchRequest": {
            "type": "object",
            "required": ["rows"],
            "properties": {
                "rows": {"type": "array", "minItems": 1, "items": {"type": "object"}}
            }
        },
        "handler.itemOutcomeResponse": {
            "type": "object",
            "properties": {
                "index": {"type": "integer"},
                "courseId": {"type": "string"},
                "course": {"$ref": "#/definitions/domain.Course"},
                "kind": {"type": "string"},
                "detail": {"type": "string"}
            }
        },
        "handler.batchResponse": {
            "type": "object",
            "properties": {
                "batchId": {"type": "string"},
                "succeeded": {"type": "integer"},
                "failed": {"type": "integer"},
                "items": {"type": "array", "items": {"$ref": "#/definitions/handler.itemOutcomeResponse"}},
                "error": {"type": "string"}
            }
        },
        "handler.listCoursesResponse": {
            "type": "object",
            "properties": {
                "items": {"type": "array", "items": {"$ref": "#/definitions/domain.Course"}},
                "total": {"type": "integer"}
            }
        },
        "handler.reconcileResponse": {
            "type": "object",
            "properties": {
                "userId": {"type": "string"},
                "added": {"type": "array", "items": {"type": "string"}},
                "removed": {"type": "array", "items": {"type": "string"}}
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
	Title:            "Course Catalog API",
	Description:      "Per-user catalog of purchased online courses with consistent course/owner writes.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
