// Package dashboard holds the OpenAPI document served under /swagger/.
package dashboard

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
        "/api/auth/login": {
            "post": {
                "tags": [
                    "Auth"
                ],
                "summary": "Log in",
                "description": "Verifies username and password and starts a cookie session.",
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "description": "Credentials",
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/authsdk.LoginRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/authsdk.User"
                        }
                    },
                    "400": {
                        "description": "Missing fields",
                        "schema": {
                            "$ref": "#/definitions/authsdk.ErrorResponse"
                        }
                    },
                    "401": {
                        "description": "Invalid credentials",
                        "schema": {
                            "$ref": "#/definitions/authsdk.ErrorResponse"
                        }
                    },
                    "429": {
                        "description": "Too many attempts",
                        "schema": {
                            "$ref": "#/definitions/authsdk.ErrorResponse"
                        }
                    }
                }
            }
        },
        "/api/auth/logout": {
            "post": {
                "tags": [
                    "Auth"
                ],
                "summary": "Log out",
                "responses": {
                    "204": {
                        "description": "No Content"
                    }
                }
            }
        },
        "/api/auth/register": {
            "post": {
                "tags": [
                    "Auth"
                ],
                "summary": "Register with an invitation",
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "description": "Invitation token and account details",
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/authsdk.RegisterRequest"
                        }
                    }
                ],
                "responses": {
                    "201": {
                        "description": "Created",
                        "schema": {
                            "$ref": "#/definitions/authsdk.User"
                        }
                    },
                    "400": {
                        "description": "Validation or invitation error",
                        "schema": {
                            "$ref": "#/definitions/authsdk.ErrorResponse"
                        }
                    },
                    "429": {
                        "description": "Too many attempts",
                        "schema": {
                            "$ref": "#/definitions/authsdk.ErrorResponse"
                        }
                    }
                }
            }
        },
        "/api/auth/validate-invite": {
            "get": {
                "tags": [
                    "Auth"
                ],
                "summary": "Check an invitation token",
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "type": "string",
                        "description": "Invitation token",
                        "name": "token",
                        "in": "query",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/authsdk.ValidateInviteResponse"
                        }
                    },
                    "400": {
                        "description": "valid=false with the failure code",
                        "schema": {
                            "$ref": "#/definitions/authsdk.ValidateInviteResponse"
                        }
                    }
                }
            }
        },
        "/api/user": {
            "get": {
                "tags": [
                    "Auth"
                ],
                "summary": "Current user",
                "produces": [
                    "application/json"
                ],
                "security": [
                    {
                        "SessionCookie": []
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/authsdk.User"
                        }
                    }
                }
            }
        },
        "/api/admin/users": {
            "get": {
                "tags": [
                    "Admin"
                ],
                "summary": "List users",
                "produces": [
                    "application/json"
                ],
                "security": [
                    {
                        "SessionCookie": []
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "type": "array",
                            "items": {
                                "$ref": "#/definitions/authsdk.User"
                            }
                        }
                    },
                    "401": {
                        "description": "Unauthorized",
                        "schema": {
                            "$ref": "#/definitions/authsdk.ErrorResponse"
                        }
                    },
                    "403": {
                        "description": "Admin access required",
                        "schema": {
                            "$ref": "#/definitions/authsdk.ErrorResponse"
                        }
                    }
                }
            }
        },
        "/api/admin/users/{id}": {
            "patch": {
                "tags": [
                    "Admin"
                ],
                "summary": "Change a user's role",
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "security": [
                    {
                        "SessionCookie": []
                    }
                ],
                "parameters": [
                    {
                        "type": "string",
                        "description": "User ID",
                        "name": "id",
                        "in": "path",
                        "required": true
                    },
                    {
                        "description": "New role",
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/authsdk.ChangeRoleRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/authsdk.User"
                        }
                    },
                    "400": {
                        "description": "Invalid role",
                        "schema": {
                            "$ref": "#/definitions/authsdk.ErrorResponse"
                        }
                    },
                    "404": {
                        "description": "User not found",
                        "schema": {
                            "$ref": "#/definitions/authsdk.ErrorResponse"
                        }
                    }
                }
            },
            "delete": {
                "tags": [
                    "Admin"
                ],
                "summary": "Delete a user",
                "security": [
                    {
                        "SessionCookie": []
                    }
                ],
                "parameters": [
                    {
                        "type": "string",
                        "description": "User ID",
                        "name": "id",
                        "in": "path",
                        "required": true
                    }
                ],
                "responses": {
                    "204": {
                        "description": "No Content"
                    },
                    "400": {
                        "description": "Cannot delete your own account",
                        "schema": {
                            "$ref": "#/definitions/authsdk.ErrorResponse"
                        }
                    },
                    "404": {
                        "description": "User not found",
                        "schema": {
                            "$ref": "#/definitions/authsdk.ErrorResponse"
                        }
                    }
                }
            }
        },
        "/api/admin/users/{id}/reset-password": {
            "post": {
                "tags": [
                    "Admin"
                ],
                "summary": "Reset a user's password",
                "consumes": [
                    "application/json"
                ],
                "security": [
                    {
                        "SessionCookie": []
                    }
                ],
                "parameters": [
                    {
                        "type": "string",
                        "description": "User ID",
                        "name": "id",
                        "in": "path",
                        "required": true
                    },
                    {
                        "description": "New password",
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/authsdk.ResetPasswordRequest"
                        }
                    }
                ],
                "responses": {
                    "204": {
                        "description": "No Content"
                    },
                    "400": {
                        "description": "Password too short",
                        "schema": {
                            "$ref": "#/definitions/authsdk.ErrorResponse"
                        }
                    },
                    "404": {
                        "description": "User not found",
                        "schema": {
                            "$ref": "#/definitions/authsdk.ErrorResponse"
                        }
                    }
                }
            }
        },
        "/api/admin/invitations": {
            "get": {
                "tags": [
                    "Admin"
                ],
                "summary": "List invitations",
                "produces": [
                    "application/json"
                ],
                "security": [
                    {
                        "SessionCookie": []
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "type": "array",
                            "items": {
                                "$ref": "#/definitions/authsdk.Invitation"
                            }
                        }
                    },
                    "403": {
                        "description": "Admin access required",
                        "schema": {
                            "$ref": "#/definitions/authsdk.ErrorResponse"
                        }
                    }
                }
            },
            "post": {
                "tags": [
                    "Admin"
                ],
                "summary": "Invite someone",
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "security": [
                    {
                        "SessionCookie": []
                    }
                ],
                "parameters": [
                    {
                        "description": "Invitee",
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/authsdk.CreateInvitationRequest"
                        }
                    }
                ],
                "responses": {
                    "201": {
                        "description": "Created",
                        "schema": {
                            "$ref": "#/definitions/authsdk.CreateInvitationResponse"
                        }
                    },
                    "400": {
                        "description": "Invalid email or role",
                        "schema": {
                            "$ref": "#/definitions/authsdk.ErrorResponse"
                        }
                    }
                }
            }
        },
        "/api/admin/invitations/{id}": {
            "delete": {
                "tags": [
                    "Admin"
                ],
                "summary": "Revoke an invitation",
                "security": [
                    {
                        "SessionCookie": []
                    }
                ],
                "parameters": [
                    {
                        "type": "string",
                        "description": "Invitation ID",
                        "name": "id",
                        "in": "path",
                        "required": true
                    }
                ],
                "responses": {
                    "204": {
                        "description": "No Content"
                    },
                    "404": {
                        "description": "Invitation not found",
                        "schema": {
                            "$ref": "#/definitions/authsdk.ErrorResponse"
                        }
                    }
                }
            }
        },
        "/api/admin/email-status": {
            "get": {
                "tags": [
                    "Admin"
                ],
                "summary": "Email delivery status",
                "produces": [
                    "application/json"
                ],
                "security": [
                    {
                        "SessionCookie": []
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/authsdk.EmailStatusResponse"
                        }
                    }
                }
            }
        },
        "/api/microsoft/status": {
            "get": {
                "tags": [
                    "Microsoft"
                ],
                "summary": "Microsoft connection status",
                "produces": [
                    "application/json"
                ],
                "security": [
                    {
                        "SessionCookie": []
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/authsdk.MicrosoftStatusResponse"
                        }
                    },
                    "401": {
                        "description": "Unauthorized",
                        "schema": {
                            "$ref": "#/definitions/authsdk.ErrorResponse"
                        }
                    }
                }
            }
        },
        "/api/microsoft/authorize": {
            "get": {
                "tags": [
                    "Microsoft"
                ],
                "summary": "Start the Microsoft consent flow",
                "security": [
                    {
                        "SessionCookie": []
                    }
                ],
                "responses": {
                    "302": {
                        "description": "Found"
                    },
                    "400": {
                        "description": "Integration not configured",
                        "schema": {
                            "$ref": "#/definitions/authsdk.ErrorResponse"
                        }
                    }
                }
            }
        },
        "/api/microsoft/callback": {
            "get": {
                "tags": [
                    "Microsoft"
                ],
                "summary": "Microsoft consent callback",
                "parameters": [
                    {
                        "type": "string",
                        "description": "Authorization code",
                        "name": "code",
                        "in": "query"
                    },
                    {
                        "type": "string",
                        "description": "Signed state",
                        "name": "state",
                        "in": "query"
                    },
                    {
                        "type": "string",
                        "description": "Provider error",
                        "name": "error",
                        "in": "query"
                    }
                ],
                "responses": {
                    "302": {
                        "description": "Found"
                    }
                }
            }
        },
        "/api/microsoft/disconnect": {
            "delete": {
                "tags": [
                    "Microsoft"
                ],
                "summary": "Disconnect Microsoft",
                "security": [
                    {
                        "SessionCookie": []
                    }
                ],
                "responses": {
                    "204": {
                        "description": "No Content"
                    }
                }
            }
        },
        "/api/microsoft/emails": {
            "get": {
                "tags": [
                    "Microsoft"
                ],
                "summary": "Recent emails",
                "produces": [
                    "application/json"
                ],
                "security": [
                    {
                        "SessionCookie": []
                    }
                ],
                "parameters": [
                    {
                        "type": "integer",
                        "description": "Number of messages (default 20, max 50)",
                        "name": "top",
                        "in": "query"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "type": "array",
                            "items": {
                                "type": "object"
                            }
                        }
                    },
                    "503": {
                        "description": "Microsoft integration unavailable",
                        "schema": {
                            "$ref": "#/definitions/authsdk.ErrorResponse"
                        }
                    }
                }
            }
        },
        "/api/microsoft/chats": {
            "get": {
                "tags": [
                    "Microsoft"
                ],
                "summary": "Teams chats",
                "produces": [
                    "application/json"
                ],
                "security": [
                    {
                        "SessionCookie": []
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "type": "array",
                            "items": {
                                "type": "object"
                            }
                        }
                    },
                    "503": {
                        "description": "Microsoft integration unavailable",
                        "schema": {
                            "$ref": "#/definitions/authsdk.ErrorResponse"
                        }
                    }
                }
            }
        },
        "/api/microsoft/teams": {
            "get": {
                "tags": [
                    "Microsoft"
                ],
                "summary": "Joined teams",
                "produces": [
                    "application/json"
                ],
                "security": [
                    {
                        "SessionCookie": []
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "type": "array",
                            "items": {
                                "type": "object"
                            }
                        }
                    },
                    "503": {
                        "description": "Microsoft integration unavailable",
                        "schema": {
                            "$ref": "#/definitions/authsdk.ErrorResponse"
                        }
                    }
                }
            }
        },
        "/livez": {
            "get": {
                "tags": [
                    "Health"
                ],
                "summary": "Liveness probe",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "status, uptime, version",
                        "schema": {
                            "$ref": "#/definitions/authsdk.HealthResponse"
                        }
                    }
                }
            }
        },
        "/readyz": {
            "get": {
                "tags": [
                    "Health"
                ],
                "summary": "Readiness probe",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "status, uptime, version, checks",
                        "schema": {
                            "$ref": "#/definitions/authsdk.HealthResponse"
                        }
                    },
                    "503": {
                        "description": "service not ready",
                        "schema": {
                            "$ref": "#/definitions/authsdk.HealthResponse"
                        }
                    }
                }
            }
        }
    },
    "definitions": {
        "authsdk.ErrorResponse": {
            "type": "object",
            "properties": {
                "error": {
                    "type": "string"
                },
                "error_description": {
                    "type": "string"
                },
                "details": {
                    "type": "object",
                    "additionalProperties": {
                        "type": "string"
                    }
                }
            }
        },
        "authsdk.HealthChecks": {
            "type": "object",
            "properties": {
                "database": {
                    "type": "string"
                },
                "sessions": {
                    "type": "string"
                }
            }
        },
        "authsdk.HealthResponse": {
            "type": "object",
            "properties": {
                "status": {
                    "type": "string"
                },
                "uptime": {
                    "type": "string"
                },
                "version": {
                    "type": "string"
                },
                "checks": {
                    "$ref": "#/definitions/authsdk.HealthChecks"
                }
            }
        },
        "authsdk.User": {
            "type": "object",
            "properties": {
                "id": {
                    "type": "string"
                },
                "username": {
                    "type": "string"
                },
                "displayName": {
                    "type": "string"
                },
                "role": {
                    "type": "string"
                },
                "createdAt": {
                    "type": "string",
                    "format": "date-time"
                },
                "updatedAt": {
                    "type": "string",
                    "format": "date-time"
                }
            }
        },
        "authsdk.LoginRequest": {
            "type": "object",
            "properties": {
                "username": {
                    "type": "string"
                },
                "password": {
                    "type": "string"
                }
            }
        },
        "authsdk.RegisterRequest": {
            "type": "object",
            "properties": {
                "token": {
                    "type": "string"
                },
                "username": {
                    "type": "string"
                },
                "password": {
                    "type": "string"
                },
                "displayName": {
                    "type": "string"
                }
            }
        },
        "authsdk.ValidateInviteResponse": {
            "type": "object",
            "properties": {
                "valid": {
                    "type": "boolean"
                },
                "email": {
                    "type": "string"
                },
                "error": {
                    "type": "string"
                }
            }
        },
        "authsdk.ChangeRoleRequest": {
            "type": "object",
            "properties": {
                "role": {
                    "type": "string"
                }
            }
        },
        "authsdk.ResetPasswordRequest": {
            "type": "object",
            "properties": {
                "newPassword": {
                    "type": "string"
                }
            }
        },
        "authsdk.Invitation": {
            "type": "object",
            "properties": {
                "id": {
                    "type": "string"
                },
                "email": {
                    "type": "string"
                },
                "role": {
                    "type": "string"
                },
                "status": {
                    "type": "string"
                },
                "invitedBy": {
                    "type": "string"
                },
                "createdAt": {
                    "type": "string",
                    "format": "date-time"
                },
                "expiresAt": {
                    "type": "string",
                    "format": "date-time"
                },
                "acceptedAt": {
                    "type": "string",
                    "format": "date-time"
                },
                "acceptedBy": {
                    "type": "string"
                }
            }
        },
        "authsdk.CreateInvitationRequest": {
            "type": "object",
            "properties": {
                "email": {
                    "type": "string"
                },
                "role": {
                    "type": "string"
                }
            }
        },
        "authsdk.CreateInvitationResponse": {
            "type": "object",
            "properties": {
                "invitation": {
                    "$ref": "#/definitions/authsdk.Invitation"
                },
                "inviteUrl": {
                    "type": "string"
                },
                "emailSent": {
                    "type": "boolean"
                },
                "message": {
                    "type": "string"
                }
            }
        },
        "authsdk.EmailStatusResponse": {
            "type": "object",
            "properties": {
                "configured": {
                    "type": "boolean"
                }
            }
        },
        "authsdk.MicrosoftStatusResponse": {
            "type": "object",
            "properties": {
                "configured": {
                    "type": "boolean"
                },
                "connected": {
                    "type": "boolean"
                },
                "expiresAt": {
                    "type": "string",
                    "format": "date-time"
                }
            }
        }
    },
    "securityDefinitions": {
        "SessionCookie": {
            "type": "apiKey",
            "name": "itops_session",
            "in": "cookie"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "0.1.0",
	Host:             "localhost:8080",
	BasePath:         "/",
	Schemes:          []string{"http", "https"},
	Title:            "IT Ops Dashboard API",
	Description:      "Session-authenticated API behind the IT Ops Dashboard: login, invitation-based\nregistration, user administration and the Microsoft 365 connection.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
