package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Commerce Dashboard API",
        "description": "Customer accounts and sales analytics for the commerce dashboard",
        "version": "1.0.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "produces": [
        "application/json"
    ],
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    },
    "tags": [
        {
            "name": "Authentication",
            "description": "Customer signup and token sessions"
        },
        {
            "name": "Dashboard",
            "description": "Sales KPIs, charts and tables"
        },
        {
            "name": "Observability",
            "description": "Health and metrics"
        }
    ],
    "paths": {
        "/health": {
            "get": {
                "tags": [
                    "Observability"
                ],
                "summary": "Liveness probe",
                "responses": {
                    "200": {
                        "description": "OK"
                    }
                }
            }
        },
        "/ready": {
            "get": {
                "tags": [
                    "Observability"
                ],
                "summary": "Readiness probe",
                "responses": {
                    "200": {
                        "description": "OK"
                    },
                    "503": {
                        "description": "Dependency unavailable"
                    }
                }
            }
        },
        "/metrics": {
            "get": {
                "tags": [
                    "Observability"
                ],
                "summary": "Prometheus metrics",
                "produces": [
                    "text/plain"
                ],
                "responses": {
                    "200": {
                        "description": "OK"
                    }
                }
            }
        },
        "/metrics/summary": {
            "get": {
                "tags": [
                    "Observability"
                ],
                "summary": "Process metrics summary",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/SystemMetrics"
                        }
                    }
                }
            }
        },
        "/auth/register": {
            "post": {
                "tags": [
                    "Authentication"
                ],
                "summary": "Register customer",
                "consumes": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/SignupRequest"
                        }
                    }
                ],
                "responses": {
                    "201": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/CustomerSummary"
                        }
                    },
                    "400": {
                        "description": "Error",
                        "schema": {
                            "$ref": "#/definitions/ErrorBody"
                        }
                    }
                }
            }
        },
        "/auth/login": {
            "post": {
                "tags": [
                    "Authentication"
                ],
                "summary": "Authenticate customer",
                "consumes": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/LoginRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/TokenPair"
                        }
                    },
                    "400": {
                        "description": "Error",
                        "schema": {
                            "$ref": "#/definitions/ErrorBody"
                        }
                    },
                    "401": {
                        "description": "Error",
                        "schema": {
                            "$ref": "#/definitions/ErrorBody"
                        }
                    },
                    "429": {
                        "description": "Error",
                        "schema": {
                            "$ref": "#/definitions/ErrorBody"
                        }
                    }
                }
            }
        },
        "/auth/refresh": {
            "post": {
                "tags": [
                    "Authentication"
                ],
                "summary": "Rotate refresh token",
                "consumes": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/RefreshRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/TokenPair"
                        }
                    },
                    "400": {
                        "description": "Error",
                        "schema": {
                            "$ref": "#/definitions/ErrorBody"
                        }
                    },
                    "401": {
                        "description": "Error",
                        "schema": {
                            "$ref": "#/definitions/ErrorBody"
                        }
                    },
                    "429": {
                        "description": "Error",
                        "schema": {
                            "$ref": "#/definitions/ErrorBody"
                        }
                    }
                }
            }
        },
        "/auth/logout": {
            "post": {
                "tags": [
                    "Authentication"
                ],
                "summary": "Logout current session",
                "consumes": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/LogoutRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/DetailResponse"
                        }
                    },
                    "401": {
                        "description": "Error",
                        "schema": {
                            "$ref": "#/definitions/ErrorBody"
                        }
                    },
                    "404": {
                        "description": "Error",
                        "schema": {
                            "$ref": "#/definitions/ErrorBody"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/auth/logout-all": {
            "post": {
                "tags": [
                    "Authentication"
                ],
                "summary": "Logout everywhere",
                "consumes": [
                    "application/json"
                ],
                "parameters": [],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/DetailResponse"
                        }
                    },
                    "401": {
                        "description": "Error",
                        "schema": {
                            "$ref": "#/definitions/ErrorBody"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/api/v1/kpis/summary": {
            "get": {
                "tags": [
                    "Dashboard"
                ],
                "summary": "KPI summary",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "parameters": [
                    {
                        "name": "days",
                        "in": "query",
                        "type": "integer",
                        "description": "Window in days (1-30)",
                        "default": 7
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/KPISummaryResponse"
                        }
                    },
                    "400": {
                        "description": "Error",
                        "schema": {
                            "$ref": "#/definitions/ErrorBody"
                        }
                    },
                    "401": {
                        "description": "Error",
                        "schema": {
                            "$ref": "#/definitions/ErrorBody"
                        }
                    }
                }
            }
        },
        "/api/v1/charts/monthly-sales": {
            "get": {
                "tags": [
                    "Dashboard"
                ],
                "summary": "Monthly sales",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "parameters": [
                    {
                        "name": "months",
                        "in": "query",
                        "type": "integer",
                        "description": "Number of months (1-36)",
                        "default": 12
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "type": "array",
                            "items": {
                                "$ref": "#/definitions/MonthlySalesPoint"
                            }
                        }
                    },
                    "400": {
                        "description": "Error",
                        "schema": {
                            "$ref": "#/definitions/ErrorBody"
                        }
                    },
                    "401": {
                        "description": "Error",
                        "schema": {
                            "$ref": "#/definitions/ErrorBody"
                        }
                    }
                }
            }
        },
        "/api/v1/charts/orders-by-category": {
            "get": {
                "tags": [
                    "Dashboard"
                ],
                "summary": "Orders by category",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "parameters": [
                    {
                        "name": "metric",
                        "in": "query",
                        "type": "string",
                        "description": "amount or count",
                        "default": "amount",
                        "enum": [
                            "amount",
                            "count"
                        ]
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "type": "array",
                            "items": {
                                "$ref": "#/definitions/CategoryShare"
                            }
                        }
                    },
                    "400": {
                        "description": "Error",
                        "schema": {
                            "$ref": "#/definitions/ErrorBody"
                        }
                    },
                    "401": {
                        "description": "Error",
                        "schema": {
                            "$ref": "#/definitions/ErrorBody"
                        }
                    }
                }
            }
        },
        "/api/v1/charts/funnel": {
            "get": {
                "tags": [
                    "Dashboard"
                ],
                "summary": "Conversion funnel",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "parameters": [
                    {
                        "name": "from_date",
                        "in": "query",
                        "type": "string",
                        "description": "Start date (YYYY-MM-DD)"
                    },
                    {
                        "name": "to_date",
                        "in": "query",
                        "type": "string",
                        "description": "End date (YYYY-MM-DD)"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "type": "array",
                            "items": {
                                "$ref": "#/definitions/FunnelStep"
                            }
                        }
                    },
                    "400": {
                        "description": "Error",
                        "schema": {
                            "$ref": "#/definitions/ErrorBody"
                        }
                    },
                    "401": {
                        "description": "Error",
                        "schema": {
                            "$ref": "#/definitions/ErrorBody"
                        }
                    }
                }
            }
        },
        "/api/v1/tables/top-products": {
            "get": {
                "tags": [
                    "Dashboard"
                ],
                "summary": "Top products",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "parameters": [
                    {
                        "name": "limit",
                        "in": "query",
                        "type": "integer",
                        "description": "Rows (1-100)",
                        "default": 10
                    },
                    {
                        "name": "from_date",
                        "in": "query",
                        "type": "string",
                        "description": "Start date (YYYY-MM-DD)"
                    },
                    {
                        "name": "to_date",
                        "in": "query",
                        "type": "string",
                        "description": "End date (YYYY-MM-DD)"
                    },
                    {
                        "name": "category_id",
                        "in": "query",
                        "type": "integer",
                        "description": "Category ID"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/TopProductsResponse"
                        }
                    },
                    "400": {
                        "description": "Error",
                        "schema": {
                            "$ref": "#/definitions/ErrorBody"
                        }
                    },
                    "401": {
                        "description": "Error",
                        "schema": {
                            "$ref": "#/definitions/ErrorBody"
                        }
                    }
                }
            }
        },
        "/api/v1/tables/top-products/export": {
            "get": {
                "tags": [
                    "Dashboard"
                ],
                "summary": "Export top products",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "parameters": [
                    {
                        "name": "format",
                        "in": "query",
                        "type": "string",
                        "description": "csv or pdf",
                        "default": "csv",
                        "enum": [
                            "csv",
                            "pdf"
                        ]
                    },
                    {
                        "name": "limit",
                        "in": "query",
                        "type": "integer",
                        "description": "Rows (1-100)",
                        "default": 10
                    },
                    {
                        "name": "from_date",
                        "in": "query",
                        "type": "string",
                        "description": "Start date (YYYY-MM-DD)"
                    },
                    {
                        "name": "to_date",
                        "in": "query",
                        "type": "string",
                        "description": "End date (YYYY-MM-DD)"
                    },
                    {
                        "name": "category_id",
                        "in": "query",
                        "type": "integer",
                        "description": "Category ID"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "File"
                    },
                    "400": {
                        "description": "Error",
                        "schema": {
                            "$ref": "#/definitions/ErrorBody"
                        }
                    },
                    "401": {
                        "description": "Error",
                        "schema": {
                            "$ref": "#/definitions/ErrorBody"
                        }
                    }
                },
                "produces": [
                    "text/csv",
                    "application/pdf"
                ]
            }
        },
        "/api/v1/tables/device-share": {
            "get": {
                "tags": [
                    "Dashboard"
                ],
                "summary": "Device share",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "parameters": [
                    {
                        "name": "metric",
                        "in": "query",
                        "type": "string",
                        "description": "amount or count",
                        "default": "amount",
                        "enum": [
                            "amount",
                            "count"
                        ]
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "type": "array",
                            "items": {
                                "$ref": "#/definitions/DeviceShare"
                            }
                        }
                    },
                    "400": {
                        "description": "Error",
                        "schema": {
                            "$ref": "#/definitions/ErrorBody"
                        }
                    },
                    "401": {
                        "description": "Error",
                        "schema": {
                            "$ref": "#/definitions/ErrorBody"
                        }
                    }
                }
            }
        }
    },
    "definitions": {
        "SignupRequest": {
            "type": "object",
            "properties": {
                "site_type": {
                    "type": "string"
                },
                "site_name": {
                    "type": "string"
                },
                "site_url": {
                    "type": "string"
                },
                "site_tz": {
                    "type": "string"
                },
                "site_category": {
                    "type": "string"
                },
                "first_name": {
                    "type": "string"
                },
                "last_name": {
                    "type": "string"
                },
                "email": {
                    "type": "string"
                },
                "password": {
                    "type": "string"
                },
                "agree_privacy": {
                    "type": "boolean"
                }
            },
            "required": [
                "site_type",
                "site_name",
                "site_url",
                "site_tz",
                "first_name",
                "last_name",
                "email",
                "password"
            ]
        },
        "CustomerSummary": {
            "type": "object",
            "properties": {
                "customer_id": {
                    "type": "integer"
                },
                "name": {
                    "type": "string"
                },
                "email": {
                    "type": "string"
                }
            }
        },
        "LoginRequest": {
            "type": "object",
            "properties": {
                "email": {
                    "type": "string"
                },
                "password": {
                    "type": "string"
                }
            },
            "required": [
                "email",
                "password"
            ]
        },
        "RefreshRequest": {
            "type": "object",
            "properties": {
                "refresh_token": {
                    "type": "string"
                }
            },
            "required": [
                "refresh_token"
            ]
        },
        "LogoutRequest": {
            "type": "object",
            "properties": {
                "refresh_token": {
                    "type": "string"
                }
            },
            "required": [
                "refresh_token"
            ]
        },
        "TokenPair": {
            "type": "object",
            "properties": {
                "access_token": {
                    "type": "string"
                },
                "refresh_token": {
                    "type": "string"
                }
            }
        },
        "DetailResponse": {
            "type": "object",
            "properties": {
                "detail": {
                    "type": "string"
                }
            }
        },
        "ErrorBody": {
            "type": "object",
            "properties": {
                "detail": {
                    "type": "string"
                },
                "code": {
                    "type": "string"
                }
            }
        },
        "KPISummaryResponse": {
            "type": "object",
            "properties": {
                "days": {
                    "type": "integer"
                },
                "sales": {
                    "type": "integer"
                },
                "items": {
                    "type": "integer"
                },
                "visits": {
                    "type": "integer"
                }
            }
        },
        "MonthlySalesPoint": {
            "type": "object",
            "properties": {
                "ym": {
                    "type": "string"
                },
                "sales": {
                    "type": "integer"
                }
            }
        },
        "TopProduct": {
            "type": "object",
            "properties": {
                "product_id": {
                    "type": "integer"
                },
                "product_code": {
                    "type": "string"
                },
                "product_name": {
                    "type": "string"
                },
                "device": {
                    "type": "string"
                },
                "total_qty": {
                    "type": "integer"
                },
                "total_sales": {
                    "type": "integer"
                },
                "last_order_date": {
                    "type": "string",
                    "format": "date-time",
                    "x-nullable": true
                }
            }
        },
        "TopProductsResponse": {
            "type": "object",
            "properties": {
                "items": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/TopProduct"
                    }
                },
                "count": {
                    "type": "integer"
                }
            }
        },
        "DeviceShare": {
            "type": "object",
            "properties": {
                "device": {
                    "type": "string"
                },
                "value": {
                    "type": "integer"
                }
            }
        },
        "CategoryShare": {
            "type": "object",
            "properties": {
                "category_name": {
                    "type": "string"
                },
                "value": {
                    "type": "integer"
                }
            }
        },
        "FunnelStep": {
            "type": "object",
            "properties": {
                "step": {
                    "type": "string"
                },
                "count": {
                    "type": "integer"
                }
            }
        },
        "SystemMetrics": {
            "type": "object",
            "properties": {
                "cache_hit_ratio": {
                    "type": "number"
                },
                "cache_hits": {
                    "type": "integer"
                },
                "cache_misses": {
                    "type": "integer"
                },
                "requests_total": {
                    "type": "integer"
                },
                "average_request_duration_ms": {
                    "type": "number"
                },
                "db_query_count": {
                    "type": "integer"
                },
                "average_db_query_duration_ms": {
                    "type": "number"
                },
                "goroutines": {
                    "type": "integer"
                },
                "generated_at": {
                    "type": "string",
                    "format": "date-time"
                }
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
