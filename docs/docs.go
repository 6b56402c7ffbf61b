// Package docs Service Aggregator API.
//
// Swagger описание API, отдаётся fiber-swagger по /swagger/*.
// Регенерация: swag init -g cmd/api/main.go -o docs
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {
            "name": "API Support"
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
        "/api/v1/health": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Health"],
                "summary": "Состояние сервиса",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.HealthResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/dto.HealthResponse"}}
                }
            }
        },
        "/api/v1/services/search": {
            "get": {
                "description": "Опрашивает ручные записи, OpenStreetMap, Google Places и ленты гуманитарных организаций параллельно. Если не ответил ни один источник, поле error заполнено, статус остаётся 200.",
                "produces": ["application/json"],
                "tags": ["Services"],
                "summary": "Агрегированный поиск сервисов помощи",
                "parameters": [
                    {"type": "string", "description": "Тип сервиса (clinic, shelter, food, legal, education, other)", "name": "type", "in": "query", "required": true},
                    {"type": "string", "description": "Страна", "name": "country", "in": "query", "required": true},
                    {"type": "number", "description": "Широта пользователя", "name": "lat", "in": "query"},
                    {"type": "number", "description": "Долгота пользователя", "name": "lng", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.SearchResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/utils.ErrorResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/utils.ErrorResponse"}}
                }
            }
        },
        "/api/v1/services/refresh": {
            "post": {
                "description": "OSM заменяет все свои записи страны, остальные провайдеры делают upsert по externalId.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Refresh"],
                "summary": "Обновление данных провайдера по стране",
                "parameters": [
                    {"description": "Провайдер, страна и необязательный bbox", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/dto.RefreshRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.RefreshResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/utils.ErrorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/utils.ErrorResponse"}},
                    "502": {"description": "Bad Gateway", "schema": {"$ref": "#/definitions/utils.ErrorResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/utils.ErrorResponse"}}
                }
            }
        },
        "/api/v1/services/refresh/async": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Refresh"],
                "summary": "Асинхронное обновление данных провайдера",
                "parameters": [
                    {"description": "Провайдер, страна и необязательный bbox", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/dto.RefreshRequest"}}
                ],
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/dto.AsyncRefreshResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/utils.ErrorResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/utils.ErrorResponse"}}
                }
            }
        },
        "/api/v1/services/providers": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Refresh"],
                "summary": "Подключённые провайдеры",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/api/v1/services": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Services"],
                "summary": "Список ручных записей",
                "parameters": [
                    {"type": "string", "description": "Тип сервиса", "name": "type", "in": "query"},
                    {"type": "string", "description": "Страна", "name": "country", "in": "query"},
                    {"type": "integer", "default": 50, "description": "Максимальное количество записей", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/utils.ErrorResponse"}}
                }
            },
            "post": {
                "description": "Источник всегда manual, владелец берётся из заголовка X-User-ID",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Services"],
                "summary": "Создание ручной записи",
                "parameters": [
                    {"type": "string", "description": "ID пользователя", "name": "X-User-ID", "in": "header", "required": true},
                    {"description": "Запись", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/dto.CreateServiceRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created"},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/utils.ErrorResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/utils.ErrorResponse"}}
                }
            }
        },
        "/api/v1/services/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Services"],
                "summary": "Запись по ID",
                "parameters": [
                    {"type": "string", "description": "ID записи", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/utils.ErrorResponse"}}
                }
            },
            "put": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Services"],
                "summary": "Изменение ручной записи",
                "parameters": [
                    {"type": "string", "description": "ID пользователя", "name": "X-User-ID", "in": "header", "required": true},
                    {"type": "string", "description": "ID записи", "name": "id", "in": "path", "required": true},
                    {"description": "Изменяемые поля", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/dto.UpdateServiceRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/utils.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/utils.ErrorResponse"}}
                }
            },
            "delete": {
                "tags": ["Services"],
                "summary": "Удаление ручной записи",
                "parameters": [
                    {"type": "string", "description": "ID пользователя", "name": "X-User-ID", "in": "header", "required": true},
                    {"type": "string", "description": "ID записи", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "204": {"description": "No Content"},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/utils.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/utils.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "domain.Service": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "name": {"type": "string"},
                "type": {"type": "string"},
                "address": {"type": "string"},
                "latitude": {"type": "number"},
                "longitude": {"type": "number"},
                "phone": {"type": "string"},
                "email": {"type": "string"},
                "website": {"type": "string"},
                "hours": {"type": "string"},
                "languages": {"type": "array", "items": {"type": "string"}},
                "description": {"type": "string"},
                "source": {"type": "string"},
                "external_id": {"type": "string"},
                "country": {"type": "string"},
                "created_by": {"type": "string"},
                "created_at": {"type": "string"},
                "updated_at": {"type": "string"},
                "priority": {"type": "integer"},
                "badge": {"type": "string"}
            }
        },
        "dto.SearchResponse": {
            "type": "object",
            "properties": {
                "internal": {"type": "array", "items": {"$ref": "#/definitions/domain.Service"}},
                "osm": {"type": "array", "items": {"$ref": "#/definitions/domain.Service"}},
                "google": {"type": "array", "items": {"$ref": "#/definitions/domain.Service"}},
                "relief": {"type": "object", "additionalProperties": {"type": "array", "items": {"$ref": "#/definitions/domain.Service"}}},
                "error": {"type": "string"},
                "failed_sources": {"type": "array", "items": {"type": "string"}}
            }
        },
        "dto.RefreshRequest": {
            "type": "object",
            "required": ["country", "provider"],
            "properties": {
                "provider": {"type": "string"},
                "country": {"type": "string"},
                "bbox": {"type": "string"}
            }
        },
        "dto.RefreshResponse": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "count": {"type": "integer"}
            }
        },
        "dto.AsyncRefreshResponse": {
            "type": "object",
            "properties": {
                "request_id": {"type": "string"},
                "message_id": {"type": "string"}
            }
        },
        "dto.CreateServiceRequest": {
            "type": "object",
            "required": ["country", "name", "type"],
            "properties": {
                "name": {"type": "string"},
                "type": {"type": "string"},
                "address": {"type": "string"},
                "latitude": {"type": "number"},
                "longitude": {"type": "number"},
                "phone": {"type": "string"},
                "email": {"type": "string"},
                "website": {"type": "string"},
                "hours": {"type": "string"},
                "languages": {"type": "array", "items": {"type": "string"}},
                "description": {"type": "string"},
                "country": {"type": "string"}
            }
        },
        "dto.UpdateServiceRequest": {
            "type": "object",
            "properties": {
                "name": {"type": "string"},
                "type": {"type": "string"},
                "address": {"type": "string"},
                "latitude": {"type": "number"},
                "longitude": {"type": "number"},
                "phone": {"type": "string"},
                "email": {"type": "string"},
                "website": {"type": "string"},
                "hours": {"type": "string"},
                "languages": {"type": "array", "items": {"type": "string"}},
                "description": {"type": "string"},
                "country": {"type": "string"}
            }
        },
        "dto.HealthResponse": {
            "type": "object",
            "properties": {
                "status": {"type": "string"},
                "services": {"type": "object", "additionalProperties": {"type": "string"}}
            }
        },
        "errors.AppError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "details": {"type": "object", "additionalProperties": true}
            }
        },
        "utils.ErrorResponse": {
            "type": "object",
            "properties": {
                "error": {"$ref": "#/definitions/errors.AppError"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0.0",
	Host:             "localhost:8080",
	BasePath:         "/",
	Schemes:          []string{"http", "https"},
	Title:            "Service Aggregator API",
	Description:      "Агрегатор сервисов помощи: ручные записи, OpenStreetMap, Google Places и ленты гуманитарных организаций.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
