package docs

import "github.com/swaggo/swag"

const docTemplate = `{
  "swagger": "2.0",
  "info": {
    "title": "CivicLink Backend",
    "description": "Citizen issue reporting with automatic department routing and complaint emails",
    "version": "1.0"
  },
  "basePath": "/",
  "paths": {
    "/healthz": {"get": {"tags": ["health"], "summary": "Health check", "responses": {"200": {"description": "OK"}}}},
    "/api/reports": {"post": {"tags": ["reports"], "summary": "Submit a civic issue report", "consumes": ["multipart/form-data"], "responses": {"202": {"description": "Accepted"}, "400": {"description": "Validation error"}}}},
    "/api/reports/{id}": {"get": {"tags": ["reports"], "summary": "Get a report", "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "OK"}, "404": {"description": "Not found"}}}},
    "/api/reports/{id}/stream": {"get": {"tags": ["reports"], "summary": "Stream report progress", "produces": ["text/event-stream"], "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "Event stream"}}}},
    "/api/users/{userId}/reports": {"get": {"tags": ["reports"], "summary": "List a user's reports", "parameters": [{"name": "userId", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "OK"}}}},
    "/api/departments": {"get": {"tags": ["departments"], "summary": "List departments", "responses": {"200": {"description": "OK"}}}},
    "/api/states": {"get": {"tags": ["locations"], "summary": "List states", "responses": {"200": {"description": "OK"}}}},
    "/api/states/{state}/zones": {"get": {"tags": ["locations"], "summary": "List zones of a state", "parameters": [{"name": "state", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "OK"}, "404": {"description": "Not found"}}}},
    "/api/admin/departments": {"put": {"tags": ["admin"], "summary": "Create or update a department", "responses": {"200": {"description": "OK"}}}},
    "/api/admin/debug/candidates": {"get": {"tags": ["admin"], "summary": "Explain a routing decision", "responses": {"200": {"description": "OK"}}}},
    "/api/admin/followups/run": {"post": {"tags": ["admin"], "summary": "Run follow-ups now", "responses": {"200": {"description": "OK"}}}},
    "/api/admin/followups/latest": {"get": {"tags": ["admin"], "summary": "Latest follow-up run", "responses": {"200": {"description": "OK"}, "404": {"description": "No runs"}}}},
    "/api/admin/ai/health": {"get": {"tags": ["admin"], "summary": "AI provider health", "responses": {"200": {"description": "Healthy"}, "503": {"description": "Unhealthy"}}}}
  }
}`

func init() {
	swag.Register(swag.Name, &s{})
}

type s struct{}

func (s *s) ReadDoc() string {
	return docTemplate
}
