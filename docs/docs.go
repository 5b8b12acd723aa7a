package docs

import "github.com/swaggo/swag"

const docTemplate = `{
  "swagger": "2.0",
  "info": {
    "title": "Contract Approval Assistant",
    "description": "Evaluates contracts in Google Docs against the approval matrix, annotates deviations and routes escalations",
    "version": "1.0"
  },
  "basePath": "/",
  "paths": {
    "/chat": {"post": {"tags": ["chat"], "summary": "Chat turn", "consumes": ["application/json"], "produces": ["application/json"]}},
    "/chat/stream": {"post": {"tags": ["chat"], "summary": "Streaming chat turn", "consumes": ["application/json"], "produces": ["text/plain"]}},
    "/chat/events": {"post": {"tags": ["chat"], "summary": "Chat turn as server-sent events", "consumes": ["application/json"], "produces": ["text/event-stream"]}},
    "/chat/{id}": {"delete": {"tags": ["chat"], "summary": "Forget a session"}},
    "/api/policy": {"get": {"tags": ["policy"], "summary": "Approval matrix", "produces": ["application/json"]}},
    "/api/evaluations": {"get": {"tags": ["evaluations"], "summary": "Recorded evaluations", "produces": ["application/json"]}},
    "/api/evaluations/{id}": {"get": {"tags": ["evaluations"], "summary": "Recorded evaluation", "produces": ["application/json"]}}
  }
}`

func init() {
	swag.Register(swag.Name, &s{})
}

type s struct{}

func (s *s) ReadDoc() string {
	return docTemplate
}
