// Package transport carries messenger calls over HTTP so the popup and the
// page agent can run in separate processes.
//
//	POST /v1/instances/{instance}/messages  messenger.Request -> messenger.Response
//	GET  /v1/instances/active               {"instance": "..."} or 204
//	GET  /v1/instances                      {"instances": [...]}
//
// Failures carry {"error": "..."}; 404 with code no_listener means nothing
// is registered for the instance.
package transport

import (
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/idilsaglam/issuestash/internal/messenger"
)

const (
	pathMessages  = "/v1/instances/{instance}/messages"
	pathActive    = "/v1/instances/active"
	pathInstances = "/v1/instances"

	headerRequestID = "X-Request-Id"

	codeNoListener   = "no_listener"
	codeDisconnected = "disconnected"
	codeUnauthorized = "unauthorized"
	codeBadRequest   = "bad_request"
)

type errorBody struct {
	Error string `json:"error"`
}

type activeBody struct {
	Instance messenger.InstanceID `json:"instance"`
}

type instancesBody struct {
	Instances []messenger.InstanceID `json:"instances"`
}

func messagesPath(id messenger.InstanceID) string {
	return "/v1/instances/" + url.PathEscape(string(id)) + "/messages"
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}
