package mockfeed

import (
	"encoding/json"
	"net/http"
)

// Response is the envelope every feed API endpoint answers with.
type Response struct {
	Success bool         `json:"success"`
	Message string       `json:"message,omitempty"`
	Data    interface{}  `json:"data,omitempty"`
	Error   *ErrorDetail `json:"error,omitempty"`
}

type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func success(w http.ResponseWriter, data interface{}) {
	writeJSON(w, http.StatusOK, Response{Success: true, Data: data})
}

func successWithMessage(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusOK, Response{Success: true, Message: message})
}

func badRequest(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, Response{
		Success: false,
		Error:   &ErrorDetail{Code: "BAD_REQUEST", Message: message},
	})
}

func unauthorized(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusUnauthorized, Response{
		Success: false,
		Error:   &ErrorDetail{Code: "UNAUTHORIZED", Message: message},
	})
}

func notFound(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusNotFound, Response{
		Success: false,
		Error:   &ErrorDetail{Code: "NOT_FOUND", Message: message},
	})
}
