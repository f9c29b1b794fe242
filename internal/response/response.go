package response

import (
	"encoding/json"
	"net/http"
)

// Response is the envelope every API endpoint answers with.
// Data is always serialized, as null when there is no payload.
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data"`
	Message string      `json:"message"`
}

// WriteJSON writes a JSON response with the given status code
func WriteJSON(w http.ResponseWriter, statusCode int, response Response) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(response)
}

// WriteSuccess writes a 200 response carrying data.
func WriteSuccess(w http.ResponseWriter, data interface{}, message string) error {
	return WriteJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    data,
		Message: message,
	})
}

// WriteError writes a failure envelope with no data.
func WriteError(w http.ResponseWriter, statusCode int, message string) error {
	return WriteJSON(w, statusCode, Response{
		Success: false,
		Message: message,
	})
}

// WriteInternalError writes a 500 failure envelope
func WriteInternalError(w http.ResponseWriter) error {
	return WriteError(w, http.StatusInternalServerError, "Something went wrong.")
}

// WriteUnauthorized writes a 401 failure envelope
func WriteUnauthorized(w http.ResponseWriter) error {
	return WriteError(w, http.StatusUnauthorized, "Unauthorized.")
}

// WriteNotFound writes a 404 failure envelope
func WriteNotFound(w http.ResponseWriter) error {
	return WriteError(w, http.StatusNotFound, "Route not found.")
}

// WriteMethodNotAllowed writes a 405 failure envelope
func WriteMethodNotAllowed(w http.ResponseWriter) error {
	return WriteError(w, http.StatusMethodNotAllowed, "Method not allowed.")
}
