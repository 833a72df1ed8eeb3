package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// APIError is the body of every failed response.
type APIError struct {
	Detail string `json:"detail"`
}

const statusSuccess = "success"

// intFromQuery extracts a query string value and converts it to an int.
// If the value is empty, it returns defaultValue.
func intFromQuery(r *http.Request, param string, defaultValue int) (int, error) {
	p := r.URL.Query().Get(param)
	if p == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(p)
	if err != nil {
		return 0, errors.New(param + " must be an integer")
	}
	return v, nil
}

// encodeJSON encodes data into JSON and writes it to the response writer.
func encodeJSON(w http.ResponseWriter, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(data)
}

// decodeJSON decodes a JSON request body into the provided data struct.
func decodeJSON(r *http.Request, data interface{}) error {
	return json.NewDecoder(r.Body).Decode(data)
}

// renderError renders an error response. Every failure is reported as a 500
// with the error message as detail.
func renderError(w http.ResponseWriter, err error) {
	log.Error(err)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)
	if encErr := json.NewEncoder(w).Encode(APIError{Detail: err.Error()}); encErr != nil {
		log.Errorf("failed to write error response: %v", encErr)
	}
}

// renderJSON writes data, falling back to an error response if encoding fails.
func renderJSON(w http.ResponseWriter, data interface{}) {
	if err := encodeJSON(w, data); err != nil {
		renderError(w, err)
	}
}
