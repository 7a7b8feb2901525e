// Package respond writes JSON responses and translates errors at the HTTP boundary.
package respond

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/ayush/task-manager-api/internal/apperr"
)

const maxBodyBytes = 1 << 20

// Message is the body of every error response.
type Message struct {
	Message string `json:"message"`
}

// JSON writes v with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("encode response: %v", err)
	}
}

// Error maps err to a status and writes {"message": ...}. Only apperr
// messages reach the client; anything else is logged and becomes a 500.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	var e *apperr.Error
	if !errors.As(err, &e) || e.Kind == apperr.KindInternal {
		log.Printf("[%s] %s %s: %v", chimw.GetReqID(r.Context()), r.Method, r.URL.Path, err)
		JSON(w, http.StatusInternalServerError, Message{Message: "Internal server error"})
		return
	}
	JSON(w, e.Kind.Status(), Message{Message: e.Message})
}

// fieldTyper lets request types name the message for a mistyped field.
type fieldTyper interface {
	FieldTypeMessage(field string) string
}

// Decode reads a JSON request body into v, rejecting unknown fields.
func Decode(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(v); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			if ft, ok := v.(fieldTyper); ok {
				if msg := ft.FieldTypeMessage(typeErr.Field); msg != "" {
					return apperr.Invalid(msg)
				}
			}
			return apperr.Invalid(typeErr.Field + " has an invalid type")
		}
		if errors.Is(err, io.EOF) {
			return apperr.Invalid("Request body is required")
		}
		if name, ok := unknownField(err); ok {
			return apperr.Invalid(name + " is not allowed")
		}
		return apperr.Invalid("Invalid request body")
	}
	if dec.More() {
		return apperr.Invalid("Invalid request body")
	}
	return nil
}

// unknownField extracts the field name from encoding/json's unknown-field error.
func unknownField(err error) (string, bool) {
	const prefix = "json: unknown field "
	msg := err.Error()
	if len(msg) > len(prefix) && msg[:len(prefix)] == prefix {
		return msg[len(prefix):], true
	}
	return "", false
}
