// internal/app/system/respond/respond.go
package respond

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/dalemusser/fieldhub/internal/app/system/limits"
	"github.com/dalemusser/fieldhub/internal/app/system/outcome"
	"go.uber.org/zap"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// JSON writes v with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Status writes an error body with an explicit status and code.
func Status(w http.ResponseWriter, status int, code, msg string) {
	JSON(w, status, ErrorBody{Error: code, Message: msg})
}

// StatusFor maps an outcome kind to an HTTP status.
func StatusFor(k outcome.Kind) int {
	switch k {
	case outcome.KindNotFound:
		return http.StatusNotFound
	case outcome.KindConflict:
		return http.StatusConflict
	case outcome.KindMalformed:
		return http.StatusBadRequest
	case outcome.KindUnavailable:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// Error writes err as a JSON error response. Expected outcomes (not found,
// conflict, malformed) are logged at Info; faults at Error.
func Error(w http.ResponseWriter, log *zap.Logger, op string, err error) {
	kind := outcome.KindOf(err)
	status := StatusFor(kind)

	if log != nil {
		if status >= 500 {
			log.Error(op+" failed", zap.String("kind", string(kind)), zap.Error(err))
		} else {
			log.Info(op+" rejected", zap.String("kind", string(kind)), zap.Error(err))
		}
	}

	code := string(kind)
	msg := outcome.Message(err)
	if kind == outcome.KindNone {
		code = "internal"
		msg = "internal error"
	}
	Status(w, status, code, msg)
}

// Decode reads a JSON body of at most limit bytes into v. Any failure is a
// Malformed outcome.
func Decode(w http.ResponseWriter, r *http.Request, v any, limit int64) error {
	if limit <= 0 {
		limit = limits.MaxJSONBody
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, limit))
	if err := dec.Decode(v); err != nil {
		var tooBig *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			return outcome.Malformed("request.decode", "request body is required")
		case errors.As(err, &tooBig):
			return outcome.Malformed("request.decode", "request body exceeds %d bytes", tooBig.Limit)
		}
		return outcome.Malformed("request.decode", "invalid JSON: %v", err)
	}
	return nil
}
