package router

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/mohammed-shakir/mgnrega-tracker/internal/core/model"
)

type envelope struct {
	Success  bool   `json:"success"`
	Detected *bool  `json:"detected,omitempty"`
	Data     any    `json:"data,omitempty"`
	Message  string `json:"message,omitempty"`
	Error    string `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func ok(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: data})
}

// statusFor maps the error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrDataUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// fail writes the error envelope. what describes the failed action for 5xx responses;
// validation and not-found errors carry their own message.
func fail(w http.ResponseWriter, r *http.Request, l *slog.Logger, what string, err error) {
	code := statusFor(err)
	body := envelope{Success: false, Message: what, Error: err.Error()}
	switch code {
	case http.StatusBadRequest:
		body.Message, body.Error = err.Error(), ""
		var ve *model.ValidationError
		if errors.As(err, &ve) {
			body.Message = ve.Message
		}
	case http.StatusNotFound:
		body.Message = err.Error()
		body.Error = ""
	case http.StatusServiceUnavailable:
		l.WarnContext(r.Context(), what, "err", err)
	default:
		l.ErrorContext(r.Context(), what, "err", err)
	}
	writeJSON(w, code, body)
}
