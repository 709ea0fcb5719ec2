package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/dom/accounts-api/internal/domain"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Envelope wraps every successful response body
type Envelope struct {
	StatusCode int         `json:"statusCode"`
	Data       interface{} `json:"data"`
	Message    string      `json:"message"`
	Success    bool        `json:"success"`
}

func writeJSON(w http.ResponseWriter, status int, data interface{}, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(Envelope{
		StatusCode: status,
		Data:       data,
		Message:    message,
		Success:    status < http.StatusBadRequest,
	}); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

// WriteError renders err as the error envelope. Causes of internal failures
// are logged and never sent to the client.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	kind := domain.KindOf(err)
	status := kind.StatusCode()

	logger := zerolog.Ctx(r.Context())
	event := logger.Warn()
	if kind == domain.KindInternal {
		event = logger.Error()
	}
	event.Err(err).Int("status", status).Msg("request failed")

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(domain.NewErrorResponse(err))
}

func decodeJSON(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return domain.Validation("Invalid request body")
	}
	return nil
}
