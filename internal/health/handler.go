package health

import (
	"context"
	"encoding/json"
	"net/http"
)

type HealthChecker interface {
	Check(ctx context.Context) Result
}

type response struct {
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Handler answers every check with 200 and a JSON body carrying either
// "message" or "error".
type Handler struct {
	checker HealthChecker
}

func NewHandler(checker HealthChecker) *Handler {
	return &Handler{checker: checker}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	result := h.checker.Check(r.Context())

	payload := response{Message: SuccessMessage}
	if !result.OK() {
		payload = response{Error: result.Message}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
