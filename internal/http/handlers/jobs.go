package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"studio/internal/domain"

	"github.com/go-chi/chi/v5"
)

type jobEntryResponse struct {
	Handle    string          `json:"handle"`
	Provider  string          `json:"provider"`
	Endpoint  string          `json:"endpoint"`
	Status    string          `json:"status"`
	Result    json.RawMessage `json:"result,omitempty"`
	Error     string          `json:"error,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// JobStatus reads a job back from the ledger. Without a ledger every handle
// is unknown.
func (a *App) JobStatus(w http.ResponseWriter, r *http.Request) {
	handle := strings.TrimSpace(chi.URLParam(r, "handle"))
	if handle == "" {
		a.error(w, http.StatusBadRequest, domain.ErrorKindInvalid, "handle required")
		return
	}
	if a.Ledger == nil {
		a.error(w, http.StatusNotFound, domain.ErrorKindNotFound, "job not found")
		return
	}
	entry, err := a.Ledger.Get(r.Context(), domain.JobHandle(handle))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, domain.ErrorKindNotFound, "job not found")
			return
		}
		a.fail(w, r, err)
		return
	}
	resp := jobEntryResponse{
		Handle:    entry.Handle.String(),
		Provider:  entry.Provider,
		Endpoint:  entry.Endpoint,
		Status:    string(entry.Status),
		Error:     entry.ErrorMessage,
		CreatedAt: entry.CreatedAt,
		UpdatedAt: entry.UpdatedAt,
	}
	if len(entry.ResultJSON) > 0 {
		resp.Result = json.RawMessage(entry.ResultJSON)
	}
	a.json(w, http.StatusOK, resp)
}
