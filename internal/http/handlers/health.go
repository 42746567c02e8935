package handlers

import (
	"net/http"
)

func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, map[string]any{
		"status": "ok",
		"providers": map[string]bool{
			"text":   a.Text != nil,
			"direct": a.Direct != nil,
			"images": a.ImageJobs != nil,
			"videos": a.VideoJobs != nil,
		},
		"ledger": a.Ledger != nil,
	})
}
