package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"

	"pplxbridge/internal/profile"
	"pplxbridge/internal/session"
	"pplxbridge/pkg/models"
)

// Asker runs the full browser pipeline for one prompt.
type Asker interface {
	Ask(ctx context.Context, req models.AskRequest) (string, error)
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	asker    Asker
	sessions *session.Manager
	profiles *profile.Manager
}

func NewHandler(asker Asker, sessions *session.Manager, profiles *profile.Manager) *Handler {
	return &Handler{
		asker:    asker,
		sessions: sessions,
		profiles: profiles,
	}
}

// Root handles GET / as a liveness check
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "pplxbridge is running",
	})
}

// Ask handles POST /ask. The call blocks for the whole browser pipeline,
// which can run well past ten minutes on slow generations.
func (h *Handler) Ask(w http.ResponseWriter, r *http.Request) {
	var req models.AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{
			Detail: "invalid request body: " + err.Error(),
		})
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{
			Detail: "prompt is required",
		})
		return
	}

	log.Info("ask: request received", "chars", len(req.Prompt), "research", req.UseResearchMode)

	answer, err := h.asker.Ask(r.Context(), req)
	if err != nil {
		log.Error("ask: request failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{
			Detail: err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, models.AskResponse{Response: answer})
}

// Status handles GET /status, reporting the current or most recent session.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	sess := h.sessions.Current()
	if sess == nil {
		writeJSON(w, http.StatusOK, map[string]string{"state": "idle"})
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// SnapshotProfile handles POST /profile/snapshot, archiving the profile
// directory so a working login can be restored later.
func (h *Handler) SnapshotProfile(w http.ResponseWriter, r *http.Request) {
	if h.sessions.Busy() {
		writeJSON(w, http.StatusConflict, models.ErrorResponse{
			Detail: "profile is in use by a running session",
		})
		return
	}

	archive, err := h.profiles.Snapshot()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Detail: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"archive": archive})
}

// RestoreProfile handles POST /profile/restore. With no body it restores
// the newest snapshot.
func (h *Handler) RestoreProfile(w http.ResponseWriter, r *http.Request) {
	if h.sessions.Busy() {
		writeJSON(w, http.StatusConflict, models.ErrorResponse{
			Detail: "profile is in use by a running session",
		})
		return
	}

	var req struct {
		Archive string `json:"archive"`
	}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, models.ErrorResponse{
				Detail: "invalid request body: " + err.Error(),
			})
			return
		}
	}

	if err := h.profiles.Restore(req.Archive); err != nil {
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Detail: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "restored"})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
