package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/clipdesk/clipdesk-agent/internal/history"
	"github.com/clipdesk/clipdesk-agent/internal/workflow"
)

func NewRouter(cfg ServerConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware())
	r.Use(RecoveryMiddleware(cfg.Logger))
	r.Use(LoggingMiddleware(cfg.Logger))
	r.Use(CORSAllowlist())

	r.Get("/health", healthHandler(cfg))

	// Media elements cannot send a bearer token; the preview token itself
	// is the capability.
	r.Group(func(r chi.Router) {
		r.Use(LoopbackGuard())
		r.Handle("/metrics", promhttp.Handler())
		r.Get("/preview/{token}", previewHandler(cfg))
		r.Head("/preview/{token}", previewHandler(cfg))
	})

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(cfg.Tokens, cfg.Logger))
		r.Use(RateLimit(cfg.RateLimit, time.Minute))

		r.Get("/session", sessionStateHandler(cfg))
		r.Post("/session/file", selectFileHandler(cfg))
		r.Delete("/session/file", discardFileHandler(cfg))
		r.Put("/session/boundaries", setBoundariesHandler(cfg))
		r.Post("/session/boundaries/capture", captureBoundaryHandler(cfg))
		r.Post("/session/clips", addClipHandler(cfg))
		r.Delete("/session/clips", clearClipsHandler(cfg))
		r.Delete("/session/clips/{index}", removeClipHandler(cfg))
		r.Post("/session/trim", trimHandler(cfg))

		r.Get("/handoff", handoffHandler(cfg))
		r.Get("/history", historyHandler(cfg))
		r.Post("/export/edl", exportEDLHandler(cfg))

		r.Post("/assistant/chat", chatHandler(cfg))
		r.Get("/assistant/log", chatLogHandler(cfg))
		r.Post("/story/generate", storyHandler(cfg))
	})

	return r
}

func healthHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uptime := int64(time.Since(cfg.StartTime).Seconds())
		WriteJSON(w, http.StatusOK, HealthResponse{
			Status:   "ok",
			Version:  Version,
			UptimeS:  uptime,
			DeviceID: cfg.DeviceID,
		})
	}
}

func previewHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := chi.URLParam(r, "token")
		if err := cfg.Previews.ServeHandle(w, r, token); err != nil {
			cfg.Logger.Error("preview error", "error", err)
		}
	}
}

func sessionStateHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, cfg.Session.State())
	}
}

func selectFileHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SelectFileRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		err := cfg.Session.SelectFile(workflow.LocalFile{Path: req.Path, Name: req.Name})
		switch {
		case err == nil:
		case errors.Is(err, workflow.ErrNoFile), errors.Is(err, workflow.ErrSubmitPending), errors.Is(err, workflow.ErrClosed):
			writeWorkflowError(w, err)
			return
		default:
			WriteError(w, http.StatusBadRequest, err.Error(), "INVALID_FILE")
			return
		}

		WriteJSON(w, http.StatusAccepted, cfg.Session.State())
	}
}

func discardFileHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := cfg.Session.DiscardFile(); err != nil {
			writeWorkflowError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func setBoundariesHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req BoundariesRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		fields := []struct {
			b    workflow.Boundary
			text *string
		}{
			{workflow.BoundaryStart, req.Start},
			{workflow.BoundaryEnd, req.End},
		}
		for _, f := range fields {
			if f.text == nil {
				continue
			}
			if err := cfg.Session.SetBoundary(f.b, *f.text); err != nil {
				writeWorkflowError(w, err)
				return
			}
		}

		WriteJSON(w, http.StatusOK, cfg.Session.State())
	}
}

func captureBoundaryHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CaptureRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		b, err := workflow.ParseBoundary(req.Field)
		if err != nil {
			WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
			return
		}
		if err := cfg.Session.CaptureBoundary(b, req.Position); err != nil {
			writeWorkflowError(w, err)
			return
		}

		WriteJSON(w, http.StatusOK, cfg.Session.State())
	}
}

func addClipHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clip, err := cfg.Session.AddClip()
		if err != nil {
			writeWorkflowError(w, err)
			return
		}
		WriteJSON(w, http.StatusCreated, AddClipResponse{
			Clip:  clip,
			Clips: cfg.Session.State().Clips,
		})
	}
}

func removeClipHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		index, err := strconv.Atoi(chi.URLParam(r, "index"))
		if err != nil {
			WriteError(w, http.StatusBadRequest, "index must be an integer", "BAD_REQUEST")
			return
		}

		removed, err := cfg.Session.RemoveClip(index)
		if err != nil {
			writeWorkflowError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, RemoveClipResponse{
			Removed: removed,
			Clips:   cfg.Session.State().Clips,
		})
	}
}

func clearClipsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := cfg.Session.ClearClips(); err != nil {
			writeWorkflowError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func trimHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// The trim runs to completion even if the caller goes away so the
		// handoff and history stay consistent with the remote side.
		ctx := context.WithoutCancel(r.Context())

		result, err := cfg.Session.SubmitTrim(ctx)
		if err != nil {
			writeWorkflowError(w, err)
			return
		}
		if result == nil {
			result = workflow.TrimResult{}
		}
		WriteJSON(w, http.StatusOK, TrimResponse{Clips: result, Stage: cfg.Session.State().Stage})
	}
}

func handoffHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload, ok, err := cfg.Handoff.Read(r.Context())
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to read handoff", "INTERNAL_ERROR")
			return
		}
		if !ok {
			WriteJSON(w, http.StatusOK, HandoffResponse{Present: false})
			return
		}
		WriteJSON(w, http.StatusOK, HandoffResponse{Present: true, Payload: &payload})
	}
}

func historyHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := HistoryResponse{Trims: []*history.Trim{}}
		if cfg.History == nil {
			WriteJSON(w, http.StatusOK, resp)
			return
		}

		limit := 50
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				WriteError(w, http.StatusBadRequest, "limit must be a positive integer", "BAD_REQUEST")
				return
			}
			limit = n
		}

		trims, err := cfg.History.ListTrims(r.Context(), limit)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to list trims", "INTERNAL_ERROR")
			return
		}
		if trims != nil {
			resp.Trims = trims
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

// writeWorkflowError maps session errors onto the error envelope. Closed
// gates are reported as 409 so clients can grey out the action.
func writeWorkflowError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, workflow.ErrInvalidRange), errors.Is(err, workflow.ErrTrimDisabled):
		WriteError(w, http.StatusConflict, err.Error(), "ACTION_DISABLED")
	case errors.Is(err, workflow.ErrSubmitPending):
		WriteError(w, http.StatusConflict, err.Error(), "TRIM_PENDING")
	case errors.Is(err, workflow.ErrNoFile), errors.Is(err, workflow.ErrUnknownBoundary):
		WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
	case errors.Is(err, workflow.ErrClosed):
		WriteError(w, http.StatusServiceUnavailable, err.Error(), "SESSION_CLOSED")
	default:
		WriteError(w, http.StatusBadGateway, err.Error(), "TRIM_FAILED")
	}
}
