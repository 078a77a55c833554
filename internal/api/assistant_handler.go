package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/clipdesk/clipdesk-agent/internal/chat"
)

func chatHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cfg.Chat == nil {
			WriteError(w, http.StatusServiceUnavailable, "assistant not configured", "UNAVAILABLE")
			return
		}

		var req ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		entry, err := cfg.Chat.Send(r.Context(), req.Message)
		switch {
		case errors.Is(err, chat.ErrEmptyMessage):
			WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
		case err != nil:
			// The error entry is already in the log for the client to show.
			WriteError(w, http.StatusBadGateway, entry.Text, "ASSISTANT_FAILED")
		default:
			WriteJSON(w, http.StatusOK, entry)
		}
	}
}

func chatLogHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := ChatLogResponse{Entries: []chat.Entry{}}
		if cfg.Chat != nil {
			if entries := cfg.Chat.Log().Entries(); entries != nil {
				resp.Entries = entries
			}
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func storyHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cfg.Chat == nil {
			WriteError(w, http.StatusServiceUnavailable, "assistant not configured", "UNAVAILABLE")
			return
		}

		var req StoryRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		story, err := cfg.Chat.Story(r.Context(), req.Text, req.Format)
		switch {
		case errors.Is(err, chat.ErrEmptyMessage):
			WriteError(w, http.StatusBadRequest, "text is required", "BAD_REQUEST")
		case err != nil:
			WriteError(w, http.StatusBadGateway, "story generation failed", "ASSISTANT_FAILED")
		default:
			WriteJSON(w, http.StatusOK, StoryResponse{Story: story})
		}
	}
}
