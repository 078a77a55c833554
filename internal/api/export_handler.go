package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/clipdesk/clipdesk-agent/internal/export"
)

// exportEDLHandler writes an edit list for the request's clips, or for the
// current queue when none are given. Clips always refer to the session's
// local source file.
func exportEDLHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req export.ExportRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		if req.Format != "" && strings.ToLower(req.Format) != "edl" {
			WriteError(w, http.StatusBadRequest, "format must be edl", "BAD_REQUEST")
			return
		}

		if err := export.ValidateFrameRate(req.FrameRate); err != nil {
			WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
			return
		}

		outputDir := req.OutputDir
		if outputDir == "" {
			outputDir = cfg.ExportDir
		}
		if err := export.ValidateOutputDir(outputDir); err != nil {
			WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
			return
		}

		state := cfg.Session.State()
		if state.FilePath == "" {
			WriteError(w, http.StatusConflict, "no source file selected", "ACTION_DISABLED")
			return
		}

		inputs := req.Clips
		if len(inputs) == 0 {
			for _, c := range state.Clips {
				inputs = append(inputs, export.ClipInput{Start: c.Start, End: c.End})
			}
		}

		clips, err := export.Resolve(inputs, state.FilePath)
		switch {
		case errors.Is(err, export.ErrNoClips):
			WriteError(w, http.StatusConflict, err.Error(), "ACTION_DISABLED")
			return
		case err != nil:
			WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
			return
		}

		projectName := export.ProjectName(req.ProjectName, state.FilePath)
		frameRate := req.FrameRate
		if frameRate <= 0 {
			frameRate = export.DefaultFrameRate
		}

		edl := export.GenerateEDL(clips, projectName, frameRate)
		outputPath, err := export.WriteEDL(outputDir, projectName, edl)
		if err != nil {
			cfg.Logger.Error("edl export failed", "error", err)
			WriteError(w, http.StatusInternalServerError, "failed to write export file", "INTERNAL_ERROR")
			return
		}

		WriteJSON(w, http.StatusOK, export.ExportResponse{
			Status:     "ok",
			Format:     "edl",
			OutputPath: outputPath,
			ClipCount:  len(clips),
		})
	}
}
