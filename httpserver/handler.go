package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/ruteri/blob-encryption-service/pipeline"
)

const (
	// ConfPathParam is the query parameter (and JSON body field) naming the
	// configuration object.
	ConfPathParam = "conf_path"

	// maxBodySize is the maximum allowed request body size (1MB).
	maxBodySize = 1024 * 1024
)

// Runner runs one pipeline invocation.
type Runner interface {
	Run(ctx context.Context, confPath string) pipeline.Outcome
}

// EncryptionRequest is the POST /encryption body.
type EncryptionRequest struct {
	ConfPath string `json:"conf_path"`
}

// Handler processes encryption trigger requests.
type Handler struct {
	runner Runner
	log    *slog.Logger
}

// NewHandler creates a new HTTP request handler running invocations on runner.
func NewHandler(runner Runner, log *slog.Logger) *Handler {
	return &Handler{
		runner: runner,
		log:    log,
	}
}

// HandleEncryption runs the pipeline for the configuration path given in the
// conf_path query parameter (GET) or JSON body field (POST).
//
// Response: {"message": ...} with 200 on success, {"error": ...} with 400 for
// an unusable configuration path and 500 for every other failure.
func (h *Handler) HandleEncryption(w http.ResponseWriter, r *http.Request) {
	confPath := r.URL.Query().Get(ConfPathParam)

	if r.Method == http.MethodPost {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
		if err != nil {
			h.log.Error("Failed to read request body", "err", err)
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("Failed to read request body: %v", err)})
			return
		}

		if len(body) > 0 {
			var req EncryptionRequest
			if err := json.Unmarshal(body, &req); err != nil {
				h.log.Error("Failed to parse request body", "err", err)
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("Invalid request body: %v", err)})
				return
			}
			if req.ConfPath != "" {
				confPath = req.ConfPath
			}
		}
	}

	h.log.Info("Reading config file from path", slog.String("conf_path", confPath))

	outcome := h.runner.Run(r.Context(), confPath)
	writeJSON(w, outcome.Status, outcome.Body())
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
