package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sakif/docrunner/internal/apperror"
	"github.com/sakif/docrunner/internal/executor"
	"github.com/sakif/docrunner/internal/playground"
)

// ExecuteHandler runs code on the remote playground outside of a page
// session, for scripts and clients without a socket.
type ExecuteHandler struct {
	svc     executor.Service
	timeout time.Duration
	logger  *slog.Logger
}

// NewExecuteHandler creates a new ExecuteHandler. A non-positive timeout
// means executor.DefaultTimeout.
func NewExecuteHandler(svc executor.Service, timeout time.Duration, logger *slog.Logger) *ExecuteHandler {
	if timeout <= 0 {
		timeout = executor.DefaultTimeout
	}
	return &ExecuteHandler{
		svc:     svc,
		timeout: timeout,
		logger:  logger,
	}
}

// ExecuteRequest is the body of POST /api/execute.
type ExecuteRequest struct {
	Code string `json:"code"`
}

// HandleExecute sends a snippet to the playground and returns its result.
// The release channel is picked from the code the same way page blocks do.
//
// HTTP: POST /api/execute
// REQUEST BODY: {"code": "fn main() { println!(\"hi\"); }"}
// RESPONSE:     {"success": true, "stdout": "hi\n", "stderr": ""}
func (h *ExecuteHandler) HandleExecute(w http.ResponseWriter, r *http.Request) {
	var body ExecuteRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.logger.Warn("invalid execution request body", slog.String("error", err.Error()))
		writeError(w, apperror.ValidationFailed("body", "invalid JSON body"))
		return
	}

	if strings.TrimSpace(body.Code) == "" {
		writeError(w, apperror.ValidationFailed("code", "code cannot be empty"))
		return
	}

	req := playground.BuildRequest(body.Code)
	h.logger.Info("executing code snippet", slog.String("channel", req.Channel))

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	result, err := h.svc.Execute(ctx, req)
	if err != nil {
		h.logger.Error("code execution failed",
			slog.String("category", apperror.Category(err)),
			slog.String("error", err.Error()))
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// CratesResponse is the body of GET /api/crates.
type CratesResponse struct {
	Crates []string `json:"crates"`
}

// HandleCrates lists the external crates the playground can link against.
//
// HTTP: GET /api/crates
func (h *ExecuteHandler) HandleCrates(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	manifest, err := h.svc.Crates(ctx)
	if err != nil {
		h.logger.Error("dependency manifest unavailable", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, CratesResponse{Crates: manifest.IDs()})
}
