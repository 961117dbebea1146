// Package remote implements executor.Service against an HTTP playground
// service (the play.rust-lang.org API shape).
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/sakif/docrunner/internal/apperror"
	"github.com/sakif/docrunner/internal/executor"
	"github.com/sakif/docrunner/internal/model"
)

const maxResponseSize = 4 * 1024 * 1024

var _ executor.Service = (*Client)(nil)

// Config holds the remote service settings.
type Config struct {
	// BaseURL is the service root, e.g. https://play.rust-lang.org.
	BaseURL string
	// Timeout bounds each call, end to end.
	Timeout time.Duration
}

// Client talks to the remote playground service.
type Client struct {
	baseURL string
	timeout time.Duration
	http    *http.Client
	logger  *slog.Logger
}

// New creates a Client. A zero Timeout means executor.DefaultTimeout.
func New(cfg Config, logger *slog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = executor.DefaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		timeout: timeout,
		// The per-call context carries the deadline; the client only needs
		// to not outlive it.
		http:   &http.Client{Timeout: timeout + time.Second},
		logger: logger,
	}
}

type cratesResponse struct {
	Crates []struct {
		ID string `json:"id"`
	} `json:"crates"`
}

// Crates fetches the dependency manifest: GET {base}/meta/crates.
func (c *Client) Crates(ctx context.Context) (model.DependencyManifest, error) {
	var body cratesResponse
	if err := c.do(ctx, http.MethodGet, "/meta/crates", nil, &body); err != nil {
		return model.DependencyManifest{}, fmt.Errorf("remote: crates: %w", err)
	}

	ids := make([]string, 0, len(body.Crates))
	for _, crate := range body.Crates {
		if crate.ID != "" {
			ids = append(ids, crate.ID)
		}
	}
	c.logger.Debug("dependency manifest fetched", slog.Int("crates", len(ids)))
	return model.NewDependencyManifest(ids...), nil
}

// Execute sends code for evaluation: POST {base}/evaluate.json.
func (c *Client) Execute(ctx context.Context, req model.ExecutionRequest) (*model.ExecutionResult, error) {
	start := time.Now()

	var result model.ExecutionResult
	if err := c.do(ctx, http.MethodPost, "/evaluate.json", req, &result); err != nil {
		c.logger.Warn("evaluation failed",
			slog.String("channel", req.Channel),
			slog.Duration("duration", time.Since(start)),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("remote: evaluate: %w", err)
	}

	c.logger.Info("evaluation completed",
		slog.String("channel", req.Channel),
		slog.Bool("success", result.Success),
		slog.Duration("duration", time.Since(start)),
	)
	return &result, nil
}

// do performs one JSON exchange under the client's bounded wait and maps
// every failure onto the apperror taxonomy.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return apperror.Communication("encode", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return apperror.Communication("request", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if isTimeout(ctx, err) {
			return apperror.Timeout(strings.TrimPrefix(path, "/"))
		}
		return apperror.Communication("network", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		var cause error
		if text := strings.TrimSpace(string(snippet)); text != "" {
			cause = errors.New(text)
		}
		return apperror.Communication(fmt.Sprintf("status %d", resp.StatusCode), cause)
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(out); err != nil {
		if isTimeout(ctx, err) {
			return apperror.Timeout(strings.TrimPrefix(path, "/"))
		}
		return apperror.Communication("decode", err)
	}
	return nil
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
