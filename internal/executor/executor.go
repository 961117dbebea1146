// Package executor declares the boundary with the remote compile-and-execute service.
package executor

import (
	"context"
	"time"

	"github.com/sakif/docrunner/internal/model"
)

// DefaultTimeout bounds how long a page waits for an execution result.
const DefaultTimeout = 15 * time.Second

// Executor runs code on the remote service.
//
// A compile or runtime failure comes back as a result with Success false. An
// error means the exchange itself failed: it wraps apperror.ErrTimeout when
// the bounded wait expired and apperror.ErrCommunication otherwise.
type Executor interface {
	Execute(ctx context.Context, req model.ExecutionRequest) (*model.ExecutionResult, error)
}

// Catalog reports which external dependencies the service can link against.
type Catalog interface {
	Crates(ctx context.Context) (model.DependencyManifest, error)
}

// Service is the full remote surface a page session needs.
type Service interface {
	Executor
	Catalog
}
