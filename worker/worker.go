package worker

import (
	"context"
)

// Worker a background job. Run blocks until the context is cancelled.
type Worker interface {
	Run(ctx context.Context) error
}
