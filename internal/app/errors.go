package service

import (
	"fmt"

	"github.com/okian/followup/internal/adapters/mq/queue"
)

// Sentinel error kinds for this package.
var (
	// ErrNotStarted is a queue.ErrClosed: nothing accepts events yet.
	ErrNotStarted = fmt.Errorf("service not started: %w", queue.ErrClosed)
)
