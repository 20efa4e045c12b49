package app

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/agentstation/graphmerge/pkg/constants"
)

// ContextWithSignals creates a context that is cancelled when the application
// receives an interrupt or termination signal, or when constants.CommandTimeout
// elapses. A cancelled run leaves the identity table untouched.
func ContextWithSignals(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	ctx, cancel := context.WithTimeout(ctx, constants.CommandTimeout)
	return ctx, func() {
		cancel()
		stop()
	}
}
