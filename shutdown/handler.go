package shutdown

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pixstu_backend/core"
	"pixstu_backend/logging"
)

// Handler ties signal delivery to context cancellation and the cleanup
// registry. One interrupt cancels the context so the generation loop can
// unwind; a second interrupt exits immediately.
type Handler struct {
	logger   *logging.Logger
	timeout  time.Duration
	ctx      context.Context
	cancel   context.CancelFunc
	registry *Registry
	signals  *SignalCounter
	sigChan  chan os.Signal
}

// NewHandler creates a Handler wrapping parent. The timeout bounds how long
// cleanup may take once shutdown begins; zero means 30 seconds.
func NewHandler(parent context.Context, logger *logging.Logger, timeout time.Duration) *Handler {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithCancel(parent)
	h := &Handler{
		logger:   logger,
		timeout:  timeout,
		ctx:      ctx,
		cancel:   cancel,
		registry: NewRegistry(),
		sigChan:  make(chan os.Signal, 1),
	}
	h.signals = NewSignalCounter(2, func() {
		logger.Warnw("second interrupt received, forcing exit",
			"code", core.ExitCodeSIGINT, "meaning", core.ExitCodeName(core.ExitCodeSIGINT))
		os.Exit(core.ExitCodeSIGINT)
	})
	return h
}

// Context returns the context cancelled on the first interrupt. Long-running
// work should run under it.
func (h *Handler) Context() context.Context {
	return h.ctx
}

// Register adds a cleanup function run during Finish. Lower priorities run
// first.
func (h *Handler) Register(name string, priority int, fn core.ShutdownFunc) {
	h.registry.Register(name, priority, fn)
}

// Start begins listening for SIGINT and SIGTERM.
func (h *Handler) Start() {
	signal.Notify(h.sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		for sig := range h.sigChan {
			if h.signals.Increment() == 1 {
				h.logger.Warnw("interrupt received, cancelling work", "signal", sig.String())
				h.cancel()
			}
		}
	}()
}

// Interrupted reports whether a shutdown signal has been received.
func (h *Handler) Interrupted() bool {
	return h.signals.Count() > 0
}

// Finish stops signal delivery and runs the cleanup registry under the
// shutdown timeout. Errors are logged, not returned; cleanup failures should
// not mask the run's own exit status.
func (h *Handler) Finish() {
	signal.Stop(h.sigChan)
	h.cancel()

	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()
	for _, err := range h.registry.Run(ctx) {
		h.logger.Warnw("cleanup failed", "error", err)
	}
}
