package core

import "context"

// ShutdownFunc is the signature for cleanup handlers run during graceful
// shutdown. The context carries the shutdown deadline; handlers should
// return promptly once it is done.
type ShutdownFunc func(ctx context.Context) error
