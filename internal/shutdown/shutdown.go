package shutdown

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
)

func CreateGracefulShutdownChannel() chan os.Signal {
	gracefulShutdown := make(chan os.Signal, 1)
	signal.Notify(gracefulShutdown, syscall.SIGTERM, syscall.SIGINT)

	return gracefulShutdown
}

// ContextWithShutdown returns a context cancelled when SIGTERM or SIGINT
// arrives on signalChan. The returned stop func releases the watcher.
func ContextWithShutdown(parent context.Context, signalChan chan os.Signal, l *zap.Logger) (context.Context, func()) {
	ctx, cancel := context.WithCancel(parent)
	done := make(chan struct{})

	go func() {
		select {
		case sig := <-signalChan:
			l.Sugar().Infof("caught signal %v, aborting", sig)
			cancel()
		case <-done:
		}
	}()

	return ctx, func() {
		signal.Stop(signalChan)
		close(done)
		cancel()
	}
}
