// Package shutdown turns termination signals into context cancellation.
package shutdown

import (
	"context"
	"os"
	"os/signal"
	"sync"

	"voxpaste/log"
)

// Context returns a context canceled by the first termination signal. A
// second signal exits the process at once, for a shutdown stuck on a hung
// device or model call.
func Context(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	ch := make(chan os.Signal, 2)
	stopped := make(chan struct{})
	Notify(ch)

	go func() {
		select {
		case sig := <-ch:
			log.Infof("received %v, shutting down", sig)
			cancel()
		case <-stopped:
			return
		}
		select {
		case <-ch:
			log.Warn("second signal, exiting immediately")
			log.Close()
			os.Exit(130)
		case <-stopped:
		}
	}()

	var once sync.Once
	return ctx, func() {
		once.Do(func() {
			signal.Stop(ch)
			close(stopped)
			cancel()
		})
	}
}
