//go:build unix

package service

import (
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
)

type reloadNotifier struct {
	sigCh chan os.Signal
	fns   []func()
}

func newReloadNotifier(logger *zap.Logger, scheduler *Scheduler) reloadNotifier {
	return reloadNotifier{
		sigCh: make(chan os.Signal, 1),
		fns: []func(){
			func() {
				logger.Info("Received SIGUSR1, scheduling rebuild")
				scheduler.Trigger()
			},
		},
	}
}

func (rn *reloadNotifier) start() {
	if len(rn.fns) == 0 {
		return
	}
	signal.Notify(rn.sigCh, syscall.SIGUSR1)
	go func() {
		for range rn.sigCh {
			for _, fn := range rn.fns {
				fn()
			}
		}
	}()
}

func (rn *reloadNotifier) stop() {
	if len(rn.fns) == 0 {
		return
	}
	signal.Stop(rn.sigCh)
	close(rn.sigCh)
}
