//go:build !unix

package service

import "go.uber.org/zap"

type reloadNotifier struct{}

func newReloadNotifier(_ *zap.Logger, _ *Scheduler) reloadNotifier {
	return reloadNotifier{}
}

func (*reloadNotifier) start() {}
func (*reloadNotifier) stop()  {}
