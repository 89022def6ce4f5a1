package reconcile

import "sync/atomic"

// RunLock rejects overlapping runs within one process without blocking.
// Runs from separate processes are not coordinated.
type RunLock struct {
	state atomic.Int32 // 0 = idle, 1 = running
}

// TryAcquire reports whether the caller may start a run
func (l *RunLock) TryAcquire() bool {
	return l.state.CompareAndSwap(0, 1)
}

// Release ends the run started by a successful TryAcquire
func (l *RunLock) Release() {
	l.state.Store(0)
}

// Held reports whether a run is in progress
func (l *RunLock) Held() bool {
	return l.state.Load() == 1
}
