package ollama

import (
	"context"
	"os"
	"sync/atomic"
)

// Metrics tracks request counts and failure classes for one client. Each
// client owns its own counters, so a probe client's attempts do not pollute
// the run client's numbers; share a client to share counters.
type Metrics struct {
	requests      uint64
	retries       uint64
	timeouts      uint64
	transporterrs uint64
	httperrs      uint64
	fallbacks     uint64
	successes     uint64
}

func (m *Metrics) request()  { atomic.AddUint64(&m.requests, 1) }
func (m *Metrics) retry()    { atomic.AddUint64(&m.retries, 1) }
func (m *Metrics) httpErr()  { atomic.AddUint64(&m.httperrs, 1) }
func (m *Metrics) fallback() { atomic.AddUint64(&m.fallbacks, 1) }
func (m *Metrics) success()  { atomic.AddUint64(&m.successes, 1) }

func (m *Metrics) transportErr(err error) {
	if isTimeout(err) {
		atomic.AddUint64(&m.timeouts, 1)
		return
	}
	atomic.AddUint64(&m.transporterrs, 1)
}

func isTimeout(err error) bool {
	if err == context.DeadlineExceeded {
		return true
	}
	type timeout interface {
		Timeout() bool
	}
	if te, ok := err.(timeout); ok {
		return te.Timeout()
	}
	if os.IsTimeout(err) {
		return true
	}
	return false
}

// MetricsSnapshot is a by-value snapshot of requested metrics
type MetricsSnapshot struct {
	Requests      uint64
	Retries       uint64
	Timeouts      uint64
	TransportErrs uint64
	HTTPErrs      uint64
	Fallbacks     uint64
	Successes     uint64
}

// Read returns the current counts and optionally clears them
func (m *Metrics) Read(clear bool) MetricsSnapshot {
	if clear {
		return MetricsSnapshot{
			Requests:      atomic.SwapUint64(&m.requests, 0),
			Retries:       atomic.SwapUint64(&m.retries, 0),
			Timeouts:      atomic.SwapUint64(&m.timeouts, 0),
			TransportErrs: atomic.SwapUint64(&m.transporterrs, 0),
			HTTPErrs:      atomic.SwapUint64(&m.httperrs, 0),
			Fallbacks:     atomic.SwapUint64(&m.fallbacks, 0),
			Successes:     atomic.SwapUint64(&m.successes, 0),
		}
	}

	return MetricsSnapshot{
		Requests:      atomic.LoadUint64(&m.requests),
		Retries:       atomic.LoadUint64(&m.retries),
		Timeouts:      atomic.LoadUint64(&m.timeouts),
		TransportErrs: atomic.LoadUint64(&m.transporterrs),
		HTTPErrs:      atomic.LoadUint64(&m.httperrs),
		Fallbacks:     atomic.LoadUint64(&m.fallbacks),
		Successes:     atomic.LoadUint64(&m.successes),
	}
}
