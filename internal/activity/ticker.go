package activity

import (
	"sync"
	"time"
)

// Ticker is the recurring timer driving the minute tick.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// TickerFactory creates a Ticker firing every d.
type TickerFactory func(d time.Duration) Ticker

type timeTicker struct {
	t *time.Ticker
}

// NewTimeTicker wraps time.NewTicker.
func NewTimeTicker(d time.Duration) Ticker {
	return &timeTicker{t: time.NewTicker(d)}
}

func (t *timeTicker) C() <-chan time.Time { return t.t.C }
func (t *timeTicker) Stop()               { t.t.Stop() }

// tickHandle is the cancellable handle for one run of the minute tick.
// Cancel stops the underlying ticker and ends the loop goroutine.
type tickHandle struct {
	ticker Ticker
	stop   chan struct{}
	once   sync.Once
}

func newTickHandle(t Ticker) *tickHandle {
	return &tickHandle{
		ticker: t,
		stop:   make(chan struct{}),
	}
}

// Cancel is idempotent and safe from any goroutine, including the loop itself.
func (h *tickHandle) Cancel() {
	h.once.Do(func() {
		h.ticker.Stop()
		close(h.stop)
	})
}

// Cancelled reports whether Cancel has been called.
func (h *tickHandle) Cancelled() bool {
	select {
	case <-h.stop:
		return true
	default:
		return false
	}
}

// run invokes onTick for every tick until it returns false or the handle is
// cancelled.
func (h *tickHandle) run(onTick func() bool) {
	for {
		select {
		case <-h.stop:
			return
		case <-h.ticker.C():
			if h.Cancelled() {
				return
			}
			if !onTick() {
				h.Cancel()
				return
			}
		}
	}
}
