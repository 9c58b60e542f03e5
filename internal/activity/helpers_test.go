package activity

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/actionsum/tasktrack/pkg/window"
)

type fakeTicker struct {
	c chan time.Time

	mu      sync.Mutex
	stopped bool
}

func (f *fakeTicker) C() <-chan time.Time { return f.c }

func (f *fakeTicker) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = true
}

func (f *fakeTicker) isStopped() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stopped
}

type fakeTickers struct {
	mu      sync.Mutex
	tickers []*fakeTicker
}

func (f *fakeTickers) New(time.Duration) Ticker {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := &fakeTicker{c: make(chan time.Time)}
	f.tickers = append(f.tickers, t)
	return t
}

func (f *fakeTickers) latest() *fakeTicker {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.tickers) == 0 {
		return nil
	}
	return f.tickers[len(f.tickers)-1]
}

func (f *fakeTickers) get(i int) *fakeTicker {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tickers[i]
}

func (f *fakeTickers) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.tickers)
}

// fire delivers one tick to the ticker's loop goroutine.
func fire(t *testing.T, ft *fakeTicker) {
	t.Helper()
	select {
	case ft.c <- time.Now():
	case <-time.After(2 * time.Second):
		t.Fatal("tick was not consumed")
	}
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Add(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fakeFocus struct {
	mu    sync.Mutex
	info  *window.WindowInfo
	err   error
	gate  chan struct{}
	calls int32
}

func (f *fakeFocus) GetFocusedWindow() (*window.WindowInfo, error) {
	atomic.AddInt32(&f.calls, 1)
	f.mu.Lock()
	gate := f.gate
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.info, f.err
}

func (f *fakeFocus) block() chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gate = make(chan struct{})
	return f.gate
}

type fakeScreens struct {
	calls int32
	shots []window.Screenshot
	err   error
}

func (f *fakeScreens) CaptureScreens() ([]window.Screenshot, error) {
	atomic.AddInt32(&f.calls, 1)
	return f.shots, f.err
}

func (f *fakeScreens) count() int {
	return int(atomic.LoadInt32(&f.calls))
}

type submitted struct {
	block *Block
	score ActivityScore
}

type recordingSink struct {
	mu     sync.Mutex
	blocks []submitted
	hours  []float64
}

func (r *recordingSink) Submit(b *Block, score ActivityScore) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.blocks = append(r.blocks, submitted{block: b, score: score})
}

func (r *recordingSink) UpdateHours(taskID int64, hours float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hours = append(r.hours, hours)
}

func (r *recordingSink) submissions() []submitted {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]submitted(nil), r.blocks...)
}

func (r *recordingSink) hourUpdates() []float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]float64(nil), r.hours...)
}

type recordingObserver struct {
	mu    sync.Mutex
	stats []LiveStats
}

func (o *recordingObserver) Notify(s LiveStats) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.stats = append(o.stats, s)
}

func (o *recordingObserver) all() []LiveStats {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]LiveStats(nil), o.stats...)
}

type fakeSubmitter struct {
	mu      sync.Mutex
	records []*Record
	fail    map[int]bool
	calls   int
}

var errBackendDown = errors.New("connection refused")

func (f *fakeSubmitter) SubmitBlock(ctx context.Context, rec *Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	call := f.calls
	f.calls++
	if f.fail[call] {
		return errBackendDown
	}
	f.records = append(f.records, rec)
	return nil
}

func (f *fakeSubmitter) delivered() []*Record {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*Record(nil), f.records...)
}

type fakeHours struct {
	mu    sync.Mutex
	err   error
	calls map[int64]float64
}

func (f *fakeHours) UpdateActualHours(ctx context.Context, taskID int64, hours float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = make(map[int64]float64)
	}
	f.calls[taskID] = hours
	return f.err
}

type fakeMetrics struct {
	delivered   int32
	dropped     int32
	hoursFailed int32
}

func (m *fakeMetrics) BlockDelivered(context.Context, ActivityScore) { atomic.AddInt32(&m.delivered, 1) }
func (m *fakeMetrics) BlockDropped(context.Context, string)          { atomic.AddInt32(&m.dropped, 1) }
func (m *fakeMetrics) HoursUpdateFailed(context.Context)             { atomic.AddInt32(&m.hoursFailed, 1) }

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

type harness struct {
	session  *Session
	tickers  *fakeTickers
	clock    *fakeClock
	focus    *fakeFocus
	screens  *fakeScreens
	sink     *recordingSink
	observer *recordingObserver
}

func newHarness(slot int) *harness {
	h := &harness{
		tickers: &fakeTickers{},
		clock:   newFakeClock(),
		focus:   &fakeFocus{info: &window.WindowInfo{AppName: "code", WindowTitle: "main.go - editor"}},
		screens: &fakeScreens{shots: []window.Screenshot{
			{Screen: 0},
			{Screen: 1, PNG: []byte("png-bytes")},
		}},
		sink:     &recordingSink{},
		observer: &recordingObserver{},
	}

	rec := NewRecorder(NewWindowSampler(h.focus), NewScreenshotPicker(h.screens), func(int) int { return slot })
	h.session = NewSession(SessionConfig{
		MinuteInterval: time.Minute,
		Scorer:         NewScorer(1000),
		NewTicker:      h.tickers.New,
		Now:            h.clock.Now,
	}, rec, h.sink, h.observer)
	return h
}

// tick fires the current ticker and waits until the session has recorded
// the minute or rolled over to a new block.
func (h *harness) tick(t *testing.T) {
	t.Helper()
	before := h.session.Status()
	fire(t, h.tickers.latest())
	waitFor(t, "minute to be recorded", func() bool {
		st := h.session.Status()
		return st.BlockID != before.BlockID || st.MinuteIndex != before.MinuteIndex
	})
}

func (h *harness) ticks(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		h.tick(t)
	}
}
