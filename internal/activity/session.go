package activity

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"
)

// State is the tracking lifecycle state.
type State int

const (
	StateIdle State = iota
	StateTracking
	StatePaused
	StateStopped
)

var stateNames = map[State]string{
	StateIdle:     "idle",
	StateTracking: "tracking",
	StatePaused:   "paused",
	StateStopped:  "stopped",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", int(s))
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(text []byte) error {
	name := strings.ToLower(string(text))
	for st, n := range stateNames {
		if n == name {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown tracking state %q", text)
}

// ErrInvalidTransition is wrapped by every rejected lifecycle command.
var ErrInvalidTransition = errors.New("invalid state transition")

// ErrShutdown is returned by Start and Resume once Shutdown has begun.
var ErrShutdown = errors.New("session is shut down")

// TransitionError reports a lifecycle command issued from a state that does
// not allow it.
type TransitionError struct {
	Op   string
	From State
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s while %s", e.Op, e.From)
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}

// Sink receives finalized blocks and hour updates. Implementations must not
// block the caller: Submit runs with the session lock held.
type Sink interface {
	Submit(b *Block, score ActivityScore)
	UpdateHours(taskID int64, hours float64)
}

// SessionConfig holds the session's timing and scoring knobs.
type SessionConfig struct {
	MinuteInterval time.Duration
	Scorer         Scorer
	NewTicker      TickerFactory
	Now            func() time.Time
}

// Status is a point-in-time view of the session.
type Status struct {
	State           State          `json:"state"`
	ProjectID       int64          `json:"projectId,omitempty"`
	TaskID          int64          `json:"taskId,omitempty"`
	MouseTotal      int            `json:"mouse"`
	KeyboardTotal   int            `json:"keyboard"`
	BlockID         string         `json:"blockId,omitempty"`
	MinuteIndex     int            `json:"minuteIndex"`
	RecordedMinutes int            `json:"recordedMinutes"`
	ScreenshotSlot  int            `json:"screenshotSlot"`
	LastScore       *ActivityScore `json:"lastScore,omitempty"`
	ElapsedHours    float64        `json:"elapsedHours"`
	ActualHours     float64        `json:"actualHours"`
}

// Session is the tracking state machine. One mutex guards the state, the
// input counter and the current block; collaborator queries and deliveries
// run outside it.
type Session struct {
	cfg      SessionConfig
	rec      *Recorder
	sink     Sink
	observer Observer

	// loops counts live minute-tick goroutines. Add only happens under mu
	// and never after closed is set.
	loops sync.WaitGroup

	mu           sync.Mutex
	closed       bool
	state        State
	sc           SessionContext
	counter      InputCounter
	tick         *tickHandle
	elapsed      time.Duration
	runningSince time.Time
	lastScore    *ActivityScore
}

func NewSession(cfg SessionConfig, rec *Recorder, sink Sink, observer Observer) *Session {
	if cfg.MinuteInterval <= 0 {
		cfg.MinuteInterval = time.Minute
	}
	if cfg.Scorer.MaxExpectedInput <= 0 {
		cfg.Scorer = NewScorer(DefaultMaxExpectedInput)
	}
	if cfg.NewTicker == nil {
		cfg.NewTicker = NewTimeTicker
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if observer == nil {
		observer = Observers(nil)
	}
	return &Session{
		cfg:      cfg,
		rec:      rec,
		sink:     sink,
		observer: observer,
		state:    StateIdle,
	}
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Start begins tracking sc from Idle or Stopped.
func (s *Session) Start(sc SessionContext) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrShutdown
	}
	if s.state != StateIdle && s.state != StateStopped {
		from := s.state
		s.mu.Unlock()
		return &TransitionError{Op: "start", From: from}
	}

	now := s.cfg.Now()
	s.sc = sc
	s.counter.Reset()
	s.elapsed = 0
	s.runningSince = now
	s.lastScore = nil
	s.state = StateTracking
	b := s.rec.Begin(sc, now)
	s.startTickLocked()
	totals := s.counter.Totals()
	s.mu.Unlock()

	log.Printf("Tracking started: project=%d task=%d block=%s", sc.ProjectID, sc.TaskID, b.ID)
	s.observer.Notify(totals)
	return nil
}

// Pause suspends sampling. The partial block is kept, not finalized.
func (s *Session) Pause() error {
	s.mu.Lock()
	if s.state != StateTracking {
		from := s.state
		s.mu.Unlock()
		return &TransitionError{Op: "pause", From: from}
	}

	s.state = StatePaused
	s.cancelTickLocked()
	s.elapsed += s.cfg.Now().Sub(s.runningSince)
	taskID, hours := s.sc.TaskID, s.actualHoursLocked()
	s.mu.Unlock()

	log.Printf("Tracking paused: task=%d", taskID)
	s.sink.UpdateHours(taskID, hours)
	return nil
}

// Resume restarts sampling on a new block. The block that was current when
// tracking paused is discarded rather than continued.
func (s *Session) Resume() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrShutdown
	}
	if s.state != StatePaused {
		from := s.state
		s.mu.Unlock()
		return &TransitionError{Op: "resume", From: from}
	}

	now := s.cfg.Now()
	var discarded *Block
	if old := s.rec.Current(); old != nil && old.Recorded() > 0 {
		discarded = old
	}

	s.state = StateTracking
	s.runningSince = now
	s.counter.DrainMinute()
	b := s.rec.Begin(s.sc, now)
	s.startTickLocked()
	s.mu.Unlock()

	if discarded != nil {
		log.Printf("Resume discarded partial block %s with %d minutes", discarded.ID, discarded.Recorded())
	}
	log.Printf("Tracking resumed: block=%s", b.ID)
	return nil
}

// Stop ends tracking from Tracking or Paused, finalizing a non-empty block.
func (s *Session) Stop() error {
	s.mu.Lock()
	if s.state != StateTracking && s.state != StatePaused {
		from := s.state
		s.mu.Unlock()
		return &TransitionError{Op: "stop", From: from}
	}

	now := s.cfg.Now()
	if s.state == StateTracking {
		s.elapsed += now.Sub(s.runningSince)
	}
	s.state = StateStopped
	s.cancelTickLocked()

	var finished *Block
	var score ActivityScore
	if b := s.rec.Detach(now); b != nil && !b.IsEmpty() {
		finished = b
		score = s.cfg.Scorer.Score(b)
		s.lastScore = &score
		s.sink.Submit(finished, score)
	}
	totals := s.counter.Totals()
	taskID, hours := s.sc.TaskID, s.actualHoursLocked()
	s.counter.Reset()
	s.mu.Unlock()

	if finished != nil {
		s.announce(finished, score, totals)
	}
	log.Printf("Tracking stopped: task=%d actual hours=%.4f", taskID, hours)
	s.observer.Notify(LiveStats{})
	s.sink.UpdateHours(taskID, hours)
	return nil
}

// HandleInput counts one raw input event. Events outside Tracking are dropped.
func (s *Session) HandleInput(kind InputKind) {
	s.mu.Lock()
	if s.state != StateTracking {
		s.mu.Unlock()
		return
	}
	totals := s.counter.Record(kind)
	s.mu.Unlock()

	s.observer.Notify(totals)
}

// Status returns a snapshot of the session.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	totals := s.counter.Totals()
	st := Status{
		State:         s.state,
		MouseTotal:    totals.MouseTotal,
		KeyboardTotal: totals.KeyboardTotal,
		ElapsedHours:  s.elapsedLocked().Hours(),
	}
	if s.state != StateIdle {
		st.ProjectID = s.sc.ProjectID
		st.TaskID = s.sc.TaskID
		st.ActualHours = s.actualHoursLocked()
	}
	if b := s.rec.Current(); b != nil {
		st.BlockID = b.ID
		st.MinuteIndex = s.rec.MinuteIndex()
		st.RecordedMinutes = b.Recorded()
		st.ScreenshotSlot = b.ScreenshotSlot
	}
	if s.lastScore != nil {
		sc := *s.lastScore
		st.LastScore = &sc
	}
	return st
}

// Shutdown stops an active session, waits for the minute-tick goroutines to
// return and then for in-flight deliveries when the sink supports waiting.
// The session cannot be started again.
func (s *Session) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	if err := s.Stop(); err != nil && !errors.Is(err, ErrInvalidTransition) {
		return err
	}

	loopsDone := make(chan struct{})
	go func() {
		s.loops.Wait()
		close(loopsDone)
	}()
	select {
	case <-loopsDone:
	case <-ctx.Done():
		return ctx.Err()
	}

	if w, ok := s.sink.(interface{ Wait(context.Context) error }); ok {
		return w.Wait(ctx)
	}
	return nil
}

func (s *Session) startTickLocked() {
	h := newTickHandle(s.cfg.NewTicker(s.cfg.MinuteInterval))
	s.tick = h
	s.loops.Add(1)
	go func() {
		defer s.loops.Done()
		h.run(func() bool { return s.onTick(h) })
	}()
}

func (s *Session) cancelTickLocked() {
	if s.tick != nil {
		s.tick.Cancel()
		s.tick = nil
	}
}

// onTick handles one minute boundary for the loop owning h. It returns false
// when that loop must end.
func (s *Session) onTick(h *tickHandle) bool {
	s.mu.Lock()
	if s.tick != h || s.state != StateTracking {
		s.mu.Unlock()
		return false
	}
	block := s.rec.Current()
	s.mu.Unlock()

	snap := s.rec.SampleWindow()

	s.mu.Lock()
	if s.tick != h || s.state != StateTracking || s.rec.Current() != block || h.Cancelled() {
		s.mu.Unlock()
		return false
	}

	counts := s.counter.DrainMinute()
	_, full := s.rec.Append(counts, snap)
	if !full {
		s.mu.Unlock()
		return true
	}

	now := s.cfg.Now()
	s.cancelTickLocked()
	finished := s.rec.Detach(now)
	score := s.cfg.Scorer.Score(finished)
	s.lastScore = &score
	totals := s.counter.Totals()

	s.sink.Submit(finished, score)

	next := s.rec.Begin(s.sc, now)
	s.startTickLocked()
	s.mu.Unlock()

	s.announce(finished, score, totals)
	log.Printf("Started block %s", next.ID)
	return false
}

// announce logs a block already handed to the sink and pushes its score to
// observers.
func (s *Session) announce(b *Block, score ActivityScore, totals LiveStats) {
	log.Printf("Block %s finalized: %d minutes, %d active, activity %d%%",
		b.ID, b.Recorded(), score.ActiveMinutes, score.ActivityPercentage)

	pct := score.ActivityPercentage
	totals.ActivityPercentage = &pct
	s.observer.Notify(totals)
}

func (s *Session) elapsedLocked() time.Duration {
	d := s.elapsed
	if s.state == StateTracking {
		d += s.cfg.Now().Sub(s.runningSince)
	}
	return d
}

func (s *Session) actualHoursLocked() float64 {
	return s.sc.BaseActualHours + s.elapsedLocked().Hours()
}
