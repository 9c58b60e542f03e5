package activity

// InputKind distinguishes the raw input events the counter accepts.
type InputKind int

const (
	InputKeyboard InputKind = iota
	InputMouse
)

func (k InputKind) String() string {
	switch k {
	case InputKeyboard:
		return "keyboard"
	case InputMouse:
		return "mouse"
	default:
		return "unknown"
	}
}

// MinuteCounts holds the events counted since the previous drain.
type MinuteCounts struct {
	Mouse    int
	Keyboard int
}

// InputCounter accumulates raw input events into per-minute and
// session-lifetime counts. It is not safe for concurrent use; Session
// guards it with its own lock.
type InputCounter struct {
	minuteMouse    int
	minuteKeyboard int
	totalMouse     int
	totalKeyboard  int
}

// RecordKeyboardEvent counts one keyboard event and returns the lifetime totals.
func (c *InputCounter) RecordKeyboardEvent() LiveStats {
	c.minuteKeyboard++
	c.totalKeyboard++
	return c.Totals()
}

// RecordMouseEvent counts one mouse event and returns the lifetime totals.
func (c *InputCounter) RecordMouseEvent() LiveStats {
	c.minuteMouse++
	c.totalMouse++
	return c.Totals()
}

// Record dispatches on kind.
func (c *InputCounter) Record(kind InputKind) LiveStats {
	if kind == InputKeyboard {
		return c.RecordKeyboardEvent()
	}
	return c.RecordMouseEvent()
}

// DrainMinute returns the per-minute counts and resets them to zero.
func (c *InputCounter) DrainMinute() MinuteCounts {
	counts := MinuteCounts{Mouse: c.minuteMouse, Keyboard: c.minuteKeyboard}
	c.minuteMouse = 0
	c.minuteKeyboard = 0
	return counts
}

// Totals returns the session-lifetime counts as a live-stats payload.
func (c *InputCounter) Totals() LiveStats {
	return LiveStats{MouseTotal: c.totalMouse, KeyboardTotal: c.totalKeyboard}
}

// Reset zeroes every counter.
func (c *InputCounter) Reset() {
	*c = InputCounter{}
}
