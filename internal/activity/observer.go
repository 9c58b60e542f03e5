package activity

// LiveStats is pushed to observers on every counted input event and on block
// finalization. ActivityPercentage is set only on finalization.
type LiveStats struct {
	MouseTotal         int  `json:"mouse"`
	KeyboardTotal      int  `json:"keyboard"`
	ActivityPercentage *int `json:"activityPercentage,omitempty"`
}

// Observer receives live-stats pushes. Notify must not block.
type Observer interface {
	Notify(LiveStats)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(LiveStats)

func (f ObserverFunc) Notify(s LiveStats) { f(s) }

// Observers fans a notification out to several observers.
type Observers []Observer

func (o Observers) Notify(s LiveStats) {
	for _, obs := range o {
		if obs != nil {
			obs.Notify(s)
		}
	}
}
