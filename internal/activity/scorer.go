package activity

import "math"

// DefaultMaxExpectedInput is the assumed ceiling of combined input events in
// one block. It is a calibration knob for a linear saturation mapping, not a
// measured property of users.
const DefaultMaxExpectedInput = 1000

// ActivityScore is derived from a finished block.
type ActivityScore struct {
	ActiveMinutes      int `json:"activeMinutes"`
	ActivityPercentage int `json:"activityPercentage"`
}

// Scorer turns a block into an ActivityScore.
type Scorer struct {
	MaxExpectedInput int
}

// NewScorer returns a Scorer with the given ceiling, falling back to
// DefaultMaxExpectedInput when max is not positive.
func NewScorer(max int) Scorer {
	if max <= 0 {
		max = DefaultMaxExpectedInput
	}
	return Scorer{MaxExpectedInput: max}
}

// Score computes active minutes and the saturated activity percentage.
// A block without minute records scores zero; callers never finalize one.
func (s Scorer) Score(b *Block) ActivityScore {
	max := s.MaxExpectedInput
	if max <= 0 {
		max = DefaultMaxExpectedInput
	}

	var score ActivityScore
	total := 0
	for _, m := range b.Minutes {
		if m == nil {
			continue
		}
		if m.Active {
			score.ActiveMinutes++
		}
		total += m.Input()
	}

	pct := int(math.Round(float64(total) / float64(max) * 100))
	if pct > 100 {
		pct = 100
	}
	score.ActivityPercentage = pct
	return score
}
