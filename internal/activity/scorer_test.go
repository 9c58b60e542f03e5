package activity

import (
	"testing"
	"time"
)

func blockWith(records ...MinuteRecord) *Block {
	b := newBlock(SessionContext{ProjectID: 1, TaskID: 2}, 0, time.Now())
	for i, r := range records {
		b.set(i, r)
	}
	return b
}

func TestScoreNinetyNinePercent(t *testing.T) {
	records := []MinuteRecord{
		{Mouse: 5, Keyboard: 3, Active: true},
		{Mouse: 0, Keyboard: 0, Active: false},
	}
	// 8 more minutes bringing the total input to 992
	for i := 0; i < 8; i++ {
		records = append(records, MinuteRecord{Mouse: 60, Keyboard: 63, Active: i%2 == 0})
	}

	score := NewScorer(1000).Score(blockWith(records...))

	if score.ActivityPercentage != 99 {
		t.Errorf("ActivityPercentage = %d, want 99", score.ActivityPercentage)
	}
	if score.ActiveMinutes != 5 {
		t.Errorf("ActiveMinutes = %d, want 5", score.ActiveMinutes)
	}
}

func TestScoreSaturates(t *testing.T) {
	tests := []struct {
		name  string
		input int
	}{
		{"exactly the ceiling", 1000},
		{"above the ceiling", 1500},
		{"far above the ceiling", 100000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score := NewScorer(1000).Score(blockWith(MinuteRecord{Mouse: tt.input, Active: true}))
			if score.ActivityPercentage != 100 {
				t.Errorf("ActivityPercentage = %d, want 100", score.ActivityPercentage)
			}
		})
	}
}

func TestScoreRounding(t *testing.T) {
	tests := []struct {
		input    int
		max      int
		expected int
	}{
		{input: 4, max: 1000, expected: 0},
		{input: 6, max: 1000, expected: 1},
		{input: 994, max: 1000, expected: 99},
		{input: 996, max: 1000, expected: 100},
		{input: 50, max: 200, expected: 25},
	}

	for _, tt := range tests {
		score := NewScorer(tt.max).Score(blockWith(MinuteRecord{Keyboard: tt.input}))
		if score.ActivityPercentage != tt.expected {
			t.Errorf("input %d / max %d: ActivityPercentage = %d, want %d",
				tt.input, tt.max, score.ActivityPercentage, tt.expected)
		}
	}
}

func TestScoreSkipsGaps(t *testing.T) {
	b := newBlock(SessionContext{}, 0, time.Now())
	b.set(0, MinuteRecord{Mouse: 10, Active: true})
	b.set(3, MinuteRecord{Keyboard: 10, Active: true})

	if got := b.Recorded(); got != 2 {
		t.Fatalf("Recorded() = %d, want 2", got)
	}

	score := NewScorer(100).Score(b)
	if score.ActiveMinutes != 2 || score.ActivityPercentage != 20 {
		t.Errorf("Score() = %+v, want 2 active minutes at 20%%", score)
	}
}

func TestNewScorerDefault(t *testing.T) {
	if got := NewScorer(0).MaxExpectedInput; got != DefaultMaxExpectedInput {
		t.Errorf("MaxExpectedInput = %d, want %d", got, DefaultMaxExpectedInput)
	}
}
