package session

import (
	"fmt"
	"maps"
	"math"
	"time"

	"github.com/abhisek/cogniz/internal/rating"
)

// ErrorType classifies an incorrect trial.
type ErrorType string

const (
	ErrorOmission    ErrorType = "omission"     // no response to a target
	ErrorCommission  ErrorType = "commission"   // response to a non-target
	ErrorTimeout     ErrorType = "timeout"      // response window expired
	ErrorWrongTarget ErrorType = "wrong-target" // responded to the wrong item
	ErrorSequence    ErrorType = "sequence"     // right items, wrong order
	ErrorOther       ErrorType = "other"
)

// unknownErrorType is the breakdown bucket for incorrect trials without a type.
const unknownErrorType = "unknown"

// Valid reports whether e is a known error type.
func (e ErrorType) Valid() bool {
	switch e {
	case ErrorOmission, ErrorCommission, ErrorTimeout, ErrorWrongTarget, ErrorSequence, ErrorOther:
		return true
	}
	return false
}

// ValidationError describes malformed trial input. Nothing is mutated when
// one is returned.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid trial: %s: %s", e.Field, e.Reason)
}

// TrialInput is what a game reports for one player action.
type TrialInput struct {
	// Timestamp defaults to the time the trial is recorded.
	Timestamp time.Time `json:"timestamp,omitzero"`
	// TrialNumber defaults to the 1-based position in the session.
	TrialNumber    int                `json:"trialNumber,omitempty"`
	Correct        bool               `json:"correct"`
	ErrorType      ErrorType          `json:"errorType,omitempty"`
	ReactionTimeMs *float64           `json:"reactionTimeMs,omitempty"`
	ThinkTimeMs    *float64           `json:"thinkTimeMs,omitempty"`
	Difficulty     map[string]float64 `json:"difficulty,omitempty"`
	// DifficultyRating overrides the rating estimated from Difficulty.
	DifficultyRating float64 `json:"difficultyRating,omitempty"`
	Score            float64 `json:"score"`
}

// Validate checks the input before it reaches any state.
func (in TrialInput) Validate() error {
	if in.TrialNumber < 0 {
		return &ValidationError{Field: "trialNumber", Reason: "must not be negative"}
	}
	if in.ErrorType != "" {
		if !in.ErrorType.Valid() {
			return &ValidationError{Field: "errorType", Reason: fmt.Sprintf("unknown error type %q", in.ErrorType)}
		}
		if in.Correct {
			return &ValidationError{Field: "errorType", Reason: "must be empty for a correct trial"}
		}
	}
	if err := checkDuration("reactionTimeMs", in.ReactionTimeMs); err != nil {
		return err
	}
	if err := checkDuration("thinkTimeMs", in.ThinkTimeMs); err != nil {
		return err
	}
	for k, v := range in.Difficulty {
		if k == "" {
			return &ValidationError{Field: "difficulty", Reason: "parameter name must not be empty"}
		}
		if !finite(v) {
			return &ValidationError{Field: "difficulty." + k, Reason: "must be a finite number"}
		}
	}
	if !finite(in.DifficultyRating) {
		return &ValidationError{Field: "difficultyRating", Reason: "must be a finite number"}
	}
	if in.DifficultyRating != 0 && (in.DifficultyRating < rating.MinRating || in.DifficultyRating > rating.MaxRating) {
		return &ValidationError{
			Field:  "difficultyRating",
			Reason: fmt.Sprintf("must be between %d and %d", rating.MinRating, rating.MaxRating),
		}
	}
	if !finite(in.Score) {
		return &ValidationError{Field: "score", Reason: "must be a finite number"}
	}
	return nil
}

func checkDuration(field string, v *float64) error {
	if v == nil {
		return nil
	}
	if !finite(*v) || *v < 0 {
		return &ValidationError{Field: field, Reason: "must be a non-negative number"}
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Trial is a recorded trial with its derived fields. Immutable once
// appended to a session.
type Trial struct {
	Timestamp        time.Time          `json:"timestamp"`
	GameID           string             `json:"gameId"`
	TrialNumber      int                `json:"trialNumber"`
	Correct          bool               `json:"correct"`
	ErrorType        ErrorType          `json:"errorType,omitempty"`
	ReactionTimeMs   *float64           `json:"reactionTimeMs,omitempty"`
	ThinkTimeMs      *float64           `json:"thinkTimeMs,omitempty"`
	Difficulty       map[string]float64 `json:"difficulty"`
	DifficultyRating float64            `json:"difficultyRating"`
	FatigueIndex     float64            `json:"fatigueIndex"`
	Score            float64            `json:"score"`
}

func (t Trial) clone() Trial {
	t.Difficulty = maps.Clone(t.Difficulty)
	t.ReactionTimeMs = clonePtr(t.ReactionTimeMs)
	t.ThinkTimeMs = clonePtr(t.ThinkTimeMs)
	return t
}

func clonePtr(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

const (
	// fatigueOnset is the trial position after which fatigue starts.
	fatigueOnset = 15
	// fatigueSpan is the number of trials over which fatigue saturates.
	fatigueSpan = 20
)

// FatigueIndex estimates within-session fatigue from the 1-based trial
// position: 0 up to trial 15, rising linearly to 1 at trial 35.
func FatigueIndex(position int) float64 {
	v := float64(position-fatigueOnset) / fatigueSpan
	return math.Max(0, math.Min(1, v))
}

// Session is one bounded sequence of trials for one game.
type Session struct {
	ID           string                `json:"id"`
	GameID       string                `json:"gameId"`
	StartTime    time.Time             `json:"startTime"`
	EndTime      *time.Time            `json:"endTime,omitempty"`
	Trials       []Trial               `json:"trials"`
	SkillUpdates []rating.UpdateResult `json:"skillUpdates"`
}

func (s *Session) clone() Session {
	out := *s
	out.Trials = make([]Trial, len(s.Trials))
	for i, t := range s.Trials {
		out.Trials[i] = t.clone()
	}
	out.SkillUpdates = append([]rating.UpdateResult{}, s.SkillUpdates...)
	if s.EndTime != nil {
		end := *s.EndTime
		out.EndTime = &end
	}
	return out
}
