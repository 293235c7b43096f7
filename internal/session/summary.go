package session

import "time"

// Summary holds the aggregate results of one session.
type Summary struct {
	TrialCount        int            `json:"trialCount"`
	CorrectCount      int            `json:"correctCount"`
	Accuracy          float64        `json:"accuracy"`
	AvgReactionTimeMs float64        `json:"avgReactionTimeMs"`
	RTVariance        float64        `json:"rtVariance"`
	AvgThinkTimeMs    float64        `json:"avgThinkTimeMs"`
	ErrorBreakdown    map[string]int `json:"errorBreakdown"`
	// FatigueDropoff is first-half accuracy minus second-half accuracy.
	// Positive means performance degraded over the session.
	FatigueDropoff float64 `json:"fatigueDropoff"`
	TotalScore     float64 `json:"totalScore"`
	DurationMs     int64   `json:"durationMs"`
}

// Result is what ending a session returns.
type Result struct {
	Session Session `json:"session"`
	Summary Summary `json:"summary"`
}

// Summarize computes the summary of a session. A session with no trials
// yields an all-zero summary.
func Summarize(s *Session) Summary {
	sum := Summary{ErrorBreakdown: map[string]int{}}
	if s.EndTime != nil {
		sum.DurationMs = max(0, s.EndTime.Sub(s.StartTime).Milliseconds())
	}

	n := len(s.Trials)
	if n == 0 {
		return sum
	}

	var rts, thinks []float64
	for _, t := range s.Trials {
		sum.TotalScore += t.Score
		if t.Correct {
			sum.CorrectCount++
		} else {
			key := string(t.ErrorType)
			if key == "" {
				key = unknownErrorType
			}
			sum.ErrorBreakdown[key]++
		}
		if t.ReactionTimeMs != nil {
			rts = append(rts, *t.ReactionTimeMs)
		}
		if t.ThinkTimeMs != nil {
			thinks = append(thinks, *t.ThinkTimeMs)
		}
	}

	sum.TrialCount = n
	sum.Accuracy = float64(sum.CorrectCount) / float64(n)
	sum.AvgReactionTimeMs, sum.RTVariance = meanVariance(rts)
	sum.AvgThinkTimeMs, _ = meanVariance(thinks)

	half := n / 2
	if half > 0 {
		sum.FatigueDropoff = accuracy(s.Trials[:half]) - accuracy(s.Trials[half:])
	}
	return sum
}

func accuracy(trials []Trial) float64 {
	if len(trials) == 0 {
		return 0
	}
	correct := 0
	for _, t := range trials {
		if t.Correct {
			correct++
		}
	}
	return float64(correct) / float64(len(trials))
}

// meanVariance returns the mean and population variance of vs.
func meanVariance(vs []float64) (mean, variance float64) {
	if len(vs) == 0 {
		return 0, 0
	}
	for _, v := range vs {
		mean += v
	}
	mean /= float64(len(vs))
	for _, v := range vs {
		d := v - mean
		variance += d * d
	}
	variance /= float64(len(vs))
	return mean, variance
}

// elapsed is the session duration, zero while the session is open.
func (s *Session) elapsed() time.Duration {
	if s.EndTime == nil {
		return 0
	}
	return max(0, s.EndTime.Sub(s.StartTime))
}
