package composer

import "time"

// Category is the reason a game was included in a plan.
type Category string

const (
	CategoryFocus   Category = "focus"
	CategoryVariety Category = "variety"
)

// PlanItem is one game in a plan with its share of the minutes.
type PlanItem struct {
	GameID           string   `json:"gameId"`
	GameName         string   `json:"gameName"`
	AllocatedMinutes int      `json:"allocatedMinutes"`
	TargetedSkills   []string `json:"targetedSkills"`
	Category         Category `json:"category"`
	Rationale        string   `json:"rationale"`
}

// Plan is a recommended training session.
type Plan struct {
	RequestedMinutes int        `json:"requestedMinutes"`
	GeneratedAt      time.Time  `json:"generatedAt"`
	Items            []PlanItem `json:"items"`
	// Fatigued is set when more sessions than the threshold were played today.
	Fatigued      bool `json:"fatigued"`
	SessionsToday int  `json:"sessionsToday"`
	// Relaxed is set when recently played games had to be planned.
	Relaxed bool     `json:"relaxed"`
	Notes   []string `json:"notes"`
}

// TotalMinutes sums the allocated minutes.
func (p *Plan) TotalMinutes() int {
	total := 0
	for _, it := range p.Items {
		total += it.AllocatedMinutes
	}
	return total
}
