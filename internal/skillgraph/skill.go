package skillgraph

// Domain groups related cognitive skills.
type Domain string

const (
	DomainMemory       Domain = "memory"
	DomainAttention    Domain = "attention"
	DomainSpeed        Domain = "processing-speed"
	DomainExecutive    Domain = "executive-function"
	DomainVisuospatial Domain = "visuospatial"
)

// AllDomains returns all domains in display order.
func AllDomains() []Domain {
	return []Domain{
		DomainMemory,
		DomainAttention,
		DomainSpeed,
		DomainExecutive,
		DomainVisuospatial,
	}
}

// DomainDisplayName returns a human-readable name for a domain.
func DomainDisplayName(d Domain) string {
	switch d {
	case DomainMemory:
		return "Memory"
	case DomainAttention:
		return "Attention"
	case DomainSpeed:
		return "Processing Speed"
	case DomainExecutive:
		return "Executive Function"
	case DomainVisuospatial:
		return "Visuospatial"
	default:
		return string(d)
	}
}

// Intensity describes how demanding a game is to play.
type Intensity string

const (
	IntensityLow    Intensity = "low"
	IntensityMedium Intensity = "medium"
	IntensityHigh   Intensity = "high"
)

// Valid reports whether i is a known intensity.
func (i Intensity) Valid() bool {
	switch i {
	case IntensityLow, IntensityMedium, IntensityHigh:
		return true
	}
	return false
}

// Skill is a named cognitive dimension tracked with a rating.
type Skill struct {
	ID          string `json:"id" koanf:"id"`
	Name        string `json:"name" koanf:"name"`
	Domain      Domain `json:"domain" koanf:"domain"`
	Description string `json:"description,omitempty" koanf:"description"`
}

// Game is a training module and the ordered set of skills it trains.
type Game struct {
	ID             string    `json:"id" koanf:"id"`
	Name           string    `json:"name" koanf:"name"`
	Skills         []string  `json:"skills" koanf:"skills"`
	Intensity      Intensity `json:"intensity" koanf:"intensity"`
	TypicalMinutes int       `json:"typicalMinutes" koanf:"typical_minutes"`
}

// Catalog is the injected configuration the registry is built from.
type Catalog struct {
	// Version is a semver string; only major version v1 is understood.
	Version string  `json:"version" koanf:"version"`
	Skills  []Skill `json:"skills" koanf:"skills"`
	Games   []Game  `json:"games" koanf:"games"`
}

// Limits on the number of skills a game may train.
const (
	MinSkillsPerGame = 2
	MaxSkillsPerGame = 3
)
