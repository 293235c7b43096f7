package skillgraph

// DefaultCatalogVersion is the version of the built-in catalog.
const DefaultCatalogVersion = "v1.0.0"

// DefaultCatalog returns the built-in skill catalog and game mapping.
func DefaultCatalog() Catalog {
	return Catalog{
		Version: DefaultCatalogVersion,
		Skills: []Skill{
			// Memory
			{ID: "visual-working-memory", Name: "Visual Working Memory", Domain: DomainMemory,
				Description: "Hold and update visual information over a few seconds"},
			{ID: "spatial-memory", Name: "Spatial Memory", Domain: DomainMemory,
				Description: "Remember locations and routes"},
			{ID: "associative-memory", Name: "Associative Memory", Domain: DomainMemory,
				Description: "Bind pairs of items and recall one from the other"},

			// Attention
			{ID: "sustained-attention", Name: "Sustained Attention", Domain: DomainAttention,
				Description: "Stay on task across a long, repetitive block"},
			{ID: "selective-attention", Name: "Selective Attention", Domain: DomainAttention,
				Description: "Focus on targets while ignoring distractors"},
			{ID: "peripheral-awareness", Name: "Peripheral Awareness", Domain: DomainAttention,
				Description: "Detect events away from the point of fixation"},

			// Processing speed
			{ID: "reaction-speed", Name: "Reaction Speed", Domain: DomainSpeed,
				Description: "Respond quickly to a simple stimulus"},
			{ID: "visual-scanning", Name: "Visual Scanning", Domain: DomainSpeed,
				Description: "Search a display efficiently"},

			// Executive function
			{ID: "inhibitory-control", Name: "Inhibitory Control", Domain: DomainExecutive,
				Description: "Suppress a prepotent but wrong response"},
			{ID: "task-switching", Name: "Task Switching", Domain: DomainExecutive,
				Description: "Change rules quickly without losing accuracy"},

			// Visuospatial
			{ID: "mental-rotation", Name: "Mental Rotation", Domain: DomainVisuospatial,
				Description: "Rotate shapes in the mind's eye"},
			{ID: "pattern-recognition", Name: "Pattern Recognition", Domain: DomainVisuospatial,
				Description: "Spot regularities in shapes and sequences"},
		},
		Games: []Game{
			{ID: "symbol-recall", Name: "Symbol Recall",
				Skills:    []string{"visual-working-memory", "associative-memory"},
				Intensity: IntensityMedium, TypicalMinutes: 5},
			{ID: "pattern-rotation", Name: "Pattern Rotation",
				Skills:    []string{"mental-rotation", "pattern-recognition"},
				Intensity: IntensityHigh, TypicalMinutes: 6},
			{ID: "peripheral-tracker", Name: "Peripheral Tracker",
				Skills:    []string{"peripheral-awareness", "sustained-attention", "reaction-speed"},
				Intensity: IntensityHigh, TypicalMinutes: 5},
			{ID: "grid-memory", Name: "Grid Memory",
				Skills:    []string{"spatial-memory", "visual-working-memory"},
				Intensity: IntensityMedium, TypicalMinutes: 5},
			{ID: "color-clash", Name: "Color Clash",
				Skills:    []string{"inhibitory-control", "selective-attention"},
				Intensity: IntensityMedium, TypicalMinutes: 4},
			{ID: "rule-switch", Name: "Rule Switch",
				Skills:    []string{"task-switching", "inhibitory-control"},
				Intensity: IntensityHigh, TypicalMinutes: 6},
			{ID: "quick-tap", Name: "Quick Tap",
				Skills:    []string{"reaction-speed", "sustained-attention"},
				Intensity: IntensityLow, TypicalMinutes: 3},
			{ID: "target-search", Name: "Target Search",
				Skills:    []string{"visual-scanning", "selective-attention"},
				Intensity: IntensityLow, TypicalMinutes: 4},
			{ID: "pair-match", Name: "Pair Match",
				Skills:    []string{"associative-memory", "pattern-recognition"},
				Intensity: IntensityLow, TypicalMinutes: 5},
			{ID: "path-recall", Name: "Path Recall",
				Skills:    []string{"spatial-memory", "mental-rotation"},
				Intensity: IntensityMedium, TypicalMinutes: 5},
		},
	}
}

// Default builds a Registry from DefaultCatalog.
// It panics if the built-in catalog is invalid, which tests guard against.
func Default(opts ...Option) *Registry {
	r, err := New(DefaultCatalog(), opts...)
	if err != nil {
		panic(err)
	}
	return r
}
