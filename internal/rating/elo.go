package rating

import "math"

const (
	// DefaultRating is the starting rating of every skill.
	DefaultRating = 1500

	// MinRating and MaxRating bound every rating.
	MinRating = 800
	MaxRating = 2400

	// DefaultDifficultyRating is used when a trial carries no difficulty.
	DefaultDifficultyRating = 1500.0

	// BaseK is the K-factor of a skill with zero confidence.
	BaseK = 32.0

	// confidenceHalfLife is the confidence at which K is halved.
	confidenceHalfLife = 100.0

	// eloScale is the rating gap that makes a 10:1 expected-score ratio.
	eloScale = 400.0

	// difficultyScaleMax is the top of the raw 0–10 difficulty scale.
	difficultyScaleMax = 10.0
)

// KFactor returns the update strength for a skill. New skills move fast;
// K approaches 0 as confidence grows.
func KFactor(confidence int) float64 {
	if confidence < 0 {
		confidence = 0
	}
	return BaseK * (confidenceHalfLife / (float64(confidence) + confidenceHalfLife))
}

// ExpectedScore is the logistic probability that a player rated rating
// succeeds at a trial rated difficulty.
func ExpectedScore(rating int, difficulty float64) float64 {
	return 1.0 / (1.0 + math.Pow(10, (difficulty-float64(rating))/eloScale))
}

// EstimateDifficultyRating maps raw difficulty parameters onto the rating
// scale: the mean of the values on a 0–10 scale is mapped linearly to
// 800–2400. Empty or non-finite input maps to DefaultDifficultyRating.
func EstimateDifficultyRating(params map[string]float64) float64 {
	if len(params) == 0 {
		return DefaultDifficultyRating
	}
	sum := 0.0
	for _, v := range params {
		sum += v
	}
	mean := sum / float64(len(params))
	if math.IsNaN(mean) || math.IsInf(mean, 0) {
		return DefaultDifficultyRating
	}
	mean = clamp(mean, 0, difficultyScaleMax)
	return MinRating + (mean/difficultyScaleMax)*(MaxRating-MinRating)
}

// ClampRating rounds and bounds a raw rating.
func ClampRating(v float64) int {
	return int(clamp(math.Round(v), MinRating, MaxRating))
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
