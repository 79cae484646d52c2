// internal/score/score.go
package score

// The course-credit transform is a relative-grading curve: a student's raw
// score is compared against the class mean, and each standard deviation is
// worth PerSigma course credits. The curve saturates two deviations out.

const (
	earnedWeight = 0.75
	spentWeight  = 0.25

	// Midpoint is the course-credit value of an exactly-average student,
	// and the value everyone gets when the class has no variance.
	Midpoint = 4.25
	// PerSigma is how far one standard deviation moves the course credit.
	PerSigma = 0.375
	// MinCredits and MaxCredits clamp the curve at +/- two deviations.
	MinCredits = 3.50
	MaxCredits = 5.00
)

// Raw combines lifetime earned and spent credits into the score the
// grading curve operates on. Earning weighs three times as much as
// spending. Callers pass clamped, non-negative inputs.
func Raw(earned, spent float64) float64 {
	return earnedWeight*earned + spentWeight*spent
}

// CourseCredits maps a student's lifetime history and the population
// mean/stddev to a bounded academic-credit value. It is pure and
// deterministic; with zero deviation everyone is average.
func CourseCredits(earned, spent, mean, stdDev float64) float64 {
	if stdDev <= 0 {
		return Midpoint
	}
	z := (Raw(earned, spent) - mean) / stdDev
	g := Midpoint + z*PerSigma
	if g < MinCredits {
		return MinCredits
	}
	if g > MaxCredits {
		return MaxCredits
	}
	return g
}
