package score

import "testing"

func TestRaw(t *testing.T) {
	if got := Raw(100, 100); got != 100 {
		t.Errorf("Raw(100,100) = %v, want 100", got)
	}
	if got := Raw(20, 0); got != 15 {
		t.Errorf("Raw(20,0) = %v, want 15", got)
	}
	if got := Raw(0, 0); got != 0 {
		t.Errorf("Raw(0,0) = %v, want 0", got)
	}
}

func TestCourseCredits(t *testing.T) {
	cases := []struct {
		name          string
		earned, spent float64
		mean, stdDev  float64
		want          float64
	}{
		{"average student", 100, 100, 100, 20, 4.25},
		{"two sigma above", 140, 140, 100, 20, 5.00},
		{"two sigma below", 60, 60, 100, 20, 3.50},
		{"clamped high", 200, 200, 100, 20, 5.00},
		{"clamped low", 0, 0, 100, 20, 3.50},
		{"zero variance", 100, 100, 100, 0, 4.25},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := CourseCredits(c.earned, c.spent, c.mean, c.stdDev)
			if got != c.want {
				t.Errorf("CourseCredits(%v,%v,%v,%v) = %v, want %v",
					c.earned, c.spent, c.mean, c.stdDev, got, c.want)
			}
		})
	}
}

func TestCourseCreditsOneSigma(t *testing.T) {
	// One deviation above average is worth exactly PerSigma.
	got := CourseCredits(120, 120, 100, 20)
	if got != Midpoint+PerSigma {
		t.Errorf("one sigma above = %v, want %v", got, Midpoint+PerSigma)
	}
}

func TestRankFor(t *testing.T) {
	cases := []struct {
		earned int64
		want   string
	}{
		{0, "Freshling"},
		{19, "Freshling"},
		{20, "Classmate"},
		{49, "Classmate"},
		{50, "Contributor"},
		{100, "Benefactor"},
		{399, "Patron"},
		{400, "Magnate"},
		{800, "Tycoon"},
		{5000, "Campus Legend"},
	}
	for _, c := range cases {
		if got := RankFor(c.earned); got != c.want {
			t.Errorf("RankFor(%d) = %q, want %q", c.earned, got, c.want)
		}
	}
}
