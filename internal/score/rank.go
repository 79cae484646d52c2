// internal/score/rank.go
package score

// rankTier pairs a lifetime-earned threshold with its vanity title.
type rankTier struct {
	threshold int64
	title     string
}

// rankLadder is ordered by ascending threshold. New accounts start with
// 20 earned, so "Classmate" is the effective entry rank.
var rankLadder = []rankTier{
	{0, "Freshling"},
	{20, "Classmate"},
	{50, "Contributor"},
	{100, "Benefactor"},
	{200, "Patron"},
	{400, "Magnate"},
	{800, "Tycoon"},
	{1600, "Campus Legend"},
}

// RankFor returns the vanity title for a lifetime-earned total. It is the
// only place rank is computed; callers persist the result whenever
// earnedLifetime changes.
func RankFor(earned int64) string {
	title := rankLadder[0].title
	for _, tier := range rankLadder {
		if earned < tier.threshold {
			break
		}
		title = tier.title
	}
	return title
}
