package enums

import "fmt"

// RankingPeriod is the window a performance ranking is computed over.
type RankingPeriod string

const (
	RankingWeekly  RankingPeriod = "weekly"
	RankingMonthly RankingPeriod = "monthly"
	RankingTerm    RankingPeriod = "term"
)

var validRankingPeriods = []RankingPeriod{
	RankingWeekly,
	RankingMonthly,
	RankingTerm,
}

// String implements fmt.Stringer.
func (p RankingPeriod) String() string {
	return string(p)
}

// IsValid reports whether the value is a known RankingPeriod.
func (p RankingPeriod) IsValid() bool {
	for _, candidate := range validRankingPeriods {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParseRankingPeriod converts raw input into a RankingPeriod.
func ParseRankingPeriod(value string) (RankingPeriod, error) {
	for _, candidate := range validRankingPeriods {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid ranking period %q", value)
}
