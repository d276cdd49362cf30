// Package verdict provides deterministic local logic for scoring and status
// determination. No oracle calls are made here.
package verdict

import (
	"math"

	"github.com/dshills/lexiscan/internal/schema"
)

// Weight returns the score contribution of a risk level.
// CRITICAL=100, MEDIUM=50, LOW=0. Unknown levels weigh as MEDIUM.
func Weight(r schema.RiskLevel) float64 {
	switch r {
	case schema.RiskCritical:
		return 100
	case schema.RiskLow:
		return 0
	default:
		return 50
	}
}

// ComputeScore returns the mean weight of findings, rounded to two decimals.
// No findings scores 0.
func ComputeScore(findings []schema.Finding) float64 {
	if len(findings) == 0 {
		return 0
	}
	var sum float64
	for _, f := range findings {
		sum += Weight(f.Risk)
	}
	return math.Round(sum/float64(len(findings))*100) / 100
}

// StatusOrdinal orders the severity statuses: SAFE=0, WARNING=1, CRITICAL=2.
// ERROR and UNREADABLE are outside the scale and return -1.
func StatusOrdinal(s schema.Status) int {
	switch s {
	case schema.StatusSafe:
		return 0
	case schema.StatusWarning:
		return 1
	case schema.StatusCritical:
		return 2
	default:
		return -1
	}
}

// MaxStatus returns the more severe of a and b. A status outside the
// severity scale loses to one on it.
func MaxStatus(a, b schema.Status) schema.Status {
	if StatusOrdinal(b) > StatusOrdinal(a) {
		return b
	}
	return a
}

// DetermineStatus applies the status rules to a finding set.
//
// Rules (in order of precedence):
//  1. Any CRITICAL finding → CRITICAL
//  2. Any MEDIUM finding → WARNING
//  3. Otherwise → SAFE
func DetermineStatus(findings []schema.Finding) schema.Status {
	status := schema.StatusSafe
	for _, f := range findings {
		switch f.Risk {
		case schema.RiskCritical:
			return schema.StatusCritical
		case schema.RiskMedium:
			status = schema.StatusWarning
		}
	}
	return status
}

// Count tallies severities and grounding across findings.
func Count(findings []schema.Finding) schema.Counts {
	var c schema.Counts
	for _, f := range findings {
		switch f.Risk {
		case schema.RiskCritical:
			c.Critical++
		case schema.RiskLow:
			c.Low++
		default:
			c.Medium++
		}
		if f.Grounded() {
			c.Grounded++
		} else {
			c.Ungrounded++
		}
	}
	return c
}
