package profiler

import (
	"fmt"
	"strings"

	"github.com/rahmatrdn/go-query-profiler/entity"
)

// Analyzer turns a finished profile into operator-facing recommendations and
// a readable report. Pure functions over the profile; no side effects.
type Analyzer struct {
	thresholds Thresholds
}

func NewAnalyzer(thresholds Thresholds) *Analyzer {
	return &Analyzer{thresholds: thresholds}
}

// Analyze returns recommendation strings for a finished profile. Empty slice
// when nothing stands out.
func (a *Analyzer) Analyze(profile *entity.Profile) []string {
	recommendations := []string{}

	if profile.QueryCount > a.thresholds.MaxQueriesPerRequest {
		recommendations = append(recommendations, fmt.Sprintf(
			"High query count (%d queries in one request): consider combining lookups with JOINs or batching.",
			profile.QueryCount))
	}

	if profile.TotalDurationMs > 1000 {
		recommendations = append(recommendations, fmt.Sprintf(
			"Total query time %dms exceeds 1s: consider caching hot reads or optimizing the slowest queries.",
			profile.TotalDurationMs))
	}

	if profile.PotentialN1 {
		recommendations = append(recommendations,
			"Potential N+1 query pattern detected: review query logs and replace per-row lookups with JOINs or batch loading.")
	}

	slowCount := 0
	for _, q := range profile.Queries {
		if q.DurationMs > a.thresholds.SlowQueryMs {
			slowCount++
		}
	}
	if slowCount > 0 {
		recommendations = append(recommendations, fmt.Sprintf(
			"%d slow queries (>%dms): review indexes for the tables involved.",
			slowCount, a.thresholds.SlowQueryMs))
	}

	return recommendations
}

// Format renders a multi-line diagnostic block: totals, the per-pattern
// breakdown and the analyzer's recommendations. For logs and humans, never
// for machine parsing.
func (a *Analyzer) Format(profile *entity.Profile) string {
	var b strings.Builder

	fmt.Fprintf(&b, "query profile %s\n", profile.RequestID)
	fmt.Fprintf(&b, "  total queries: %d\n", profile.QueryCount)
	fmt.Fprintf(&b, "  total duration: %dms\n", profile.TotalDurationMs)
	fmt.Fprintf(&b, "  potential n+1: %t\n", profile.PotentialN1)

	groups := GroupByPattern(profile.Queries)
	if len(groups) > 0 {
		b.WriteString("  patterns:\n")
		for _, g := range groups {
			fmt.Fprintf(&b, "    %dx (%dms) %s\n", g.Count, g.TotalDurationMs, g.Pattern)
		}
	}

	recommendations := a.Analyze(profile)
	if len(recommendations) > 0 {
		b.WriteString("  recommendations:\n")
		for _, r := range recommendations {
			fmt.Fprintf(&b, "    - %s\n", r)
		}
	}

	return b.String()
}
