package assess

import (
	"math"
	"sort"

	"steward/internal/catalog"
	"steward/internal/store"
)

// Counts aggregates assessment rows by canonical status.
type Counts struct {
	Total              int `json:"total"`
	Satisfied          int `json:"satisfied"`
	PartiallySatisfied int `json:"partially_satisfied"`
	NotSatisfied       int `json:"not_satisfied"`
	NotApplicable      int `json:"not_applicable"`
	NotAssessed        int `json:"not_assessed"`
	RiskAccepted       int `json:"risk_accepted"`
}

// Count tallies rows into per-status counts.
func Count(rows []store.AssessmentRow) Counts {
	var c Counts
	for _, row := range rows {
		c.Add(Status(row.Status))
	}
	return c
}

// Add records one row of the given status.
func (c *Counts) Add(s Status) {
	c.Total++
	switch s {
	case StatusSatisfied:
		c.Satisfied++
	case StatusPartiallySatisfied:
		c.PartiallySatisfied++
	case StatusNotSatisfied:
		c.NotSatisfied++
	case StatusNotApplicable:
		c.NotApplicable++
	case StatusRiskAccepted:
		c.RiskAccepted++
	default:
		c.NotAssessed++
	}
}

// Denominator is the assessable row count: not_applicable rows are
// excluded, everything else (including not_assessed) is included.
func (c Counts) Denominator() int {
	return c.Total - c.NotApplicable
}

// Map returns the per-status counts keyed by canonical status name.
func (c Counts) Map() map[string]int {
	return map[string]int{
		string(StatusSatisfied):          c.Satisfied,
		string(StatusPartiallySatisfied): c.PartiallySatisfied,
		string(StatusNotSatisfied):       c.NotSatisfied,
		string(StatusNotApplicable):      c.NotApplicable,
		string(StatusNotAssessed):        c.NotAssessed,
		string(StatusRiskAccepted):       c.RiskAccepted,
	}
}

// Score computes the weighted default composite score in percent:
// 100*(S + 0.5*P + 0.75*R)/D, or 100 when nothing is assessable.
func (c Counts) Score() float64 {
	d := c.Denominator()
	if d <= 0 {
		return 100
	}
	raw := 100 * (float64(c.Satisfied) + 0.5*float64(c.PartiallySatisfied) + 0.75*float64(c.RiskAccepted)) / float64(d)
	return round1(raw)
}

// CMMCScore computes the met-variant score: 100*(met + 0.5*partially_met)
// divided by the assessable count. Risk acceptance earns no credit under
// CMMC.
func (c Counts) CMMCScore() float64 {
	d := c.Denominator()
	if d <= 0 {
		return 100
	}
	raw := 100 * (float64(c.Satisfied) + 0.5*float64(c.PartiallySatisfied)) / float64(d)
	return round1(raw)
}

// Coverage is the percentage of rows that have been assessed at all.
func (c Counts) Coverage() float64 {
	if c.Total == 0 {
		return 0
	}
	return round1(100 * float64(c.Total-c.NotAssessed) / float64(c.Total))
}

// GroupScore is one grouping's (domain/family/process area) roll-up.
type GroupScore struct {
	Group  string  `json:"group"`
	Counts Counts  `json:"counts"`
	Score  float64 `json:"score"`
}

// GroupScores computes per-grouping scores in the catalog's group order.
// Groups with no rows are omitted: roll-ups average only groupings whose
// total is positive.
func GroupScores(cat *catalog.Catalog, rows []store.AssessmentRow, scorer func(Counts) float64) []GroupScore {
	byGroup := make(map[string]*Counts)
	for _, row := range rows {
		req, ok := cat.Lookup(row.RequirementID)
		group := "ungrouped"
		if ok {
			group = req.Group()
		}
		c, exists := byGroup[group]
		if !exists {
			c = &Counts{}
			byGroup[group] = c
		}
		c.Add(Status(row.Status))
	}

	var out []GroupScore
	for _, group := range cat.Groups() {
		c, ok := byGroup[group]
		if !ok || c.Total == 0 {
			continue
		}
		out = append(out, GroupScore{Group: group, Counts: *c, Score: scorer(*c)})
		delete(byGroup, group)
	}
	// Rows whose requirement id is no longer in the catalog still count,
	// appended deterministically after the catalog's group order.
	var extra []string
	for group := range byGroup {
		extra = append(extra, group)
	}
	sort.Strings(extra)
	for _, group := range extra {
		c := byGroup[group]
		if c.Total == 0 {
			continue
		}
		out = append(out, GroupScore{Group: group, Counts: *c, Score: scorer(*c)})
	}
	return out
}

// IVV area split per IEEE 1012: verification scores average across seven
// areas, validation across two, combined 60/40.
var (
	ivvVerificationAreas = []string{
		"requirements_analysis",
		"design_evaluation",
		"code_verification",
		"integration_testing",
		"documentation_review",
		"security_analysis",
		"traceability_analysis",
	}
	ivvValidationAreas = []string{
		"operational_validation",
		"acceptance_validation",
	}
)

// IVVAreas returns the fixed report ordering of the nine IV&V areas.
func IVVAreas() []string {
	out := make([]string, 0, 9)
	out = append(out, ivvVerificationAreas...)
	out = append(out, ivvValidationAreas...)
	return out
}

// ivvAreaScore is the pass rate of one area: 100*(pass + 0.5*partial)
// over the scoreable rows.
func ivvAreaScore(c Counts) float64 {
	d := c.Denominator()
	if d <= 0 {
		return 100
	}
	return 100 * (float64(c.Satisfied) + 0.5*float64(c.PartiallySatisfied)) / float64(d)
}

// IVVScore computes the IEEE 1012 composite: the unweighted mean of
// verification area pass rates weighted 0.6, plus the validation mean
// weighted 0.4. Areas with no rows are excluded from their mean.
func IVVScore(groups []GroupScore) (verification, validation, overall float64) {
	byArea := make(map[string]Counts, len(groups))
	for _, g := range groups {
		byArea[g.Group] = g.Counts
	}

	mean := func(areas []string) float64 {
		var sum float64
		var n int
		for _, area := range areas {
			c, ok := byArea[area]
			if !ok || c.Total == 0 {
				continue
			}
			sum += ivvAreaScore(c)
			n++
		}
		if n == 0 {
			return 100
		}
		return sum / float64(n)
	}

	verification = round1(mean(ivvVerificationAreas))
	validation = round1(mean(ivvValidationAreas))
	overall = round1(0.6*verification + 0.4*validation)
	return verification, validation, overall
}

// OverallScore selects the framework's scoring rule.
func OverallScore(frameworkID string, counts Counts, groups []GroupScore) float64 {
	switch frameworkID {
	case "cmmc":
		return counts.CMMCScore()
	case "ivv":
		_, _, overall := IVVScore(groups)
		return overall
	default:
		return counts.Score()
	}
}

// Scorer returns the per-group scoring function for a framework.
func Scorer(frameworkID string) func(Counts) float64 {
	switch frameworkID {
	case "cmmc":
		return Counts.CMMCScore
	case "ivv":
		return func(c Counts) float64 { return round1(ivvAreaScore(c)) }
	default:
		return Counts.Score
	}
}

// PostureFor renders the framework's posture label. CMMC speaks in
// certification readiness, which follows the gate rather than the score;
// every other framework uses the four-level scale.
func PostureFor(frameworkID string, score float64, gatePassed bool) string {
	if frameworkID == "cmmc" {
		if gatePassed {
			return "Ready"
		}
		return "Not Ready"
	}
	return Posture(score)
}

// Posture maps an overall score to the qualitative label used in report
// executive summaries.
func Posture(score float64) string {
	switch {
	case score >= 90:
		return "Strong"
	case score >= 70:
		return "Moderate"
	case score >= 50:
		return "Developing"
	default:
		return "Weak"
	}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
