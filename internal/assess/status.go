// Package assess implements the assessment engines: for a given project
// and framework, evaluate each catalog requirement, upsert assessment
// rows and emit an audit event, then compute composite scores and the
// deployment gate.
package assess

import (
	"fmt"
	"strings"
)

// Status is the canonical assessment status stored for every framework.
// Framework-specific vocabularies (met/not_met, pass/fail) are normalized
// to this set at the storage boundary.
type Status string

const (
	StatusSatisfied          Status = "satisfied"
	StatusPartiallySatisfied Status = "partially_satisfied"
	StatusNotSatisfied       Status = "not_satisfied"
	StatusNotApplicable      Status = "not_applicable"
	StatusNotAssessed        Status = "not_assessed"
	StatusRiskAccepted       Status = "risk_accepted"
)

// statusSynonyms maps per-framework display vocabularies onto the
// canonical set.
var statusSynonyms = map[string]Status{
	"satisfied":           StatusSatisfied,
	"met":                 StatusSatisfied,
	"pass":                StatusSatisfied,
	"implemented":         StatusSatisfied,
	"partially_satisfied": StatusPartiallySatisfied,
	"partially_met":       StatusPartiallySatisfied,
	"partial":             StatusPartiallySatisfied,
	"not_satisfied":       StatusNotSatisfied,
	"not_met":             StatusNotSatisfied,
	"fail":                StatusNotSatisfied,
	"other_than_satisfied": StatusNotSatisfied,
	"not_applicable":      StatusNotApplicable,
	"na":                  StatusNotApplicable,
	"n/a":                 StatusNotApplicable,
	"not_assessed":        StatusNotAssessed,
	"not_reviewed":        StatusNotAssessed,
	"risk_accepted":       StatusRiskAccepted,
	"accepted_risk":       StatusRiskAccepted,
}

// Normalize maps a raw status string to its canonical form. Unknown
// values normalize to not_assessed rather than failing: assessments must
// be total over their input.
func Normalize(raw string) Status {
	if s, err := Parse(raw); err == nil {
		return s
	}
	return StatusNotAssessed
}

// Parse maps a raw status onto the canonical set and rejects values
// outside the known vocabulary. Callers recording explicit judgments use
// this instead of Normalize so a typo surfaces as an error.
func Parse(raw string) (Status, error) {
	key := strings.ToLower(strings.TrimSpace(raw))
	key = strings.ReplaceAll(key, " ", "_")
	if s, ok := statusSynonyms[key]; ok {
		return s, nil
	}
	return "", fmt.Errorf("unknown assessment status: %s", raw)
}

// Valid reports whether s is a member of the canonical set.
func Valid(s Status) bool {
	switch s {
	case StatusSatisfied, StatusPartiallySatisfied, StatusNotSatisfied,
		StatusNotApplicable, StatusNotAssessed, StatusRiskAccepted:
		return true
	}
	return false
}

// cmmcDisplay is the CMMC rendering of the canonical statuses.
var cmmcDisplay = map[Status]string{
	StatusSatisfied:          "met",
	StatusPartiallySatisfied: "partially_met",
	StatusNotSatisfied:       "not_met",
	StatusNotApplicable:      "not_applicable",
	StatusNotAssessed:        "not_assessed",
	StatusRiskAccepted:       "risk_accepted",
}

// DisplayStatus renders a canonical status in a framework's native
// vocabulary for report output.
func DisplayStatus(frameworkID string, s Status) string {
	if frameworkID == "cmmc" {
		if d, ok := cmmcDisplay[s]; ok {
			return d
		}
	}
	return string(s)
}
