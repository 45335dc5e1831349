package assess

import (
	"fmt"
	"sort"
	"strings"

	"steward/internal/catalog"
	"steward/internal/store"
)

// GateResult is a deployment gate verdict with the reasons it failed.
// An empty Reasons slice with Passed false never occurs: every failing
// gate names what blocked it.
type GateResult struct {
	Framework string   `json:"framework"`
	Passed    bool     `json:"passed"`
	Reasons   []string `json:"reasons,omitempty"`
}

// fedrampCriticalControls must have no other-than-satisfied judgment
// before a FedRAMP gate can pass.
var fedrampCriticalControls = []string{"AC-2", "AU-2", "CM-6", "IA-2", "SC-7"}

// fedrampRequiredFamilies must each have at least one assessed control.
var fedrampRequiredFamilies = []string{"AC", "AU", "CA", "CM", "IA", "RA", "SA", "SC"}

// EvaluateGate applies the framework's deployment gate rule to the
// project's assessment rows and findings.
func EvaluateGate(frameworkID string, cat *catalog.Catalog, rows []store.AssessmentRow, counts Counts, score float64, stig []store.STIGFinding, ivv []store.IVVFinding) GateResult {
	res := GateResult{Framework: frameworkID}

	switch frameworkID {
	case "stig":
		res.Reasons = stigGate(stig)
	case "cmmc":
		if counts.NotSatisfied > 0 {
			res.Reasons = append(res.Reasons,
				fmt.Sprintf("%d practice(s) not met; CMMC requires every practice met or partially met", counts.NotSatisfied))
		}
	case "fedramp":
		res.Reasons = fedrampGate(rows, score)
	case "sbd":
		res.Reasons = criticalNotSatisfiedReasons(cat, rows, "Secure by Design commitment")
	case "ivv":
		res.Reasons = ivvGate(ivv)
	case "atlas":
		if counts.NotSatisfied > 0 {
			res.Reasons = append(res.Reasons,
				fmt.Sprintf("%d mitigation(s) not satisfied", counts.NotSatisfied))
		}
		if cov := counts.Coverage(); cov < 80 {
			res.Reasons = append(res.Reasons,
				fmt.Sprintf("mitigation coverage %.1f%% below 80%% threshold", cov))
		}
	default:
		// nist_800_53, fips, cssp, zta share the baseline rule: composite
		// score at least 80 with no critical requirement left unsatisfied.
		if score < 80 {
			res.Reasons = append(res.Reasons,
				fmt.Sprintf("composite score %.1f below 80.0 threshold", score))
		}
		res.Reasons = append(res.Reasons, criticalNotSatisfiedReasons(cat, rows, "critical requirement")...)
	}

	res.Passed = len(res.Reasons) == 0
	return res
}

func stigGate(findings []store.STIGFinding) []string {
	var open []string
	for _, f := range findings {
		if strings.EqualFold(f.Severity, "CAT1") && strings.EqualFold(f.Status, "Open") {
			open = append(open, f.VulnID)
		}
	}
	if len(open) == 0 {
		return nil
	}
	sort.Strings(open)
	return []string{fmt.Sprintf("%d open CAT I finding(s): %s", len(open), strings.Join(open, ", "))}
}

func fedrampGate(rows []store.AssessmentRow, score float64) []string {
	var reasons []string
	byID := make(map[string]Status, len(rows))
	familyAssessed := make(map[string]bool)
	for _, row := range rows {
		s := Status(row.Status)
		byID[row.RequirementID] = s
		if s != StatusNotAssessed {
			familyAssessed[controlFamily(row.RequirementID)] = true
		}
	}

	for _, id := range fedrampCriticalControls {
		if byID[id] == StatusNotSatisfied {
			reasons = append(reasons, fmt.Sprintf("critical control %s is other than satisfied", id))
		}
	}
	if score < 80 {
		reasons = append(reasons, fmt.Sprintf("composite score %.1f below 80.0 threshold", score))
	}
	for _, family := range fedrampRequiredFamilies {
		if !familyAssessed[family] {
			reasons = append(reasons, fmt.Sprintf("control family %s has no assessed controls", family))
		}
	}
	return reasons
}

func ivvGate(findings []store.IVVFinding) []string {
	var open []string
	for _, f := range findings {
		if !strings.EqualFold(f.Severity, "critical") {
			continue
		}
		switch strings.ToLower(f.Status) {
		case "open", "in_progress":
			open = append(open, f.FindingID)
		}
	}
	if len(open) == 0 {
		return nil
	}
	sort.Strings(open)
	return []string{fmt.Sprintf("%d unresolved critical finding(s): %s", len(open), strings.Join(open, ", "))}
}

// criticalNotSatisfiedReasons names every critical-priority requirement
// currently not satisfied.
func criticalNotSatisfiedReasons(cat *catalog.Catalog, rows []store.AssessmentRow, label string) []string {
	var reasons []string
	for _, row := range rows {
		if Status(row.Status) != StatusNotSatisfied {
			continue
		}
		req, ok := cat.Lookup(row.RequirementID)
		if !ok || req.Priority != "critical" {
			continue
		}
		reasons = append(reasons, fmt.Sprintf("%s %s is not satisfied", label, row.RequirementID))
	}
	return reasons
}

// controlFamily extracts the NIST family prefix from a control id, e.g.
// "AC-2" and "AC-2(1)" both map to "AC".
func controlFamily(controlID string) string {
	if i := strings.IndexAny(controlID, "-."); i > 0 {
		return controlID[:i]
	}
	return controlID
}
