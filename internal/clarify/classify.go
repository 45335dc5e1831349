package clarify

import "strings"

// missionCriticalKeywords mark requirements whose failure degrades the
// mission itself.
var missionCriticalKeywords = []string{
	"mission critical", "mission-critical", "safety", "real-time", "real time",
	"availability", "uptime", "failover", "disaster recovery", "latency",
	"throughput", "performance", "scalability",
}

// complianceKeywords mark requirements bound to a regulatory framework.
var complianceKeywords = []string{
	"nist", "stig", "fedramp", "cmmc", "fips", "cui", "audit", "encryption",
	"hipaa", "pci", "rmf", "ato", "security", "compliance", "classified",
	"access control", "authentication",
}

// hedgeWords signal an assumption the author did not pin down.
var hedgeWords = []string{
	"should", "probably", "likely", "typically", "usually", "might",
	"perhaps", "may", "could", "assume", "assumed", "expected", "ideally",
	"generally", "presumably",
}

// AmbiguityPattern is one configured vague phrase with the clarification
// it calls for.
type AmbiguityPattern struct {
	Phrase        string `yaml:"phrase" json:"phrase"`
	Clarification string `yaml:"clarification" json:"clarification"`
}

// DefaultAmbiguityPatterns cover the vague phrasing that shows up most in
// requirement intake.
func DefaultAmbiguityPatterns() []AmbiguityPattern {
	return []AmbiguityPattern{
		{Phrase: "as needed", Clarification: "state the concrete trigger condition"},
		{Phrase: "as appropriate", Clarification: "state who decides and by what criteria"},
		{Phrase: "appropriate", Clarification: "define what qualifies as appropriate"},
		{Phrase: "user-friendly", Clarification: "name measurable usability criteria"},
		{Phrase: "fast", Clarification: "give a numeric latency or throughput target"},
		{Phrase: "robust", Clarification: "enumerate the failure modes to survive"},
		{Phrase: "flexible", Clarification: "list the variations that must be supported"},
		{Phrase: "scalable", Clarification: "give the target load and growth rate"},
		{Phrase: "secure", Clarification: "name the framework or controls that define secure"},
		{Phrase: "tbd", Clarification: "supply the missing decision"},
		{Phrase: "etc", Clarification: "enumerate the full list"},
		{Phrase: "and so on", Clarification: "enumerate the full list"},
		{Phrase: "various", Clarification: "enumerate the cases"},
		{Phrase: "some", Clarification: "quantify how many"},
	}
}

// ClassifyImpact is a total function over free text with optional
// requirement-type context. The mission-critical rule is evaluated in
// full before the compliance rule, so a mission keyword outranks a
// security or compliance type hint.
func ClassifyImpact(text, requirementType string) Impact {
	lower := strings.ToLower(text)
	if requirementType == "performance" || requirementType == "infrastructure" {
		return ImpactMissionCritical
	}
	for _, kw := range missionCriticalKeywords {
		if strings.Contains(lower, kw) {
			return ImpactMissionCritical
		}
	}
	if requirementType == "security" || requirementType == "compliance" {
		return ImpactComplianceRequired
	}
	for _, kw := range complianceKeywords {
		if strings.Contains(lower, kw) {
			return ImpactComplianceRequired
		}
	}
	return ImpactEnhancement
}

// ClassifyUncertainty grades the text and returns the phrase that drove
// the grade: the matched ambiguity phrase or hedge word, empty for
// unknown and the bare-assumed default.
func ClassifyUncertainty(text string, patterns []AmbiguityPattern) (Uncertainty, string) {
	if wordCount(text) < 10 {
		return UncertaintyUnknown, ""
	}
	lower := strings.ToLower(text)
	for _, p := range patterns {
		if strings.Contains(lower, strings.ToLower(p.Phrase)) {
			return UncertaintyAmbiguous, p.Phrase
		}
	}
	for _, word := range strings.Fields(lower) {
		trimmed := strings.Trim(word, ".,;:!?()\"'")
		for _, hedge := range hedgeWords {
			if trimmed == hedge {
				return UncertaintyAssumed, hedge
			}
		}
	}
	return UncertaintyAssumed, ""
}

func wordCount(text string) int {
	return len(strings.Fields(text))
}
