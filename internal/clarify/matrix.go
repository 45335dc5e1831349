// Package clarify implements the requirements clarification engine: an
// Impact x Uncertainty matrix over spec text or intake sessions that
// emits a bounded, prioritized list of clarification questions.
package clarify

// Impact classifies what a requirement affects.
type Impact string

const (
	ImpactMissionCritical    Impact = "mission_critical"
	ImpactComplianceRequired Impact = "compliance_required"
	ImpactEnhancement        Impact = "enhancement"
)

// Uncertainty classifies how unclear the requirement text is.
type Uncertainty string

const (
	UncertaintyUnknown   Uncertainty = "unknown"
	UncertaintyAmbiguous Uncertainty = "ambiguous"
	UncertaintyAssumed   Uncertainty = "assumed"
)

// priorityMatrix maps (impact, uncertainty) to question priority,
// 1 = highest.
var priorityMatrix = map[Impact]map[Uncertainty]int{
	ImpactMissionCritical: {
		UncertaintyUnknown:   1,
		UncertaintyAmbiguous: 2,
		UncertaintyAssumed:   3,
	},
	ImpactComplianceRequired: {
		UncertaintyUnknown:   2,
		UncertaintyAmbiguous: 3,
		UncertaintyAssumed:   4,
	},
	ImpactEnhancement: {
		UncertaintyUnknown:   3,
		UncertaintyAmbiguous: 4,
		UncertaintyAssumed:   5,
	},
}

// impactRank orders impacts for tie-breaking, most severe first.
var impactRank = map[Impact]int{
	ImpactMissionCritical:    0,
	ImpactComplianceRequired: 1,
	ImpactEnhancement:        2,
}

// Priority resolves the matrix cell for one classified item.
func Priority(impact Impact, uncertainty Uncertainty) int {
	return priorityMatrix[impact][uncertainty]
}

// clarityValue maps an uncertainty level to its clarity contribution.
var clarityValue = map[Uncertainty]float64{
	UncertaintyUnknown:   0.0,
	UncertaintyAmbiguous: 0.5,
	UncertaintyAssumed:   0.8,
}
