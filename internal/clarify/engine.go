package clarify

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"steward/internal/store"
	"steward/pkg/logging"
)

// DefaultMaxQuestions bounds the emitted question list.
const DefaultMaxQuestions = 5

// requiredSections are checked for presence in spec-file mode. A missing
// section is injected as an unknown item scored on the section name.
var requiredSections = []string{
	"Feature Description",
	"Acceptance Criteria",
	"Security Requirements",
	"Performance Requirements",
	"Dependencies",
}

// Question is one emitted clarification item.
type Question struct {
	Section     string      `json:"section"`
	Question    string      `json:"question"`
	Impact      Impact      `json:"impact"`
	Uncertainty Uncertainty `json:"uncertainty"`
	Priority    int         `json:"priority"`
	Matched     string      `json:"matched_phrase,omitempty"`
}

// Analysis is the engine's result for one spec file or session.
type Analysis struct {
	Status       string     `json:"status"`
	ClarityScore float64    `json:"clarity_score"`
	Questions    []Question `json:"questions"`
}

// Engine classifies requirement fragments and generates the prioritized
// question list.
type Engine struct {
	patterns     []AmbiguityPattern
	maxQuestions int
}

// Option configures an Engine.
type Option func(*Engine)

// WithMaxQuestions overrides the question cap.
func WithMaxQuestions(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxQuestions = n
		}
	}
}

// WithPatterns replaces the ambiguity pattern list.
func WithPatterns(patterns []AmbiguityPattern) Option {
	return func(e *Engine) { e.patterns = patterns }
}

// NewEngine builds an engine with the default patterns and cap.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		patterns:     DefaultAmbiguityPatterns(),
		maxQuestions: DefaultMaxQuestions,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ScoreText returns the clarity value of one text fragment, the same
// per-section value spec-file mode averages.
func (e *Engine) ScoreText(text string) float64 {
	uncertainty, _ := ClassifyUncertainty(text, e.patterns)
	return clarityValue[uncertainty]
}

// section is one (heading, body) pair under analysis.
type section struct {
	name            string
	body            string
	requirementType string
	forceAssumed    bool
}

// AnalyzeText runs spec-file mode over Markdown text already in memory.
func (e *Engine) AnalyzeText(text string) *Analysis {
	sections := parseSections(text)
	present := make(map[string]bool, len(sections))
	for _, s := range sections {
		present[strings.ToLower(s.name)] = true
	}
	for _, name := range requiredSections {
		if !present[strings.ToLower(name)] {
			sections = append(sections, section{name: name})
		}
	}
	return e.analyze(sections)
}

// AnalyzeSpecFile runs spec-file mode over a Markdown file on disk.
func (e *Engine) AnalyzeSpecFile(path string) (*Analysis, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read spec file: %w", err)
	}
	return e.AnalyzeText(string(data)), nil
}

// AnalyzeSession runs session mode over stored intake requirements. Rows
// with a stored clarity or completeness score below 0.5 are included as
// assumed candidates even when hedge detection misses them.
func (e *Engine) AnalyzeSession(ctx context.Context, st *store.Store, sessionID string) (*Analysis, error) {
	if _, err := st.GetIntakeSession(ctx, sessionID); err != nil {
		return nil, err
	}
	reqs, err := st.ListIntakeRequirements(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	sections := make([]section, 0, len(reqs))
	for _, req := range reqs {
		sections = append(sections, section{
			name:            fmt.Sprintf("requirement-%d", req.ID),
			body:            req.RawText,
			requirementType: req.RequirementType,
			forceAssumed:    lowScore(req.ClarityScore) || lowScore(req.CompletenessScore),
		})
	}
	return e.analyze(sections), nil
}

func lowScore(score *float64) bool {
	return score != nil && *score < 0.5
}

func (e *Engine) analyze(sections []section) *Analysis {
	var questions []Question
	var claritySum float64

	for _, s := range sections {
		impact := ClassifyImpact(s.name+" "+s.body, s.requirementType)
		uncertainty, matched := ClassifyUncertainty(s.body, e.patterns)
		if s.forceAssumed && uncertainty != UncertaintyUnknown && uncertainty != UncertaintyAmbiguous {
			uncertainty = UncertaintyAssumed
		}
		claritySum += clarityValue[uncertainty]

		questions = append(questions, Question{
			Section:     s.name,
			Question:    e.question(s.name, uncertainty, matched),
			Impact:      impact,
			Uncertainty: uncertainty,
			Priority:    Priority(impact, uncertainty),
			Matched:     matched,
		})
	}

	sort.SliceStable(questions, func(i, j int) bool {
		if questions[i].Priority != questions[j].Priority {
			return questions[i].Priority < questions[j].Priority
		}
		if impactRank[questions[i].Impact] != impactRank[questions[j].Impact] {
			return impactRank[questions[i].Impact] < impactRank[questions[j].Impact]
		}
		return questions[i].Section < questions[j].Section
	})
	if len(questions) > e.maxQuestions {
		questions = questions[:e.maxQuestions]
	}

	clarity := 0.0
	if len(sections) > 0 {
		clarity = claritySum / float64(len(sections))
	}
	logging.Debug("Clarify", "Analyzed %d sections, clarity %.2f, %d questions",
		len(sections), clarity, len(questions))
	return &Analysis{Status: "ok", ClarityScore: clarity, Questions: questions}
}

// question renders the per-uncertainty question text.
func (e *Engine) question(sectionName string, uncertainty Uncertainty, matched string) string {
	switch uncertainty {
	case UncertaintyUnknown:
		return fmt.Sprintf("What are the specific requirements for %s?", sectionName)
	case UncertaintyAmbiguous:
		clarification := "define the term precisely"
		for _, p := range e.patterns {
			if strings.EqualFold(p.Phrase, matched) {
				clarification = p.Clarification
				break
			}
		}
		return fmt.Sprintf("The phrase %q in %s is ambiguous: %s.", matched, sectionName, clarification)
	default:
		if matched != "" {
			return fmt.Sprintf("The word %q in %s suggests an assumption: is this a MUST or a SHOULD?", matched, sectionName)
		}
		return fmt.Sprintf("Please confirm the assumptions in %s: which statements are MUST and which are SHOULD?", sectionName)
	}
}

// parseSections splits Markdown text into (heading, body) pairs on "## "
// headings. Text before the first heading is ignored.
func parseSections(text string) []section {
	var sections []section
	var current *section
	for _, line := range strings.Split(text, "\n") {
		if heading, ok := strings.CutPrefix(line, "## "); ok {
			if current != nil {
				sections = append(sections, *current)
			}
			current = &section{name: strings.TrimSpace(heading)}
			continue
		}
		if current != nil {
			current.body += line + "\n"
		}
	}
	if current != nil {
		sections = append(sections, *current)
	}
	for i := range sections {
		sections[i].body = strings.TrimSpace(sections[i].body)
	}
	return sections
}
