package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSubstitute(t *testing.T) {
	vars := map[string]interface{}{
		"project_id": "demo",
		"score":      94.44,
		"total":      10,
		"passed":     true,
	}

	tests := []struct {
		name     string
		template string
		want     string
	}{
		{"plain", "Project {{project_id}}", "Project demo"},
		{"spaced", "Project {{ project_id }}", "Project demo"},
		{"float one decimal", "Score: {{score}}", "Score: 94.4"},
		{"int", "Total: {{total}}", "Total: 10"},
		{"bool", "Gate: {{passed}}", "Gate: true"},
		{"unknown passes through", "Keep {{unknown_var}} as-is", "Keep {{unknown_var}} as-is"},
		{"repeated", "{{project_id}}/{{project_id}}", "demo/demo"},
		{"no placeholders", "static text", "static text"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Substitute(tt.template, vars))
		})
	}
}

func TestVariables(t *testing.T) {
	names := Variables("{{b}} {{a}} {{b}} {{ c }}")
	assert.Equal(t, []string{"b", "a", "c"}, names)
}
