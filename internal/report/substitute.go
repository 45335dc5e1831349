package report

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// templatePattern matches {{ variable_name }} placeholders, with or
// without surrounding spaces.
var templatePattern = regexp.MustCompile(`\{\{\s*([a-zA-Z_][a-zA-Z0-9_]*)\s*\}\}`)

// Substitute replaces every known {{variable}} placeholder in the
// template. Unknown variables pass through unchanged so partially filled
// templates survive round trips.
func Substitute(template string, vars map[string]interface{}) string {
	return templatePattern.ReplaceAllStringFunc(template, func(placeholder string) string {
		name := templatePattern.FindStringSubmatch(placeholder)[1]
		value, ok := vars[name]
		if !ok {
			return placeholder
		}
		return formatValue(value)
	})
}

// Variables returns the distinct placeholder names in the template, in
// first-appearance order.
func Variables(template string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, match := range templatePattern.FindAllStringSubmatch(template, -1) {
		if !seen[match[1]] {
			seen[match[1]] = true
			out = append(out, match[1])
		}
	}
	return out
}

func formatValue(value interface{}) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', 1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', 1, 32)
	case int, int32, int64:
		return fmt.Sprintf("%d", v)
	case bool:
		return strconv.FormatBool(v)
	case []string:
		return strings.Join(v, ", ")
	default:
		return fmt.Sprintf("%v", v)
	}
}
