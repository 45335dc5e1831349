package mcpserver

import (
	"fmt"
	"regexp"
	"strings"
)

var placeholderPattern = regexp.MustCompile(`\{([a-zA-Z_][a-zA-Z0-9_]*)\}`)

// uriTemplate matches resource URIs containing {name} placeholders. Each
// placeholder captures exactly one path segment (no '/'); templates that
// would require a capture to span segments are rejected at registration.
type uriTemplate struct {
	raw   string
	re    *regexp.Regexp
	names []string
}

// compileURITemplate builds a matcher for a templated URI, or returns nil
// if the URI contains no placeholders.
func compileURITemplate(uri string) (*uriTemplate, error) {
	matches := placeholderPattern.FindAllStringSubmatchIndex(uri, -1)
	if len(matches) == 0 {
		if strings.ContainsAny(uri, "{}") {
			return nil, fmt.Errorf("malformed placeholder in resource URI %q", uri)
		}
		return nil, nil
	}
	if strings.Contains(stripPlaceholders(uri), "{") || strings.Contains(stripPlaceholders(uri), "}") {
		return nil, fmt.Errorf("malformed placeholder in resource URI %q", uri)
	}

	var sb strings.Builder
	sb.WriteString("^")
	var names []string
	last := 0
	for _, m := range matches {
		sb.WriteString(regexp.QuoteMeta(uri[last:m[0]]))
		name := uri[m[2]:m[3]]
		names = append(names, name)
		sb.WriteString(`([^/]+)`)
		last = m[1]
	}
	sb.WriteString(regexp.QuoteMeta(uri[last:]))
	sb.WriteString("$")

	re, err := regexp.Compile(sb.String())
	if err != nil {
		return nil, fmt.Errorf("failed to compile resource URI template %q: %w", uri, err)
	}
	return &uriTemplate{raw: uri, re: re, names: names}, nil
}

func stripPlaceholders(uri string) string {
	return placeholderPattern.ReplaceAllString(uri, "")
}

// match returns the named captures for uri, or false if it does not match.
func (t *uriTemplate) match(uri string) (map[string]string, bool) {
	m := t.re.FindStringSubmatch(uri)
	if m == nil {
		return nil, false
	}
	params := make(map[string]string, len(t.names))
	for i, name := range t.names {
		params[name] = m[i+1]
	}
	return params, true
}
