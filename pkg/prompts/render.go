package prompts

import (
	"fmt"
	"regexp"
	"strings"
)

// placeholderPattern matches {name} placeholders in template text.
var placeholderPattern = regexp.MustCompile(`\{([a-zA-Z_][a-zA-Z0-9_]*)\}`)

// MissingVariableError reports a placeholder with no value supplied.
type MissingVariableError struct {
	// TemplateID is the template being rendered.
	TemplateID string

	// Variable is the placeholder name with no value.
	Variable string
}

// Error implements the error interface.
func (e *MissingVariableError) Error() string {
	return fmt.Sprintf("rendering template %q: missing variable %q", e.TemplateID, e.Variable)
}

// Render fills the template's {name} placeholders from vars. The first
// placeholder without a value fails the render with a
// *MissingVariableError; unused vars are ignored.
func (t *Template) Render(vars map[string]string) (string, error) {
	var missing string
	rendered := placeholderPattern.ReplaceAllStringFunc(t.Text, func(match string) string {
		name := match[1 : len(match)-1]
		value, ok := vars[name]
		if !ok {
			if missing == "" {
				missing = name
			}
			return match
		}
		return value
	})
	if missing != "" {
		return "", &MissingVariableError{TemplateID: t.ID, Variable: missing}
	}
	return rendered, nil
}

// RenderOrRaw renders the template and falls back to the raw template
// text when a variable is missing. Used at the orchestration boundary
// where a degraded prompt beats a failed request.
func (t *Template) RenderOrRaw(vars map[string]string) string {
	rendered, err := t.Render(vars)
	if err != nil {
		return t.Text
	}
	return rendered
}

// Variables lists the distinct placeholder names in the template in
// order of first appearance.
func (t *Template) Variables() []string {
	var names []string
	seen := make(map[string]bool)
	for _, match := range placeholderPattern.FindAllString(t.Text, -1) {
		name := strings.Trim(match, "{}")
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	return names
}
