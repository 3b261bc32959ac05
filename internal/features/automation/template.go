package automation

import (
	"regexp"
	"strings"
)

var placeholderPattern = regexp.MustCompile(`\{\{\s*([A-Za-z_][A-Za-z0-9_]*)\s*\}\}`)

// TemplateFields are the values a message template can reference. Keys are
// matched case-insensitively.
type TemplateFields map[string]string

// RenderTemplate substitutes {{field}} placeholders. Unknown or empty fields
// render as the empty string.
func RenderTemplate(tpl string, fields TemplateFields) string {
	if tpl == "" {
		return ""
	}
	lookup := make(map[string]string, len(fields))
	for k, v := range fields {
		lookup[strings.ToLower(k)] = v
	}
	return placeholderPattern.ReplaceAllStringFunc(tpl, func(match string) string {
		name := placeholderPattern.FindStringSubmatch(match)[1]
		return lookup[strings.ToLower(name)]
	})
}

// Placeholders lists the distinct placeholder names used by tpl.
func Placeholders(tpl string) []string {
	names := []string{}
	seen := map[string]bool{}
	for _, m := range placeholderPattern.FindAllStringSubmatch(tpl, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			names = append(names, m[1])
		}
	}
	return names
}
