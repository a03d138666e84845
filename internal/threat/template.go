package threat

import (
	"fmt"
	"strings"

	"github.com/jmerrifield20/seasense/internal/vessel/model"
)

// templateFields returns the placeholder names in tmpl, in order.
// An unterminated "{" is literal text.
func templateFields(tmpl string) []string {
	var fields []string
	rest := tmpl
	for {
		open := strings.IndexByte(rest, '{')
		if open < 0 {
			return fields
		}
		end := strings.IndexByte(rest[open:], '}')
		if end < 0 {
			return fields
		}
		fields = append(fields, rest[open+1:open+end])
		rest = rest[open+end+1:]
	}
}

// checkTemplate rejects placeholders that do not name a registry field.
func checkTemplate(tmpl string) error {
	blank := &model.Vessel{}
	for _, f := range templateFields(tmpl) {
		if _, ok := blank.Field(f); !ok {
			return fmt.Errorf("description references unknown field {%s}", f)
		}
	}
	return nil
}

// renderDescription substitutes {field} placeholders with values from v.
// A nil record or an unknown field renders as an empty string.
func renderDescription(tmpl string, v *model.Vessel) string {
	if !strings.Contains(tmpl, "{") {
		return tmpl
	}
	var b strings.Builder
	rest := tmpl
	for {
		open := strings.IndexByte(rest, '{')
		if open < 0 {
			break
		}
		end := strings.IndexByte(rest[open:], '}')
		if end < 0 {
			break
		}
		b.WriteString(rest[:open])
		if v != nil {
			val, _ := v.Field(rest[open+1 : open+end])
			b.WriteString(val)
		}
		rest = rest[open+end+1:]
	}
	b.WriteString(rest)
	return b.String()
}
