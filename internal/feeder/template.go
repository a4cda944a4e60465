package feeder

import (
	"strings"
)

// RowPlaceholder is replaced by the row value in a value template.
const RowPlaceholder = "{{row}}"

// Render substitutes every {{row}} in template with row. An empty template
// yields the row unchanged.
func Render(template, row string) string {
	if template == "" {
		return row
	}
	return strings.ReplaceAll(template, RowPlaceholder, row)
}
