package flags

import (
	"fmt"
	"strings"
)

const (
	choiceListTemplate        = "`<%s>`"
	choiceDescriptionTemplate = "%s %s"
	choiceSeparator           = "|"
)

// FormatChoiceUsage renders flag usage listing the accepted values, with the default in upper case.
// Blank and repeated choices are dropped.
func FormatChoiceUsage(defaultChoice string, choices []string, description string) string {
	defaultKey := strings.ToLower(strings.TrimSpace(defaultChoice))
	rendered := make([]string, 0, len(choices))
	seen := make(map[string]bool, len(choices))

	for _, choice := range choices {
		trimmed := strings.TrimSpace(choice)
		key := strings.ToLower(trimmed)
		if len(key) == 0 || seen[key] {
			continue
		}
		seen[key] = true
		if key == defaultKey {
			trimmed = strings.ToUpper(trimmed)
		}
		rendered = append(rendered, trimmed)
	}

	usage := fmt.Sprintf(choiceListTemplate, strings.Join(rendered, choiceSeparator))
	if len(strings.TrimSpace(description)) == 0 {
		return usage
	}
	return fmt.Sprintf(choiceDescriptionTemplate, usage, description)
}
