package validate

import "fmt"

// Form field length limits, shared with the widget page via /api/limits.
const (
	MaxPromptLength = 2000
	MaxKeyLength    = 256
)

func checkLen(value string, max int, field string) string {
	if len(value) > max {
		return fmt.Sprintf("%s must be %d characters or fewer", field, max)
	}
	return ""
}

func Prompt(s string) string { return checkLen(s, MaxPromptLength, "prompt") }
func Key(s string) string    { return checkLen(s, MaxKeyLength, "key") }

// FieldLimits returns a map of field names to max lengths for the /api/limits endpoint.
func FieldLimits() map[string]int {
	return map[string]int{
		"prompt": MaxPromptLength,
		"key":    MaxKeyLength,
	}
}
