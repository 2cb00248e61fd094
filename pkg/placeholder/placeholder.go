// Package placeholder validates caller-supplied values against a step's
// placeholder definitions and substitutes them into the step's verbatim query
// text. Validation is side-effect free. Substitution never fails outright;
// unresolved tokens are surfaced as warnings so the caller can retry with
// corrected values.
package placeholder

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/devicehealth/diagnostics-mcp/pkg/types"
)

// Canonical value shapes.
var (
	guidRe = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

	dateOnlyRe    = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	dateTimeRe    = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}[ T]\d{2}:\d{2}:\d{2}$`)
	wrappedDateRe = regexp.MustCompile(`^datetime\(["']?\d{4}-\d{2}-\d{2}`)
	placeholderRe = regexp.MustCompile(`<([A-Za-z][A-Za-z0-9_]*)>`)
)

const (
	guidFormat     = "xxxxxxxx-xxxx-xxxx-xxxx-xxxxxxxxxxxx"
	datetimeFormat = "YYYY-MM-DD HH:MM:SS or datetime(YYYY-MM-DD HH:MM:SS)"
)

// IsValidGUID reports whether the value matches the canonical 8-4-4-4-12
// hex-with-hyphens shape, case-insensitive.
func IsValidGUID(value string) bool {
	return guidRe.MatchString(value)
}

// IsValidDatetime accepts date-only, date-time, or a wrapped datetime(...)
// literal.
func IsValidDatetime(value string) bool {
	return dateOnlyRe.MatchString(value) ||
		dateTimeRe.MatchString(value) ||
		wrappedDateRe.MatchString(value)
}

// Validate checks supplied values against a step's placeholder definitions.
// Every problem is enumerated; the step and values are never mutated.
func Validate(step *types.QueryStep, values map[string]string) types.ValidationResult {
	errors := make([]types.ValidationError, 0)

	for name, ph := range step.Placeholders {
		value, supplied := values[name]

		if !supplied {
			if ph.Required {
				errors = append(errors, types.ValidationError{
					Placeholder: name,
					Issue:       types.IssueMissingRequired,
					Detail:      "Required placeholder not provided",
				})
			}

			continue
		}

		switch ph.Type {
		case types.PlaceholderGUID:
			if !IsValidGUID(value) {
				errors = append(errors, types.ValidationError{
					Placeholder:    name,
					Issue:          types.IssueInvalidFormat,
					Detail:         "Invalid GUID format",
					ExpectedFormat: guidFormat,
				})
			}

		case types.PlaceholderDatetime:
			if !IsValidDatetime(value) {
				errors = append(errors, types.ValidationError{
					Placeholder:    name,
					Issue:          types.IssueInvalidFormat,
					Detail:         "Invalid datetime format",
					ExpectedFormat: datetimeFormat,
				})
			}
		}
	}

	return types.ValidationResult{Valid: len(errors) == 0, Errors: errors}
}

// Substitute replaces every occurrence of each supplied <Name> token in the
// step's query text with its literal value. Tokens without a supplied value
// are left untouched and reported as warnings.
func Substitute(step *types.QueryStep, values map[string]string) types.SubstitutionResult {
	query := step.QueryText
	used := make(map[string]string)
	warnings := make([]string, 0)
	warned := make(map[string]bool)

	for _, m := range placeholderRe.FindAllStringSubmatch(step.QueryText, -1) {
		name := m[1]

		value, ok := values[name]
		if !ok {
			if !warned[name] {
				warnings = append(warnings, fmt.Sprintf("Placeholder <%s> not provided - left as-is", name))
				warned[name] = true
			}

			continue
		}

		if _, done := used[name]; done {
			continue
		}

		used[name] = value
		query = strings.ReplaceAll(query, "<"+name+">", value)
	}

	return types.SubstitutionResult{
		QueryText:        query,
		PlaceholdersUsed: used,
		Warnings:         warnings,
	}
}
