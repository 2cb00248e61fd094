package types

// ValidationIssue classifies a placeholder validation failure.
type ValidationIssue string

const (
	// IssueMissingRequired means a required placeholder had no value supplied.
	IssueMissingRequired ValidationIssue = "missing_required"
	// IssueInvalidFormat means a supplied value did not match the placeholder type.
	IssueInvalidFormat ValidationIssue = "invalid_format"
)

// ValidationError describes a single placeholder problem. Validation always
// enumerates every problem rather than stopping at the first.
type ValidationError struct {
	Placeholder    string          `json:"placeholder"`
	Issue          ValidationIssue `json:"issue"`
	Detail         string          `json:"detail"`
	ExpectedFormat string          `json:"expected_format,omitempty"`
}

// ValidationResult is the outcome of validating placeholder values for a step.
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

// SubstitutionResult is the outcome of substituting placeholder values into a
// step's query text. Substitution never fails: unresolved placeholders are
// left in place and reported as warnings.
type SubstitutionResult struct {
	QueryText        string            `json:"query_text"`
	PlaceholdersUsed map[string]string `json:"placeholders_used"`
	Warnings         []string          `json:"warnings,omitempty"`
}
