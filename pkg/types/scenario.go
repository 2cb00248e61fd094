// Package types defines the core records shared across the diagnostics server.
package types

// PlaceholderType classifies a query placeholder by the kind of value it accepts.
type PlaceholderType string

const (
	PlaceholderGUID     PlaceholderType = "guid"
	PlaceholderGUIDList PlaceholderType = "guid_list"
	PlaceholderDatetime PlaceholderType = "datetime"
	PlaceholderString   PlaceholderType = "string"
	PlaceholderInteger  PlaceholderType = "integer"
	PlaceholderBoolean  PlaceholderType = "boolean"
)

// Placeholder is a <Name> token found in a step's query text. Placeholders are
// created once during parsing and never mutated afterwards.
type Placeholder struct {
	// Name is the placeholder identifier (e.g., "DeviceId").
	Name string `json:"name"`
	// Type is inferred from the name during parsing.
	Type PlaceholderType `json:"type"`
	// Required indicates the value must be supplied before execution.
	Required bool `json:"required"`
	// Description is a human-readable hint for the caller.
	Description string `json:"description"`
	// Example is an optional example value.
	Example string `json:"example,omitempty"`
	// FormatHint describes the expected shape (e.g., "comma_separated").
	FormatHint string `json:"format_hint,omitempty"`
}

// ExtractedValue describes a value to harvest from a step's result rows.
type ExtractedValue struct {
	Name        string `json:"name"`
	Column      string `json:"column"`
	Description string `json:"description,omitempty"`
	// Method is how to extract: "first", "all", or "unique".
	Method string `json:"extraction_method,omitempty"`
}

// QueryStep is one numbered step of a scenario. The query text is verbatim
// from the source document and must never be rewritten.
type QueryStep struct {
	// StepNumber is 1-based and unique within its scenario.
	StepNumber int `json:"step_number"`
	// Title is the step heading (e.g., "Get Device Baseline Information").
	Title string `json:"title"`
	// Purpose is taken from a leading "// Purpose: ..." comment in the code block.
	Purpose string `json:"purpose,omitempty"`
	// QueryID is globally unique: "<scenario-slug>_step<n>".
	QueryID string `json:"query_id"`
	// QueryText is the exact query with placeholders, byte-for-byte as written.
	QueryText string `json:"query_text"`
	// Placeholders maps placeholder name to its definition.
	Placeholders map[string]Placeholder `json:"placeholders,omitempty"`
	// Extracts maps value name to its extraction rule.
	Extracts map[string]ExtractedValue `json:"extracts,omitempty"`
	// ProvidesForSteps lists step numbers that consume extracted values.
	ProvidesForSteps []int `json:"provides_for_steps,omitempty"`
	// Optional marks steps whose title contains "optional".
	Optional bool `json:"optional"`
}

// ExecutionMode describes how a scenario's steps are intended to run.
// Informational only; the tracker does not enforce it.
type ExecutionMode string

const (
	ExecutionSequential  ExecutionMode = "sequential"
	ExecutionParallel    ExecutionMode = "parallel"
	ExecutionConditional ExecutionMode = "conditional"
)

// OutputFormat describes the expected shape of a scenario's final answer.
type OutputFormat struct {
	Tables          []string `json:"tables,omitempty"`
	SummaryIncludes []string `json:"summary_includes,omitempty"`
}

// Scenario is a complete diagnostic procedure parsed from the instructions
// document. A scenario with zero steps is never indexed.
type Scenario struct {
	// Slug is the URL-safe unique identifier, from metadata or derived from the title.
	Slug string `json:"slug"`
	// Title is the section heading text.
	Title string `json:"title"`
	// Domain groups scenarios (device, user, application, ...).
	Domain string `json:"domain,omitempty"`
	// Keywords are the explicit search terms from metadata.
	Keywords []string `json:"keywords,omitempty"`
	// RequiredIdentifiers are the top-level inputs the scenario needs.
	RequiredIdentifiers []string `json:"required_identifiers,omitempty"`
	// Aliases are alternative names the scenario answers to.
	Aliases []string `json:"aliases,omitempty"`
	// Description comes from metadata or the free text before the first step.
	Description string `json:"description,omitempty"`
	// Mode is informational (sequential/parallel/conditional).
	Mode ExecutionMode `json:"execution_mode"`
	// CriticalRequirements are bullets collected from a **CRITICAL section.
	CriticalRequirements []string `json:"critical_requirements,omitempty"`
	// Steps are in document order.
	Steps []QueryStep `json:"steps"`
	// Output describes the expected answer format.
	Output OutputFormat `json:"output_format"`
}

// Step returns the step with the given number, or nil.
func (s *Scenario) Step(number int) *QueryStep {
	for i := range s.Steps {
		if s.Steps[i].StepNumber == number {
			return &s.Steps[i]
		}
	}

	return nil
}

// StepByQueryID returns the step with the given query ID, or nil.
func (s *Scenario) StepByQueryID(queryID string) *QueryStep {
	for i := range s.Steps {
		if s.Steps[i].QueryID == queryID {
			return &s.Steps[i]
		}
	}

	return nil
}

// ScenarioSummary is the lightweight projection returned by search. It never
// carries step or query content; exact text is only exposed by get_scenario.
type ScenarioSummary struct {
	Slug                string   `json:"slug"`
	Title               string   `json:"title"`
	Domain              string   `json:"domain"`
	Description         string   `json:"description"`
	RequiredIdentifiers []string `json:"required_identifiers"`
	NumQueries          int      `json:"num_queries"`
	Keywords            []string `json:"keywords"`
}

// summaryDescriptionLimit caps summary descriptions so search results stay small.
const summaryDescriptionLimit = 200

// Summarize builds the search projection of a scenario.
func (s *Scenario) Summarize() ScenarioSummary {
	desc := s.Description
	if len(desc) > summaryDescriptionLimit {
		desc = desc[:summaryDescriptionLimit] + "..."
	}

	return ScenarioSummary{
		Slug:                s.Slug,
		Title:               s.Title,
		Domain:              s.Domain,
		Description:         desc,
		RequiredIdentifiers: s.RequiredIdentifiers,
		NumQueries:          len(s.Steps),
		Keywords:            s.Keywords,
	}
}
