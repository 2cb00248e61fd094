// Package parser turns the semi-structured instructions document into typed
// scenario records. The grammar is informal markdown: level-3 headings open
// scenarios, HTML-comment blocks carry metadata, bold "Step N:" markers open
// steps, and fenced code blocks hold verbatim query text.
package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/devicehealth/diagnostics-mcp/pkg/types"
)

// Line patterns for the document grammar.
var (
	scenarioHeadingRe  = regexp.MustCompile(`^###\s+(.*)`)
	metadataStartRe    = regexp.MustCompile(`^<!--\s*$`)
	metadataEndRe      = regexp.MustCompile(`^-->\s*$`)
	metadataFieldRe    = regexp.MustCompile(`^-\s*(\w+):\s*(.*)$`)
	codeFenceStartRe   = regexp.MustCompile(`(?i)^` + "```" + `(kusto|sql|kql)?\s*$`)
	codeFenceEndRe     = regexp.MustCompile(`^` + "```" + `\s*$`)
	stepHeadingRe      = regexp.MustCompile(`(?i)^\*\*Step\s+(\d+):\s+(.*?)\*\*`)
	purposeCommentRe   = regexp.MustCompile(`(?i)^//\s*Purpose:\s*(.*)`)
	criticalSectionRe  = regexp.MustCompile(`(?i)^\*\*CRITICAL`)
	executionSectionRe = regexp.MustCompile(`(?i)^\*\*EXECUTION\s+INSTRUCTIONS`)
	outputSectionRe    = regexp.MustCompile(`(?i)^\*\*Output\s+Format`)
	placeholderRe      = regexp.MustCompile(`<([A-Za-z][A-Za-z0-9_]*)>`)
	slugCleanRe        = regexp.MustCompile(`[^a-z0-9]+`)
)

// Parser parses instruction documents into scenarios. Construction errors in
// one scenario are logged and skipped; a single bad section never aborts the
// whole document.
type Parser struct {
	log logrus.FieldLogger
}

// New creates a document parser.
func New(log logrus.FieldLogger) *Parser {
	return &Parser{
		log: log.WithField("component", "instructions_parser"),
	}
}

// Parse scans the document line by line and returns scenarios in document
// order. Duplicate titles are merged and scenarios without steps dropped.
func (p *Parser) Parse(content string) []types.Scenario {
	lines := strings.Split(content, "\n")
	scenarios := make([]types.Scenario, 0)

	i := 0
	for i < len(lines) {
		if m := scenarioHeadingRe.FindStringSubmatch(lines[i]); m != nil {
			scenario, next, err := p.parseScenario(lines, i)
			if err != nil {
				p.log.WithError(err).WithField("line", i+1).Warn("Skipping malformed scenario")
				i = next

				continue
			}

			if len(scenario.Steps) > 0 {
				scenarios = append(scenarios, scenario)
			}

			i = next

			continue
		}

		i++
	}

	return mergeDuplicateTitles(scenarios)
}

// classifierState tracks where the line classifier is inside a scenario body.
type classifierState int

const (
	stateBody classifierState = iota
	stateMetadata
	stateCodeBlock
	stateCritical
	stateExecution
	stateOutputFormat
)

// scenarioBuilder accumulates one scenario while scanning its lines.
type scenarioBuilder struct {
	scenario         types.Scenario
	state            classifierState
	codeLines        []string
	descriptionLines []string
	step             *types.QueryStep
}

func (p *Parser) parseScenario(lines []string, start int) (types.Scenario, int, error) {
	m := scenarioHeadingRe.FindStringSubmatch(lines[start])
	if m == nil {
		return types.Scenario{}, start + 1, fmt.Errorf("not a scenario heading: %q", lines[start])
	}

	title := strings.TrimSpace(m[1])

	b := &scenarioBuilder{
		scenario: types.Scenario{
			Slug:  Slugify(title),
			Title: title,
			Mode:  types.ExecutionSequential,
			Steps: make([]types.QueryStep, 0, 4),
		},
	}

	i := start + 1
	for i < len(lines) {
		line := lines[i]

		// The next level-3 heading ends this scenario. Other heading levels
		// (legends, section dividers) are ignored as non-scenario content.
		if b.state != stateCodeBlock && scenarioHeadingRe.MatchString(line) {
			break
		}

		p.classifyLine(b, line)
		i++
	}

	b.closeStep()

	if b.scenario.Description == "" && len(b.descriptionLines) > 0 {
		b.scenario.Description = strings.Join(b.descriptionLines, " ")
	}

	if b.scenario.Slug == "" {
		return types.Scenario{}, i, fmt.Errorf("scenario %q produced an empty slug", title)
	}

	return b.scenario, i, nil
}

// classifyLine advances the line classifier state machine by one line.
func (p *Parser) classifyLine(b *scenarioBuilder, line string) {
	switch b.state {
	case stateMetadata:
		if metadataEndRe.MatchString(line) {
			b.state = stateBody

			return
		}

		p.applyMetadataField(b, strings.TrimSpace(line))

	case stateCodeBlock:
		if codeFenceEndRe.MatchString(line) {
			b.flushCodeBlock()
			b.state = stateBody

			return
		}

		if m := purposeCommentRe.FindStringSubmatch(line); m != nil && b.step != nil && b.step.Purpose == "" {
			b.step.Purpose = strings.TrimSpace(m[1])

			return
		}

		b.codeLines = append(b.codeLines, line)

	default:
		p.classifyBodyLine(b, line)
	}
}

// classifyBodyLine handles lines outside metadata and code blocks.
func (p *Parser) classifyBodyLine(b *scenarioBuilder, line string) {
	switch {
	case metadataStartRe.MatchString(line):
		b.state = stateMetadata

	case criticalSectionRe.MatchString(line):
		b.state = stateCritical

	case executionSectionRe.MatchString(line):
		b.state = stateExecution

	case outputSectionRe.MatchString(line):
		b.state = stateOutputFormat

	case stepHeadingRe.MatchString(line):
		m := stepHeadingRe.FindStringSubmatch(line)
		b.closeStep()
		b.openStep(atoi(m[1]), strings.TrimSpace(m[2]))
		b.state = stateBody

	case codeFenceStartRe.MatchString(line):
		// A fenced block with no open step gets an implicit step named after
		// the scenario itself.
		if b.step == nil {
			b.openStep(len(b.scenario.Steps)+1, b.scenario.Title)
		}

		b.codeLines = nil
		b.state = stateCodeBlock

	default:
		p.collectBodyText(b, line)
	}
}

func (p *Parser) collectBodyText(b *scenarioBuilder, line string) {
	trimmed := strings.TrimSpace(line)

	if b.state == stateCritical {
		if strings.HasPrefix(trimmed, "-") || strings.HasPrefix(trimmed, "*") || strings.HasPrefix(trimmed, "•") {
			req := strings.TrimSpace(strings.TrimLeft(trimmed, "-*•"))
			if req != "" {
				b.scenario.CriticalRequirements = append(b.scenario.CriticalRequirements, req)
			}
		}

		return
	}

	if b.state == stateExecution || b.state == stateOutputFormat {
		return
	}

	// Free text before the first step becomes the description fallback.
	if b.step == nil && len(b.scenario.Steps) == 0 && trimmed != "" {
		b.descriptionLines = append(b.descriptionLines, trimmed)
	}
}

// applyMetadataField parses one "- key: value" line of a metadata block.
// Unknown keys are ignored.
func (p *Parser) applyMetadataField(b *scenarioBuilder, line string) {
	m := metadataFieldRe.FindStringSubmatch(line)
	if m == nil {
		return
	}

	value := strings.TrimSpace(m[2])

	switch strings.ToLower(m[1]) {
	case "slug":
		b.scenario.Slug = value
	case "domain":
		b.scenario.Domain = value
	case "keywords":
		b.scenario.Keywords = splitCommaList(value)
	case "required_identifiers":
		b.scenario.RequiredIdentifiers = splitCommaList(value)
	case "aliases":
		b.scenario.Aliases = splitCommaList(value)
	case "description":
		b.scenario.Description = value
	}
}

func (b *scenarioBuilder) openStep(number int, title string) {
	b.step = &types.QueryStep{
		StepNumber:   number,
		Title:        title,
		QueryID:      fmt.Sprintf("%s_step%d", b.scenario.Slug, number),
		Placeholders: map[string]types.Placeholder{},
		Extracts:     map[string]types.ExtractedValue{},
		Optional:     strings.Contains(strings.ToLower(title), "optional"),
	}
	b.codeLines = nil
}

// flushCodeBlock assigns the accumulated fenced block to the open step,
// verbatim, with no normalization beyond trimming outer blank lines.
func (b *scenarioBuilder) flushCodeBlock() {
	if b.step != nil && len(b.codeLines) > 0 {
		b.step.QueryText = strings.TrimSpace(strings.Join(b.codeLines, "\n"))
	}

	b.codeLines = nil
}

// closeStep finalizes the open step: extract placeholders and append it.
func (b *scenarioBuilder) closeStep() {
	if b.step == nil {
		return
	}

	if b.step.QueryText != "" {
		b.step.Placeholders = ExtractPlaceholders(b.step.QueryText)
	}

	// Slug may have been supplied by metadata after the step opened.
	b.step.QueryID = fmt.Sprintf("%s_step%d", b.scenario.Slug, b.step.StepNumber)

	b.scenario.Steps = append(b.scenario.Steps, *b.step)
	b.step = nil
}

// ExtractPlaceholders finds every distinct <Name> token in query text.
// The first occurrence of a name wins; later occurrences are the same
// placeholder repeated.
func ExtractPlaceholders(queryText string) map[string]types.Placeholder {
	placeholders := make(map[string]types.Placeholder)

	for _, m := range placeholderRe.FindAllStringSubmatch(queryText, -1) {
		name := m[1]
		if _, seen := placeholders[name]; seen {
			continue
		}

		placeholders[name] = types.Placeholder{
			Name:        name,
			Type:        InferPlaceholderType(name),
			Required:    true,
			Description: name + " value",
		}
	}

	return placeholders
}

// InferPlaceholderType guesses a placeholder's type from its name.
func InferPlaceholderType(name string) types.PlaceholderType {
	lower := strings.ToLower(name)

	switch {
	case strings.Contains(lower, "list"):
		return types.PlaceholderGUIDList
	case strings.Contains(lower, "id"):
		return types.PlaceholderGUID
	case strings.Contains(lower, "time"), strings.Contains(lower, "date"):
		return types.PlaceholderDatetime
	case strings.Contains(lower, "count"), strings.Contains(lower, "limit"):
		return types.PlaceholderInteger
	default:
		return types.PlaceholderString
	}
}

// Slugify derives a URL-safe slug from a title.
func Slugify(title string) string {
	slug := slugCleanRe.ReplaceAllString(strings.ToLower(title), "-")

	return strings.Trim(slug, "-")
}

// mergeDuplicateTitles folds scenarios with the same title (case-insensitive)
// into the first occurrence: steps are unioned by exact query text and
// descriptions concatenated.
func mergeDuplicateTitles(scenarios []types.Scenario) []types.Scenario {
	merged := make([]types.Scenario, 0, len(scenarios))
	byTitle := make(map[string]int)

	for _, sc := range scenarios {
		key := strings.ToLower(sc.Title)

		idx, seen := byTitle[key]
		if !seen {
			byTitle[key] = len(merged)
			merged = append(merged, sc)

			continue
		}

		first := &merged[idx]

		for _, step := range sc.Steps {
			if hasQueryText(first.Steps, step.QueryText) {
				continue
			}

			step.StepNumber = len(first.Steps) + 1
			step.QueryID = fmt.Sprintf("%s_step%d", first.Slug, step.StepNumber)
			first.Steps = append(first.Steps, step)
		}

		if sc.Description != "" {
			first.Description = strings.TrimSpace(first.Description + "\n" + sc.Description)
		}
	}

	return merged
}

func hasQueryText(steps []types.QueryStep, queryText string) bool {
	for _, s := range steps {
		if s.QueryText == queryText {
			return true
		}
	}

	return false
}

func splitCommaList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))

	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}

	return out
}

// atoi converts a digits-only string already vetted by the step pattern.
func atoi(s string) int {
	n, _ := strconv.Atoi(s)

	return n
}
