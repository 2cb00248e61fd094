package parser

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devicehealth/diagnostics-mcp/pkg/types"
)

const sampleDocument = `# Diagnostic Instructions

## Legend

This section is not a scenario.

### Device Details

<!--
- slug: device-details
- domain: device
- keywords: device, details, baseline
- required_identifiers: device_id
- aliases: device info, device_lookup
- description: Fetch baseline information for a managed device.
-->

**Step 1: Get Device Baseline Information**

` + "```kusto" + `
// Purpose: Retrieve the device record by its identifier
cluster("https://diag.example.net").database("Devices")
| where DeviceId == "<DeviceId>"
| project DeviceId, AccountId, DeviceName
` + "```" + `

**Step 2: Get Device Policies (Optional)**

` + "```kusto" + `
PolicyStatus
| where DeviceId == "<DeviceId>" and ContextId == "<ContextId>"
| take <RowLimit>
` + "```" + `

### Tenant Overview

Free text description before any step.

` + "```kusto" + `
GetTenantInformation("<TenantId>", datetime(<StartTime>))
` + "```" + `

**CRITICAL REQUIREMENTS:**
- Execute queries exactly as provided
- Never rewrite query text

### Empty Section

Nothing but prose here, no queries at all.
`

func newTestParser() *Parser {
	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	return New(log)
}

func TestParse_SampleDocument(t *testing.T) {
	scenarios := newTestParser().Parse(sampleDocument)

	// The empty section has no steps and must be dropped.
	require.Len(t, scenarios, 2)

	device := scenarios[0]
	assert.Equal(t, "device-details", device.Slug)
	assert.Equal(t, "Device Details", device.Title)
	assert.Equal(t, "device", device.Domain)
	assert.Equal(t, []string{"device", "details", "baseline"}, device.Keywords)
	assert.Equal(t, []string{"device_id"}, device.RequiredIdentifiers)
	assert.Equal(t, []string{"device info", "device_lookup"}, device.Aliases)
	assert.Equal(t, "Fetch baseline information for a managed device.", device.Description)
	require.Len(t, device.Steps, 2)

	step1 := device.Steps[0]
	assert.Equal(t, 1, step1.StepNumber)
	assert.Equal(t, "device-details_step1", step1.QueryID)
	assert.Equal(t, "Retrieve the device record by its identifier", step1.Purpose)
	assert.NotContains(t, step1.QueryText, "Purpose:")
	assert.Contains(t, step1.QueryText, `| where DeviceId == "<DeviceId>"`)
	assert.False(t, step1.Optional)

	step2 := device.Steps[1]
	assert.Equal(t, "device-details_step2", step2.QueryID)
	assert.True(t, step2.Optional, "title containing 'optional' marks the step optional")
	require.Contains(t, step2.Placeholders, "RowLimit")
	assert.Equal(t, types.PlaceholderInteger, step2.Placeholders["RowLimit"].Type)

	tenant := scenarios[1]
	assert.Equal(t, "tenant-overview", tenant.Slug, "slug derived from title when metadata is absent")
	assert.Equal(t, "Free text description before any step.", tenant.Description)
	require.Len(t, tenant.Steps, 1)
	assert.Equal(t, "Tenant Overview", tenant.Steps[0].Title, "implicit step reuses the scenario title")
	assert.Equal(t, []string{
		"Execute queries exactly as provided",
		"Never rewrite query text",
	}, tenant.CriticalRequirements)
}

func TestParse_Idempotent(t *testing.T) {
	p := newTestParser()

	first := p.Parse(sampleDocument)
	second := p.Parse(sampleDocument)

	assert.Equal(t, first, second)
}

func TestParse_PlaceholderTokensMatchMap(t *testing.T) {
	scenarios := newTestParser().Parse(sampleDocument)

	for _, sc := range scenarios {
		for _, step := range sc.Steps {
			tokens := map[string]bool{}
			for _, m := range placeholderRe.FindAllStringSubmatch(step.QueryText, -1) {
				tokens[m[1]] = true
			}

			require.Len(t, step.Placeholders, len(tokens), "step %s", step.QueryID)

			for name := range tokens {
				assert.Contains(t, step.Placeholders, name)
			}
		}
	}
}

func TestParse_DuplicateTitlesMerged(t *testing.T) {
	doc := `### Same Thing

First description.

**Step 1: Original Query**

` + "```kusto" + `
Table | take 1
` + "```" + `

### Same Thing

Second description.

**Step 1: Duplicate Query**

` + "```kusto" + `
Table | take 1
` + "```" + `

**Step 2: New Query**

` + "```kusto" + `
Table | take 2
` + "```" + `
`

	scenarios := newTestParser().Parse(doc)

	require.Len(t, scenarios, 1)
	merged := scenarios[0]

	// Exact duplicate query skipped; distinct query appended and renumbered.
	require.Len(t, merged.Steps, 2)
	assert.Equal(t, "Table | take 1", merged.Steps[0].QueryText)
	assert.Equal(t, "Table | take 2", merged.Steps[1].QueryText)
	assert.Equal(t, 2, merged.Steps[1].StepNumber)
	assert.Equal(t, "same-thing_step2", merged.Steps[1].QueryID)

	assert.Contains(t, merged.Description, "First description.")
	assert.Contains(t, merged.Description, "Second description.")
}

func TestInferPlaceholderType(t *testing.T) {
	tests := []struct {
		name string
		want types.PlaceholderType
	}{
		{"DeviceId", types.PlaceholderGUID},
		{"DeviceIdList", types.PlaceholderGUIDList},
		{"StartTime", types.PlaceholderDatetime},
		{"EndDate", types.PlaceholderDatetime},
		{"RowCount", types.PlaceholderInteger},
		{"MaxLimit", types.PlaceholderInteger},
		{"UserName", types.PlaceholderString},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, InferPlaceholderType(tt.name))
		})
	}
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		title string
		want  string
	}{
		{"Device Details", "device-details"},
		{"DCv1 vs DCv2 Conflicts", "dcv1-vs-dcv2-conflicts"},
		{"  Trim / Me!  ", "trim-me"},
	}

	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			assert.Equal(t, tt.want, Slugify(tt.title))
		})
	}
}
