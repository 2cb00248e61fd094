package placeholder

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devicehealth/diagnostics-mcp/pkg/types"
)

const testGUID = "11111111-1111-1111-1111-111111111111"

func deviceStep() *types.QueryStep {
	return &types.QueryStep{
		StepNumber: 1,
		QueryID:    "device-details_step1",
		QueryText:  `Devices | where DeviceId == "<DeviceId>" and Timestamp > <StartTime> | take <RowLimit>`,
		Placeholders: map[string]types.Placeholder{
			"DeviceId":  {Name: "DeviceId", Type: types.PlaceholderGUID, Required: true},
			"StartTime": {Name: "StartTime", Type: types.PlaceholderDatetime, Required: true},
			"RowLimit":  {Name: "RowLimit", Type: types.PlaceholderInteger, Required: false},
		},
	}
}

func TestValidate_MissingRequired(t *testing.T) {
	result := Validate(deviceStep(), map[string]string{})

	assert.False(t, result.Valid)
	require.Len(t, result.Errors, 2, "optional RowLimit must not be reported")

	placeholders := []string{result.Errors[0].Placeholder, result.Errors[1].Placeholder}
	assert.ElementsMatch(t, []string{"DeviceId", "StartTime"}, placeholders)

	for _, e := range result.Errors {
		assert.Equal(t, types.IssueMissingRequired, e.Issue)
	}
}

func TestValidate_GUIDFormat(t *testing.T) {
	tests := []struct {
		name  string
		value string
		valid bool
	}{
		{"canonical lowercase", testGUID, true},
		{"uppercase hex", "ABCDEF01-2345-6789-ABCD-EF0123456789", true},
		{"mixed case", "AbCdEf01-2345-6789-abcd-ef0123456789", true},
		{"missing hyphens", "11111111111111111111111111111111", false},
		{"too short", "1111-1111", false},
		{"non-hex", "zzzzzzzz-1111-1111-1111-111111111111", false},
		{"braced", "{11111111-1111-1111-1111-111111111111}", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Validate(deviceStep(), map[string]string{
				"DeviceId":  tt.value,
				"StartTime": "2026-01-01",
			})

			if tt.valid {
				assert.True(t, result.Valid)

				return
			}

			require.Len(t, result.Errors, 1)
			assert.Equal(t, "DeviceId", result.Errors[0].Placeholder)
			assert.Equal(t, types.IssueInvalidFormat, result.Errors[0].Issue)
			assert.Equal(t, "xxxxxxxx-xxxx-xxxx-xxxx-xxxxxxxxxxxx", result.Errors[0].ExpectedFormat)
		})
	}
}

func TestValidate_DatetimeFormat(t *testing.T) {
	tests := []struct {
		value string
		valid bool
	}{
		{"2026-01-31", true},
		{"2026-01-31 12:00:00", true},
		{"2026-01-31T12:00:00", true},
		{`datetime(2026-01-31)`, true},
		{`datetime("2026-01-31 12:00:00")`, true},
		{"January 31", false},
		{"31/01/2026", false},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			result := Validate(deviceStep(), map[string]string{
				"DeviceId":  testGUID,
				"StartTime": tt.value,
			})

			assert.Equal(t, tt.valid, result.Valid)
		})
	}
}

func TestValidate_DoesNotMutate(t *testing.T) {
	step := deviceStep()
	values := map[string]string{"DeviceId": "bogus"}

	_ = Validate(step, values)

	assert.Equal(t, deviceStep(), step)
	assert.Equal(t, map[string]string{"DeviceId": "bogus"}, values)
}

func TestSubstitute_AllSupplied(t *testing.T) {
	result := Substitute(deviceStep(), map[string]string{
		"DeviceId":  testGUID,
		"StartTime": "datetime(2026-01-01)",
		"RowLimit":  "100",
	})

	assert.NotContains(t, result.QueryText, "<DeviceId>")
	assert.NotContains(t, result.QueryText, "<StartTime>")
	assert.NotContains(t, result.QueryText, "<RowLimit>")
	assert.Contains(t, result.QueryText, testGUID)
	assert.Empty(t, result.Warnings)
	assert.Equal(t, map[string]string{
		"DeviceId":  testGUID,
		"StartTime": "datetime(2026-01-01)",
		"RowLimit":  "100",
	}, result.PlaceholdersUsed)
}

func TestSubstitute_MissingLeavesTokenAndWarns(t *testing.T) {
	result := Substitute(deviceStep(), map[string]string{"DeviceId": testGUID})

	assert.Contains(t, result.QueryText, "<StartTime>")
	assert.Contains(t, result.QueryText, "<RowLimit>")
	assert.NotContains(t, result.QueryText, "<DeviceId>")
	assert.Len(t, result.Warnings, 2)
	assert.Contains(t, result.Warnings[0], "not provided")
}

func TestSubstitute_ReplacesEveryOccurrence(t *testing.T) {
	step := &types.QueryStep{
		QueryText: `A | where Id == "<DeviceId>" | join (B | where Id == "<DeviceId>")`,
		Placeholders: map[string]types.Placeholder{
			"DeviceId": {Name: "DeviceId", Type: types.PlaceholderGUID, Required: true},
		},
	}

	result := Substitute(step, map[string]string{"DeviceId": testGUID})

	assert.NotContains(t, result.QueryText, "<DeviceId>")
	assert.Equal(t, 2, strings.Count(result.QueryText, testGUID))
}
