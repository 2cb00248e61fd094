package scenarios

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() logrus.FieldLogger {
	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	return log
}

func TestLoad_EmbeddedDocument(t *testing.T) {
	parsed, err := Load(testLogger(), "")
	require.NoError(t, err)
	require.NotEmpty(t, parsed)

	slugs := make(map[string]bool, len(parsed))
	for _, sc := range parsed {
		slugs[sc.Slug] = true
		assert.NotEmpty(t, sc.Steps, "embedded scenarios must all carry steps")
	}

	for _, want := range []string{
		"device-details",
		"device-compliance",
		"dcv1-dcv2-conflicts",
		"tenant-overview",
		"autopilot-esp-failures",
		"mam-policy-delivery",
	} {
		assert.True(t, slugs[want], "missing scenario %s", want)
	}
}

func TestLoad_ExternalDocument(t *testing.T) {
	doc := `### Custom Scenario

<!--
- slug: custom-scenario
- description: A locally supplied scenario.
-->

**Step 1: Run It**

` + "```kusto" + `
T | where Id == "<Id>"
` + "```" + `
`

	path := filepath.Join(t.TempDir(), "instructions.md")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	parsed, err := Load(testLogger(), path)
	require.NoError(t, err)
	require.Len(t, parsed, 1)
	assert.Equal(t, "custom-scenario", parsed[0].Slug)
}

func TestLoad_MissingExternalDocument(t *testing.T) {
	_, err := Load(testLogger(), filepath.Join(t.TempDir(), "nope.md"))
	assert.Error(t, err)
}
