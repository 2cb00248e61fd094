// Package scenarios provides the embedded default instruction document and
// loads parsed scenarios from it or from an external document path.
package scenarios

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/devicehealth/diagnostics-mcp/pkg/parser"
	"github.com/devicehealth/diagnostics-mcp/pkg/types"
)

//go:embed instructions.md
var defaultDocument string

// Load parses the instruction document at path, or the embedded default when
// path is empty.
func Load(log logrus.FieldLogger, path string) ([]types.Scenario, error) {
	document := defaultDocument
	source := "embedded"

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading instruction document %s: %w", path, err)
		}

		document = string(data)
		source = path
	}

	scenarios := parser.New(log).Parse(document)

	log.WithFields(logrus.Fields{
		"source":         source,
		"scenario_count": len(scenarios),
	}).Info("Instruction document loaded")

	return scenarios, nil
}
