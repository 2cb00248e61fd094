package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var scenariosJSON bool

var scenariosCmd = &cobra.Command{
	Use:   "scenarios",
	Short: "List all scenarios in the instruction document",
	Long: `List every scenario parsed from the configured instruction document,
grouped summaries only. Useful for verifying a document edit was picked up.`,
	RunE: runScenarios,
}

func init() {
	rootCmd.AddCommand(scenariosCmd)

	scenariosCmd.Flags().BoolVar(&scenariosJSON, "json", false, "emit JSON output")
}

func runScenarios(_ *cobra.Command, _ []string) error {
	idx, err := buildIndex()
	if err != nil {
		return err
	}

	summaries := idx.All()

	if scenariosJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")

		return enc.Encode(summaries)
	}

	for _, s := range summaries {
		fmt.Printf("%-28s %-12s %s (%d queries)\n", s.Slug, s.Domain, s.Title, s.NumQueries)
	}

	fmt.Printf("\n%d scenarios\n", len(summaries))

	return nil
}
