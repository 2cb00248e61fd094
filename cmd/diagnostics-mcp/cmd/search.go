package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/devicehealth/diagnostics-mcp/pkg/config"
	"github.com/devicehealth/diagnostics-mcp/pkg/index"
	"github.com/devicehealth/diagnostics-mcp/scenarios"
)

var (
	searchDomain string
	searchJSON   bool
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search diagnostic scenarios from the command line",
	Long: `Run a ranked scenario search against the instruction document without
starting a server. Useful for checking what a query will surface.

Examples:
  diagnostics-mcp search "device compliance"
  diagnostics-mcp search esp --domain autopilot --json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)

	searchCmd.Flags().StringVar(&searchDomain, "domain", "", "restrict results to one domain")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "emit JSON output")
}

func runSearch(_ *cobra.Command, args []string) error {
	idx, err := buildIndex()
	if err != nil {
		return err
	}

	query := ""
	for i, arg := range args {
		if i > 0 {
			query += " "
		}

		query += arg
	}

	results := idx.Search(query, searchDomain)

	if searchJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")

		return enc.Encode(results)
	}

	if len(results) == 0 {
		fmt.Println("no scenarios matched")

		return nil
	}

	for _, r := range results {
		fmt.Printf("%-28s %s (%d queries)\n", r.Slug, r.Title, r.NumQueries)
	}

	return nil
}

// buildIndex loads the configured instruction document and indexes it.
func buildIndex() (*index.Index, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	parsed, err := scenarios.Load(log, cfg.Scenarios.DocumentPath)
	if err != nil {
		return nil, fmt.Errorf("loading scenarios: %w", err)
	}

	return index.New(log, parsed), nil
}
