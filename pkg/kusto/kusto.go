// Package kusto is the boundary to the query execution service: the
// read-only command guard, target extraction from query text, and
// normalization of raw results into the tabular shape the rest of the
// system consumes. Execution itself lives behind the Client interface.
package kusto

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/devicehealth/diagnostics-mcp/pkg/types"
)

// writePrefixes are the control-command prefixes that mutate cluster state.
// Queries starting with any of these are rejected before they leave the
// process; this service is strictly read-only.
var writePrefixes = []string{
	".drop", ".alter", ".ingest", ".delete", ".set", ".create", ".append",
}

var (
	targetRe = regexp.MustCompile(`cluster\(["']([^"']+)["']\)\.database\(["']([^"']+)["']\)`)
	schemeRe = regexp.MustCompile(`(?i)^https?://`)
)

// Target identifies the cluster and database a query runs against.
type Target struct {
	ClusterURL string `json:"cluster_url"`
	Database   string `json:"database"`
}

// Client executes a final, fully substituted query against a target. It is
// implemented by the transport layer; everything in this package is
// transport-agnostic.
type Client interface {
	Execute(ctx context.Context, target Target, query string) (*types.QueryResult, error)
}

// CheckReadOnly rejects write/DDL control commands. It returns an error for
// blocked queries and nil for plain read queries.
func CheckReadOnly(query string) error {
	trimmed := strings.ToLower(strings.TrimSpace(query))

	for _, prefix := range writePrefixes {
		if strings.HasPrefix(trimmed, prefix) {
			return fmt.Errorf("write/DDL command blocked: queries starting with %q are not permitted", prefix)
		}
	}

	return nil
}

// ExtractTarget finds the first cluster("...").database("...") pattern in the
// query text and returns the normalized target. The second return is false
// when the query names no target.
func ExtractTarget(query string) (Target, bool) {
	m := targetRe.FindStringSubmatch(query)
	if m == nil {
		return Target{}, false
	}

	return Target{
		ClusterURL: NormalizeClusterURL(m[1]),
		Database:   m[2],
	}, true
}

// ExtractAllTargets returns every distinct target named in the given queries,
// in first-seen order. Used to prewarm connections at load time.
func ExtractAllTargets(queries []string) []Target {
	seen := make(map[Target]bool)

	var targets []Target

	for _, q := range queries {
		for _, m := range targetRe.FindAllStringSubmatch(q, -1) {
			t := Target{ClusterURL: NormalizeClusterURL(m[1]), Database: m[2]}
			if seen[t] {
				continue
			}

			seen[t] = true
			targets = append(targets, t)
		}
	}

	return targets
}

// NormalizeClusterURL ensures the cluster URL carries an https scheme and no
// trailing slash, as the data-plane client requires.
func NormalizeClusterURL(clusterURL string) string {
	clusterURL = strings.TrimSpace(clusterURL)

	if !schemeRe.MatchString(clusterURL) {
		clusterURL = "https://" + clusterURL
	}

	return strings.TrimRight(clusterURL, "/")
}

// NormalizeResult converts raw column names and row cells into a QueryResult.
// Rows wider than the column list are truncated to it; narrower rows are
// padded with nil so every row has the same width.
func NormalizeResult(columns []string, rows [][]any) *types.QueryResult {
	normalized := make([][]any, len(rows))

	for i, row := range rows {
		out := make([]any, len(columns))
		copy(out, row)
		normalized[i] = out
	}

	return &types.QueryResult{
		Columns:   columns,
		Rows:      normalized,
		TotalRows: len(rows),
	}
}
