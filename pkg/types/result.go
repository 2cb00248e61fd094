package types

import "fmt"

// QueryResult is the normalized shape of an executed query's output. Callers
// hand the core either a flat record or tabular columns+rows; both are
// normalized into this struct at the boundary so nothing downstream branches
// on ad hoc JSON shapes.
type QueryResult struct {
	// Record holds flat key/value pairs when the result is a single record.
	Record map[string]string `json:"record,omitempty"`
	// Columns and Rows hold tabular results.
	Columns []string `json:"columns,omitempty"`
	Rows    [][]any  `json:"rows,omitempty"`
	// TotalRows is the row count reported by the execution service.
	TotalRows int `json:"total_rows,omitempty"`
}

// FirstRowRecord flattens the first row of a tabular result into a
// column→value record. Only the first row is inspected: the conversation
// context models the single entity currently under discussion, not a list.
func (r *QueryResult) FirstRowRecord() map[string]string {
	if len(r.Rows) == 0 || len(r.Columns) == 0 {
		return nil
	}

	row := r.Rows[0]
	record := make(map[string]string, len(r.Columns))

	for i, col := range r.Columns {
		if i >= len(row) || row[i] == nil {
			continue
		}

		record[col] = stringify(row[i])
	}

	return record
}

func stringify(v any) string {
	if s, ok := v.(string); ok {
		return s
	}

	return fmt.Sprint(v)
}
