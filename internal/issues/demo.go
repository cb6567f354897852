package issues

import (
	_ "embed"
	"fmt"

	"roadwatch/internal/domain"
)

//go:embed demo.json
var demoJSON []byte

// Demo returns bundled Brampton demo dataset.
// Params: none.
// Returns: fresh copy of demo records.
func Demo() []domain.IssueRecord {
	records, err := domain.DecodeIssues(demoJSON)
	if err != nil {
		panic(fmt.Sprintf("decode embedded demo dataset: %v", err))
	}
	return records
}
