// Package export renders flat allocation rows for download.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// Row is one already-resolved student line of the allocation report.
type Row struct {
	RollNumber       string
	Name             string
	Email            string
	Branch           string
	Company          string
	ApprovalStatus   string
	AllocationStatus string
	// Choices are rendered as "priority:company/domain@location".
	Choices []string
}

var header = []string{
	"roll_number", "name", "email", "branch", "allocated_company",
	"approval_status", "allocation_status", "choices",
}

// WriteCSV writes a header line followed by one record per row.
func WriteCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write report header: %w", err)
	}
	for i, r := range rows {
		record := []string{
			r.RollNumber, r.Name, r.Email, r.Branch, r.Company,
			r.ApprovalStatus, r.AllocationStatus, strings.Join(r.Choices, "; "),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write report row %d: %w", i+1, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// FormatChoice renders one choice for the report.
func FormatChoice(priority int, company, domain, location string) string {
	return fmt.Sprintf("%d:%s/%s@%s", priority, company, domain, location)
}
