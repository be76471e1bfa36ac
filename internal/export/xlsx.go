// Package export renders contract records as spreadsheets.
package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/jonathan/contract-auditor/internal/types"
)

// SheetName is the worksheet holding one row per contract.
const SheetName = "Contracts"

// Headers are the column titles, in order.
var Headers = []string{
	"ID",
	"File",
	"Status",
	"Requires Review",
	"Review Reasons",
	"Confidence",
	"Parties",
	"Effective Date",
	"Duration (months)",
	"Duration (text)",
	"Jurisdiction",
	"Risk Score",
	"Issues",
	"Human Approved",
	"Override",
	"Reviewer Notes",
	"Created At",
	"Processed At",
}

// ContractsXLSX returns an XLSX workbook with one row per contract.
func ContractsXLSX(contracts []types.Contract) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return nil, fmt.Errorf("xlsx sheet: %w", err)
	}

	for i, h := range Headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(SheetName, cell, h); err != nil {
			return nil, fmt.Errorf("xlsx header: %w", err)
		}
	}
	if style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		_ = f.SetRowStyle(SheetName, 1, 1, style)
	}

	for r, c := range contracts {
		row := r + 2
		for col, v := range rowValues(c) {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			if err := f.SetCellValue(SheetName, cell, v); err != nil {
				return nil, fmt.Errorf("xlsx row %d: %w", row, err)
			}
		}
	}

	_ = f.SetColWidth(SheetName, "A", "A", 38) // id
	_ = f.SetColWidth(SheetName, "B", "B", 28) // file
	_ = f.SetColWidth(SheetName, "C", "E", 22)
	_ = f.SetColWidth(SheetName, "G", "G", 40) // parties
	_ = f.SetColWidth(SheetName, "M", "M", 60) // issues
	_ = f.SetColWidth(SheetName, "P", "P", 48) // notes
	_ = f.SetColWidth(SheetName, "Q", "R", 20)
	_ = f.SetPanes(SheetName, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}

func rowValues(c types.Contract) []any {
	var confidence any = ""
	if c.ConfidenceScore != nil {
		confidence = *c.ConfidenceScore
	}

	var parties, effective, durationRaw, jurisdiction string
	var duration, risk any = "", ""
	if d := c.ExtractedData; d != nil {
		names := make([]string, 0, len(d.Parties))
		for _, p := range d.Parties {
			if p.Role != nil && *p.Role != "" {
				names = append(names, fmt.Sprintf("%s (%s)", p.Name, *p.Role))
			} else {
				names = append(names, p.Name)
			}
		}
		parties = strings.Join(names, "; ")
		effective = deref(d.EffectiveDate)
		durationRaw = deref(d.ContractDurationRaw)
		jurisdiction = deref(d.Jurisdiction)
		if d.ContractDurationMonths != nil {
			duration = *d.ContractDurationMonths
		}
		risk = d.RiskScore
	}

	issues := make([]string, 0, len(c.ValidationIssues))
	for _, is := range c.ValidationIssues {
		issues = append(issues, fmt.Sprintf("[%s] %s", is.Severity, is.Message))
	}

	return []any{
		c.ID,
		c.FileName,
		string(c.Status),
		yesNo(c.RequiresHumanReview),
		strings.Join(c.ReviewReasons, "; "),
		confidence,
		parties,
		effective,
		duration,
		durationRaw,
		jurisdiction,
		risk,
		strings.Join(issues, "\n"),
		yesNo(c.HumanApproved),
		yesNo(c.OverrideApproved),
		deref(c.ReviewerNotes),
		formatTime(&c.CreatedAt),
		formatTime(c.ProcessedAt),
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.UTC().Format("2006-01-02 15:04:05")
}
