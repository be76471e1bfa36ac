// Package observability provides formatted output utilities for the CLI.
package observability

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/jonathan/contract-auditor/internal/rules"
	"github.com/jonathan/contract-auditor/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 64
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for CLI commands
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %s │\n", pad(title, boxWidth-4))
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		fmt.Fprintf(p.out, "│ %s │\n", pad(clip(line, boxWidth-4), boxWidth-4))
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintContract outputs the audit summary of one contract.
func (p *Printer) PrintContract(c *types.Contract) {
	if c == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("ID:          %s\n", c.ID))
	sb.WriteString(fmt.Sprintf("File:        %s (%s, %d bytes)\n", c.FileName, c.FileMIMEType, c.FileSize))
	sb.WriteString(fmt.Sprintf("Status:      %s %s\n", statusIcon(c.Status), c.Status))
	if c.ConfidenceScore != nil {
		sb.WriteString(fmt.Sprintf("Confidence:  %.2f\n", *c.ConfidenceScore))
	}
	if c.ProcessingTimeMs != nil {
		sb.WriteString(fmt.Sprintf("Processing:  %d ms\n", *c.ProcessingTimeMs))
	}
	if c.TextTruncated {
		sb.WriteString("Text:        truncated before extraction\n")
	}
	if c.HumanApproved {
		approval := "human approved"
		if c.OverrideApproved {
			approval = "human override"
		}
		sb.WriteString(fmt.Sprintf("Approval:    %s\n", approval))
	}
	if c.ReviewerNotes != nil {
		sb.WriteString(fmt.Sprintf("Notes:       %s\n", *c.ReviewerNotes))
	}

	if len(c.ReviewReasons) > 0 {
		sb.WriteString("\nReview reasons:\n")
		for _, r := range c.ReviewReasons {
			sb.WriteString(fmt.Sprintf("  • %s\n", r))
		}
	}

	p.printBox("CONTRACT AUDIT", strings.TrimSuffix(sb.String(), "\n"))
	p.PrintExtractedData(c.ExtractedData)
	p.PrintIssues(c.ValidationIssues)
}

// PrintExtractedData outputs the structured facts of a contract.
func (p *Printer) PrintExtractedData(d *types.ExtractedData) {
	if d == nil {
		return
	}

	var sb strings.Builder
	if len(d.Parties) > 0 {
		sb.WriteString("Parties:\n")
		count := min(len(d.Parties), maxItemsToShow)
		for i := 0; i < count; i++ {
			party := d.Parties[i]
			sb.WriteString(fmt.Sprintf("  • %s", party.Name))
			if party.Role != nil && *party.Role != "" {
				sb.WriteString(fmt.Sprintf(" (%s)", *party.Role))
			}
			sb.WriteString("\n")
		}
		if len(d.Parties) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(d.Parties)-maxItemsToShow))
		}
		sb.WriteString("\n")
	}

	sb.WriteString(fmt.Sprintf("Effective:     %s\n", orDash(d.EffectiveDate)))
	duration := "-"
	if d.ContractDurationMonths != nil {
		duration = fmt.Sprintf("%d months", *d.ContractDurationMonths)
	}
	if d.ContractDurationRaw != nil {
		duration += fmt.Sprintf(" (%q)", *d.ContractDurationRaw)
	}
	sb.WriteString(fmt.Sprintf("Duration:      %s\n", duration))
	sb.WriteString(fmt.Sprintf("Jurisdiction:  %s\n", orDash(d.Jurisdiction)))
	sb.WriteString(fmt.Sprintf("Risk score:    %d/100", d.RiskScore))

	p.printBox("EXTRACTED DATA", sb.String())
}

// PrintIssues outputs validation issues, or a success box when there are none.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintIssues(issues []types.ValidationIssue) {
	if len(issues) == 0 {
		fmt.Fprintf(p.out, "┌%s┐\n", strings.Repeat("─", boxWidth-2))
		fmt.Fprintf(p.out, "│ %s │\n", pad("✅ NO ISSUES FOUND", boxWidth-4))
		fmt.Fprintf(p.out, "└%s┘\n", strings.Repeat("─", boxWidth-2))
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Found %d issues:\n\n", len(issues)))

	for i, issue := range issues {
		sb.WriteString(fmt.Sprintf("⚠ %s [%s] %s\n", issue.Rule, issue.Severity, issue.Field))
		sb.WriteString(fmt.Sprintf("  %s\n", issue.Message))
		if issue.Reasoning != nil {
			sb.WriteString(fmt.Sprintf("  %s\n", *issue.Reasoning))
		}
		if i < len(issues)-1 {
			sb.WriteString("\n")
		}
	}

	p.printBox("VALIDATION ISSUES", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintContractList outputs one line per contract.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintContractList(contracts []types.Contract) {
	if len(contracts) == 0 {
		fmt.Fprintln(p.out, "No contracts.")
		return
	}

	fmt.Fprintf(p.out, "%-36s  %-22s  %-6s  %-5s  %s\n", "ID", "STATUS", "CONF", "RISK", "FILE")
	for _, c := range contracts {
		conf := "-"
		if c.ConfidenceScore != nil {
			conf = fmt.Sprintf("%.2f", *c.ConfidenceScore)
		}
		risk := "-"
		if c.ExtractedData != nil {
			risk = fmt.Sprintf("%d", c.ExtractedData.RiskScore)
		}
		fmt.Fprintf(p.out, "%-36s  %-22s  %-6s  %-5s  %s\n", c.ID, c.Status, conf, risk, c.FileName)
	}
}

// PrintRules outputs the active rule table.
func (p *Printer) PrintRules(table []rules.Rule, threshold float64) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Confidence threshold: %.2f\n\n", threshold))
	for i, r := range table {
		sb.WriteString(fmt.Sprintf("%s [%s]\n", r.ID, r.Severity))
		sb.WriteString(fmt.Sprintf("  field:  %s\n", r.Field))
		if r.ReviewReason != "" {
			sb.WriteString(fmt.Sprintf("  reason: %s\n", r.ReviewReason))
		}
		if i < len(table)-1 {
			sb.WriteString("\n")
		}
	}
	p.printBox("RULES", strings.TrimSuffix(sb.String(), "\n"))
}

func statusIcon(s types.ContractStatus) string {
	switch s {
	case types.StatusApproved:
		return "✅"
	case types.StatusRejected:
		return "⛔"
	case types.StatusRequiresHumanReview:
		return "⚠"
	default:
		return "…"
	}
}

func orDash(s *string) string {
	if s == nil || *s == "" {
		return "-"
	}
	return *s
}

// clip shortens s to at most n runes, marking the cut with "...".
func clip(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n-3]) + "..."
}

// pad right-pads s with spaces to n runes. fmt's width counts bytes, not runes.
func pad(s string, n int) string {
	if c := utf8.RuneCountInString(s); c < n {
		return s + strings.Repeat(" ", n-c)
	}
	return s
}
