// Package render produces output from a fully assembled schema.Report.
package render

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dshills/lexiscan/internal/schema"
)

// RenderJSON produces a pretty-printed JSON representation of the report.
// The annotated document is included base64-encoded.
func RenderJSON(report *schema.Report) ([]byte, error) {
	if report == nil {
		return nil, fmt.Errorf("render: nil report")
	}
	b, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("render: json marshal: %w", err)
	}
	return b, nil
}

// RenderMarkdown produces a GitHub-flavoured Markdown summary of the report
// for terminal output. Every finding ID present in the report appears in the
// output; the annotated document is omitted.
func RenderMarkdown(report *schema.Report) string {
	if report == nil {
		return ""
	}
	var sb strings.Builder

	sb.WriteString("## LexiScan Report\n\n")
	fmt.Fprintf(&sb, "**Document:** %s (%s, %s mode)  \n", mdEscape(report.Input.Filename), report.Input.Format, report.Input.Mode)
	fmt.Fprintf(&sb, "**Status:** %s  \n", report.Status)
	fmt.Fprintf(&sb, "**Risk score:** %.2f/100  \n", report.Score)
	fmt.Fprintf(&sb, "**Critical:** %d | **Medium:** %d | **Low:** %d | **Ungrounded:** %d\n\n",
		report.Counts.Critical, report.Counts.Medium, report.Counts.Low, report.Counts.Ungrounded)
	if report.Input.Truncated {
		sb.WriteString("> Input was truncated before analysis; later parts of the document were not reviewed.\n\n")
	}
	if report.Summary != "" {
		sb.WriteString(report.Summary)
		sb.WriteString("\n\n")
	}

	if len(report.Findings) == 0 {
		return sb.String()
	}

	sb.WriteString("## Findings\n\n")
	sb.WriteString("| ID | Risk | Where | Citation |\n")
	sb.WriteString("|---|---|---|---|\n")
	for _, f := range report.Findings {
		fmt.Fprintf(&sb, "| %s | %s | %s | %s |\n", f.ID, f.Risk, where(f), mdEscape(shorten(f.Citation, 80)))
	}
	sb.WriteString("\n")

	for _, f := range report.Findings {
		label := string(f.Risk)
		if f.Placeholder {
			label += ", manual review"
		}
		fmt.Fprintf(&sb, "<details>\n<summary><strong>%s</strong> [%s] %s</summary>\n\n",
			f.ID, label, mdEscape(shorten(f.Citation, 120)))
		if f.Category != "" {
			fmt.Fprintf(&sb, "**Category:** %s\n\n", mdEscape(f.Category))
		}
		if f.LegalReference != "" {
			fmt.Fprintf(&sb, "**Legal reference:** %s\n\n", mdEscape(f.LegalReference))
		}
		if f.Explanation != "" {
			fmt.Fprintf(&sb, "**Explanation:** %s\n\n", mdEscape(f.Explanation))
		}
		if f.Recommendation != "" {
			fmt.Fprintf(&sb, "**Recommendation:** %s\n\n", mdEscape(f.Recommendation))
		}
		sb.WriteString("</details>\n\n")
	}
	return sb.String()
}

// where describes the locations of a finding in one table cell.
func where(f schema.Finding) string {
	if !f.Grounded() {
		return "not found"
	}
	parts := make([]string, 0, len(f.Locations))
	for _, l := range f.Locations {
		if l.Page >= 0 {
			parts = append(parts, fmt.Sprintf("p.%d", l.Page+1))
		} else {
			parts = append(parts, fmt.Sprintf("@%d", l.Start))
		}
	}
	s := strings.Join(parts, ", ")
	if f.Locations[0].Method == schema.MatchPrefix {
		s += " (approx.)"
	}
	return s
}

func shorten(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}

// mdEscape replaces characters that would break Markdown table cells.
func mdEscape(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", "")
	return s
}
