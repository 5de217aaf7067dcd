// Package tui renders run results for interactive terminals.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/vpsguard/vpsguard/internal/domain"
)

var (
	accent  = lipgloss.Color("#D97706") // amber
	fg      = lipgloss.Color("#E8E6E3") // warm light gray
	dim     = lipgloss.Color("#6B7280") // muted gray
	faint   = lipgloss.Color("#3F3F46") // very dim
	success = lipgloss.Color("#22C55E") // green
	danger  = lipgloss.Color("#EF4444") // red
	warning = lipgloss.Color("#F59E0B") // amber-yellow
	info    = lipgloss.Color("#8B949E") // soft blue-gray
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(accent).
			Align(lipgloss.Center)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accent).
			Padding(1, 4).
			Align(lipgloss.Center).
			Width(68)

	dimStyle      = lipgloss.NewStyle().Foreground(dim)
	faintStyle    = lipgloss.NewStyle().Foreground(faint)
	okStyle       = lipgloss.NewStyle().Foreground(success)
	criticalStyle = lipgloss.NewStyle().Foreground(danger).Bold(true)
	warnStyle     = lipgloss.NewStyle().Foreground(warning)
	infoStyle     = lipgloss.NewStyle().Foreground(info)
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(fg)
	separatorLine = faintStyle.Render(strings.Repeat("─", 64))
)

// RenderResult renders a full run as a styled report grouped by severity.
func RenderResult(result domain.RunResult, hostname string) string {
	var b strings.Builder

	status := result.OverallStatus()
	statusStyled := severityStyle(status).Bold(true).Render(strings.ToUpper(status.String()))

	title := headerStyle.Render("vpsguard")
	subtitle := dimStyle.Render(fmt.Sprintf("%s  %s", hostname, result.StartedAt.Format("2006-01-02 15:04")))
	b.WriteString(boxStyle.Render(title + "\n" + subtitle + "\n\n" + statusStyled))
	b.WriteString("\n\n")

	renderGroup(&b, "Critical", domain.SeverityCritical, result.Findings)
	renderGroup(&b, "Warnings", domain.SeverityWarning, result.Findings)
	renderGroup(&b, "Info", domain.SeverityInfo, result.Findings)

	if len(result.Fixed) > 0 {
		b.WriteString("\n" + titleStyle.Render("  Auto-remediated") + "\n")
		for _, fix := range result.Fixed {
			mark := okStyle.Render("✓")
			if !fix.Success {
				mark = criticalStyle.Render("✗")
			}
			b.WriteString(fmt.Sprintf("    %s %s: %s\n", mark, fix.CheckID, fix.Action))
			for _, d := range fix.Details {
				b.WriteString("      " + dimStyle.Render(d) + "\n")
			}
		}
	}

	renderGroup(&b, "Passed", domain.SeverityOK, result.Findings)

	b.WriteString("\n" + separatorLine + "\n")
	b.WriteString(dimStyle.Render(fmt.Sprintf("  %d finding(s) in %s",
		len(result.Findings), result.Duration.Round(10*time.Millisecond))) + "\n")
	return b.String()
}

func renderGroup(b *strings.Builder, title string, severity domain.Severity, findings []domain.Finding) {
	var group []domain.Finding
	for _, f := range findings {
		if f.Severity == severity {
			group = append(group, f)
		}
	}
	if len(group) == 0 {
		return
	}

	b.WriteString("\n" + titleStyle.Render("  "+title) + dimStyle.Render(fmt.Sprintf(" (%d)", len(group))) + "\n")
	for _, f := range group {
		bullet := severityStyle(severity).Render("●")
		b.WriteString(fmt.Sprintf("    %s %s  %s\n", bullet, dimStyle.Render(f.CheckID), f.Message))
		if severity == domain.SeverityOK {
			continue // keep the passed section compact
		}
		for _, d := range f.Details {
			b.WriteString("        " + faintStyle.Render(d) + "\n")
		}
	}
}

func severityStyle(s domain.Severity) lipgloss.Style {
	switch s {
	case domain.SeverityCritical:
		return criticalStyle
	case domain.SeverityWarning:
		return warnStyle
	case domain.SeverityInfo:
		return infoStyle
	default:
		return okStyle
	}
}
