// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"strings"

	"github.com/Thermoquad/fopm-reader/pkg/fopm"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Space taken by everything around the table
const tableChrome = 12

var tableColumns = []table.Column{
	{Title: "Entry", Width: 6},
	{Title: "Wavelength", Width: 11},
	{Title: "Power", Width: 8},
	{Title: "Relative", Width: 9},
	{Title: "Ref", Width: 8},
	{Title: "Frequency", Width: 11},
}

// tableModel browses the entries of a finished read
type tableModel struct {
	connInfo string
	records  []fopm.Record
	stats    *fopm.Statistics
	table    table.Model
	width    int
	height   int
	quitting bool
}

func tableRows(records []fopm.Record) []table.Row {
	rows := make([]table.Row, 0, len(records))
	for _, r := range records {
		rows = append(rows, table.Row{
			fmt.Sprintf("%d", r.Number()),
			r.Wavelength.String(),
			fopm.FormatDB(r.PowerDB),
			fopm.FormatDB(r.RelativeDB),
			fopm.FormatDB(r.RefDB),
			r.Modulation.String(),
		})
	}
	return rows
}

func newTableModel(connInfo string, records []fopm.Record, stats *fopm.Statistics) tableModel {
	t := table.New(
		table.WithColumns(tableColumns),
		table.WithRows(tableRows(records)),
		table.WithFocused(true),
		table.WithHeight(24-tableChrome),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	t.SetStyles(s)

	return tableModel{
		connInfo: connInfo,
		records:  records,
		stats:    stats,
		table:    t,
		width:    80,
		height:   24,
	}
}

func (m tableModel) Init() tea.Cmd {
	return tea.EnterAltScreen
}

func (m tableModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		h := m.height - tableChrome
		if h < 3 {
			h = 3
		}
		m.table.SetHeight(h)
		return m, nil
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

// selected returns the record under the cursor
func (m tableModel) selected() (fopm.Record, bool) {
	i := m.table.Cursor()
	if i < 0 || i >= len(m.records) {
		return fopm.Record{}, false
	}
	return m.records[i], true
}

func (m tableModel) View() string {
	if m.quitting {
		return ""
	}

	// Styles
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12")).
		Background(lipgloss.Color("235")).
		Padding(0, 1)

	headerStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241"))

	statsLabelStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("12")).
		Bold(true)

	statsValueStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("10"))

	warningStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("11"))

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1)

	var s strings.Builder
	s.WriteString(titleStyle.Render("FOPM READER - STORED ENTRIES"))
	s.WriteString("\n")
	s.WriteString(headerStyle.Render(fmt.Sprintf("%s | ↑/↓ to move, 'q' to quit", m.connInfo)))
	s.WriteString("\n\n")

	if len(m.records) == 0 {
		s.WriteString(warningStyle.Render("The meter has no stored entries."))
		s.WriteString("\n")
		return s.String()
	}

	s.WriteString(boxStyle.Render(m.table.View()))
	s.WriteString("\n")

	if r, ok := m.selected(); ok {
		detail := fmt.Sprintf("%s %s   %s %s",
			statsLabelStyle.Render("Raw:"), statsValueStyle.Render(fopm.RenderHex(r.Payload())),
			statsLabelStyle.Render("Linear:"), statsValueStyle.Render(fmt.Sprintf("%g / %g", r.Power, r.Reference)),
		)
		s.WriteString(detail)
		s.WriteString("\n")
	}

	if m.stats != nil {
		summary := fmt.Sprintf("%s %s   %s %s",
			statsLabelStyle.Render("Entries:"), statsValueStyle.Render(fmt.Sprintf("%d of %d", m.stats.Entries, m.stats.Expected)),
			statsLabelStyle.Render("Read in:"), statsValueStyle.Render(fmt.Sprintf("%.1fs", m.stats.Elapsed().Seconds())),
		)
		if n := m.stats.UnknownWavelengths + m.stats.UnknownModulations; n > 0 {
			summary += "   " + warningStyle.Render(fmt.Sprintf("%d unknown codes", n))
		}
		s.WriteString(summary)
		s.WriteString("\n")
	}

	return s.String()
}

// runTableViewer shows records until the user quits
func runTableViewer(connInfo string, records []fopm.Record, stats *fopm.Statistics) error {
	p := tea.NewProgram(newTableModel(connInfo, records, stats))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("table viewer: %w", err)
	}
	return nil
}
