package cli

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/agentpm/modgraph/pkg/analysis"
)

// List styles.
var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
)

// sort modes for the module browser, cycled with "s".
const (
	sortByName = iota
	sortByFanIn
	sortByFanOut
	sortModeCount
)

var sortModeNames = [sortModeCount]string{"name", "fan-in", "fan-out"}

// moduleBrowser is the bubbletea model for interactive module inspection.
// It lists every scanned module with its coupling counts and marks members
// of circular dependency chains.
type moduleBrowser struct {
	modules  []analysis.ModuleStat
	inCycle  map[string]bool
	cursor   int
	height   int
	offset   int
	sortMode int
}

func newModuleBrowser(report *analysis.Report) moduleBrowser {
	inCycle := make(map[string]bool)
	for _, cycle := range report.Cycles {
		for _, id := range cycle {
			inCycle[id] = true
		}
	}
	m := moduleBrowser{
		modules: append([]analysis.ModuleStat{}, report.Modules...),
		inCycle: inCycle,
		height:  15,
	}
	m.sortModules()
	return m
}

func (m *moduleBrowser) sortModules() {
	sort.SliceStable(m.modules, func(i, j int) bool {
		a, b := m.modules[i], m.modules[j]
		switch m.sortMode {
		case sortByFanIn:
			if a.FanIn != b.FanIn {
				return a.FanIn > b.FanIn
			}
		case sortByFanOut:
			if a.FanOut != b.FanOut {
				return a.FanOut > b.FanOut
			}
		}
		return a.ID < b.ID
	})
}

func (m moduleBrowser) Init() tea.Cmd {
	return nil
}

func (m moduleBrowser) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
				if m.cursor < m.offset {
					m.offset = m.cursor
				}
			}
		case "down", "j":
			if m.cursor < len(m.modules)-1 {
				m.cursor++
				if m.cursor >= m.offset+m.height {
					m.offset = m.cursor - m.height + 1
				}
			}
		case "s":
			m.sortMode = (m.sortMode + 1) % sortModeCount
			m.sortModules()
			m.cursor = 0
			m.offset = 0
		}
	case tea.WindowSizeMsg:
		m.height = msg.Height - 8
		if m.height < 5 {
			m.height = 5
		}
	}
	return m, nil
}

func (m moduleBrowser) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Modules"))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  s sort  q quit"))
	b.WriteString(listDimStyle.Render(fmt.Sprintf("   sorted by %s", sortModeNames[m.sortMode])))
	b.WriteString("\n\n")

	end := m.offset + m.height
	if end > len(m.modules) {
		end = len(m.modules)
	}

	rows := [][]string{}
	for i := m.offset; i < end; i++ {
		s := m.modules[i]

		cursor := "  "
		if i == m.cursor {
			cursor = "▸ "
		}
		cyclic := ""
		if m.inCycle[s.ID] {
			cyclic = iconWarning
		}
		rows = append(rows, []string{
			cursor, s.ID,
			strconv.Itoa(s.FanIn), strconv.Itoa(s.FanOut), strconv.Itoa(s.ExternalRefs),
			cyclic,
		})
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("", "Module", "Fan-in", "Fan-out", "External", "Cycle").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}

			actualIdx := m.offset + row
			if actualIdx >= len(m.modules) {
				return lipgloss.NewStyle()
			}
			s := m.modules[actualIdx]

			base := lipgloss.NewStyle()
			if m.inCycle[s.ID] && (col == 1 || col == 5) {
				base = base.Foreground(colorRed)
			} else if col != 1 {
				base = base.Foreground(colorDim)
			}
			if actualIdx == m.cursor {
				return base.Bold(true)
			}
			return base
		})

	b.WriteString(t.Render())
	b.WriteString("\n\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]", m.cursor+1, len(m.modules))))

	return b.String()
}
