package cli

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/agentpm/modgraph/pkg/analysis"
	"github.com/agentpm/modgraph/pkg/pipeline"
)

// topModules caps the coupling table so huge projects stay readable.
const topModules = 10

// renderReport prints the human-readable analysis summary.
func renderReport(result *pipeline.Result) {
	r := result.Report

	printNewline()
	fmt.Println(StyleTitle.Render("Dependency Report"))
	printNewline()

	printKeyValue("Modules", strconv.Itoa(r.ModuleCount))
	printKeyValue("Internal dependencies", strconv.Itoa(r.DependencyCount))
	printKeyValue("External references", strconv.Itoa(r.ExternalReferenceCount))
	printKeyValue("Max depth", depthString(r))
	printKeyValue("Root modules", moduleList(r.RootModules))
	printKeyValue("Leaf modules", moduleList(r.LeafModules))
	printStats(result.Stats.NodeCount, result.Stats.EdgeCount, result.CacheInfo.ReportHit)

	renderCycles(r)
	renderCoupling(r)

	if len(r.Malformed) > 0 {
		printNewline()
		printWarning("%d files could not be processed", len(r.Malformed))
		for _, m := range r.Malformed {
			printDetail("%s", m)
		}
	}
}

func renderCycles(r *analysis.Report) {
	printNewline()
	if !r.HasCycles() {
		printSuccess("No circular dependencies")
		return
	}

	printError("%d circular dependencies", r.CircularDependencyCount)
	for _, cycle := range r.Cycles {
		chain := strings.Join(append(append([]string{}, cycle...), cycle[0]), " "+iconArrow+" ")
		fmt.Println("  " + StyleError.Render(chain))
	}
}

// renderCoupling prints the most connected modules as a table, ordered by
// total degree.
func renderCoupling(r *analysis.Report) {
	if len(r.Modules) == 0 {
		return
	}

	stats := make([]analysis.ModuleStat, len(r.Modules))
	copy(stats, r.Modules)
	sort.SliceStable(stats, func(i, j int) bool {
		return stats[i].FanIn+stats[i].FanOut > stats[j].FanIn+stats[j].FanOut
	})
	if len(stats) > topModules {
		stats = stats[:topModules]
	}

	rows := make([][]string, len(stats))
	for i, s := range stats {
		rows[i] = []string{
			s.ID,
			strconv.Itoa(s.FanIn),
			strconv.Itoa(s.FanOut),
			strconv.Itoa(s.ExternalRefs),
		}
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("Module", "Fan-in", "Fan-out", "External").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			if col == 0 {
				return StyleValue
			}
			return StyleDim
		})

	printNewline()
	fmt.Println(StyleTitle.Render("Most Connected Modules"))
	fmt.Println(t.Render())
}

func depthString(r *analysis.Report) string {
	if r.MaxDepth == nil {
		return StyleError.Render("undefined (cyclic)")
	}
	return strconv.Itoa(*r.MaxDepth)
}

func moduleList(modules []string) string {
	const maxShown = 5
	if len(modules) == 0 {
		return StyleDim.Render("none")
	}
	shown := modules
	if len(shown) > maxShown {
		shown = shown[:maxShown]
	}
	s := strings.Join(shown, ", ")
	if len(modules) > maxShown {
		s += StyleDim.Render(fmt.Sprintf(" … %d more", len(modules)-maxShown))
	}
	return s
}
