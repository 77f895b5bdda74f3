package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/luki/tempwatch/internal/chart"
	"github.com/luki/tempwatch/internal/logger"
	"github.com/luki/tempwatch/internal/prefs"
	"github.com/luki/tempwatch/internal/sensor"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "Print the current readings once",
	RunE:    runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	initLogging(cfg)
	defer logger.Close()

	set, _, err := loadPrefs(cfg)
	if err != nil {
		return fmt.Errorf("error loading preferences: %w", err)
	}

	readings, err := newSource().Read(cmd.Context())
	if err != nil {
		return err
	}
	sensor.NewRegistry().Stamp(readings, time.Now())

	fmt.Fprint(cmd.OutOrStdout(), renderList(readings, set, terminalWidth()))
	return nil
}

func terminalWidth() int {
	fd := int(os.Stdout.Fd())
	if !term.IsTerminal(fd) {
		return 80
	}
	w, _, err := term.GetSize(fd)
	if err != nil || w <= 0 {
		return 80
	}
	return w
}

var (
	listHeader = lipgloss.NewStyle().Bold(true).Underline(true)
	listDim    = lipgloss.NewStyle().Faint(true)
)

// Fixed column widths: number, current, high, crit, alert command.
const (
	listNumW  = 4
	listTempW = 9
	listMinW  = 8
	listCmdW  = 20
)

// renderList formats readings as a table that fits width cells.
func renderList(readings []sensor.Reading, set *prefs.Set, width int) string {
	cmdW := listCmdW
	nameW := width - listNumW - 3*listTempW - cmdW
	if nameW < 12 {
		cmdW = 0
		nameW = max(width-listNumW-3*listTempW, listMinW)
	}

	cell := func(s string, w int) string {
		return runewidth.FillRight(runewidth.Truncate(s, w-1, "…"), w)
	}
	right := func(s string, w int) string {
		return runewidth.FillLeft(s, w-1) + " "
	}

	var b strings.Builder
	head := cell("NUM", listNumW) + cell("NAME", nameW) +
		right("CURRENT", listTempW) + right("HIGH", listTempW) + right("CRIT", listTempW)
	if cmdW > 0 {
		head += cell("COMMAND", cmdW)
	}
	b.WriteString(listHeader.Render(strings.TrimRight(head, " ")))
	b.WriteByte('\n')

	for _, r := range readings {
		limits := chart.Limits{High: r.High, HasHigh: r.HasHigh, Crit: r.Crit, HasCrit: r.HasCrit}
		command := ""
		if set != nil {
			if p, ok := set.Get(r.Key()); ok {
				limits.Crit, limits.HasCrit = p.Crit, p.Active
				command = p.Command
			}
		}

		b.WriteString(cell(fmt.Sprintf("%3d", int(r.ID)), listNumW))
		b.WriteString(cell(r.Name(), nameW))
		b.WriteString(strings.Repeat(" ", max(listTempW-1-tempCells(r.Temp), 0)) + chart.RenderTempValue(r.Temp, limits) + " ")
		b.WriteString(right(limitText(r.High, r.HasHigh), listTempW))
		b.WriteString(right(limitText(limits.Crit, limits.HasCrit), listTempW))
		if cmdW > 0 {
			if command == "" {
				b.WriteString(listDim.Render("-"))
			} else {
				b.WriteString(runewidth.Truncate(command, cmdW-1, "…"))
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// tempCells is the display width of RenderTempValue's text.
func tempCells(v float64) int {
	return runewidth.StringWidth(fmt.Sprintf("%5.1f°C", v))
}

func limitText(v float64, ok bool) string {
	if !ok {
		return "-"
	}
	return fmt.Sprintf("%.1f°C", v)
}
