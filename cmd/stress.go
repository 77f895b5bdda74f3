package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/luki/tempwatch/internal/logger"
	"github.com/luki/tempwatch/internal/stress"
)

var stressCmd = &cobra.Command{
	Use:   "stress <target> [duration]",
	Short: "Heat up a component to test alerts",
	Long: fmt.Sprintf(`Runs a load generator until the duration (default %s) elapses or the
command is interrupted.

Targets:
%s`, stress.DefaultDuration, targetHelp()),
	Args:      cobra.RangeArgs(1, 2),
	ValidArgs: targetNames(),
	RunE:      runStress,
}

func targetNames() []string {
	names := make([]string, 0, len(stress.Targets))
	for _, t := range stress.Targets {
		names = append(names, t.Name)
	}
	return names
}

func targetHelp() string {
	var b strings.Builder
	for _, t := range stress.Targets {
		fmt.Fprintf(&b, "  %-6s %s\n", t.Name, t.Desc)
	}
	return b.String()
}

func init() {
	rootCmd.AddCommand(stressCmd)
}

func runStress(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	initLogging(cfg)
	defer logger.Close()

	d := stress.DefaultDuration
	if len(args) == 2 {
		if d, err = stress.ParseDuration(args[1]); err != nil {
			return err
		}
	}
	return stress.New(cmd.OutOrStdout()).Run(cmd.Context(), args[0], d)
}
