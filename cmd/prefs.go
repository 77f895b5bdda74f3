package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/luki/tempwatch/internal/prefs"
)

var prefsCmd = &cobra.Command{
	Use:   "prefs",
	Short: "Inspect or convert a preferences file",
}

var prefsShowCmd = &cobra.Command{
	Use:   "show [file]",
	Short: "Print the sensors of a preferences file",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runPrefsShow,
}

var prefsConvertCmd = &cobra.Command{
	Use:   "convert <in> <out> <text|binary>",
	Short: "Rewrite a preferences file in another format",
	Args:  cobra.ExactArgs(3),
	RunE:  runPrefsConvert,
}

func init() {
	prefsCmd.AddCommand(prefsShowCmd)
	prefsCmd.AddCommand(prefsConvertCmd)
	rootCmd.AddCommand(prefsCmd)
}

func runPrefsShow(cmd *cobra.Command, args []string) error {
	path := prefsPath
	if len(args) == 1 {
		path = args[0]
	}
	if path == "" {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		path = cfg.PrefsFile()
	}

	set, format, err := prefs.Load(path)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s (%s, %d sensors)\n", path, format, set.Len())
	return printPrefs(cmd.OutOrStdout(), set)
}

func printPrefs(w io.Writer, set *prefs.Set) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tCRIT\tCOLOUR\tACTIVE\tCOMMAND")
	for _, p := range set.All() {
		command := p.Command
		if command == "" {
			command = "-"
		}
		fmt.Fprintf(tw, "%s\t%.1f\t%d\t%t\t%s\n", p.Name, p.Crit, p.Color, p.Active, command)
	}
	return tw.Flush()
}

func runPrefsConvert(cmd *cobra.Command, args []string) error {
	in, out := args[0], args[1]
	format, err := prefs.ParseFormat(args[2])
	if err != nil {
		return err
	}
	set, from, err := prefs.Load(in)
	if err != nil {
		return err
	}
	if err := prefs.Save(out, set, format); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "converted %d sensors from %s to %s: %s\n", set.Len(), from, format, out)
	return nil
}
