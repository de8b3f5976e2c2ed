package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/user/chatcal/internal/config"
)

const unsetValue = "(unset)"

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configListCmd, configGetCmd, configSetCmd)
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long:  "Manage configuration. Keys are dotted paths such as google.calendar_id; run chatcal config list to see them all.",
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all configuration values",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		values, err := config.ListValues(loadConfig(), true)
		if err != nil {
			return fmt.Errorf("list config: %w", err)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "KEY\tVALUE")
		for _, k := range config.Keys() {
			fmt.Fprintf(w, "%s\t%s\n", k, display(values[k]))
		}
		return w.Flush()
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Get a configuration value",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		val, err := config.GetValue(cfgPath, args[0])
		if err != nil {
			return err
		}
		if s, ok := val.(string); ok && config.IsSecretKey(args[0]) {
			val = config.MaskSecrets(map[string]any{args[0]: s})[args[0]]
		}
		fmt.Fprintln(os.Stdout, display(val))
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.SetValue(cfgPath, args[0], args[1]); err != nil {
			return err
		}
		shown := args[1]
		if config.IsSecretKey(args[0]) {
			shown = "***"
		}
		fmt.Fprintf(os.Stdout, "Set %s = %s\n", args[0], shown)
		if proc, err := runningDaemon(); err == nil {
			fmt.Fprintf(os.Stdout, "Daemon (PID %d) is running; run chatcal restart to apply.\n", proc.Pid)
		}
		return nil
	},
}

func display(v any) string {
	if v == nil {
		return unsetValue
	}
	if s, ok := v.(string); ok && s == "" {
		return unsetValue
	}
	return fmt.Sprint(v)
}
