package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/user/chatcal/internal/scheduler"
	"github.com/user/chatcal/internal/state"
	"github.com/user/chatcal/internal/types"
)

func init() {
	rootCmd.AddCommand(briefingCmd)
	briefingCmd.AddCommand(briefingAddCmd, briefingListCmd, briefingRemoveCmd, briefingEnableCmd, briefingDisableCmd)

	briefingAddCmd.Flags().String("name", "", "briefing name (required)")
	briefingAddCmd.Flags().String("schedule", "", "cron schedule, e.g. \"0 8 * * 1-5\" (empty: HTTP trigger only)")
	briefingAddCmd.Flags().Int64("chat-id", 0, "Telegram chat id to brief (required)")
	_ = briefingAddCmd.MarkFlagRequired("name")
	_ = briefingAddCmd.MarkFlagRequired("chat-id")
}

var briefingCmd = &cobra.Command{
	Use:   "briefing",
	Short: "Manage daily agenda briefings",
	Long:  "Manage daily agenda briefings. A running daemon is told to reload them after every change.",
}

var briefingAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a briefing",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("name")
		schedule, _ := cmd.Flags().GetString("schedule")
		chatID, _ := cmd.Flags().GetInt64("chat-id")

		if schedule != "" {
			if err := scheduler.ValidateSchedule(schedule); err != nil {
				return err
			}
		}

		b := &state.Briefing{
			Name:     name,
			Schedule: schedule,
			ChatID:   types.ChatID(chatID),
			Enabled:  true,
		}
		if err := briefingStore(loadConfig()).Add(b); err != nil {
			return fmt.Errorf("add briefing: %w", err)
		}
		fmt.Fprintf(os.Stdout, "Briefing %q added.\n", name)
		reloadBriefings()
		return nil
	},
}

var briefingListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all briefings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		briefings, err := briefingStore(loadConfig()).List()
		if err != nil {
			return fmt.Errorf("list briefings: %w", err)
		}

		if len(briefings) == 0 {
			fmt.Println("No briefings configured.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tSCHEDULE\tENABLED\tCHAT")
		for _, b := range briefings {
			schedule := b.Schedule
			if schedule == "" {
				schedule = "-"
			}
			fmt.Fprintf(w, "%s\t%s\t%v\t%s\n", b.Name, schedule, b.Enabled, b.ChatID)
		}
		return w.Flush()
	},
}

var briefingRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Remove a briefing",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := briefingStore(loadConfig()).Remove(args[0]); err != nil {
			return fmt.Errorf("remove briefing: %w", err)
		}
		fmt.Fprintf(os.Stdout, "Briefing %q removed.\n", args[0])
		reloadBriefings()
		return nil
	},
}

var briefingEnableCmd = &cobra.Command{
	Use:   "enable <name>",
	Short: "Enable a briefing",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setBriefingEnabled(args[0], true)
	},
}

var briefingDisableCmd = &cobra.Command{
	Use:   "disable <name>",
	Short: "Disable a briefing",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setBriefingEnabled(args[0], false)
	},
}

func setBriefingEnabled(name string, enabled bool) error {
	verb := "enable"
	if !enabled {
		verb = "disable"
	}
	if err := briefingStore(loadConfig()).SetEnabled(name, enabled); err != nil {
		return fmt.Errorf("%s briefing: %w", verb, err)
	}
	fmt.Fprintf(os.Stdout, "Briefing %q %sd.\n", name, verb)
	reloadBriefings()
	return nil
}
