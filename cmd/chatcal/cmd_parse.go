package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/user/chatcal/internal/intent"
	"github.com/user/chatcal/internal/temporal"
)

func init() {
	rootCmd.AddCommand(parseCmd)
}

// parseCmd runs only the language model and the validator, so prompts can be
// checked without touching a calendar.
var parseCmd = &cobra.Command{
	Use:   "parse <message>",
	Short: "Show how a message would be interpreted",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		setupLogging(cfg)

		today := temporal.Build(temporal.SystemClock{Location: location(cfg)}.Now())
		raw, err := newParser(cfg).Parse(context.Background(), strings.Join(args, " "), today)
		if err != nil {
			return err
		}

		in, err := intent.Validate(raw)
		if err != nil {
			rawJSON, _ := json.Marshal(raw)
			return fmt.Errorf("%w (model output: %s)", err, rawJSON)
		}

		out, err := json.MarshalIndent(struct {
			Today  string        `json:"today"`
			Kind   intent.Kind   `json:"kind"`
			Intent intent.Intent `json:"intent"`
		}{today.String(), in.Kind(), in}, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(os.Stdout, string(out))
		return nil
	},
}
