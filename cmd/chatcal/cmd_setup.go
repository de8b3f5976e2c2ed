package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/user/chatcal/internal/config"
)

func init() {
	rootCmd.AddCommand(setupCmd)
}

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Interactive setup wizard",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		scanner := bufio.NewScanner(os.Stdin)

		fmt.Println("chatcal setup")
		fmt.Println("Press Enter to accept the value shown in brackets.")
		fmt.Println()

		cfg.Telegram.Token = promptSecret(scanner, "Telegram bot token", cfg.Telegram.Token)

		cfg.Google.ClientID = prompt(scanner, "Google OAuth client ID", cfg.Google.ClientID)
		cfg.Google.ClientSecret = promptSecret(scanner, "Google OAuth client secret", cfg.Google.ClientSecret)
		cfg.Google.CalendarID = prompt(scanner, "Calendar ID", cfg.Google.CalendarID)

		cfg.LLM.BaseURL = prompt(scanner, "LLM base URL", cfg.LLM.BaseURL)
		cfg.LLM.APIKey = promptSecret(scanner, "LLM API key", cfg.LLM.APIKey)
		cfg.LLM.Model = prompt(scanner, "LLM model name", cfg.LLM.Model)
		if n, err := strconv.Atoi(prompt(scanner, "Max output tokens", strconv.Itoa(cfg.LLM.MaxTokens))); err == nil {
			cfg.LLM.MaxTokens = n
		}

		cfg.Timezone = prompt(scanner, "Timezone", cfg.Timezone)

		if err := config.Save(cfgPath, cfg); err != nil {
			return fmt.Errorf("save config: %w", err)
		}

		fmt.Println()
		fmt.Println("Configuration saved to", cfgPath)
		return nil
	},
}

// prompt displays a labeled prompt with a default value and reads user input.
// If the user enters nothing, the default is returned.
func prompt(scanner *bufio.Scanner, label, defaultVal string) string {
	return ask(scanner, label, defaultVal, defaultVal)
}

// promptSecret is prompt with the default shown masked.
func promptSecret(scanner *bufio.Scanner, label, defaultVal string) string {
	shown := defaultVal
	if len(shown) > 4 {
		shown = "***" + shown[len(shown)-4:]
	}
	return ask(scanner, label, defaultVal, shown)
}

func ask(scanner *bufio.Scanner, label, defaultVal, shown string) string {
	if shown != "" {
		fmt.Printf("%s [%s]: ", label, shown)
	} else {
		fmt.Printf("%s: ", label)
	}
	if scanner.Scan() {
		if input := strings.TrimSpace(scanner.Text()); input != "" {
			return input
		}
	}
	return defaultVal
}
