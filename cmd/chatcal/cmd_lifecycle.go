package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
)

const pidFileName = "chatcal.pid"

func init() {
	rootCmd.AddCommand(stopCmd, restartCmd)
}

func writePIDFile(dataDir string) (string, error) {
	pidPath := filepath.Join(dataDir, pidFileName)
	if err := os.WriteFile(pidPath, []byte(strconv.Itoa(os.Getpid())+"\n"), 0644); err != nil {
		return "", fmt.Errorf("write PID file: %w", err)
	}
	return pidPath, nil
}

// runningDaemon returns the daemon process named by the PID file, checked
// with signal 0.
func runningDaemon() (*os.Process, error) {
	cfg := loadConfig()

	data, err := os.ReadFile(filepath.Join(cfg.DataDir, pidFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("no running daemon (PID file not found)")
		}
		return nil, fmt.Errorf("read PID file: %w", err)
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return nil, fmt.Errorf("invalid PID file content: %w", err)
	}

	proc, err := os.FindProcess(pid)
	if err != nil {
		return nil, fmt.Errorf("find process %d: %w", pid, err)
	}
	if err := proc.Signal(syscall.Signal(0)); err != nil {
		return nil, fmt.Errorf("no running daemon (process %d not found)", pid)
	}
	return proc, nil
}

func signalDaemon(sig syscall.Signal, name, action string) error {
	proc, err := runningDaemon()
	if err != nil {
		return err
	}
	if err := proc.Signal(sig); err != nil {
		return fmt.Errorf("send %s: %w", name, err)
	}
	fmt.Fprintf(os.Stdout, "Sent %s to daemon (PID %d) to %s.\n", name, proc.Pid, action)
	return nil
}

// reloadBriefings asks a running daemon to pick up briefing changes. With
// no daemon there is nothing to reload.
func reloadBriefings() {
	proc, err := runningDaemon()
	if err != nil {
		return
	}
	if err := proc.Signal(syscall.SIGUSR1); err != nil {
		fmt.Fprintf(os.Stderr, "Could not signal daemon (PID %d): %v\nRun chatcal restart to apply.\n", proc.Pid, err)
		return
	}
	fmt.Fprintf(os.Stdout, "Asked daemon (PID %d) to reload its briefings.\n", proc.Pid)
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running daemon",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return signalDaemon(syscall.SIGTERM, "SIGTERM", "stop")
	},
}

var restartCmd = &cobra.Command{
	Use:   "restart",
	Short: "Restart the running daemon",
	Long:  "Restart the running daemon. It re-executes itself, so config changes take effect.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return signalDaemon(syscall.SIGHUP, "SIGHUP", "restart")
	},
}
