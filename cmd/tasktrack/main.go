package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/actionsum/tasktrack/internal/config"
)

var (
	version = "dev"

	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "tasktrack",
	Short: "Task time and activity tracker",
	Long: `tasktrack records how actively a task is being worked on.

While a session is tracking, keyboard and mouse activity is counted every
minute, grouped into ten-minute blocks together with the focused window and
one screenshot, scored, and delivered to the persistence backend.

Run the tracker with 'tasktrack run', then drive it with start, pause,
resume and stop. 'tasktrack serve' runs the persistence backend.`,
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("tasktrack %s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file (default $TASKTRACK_CONFIG)")
	rootCmd.AddCommand(versionCmd)
}

// loadConfig resolves the effective configuration for a command.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
