package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/actionsum/tasktrack/internal/activity"
	"github.com/actionsum/tasktrack/internal/backend"
	"github.com/actionsum/tasktrack/internal/control"
	"github.com/actionsum/tasktrack/internal/ui"
	"github.com/actionsum/tasktrack/pkg/utils"
)

const commandTimeout = 10 * time.Second

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start tracking a task",
	Long: `Start tracking a task in the running tracker.

The task's recorded actual hours are read from the backend and used as the
baseline for actual-hours updates. Pass --base-hours to skip the lookup.`,
	RunE: runStart,
}

var pauseCmd = &cobra.Command{
	Use:   "pause",
	Short: "Pause tracking and report actual hours",
	RunE: func(cmd *cobra.Command, args []string) error {
		return sendCommand((*control.Client).Pause)
	},
}

var resumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Resume a paused session with a fresh block",
	RunE: func(cmd *cobra.Command, args []string) error {
		return sendCommand((*control.Client).Resume)
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop tracking; the current block is delivered",
	RunE: func(cmd *cobra.Command, args []string) error {
		return sendCommand((*control.Client).Stop)
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the session state and live counters",
	RunE:  runStatus,
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Live view of the running session",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return ui.Run(control.NewClient(cfg.ControlAddr()), time.Second)
	},
}

var (
	startProject   int64
	startTask      int64
	startBaseHours float64
	statusJSON     bool
)

func init() {
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(pauseCmd)
	rootCmd.AddCommand(resumeCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(watchCmd)

	startCmd.Flags().Int64Var(&startProject, "project", 0, "Project ID")
	startCmd.Flags().Int64Var(&startTask, "task", 0, "Task ID")
	startCmd.Flags().Float64Var(&startBaseHours, "base-hours", 0, "Actual hours already recorded on the task")
	startCmd.MarkFlagRequired("project")
	startCmd.MarkFlagRequired("task")

	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "Print the raw status as JSON")
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
	defer cancel()

	base := startBaseHours
	if !cmd.Flags().Changed("base-hours") {
		task, err := backend.NewClient(cfg.Backend.URL, cfg.Backend.Timeout).GetTask(ctx, startTask)
		if err != nil {
			return fmt.Errorf("failed to read task %d from backend (use --base-hours to skip): %w", startTask, err)
		}
		if task.ProjectID != startProject {
			return fmt.Errorf("task %d belongs to project %d, not %d", startTask, task.ProjectID, startProject)
		}
		base = task.ActHours
	}

	resp, err := control.NewClient(cfg.ControlAddr()).Start(ctx, control.StartRequest{
		ProjectID:       startProject,
		TaskID:          startTask,
		BaseActualHours: base,
	})
	if err != nil {
		return trackerError(err)
	}
	printResponse(resp)
	return nil
}

func sendCommand(op func(*control.Client, context.Context) (*control.Response, error)) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	resp, err := op(control.NewClient(cfg.ControlAddr()), ctx)
	if err != nil {
		return trackerError(err)
	}
	printResponse(resp)
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
	defer cancel()

	st, err := control.NewClient(cfg.ControlAddr()).Status(ctx)
	if err != nil {
		return trackerError(err)
	}

	if statusJSON {
		data, err := json.MarshalIndent(st, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}

	printStatus(st)
	return nil
}

func trackerError(err error) error {
	return fmt.Errorf("tracker not reachable (is 'tasktrack run' running?): %w", err)
}

func printResponse(resp *control.Response) {
	if resp.Ignored {
		fmt.Printf("Ignored: %s\n", resp.Reason)
		return
	}
	fmt.Printf("Session %s\n", resp.Status.State)
}

func printStatus(st *activity.Status) {
	fmt.Printf("State:     %s\n", st.State)
	if st.State == activity.StateIdle {
		return
	}

	fmt.Printf("Task:      %d (project %d)\n", st.TaskID, st.ProjectID)
	fmt.Printf("Input:     %d mouse, %d keyboard\n", st.MouseTotal, st.KeyboardTotal)
	fmt.Printf("Block:     %s\n", st.BlockID)
	fmt.Printf("Minute:    %d/%d (%d recorded)\n", st.MinuteIndex, activity.BlockMinutes, st.RecordedMinutes)

	var last *int
	if st.LastScore != nil {
		last = &st.LastScore.ActivityPercentage
	}
	fmt.Printf("Last:      %s\n", utils.FormatPercent(last))
	fmt.Printf("Elapsed:   %s\n", utils.FormatHours(st.ElapsedHours))
	fmt.Printf("Actual:    %s\n", utils.FormatHours(st.ActualHours))
}
