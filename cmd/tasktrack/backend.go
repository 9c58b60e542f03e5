package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/actionsum/tasktrack/internal/backend"
	"github.com/actionsum/tasktrack/internal/database"
	"github.com/actionsum/tasktrack/internal/models"
	"github.com/actionsum/tasktrack/internal/reporter"
	"github.com/actionsum/tasktrack/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the persistence backend",
	Long: `Run the persistence backend: projects, tasks, actual-hours updates and
the activity records the tracker delivers, stored in a local sqlite database.`,
	RunE: runServe,
}

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "List projects known to the backend",
	RunE:  runProjects,
}

var projectsAddCmd = &cobra.Command{
	Use:   "add NAME",
	Short: "Create a project in the local database",
	Args:  cobra.ExactArgs(1),
	RunE:  runProjectsAdd,
}

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "List the tasks of a project",
	RunE:  runTasks,
}

var tasksAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Create a task in the local database",
	RunE:  runTasksAdd,
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Summarize recorded activity",
	RunE:  runReport,
}

var activityCmd = &cobra.Command{
	Use:   "activity",
	Short: "Manage stored activity blocks",
}

var activityPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete stored blocks older than a cutoff, or all of them",
	RunE:  runActivityPrune,
}

var (
	servePort   int
	serveRetain time.Duration

	pruneOlderThan time.Duration
	pruneAll       bool

	tasksProject int64
	taskName     string
	taskEst      float64
	taskParent   int64

	reportPeriod string
	reportTask   int64
	reportFormat string
)

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(projectsCmd)
	rootCmd.AddCommand(tasksCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(activityCmd)
	activityCmd.AddCommand(activityPruneCmd)
	projectsCmd.AddCommand(projectsAddCmd)
	tasksCmd.AddCommand(tasksAddCmd)

	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Listen port (overrides config)")
	serveCmd.Flags().DurationVar(&serveRetain, "retain", 0, "Delete blocks older than this while serving (overrides config)")

	activityPruneCmd.Flags().DurationVar(&pruneOlderThan, "older-than", 0, "Delete blocks older than this, e.g. 720h")
	activityPruneCmd.Flags().BoolVar(&pruneAll, "all", false, "Delete every stored block")
	activityPruneCmd.MarkFlagsMutuallyExclusive("older-than", "all")
	activityPruneCmd.MarkFlagsOneRequired("older-than", "all")

	tasksCmd.PersistentFlags().Int64Var(&tasksProject, "project", 0, "Project ID")
	tasksCmd.MarkPersistentFlagRequired("project")
	tasksAddCmd.Flags().StringVar(&taskName, "name", "", "Task name")
	tasksAddCmd.Flags().Float64Var(&taskEst, "est", 0, "Estimated hours")
	tasksAddCmd.Flags().Int64Var(&taskParent, "parent", 0, "Parent task ID")
	tasksAddCmd.MarkFlagRequired("name")

	reportCmd.Flags().StringVar(&reportPeriod, "period", "day", "Report period: day, week or month")
	reportCmd.Flags().Int64Var(&reportTask, "task", 0, "Only include this task")
	reportCmd.Flags().StringVar(&reportFormat, "format", "text", "Output format: text or json")
}

// openRepository opens and migrates the configured database.
func openRepository(path string) (*database.DB, *database.Repository, error) {
	db, err := database.Connect(path)
	if err != nil {
		return nil, nil, err
	}
	if err := db.Initialize(); err != nil {
		db.Close()
		return nil, nil, err
	}
	return db, database.NewRepository(db), nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if cmd.Flags().Changed("port") {
		if err := cfg.SetWebPort(servePort); err != nil {
			return err
		}
	}
	if cmd.Flags().Changed("retain") {
		if err := cfg.SetRetention(serveRetain); err != nil {
			return err
		}
	}

	db, repo, err := openRepository(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	srv := web.NewServer(cfg, repo)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigCh:
	case err := <-errCh:
		return fmt.Errorf("backend server failed: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Error shutting down backend server: %v", err)
	}
	return nil
}

func runProjects(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
	defer cancel()

	projects, err := backend.NewClient(cfg.Backend.URL, cfg.Backend.Timeout).ListProjects(ctx)
	if err != nil {
		return err
	}
	if len(projects) == 0 {
		fmt.Println("No projects")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME")
	for _, p := range projects {
		fmt.Fprintf(w, "%d\t%s\n", p.ID, p.Name)
	}
	return w.Flush()
}

func runProjectsAdd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	db, repo, err := openRepository(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	project := &models.Project{Name: args[0]}
	if err := repo.CreateProject(project); err != nil {
		return err
	}
	fmt.Printf("Created project %d: %s\n", project.ID, project.Name)
	return nil
}

func runTasks(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
	defer cancel()

	tasks, err := backend.NewClient(cfg.Backend.URL, cfg.Backend.Timeout).ListTasks(ctx, tasksProject)
	if err != nil {
		return err
	}
	if len(tasks) == 0 {
		fmt.Printf("No tasks in project %d\n", tasksProject)
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tEST\tACTUAL")
	for _, t := range tasks {
		fmt.Fprintf(w, "%d\t%s\t%.2fh\t%.2fh\n", t.ID, t.Name, t.EstHours, t.ActHours)
	}
	return w.Flush()
}

func runTasksAdd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	db, repo, err := openRepository(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	task := &models.Task{
		ProjectID: tasksProject,
		Name:      taskName,
		EstHours:  taskEst,
	}
	if taskParent > 0 {
		parent, err := repo.GetTask(taskParent)
		if err != nil {
			return fmt.Errorf("parent task %d: %w", taskParent, err)
		}
		task.ParentID = &parent.ID
		task.TaskLevel = parent.TaskLevel + 1
	}

	if err := repo.CreateTask(task); err != nil {
		return err
	}
	fmt.Printf("Created task %d: %s\n", task.ID, task.Name)
	return nil
}

func runReport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	db, repo, err := openRepository(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	rep := reporter.New(repo, loc)
	report, err := rep.GenerateReport(reportPeriod, reportTask)
	if err != nil {
		return err
	}

	switch reportFormat {
	case "json":
		out, err := rep.FormatReportJSON(report)
		if err != nil {
			return err
		}
		fmt.Println(out)
	case "text":
		fmt.Print(rep.FormatReportText(report))
	default:
		return fmt.Errorf("unknown format %q (want text or json)", reportFormat)
	}
	return nil
}

func runActivityPrune(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if !pruneAll && pruneOlderThan <= 0 {
		return fmt.Errorf("--older-than must be positive, got %v", pruneOlderThan)
	}

	db, repo, err := openRepository(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	var n int64
	if pruneAll {
		n, err = repo.ClearActivity()
	} else {
		n, err = repo.DeleteActivityBefore(time.Now().Add(-pruneOlderThan))
	}
	if err != nil {
		return err
	}
	fmt.Printf("Deleted %d blocks\n", n)
	return nil
}
