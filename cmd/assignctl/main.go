package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spec-kit/triage-service/internal/config"
	"github.com/spec-kit/triage-service/internal/events"
	"github.com/spec-kit/triage-service/internal/observability"
	"github.com/spec-kit/triage-service/internal/persistence"
	"github.com/spec-kit/triage-service/internal/repository"
	"github.com/spec-kit/triage-service/internal/service"
)

var rootCmd = &cobra.Command{
	Use:           "assignctl",
	Short:         "Operator tooling for the query triage pipeline",
	Long:          `assignctl runs triage passes over customer support queries: single queries, all unassigned queries, or filtered sets, and reports assignment statistics.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var singleCmd = &cobra.Command{
	Use:   "single <queryId>",
	Short: "Triage one query",
	Args:  cobra.ExactArgs(1),
	RunE:  runSingle,
}

var allCmd = &cobra.Command{
	Use:   "all",
	Short: "Triage every unassigned query",
	RunE:  runAll,
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show assignment statistics",
	RunE:  runStats,
}

var reassignCmd = &cobra.Command{
	Use:   "reassign <queryId>",
	Short: "Re-run triage for an already assigned query",
	Args:  cobra.ExactArgs(1),
	RunE:  runSingle,
}

var apiAddr string

func init() {
	rootCmd.PersistentFlags().StringVar(&apiAddr, "api", "http://127.0.0.1:8080", "API server address")
	rootCmd.AddCommand(singleCmd, allCmd, statsCmd, reassignCmd, filterCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// services bundles the in-process triage stack behind the CLI commands.
type services struct {
	triage *service.TriageService
	batch  *service.BatchTriageService
	close  func()
}

// wireServices builds the same storage and triage stack the API server runs,
// so batch commands work without a server.
func wireServices(ctx context.Context) (*services, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Warn("postgres unavailable, continuing on in-memory store", zap.Error(err))
		pg = &persistence.Postgres{}
	}
	pool := pg.PoolHandle()

	breaker := repository.NewBreaker(logger)
	if pool == nil {
		breaker.Trip("postgres not configured", nil)
	}

	queryRepo := repository.NewFailoverQueryRepository(
		repository.NewQueryRepository(pool), repository.NewMemoryQueryRepository(), breaker)
	teamRepo := repository.NewFailoverTeamRepository(
		repository.NewTeamRepository(pool), repository.NewMemoryTeamRepository(), breaker)
	activityRepo := repository.NewFailoverActivityRepository(
		repository.NewActivityRepository(pool), repository.NewMemoryActivityRepository(), breaker)

	if err := service.EnsureDefaultTeams(ctx, teamRepo, logger); err != nil {
		pg.Close()
		return nil, fmt.Errorf("seed default teams: %w", err)
	}

	triage := service.NewTriageService(service.TriageDependencies{
		QueryRepo:    queryRepo,
		ActivityRepo: activityRepo,
		Detector:     service.NewPriorityDetector(),
		Resolver:     service.NewTeamResolver(teamRepo, logger),
		Workflow:     service.NewStatusWorkflow(),
		Dispatcher:   events.NewInMemoryDispatcher(),
		Logger:       logger,
		Metrics:      observability.NewMetrics(),
	})
	batch := service.NewBatchTriageService(queryRepo, teamRepo, triage, logger)

	return &services{triage: triage, batch: batch, close: pg.Close}, nil
}

func runSingle(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	svc, err := wireServices(ctx)
	if err != nil {
		return err
	}
	defer svc.close()

	result, err := svc.triage.ProcessQuery(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Printf("Query %s: priority=%s status=%s\n", result.QueryID, result.Priority, result.Status)
	if result.Assignment.TeamID != nil {
		fmt.Printf("  Team: %s\n", result.Assignment.TeamName)
	}
	if result.Assignment.UserID != nil {
		fmt.Printf("  Assignee: %s\n", result.Assignment.UserName)
	}
	fmt.Printf("  Reason: %s\n", result.Assignment.Reason)
	return nil
}

func runAll(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	svc, err := wireServices(ctx)
	if err != nil {
		return err
	}
	defer svc.close()

	result, err := svc.batch.AssignAllUnassigned(ctx)
	if err != nil {
		return err
	}
	printBatchResult(result)
	return nil
}

func runStats(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	svc, err := wireServices(ctx)
	if err != nil {
		return err
	}
	defer svc.close()

	stats, err := svc.batch.Stats(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Total: %d\nAssigned: %d\nUnassigned: %d\n", stats.Total, stats.Assigned, stats.Unassigned)
	if len(stats.ByTeam) > 0 {
		fmt.Println("By team:")
		for team, count := range stats.ByTeam {
			fmt.Printf("  %s: %d\n", team, count)
		}
	}
	return nil
}

func printBatchResult(result *service.BatchResult) {
	fmt.Printf("Processed: %d (assigned=%d skipped=%d errors=%d)\n",
		result.Processed, result.Assigned, result.Skipped, result.Errors)
	for _, item := range result.Results {
		switch {
		case item.Success:
			fmt.Printf("  %s -> %s\n", item.QueryID, item.TeamName)
		case item.Error != "":
			fmt.Printf("  %s failed: %s\n", item.QueryID, item.Error)
		default:
			fmt.Printf("  %s skipped\n", item.QueryID)
		}
	}
}
