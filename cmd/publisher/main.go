package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"sdgmonitor/internal/config"
	"sdgmonitor/internal/logging"
	"sdgmonitor/internal/model"
	"sdgmonitor/internal/monitor"
	"sdgmonitor/internal/progress"
	"sdgmonitor/internal/store"
	"sdgmonitor/internal/store/sqlite"
)

type metaFile struct {
	GeneratedAt string     `json:"generated_at"`
	Source      string     `json:"source"`
	Focal       string     `json:"focal"`
	Baseline    int        `json:"baseline_year"`
	Target      int        `json:"target_year"`
	Runs        []runEntry `json:"runs"`
}

type runEntry struct {
	Goal        int      `json:"goal"`
	GoalName    string   `json:"goal_name"`
	RunID       string   `json:"run_id"`
	Countries   []string `json:"countries"`
	CompletedAt string   `json:"completed_at"`
}

type latestFile struct {
	GeneratedAt string        `json:"generated_at"`
	Rows        []latestEntry `json:"rows"`
}

type latestEntry struct {
	Goal          int      `json:"goal"`
	Indicator     string   `json:"indicator"`
	Label         string   `json:"label"`
	ISO3          string   `json:"iso3"`
	Country       string   `json:"country"`
	BaselineYear  *int     `json:"baseline_year"`
	BaselineValue *float64 `json:"baseline_value"`
	LatestYear    *int     `json:"latest_year"`
	LatestValue   *float64 `json:"latest_value"`
	Delta         *float64 `json:"delta"`
	Status        string   `json:"status"`
	StatusLabel   string   `json:"status_label"`
	Ratio         *float64 `json:"ratio"`
	Progress      *float64 `json:"progress"`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "publisher failed:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := viper.New()
	var cfgFile, level string
	var cfg config.Config

	root := &cobra.Command{
		Use:           "publisher",
		Short:         "Publish stored SDG assessments as static JSON.",
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := logging.SetLevel(level); err != nil {
				return err
			}
			if err := config.Init(v, cfgFile); err != nil {
				return err
			}
			loaded, err := config.Load(v)
			if err != nil {
				return err
			}
			cfg = loaded
			return nil
		},
	}
	flags := root.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.sdgmonitor.yaml)")
	flags.StringVarP(&level, "loglevel", "l", "info", "Set log level. Available: debug, info, warn, error, fatal")
	flags.String("db", "", "sqlite database path")
	flags.String("focal", "", "focal country ISO3 (default IND)")
	flags.String("source", "", "data source the runs were collected from")
	_ = v.BindPFlag("db", flags.Lookup("db"))
	_ = v.BindPFlag("focal", flags.Lookup("focal"))
	_ = v.BindPFlag("source", flags.Lookup("source"))

	var outDir string
	build := &cobra.Command{
		Use:   "build",
		Short: "Write meta.json and latest.json from the latest run of every goal",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(cmd.Context(), cfg, outDir, cmd)
		},
	}
	build.Flags().StringVar(&outDir, "out", "site/data", "output directory")
	root.AddCommand(build)
	return root
}

func runBuild(ctx context.Context, cfg config.Config, outDir string, cmd *cobra.Command) error {
	if strings.TrimSpace(cfg.DB) == "" {
		return errors.New("db path is required")
	}
	st, err := sqlite.New(cfg.DB)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	meta := metaFile{
		GeneratedAt: now,
		Source:      string(cfg.Source),
		Focal:       cfg.Focal,
		Baseline:    model.BaselineYear,
		Target:      model.TargetYear,
		Runs:        make([]runEntry, 0),
	}
	latest := latestFile{GeneratedAt: now, Rows: make([]latestEntry, 0)}

	for goal := 1; goal <= len(monitor.GoalLabels()); goal++ {
		run, assessments, err := st.LatestRun(ctx, cfg.Source, cfg.Focal, goal)
		if errors.Is(err, store.ErrNoRun) {
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to load run for goal %d: %w", goal, err)
		}
		goalName, _ := monitor.GoalName(goal)
		meta.Runs = append(meta.Runs, runEntry{
			Goal:        goal,
			GoalName:    goalName,
			RunID:       run.ID,
			Countries:   run.Countries,
			CompletedAt: run.CompletedAt.UTC().Format(time.RFC3339),
		})
		latest.Rows = append(latest.Rows, buildLatest(assessments)...)
	}

	if err := writeJSON(filepath.Join(outDir, "meta.json"), meta); err != nil {
		return fmt.Errorf("failed to write meta.json: %w", err)
	}
	if err := writeJSON(filepath.Join(outDir, "latest.json"), latest); err != nil {
		return fmt.Errorf("failed to write latest.json: %w", err)
	}

	logging.Log.WithField("runs", len(meta.Runs)).Debug("published runs")
	fmt.Fprintf(cmd.OutOrStdout(), "publisher build complete (out=%s runs=%d rows=%d)\n", outDir, len(meta.Runs), len(latest.Rows))
	return nil
}

func buildLatest(assessments []model.Assessment) []latestEntry {
	rows := make([]latestEntry, 0, len(assessments))
	for _, a := range assessments {
		status, _ := progress.ParseStatus(a.Status)
		result := progress.Result{Status: status, Ratio: a.Ratio}
		var clamped *float64
		if ratio, ok := result.ClampedRatio(); ok {
			clamped = &ratio
		}
		rows = append(rows, latestEntry{
			Goal:          a.Goal,
			Indicator:     a.Indicator,
			Label:         a.Label,
			ISO3:          a.CountryISO3,
			Country:       model.CountryLabel(a.CountryISO3, a.CountryISO3),
			BaselineYear:  a.BaselineYear,
			BaselineValue: a.BaselineValue,
			LatestYear:    a.LatestYear,
			LatestValue:   a.LatestValue,
			Delta:         a.Delta,
			Status:        a.Status,
			StatusLabel:   status.Label(),
			Ratio:         a.Ratio,
			Progress:      clamped,
		})
	}
	return rows
}

func writeJSON(path string, value any) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	return encoder.Encode(value)
}
