package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"perfrunner/internal/baseline"
	"perfrunner/internal/config"
	"perfrunner/internal/report"
	"perfrunner/internal/runner"
	"perfrunner/internal/target"

	"github.com/sirupsen/logrus"
)

func main() {
	var (
		scenarioName   = flag.String("scenario", "", "Scenario to run (see -list)")
		listScenarios  = flag.Bool("list", false, "List available scenarios")
		runAll         = flag.Bool("all", false, "Run every scenario in the catalog")
		scenarioFile   = flag.String("scenario-file", "", "YAML file with additional scenarios")
		baseURL        = flag.String("url", "", "Target base URL (overrides PERF_TARGET_URL)")
		path           = flag.String("path", "/health", "Target path")
		method         = flag.String("method", "GET", "HTTP method")
		customUsers    = flag.Int("users", 0, "Override the scenario's target concurrency")
		customDuration = flag.Duration("duration", 0, "Override the scenario's duration")
		outputDir      = flag.String("output", "", "Directory for result files (overrides PERF_OUTPUT_DIR)")
		acceptBaseline = flag.Bool("accept-baseline", false, "Record this run as the new baseline")
		verbose        = flag.Bool("verbose", false, "Enable debug logging")
	)
	flag.Parse()

	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if *verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}

	cfg := config.Load()
	if *baseURL != "" {
		cfg.TargetURL = *baseURL
	}
	if *outputDir != "" {
		cfg.OutputDir = *outputDir
	}

	scenarios := runner.DefaultScenarios()
	if *scenarioFile != "" {
		extra, err := runner.LoadScenarioFile(*scenarioFile)
		if err != nil {
			logrus.WithError(err).Fatal("Failed to load scenario file")
		}
		for name, sc := range extra {
			scenarios[name] = sc
		}
	}

	switch {
	case *listScenarios:
		printScenarios(scenarios)
	case *scenarioName != "":
		sc, ok := scenarios[*scenarioName]
		if !ok {
			fmt.Fprintf(os.Stderr, "scenario %q not found\n\n", *scenarioName)
			printScenarios(scenarios)
			os.Exit(1)
		}
		applyOverrides(&sc, *customUsers, *customDuration)
		if !runOne(cfg, *scenarioName, sc, *path, *method, *acceptBaseline) {
			os.Exit(1)
		}
	case *runAll:
		passed := true
		names := make([]string, 0, len(scenarios))
		for name := range scenarios {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			if !runOne(cfg, name, scenarios[name], *path, *method, *acceptBaseline) {
				passed = false
			}
		}
		if !passed {
			os.Exit(1)
		}
	default:
		flag.Usage()
		printScenarios(scenarios)
	}
}

func applyOverrides(sc *runner.Scenario, users int, duration time.Duration) {
	if users > 0 {
		sc.Shape.TargetConcurrency = users
	}
	if duration > 0 && sc.Shape.Count == 0 {
		sc.Shape.Duration = duration
		if sc.RunTimeout < duration {
			sc.RunTimeout = duration + 2*time.Minute
		}
	}
}

func runOne(cfg *config.Config, name string, sc runner.Scenario, path, method string, accept bool) bool {
	store := openStore(cfg)

	runCfg := runner.Config{
		Target: target.Target{
			BaseURL: cfg.TargetURL,
			Path:    path,
			Method:  method,
			Tokens:  tokenProvider(cfg),
		},
		Shape:          sc.Shape,
		PerCallTimeout: sc.PerCallTimeout,
		RunTimeout:     sc.RunTimeout,
		Thresholds:     sc.Thresholds,
		Store:          store,
		Scenario:       name,
	}

	result, err := runner.Run(context.Background(), runCfg)
	if err != nil {
		logrus.WithError(err).WithField("scenario", name).Error("Run setup failed")
		return false
	}

	fmt.Println(result.Summary.Text())

	if err := saveSummary(cfg.OutputDir, name, result.Summary); err != nil {
		logrus.WithError(err).Warn("Failed to save result files")
	}

	if accept {
		if _, err := runner.AcceptBaseline(context.Background(), store, runCfg.Target.Key(), result.Metrics); err != nil {
			logrus.WithError(err).Error("Failed to record new baseline")
			return false
		}
	}

	return result.Summary.Passed
}

func openStore(cfg *config.Config) baseline.Store {
	switch cfg.BaselineStore {
	case "redis":
		store, err := baseline.NewRedisStore(cfg.RedisURL)
		if err != nil {
			logrus.WithError(err).Warn("Redis baseline store unavailable, continuing without baselines")
			return nil
		}
		return store
	case "file", "":
		return baseline.NewFileStore(cfg.BaselineDir)
	default:
		logrus.WithField("store", cfg.BaselineStore).Warn("Unknown baseline store, continuing without baselines")
		return nil
	}
}

func tokenProvider(cfg *config.Config) target.TokenProvider {
	switch {
	case cfg.AuthToken != "":
		return target.StaticToken(cfg.AuthToken)
	case cfg.JWTSecret != "":
		return target.NewJWTSigner(cfg.JWTSecret, "perfrunner", time.Hour)
	default:
		return nil
	}
}

// saveSummary writes the JSON summary and the text report. File output lives
// here in the CLI; the engine itself only builds the in-memory summary.
func saveSummary(dir, scenario string, summary report.Summary) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	stamp := time.Now().Format("20060102_150405")

	jsonPath := filepath.Join(dir, fmt.Sprintf("%s_%s.json", scenario, stamp))
	raw, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode summary: %w", err)
	}
	if err := os.WriteFile(jsonPath, raw, 0o644); err != nil {
		return fmt.Errorf("failed to write summary JSON: %w", err)
	}

	textPath := filepath.Join(dir, fmt.Sprintf("%s_%s_report.txt", scenario, stamp))
	if err := os.WriteFile(textPath, []byte(summary.Text()), 0o644); err != nil {
		return fmt.Errorf("failed to write text report: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"scenario":    scenario,
		"json_file":   jsonPath,
		"report_file": textPath,
	}).Info("Run results saved")

	return nil
}

func printScenarios(scenarios map[string]runner.Scenario) {
	names := make([]string, 0, len(scenarios))
	for name := range scenarios {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Println("\nAvailable scenarios:")
	for _, name := range names {
		fmt.Printf("  %-16s %s\n", name, scenarios[name].Description)
	}
	fmt.Println("\nExamples:")
	fmt.Println("  perfrunner -scenario smoke -url http://localhost:9000")
	fmt.Println("  perfrunner -scenario sustained_load -users 100")
	fmt.Println("  perfrunner -all -accept-baseline")
}
