package main

import (
	"fmt"
	"os"

	"github.com/apache/beam/sdks/v2/go/pkg/beam"
	_ "modernc.org/sqlite"

	"github.com/verax-qa/verax/apitests"
	"github.com/verax-qa/verax/config"
	"github.com/verax-qa/verax/framework"
	"github.com/verax-qa/verax/logging"
	"github.com/verax-qa/verax/report"
)

func main() {
	var params commandParams
	if !params.Read(os.Args) {
		os.Exit(1)
	}
	beam.Init()

	if params.baseURL != "" {
		params.overrides["api.base_url"] = params.baseURL
	}
	if params.reportDir != "" {
		params.overrides["report.output_dir"] = params.reportDir
	}
	cfg, err := config.Load(params.configDir, params.environment, params.overrides)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %s\n", err)
		os.Exit(1)
	}
	if cfg.API.BaseURL == "" {
		fmt.Fprintln(os.Stderr, "No base URL configured; use -url or set api.base_url")
		os.Exit(1)
	}

	logs, err := logging.New(cfg.Log.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Logging error: %s\n", err)
		os.Exit(1)
	}
	defer func() { _ = logs.Sync() }()

	reporter, err := report.NewReporter(cfg.Report.OutputDir, logs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Report error: %s\n", err)
		os.Exit(1)
	}
	if err := reporter.WriteEnvironment(map[string]string{
		"environment": cfg.Environment,
		"base_url":    cfg.API.BaseURL,
	}); err != nil {
		logs.Warnw("could not write environment description", "error", err)
	}

	if params.filters.MustMatch.IsDefined() {
		fmt.Printf("Running only tests matching %s\n", params.filters.MustMatch.String())
	}
	if params.filters.MustNotMatch.IsDefined() {
		fmt.Printf("Skipping tests matching %s\n", params.filters.MustNotMatch.String())
	}
	fmt.Printf("Running test suite against %s (environment %q)\n\n", cfg.API.BaseURL, cfg.Environment)

	testLogger := framework.MultiTestLogger{Loggers: []framework.TestLogger{
		&framework.ConsoleTestLogger{
			DebugOutputOnFailure: params.debug || params.debugAll,
			DebugOutputOnSuccess: params.debugAll,
		},
		reporter,
	}}

	results := apitests.RunSuite(cfg, apitests.AllSuites(),
		params.filters.AsFilter, testLogger, params.parallelism, logs)

	fmt.Println()
	framework.PrintResults(os.Stdout, results)
	if !results.OK() {
		failed := make([]framework.TestID, 0, len(results.Failures))
		for _, f := range results.Failures {
			failed = append(failed, f.TestID)
		}
		fmt.Printf("\nTo re-run the failed tests:\n  %s\n", rerunCommand(params, failed))
		os.Exit(1)
	}
}
