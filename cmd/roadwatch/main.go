package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"roadwatch/internal/app"
	"roadwatch/internal/clock"
	"roadwatch/internal/config"
	"roadwatch/internal/engine"
)

// main starts the pothole escalation service from file or directory config.
// Params: CLI flags (--config-file or --config-dir, optional --check).
// Returns: process exit code by startup/run result.
func main() {
	var (
		configFile = flag.String("config-file", "", "path to one TOML config file")
		configDir  = flag.String("config-dir", "", "path to directory with TOML config fragments")
		check      = flag.Bool("check", false, "validate config and escalation rules, print the rule table, and exit")
	)
	flag.Parse()

	source, err := config.FromCLI(*configFile, *configDir)
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}

	if *check {
		os.Exit(checkConfig(source))
	}

	service, err := app.NewService(source, clock.RealClock{})
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "service init failed:", err.Error())
		os.Exit(1)
	}

	if err := service.Run(context.Background()); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "service run failed:", err.Error())
		os.Exit(1)
	}
}

func checkConfig(source config.ConfigSource) int {
	cfg, err := config.LoadSnapshot(source)
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "config invalid:", err.Error())
		return 1
	}
	table, err := engine.RuleTableFromConfig(cfg.Rule)
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "rule table invalid:", err.Error())
		return 1
	}
	_, _ = fmt.Fprintf(os.Stdout, "mode=%s source=%s monitor_interval=%ds dedup=%t\n",
		cfg.Service.Mode, cfg.Source.Kind, cfg.Monitor.IntervalSec, cfg.Monitor.DedupEnabled())
	for _, rule := range table.Rules() {
		_, _ = fmt.Fprintf(os.Stdout, "%-8s deadline=%dd escalate_after=%dd roles=%v\n",
			rule.Priority, rule.DeadlineDays, rule.EscalateAfterDays, rule.NotifyRoles)
	}
	for _, warning := range table.Warnings() {
		_, _ = fmt.Fprintln(os.Stdout, "warning:", warning)
	}
	return 0
}
