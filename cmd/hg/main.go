package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/vanderheijden86/herbgraph/pkg/config"
	"github.com/vanderheijden86/herbgraph/pkg/debug"
	"github.com/vanderheijden86/herbgraph/pkg/explorer"
	"github.com/vanderheijden86/herbgraph/pkg/kgclient"
	"github.com/vanderheijden86/herbgraph/pkg/metrics"
	"github.com/vanderheijden86/herbgraph/pkg/ui"
	"github.com/vanderheijden86/herbgraph/pkg/version"
)

func main() {
	help := flag.Bool("help", false, "Show help")
	versionFlag := flag.Bool("version", false, "Show version")
	configPath := flag.String("config", "", "Path to config file (default: $XDG_CONFIG_HOME/herbgraph/config.yaml)")
	serverURL := flag.String("server", "", "Backend base URL (overrides config and HG_SERVER_URL)")
	timeout := flag.Duration("timeout", 0, "Per-request timeout (0 waits indefinitely)")
	pane := flag.String("pane", "", "Pane focused at startup: graph, tree or info")
	fontPath := flag.String("font", "", "TrueType font for PNG export labels (needed for CJK text)")
	showMetrics := flag.Bool("metrics", false, "Print timing metrics to stderr on exit")
	robotQuery := flag.String("robot-query", "", "Print the subgraph for TERM as JSON and exit")
	robotDetails := flag.String("robot-details", "", "Print the neighbours of entity ID as JSON and exit")
	robotSuggest := flag.String("robot-suggest", "", "Print autocomplete suggestions for PREFIX as JSON and exit")
	exportFile := flag.String("export", "", "Search --robot-query TERM and write the graph to FILE (.svg, .png or .json)")
	flag.Parse()

	if *help {
		fmt.Println("Usage: hg [options]")
		fmt.Println("\nA terminal explorer for the plant knowledge graph.")
		fmt.Println("\nOptions:")
		flag.PrintDefaults()
		fmt.Println("\nEnvironment:")
		fmt.Println("  HG_SERVER_URL   backend base URL")
		fmt.Println("  HG_DEBUG        log diagnostics to stderr (or HG_DEBUG_FILE)")
		fmt.Println("  HG_METRICS=0    disable timing collection")
		os.Exit(0)
	}

	if *versionFlag {
		fmt.Printf("hg %s\n", version.Version)
		os.Exit(0)
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
	}
	cfg.ApplyEnv()
	if *serverURL != "" {
		cfg.Client.ServerURL = *serverURL
	}
	if *timeout > 0 {
		cfg.Client.Timeout = *timeout
	}
	if *pane != "" {
		cfg.UI.DefaultPane = *pane
	}
	if *showMetrics {
		metrics.SetEnabled(true)
		defer dumpMetrics(os.Stderr)
	}

	client, err := kgclient.New(cfg.Client.ServerURL, kgclient.WithTimeout(cfg.Client.Timeout))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	debug.Log("backend %s", client.BaseURL())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch {
	case *exportFile != "":
		if *robotQuery == "" {
			fmt.Fprintln(os.Stderr, "Error: --export needs --robot-query TERM")
			os.Exit(2)
		}
		err = runExport(ctx, client, *robotQuery, *exportFile, *fontPath)
	case *robotQuery != "":
		err = runRobotQuery(ctx, os.Stdout, client, *robotQuery)
	case *robotDetails != "":
		err = runRobotDetails(ctx, os.Stdout, client, *robotDetails)
	case *robotSuggest != "":
		err = runRobotSuggest(ctx, os.Stdout, client, *robotSuggest)
	default:
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			fmt.Fprintln(os.Stderr, "Error: stdout is not a terminal; use --robot-query, --robot-details or --robot-suggest")
			os.Exit(2)
		}
		exp := explorer.New(ctx, client, scriptOptions(cfg.Script))
		m := ui.NewModel(exp, ui.Options{
			ExportDir:  cfg.UI.ExportDir,
			FontPath:   *fontPath,
			SplitRatio: cfg.UI.SplitRatio,
			StartPane:  cfg.UI.DefaultPane,
		})
		err = runTUIProgram(m)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if *showMetrics {
			dumpMetrics(os.Stderr)
		}
		os.Exit(1)
	}
}

func loadConfig(path string) (config.Config, error) {
	if path != "" {
		return config.LoadFrom(path)
	}
	cfg, err := config.Load()
	if err != nil {
		return config.DefaultConfig(), err
	}
	return cfg, nil
}

func scriptOptions(sc config.ScriptConfig) explorer.ScriptOptions {
	return explorer.ScriptOptions{
		Platform: sc.Platform,
		Style:    sc.Style,
		Audience: sc.Audience,
		N:        sc.N,
	}
}

func runTUIProgram(m ui.Model) error {
	p := tea.NewProgram(
		m,
		tea.WithAltScreen(),
		tea.WithoutSignalHandler(),
	)

	runDone := make(chan struct{})
	defer close(runDone)

	// Graceful shutdown on SIGINT/SIGTERM.
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-runDone:
			return
		case <-sigCh:
		}

		p.Quit()

		select {
		case <-runDone:
			return
		case <-sigCh:
		case <-time.After(5 * time.Second):
		}

		p.Kill()
	}()

	// Auto-quit for scripted smoke runs: HG_TUI_AUTOCLOSE_MS.
	if v := os.Getenv("HG_TUI_AUTOCLOSE_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			go func() {
				timer := time.NewTimer(time.Duration(ms) * time.Millisecond)
				defer timer.Stop()

				select {
				case <-runDone:
					return
				case <-timer.C:
				}
				p.Quit()
			}()
		}
	}

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running TUI: %w", err)
	}
	return nil
}
