package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/devicelab-dev/swaglabs-runner/pkg/config"
	"github.com/devicelab-dev/swaglabs-runner/pkg/core"
	"github.com/devicelab-dev/swaglabs-runner/pkg/driver/appium"
	"github.com/devicelab-dev/swaglabs-runner/pkg/driver/mock"
	"github.com/devicelab-dev/swaglabs-runner/pkg/logger"
	"github.com/devicelab-dev/swaglabs-runner/pkg/report"
	"github.com/devicelab-dev/swaglabs-runner/pkg/scenario"
)

var testCommand = &cli.Command{
	Name:  "test",
	Usage: "Run the Swag Labs scenarios",
	Description: `Run the scenario catalogue (or a filtered part of it) on one or more devices.
With more than one device, scenarios are spread across the devices in parallel.

Reports are generated in the output directory:
  - Default: <outputDir>/<timestamp>/
  - With --output: <output>/<timestamp>/
  - With --output and --flatten: <output>/ (no timestamp subfolder)

The valid login is read from TEST_USERNAME and TEST_PASSWORD, or from a .env file.

Examples:
  swaglabs-runner test
  swaglabs-runner test --run invalid_login
  swaglabs-runner test --tag smoke --retries 1
  swaglabs-runner --device emulator-5554,emulator-5556 test
  swaglabs-runner test --output ./my-reports --flatten`,
	Flags: []cli.Flag{
		// Selection
		&cli.StringFlag{
			Name:  "run",
			Usage: "Only run scenarios whose name matches this glob",
		},
		&cli.StringSliceFlag{
			Name:  "tag",
			Usage: "Only run scenarios with one of these tags",
		},
		&cli.StringSliceFlag{
			Name:  "exclude-tag",
			Usage: "Skip scenarios with any of these tags",
		},

		// Output directory
		&cli.StringFlag{
			Name:  "output",
			Usage: "Output directory for reports (default: outputDir from config)",
		},
		&cli.BoolFlag{
			Name:  "flatten",
			Usage: "Don't create timestamp subfolder (requires --output)",
		},

		// Execution
		&cli.IntFlag{
			Name:  "retries",
			Usage: "Extra attempts for a scenario that does not pass",
		},
		&cli.DurationFlag{
			Name:  "wait",
			Usage: "Implicit wait for element lookups (e.g. 10s)",
		},
		&cli.BoolFlag{
			Name:  "stop-on-fail",
			Usage: "Skip the remaining scenarios after the first one that does not pass",
		},
		&cli.BoolFlag{
			Name:  "capture-on-failure",
			Usage: "Save a screenshot and page source for every attempt that does not pass",
		},
	},
	Action: runTest,
}

func runTest(c *cli.Context) error {
	cfg, err := resolveConfig(c)
	if err != nil {
		return err
	}

	outputDir, err := resolveOutputDir(cfg.OutputDir, c.String("output"), c.Bool("flatten"))
	if err != nil {
		return err
	}

	filter := scenario.Filter{
		Pattern:     cfg.Run,
		IncludeTags: cfg.IncludeTags,
		ExcludeTags: cfg.ExcludeTags,
	}
	return executeTest(c.Context, c.App.Writer, cfg, filter, outputDir, c.Bool("verbose"))
}

// resolveConfig loads the workspace config and applies command-line
// overrides on top of it.
func resolveConfig(c *cli.Context) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if path := c.String("config"); path != "" {
		cfg, err = config.Load(path)
	} else {
		cfg, err = config.LoadFromDir(".")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if c.IsSet("appium-url") {
		cfg.ServerURL = c.String("appium-url")
	}
	if c.IsSet("platform") {
		cfg.Platform = strings.ToLower(c.String("platform"))
	}
	if c.IsSet("device") {
		cfg.Devices = parseDevices(c.String("device"))
	}
	if c.IsSet("run") {
		cfg.Run = c.String("run")
	}
	if c.IsSet("tag") {
		cfg.IncludeTags = c.StringSlice("tag")
	}
	if c.IsSet("exclude-tag") {
		cfg.ExcludeTags = c.StringSlice("exclude-tag")
	}
	if c.IsSet("retries") {
		cfg.Retries = c.Int("retries")
	}
	if c.IsSet("wait") {
		cfg.ImplicitWait = c.Duration("wait")
	}
	if c.IsSet("stop-on-fail") {
		cfg.StopOnFail = c.Bool("stop-on-fail")
	}
	if c.IsSet("capture-on-failure") {
		cfg.Artifacts.CaptureOnFailure = c.Bool("capture-on-failure")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// parseDevices parses the --device flag value into a slice of device UDIDs.
func parseDevices(deviceFlag string) []string {
	var devices []string
	for _, d := range strings.Split(deviceFlag, ",") {
		if d = strings.TrimSpace(d); d != "" {
			devices = append(devices, d)
		}
	}
	return devices
}

// resolveOutputDir determines the output directory based on flags.
// - No --output: <base>/<timestamp>/
// - --output given: <output>/<timestamp>/
// - --output + --flatten: <output>/ (error if --output not given)
func resolveOutputDir(base, output string, flatten bool) (string, error) {
	if flatten && output == "" {
		return "", fmt.Errorf("--flatten requires --output to be specified")
	}

	baseDir := output
	if baseDir == "" {
		baseDir = base
	}

	if flatten {
		return filepath.Clean(baseDir), nil
	}

	// Create timestamp-based subfolder
	timestamp := time.Now().Format("2006-01-02_15-04-05")
	return filepath.Join(baseDir, timestamp), nil
}

func executeTest(ctx context.Context, w io.Writer, cfg *config.Config, filter scenario.Filter, outputDir string, verbose bool) error {
	// 1. Select scenarios
	scenarios, err := scenario.Select(scenario.Catalogue(), filter)
	if err != nil {
		return err
	}
	if len(scenarios) == 0 {
		return fmt.Errorf("no scenarios match the selection")
	}

	// 2. Create output directory
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	// 3. Initialize logging
	logPath := filepath.Join(outputDir, "swaglabs-runner.log")
	if err := logger.Init(logPath, verbose); err != nil {
		fmt.Fprintf(w, "Warning: Failed to initialize logger: %v\n", err)
	}
	defer logger.Close()

	logger.Info("=== Test execution started ===")
	logger.Info("Output directory: %s", outputDir)
	logger.Info("Platform: %s, server: %s", cfg.Platform, cfg.ServerURL)
	logger.Info("Scenarios: %s", scenario.Names(scenarios))

	// 4. Credentials for valid_login
	creds, err := config.LoadCredentials(".env", config.GetEnvFile())
	if err != nil {
		return fmt.Errorf("failed to load credentials: %w", err)
	}
	if !creds.IsSet() {
		logger.Warn("%s/%s not set; valid_login will error", config.EnvUsername, config.EnvPassword)
	}

	// 5. Devices and runner configuration
	devices := buildDevices(cfg)
	out := &progress{w: w}
	runCfg := scenario.Config{
		OutputDir:       outputDir,
		Retries:         cfg.Retries,
		StopOnFail:      cfg.StopOnFail,
		Wait:            cfg.ImplicitWait,
		Valid:           scenario.Credentials{Username: creds.Username, Password: creds.Password},
		Artifacts:       cfg.Artifacts,
		App:             report.App{ID: appID(cfg), Name: "Swag Labs"},
		RunnerVersion:   Version,
		DriverName:      driverName(cfg.Platform),
		OnScenarioStart: out.onScenarioStart,
		OnScenarioEnd:   out.onScenarioEnd,
	}

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 6. Run
	var result *scenario.RunResult
	if len(devices) > 1 {
		fmt.Fprintf(w, "Running %d scenarios on %d devices\n", len(scenarios), len(devices))
		result, err = scenario.NewParallelRunner(devices, runCfg).Run(ctx, scenarios)
	} else {
		fmt.Fprintf(w, "Running %d scenarios on %s\n", len(scenarios), devices[0].ID)
		result, err = scenario.New(devices[0], runCfg).Run(ctx, scenarios)
	}
	if err != nil {
		return fmt.Errorf("run failed: %w", err)
	}

	// 7. Summary
	printSummary(w, result)
	fmt.Fprintf(w, "\n  Report: %s\n", filepath.Join(outputDir, "report.json"))
	logger.Info("=== Test execution finished: %s ===", result.Status)

	if result.Status != core.StatusPassed {
		return fmt.Errorf("%d failed, %d errored of %d scenarios", result.Failed, result.Errored, result.Total)
	}
	return nil
}

// buildDevices returns one device per configured UDID. With no UDIDs a
// single device is used and the Appium server picks it.
func buildDevices(cfg *config.Config) []scenario.Device {
	ids := cfg.Devices
	if len(ids) == 0 {
		ids = []string{""}
	}

	devices := make([]scenario.Device, 0, len(ids))
	for _, id := range ids {
		label := id
		if label == "" {
			label = cfg.Platform
		}
		devices = append(devices, scenario.Device{
			ID:       label,
			Platform: cfg.Platform,
			Open:     sessionFactory(cfg, id, label),
		})
	}
	return devices
}

func sessionFactory(cfg *config.Config, udid, label string) scenario.SessionFactory {
	if cfg.Platform == "mock" {
		return func(ctx context.Context) (core.Session, error) {
			return mock.New(mock.Config{Platform: "mock", DeviceID: label}), nil
		}
	}

	caps := cfg.CapabilitiesFor(udid)
	serverURL := cfg.ServerURL
	return func(ctx context.Context) (core.Session, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		logger.Debug("creating Appium session on %s (%s)", label, serverURL)
		s, err := appium.NewSession(serverURL, caps)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
}

func appID(cfg *config.Config) string {
	if cfg.Platform == "mock" {
		return mock.DefaultAppID
	}
	for _, key := range []string{"appPackage", "bundleId", "appium:appPackage", "appium:bundleId"} {
		if id, ok := cfg.Capabilities[key].(string); ok && id != "" {
			return id
		}
	}
	return ""
}

func driverName(platform string) string {
	if platform == "mock" {
		return "mock"
	}
	return "appium"
}

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorBold   = "\033[1m"
	colorGreen  = "\033[32m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorGray   = "\033[90m"
)

// Slow scenario threshold in milliseconds (30 seconds)
const slowThresholdMs = 30000

// colorsEnabled determines if ANSI colors should be used
var colorsEnabled = true

func init() {
	// Respect NO_COLOR environment variable
	if os.Getenv("NO_COLOR") != "" {
		colorsEnabled = false
		return
	}
	// Check if stdout is a terminal
	if fileInfo, err := os.Stdout.Stat(); err == nil {
		if (fileInfo.Mode() & os.ModeCharDevice) == 0 {
			colorsEnabled = false
		}
	}
}

// color returns the color code if colors are enabled, empty string otherwise
func color(c string) string {
	if colorsEnabled {
		return c
	}
	return ""
}

// progress prints live scenario progress. Parallel runners call it from
// several goroutines.
type progress struct {
	mu sync.Mutex
	w  io.Writer
}

func (p *progress) onScenarioStart(idx, total int, name, device string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.w, "  %s[%d/%d]%s %s%s%s %s(%s)%s\n",
		color(colorCyan), idx+1, total, color(colorReset),
		color(colorBold), name, color(colorReset),
		color(colorGray), device, color(colorReset))
}

func (p *progress) onScenarioEnd(name, device string, status core.Status, durationMs int64, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	durStr := formatDuration(durationMs)
	switch status {
	case core.StatusPassed:
		symbol, symbolColor, durColor := "✓", color(colorGreen), ""
		if durationMs >= slowThresholdMs {
			symbol, symbolColor, durColor = "⚠", color(colorYellow), color(colorYellow)
		}
		fmt.Fprintf(p.w, "    %s%s%s %s %s(%s)%s\n",
			symbolColor, symbol, color(colorReset), name, durColor, durStr, color(colorReset))
	default:
		fmt.Fprintf(p.w, "    %s✗%s %s [%s] (%s)\n", color(colorRed), color(colorReset), name, status, durStr)
		if err != nil {
			fmt.Fprintf(p.w, "      %s╰─%s %v\n", color(colorGray), color(colorReset), err)
		}
	}
}

func printSummary(w io.Writer, result *scenario.RunResult) {
	fmt.Fprintln(w)
	if result.Passed > 0 {
		fmt.Fprintf(w, "  %s%d passing%s (%s)\n", color(colorGreen), result.Passed, color(colorReset), formatDuration(result.Duration))
	}
	if result.Failed > 0 {
		fmt.Fprintf(w, "  %s%d failing%s\n", color(colorRed), result.Failed, color(colorReset))
	}
	if result.Errored > 0 {
		fmt.Fprintf(w, "  %s%d errored%s\n", color(colorRed), result.Errored, color(colorReset))
	}
	if result.Skipped > 0 {
		fmt.Fprintf(w, "  %s%d skipped%s\n", color(colorCyan), result.Skipped, color(colorReset))
	}
	fmt.Fprintln(w)

	// Print table
	tableWidth := 92
	fmt.Fprintln(w, strings.Repeat("═", tableWidth))
	fmt.Fprintf(w, "  %-40s %-9s %-20s %8s %10s\n", "Scenario", "Status", "Device", "Attempts", "Duration")
	fmt.Fprintln(w, strings.Repeat("─", tableWidth))

	for _, r := range result.Scenarios {
		var status, statusColor string
		switch r.Status {
		case core.StatusPassed:
			status, statusColor = "✓ PASS", color(colorGreen)
		case core.StatusFailed:
			status, statusColor = "✗ FAIL", color(colorRed)
		case core.StatusErrored:
			status, statusColor = "✗ ERROR", color(colorRed)
		default:
			status, statusColor = "- SKIP", color(colorCyan)
		}

		// Truncate name if too long
		name := r.Name
		if len(name) > 40 {
			name = name[:37] + "..."
		}
		device := r.Device
		if device == "" {
			device = "-"
		}

		fmt.Fprintf(w, "  %-40s %s%-9s%s %-20s %8d %10s\n",
			name, statusColor, status, color(colorReset), device, r.Attempts, formatDuration(r.Duration))
	}

	// Print totals row
	fmt.Fprintln(w, strings.Repeat("─", tableWidth))
	statusStr := fmt.Sprintf("%d/%d", result.Passed, result.Total)
	statusColor := color(colorGreen)
	if result.Failed > 0 || result.Errored > 0 {
		statusColor = color(colorRed)
	}
	fmt.Fprintf(w, "  %s%-40s%s %s%-9s%s %-20s %8s %10s\n",
		color(colorBold), "TOTAL", color(colorReset),
		statusColor, statusStr, color(colorReset), "", "",
		formatDuration(result.Duration))
	fmt.Fprintln(w, strings.Repeat("═", tableWidth))
}

// formatDuration formats milliseconds to a human-readable string.
// Shows milliseconds for values < 1s, seconds otherwise.
func formatDuration(ms int64) string {
	if ms < 1000 {
		return fmt.Sprintf("%dms", ms)
	}
	if ms < 60000 {
		return fmt.Sprintf("%.1fs", float64(ms)/1000)
	}
	mins := ms / 60000
	secs := (ms % 60000) / 1000
	return fmt.Sprintf("%dm %ds", mins, secs)
}
