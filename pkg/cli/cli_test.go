package cli

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/devicelab-dev/swaglabs-runner/pkg/config"
	"github.com/devicelab-dev/swaglabs-runner/pkg/core"
	"github.com/devicelab-dev/swaglabs-runner/pkg/report"
	"github.com/devicelab-dev/swaglabs-runner/pkg/scenario"
)

// testEnv isolates a test from the user's home, .env and colors.
func testEnv(t *testing.T) {
	t.Helper()
	config.ResetHome()
	t.Setenv("SWAGLABS_HOME", t.TempDir())
	t.Cleanup(config.ResetHome)

	old := colorsEnabled
	colorsEnabled = false
	t.Cleanup(func() { colorsEnabled = old })
}

func withCredentials(t *testing.T) {
	t.Helper()
	t.Setenv(config.EnvUsername, "standard_user")
	t.Setenv(config.EnvPassword, "secret_sauce")
}

func runApp(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = &out
	err := app.Run(append([]string{"swaglabs-runner"}, args...))
	return out.String(), err
}

func TestResolveOutputDir_Default(t *testing.T) {
	dir, err := resolveOutputDir("reports", "", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.HasPrefix(dir, "reports/") {
		t.Errorf("expected dir to start with reports/, got %s", dir)
	}
	// Should have timestamp subfolder
	parts := strings.Split(dir, "/")
	if len(parts) != 2 {
		t.Errorf("expected reports/<timestamp>, got %s", dir)
	}
}

func TestResolveOutputDir_CustomOutput(t *testing.T) {
	dir, err := resolveOutputDir("reports", "./my-reports", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.HasPrefix(dir, "my-reports/") {
		t.Errorf("expected dir to start with my-reports/, got %s", dir)
	}
}

func TestResolveOutputDir_Flatten(t *testing.T) {
	dir, err := resolveOutputDir("reports", "./my-reports", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if dir != "my-reports" {
		t.Errorf("expected my-reports, got %s", dir)
	}
}

func TestResolveOutputDir_FlattenWithoutOutput(t *testing.T) {
	_, err := resolveOutputDir("reports", "", true)
	if err == nil {
		t.Error("expected error when flatten is used without output")
	}
}

func TestParseDevices(t *testing.T) {
	got := parseDevices(" emulator-5554, ,emulator-5556 ")
	if len(got) != 2 || got[0] != "emulator-5554" || got[1] != "emulator-5556" {
		t.Errorf("parseDevices = %q", got)
	}
	if got := parseDevices(""); len(got) != 0 {
		t.Errorf("expected no devices, got %q", got)
	}
}

func TestGlobalFlags(t *testing.T) {
	if len(GlobalFlags) == 0 {
		t.Error("expected GlobalFlags to be defined")
	}

	flagNames := make(map[string]bool)
	for _, f := range GlobalFlags {
		for _, name := range f.Names() {
			flagNames[name] = true
		}
	}

	requiredFlags := []string{"config", "appium-url", "platform", "p", "device", "verbose"}
	for _, name := range requiredFlags {
		if !flagNames[name] {
			t.Errorf("expected flag %q to be defined", name)
		}
	}
}

func TestTestCommand_MockRunPasses(t *testing.T) {
	testEnv(t)
	withCredentials(t)
	dir := t.TempDir()

	out, err := runApp(t, "-p", "mock", "test", "--output", dir, "--flatten")
	if err != nil {
		t.Fatalf("unexpected error: %v\n%s", err, out)
	}

	for _, s := range scenario.Catalogue() {
		if !strings.Contains(out, s.Name) {
			t.Errorf("output missing %s:\n%s", s.Name, out)
		}
	}

	index, err := report.ReadIndex(dir)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	if index.Status != report.StatusPassed {
		t.Errorf("run status = %s", index.Status)
	}
	if index.Summary.Passed != len(scenario.Catalogue()) {
		t.Errorf("passed = %d, want %d", index.Summary.Passed, len(scenario.Catalogue()))
	}
	if index.Runner.Driver != "mock" || index.App.ID != "com.swaglabsmobileapp" {
		t.Errorf("runner/app = %+v %+v", index.Runner, index.App)
	}
	if _, err := os.Stat(filepath.Join(dir, "junit.xml")); err != nil {
		t.Errorf("junit.xml not written: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "swaglabs-runner.log")); err != nil {
		t.Errorf("log not written: %v", err)
	}
}

func TestTestCommand_RunFilter(t *testing.T) {
	testEnv(t)
	dir := t.TempDir()

	out, err := runApp(t, "-p", "mock", "test", "--output", dir, "--flatten", "--run", "invalid_login")
	if err != nil {
		t.Fatalf("unexpected error: %v\n%s", err, out)
	}

	index, err := report.ReadIndex(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(index.Scenarios) != len(scenario.InvalidLoginCases) {
		t.Errorf("expected %d scenarios, got %d", len(scenario.InvalidLoginCases), len(index.Scenarios))
	}
	for _, s := range index.Scenarios {
		if !strings.HasPrefix(s.Name, "invalid_login/") {
			t.Errorf("unexpected scenario %s", s.Name)
		}
	}
}

func TestTestCommand_MissingCredentialsErrors(t *testing.T) {
	testEnv(t)
	t.Setenv(config.EnvUsername, "")
	t.Setenv(config.EnvPassword, "")
	dir := t.TempDir()

	out, err := runApp(t, "-p", "mock", "test", "--output", dir, "--flatten", "--run", "valid_login")
	if err == nil {
		t.Fatalf("expected run to fail:\n%s", out)
	}
	if !strings.Contains(err.Error(), "1 errored") {
		t.Errorf("unexpected error: %v", err)
	}

	index, err := report.ReadIndex(dir)
	if err != nil {
		t.Fatal(err)
	}
	if index.Status != report.StatusErrored {
		t.Errorf("run status = %s, want errored", index.Status)
	}
	if e := index.Scenarios[0].Error; e == nil || e.Type != "config" {
		t.Errorf("scenario error = %+v", e)
	}
	if len(index.Scenarios[0].Attachments) != 0 {
		t.Errorf("artifacts captured without --capture-on-failure: %+v", index.Scenarios[0].Attachments)
	}
}

func TestTestCommand_CaptureOnFailure(t *testing.T) {
	testEnv(t)
	t.Setenv(config.EnvUsername, "")
	t.Setenv(config.EnvPassword, "")
	dir := t.TempDir()

	_, err := runApp(t, "-p", "mock", "test", "--output", dir, "--flatten",
		"--run", "valid_login", "--capture-on-failure")
	if err == nil {
		t.Fatal("expected run to fail")
	}

	index, err := report.ReadIndex(dir)
	if err != nil {
		t.Fatal(err)
	}
	atts := index.Scenarios[0].Attachments
	if len(atts) != 2 {
		t.Fatalf("attachments = %+v", atts)
	}
	for _, a := range atts {
		if _, err := os.Stat(filepath.Join(dir, filepath.FromSlash(a.Path))); err != nil {
			t.Errorf("%s not written: %v", a.Path, err)
		}
	}
}

func TestTestCommand_ParallelDevices(t *testing.T) {
	testEnv(t)
	withCredentials(t)
	dir := t.TempDir()

	out, err := runApp(t, "-p", "mock", "--device", "mock-a,mock-b", "test",
		"--output", dir, "--flatten", "--tag", "login")
	if err != nil {
		t.Fatalf("unexpected error: %v\n%s", err, out)
	}
	if !strings.Contains(out, "on 2 devices") {
		t.Errorf("expected parallel run:\n%s", out)
	}

	index, err := report.ReadIndex(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(index.Devices) != 2 {
		t.Errorf("devices = %+v", index.Devices)
	}
	for _, s := range index.Scenarios {
		if s.Device != "mock-a" && s.Device != "mock-b" {
			t.Errorf("%s ran on %q", s.Name, s.Device)
		}
	}
}

func TestTestCommand_NoMatch(t *testing.T) {
	testEnv(t)

	_, err := runApp(t, "-p", "mock", "test", "--output", t.TempDir(), "--flatten", "--run", "checkout*")
	if err == nil || !strings.Contains(err.Error(), "no scenarios") {
		t.Errorf("expected no-match error, got %v", err)
	}
}

func TestTestCommand_InvalidPlatform(t *testing.T) {
	testEnv(t)

	for _, platform := range []string{"windows", "ios"} {
		_, err := runApp(t, "-p", platform, "test", "--output", t.TempDir(), "--flatten")
		if !errors.Is(err, core.ErrInvalidConfig) {
			t.Errorf("%s: expected ErrInvalidConfig, got %v", platform, err)
		}
	}
}

func TestTestCommand_ConfigFile(t *testing.T) {
	testEnv(t)
	dir := t.TempDir()
	out := filepath.Join(dir, "out")
	configPath := filepath.Join(dir, "swaglabs.yaml")
	content := "platform: mock\nrun: \"invalid_login/locked_out\"\noutputDir: " + out + "\n"
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := runApp(t, "--config", configPath, "test"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Without --flatten the report lands in a timestamp folder.
	matches, _ := filepath.Glob(filepath.Join(out, "*", "report.json"))
	if len(matches) != 1 {
		t.Fatalf("expected one report, found %v", matches)
	}
	index, err := report.ReadIndex(filepath.Dir(matches[0]))
	if err != nil {
		t.Fatal(err)
	}
	if len(index.Scenarios) != 1 || index.Scenarios[0].Name != "invalid_login/locked_out" {
		t.Errorf("scenarios = %+v", index.Scenarios)
	}
}

func TestListCommand(t *testing.T) {
	testEnv(t)

	out, err := runApp(t, "list")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, s := range scenario.Catalogue() {
		if !strings.Contains(out, s.Name) {
			t.Errorf("list missing %s", s.Name)
		}
	}

	out, err = runApp(t, "list", "--tag", "cart")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "add_to_cart") || strings.Contains(out, "valid_login") {
		t.Errorf("tag filter not applied:\n%s", out)
	}
	if !strings.Contains(out, "3 scenarios") {
		t.Errorf("expected 3 scenarios:\n%s", out)
	}
}

func TestListCommand_BadPattern(t *testing.T) {
	testEnv(t)

	_, err := runApp(t, "list", "--run", "[")
	if !errors.Is(err, core.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestHierarchyCommand(t *testing.T) {
	testEnv(t)

	out, err := runApp(t, "-p", "mock", "hierarchy")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, `content-desc="test-Username"`) {
		t.Errorf("hierarchy missing login form:\n%s", out)
	}
}

func TestHierarchyCommand_ToFile(t *testing.T) {
	testEnv(t)
	path := filepath.Join(t.TempDir(), "screen.xml")

	if _, err := runApp(t, "-p", "mock", "hierarchy", "--output", path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "test-LOGIN") {
		t.Errorf("unexpected hierarchy:\n%s", data)
	}
}

func TestAppID(t *testing.T) {
	cfg := config.Default()
	if got := appID(cfg); got != "com.swaglabsmobileapp" {
		t.Errorf("appID = %q", got)
	}

	cfg.Capabilities = map[string]interface{}{"appium:bundleId": "com.saucelabs.SwagLabsMobileApp"}
	if got := appID(cfg); got != "com.saucelabs.SwagLabsMobileApp" {
		t.Errorf("appID = %q", got)
	}
}

func TestBuildDevices(t *testing.T) {
	cfg := config.Default()
	devices := buildDevices(cfg)
	if len(devices) != 1 || devices[0].ID != "android" {
		t.Errorf("default devices = %+v", devices)
	}

	cfg.Platform = "mock"
	cfg.Devices = []string{"a", "b"}
	devices = buildDevices(cfg)
	if len(devices) != 2 || devices[1].ID != "b" {
		t.Fatalf("devices = %+v", devices)
	}
	s, err := devices[0].Open(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("close: %v", err)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		ms   int64
		want string
	}{
		{500, "500ms"},
		{1500, "1.5s"},
		{65000, "1m 5s"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.ms); got != tt.want {
			t.Errorf("formatDuration(%d) = %q, want %q", tt.ms, got, tt.want)
		}
	}
}
