package scenario

import (
	"context"
	"fmt"
	"path"
	"time"

	"github.com/devicelab-dev/swaglabs-runner/pkg/core"
	"github.com/devicelab-dev/swaglabs-runner/pkg/logger"
	"github.com/devicelab-dev/swaglabs-runner/pkg/report"
)

// SessionFactory opens a fresh automation session. Every scenario attempt
// gets its own session and closes it when done.
type SessionFactory func(ctx context.Context) (core.Session, error)

// Config configures the scenario runners.
type Config struct {
	OutputDir  string              // Report output directory
	Retries    int                 // Extra attempts for a failed scenario (0 = none)
	StopOnFail bool                // Skip remaining scenarios after the first failure
	Wait       time.Duration       // Implicit wait for page lookups; 0 keeps the page default
	Valid      Credentials
	Artifacts  core.ArtifactConfig // Screenshot and page source capture per attempt

	// Report metadata
	App           report.App
	RunnerVersion string
	DriverName    string

	// Live progress callbacks
	OnScenarioStart func(idx, total int, name, device string)
	OnScenarioEnd   func(name, device string, status core.Status, durationMs int64, err error)
}

// Device is one device a run can use.
type Device struct {
	ID       string
	Platform string
	Open     SessionFactory
}

// RunResult contains the outcome of a run.
type RunResult struct {
	RunID     string
	Status    core.Status
	Total     int
	Passed    int
	Failed    int
	Errored   int
	Skipped   int
	Duration  int64 // milliseconds
	Scenarios []Result
}

// Result contains the outcome of one scenario.
type Result struct {
	Name     string
	Device   string
	Status   core.Status
	Duration int64 // milliseconds
	Attempts int
	Err      error
}

// Runner executes scenarios one after another on a single device.
type Runner struct {
	config Config
	device Device
}

// New creates a Runner for device.
func New(device Device, cfg Config) *Runner {
	return &Runner{config: cfg, device: device}
}

// Run executes scenarios sequentially and writes the report.
func (r *Runner) Run(ctx context.Context, scenarios []Scenario) (*RunResult, error) {
	rep, err := startReport(r.config, []Device{r.device}, scenarios)
	if err != nil {
		return nil, err
	}
	defer rep.Close()

	start := time.Now()
	results := make([]Result, len(scenarios))
	stop := false
	for i := range scenarios {
		if stop || ctx.Err() != nil {
			results[i] = r.skip(rep, i, scenarios[i])
			continue
		}
		results[i] = r.runScenario(ctx, rep, i, len(scenarios), scenarios[i])
		if r.config.StopOnFail && !results[i].Status.IsSuccess() {
			stop = true
		}
	}

	return finishReport(r.config, rep, results, time.Since(start))
}

func (r *Runner) skip(rep *report.IndexWriter, idx int, s Scenario) Result {
	rep.UpdateScenario(scenarioID(idx), &report.ScenarioUpdate{
		Status: report.StatusSkipped,
		Error:  &report.Error{Type: "skipped", Message: "run stopped"},
	})
	return Result{Name: s.Name, Status: core.StatusSkipped}
}

// runScenario runs s with retries and reports every attempt.
func (r *Runner) runScenario(ctx context.Context, rep *report.IndexWriter, idx, total int, s Scenario) Result {
	id := scenarioID(idx)
	if r.config.OnScenarioStart != nil {
		r.config.OnScenarioStart(idx, total, s.Name, r.device.ID)
	}

	start := time.Now()
	rep.UpdateScenario(id, &report.ScenarioUpdate{
		Status:    report.StatusRunning,
		Device:    r.device.ID,
		StartTime: &start,
	})

	res := Result{Name: s.Name, Device: r.device.ID}
	var attachments []core.Attachment
	maxAttempts := r.config.Retries + 1
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		attemptStart := time.Now()
		captured, err := r.attempt(ctx, s, id, attempt)
		status := core.StatusFor(core.CategoryOf(err))
		attachments = append(attachments, captured...)

		res.Attempts = attempt
		res.Err = err
		res.Status = status

		errMsg := ""
		if err != nil {
			errMsg = err.Error()
		}
		rep.RecordAttempt(id, attempt, report.FromCore(status), time.Since(attemptStart).Milliseconds(), errMsg)

		if status.IsSuccess() || ctx.Err() != nil {
			break
		}
		if attempt < maxAttempts {
			logger.Warn("scenario %s: attempt %d/%d %s: %v, retrying", s.Name, attempt, maxAttempts, status, err)
		}
	}

	end := time.Now()
	res.Duration = end.Sub(start).Milliseconds()
	rep.UpdateScenario(id, &report.ScenarioUpdate{
		Status:   report.FromCore(res.Status),
		Device:   r.device.ID,
		EndTime:  &end,
		Duration: &res.Duration,
		Error:    report.ErrorFrom(res.Err),

		Attachments: attachments,
	})

	if res.Err != nil {
		logger.Error("scenario %s on %s: %s: %v", s.Name, r.device.ID, res.Status, res.Err)
	} else {
		logger.Info("scenario %s on %s: passed in %dms", s.Name, r.device.ID, res.Duration)
	}
	if r.config.OnScenarioEnd != nil {
		r.config.OnScenarioEnd(s.Name, r.device.ID, res.Status, res.Duration, res.Err)
	}
	return res
}

// attempt opens a session, runs s once, captures artifacts and closes the
// session.
func (r *Runner) attempt(ctx context.Context, s Scenario, id string, n int) ([]core.Attachment, error) {
	session, err := r.device.Open(ctx)
	if err != nil {
		return nil, fmt.Errorf("open session on %s: %w", r.device.ID, err)
	}
	defer func() {
		if cerr := session.Close(); cerr != nil {
			logger.Warn("scenario %s: close session: %v", s.Name, cerr)
		}
	}()

	if r.config.Wait > 0 {
		if err := session.SetImplicitWait(r.config.Wait); err != nil {
			return nil, fmt.Errorf("set implicit wait: %w", err)
		}
	}

	err = r.run(ctx, s, session)
	return r.capture(session, s, id, n, err), err
}

func (r *Runner) run(ctx context.Context, s Scenario, session core.Session) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("scenario %s panicked: %v", s.Name, p)
		}
	}()
	return s.Run(ctx, &Env{Session: session, Valid: r.config.Valid, Wait: r.config.Wait})
}

// capture saves the configured artifacts under artifacts/<id>/ in the
// output directory. Capture problems are logged, never returned.
func (r *Runner) capture(session core.Session, s Scenario, id string, n int, runErr error) []core.Attachment {
	cfg := r.config.Artifacts
	if !cfg.ShouldCapture(core.StatusFor(core.CategoryOf(runErr))) {
		return nil
	}

	captured, err := cfg.Capture(session, path.Join("artifacts", id, fmt.Sprintf("attempt-%d", n)))
	if err != nil {
		logger.Warn("scenario %s: capture artifacts: %v", s.Name, err)
	}
	var saved []core.Attachment
	for _, a := range captured {
		if err := report.WriteAttachment(r.config.OutputDir, a); err != nil {
			logger.Warn("scenario %s: save %s: %v", s.Name, a.Path, err)
			continue
		}
		saved = append(saved, a)
	}
	return saved
}

func scenarioID(idx int) string {
	return fmt.Sprintf("scenario-%03d", idx)
}

func startReport(cfg Config, devices []Device, scenarios []Scenario) (*report.IndexWriter, error) {
	infos := make([]report.ScenarioInfo, len(scenarios))
	for i, s := range scenarios {
		infos[i] = report.ScenarioInfo{Name: s.Name, Tags: s.Tags}
	}
	devs := make([]report.Device, len(devices))
	for i, d := range devices {
		devs[i] = report.Device{ID: d.ID, Platform: d.Platform}
	}

	index := report.BuildSkeleton(infos, report.BuilderConfig{
		OutputDir:     cfg.OutputDir,
		Devices:       devs,
		App:           cfg.App,
		RunnerVersion: cfg.RunnerVersion,
		DriverName:    cfg.DriverName,
	})
	if err := report.WriteSkeleton(cfg.OutputDir, index); err != nil {
		return nil, err
	}

	w := report.NewIndexWriter(cfg.OutputDir, index)
	w.Start()
	logger.Info("run %s: %d scenarios on %d device(s)", index.RunID, len(scenarios), len(devices))
	return w, nil
}

func finishReport(cfg Config, rep *report.IndexWriter, results []Result, wallClock time.Duration) (*RunResult, error) {
	rep.End()
	index := rep.Index()
	if err := report.WriteJUnit(cfg.OutputDir, &index); err != nil {
		return nil, fmt.Errorf("write junit: %w", err)
	}

	out := &RunResult{
		RunID:     index.RunID,
		Total:     len(results),
		Duration:  wallClock.Milliseconds(),
		Scenarios: results,
	}
	for _, r := range results {
		switch r.Status {
		case core.StatusPassed:
			out.Passed++
		case core.StatusFailed:
			out.Failed++
		case core.StatusErrored:
			out.Errored++
		case core.StatusSkipped:
			out.Skipped++
		}
	}

	switch {
	case out.Failed > 0:
		out.Status = core.StatusFailed
	case out.Errored > 0:
		out.Status = core.StatusErrored
	default:
		out.Status = core.StatusPassed // All passed or skipped
	}
	return out, nil
}
