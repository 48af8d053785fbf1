package scenario

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/devicelab-dev/swaglabs-runner/pkg/logger"
)

// workItem is a scenario and its index in the run.
type workItem struct {
	scenario Scenario
	index    int
}

// ParallelRunner spreads scenarios over several devices. Each device works
// through a shared queue with its own sessions; no session is shared.
type ParallelRunner struct {
	devices []Device
	config  Config
}

// NewParallelRunner creates a parallel runner over devices.
func NewParallelRunner(devices []Device, cfg Config) *ParallelRunner {
	return &ParallelRunner{devices: devices, config: cfg}
}

// Run executes scenarios across all devices until the queue is drained.
func (pr *ParallelRunner) Run(ctx context.Context, scenarios []Scenario) (*RunResult, error) {
	if len(pr.devices) == 0 {
		return nil, fmt.Errorf("no devices available")
	}

	rep, err := startReport(pr.config, pr.devices, scenarios)
	if err != nil {
		return nil, err
	}
	defer rep.Close()
	start := time.Now()

	queue := make(chan workItem, len(scenarios))
	for i, s := range scenarios {
		queue <- workItem{scenario: s, index: i}
	}
	close(queue)

	results := make([]Result, len(scenarios))
	var mu sync.Mutex
	stopped := false

	// Scenario faults are results, not worker errors; a cancelled ctx skips the rest.
	var g errgroup.Group
	for _, d := range pr.devices {
		d := d
		g.Go(func() error {
			runner := &Runner{config: pr.config, device: d}
			for item := range queue {
				mu.Lock()
				stop := stopped
				mu.Unlock()

				var res Result
				if stop || ctx.Err() != nil {
					res = runner.skip(rep, item.index, item.scenario)
				} else {
					res = runner.runScenario(ctx, rep, item.index, len(scenarios), item.scenario)
				}

				mu.Lock()
				results[item.index] = res
				if pr.config.StopOnFail && !res.Status.IsSuccess() {
					stopped = true
				}
				mu.Unlock()
			}
			logger.Debug("device %s: queue drained", d.ID)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return finishReport(pr.config, rep, results, time.Since(start))
}
