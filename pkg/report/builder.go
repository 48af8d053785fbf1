package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/devicelab-dev/swaglabs-runner/pkg/core"
)

// BuilderConfig contains configuration for building the report skeleton.
type BuilderConfig struct {
	OutputDir     string   // Base output directory for reports
	Devices       []Device // Devices taking part in the run
	App           App      // Application information
	RunnerVersion string
	DriverName    string // appium, mock
}

// ScenarioInfo names one scenario of the run.
type ScenarioInfo struct {
	Name string
	Tags []string
}

// BuildSkeleton creates the initial report structure.
// All scenarios are set to "pending" status.
func BuildSkeleton(scenarios []ScenarioInfo, cfg BuilderConfig) *Index {
	now := time.Now()

	index := &Index{
		Version:     Version,
		RunID:       uuid.NewString(),
		Status:      StatusPending,
		StartTime:   now,
		LastUpdated: now,
		Devices:     cfg.Devices,
		App:         cfg.App,
		Runner: RunnerInfo{
			Version: cfg.RunnerVersion,
			Driver:  cfg.DriverName,
		},
		Summary: Summary{
			Total:   len(scenarios),
			Pending: len(scenarios),
		},
		Scenarios: make([]ScenarioEntry, len(scenarios)),
	}

	for i, s := range scenarios {
		index.Scenarios[i] = ScenarioEntry{
			Index:  i,
			ID:     fmt.Sprintf("scenario-%03d", i),
			Name:   s.Name,
			Tags:   s.Tags,
			Status: StatusPending,
		}
	}
	return index
}

// WriteSkeleton writes the initial report.json to outputDir.
func WriteSkeleton(outputDir string, index *Index) error {
	if err := ensureDir(outputDir); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	if err := atomicWriteJSON(filepath.Join(outputDir, "report.json"), index); err != nil {
		return fmt.Errorf("write index: %w", err)
	}
	return nil
}

// ReadIndex loads report.json from outputDir.
func ReadIndex(outputDir string) (*Index, error) {
	data, err := os.ReadFile(filepath.Join(outputDir, "report.json"))
	if err != nil {
		return nil, err
	}
	var index Index
	if err := json.Unmarshal(data, &index); err != nil {
		return nil, fmt.Errorf("parse report.json: %w", err)
	}
	return &index, nil
}

func ensureDir(dir string) error {
	return os.MkdirAll(dir, 0o755)
}

// atomicWriteJSON writes v to path through a temp file so readers never see
// a partial file.
func atomicWriteJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*.json")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return nil
}

// WriteAttachment writes a.Body to a.Path under outputDir.
func WriteAttachment(outputDir string, a core.Attachment) error {
	path := filepath.Join(outputDir, filepath.FromSlash(a.Path))
	if err := ensureDir(filepath.Dir(path)); err != nil {
		return err
	}
	return os.WriteFile(path, a.Body, 0o644)
}
