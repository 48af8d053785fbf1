package core

import (
	"fmt"

	"go.uber.org/multierr"
)

// Attachment represents a debug artifact captured for a scenario attempt
type Attachment struct {
	Name        string `json:"name"`        // Descriptive name: screenshot, page_source
	ContentType string `json:"contentType"` // MIME type: image/png, application/xml
	Path        string `json:"path"`        // File path relative to output directory
	Body        []byte `json:"-"`           // In-memory content (not serialized to JSON)
}

// Common attachment names
const (
	AttachmentScreenshot = "screenshot"
	AttachmentPageSource = "page_source"
)

// Common content types
const (
	ContentTypePNG = "image/png"
	ContentTypeXML = "application/xml"
)

// NewScreenshotAttachment creates a screenshot attachment
func NewScreenshotAttachment(path string, data []byte) Attachment {
	return Attachment{
		Name:        AttachmentScreenshot,
		ContentType: ContentTypePNG,
		Path:        path,
		Body:        data,
	}
}

// NewPageSourceAttachment creates a page source attachment
func NewPageSourceAttachment(path string, data []byte) Attachment {
	return Attachment{
		Name:        AttachmentPageSource,
		ContentType: ContentTypeXML,
		Path:        path,
		Body:        data,
	}
}

// ArtifactConfig controls when and what artifacts are captured
type ArtifactConfig struct {
	// When to capture
	CaptureOnFailure bool `yaml:"captureOnFailure"` // Default: true
	CaptureOnSuccess bool `yaml:"captureOnSuccess"` // Default: false

	// What to capture
	Screenshot bool `yaml:"screenshot"` // Default: true
	PageSource bool `yaml:"pageSource"` // Default: true
}

// DefaultArtifactConfig returns the default capture settings
func DefaultArtifactConfig() ArtifactConfig {
	return ArtifactConfig{
		CaptureOnFailure: true,
		Screenshot:       true,
		PageSource:       true,
	}
}

// ShouldCapture returns true if artifacts should be captured for the given status
func (c ArtifactConfig) ShouldCapture(status Status) bool {
	switch status {
	case StatusFailed, StatusErrored:
		return c.CaptureOnFailure
	case StatusPassed:
		return c.CaptureOnSuccess
	default:
		return false
	}
}

// Capture collects the configured artifacts from session. Paths are named
// <prefix>-screenshot.png and <prefix>-source.xml. An artifact that cannot
// be taken is left out and its error combined into the returned error.
func (c ArtifactConfig) Capture(session Session, prefix string) ([]Attachment, error) {
	var (
		out  []Attachment
		errs error
	)
	if c.Screenshot {
		data, err := session.Screenshot()
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("screenshot: %w", err))
		} else {
			out = append(out, NewScreenshotAttachment(prefix+"-screenshot.png", data))
		}
	}
	if c.PageSource {
		src, err := session.Source()
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("page source: %w", err))
		} else {
			out = append(out, NewPageSourceAttachment(prefix+"-source.xml", []byte(src)))
		}
	}
	return out, errs
}
