// Package scenario holds the Swag Labs user-flow scenarios and the runners
// that execute them against one or more devices.
package scenario

import (
	"context"
	"fmt"
	"path"
	"time"

	"github.com/devicelab-dev/swaglabs-runner/pkg/core"
)

// Credentials are a username/password pair.
type Credentials struct {
	Username string
	Password string
}

// Env is what a scenario gets to work with: a fresh session and the
// configured credentials.
type Env struct {
	Session core.Session
	Valid   Credentials   // from TEST_USERNAME / TEST_PASSWORD; valid_login requires both
	Wait    time.Duration // overrides the views' default implicit wait when > 0
}

// Scenario is one user flow with its assertions.
type Scenario struct {
	Name        string
	Description string
	Tags        []string
	Run         func(ctx context.Context, env *Env) error
}

// AssertionError is an expectation about the app that did not hold.
// It classifies as a failure rather than an error.
type AssertionError struct {
	Message string
}

func (e *AssertionError) Error() string {
	return e.Message
}

// Unwrap lets errors.Is and core.CategoryOf see the assertion category.
func (e *AssertionError) Unwrap() error {
	return core.ErrConditionNotMet
}

// Failf returns an AssertionError with a formatted message.
func Failf(format string, args ...interface{}) error {
	return &AssertionError{Message: fmt.Sprintf(format, args...)}
}

// Filter selects scenarios for a run.
type Filter struct {
	Pattern     string   // glob on the scenario name; empty matches all
	IncludeTags []string // scenario must carry one of these, when set
	ExcludeTags []string // scenario must carry none of these
}

// Select returns the scenarios in all that f accepts, in catalogue order.
func Select(all []Scenario, f Filter) ([]Scenario, error) {
	if f.Pattern != "" {
		if _, err := path.Match(f.Pattern, ""); err != nil {
			return nil, core.ErrInvalidConfig.WithMessage(fmt.Sprintf("bad --run pattern %q", f.Pattern)).WithCause(err)
		}
	}

	var out []Scenario
	for _, s := range all {
		if f.Pattern != "" {
			// A pattern also matches every case of a group: "invalid_login" selects "invalid_login/*".
			ok, _ := path.Match(f.Pattern, s.Name)
			group, _ := path.Match(f.Pattern+"/*", s.Name)
			if !ok && !group {
				continue
			}
		}
		if !shouldInclude(s.Tags, f.IncludeTags, f.ExcludeTags) {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

func shouldInclude(tags, includeTags, excludeTags []string) bool {
	if len(includeTags) > 0 {
		hasTag := false
		for _, tag := range tags {
			for _, include := range includeTags {
				if tag == include {
					hasTag = true
					break
				}
			}
		}
		if !hasTag {
			return false
		}
	}

	for _, tag := range tags {
		for _, exclude := range excludeTags {
			if tag == exclude {
				return false
			}
		}
	}
	return true
}
