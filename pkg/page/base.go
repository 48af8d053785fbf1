// Package page holds the Swag Labs page objects.
//
// Every view takes the automation session explicitly and re-resolves its
// locators on each call; nothing about the screen is cached between calls.
package page

import (
	"fmt"
	"time"

	"github.com/devicelab-dev/swaglabs-runner/pkg/core"
	"github.com/devicelab-dev/swaglabs-runner/pkg/logger"
)

// DefaultWaitTimeout is the implicit wait set when a view is created.
const DefaultWaitTimeout = 10 * time.Second

// Base is the element accessor shared by all views.
type Base struct {
	session core.Session
	wait    time.Duration
}

// NewBase wraps session and sets its implicit wait to DefaultWaitTimeout.
func NewBase(session core.Session) (*Base, error) {
	b := &Base{session: session}
	if err := b.SetWaitTimeout(DefaultWaitTimeout); err != nil {
		return nil, err
	}
	return b, nil
}

// Session returns the session the view drives.
func (b *Base) Session() core.Session {
	return b.session
}

// FindOptional returns the element matching loc, or nil when nothing matches.
// Absence is never an error; transport and session faults are.
func (b *Base) FindOptional(loc core.Locator) (core.Element, error) {
	el, err := b.session.FindElement(loc)
	if err != nil {
		if core.IsNotFound(err) {
			logger.Debug("page: %s absent", loc)
			return nil, nil
		}
		return nil, err
	}
	return el, nil
}

// Find returns the element matching loc and fails when it is missing.
func (b *Base) Find(loc core.Locator) (core.Element, error) {
	el, err := b.session.FindElement(loc)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", loc, err)
	}
	return el, nil
}

// SetWaitTimeout changes how long every lookup on the session polls before
// reporting absence. The setting is session-wide, not per call.
func (b *Base) SetWaitTimeout(d time.Duration) error {
	if err := b.session.SetImplicitWait(d); err != nil {
		return fmt.Errorf("set implicit wait %s: %w", d, err)
	}
	b.wait = d
	return nil
}

// WaitTimeout returns the last implicit wait set through this accessor.
func (b *Base) WaitTimeout() time.Duration {
	return b.wait
}

// isVisible reports whether loc resolves to an element that is displayed.
// An element that goes stale between the lookup and the check counts as not visible.
func (b *Base) isVisible(loc core.Locator) (bool, error) {
	el, err := b.FindOptional(loc)
	if err != nil || el == nil {
		return false, err
	}
	displayed, err := el.IsDisplayed()
	if err != nil {
		if core.IsStale(err) {
			return false, nil
		}
		return false, err
	}
	return displayed, nil
}
