package core

import "time"

// Session is the capability handle for one remote automation session.
// Page objects receive it explicitly; nothing in this module keeps a global one.
// A Session is not safe for concurrent use.
type Session interface {
	// FindElement returns the first match. Absence is an error satisfying IsNotFound.
	FindElement(loc Locator) (Element, error)

	// FindElements returns all matches; no match is an empty slice, not an error.
	FindElements(loc Locator) ([]Element, error)

	// SetImplicitWait sets how long lookups poll before reporting absence.
	// The value is session-wide.
	SetImplicitWait(timeout time.Duration) error

	// BackgroundApp sends the app under test to the background for d,
	// then brings it back. A negative d leaves it in the background.
	BackgroundApp(d time.Duration) error

	// ActivateApp brings the given app to the foreground.
	ActivateApp(appID string) error

	// Screenshot captures the current screen as PNG
	Screenshot() ([]byte, error)

	// Source returns the UI hierarchy as XML
	Source() (string, error)

	// Close ends the session.
	Close() error
}

// Element is a handle to a UI element resolved by a Session.
// Handles go stale when the view re-renders; calls then fail with IsStale.
type Element interface {
	ID() string
	Click() error
	Clear() error
	SendKeys(text string) error
	Text() (string, error)
	Attribute(name string) (string, error)
	IsDisplayed() (bool, error)

	// FindElement searches the element's subtree.
	FindElement(loc Locator) (Element, error)

	// FindElements searches the element's subtree; no match is an empty slice.
	FindElements(loc Locator) ([]Element, error)
}
