package core

import "fmt"

// Locator strategies understood by Appium's UiAutomator2 and XCUITest drivers.
const (
	ByAccessibilityID = "accessibility id"
	ByXPath           = "xpath"
	ByID              = "id"
	ByClassName       = "class name"
)

// Locator identifies zero or one UI element at query time.
// It is never cached: the view behind it is mutable, so every use re-resolves it.
type Locator struct {
	Strategy string
	Selector string
}

// AccessibilityID returns a locator matching an accessibility id (content-desc on Android).
func AccessibilityID(id string) Locator {
	return Locator{Strategy: ByAccessibilityID, Selector: id}
}

// XPath returns a locator for an XPath expression.
func XPath(expr string) Locator {
	return Locator{Strategy: ByXPath, Selector: expr}
}

// String returns "strategy=selector" for logs and error details.
func (l Locator) String() string {
	return fmt.Sprintf("%s=%s", l.Strategy, l.Selector)
}

// IsZero reports whether the locator is unset.
func (l Locator) IsZero() bool {
	return l.Strategy == "" && l.Selector == ""
}
