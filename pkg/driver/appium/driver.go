package appium

import (
	"fmt"
	"strings"
	"time"

	"github.com/devicelab-dev/swaglabs-runner/pkg/core"
)

// w3cCapabilities are the capability names defined by W3C WebDriver.
// Everything else must carry a vendor prefix for Appium 2.
var w3cCapabilities = map[string]bool{
	"browserName":               true,
	"browserVersion":            true,
	"platformName":              true,
	"acceptInsecureCerts":       true,
	"pageLoadStrategy":          true,
	"proxy":                     true,
	"setWindowRect":             true,
	"timeouts":                  true,
	"strictFileInteractability": true,
	"unhandledPromptBehavior":   true,
	"webSocketUrl":              true,
}

// Capabilities returns a copy of caps with the "appium:" prefix added to
// every non-W3C key that has no vendor prefix yet.
func Capabilities(caps map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(caps))
	for k, v := range caps {
		if w3cCapabilities[k] || strings.Contains(k, ":") {
			out[k] = v
			continue
		}
		out["appium:"+k] = v
	}
	return out
}

// Session implements core.Session on top of an Appium server.
type Session struct {
	client *Client
	appID  string // current app ID
}

// NewSession connects to the Appium server and creates a session.
func NewSession(serverURL string, capabilities map[string]interface{}) (*Session, error) {
	caps := Capabilities(capabilities)
	client := NewClient(serverURL)

	if err := client.Connect(caps); err != nil {
		return nil, err
	}

	s := &Session{client: client}

	// Extract app ID from capabilities
	if appID, ok := caps["appium:appPackage"].(string); ok {
		s.appID = appID
	} else if appID, ok := caps["appium:bundleId"].(string); ok {
		s.appID = appID
	}

	// noReset keeps the process of the previous session alive, so a new
	// session could start on whatever screen the last one left behind.
	if noReset, _ := caps["appium:noReset"].(bool); noReset && s.appID != "" {
		if err := s.relaunch(); err != nil {
			_ = client.Disconnect()
			return nil, err
		}
	}

	return s, nil
}

// relaunch stops the app and starts it again, keeping its data.
func (s *Session) relaunch() error {
	if err := s.client.TerminateApp(s.appID); err != nil {
		return fmt.Errorf("terminate %s: %w", s.appID, err)
	}
	if err := s.client.LaunchApp(s.appID); err != nil {
		return fmt.Errorf("launch %s: %w", s.appID, err)
	}
	return nil
}

// AppID returns the app under test as given by the capabilities.
func (s *Session) AppID() string {
	return s.appID
}

// FindElement implements core.Session.
func (s *Session) FindElement(loc core.Locator) (core.Element, error) {
	id, err := s.client.FindElement(loc.Strategy, loc.Selector)
	if err != nil {
		return nil, annotate(err, loc)
	}
	return &element{id: id, client: s.client}, nil
}

// FindElements implements core.Session.
func (s *Session) FindElements(loc core.Locator) ([]core.Element, error) {
	ids, err := s.client.FindElements(loc.Strategy, loc.Selector)
	if err != nil {
		return nil, annotate(err, loc)
	}
	return s.wrap(ids), nil
}

// SetImplicitWait implements core.Session.
func (s *Session) SetImplicitWait(timeout time.Duration) error {
	return s.client.SetImplicitWait(timeout)
}

// BackgroundApp implements core.Session.
func (s *Session) BackgroundApp(d time.Duration) error {
	return s.client.BackgroundApp(d)
}

// ActivateApp implements core.Session.
// An empty appID activates the app named in the capabilities.
func (s *Session) ActivateApp(appID string) error {
	if appID == "" {
		appID = s.appID
	}
	if appID == "" {
		return core.ErrMissingRequired.WithMessage("no app id to activate")
	}
	return s.client.LaunchApp(appID)
}

// Screenshot implements core.Session.
func (s *Session) Screenshot() ([]byte, error) {
	return s.client.Screenshot()
}

// Source implements core.Session.
func (s *Session) Source() (string, error) {
	return s.client.Source()
}

// Close disconnects from Appium server.
func (s *Session) Close() error {
	return s.client.Disconnect()
}

func (s *Session) wrap(ids []string) []core.Element {
	elems := make([]core.Element, 0, len(ids))
	for _, id := range ids {
		elems = append(elems, &element{id: id, client: s.client})
	}
	return elems
}

// element implements core.Element for a W3C element reference.
type element struct {
	id     string
	client *Client
}

func (e *element) ID() string { return e.id }

func (e *element) Click() error {
	return e.client.ClickElement(e.id)
}

func (e *element) Clear() error {
	return e.client.ClearElement(e.id)
}

func (e *element) SendKeys(text string) error {
	return e.client.SendKeysToElement(e.id, text)
}

func (e *element) Text() (string, error) {
	return e.client.GetElementText(e.id)
}

func (e *element) Attribute(name string) (string, error) {
	return e.client.GetElementAttribute(e.id, name)
}

func (e *element) IsDisplayed() (bool, error) {
	return e.client.IsElementDisplayed(e.id)
}

func (e *element) FindElement(loc core.Locator) (core.Element, error) {
	id, err := e.client.FindElementFrom(e.id, loc.Strategy, loc.Selector)
	if err != nil {
		return nil, annotate(err, loc)
	}
	return &element{id: id, client: e.client}, nil
}

func (e *element) FindElements(loc core.Locator) ([]core.Element, error) {
	ids, err := e.client.FindElementsFrom(e.id, loc.Strategy, loc.Selector)
	if err != nil {
		return nil, annotate(err, loc)
	}
	elems := make([]core.Element, 0, len(ids))
	for _, id := range ids {
		elems = append(elems, &element{id: id, client: e.client})
	}
	return elems, nil
}

// annotate attaches the locator to lookup errors from the taxonomy.
func annotate(err error, loc core.Locator) error {
	if ee, ok := err.(*core.ExecutionError); ok {
		return ee.WithDetails(map[string]interface{}{"locator": loc.String()})
	}
	return err
}
