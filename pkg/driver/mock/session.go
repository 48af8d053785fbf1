package mock

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/devicelab-dev/swaglabs-runner/pkg/core"
)

// Session is a mock implementation of core.Session driving an App.
type Session struct {
	app *App

	mu       sync.Mutex
	closed   bool
	wait     time.Duration
	lookups  int
	findHook func(core.Locator)
}

// New creates a mock session over a fresh app.
func New(cfg Config) *Session {
	return &Session{app: NewApp(cfg)}
}

// App returns the app the session drives.
func (s *Session) App() *App {
	return s.app
}

// Platform returns the configured platform name.
func (s *Session) Platform() string {
	return s.app.cfg.Platform
}

// DeviceID returns the configured device id.
func (s *Session) DeviceID() string {
	return s.app.cfg.DeviceID
}

// ImplicitWait returns the last implicit wait set on the session.
func (s *Session) ImplicitWait() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.wait
}

// Lookups returns how many element lookups the session has served.
func (s *Session) Lookups() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lookups
}

// OnFind registers fn to run before every lookup, session or element scoped.
// Tests use it to change the app between two reads of one page-object call.
func (s *Session) OnFind(fn func(core.Locator)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.findHook = fn
}

func (s *Session) check() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return core.ErrInvalidSession.WithMessage("session is closed")
	}
	return nil
}

func (s *Session) beforeFind(loc core.Locator) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return core.ErrInvalidSession.WithMessage("session is closed")
	}
	s.lookups++
	hook := s.findHook
	s.mu.Unlock()

	if hook != nil {
		hook(loc)
	}
	return nil
}

// FindElement implements core.Session.
func (s *Session) FindElement(loc core.Locator) (core.Element, error) {
	els, err := s.find(loc, "")
	if err != nil {
		return nil, err
	}
	if len(els) == 0 {
		return nil, notFound(loc)
	}
	return els[0], nil
}

// FindElements implements core.Session.
func (s *Session) FindElements(loc core.Locator) ([]core.Element, error) {
	return s.find(loc, "")
}

// find resolves loc below the node with key scope, or the whole screen when
// scope is empty.
func (s *Session) find(loc core.Locator, scope string) ([]core.Element, error) {
	if err := s.beforeFind(loc); err != nil {
		return nil, err
	}

	s.app.mu.Lock()
	defer s.app.mu.Unlock()

	t := s.app.render()
	ctx := t.doc
	if scope != "" {
		n, ok := t.byKey[scope]
		if !ok {
			return nil, stale(scope)
		}
		ctx = n
	}

	nodes, err := resolve(t, ctx, loc)
	if err != nil {
		return nil, err
	}
	els := make([]core.Element, 0, len(nodes))
	for _, n := range nodes {
		els = append(els, &element{key: n.key, session: s})
	}
	return els, nil
}

func resolve(t *tree, ctx *node, loc core.Locator) ([]*node, error) {
	switch loc.Strategy {
	case core.ByXPath:
		q, err := parseQuery(loc.Selector)
		if err != nil {
			return nil, err
		}
		if !q.relative {
			ctx = t.doc
		}
		return q.eval(t, ctx), nil
	case core.ByAccessibilityID:
		return filter(ctx, func(n *node) bool { return n.desc == loc.Selector }), nil
	case core.ByClassName:
		return filter(ctx, func(n *node) bool { return n.class == loc.Selector }), nil
	case core.ByID:
		return nil, nil
	default:
		return nil, core.ErrInvalidSelector.WithMessage(fmt.Sprintf("unsupported strategy %q", loc.Strategy))
	}
}

func filter(ctx *node, keep func(*node) bool) []*node {
	var out []*node
	for _, n := range candidates("desc", ctx) {
		if keep(n) {
			out = append(out, n)
		}
	}
	return out
}

// SetImplicitWait implements core.Session. Lookups never poll.
func (s *Session) SetImplicitWait(timeout time.Duration) error {
	if err := s.check(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.wait = timeout
	return nil
}

// BackgroundApp implements core.Session. A non-negative duration brings the
// app back straight away instead of sleeping.
func (s *Session) BackgroundApp(d time.Duration) error {
	if err := s.check(); err != nil {
		return err
	}
	s.app.setBackground(d < 0)
	return nil
}

// ActivateApp implements core.Session.
func (s *Session) ActivateApp(appID string) error {
	if err := s.check(); err != nil {
		return err
	}
	if appID != "" && appID != s.app.cfg.AppID {
		return core.ErrAppNotRunning.WithMessage(fmt.Sprintf("app %q is not installed", appID))
	}
	s.app.setBackground(false)
	return nil
}

// Screenshot returns a mock PNG image.
func (s *Session) Screenshot() ([]byte, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	// Minimal valid PNG (1x1 transparent pixel)
	return []byte{
		0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, // PNG signature
		0x00, 0x00, 0x00, 0x0D, 0x49, 0x48, 0x44, 0x52, // IHDR chunk
		0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
		0x08, 0x06, 0x00, 0x00, 0x00, 0x1F, 0x15, 0xC4,
		0x89, 0x00, 0x00, 0x00, 0x0A, 0x49, 0x44, 0x41,
		0x54, 0x78, 0x9C, 0x63, 0x00, 0x01, 0x00, 0x00,
		0x05, 0x00, 0x01, 0x0D, 0x0A, 0x2D, 0xB4, 0x00,
		0x00, 0x00, 0x00, 0x49, 0x45, 0x4E, 0x44, 0xAE,
		0x42, 0x60, 0x82,
	}, nil
}

// Source implements core.Session.
func (s *Session) Source() (string, error) {
	if err := s.check(); err != nil {
		return "", err
	}
	s.app.mu.Lock()
	defer s.app.mu.Unlock()
	return s.app.render().source(), nil
}

// Close implements core.Session.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func notFound(loc core.Locator) error {
	return core.ErrElementNotFound.WithDetails(map[string]interface{}{"locator": loc.String()})
}

func stale(key string) error {
	return core.ErrStaleElement.WithMessage(fmt.Sprintf("element %s is no longer attached", strconv.Quote(key)))
}

// element is a handle to a node. Every operation renders the app again and
// looks the node up by key, so a node that has gone away reports stale.
type element struct {
	key     string
	session *Session
}

func (e *element) ID() string { return e.key }

// with runs fn on the live node. fn runs with the app lock held.
func (e *element) with(fn func(n *node) error) error {
	if err := e.session.check(); err != nil {
		return err
	}
	app := e.session.app
	app.mu.Lock()
	defer app.mu.Unlock()

	n, ok := app.render().byKey[e.key]
	if !ok {
		return stale(e.key)
	}
	return fn(n)
}

func (e *element) Click() error {
	return e.with(func(n *node) error {
		if n.onClick != nil {
			n.onClick()
		}
		return nil
	})
}

func (e *element) Clear() error {
	return e.with(func(n *node) error {
		if n.field == nil {
			return fmt.Errorf("invalid element state: %s is not editable", e.key)
		}
		*n.field = ""
		return nil
	})
}

func (e *element) SendKeys(text string) error {
	return e.with(func(n *node) error {
		if n.field == nil {
			return fmt.Errorf("invalid element state: %s is not editable", e.key)
		}
		*n.field += text
		return nil
	})
}

func (e *element) Text() (string, error) {
	var text string
	err := e.with(func(n *node) error {
		text, _ = n.attr("text")
		return nil
	})
	return text, err
}

func (e *element) Attribute(name string) (string, error) {
	var v string
	err := e.with(func(n *node) error {
		v, _ = n.attr(name)
		return nil
	})
	return v, err
}

func (e *element) IsDisplayed() (bool, error) {
	var displayed bool
	err := e.with(func(n *node) error {
		displayed = n.displayed
		return nil
	})
	return displayed, err
}

func (e *element) FindElement(loc core.Locator) (core.Element, error) {
	els, err := e.session.find(loc, e.key)
	if err != nil {
		return nil, err
	}
	if len(els) == 0 {
		return nil, notFound(loc)
	}
	return els[0], nil
}

func (e *element) FindElements(loc core.Locator) ([]core.Element, error) {
	return e.session.find(loc, e.key)
}
