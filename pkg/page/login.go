package page

import (
	"errors"
	"fmt"

	"github.com/devicelab-dev/swaglabs-runner/pkg/core"
	"github.com/devicelab-dev/swaglabs-runner/pkg/logger"
	"github.com/devicelab-dev/swaglabs-runner/pkg/xpath"
)

// LoginView is the Swag Labs login screen.
type LoginView struct {
	*Base
}

// NewLoginView returns the login view for session.
func NewLoginView(session core.Session) (*LoginView, error) {
	b, err := NewBase(session)
	if err != nil {
		return nil, err
	}
	return &LoginView{Base: b}, nil
}

// SubmitCredentials fills in both fields and taps LOGIN.
// All three controls must exist; a missing one is returned as an error.
func (v *LoginView) SubmitCredentials(username, password string) error {
	logger.Info("login: submitting credentials for %q", username)

	if err := v.fill(UsernameField, username); err != nil {
		return err
	}
	if err := v.fill(PasswordField, password); err != nil {
		return err
	}

	btn, err := v.Find(LoginButton)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	if err := btn.Click(); err != nil {
		return fmt.Errorf("login: tap %s: %w", LoginButton, err)
	}
	return nil
}

func (v *LoginView) fill(loc core.Locator, text string) error {
	field, err := v.Find(loc)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	if err := field.Clear(); err != nil {
		return fmt.Errorf("login: clear %s: %w", loc, err)
	}
	if err := field.SendKeys(text); err != nil {
		return fmt.Errorf("login: type into %s: %w", loc, err)
	}
	return nil
}

// IsFormVisible reports whether the LOGIN button exists and is displayed.
func (v *LoginView) IsFormVisible() (bool, error) {
	return v.isVisible(LoginButton)
}

// HasErrorText reports whether a message with exactly the expected text is shown.
// Text that no screen can hold (invalid UTF-8, XML-forbidden characters) is a mismatch.
func (v *LoginView) HasErrorText(expected string) (bool, error) {
	loc, err := ErrorTextLocator(expected)
	if errors.Is(err, xpath.ErrInvalidValue) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return v.isVisible(loc)
}

// ErrorMessage returns the text of the "Sorry…" error banner, if one is shown.
func (v *LoginView) ErrorMessage() (string, bool, error) {
	el, err := v.FindOptional(ErrorBanner)
	if err != nil || el == nil {
		return "", false, err
	}
	text, err := el.Text()
	if err != nil {
		if core.IsStale(err) {
			return "", false, nil
		}
		return "", false, err
	}
	return text, true, nil
}
