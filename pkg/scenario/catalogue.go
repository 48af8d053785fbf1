package scenario

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/devicelab-dev/swaglabs-runner/pkg/core"
	"github.com/devicelab-dev/swaglabs-runner/pkg/page"
)

// StandardUser is the account the cart scenarios log in with.
var StandardUser = Credentials{Username: "standard_user", Password: "secret_sauce"}

// Login error messages shown by the app.
const (
	MsgUsernameRequired = "Username is required"
	MsgPasswordRequired = "Password is required"
	MsgNoMatch          = "Username and password do not match any user in this service."
	MsgLockedOut        = "Sorry, this user has been locked out."
)

// InvalidLoginCase is one rejected login and the message it must show.
type InvalidLoginCase struct {
	Name     string
	Username string
	Password string
	Message  string
}

// InvalidLoginCases are the rejected logins checked by the invalid_login scenarios.
var InvalidLoginCases = []InvalidLoginCase{
	{"missing_password", "standard_user", "", MsgPasswordRequired},
	{"missing_username", "", "invalid_password", MsgUsernameRequired},
	{"missing_both", "", "", MsgUsernameRequired},
	{"wrong_password", "standard_user", "invalid_password", MsgNoMatch},
	{"locked_out", "locked_out_user", "secret_sauce", MsgLockedOut},
	{"unknown_user", "invalid_user", "invalid_password", MsgNoMatch},
}

// CartCycles is how many add/remove rounds add_remove_cycles does.
const CartCycles = 5

// resumeDelay is how long background_resume leaves the app in the background.
var resumeDelay = 500 * time.Millisecond

// Catalogue returns every scenario in run order.
func Catalogue() []Scenario {
	all := []Scenario{{
		Name:        "valid_login",
		Description: "standard_user reaches the product list once credentials are configured",
		Tags:        []string{"login", "smoke"},
		Run:         validLogin,
	}}

	for _, c := range InvalidLoginCases {
		c := c
		all = append(all, Scenario{
			Name:        "invalid_login/" + c.Name,
			Description: fmt.Sprintf("Login as %q/%q shows %q", c.Username, c.Password, c.Message),
			Tags:        []string{"login"},
			Run: func(ctx context.Context, env *Env) error {
				return invalidLogin(env, c)
			},
		})
	}

	return append(all,
		Scenario{
			Name:        "add_to_cart",
			Description: "Adding the first item raises the cart count by one",
			Tags:        []string{"cart", "smoke"},
			Run:         addToCart,
		},
		Scenario{
			Name:        "remove_from_cart",
			Description: "Removing an added item lowers the cart count by one",
			Tags:        []string{"cart"},
			Run:         removeFromCart,
		},
		Scenario{
			Name:        "add_remove_cycles",
			Description: fmt.Sprintf("%d add/remove rounds each restore the cart count", CartCycles),
			Tags:        []string{"cart"},
			Run:         addRemoveCycles,
		},
		Scenario{
			Name:        "background_resume",
			Description: "The product list and cart survive sending the app to the background",
			Tags:        []string{"lifecycle"},
			Run:         backgroundResume,
		},
	)
}

func validLogin(ctx context.Context, env *Env) error {
	if env.Valid.Username == "" || env.Valid.Password == "" {
		return core.ErrMissingRequired.WithMessage("TEST_USERNAME and TEST_PASSWORD must be set")
	}
	login, err := openLoginForm(env)
	if err != nil {
		return err
	}
	// The configured credentials only gate the run; the login is always standard_user.
	if err := login.SubmitCredentials(StandardUser.Username, StandardUser.Password); err != nil {
		return err
	}
	_, err = landOnHome(env)
	return err
}

func invalidLogin(env *Env, c InvalidLoginCase) error {
	login, err := openLoginForm(env)
	if err != nil {
		return err
	}
	if err := login.SubmitCredentials(c.Username, c.Password); err != nil {
		return err
	}
	ok, err := login.HasErrorText(c.Message)
	if err != nil {
		return err
	}
	if !ok {
		return Failf("expected error message %q not present", c.Message)
	}
	return nil
}

func addToCart(ctx context.Context, env *Env) error {
	home, err := loginAs(env, StandardUser)
	if err != nil {
		return err
	}
	before, err := cartCount(home)
	if err != nil {
		return err
	}
	title, err := firstItem(home)
	if err != nil {
		return err
	}
	if err := home.AddItem(title); err != nil {
		return err
	}
	return expectCount(home, before+1, "after adding "+title)
}

func removeFromCart(ctx context.Context, env *Env) error {
	home, err := loginAs(env, StandardUser)
	if err != nil {
		return err
	}
	title, err := firstItem(home)
	if err != nil {
		return err
	}
	if err := home.AddItem(title); err != nil {
		return err
	}
	before, err := cartCount(home)
	if err != nil {
		return err
	}
	if err := home.RemoveItem(title); err != nil {
		return err
	}
	return expectCount(home, before-1, "after removing "+title)
}

func addRemoveCycles(ctx context.Context, env *Env) error {
	home, err := loginAs(env, StandardUser)
	if err != nil {
		return err
	}
	title, err := firstItem(home)
	if err != nil {
		return err
	}
	start, err := cartCount(home)
	if err != nil {
		return err
	}

	for i := 1; i <= CartCycles; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := home.AddItem(title); err != nil {
			return fmt.Errorf("cycle %d: %w", i, err)
		}
		if err := expectCount(home, start+1, fmt.Sprintf("cycle %d add", i)); err != nil {
			return err
		}
		if err := home.RemoveItem(title); err != nil {
			return fmt.Errorf("cycle %d: %w", i, err)
		}
		if err := expectCount(home, start, fmt.Sprintf("cycle %d remove", i)); err != nil {
			return err
		}
	}
	return nil
}

func backgroundResume(ctx context.Context, env *Env) error {
	home, err := loginAs(env, StandardUser)
	if err != nil {
		return err
	}
	title, err := firstItem(home)
	if err != nil {
		return err
	}
	if err := home.AddItem(title); err != nil {
		return err
	}
	before, err := cartCount(home)
	if err != nil {
		return err
	}

	if err := env.Session.BackgroundApp(-1); err != nil {
		return fmt.Errorf("background app: %w", err)
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(resumeDelay):
	}
	if err := env.Session.ActivateApp(""); err != nil {
		return fmt.Errorf("activate app: %w", err)
	}

	if _, err := landOnHome(env); err != nil {
		return err
	}
	return expectCount(home, before, "after resume")
}

// Steps shared by the scenarios.

func openLoginForm(env *Env) (*page.LoginView, error) {
	login, err := page.NewLoginView(env.Session)
	if err != nil {
		return nil, err
	}
	if err := applyWait(env, login.Base); err != nil {
		return nil, err
	}
	visible, err := login.IsFormVisible()
	if err != nil {
		return nil, err
	}
	if !visible {
		return nil, Failf("login page not loaded: login button is not displayed")
	}
	return login, nil
}

func landOnHome(env *Env) (*page.HomeView, error) {
	home, err := page.NewHomeView(env.Session)
	if err != nil {
		return nil, err
	}
	if err := applyWait(env, home.Base); err != nil {
		return nil, err
	}
	ok, err := home.IsLandingVisible()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, Failf("home page not loaded: user is not logged in")
	}
	return home, nil
}

// applyWait replaces the default wait a view constructor just set.
func applyWait(env *Env, b *page.Base) error {
	if env.Wait <= 0 {
		return nil
	}
	return b.SetWaitTimeout(env.Wait)
}

func loginAs(env *Env, c Credentials) (*page.HomeView, error) {
	login, err := openLoginForm(env)
	if err != nil {
		return nil, err
	}
	if err := login.SubmitCredentials(c.Username, c.Password); err != nil {
		return nil, err
	}
	return landOnHome(env)
}

func firstItem(home *page.HomeView) (string, error) {
	titles, err := home.ListItemTitles()
	if err != nil {
		return "", err
	}
	if len(titles) == 0 {
		return "", Failf("no items available to add to the cart")
	}
	return titles[0], nil
}

// cartCount reads the badge and insists on a number.
func cartCount(home *page.HomeView) (int, error) {
	c, err := home.CartCount()
	if err != nil {
		return 0, err
	}
	n, ok := c.Value()
	if !ok {
		return 0, Failf("cart quantity could not be read: badge is %s", c)
	}
	return n, nil
}

func expectCount(home *page.HomeView, want int, when string) error {
	got, err := cartCount(home)
	if err != nil {
		return err
	}
	if got != want {
		return Failf("cart quantity %s: expected %d, got %d", when, want, got)
	}
	return nil
}

// Names returns the names of scenarios, joined for log lines.
func Names(scenarios []Scenario) string {
	names := make([]string, len(scenarios))
	for i, s := range scenarios {
		names[i] = s.Name
	}
	return strings.Join(names, ", ")
}
