package page_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devicelab-dev/swaglabs-runner/pkg/core"
	"github.com/devicelab-dev/swaglabs-runner/pkg/driver/mock"
	"github.com/devicelab-dev/swaglabs-runner/pkg/page"
)

func TestNewBase_SetsDefaultWait(t *testing.T) {
	s := mock.New(mock.Config{})
	b, err := page.NewBase(s)
	require.NoError(t, err)
	assert.Equal(t, page.DefaultWaitTimeout, s.ImplicitWait())
	assert.Equal(t, page.DefaultWaitTimeout, b.WaitTimeout())
}

func TestSetWaitTimeout_SessionWide(t *testing.T) {
	s := mock.New(mock.Config{})
	b, err := page.NewBase(s)
	require.NoError(t, err)

	require.NoError(t, b.SetWaitTimeout(2*time.Second))
	assert.Equal(t, 2*time.Second, s.ImplicitWait())

	// A second view on the same session sees the same setting until it resets it.
	_, err = page.NewLoginView(s)
	require.NoError(t, err)
	assert.Equal(t, page.DefaultWaitTimeout, s.ImplicitWait())
}

func TestSetWaitTimeout_ClosedSession(t *testing.T) {
	s := mock.New(mock.Config{})
	b, err := page.NewBase(s)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	err = b.SetWaitTimeout(time.Second)
	assert.ErrorIs(t, err, core.ErrInvalidSession)
	assert.Equal(t, page.DefaultWaitTimeout, b.WaitTimeout())
}

func TestFindOptional(t *testing.T) {
	s := mock.New(mock.Config{})
	b, err := page.NewBase(s)
	require.NoError(t, err)

	el, err := b.FindOptional(page.LoginButton)
	require.NoError(t, err)
	require.NotNil(t, el)

	el, err = b.FindOptional(page.ProductsTitle)
	assert.NoError(t, err)
	assert.Nil(t, el)
}

func TestFindOptional_TransportFault(t *testing.T) {
	s := mock.New(mock.Config{})
	b, err := page.NewBase(s)
	require.NoError(t, err)

	_, err = b.FindOptional(core.XPath("not xpath"))
	assert.ErrorIs(t, err, core.ErrInvalidSelector)

	require.NoError(t, s.Close())
	_, err = b.FindOptional(page.LoginButton)
	assert.ErrorIs(t, err, core.ErrInvalidSession)
}

func TestFind_Missing(t *testing.T) {
	b, err := page.NewBase(mock.New(mock.Config{}))
	require.NoError(t, err)

	_, err = b.Find(page.ProductsTitle)
	require.Error(t, err)
	assert.True(t, core.IsNotFound(err))
	assert.Contains(t, err.Error(), page.ProductsTitle.String())
}

func TestLogin_ValidCredentials(t *testing.T) {
	s := mock.New(mock.Config{})
	login, err := page.NewLoginView(s)
	require.NoError(t, err)

	visible, err := login.IsFormVisible()
	require.NoError(t, err)
	assert.True(t, visible)

	require.NoError(t, login.SubmitCredentials("standard_user", "secret_sauce"))

	home, err := page.NewHomeView(s)
	require.NoError(t, err)
	landing, err := home.IsLandingVisible()
	require.NoError(t, err)
	assert.True(t, landing)

	visible, err = login.IsFormVisible()
	require.NoError(t, err)
	assert.False(t, visible)
}

func TestLogin_ErrorMessages(t *testing.T) {
	tests := []struct {
		name       string
		user, pass string
		want       string
	}{
		{"missing password", "standard_user", "", "Password is required"},
		{"missing username", "", "invalid_password", "Username is required"},
		{"both missing", "", "", "Username is required"},
		{"wrong password", "standard_user", "invalid_password", "Username and password do not match any user in this service."},
		{"unknown user", "invalid_user", "invalid_password", "Username and password do not match any user in this service."},
		{"locked out", "locked_out_user", "secret_sauce", "Sorry, this user has been locked out."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := mock.New(mock.Config{})
			login, err := page.NewLoginView(s)
			require.NoError(t, err)

			require.NoError(t, login.SubmitCredentials(tt.user, tt.pass))

			ok, err := login.HasErrorText(tt.want)
			require.NoError(t, err)
			assert.True(t, ok)

			// Exact match only.
			ok, err = login.HasErrorText(strings.ToUpper(tt.want))
			require.NoError(t, err)
			assert.False(t, ok)

			landing, err := page.NewHomeView(s)
			require.NoError(t, err)
			visible, err := landing.IsLandingVisible()
			require.NoError(t, err)
			assert.False(t, visible)
		})
	}
}

func TestLogin_SubmitTwiceReplacesInput(t *testing.T) {
	s := mock.New(mock.Config{})
	login, err := page.NewLoginView(s)
	require.NoError(t, err)

	require.NoError(t, login.SubmitCredentials("standard_user", "wrong"))
	require.NoError(t, login.SubmitCredentials("standard_user", "secret_sauce"))
	assert.Equal(t, mock.ScreenProducts, s.App().Screen())
}

func TestHasErrorText_NoError(t *testing.T) {
	login, err := page.NewLoginView(mock.New(mock.Config{}))
	require.NoError(t, err)

	ok, err := login.HasErrorText("Username is required")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHasErrorText_HostileText(t *testing.T) {
	login, err := page.NewLoginView(mock.New(mock.Config{}))
	require.NoError(t, err)

	ok, err := login.HasErrorText(`"] | //* | x["`)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = login.HasErrorText("bad\x00text")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHasErrorText_MultiLine(t *testing.T) {
	login, err := page.NewLoginView(mock.New(mock.Config{}))
	require.NoError(t, err)
	require.NoError(t, login.SubmitCredentials("", ""))

	ok, err := login.HasErrorText("Epic sadface:\nUsername is required")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = login.HasErrorText("Username is required")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestErrorMessage(t *testing.T) {
	s := mock.New(mock.Config{})
	login, err := page.NewLoginView(s)
	require.NoError(t, err)

	_, shown, err := login.ErrorMessage()
	require.NoError(t, err)
	assert.False(t, shown)

	require.NoError(t, login.SubmitCredentials("locked_out_user", "secret_sauce"))
	msg, shown, err := login.ErrorMessage()
	require.NoError(t, err)
	assert.True(t, shown)
	assert.Equal(t, mock.MsgLockedOut, msg)
}

func TestSubmitCredentials_MissingControl(t *testing.T) {
	s := mock.New(mock.Config{LoggedIn: true})
	login, err := page.NewLoginView(s)
	require.NoError(t, err)

	err = login.SubmitCredentials("standard_user", "secret_sauce")
	require.Error(t, err)
	assert.True(t, core.IsNotFound(err))
}

func newHome(t *testing.T, cfg mock.Config) (*page.HomeView, *mock.Session) {
	t.Helper()
	cfg.LoggedIn = true
	s := mock.New(cfg)
	home, err := page.NewHomeView(s)
	require.NoError(t, err)
	return home, s
}

func TestListItemTitles(t *testing.T) {
	home, _ := newHome(t, mock.Config{})

	titles, err := home.ListItemTitles()
	require.NoError(t, err)
	if diff := cmp.Diff(mock.DefaultItems, titles); diff != "" {
		t.Errorf("ListItemTitles() mismatch (-want +got):\n%s", diff)
	}

	again, err := home.ListItemTitles()
	require.NoError(t, err)
	if diff := cmp.Diff(titles, again); diff != "" {
		t.Errorf("second ListItemTitles() differs (-first +second):\n%s", diff)
	}
}

func TestListItemTitles_Empty(t *testing.T) {
	home, _ := newHome(t, mock.Config{Items: []string{}})

	titles, err := home.ListItemTitles()
	require.NoError(t, err)
	assert.NotNil(t, titles)
	assert.Empty(t, titles)
}

func TestListItemTitles_SkipsUntitled(t *testing.T) {
	home, _ := newHome(t, mock.Config{UntitledItems: []int{0, 3}})

	titles, err := home.ListItemTitles()
	require.NoError(t, err)
	want := []string{mock.DefaultItems[1], mock.DefaultItems[2], mock.DefaultItems[4], mock.DefaultItems[5]}
	if diff := cmp.Diff(want, titles); diff != "" {
		t.Errorf("ListItemTitles() mismatch (-want +got):\n%s", diff)
	}
}

func TestListItemTitles_ClosedSession(t *testing.T) {
	home, s := newHome(t, mock.Config{})
	require.NoError(t, s.Close())

	_, err := home.ListItemTitles()
	assert.ErrorIs(t, err, core.ErrInvalidSession)
}

func TestCartCount_Absent(t *testing.T) {
	home, _ := newHome(t, mock.Config{HideCart: true})

	got, err := home.CartCount()
	require.NoError(t, err)
	assert.True(t, got.IsAbsent())
	_, ok := got.Value()
	assert.False(t, ok)
}

func TestCartCount_EmptyBadgeIsZero(t *testing.T) {
	home, _ := newHome(t, mock.Config{})

	got, err := home.CartCount()
	require.NoError(t, err)
	assert.Equal(t, page.Count(0), got)
}

func TestCartCount_Number(t *testing.T) {
	home, _ := newHome(t, mock.Config{Cart: mock.DefaultItems[:2]})

	got, err := home.CartCount()
	require.NoError(t, err)
	n, ok := got.Value()
	assert.True(t, ok)
	assert.Equal(t, 2, n)
}

func TestCartCount_Malformed(t *testing.T) {
	for _, text := range []string{"9+", "two", " 2", "-1", "1.5", "٣", "99999999999999999999999"} {
		t.Run(text, func(t *testing.T) {
			home, s := newHome(t, mock.Config{})
			s.App().SetBadgeText(text)

			got, err := home.CartCount()
			require.NoError(t, err)
			assert.True(t, got.IsMalformed(), "got %s", got)
		})
	}
}

func TestCartCount_BadgeGoneBetweenReads(t *testing.T) {
	home, s := newHome(t, mock.Config{Cart: mock.DefaultItems[:1]})
	s.OnFind(func(loc core.Locator) {
		if strings.HasPrefix(loc.Selector, ".//") {
			s.App().SetHideCart(true)
		}
	})

	got, err := home.CartCount()
	require.NoError(t, err)
	assert.True(t, got.IsAbsent())
}

func TestAddRemoveItem(t *testing.T) {
	home, s := newHome(t, mock.Config{Cart: mock.DefaultItems[:2]})

	before, err := home.CartCount()
	require.NoError(t, err)
	assert.Equal(t, page.Count(2), before)

	titles, err := home.ListItemTitles()
	require.NoError(t, err)
	target := titles[len(titles)-1]

	require.NoError(t, home.AddItem(target))
	assert.True(t, s.App().InCart(target))
	got, err := home.CartCount()
	require.NoError(t, err)
	assert.Equal(t, page.Count(3), got)

	require.NoError(t, home.RemoveItem(target))
	got, err = home.CartCount()
	require.NoError(t, err)
	assert.Equal(t, before, got)
}

func TestAddRemoveItem_FiveCycles(t *testing.T) {
	home, _ := newHome(t, mock.Config{})
	title := mock.DefaultItems[0]

	start, err := home.CartCount()
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		require.NoError(t, home.AddItem(title), "cycle %d add", i)
		require.NoError(t, home.RemoveItem(title), "cycle %d remove", i)
		got, err := home.CartCount()
		require.NoError(t, err)
		assert.Equal(t, start, got, "cycle %d", i)
	}
}

func TestAddItem_QuotedTitles(t *testing.T) {
	items := []string{`Tom's bag`, `the "best" one`, `both ' and "`, `x"] | //*[@text="y`}
	home, s := newHome(t, mock.Config{Items: items})

	for _, title := range items {
		require.NoError(t, home.AddItem(title), title)
		assert.True(t, s.App().InCart(title), title)
	}
	assert.Equal(t, len(items), s.App().CartSize())
}

func TestAddItem_Errors(t *testing.T) {
	home, _ := newHome(t, mock.Config{Cart: mock.DefaultItems[:1]})

	err := home.AddItem("No Such Item")
	assert.True(t, core.IsNotFound(err), "unknown title: %v", err)

	err = home.AddItem(mock.DefaultItems[0])
	assert.True(t, core.IsNotFound(err), "already in cart: %v", err)

	err = home.RemoveItem(mock.DefaultItems[1])
	assert.True(t, core.IsNotFound(err), "not in cart: %v", err)

	for _, bad := range []string{"", "nul\x00", "\xff"} {
		err := home.AddItem(bad)
		assert.True(t, errors.Is(err, page.ErrInvalidTitle), "%q: %v", bad, err)
	}
}

func TestAddRemoveItem_ListedTitles(t *testing.T) {
	items := []string{"Sauce Labs\nBackpack", "Bolt\tT-Shirt", "Onesie\r\nRed"}
	home, s := newHome(t, mock.Config{Items: items})

	titles, err := home.ListItemTitles()
	require.NoError(t, err)
	require.Equal(t, items, titles)

	for _, title := range titles {
		require.NoError(t, home.AddItem(title), "%q", title)
		assert.True(t, s.App().InCart(title), "%q", title)
	}
	got, err := home.CartCount()
	require.NoError(t, err)
	assert.Equal(t, page.Count(len(items)), got)

	for _, title := range titles {
		require.NoError(t, home.RemoveItem(title), "%q", title)
	}
	got, err = home.CartCount()
	require.NoError(t, err)
	assert.True(t, got.IsAbsent())
}

func TestIsLandingVisible_Background(t *testing.T) {
	home, s := newHome(t, mock.Config{})
	require.NoError(t, s.BackgroundApp(-1))

	visible, err := home.IsLandingVisible()
	require.NoError(t, err)
	assert.False(t, visible)

	require.NoError(t, s.ActivateApp(""))
	visible, err = home.IsLandingVisible()
	require.NoError(t, err)
	assert.True(t, visible)
}

func TestNoCaching(t *testing.T) {
	home, s := newHome(t, mock.Config{})
	_, err := home.IsLandingVisible()
	require.NoError(t, err)
	first := s.Lookups()
	_, err = home.IsLandingVisible()
	require.NoError(t, err)
	assert.Equal(t, first*2, s.Lookups())
}
