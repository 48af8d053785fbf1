package page

import (
	"fmt"

	"github.com/devicelab-dev/swaglabs-runner/pkg/core"
	"github.com/devicelab-dev/swaglabs-runner/pkg/logger"
)

// HomeView is the product list shown after a successful login.
type HomeView struct {
	*Base
}

// NewHomeView returns the home view for session.
func NewHomeView(session core.Session) (*HomeView, error) {
	b, err := NewBase(session)
	if err != nil {
		return nil, err
	}
	return &HomeView{Base: b}, nil
}

// IsLandingVisible reports whether the PRODUCTS title is displayed.
func (v *HomeView) IsLandingVisible() (bool, error) {
	return v.isVisible(ProductsTitle)
}

// ListItemTitles returns the titles of the items currently rendered, in
// screen order. Items whose title cannot be read are left out, so the
// result may be shorter than the number of item containers. No items gives
// an empty slice.
func (v *HomeView) ListItemTitles() ([]string, error) {
	containers, err := v.Session().FindElements(ItemContainer)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}

	titles := make([]string, 0, len(containers))
	for i, c := range containers {
		title, ok, err := itemTitleOf(c)
		if err != nil {
			return nil, fmt.Errorf("list items: item %d: %w", i, err)
		}
		if !ok {
			logger.Debug("home: item %d has no readable title, skipped", i)
			continue
		}
		titles = append(titles, title)
	}
	return titles, nil
}

func itemTitleOf(container core.Element) (string, bool, error) {
	el, err := container.FindElement(itemTitleInContainer)
	if err != nil {
		if core.IsNotFound(err) || core.IsStale(err) {
			return "", false, nil
		}
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

// AddItem taps ADD TO CART for the item titled title.
// It fails when there is no such item or the item is already in the cart.
func (v *HomeView) AddItem(title string) error {
	return v.tapItemButton(title, ButtonAddToCart)
}

// RemoveItem taps REMOVE for the item titled title.
// It fails when there is no such item or the item is not in the cart.
func (v *HomeView) RemoveItem(title string) error {
	return v.tapItemButton(title, ButtonRemove)
}

func (v *HomeView) tapItemButton(title string, button Button) error {
	loc, err := ItemButtonLocator(title, button)
	if err != nil {
		return fmt.Errorf("%s %q: %w", button, title, err)
	}
	btn, err := v.Find(loc)
	if err != nil {
		return fmt.Errorf("%s %q: %w", button, title, err)
	}
	if err := btn.Click(); err != nil {
		return fmt.Errorf("%s %q: tap: %w", button, title, err)
	}
	logger.Info("home: %s %q", button, title)
	return nil
}

// CartCount reads the cart badge.
//
// The number is looked up inside the badge element found first, so both
// reads refer to the same badge. If that badge is re-rendered in between,
// the read reports Absent rather than guessing.
func (v *HomeView) CartCount() (CartCount, error) {
	badge, err := v.FindOptional(CartBadge)
	if err != nil {
		return CartCount{}, fmt.Errorf("cart count: %w", err)
	}
	if badge == nil {
		return Absent, nil
	}

	num, err := badge.FindElement(badgeTextInCart)
	switch {
	case core.IsNotFound(err):
		return Count(0), nil
	case core.IsStale(err):
		return Absent, nil
	case err != nil:
		return CartCount{}, fmt.Errorf("cart count: %w", err)
	}

	text, err := num.Text()
	if err != nil {
		if core.IsStale(err) {
			return Absent, nil
		}
		return CartCount{}, fmt.Errorf("cart count: %w", err)
	}
	return parseBadge(text), nil
}
