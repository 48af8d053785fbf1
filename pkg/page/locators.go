package page

import (
	"fmt"

	"github.com/devicelab-dev/swaglabs-runner/pkg/core"
	"github.com/devicelab-dev/swaglabs-runner/pkg/xpath"
)

const (
	classTextView  = "android.widget.TextView"
	classViewGroup = "android.view.ViewGroup"
)

// Button is the label of an item's cart action button.
type Button string

// Item buttons.
const (
	ButtonAddToCart Button = "ADD TO CART"
	ButtonRemove    Button = "REMOVE"
)

// Login screen.
var (
	UsernameField = core.AccessibilityID("test-Username")
	PasswordField = core.AccessibilityID("test-Password")
	LoginButton   = core.AccessibilityID("test-LOGIN")

	// ErrorBanner matches the lock-out style errors, which all start with "Sorry".
	ErrorBanner = xpath.Class(classTextView).Contains("text", "Sorry").MustLocator()
)

// Products screen.
var (
	ProductsTitle = xpath.Class(classTextView).Text("PRODUCTS").MustLocator()
	ItemContainer = xpath.Class(classViewGroup).ContentDesc("test-Item").MustLocator()
	CartBadge     = xpath.Class(classViewGroup).ContentDesc("test-Cart").MustLocator()

	// Scoped to an item container.
	itemTitleInContainer = xpath.Class(classTextView).ContentDesc("test-Item title").Relative().MustLocator()
	// Scoped to the cart badge container.
	badgeTextInCart = xpath.Class(classTextView).Relative().MustLocator()
)

var itemTitle = xpath.Class(classTextView).ContentDesc("test-Item title")

// ErrInvalidTitle is returned for item titles that cannot name a product.
var ErrInvalidTitle = core.NewExecutionError(core.ErrCategoryAssertion, "invalid_title", "invalid item title")

// ItemButtonLocator locates the action button next to the item titled title:
// the sibling of the title node whose accessibility id is "test-<button>".
func ItemButtonLocator(title string, button Button) (core.Locator, error) {
	if err := validateTitle(title); err != nil {
		return core.Locator{}, err
	}
	if button != ButtonAddToCart && button != ButtonRemove {
		return core.Locator{}, fmt.Errorf("unknown item button %q", button)
	}
	node := itemTitle.Text(title).
		FollowingSibling(xpath.Class(classViewGroup).ContentDesc("test-" + string(button)))
	return node.Locator()
}

// ErrorTextLocator locates a message element whose text is exactly expected.
func ErrorTextLocator(expected string) (core.Locator, error) {
	loc, err := xpath.Class(classTextView).Text(expected).Locator()
	if err != nil {
		return core.Locator{}, fmt.Errorf("error text %q: %w", expected, err)
	}
	return loc, nil
}

func validateTitle(title string) error {
	if title == "" {
		return ErrInvalidTitle.WithMessage("item title is empty")
	}
	if err := xpath.ValidateValue(title); err != nil {
		return ErrInvalidTitle.WithCause(err)
	}
	return nil
}
