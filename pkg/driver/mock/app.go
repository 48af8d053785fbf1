// Package mock provides an in-memory Swag Labs app for testing without a real device.
package mock

import (
	"encoding/xml"
	"strconv"
	"strings"
	"sync"
)

// Screens of the app.
const (
	ScreenLogin    = "login"
	ScreenProducts = "products"
)

// Login error messages, as the app shows them.
const (
	MsgUsernameRequired = "Username is required"
	MsgPasswordRequired = "Password is required"
	MsgNoMatch          = "Username and password do not match any user in this service."
	MsgLockedOut        = "Sorry, this user has been locked out."
)

// Password accepted for every known user.
const Password = "secret_sauce"

// DefaultItems is the product catalogue of the real app.
var DefaultItems = []string{
	"Sauce Labs Backpack",
	"Sauce Labs Bike Light",
	"Sauce Labs Bolt T-Shirt",
	"Sauce Labs Fleece Jacket",
	"Sauce Labs Onesie",
	"Test.allTheThings() T-Shirt (Red)",
}

var knownUsers = map[string]bool{
	"standard_user":           true,
	"problem_user":            true,
	"performance_glitch_user": true,
	"locked_out_user":         true,
}

// Config configures mock app behavior.
type Config struct {
	// Items is the product list; DefaultItems when nil.
	Items []string
	// LoggedIn starts the app on the products screen.
	LoggedIn bool
	// Cart holds titles already in the cart at start.
	Cart []string
	// HideCart removes the cart badge container from the products screen.
	HideCart bool
	// BadgeText replaces the number in the cart badge when set.
	BadgeText string
	// UntitledItems lists item indices rendered without a title element.
	UntitledItems []int
	// AppID is the package ActivateApp accepts; DefaultAppID when empty.
	AppID string
	// Platform info to report
	Platform string
	DeviceID string
}

// DefaultAppID is the Android package of the Swag Labs app.
const DefaultAppID = "com.swaglabsmobileapp"

// App is the state of the app under test. It is safe for concurrent use,
// though a Session driving it is not.
type App struct {
	mu sync.Mutex

	cfg        Config
	screen     string
	username   string
	password   string
	errMsg     string
	cart       map[string]bool
	background bool
	untitled   map[int]bool
}

// NewApp creates an app in the state described by cfg.
func NewApp(cfg Config) *App {
	if cfg.Items == nil {
		cfg.Items = DefaultItems
	}
	if cfg.Platform == "" {
		cfg.Platform = "mock"
	}
	if cfg.DeviceID == "" {
		cfg.DeviceID = "mock-device"
	}
	if cfg.AppID == "" {
		cfg.AppID = DefaultAppID
	}

	a := &App{
		cfg:      cfg,
		screen:   ScreenLogin,
		cart:     make(map[string]bool),
		untitled: make(map[int]bool),
	}
	if cfg.LoggedIn {
		a.screen = ScreenProducts
	}
	for _, t := range cfg.Cart {
		a.cart[t] = true
	}
	for _, i := range cfg.UntitledItems {
		a.untitled[i] = true
	}
	return a
}

// Screen returns the current screen.
func (a *App) Screen() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.screen
}

// CartSize returns the number of items in the cart.
func (a *App) CartSize() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.cart)
}

// InCart reports whether the item titled title is in the cart.
func (a *App) InCart(title string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cart[title]
}

// InBackground reports whether the app is backgrounded.
func (a *App) InBackground() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.background
}

// SetHideCart shows or hides the cart badge container.
func (a *App) SetHideCart(hide bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cfg.HideCart = hide
}

// SetBadgeText overrides the cart badge text; "" restores the count.
func (a *App) SetBadgeText(text string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cfg.BadgeText = text
}

func (a *App) setBackground(bg bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.background = bg
}

// login applies the app's credential rules.
func (a *App) login() {
	switch {
	case a.username == "":
		a.errMsg = MsgUsernameRequired
	case a.password == "":
		a.errMsg = MsgPasswordRequired
	case !knownUsers[a.username] || a.password != Password:
		a.errMsg = MsgNoMatch
	case a.username == "locked_out_user":
		a.errMsg = MsgLockedOut
	default:
		a.errMsg = ""
		a.screen = ScreenProducts
	}
}

// node is one element of the rendered hierarchy.
type node struct {
	key       string
	class     string
	text      string
	desc      string
	displayed bool
	onClick   func()  // called with the app lock held
	field     *string // backing value for editable fields
	children  []*node
	parent    *node
}

func (n *node) attr(name string) (string, bool) {
	switch name {
	case "text":
		if n.field != nil {
			return *n.field, true
		}
		return n.text, true
	case "content-desc":
		return n.desc, true
	case "class", "className":
		return n.class, true
	case "displayed":
		return strconv.FormatBool(n.displayed), true
	case "resource-id":
		return "", true
	}
	return "", false
}

func (n *node) add(children ...*node) *node {
	for _, c := range children {
		c.parent = n
		n.children = append(n.children, c)
	}
	return n
}

// tree is one render of the app.
type tree struct {
	doc   *node
	byKey map[string]*node
	order map[*node]int
}

func el(key, class string) *node {
	return &node{key: key, class: class, displayed: true}
}

// render builds the current hierarchy. Caller holds a.mu.
func (a *App) render() *tree {
	root := el("root", "android.widget.FrameLayout")
	switch {
	case a.background:
		root.add(el("launcher", "android.view.View"))
	case a.screen == ScreenLogin:
		a.renderLogin(root)
	default:
		a.renderProducts(root)
	}

	doc := &node{key: "", class: "hierarchy"}
	doc.add(root)

	t := &tree{doc: doc, byKey: make(map[string]*node), order: make(map[*node]int)}
	var walk func(*node)
	walk = func(n *node) {
		t.order[n] = len(t.order)
		if n.key != "" {
			t.byKey[n.key] = n
		}
		for _, c := range n.children {
			walk(c)
		}
	}
	walk(doc)
	return t
}

func (a *App) renderLogin(root *node) {
	user := el("login/username", "android.widget.EditText")
	user.desc = "test-Username"
	user.field = &a.username

	pass := el("login/password", "android.widget.EditText")
	pass.desc = "test-Password"
	pass.field = &a.password

	label := el("login/button/label", "android.widget.TextView")
	label.text = "LOGIN"
	btn := el("login/button", "android.view.ViewGroup")
	btn.desc = "test-LOGIN"
	btn.onClick = a.login
	btn.add(label)

	form := el("login/form", "android.widget.ScrollView")
	form.desc = "test-Login"
	form.add(user, pass, btn)

	if a.errMsg != "" {
		msg := el("login/error/text", "android.widget.TextView")
		msg.text = a.errMsg
		box := el("login/error", "android.view.ViewGroup")
		box.desc = "test-Error message"
		box.add(msg)
		form.add(box)
	}
	root.add(form)
}

func (a *App) renderProducts(root *node) {
	header := el("products/header", "android.view.ViewGroup")
	if !a.cfg.HideCart {
		cart := el("products/cart", "android.view.ViewGroup")
		cart.desc = "test-Cart"
		cart.add(el("products/cart/icon", "android.widget.ImageView"))

		badgeText := a.cfg.BadgeText
		if badgeText == "" && len(a.cart) > 0 {
			badgeText = strconv.Itoa(len(a.cart))
		}
		if badgeText != "" {
			num := el("products/cart/badge/text", "android.widget.TextView")
			num.text = badgeText
			cart.add(el("products/cart/badge", "android.view.ViewGroup").add(num))
		}
		header.add(cart)
	}

	title := el("products/title", "android.widget.TextView")
	title.text = "PRODUCTS"

	list := el("products/list", "android.widget.ScrollView")
	list.desc = "test-PRODUCTS"
	for i, item := range a.cfg.Items {
		item := item
		prefix := "item/" + strconv.Itoa(i)
		box := el(prefix, "android.view.ViewGroup")
		box.desc = "test-Item"

		if !a.untitled[i] {
			t := el(prefix+"/title", "android.widget.TextView")
			t.desc = "test-Item title"
			t.text = item
			box.add(t)
		}

		price := el(prefix+"/price", "android.widget.TextView")
		price.desc = "test-Price"
		price.text = "$9.99"
		box.add(price)

		var btn *node
		if a.cart[item] {
			btn = el(prefix+"/remove", "android.view.ViewGroup")
			btn.desc = "test-REMOVE"
			btn.onClick = func() { delete(a.cart, item) }
		} else {
			btn = el(prefix+"/add", "android.view.ViewGroup")
			btn.desc = "test-ADD TO CART"
			btn.onClick = func() { a.cart[item] = true }
		}
		box.add(btn)
		list.add(box)
	}

	root.add(header, title, list)
}

// source renders the hierarchy as Android page source XML.
func (t *tree) source() string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	var write func(*node)
	write = func(n *node) {
		b.WriteString("<" + n.class)
		if n != t.doc {
			for _, name := range []string{"text", "content-desc", "displayed"} {
				v, _ := n.attr(name)
				b.WriteString(" " + name + `="`)
				_ = xml.EscapeText(&b, []byte(v))
				b.WriteString(`"`)
			}
		}
		b.WriteString(">")
		for _, c := range n.children {
			write(c)
		}
		b.WriteString("</" + n.class + ">")
	}
	write(t.doc)
	return b.String()
}
