// Package xpath builds XPath 1.0 locator expressions from typed parts.
//
// Values are always emitted as escaped string literals, so text taken from the
// screen (item titles, messages) cannot change the shape of the query.
package xpath

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/devicelab-dev/swaglabs-runner/pkg/core"
)

// Validation errors returned by Node.Expr.
var (
	ErrInvalidName  = errors.New("invalid xpath name")
	ErrInvalidValue = errors.New("invalid xpath value")
)

var nameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.\-]*$`)

type predicate struct {
	fn    string // "" for equality, otherwise a function name like "contains"
	attr  string
	value string
}

// Node is one location step of an expression plus the steps before it.
// Builder methods return copies; a Node is never modified after creation.
type Node struct {
	prev  *Node
	axis  string
	class string
	preds []predicate
}

// Class starts an absolute search (//class) for elements of the given class.
func Class(name string) *Node {
	return &Node{axis: "//", class: name}
}

// Any starts an absolute search for elements of any class.
func Any() *Node {
	return Class("*")
}

func (n *Node) copy() *Node {
	c := *n
	c.preds = append([]predicate(nil), n.preds...)
	return &c
}

func (n *Node) with(p predicate) *Node {
	c := n.copy()
	c.preds = append(c.preds, p)
	return c
}

// Attr adds an exact-match predicate on an attribute.
func (n *Node) Attr(name, value string) *Node {
	return n.with(predicate{attr: name, value: value})
}

// Contains adds a substring predicate on an attribute.
func (n *Node) Contains(name, value string) *Node {
	return n.with(predicate{fn: "contains", attr: name, value: value})
}

// Text is shorthand for Attr("text", value).
func (n *Node) Text(value string) *Node {
	return n.Attr("text", value)
}

// ContentDesc is shorthand for Attr("content-desc", value), the Android accessibility id.
func (n *Node) ContentDesc(value string) *Node {
	return n.Attr("content-desc", value)
}

// Relative turns the first step of the chain into a search below the
// context element (.//) instead of the document root.
func (n *Node) Relative() *Node {
	c := n.copy()
	if c.prev != nil {
		c.prev = c.prev.Relative()
		return c
	}
	c.axis = ".//"
	return c
}

// FollowingSibling returns s evaluated on the following siblings of n.
func (n *Node) FollowingSibling(s *Node) *Node {
	return n.then("/following-sibling::", s)
}

// Descendant returns s evaluated anywhere below n.
func (n *Node) Descendant(s *Node) *Node {
	return n.then("//", s)
}

// Child returns s evaluated on n's direct children.
func (n *Node) Child(s *Node) *Node {
	return n.then("/", s)
}

func (n *Node) then(axis string, s *Node) *Node {
	c := s.copy()
	c.axis = axis
	c.prev = n
	return c
}

// Expr renders the expression, validating every name and value.
func (n *Node) Expr() (string, error) {
	var b strings.Builder
	if err := n.write(&b); err != nil {
		return "", err
	}
	return b.String(), nil
}

func (n *Node) write(b *strings.Builder) error {
	if n.prev != nil {
		if err := n.prev.write(b); err != nil {
			return err
		}
	}
	if n.class != "*" && !nameRe.MatchString(n.class) {
		return fmt.Errorf("%w: class %q", ErrInvalidName, n.class)
	}
	b.WriteString(n.axis)
	b.WriteString(n.class)
	if len(n.preds) == 0 {
		return nil
	}
	b.WriteByte('[')
	for i, p := range n.preds {
		if i > 0 {
			b.WriteString(" and ")
		}
		if !nameRe.MatchString(p.attr) {
			return fmt.Errorf("%w: attribute %q", ErrInvalidName, p.attr)
		}
		lit, err := Literal(p.value)
		if err != nil {
			return err
		}
		if p.fn == "" {
			fmt.Fprintf(b, "@%s=%s", p.attr, lit)
		} else {
			fmt.Fprintf(b, "%s(@%s,%s)", p.fn, p.attr, lit)
		}
	}
	b.WriteByte(']')
	return nil
}

// Locator renders the expression as an xpath locator.
func (n *Node) Locator() (core.Locator, error) {
	expr, err := n.Expr()
	if err != nil {
		return core.Locator{}, err
	}
	return core.XPath(expr), nil
}

// MustLocator is like Locator but panics on invalid input.
// Only use it with constant names and values.
func (n *Node) MustLocator() core.Locator {
	loc, err := n.Locator()
	if err != nil {
		panic(err)
	}
	return loc
}

// Literal quotes s as an XPath 1.0 string literal.
// XPath 1.0 has no escape sequences, so a value holding both quote kinds
// is split into a concat() of pieces.
func Literal(s string) (string, error) {
	if err := ValidateValue(s); err != nil {
		return "", err
	}
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`, nil
	}
	if !strings.Contains(s, "'") {
		return "'" + s + "'", nil
	}

	parts := strings.Split(s, `"`)
	var b strings.Builder
	b.WriteString("concat(")
	for i, p := range parts {
		if i > 0 {
			b.WriteString(`,'"',`)
		}
		b.WriteString(`"` + p + `"`)
	}
	b.WriteString(")")
	return b.String(), nil
}

// ValidateValue rejects values that cannot appear in a UI hierarchy
// attribute: invalid UTF-8 and characters outside the XML 1.0 Char range.
// Tab, LF and CR are allowed.
func ValidateValue(s string) error {
	if !utf8.ValidString(s) {
		return fmt.Errorf("%w: not valid UTF-8", ErrInvalidValue)
	}
	for _, r := range s {
		if !isXMLChar(r) {
			return fmt.Errorf("%w: character %U not allowed in XML", ErrInvalidValue, r)
		}
	}
	return nil
}

func isXMLChar(r rune) bool {
	switch {
	case r == '\t' || r == '\n' || r == '\r':
		return true
	case r < 0x20:
		return false
	case r >= 0xD800 && r <= 0xDFFF, r == 0xFFFE, r == 0xFFFF:
		return false
	}
	return r <= unicode.MaxRune
}
