package page

import "strconv"

type cartState int

const (
	cartCounted cartState = iota
	cartAbsent
	cartMalformed
)

// CartCount is what the cart badge shows: a count, no badge at all, or a
// badge whose text is not a decimal integer.
type CartCount struct {
	state cartState
	n     int
}

// Count returns a CartCount of n items.
func Count(n int) CartCount {
	return CartCount{state: cartCounted, n: n}
}

// Absent is the CartCount when the badge container is not rendered.
var Absent = CartCount{state: cartAbsent}

// Malformed is the CartCount when the badge text is not a number.
var Malformed = CartCount{state: cartMalformed}

// Value returns the count and whether there is one.
func (c CartCount) Value() (int, bool) {
	return c.n, c.state == cartCounted
}

// IsAbsent reports whether the badge was missing.
func (c CartCount) IsAbsent() bool { return c.state == cartAbsent }

// IsMalformed reports whether the badge text was not a number.
func (c CartCount) IsMalformed() bool { return c.state == cartMalformed }

func (c CartCount) String() string {
	switch c.state {
	case cartAbsent:
		return "absent"
	case cartMalformed:
		return "malformed"
	default:
		return strconv.Itoa(c.n)
	}
}

// parseBadge turns badge text into a CartCount. Only ASCII digits count as a
// number; empty text means the badge has nothing in it yet.
func parseBadge(text string) CartCount {
	if text == "" {
		return Count(0)
	}
	for i := 0; i < len(text); i++ {
		if text[i] < '0' || text[i] > '9' {
			return Malformed
		}
	}
	n, err := strconv.Atoi(text)
	if err != nil {
		return Malformed
	}
	return Count(n)
}
