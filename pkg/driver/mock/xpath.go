package mock

import (
	"fmt"
	"sort"
	"strings"

	"github.com/devicelab-dev/swaglabs-runner/pkg/core"
)

// query is a parsed XPath expression in the subset pkg/xpath emits:
// location steps on the child, descendant and following-sibling axes with
// equality and contains() predicates over string literals.
type query struct {
	relative bool
	steps    []step
}

type step struct {
	axis  string // "desc", "child", "sibling"
	class string
	preds []pred
}

type pred struct {
	contains bool
	attr     string
	value    string
}

type parser struct {
	s   string
	pos int
}

func parseQuery(expr string) (*query, error) {
	p := &parser{s: expr}
	q := &query{}

	switch {
	case p.eat(".//"):
		q.relative = true
	case p.eat("//"):
	default:
		return nil, p.errorf("expression must start with // or .//")
	}

	axis := "desc"
	for {
		st, err := p.step(axis)
		if err != nil {
			return nil, err
		}
		q.steps = append(q.steps, st)

		if p.done() {
			return q, nil
		}
		switch {
		case p.eat("/following-sibling::"):
			axis = "sibling"
		case p.eat("//"):
			axis = "desc"
		case p.eat("/"):
			axis = "child"
		default:
			return nil, p.errorf("unexpected input")
		}
	}
}

func (p *parser) done() bool { return p.pos >= len(p.s) }

func (p *parser) eat(tok string) bool {
	if strings.HasPrefix(p.s[p.pos:], tok) {
		p.pos += len(tok)
		return true
	}
	return false
}

func (p *parser) errorf(format string, args ...interface{}) error {
	return core.ErrInvalidSelector.WithCause(
		fmt.Errorf("%s at offset %d in %q", fmt.Sprintf(format, args...), p.pos, p.s))
}

func isNameByte(c byte) bool {
	return c == '_' || c == '.' || c == '-' || c == '*' ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

func (p *parser) name() (string, error) {
	start := p.pos
	for !p.done() && isNameByte(p.s[p.pos]) {
		p.pos++
	}
	if start == p.pos {
		return "", p.errorf("expected a name")
	}
	return p.s[start:p.pos], nil
}

func (p *parser) step(axis string) (step, error) {
	class, err := p.name()
	if err != nil {
		return step{}, err
	}
	st := step{axis: axis, class: class}
	if !p.eat("[") {
		return st, nil
	}
	for {
		pr, err := p.pred()
		if err != nil {
			return step{}, err
		}
		st.preds = append(st.preds, pr)
		if p.eat("]") {
			return st, nil
		}
		if !p.eat(" and ") {
			return step{}, p.errorf("expected ] or and")
		}
	}
}

func (p *parser) pred() (pred, error) {
	if p.eat("contains(@") {
		attr, err := p.name()
		if err != nil {
			return pred{}, err
		}
		if !p.eat(",") {
			return pred{}, p.errorf("expected ,")
		}
		v, err := p.literal()
		if err != nil {
			return pred{}, err
		}
		if !p.eat(")") {
			return pred{}, p.errorf("expected )")
		}
		return pred{contains: true, attr: attr, value: v}, nil
	}
	if !p.eat("@") {
		return pred{}, p.errorf("expected @ or contains(")
	}
	attr, err := p.name()
	if err != nil {
		return pred{}, err
	}
	if !p.eat("=") {
		return pred{}, p.errorf("expected =")
	}
	v, err := p.literal()
	if err != nil {
		return pred{}, err
	}
	return pred{attr: attr, value: v}, nil
}

func (p *parser) literal() (string, error) {
	if p.eat("concat(") {
		var b strings.Builder
		for {
			part, err := p.literal()
			if err != nil {
				return "", err
			}
			b.WriteString(part)
			if p.eat(")") {
				return b.String(), nil
			}
			if !p.eat(",") {
				return "", p.errorf("expected , or ) in concat")
			}
		}
	}
	if p.done() {
		return "", p.errorf("expected a string literal")
	}
	quote := p.s[p.pos]
	if quote != '"' && quote != '\'' {
		return "", p.errorf("expected a string literal")
	}
	end := strings.IndexByte(p.s[p.pos+1:], quote)
	if end < 0 {
		return "", p.errorf("unterminated string literal")
	}
	v := p.s[p.pos+1 : p.pos+1+end]
	p.pos += end + 2
	return v, nil
}

func (s step) matches(n *node) bool {
	if s.class != "*" && s.class != n.class {
		return false
	}
	for _, p := range s.preds {
		v, ok := n.attr(p.attr)
		if !ok {
			return false
		}
		if p.contains {
			if !strings.Contains(v, p.value) {
				return false
			}
		} else if v != p.value {
			return false
		}
	}
	return true
}

// eval runs q from ctx (the document node for absolute queries) and returns
// matches in document order without duplicates.
func (q *query) eval(t *tree, ctx *node) []*node {
	current := []*node{ctx}
	for _, st := range q.steps {
		seen := make(map[*node]bool)
		var next []*node
		for _, c := range current {
			for _, cand := range candidates(st.axis, c) {
				if !seen[cand] && st.matches(cand) {
					seen[cand] = true
					next = append(next, cand)
				}
			}
		}
		sort.Slice(next, func(i, j int) bool { return t.order[next[i]] < t.order[next[j]] })
		current = next
	}
	return current
}

func candidates(axis string, n *node) []*node {
	switch axis {
	case "child":
		return n.children
	case "sibling":
		if n.parent == nil {
			return nil
		}
		sibs := n.parent.children
		for i, s := range sibs {
			if s == n {
				return sibs[i+1:]
			}
		}
		return nil
	default:
		var out []*node
		var walk func(*node)
		walk = func(x *node) {
			for _, ch := range x.children {
				out = append(out, ch)
				walk(ch)
			}
		}
		walk(n)
		return out
	}
}
