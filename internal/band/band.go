// Package band maps free-text employee-size labels onto a fixed, ordered set
// of canonical bands.
//
// Classification is a substring heuristic: a raw label belongs to the first
// canonical band (in ascending order) whose leading token occurs anywhere in
// the label. The match is deliberately loose. A band whose leading token is
// "20" also claims "120 staff" or "2020 estimate", and callers must treat the
// result as best effort. Labels that match no band pass through unchanged so
// that no entity is ever dropped.
package band

import (
	"strings"
	"sync"
)

// Order is the ordered list of canonical band names. The index of a band is
// its rank on the horizontal axis.
type Order []string

// DefaultOrder returns the built-in canonical bands in ascending order.
func DefaultOrder() Order {
	return Order{
		"1–5 Employees",
		"6–19 Employees",
		"20–49 Employees",
	}
}

// Token returns the leading whitespace-delimited token of the band at index i,
// e.g. "1–5" for "1–5 Employees".
func (o Order) Token(i int) string {
	return leadingToken(o[i])
}

// Rank returns the 0-based position of a canonical band.
func (o Order) Rank(band string) (int, bool) {
	for i, b := range o {
		if b == band {
			return i, true
		}
	}

	return -1, false
}

// Contains reports whether band is one of the canonical bands.
func (o Order) Contains(band string) bool {
	_, ok := o.Rank(band)
	return ok
}

// Clone returns a copy of o.
func (o Order) Clone() Order {
	out := make(Order, len(o))
	copy(out, o)

	return out
}

// Classify maps raw onto a canonical band of order. The first band whose
// leading token is a substring of the trimmed label wins. When nothing
// matches, the trimmed label itself is returned.
func Classify(raw string, order Order) string {
	label := strings.TrimSpace(raw)

	for i := range order {
		tok := order.Token(i)
		if tok == "" {
			continue
		}

		if strings.Contains(label, tok) {
			return order[i]
		}
	}

	return label
}

func leadingToken(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}

	return fields[0]
}

// Classifier memoises Classify per distinct raw label. It is safe for
// concurrent use.
type Classifier struct {
	order Order

	mu    sync.RWMutex
	cache map[string]string
}

// NewClassifier creates a Classifier for order. An empty order selects
// DefaultOrder.
func NewClassifier(order Order) *Classifier {
	if len(order) == 0 {
		order = DefaultOrder()
	}

	return &Classifier{
		order: order.Clone(),
		cache: make(map[string]string),
	}
}

// Order returns the canonical bands used by the classifier.
func (c *Classifier) Order() Order {
	return c.order
}

// Classify returns the canonical band for raw.
func (c *Classifier) Classify(raw string) string {
	c.mu.RLock()
	band, ok := c.cache[raw]
	c.mu.RUnlock()

	if ok {
		return band
	}

	band = Classify(raw, c.order)

	c.mu.Lock()
	c.cache[raw] = band
	c.mu.Unlock()

	return band
}
