package diff

import (
	"fmt"
	"io"
	"sort"

	sigsyaml "sigs.k8s.io/yaml"
)

// Membership lists the companies drawn on each chart of a render.
type Membership struct {
	Shortlist []string
	Pool      []string
}

type renderDoc struct {
	Shortlist chartDoc `json:"shortlist"`
	Pool      chartDoc `json:"pool"`
}

type chartDoc struct {
	Markers []struct {
		Tooltip struct {
			Company string `json:"company"`
		} `json:"tooltip"`
	} `json:"markers"`
}

func (c chartDoc) companies() []string {
	out := make([]string, 0, len(c.Markers))
	for _, m := range c.Markers {
		out = append(out, m.Tooltip.Company)
	}

	return out
}

// MembershipOf extracts chart membership from an encoded render.
func MembershipOf(data []byte) (Membership, error) {
	var doc renderDoc
	if err := sigsyaml.Unmarshal(data, &doc); err != nil {
		return Membership{}, fmt.Errorf("decoding render: %w", err)
	}

	return Membership{
		Shortlist: doc.Shortlist.companies(),
		Pool:      doc.Pool.companies(),
	}, nil
}

// Summary lists the companies that changed charts between two renders.
type Summary struct {
	// Shortlisted moved onto the shortlist.
	Shortlisted []string `json:"shortlisted,omitempty"`
	// Released left the shortlist.
	Released []string `json:"released,omitempty"`
	// Appeared are drawn now but were on neither chart before.
	Appeared []string `json:"appeared,omitempty"`
	// Disappeared were drawn before but are on neither chart now.
	Disappeared []string `json:"disappeared,omitempty"`
}

// IsZero reports whether nothing changed charts.
func (s Summary) IsZero() bool {
	return len(s.Shortlisted) == 0 && len(s.Released) == 0 &&
		len(s.Appeared) == 0 && len(s.Disappeared) == 0
}

// Summarize compares two memberships. Every list is sorted.
func Summarize(before, after Membership) Summary {
	bs, bp := toSet(before.Shortlist), toSet(before.Pool)
	as, ap := toSet(after.Shortlist), toSet(after.Pool)

	var s Summary

	for name := range as {
		if !bs[name] {
			s.Shortlisted = append(s.Shortlisted, name)
		}
	}

	for name := range bs {
		if !as[name] {
			s.Released = append(s.Released, name)
		}
	}

	for name := range union(as, ap) {
		if !bs[name] && !bp[name] {
			s.Appeared = append(s.Appeared, name)
		}
	}

	for name := range union(bs, bp) {
		if !as[name] && !ap[name] {
			s.Disappeared = append(s.Disappeared, name)
		}
	}

	sort.Strings(s.Shortlisted)
	sort.Strings(s.Released)
	sort.Strings(s.Appeared)
	sort.Strings(s.Disappeared)

	return s
}

// WriteSummary prints one line per change.
func WriteSummary(w io.Writer, s Summary) {
	if s.IsZero() {
		_, _ = fmt.Fprintln(w, "No companies changed charts.")
		return
	}

	sections := []struct {
		mark  string
		names []string
	}{
		{"+ shortlisted", s.Shortlisted},
		{"- released", s.Released},
		{"+ appeared", s.Appeared},
		{"- disappeared", s.Disappeared},
	}

	for _, sec := range sections {
		for _, n := range sec.names {
			_, _ = fmt.Fprintf(w, "%-14s %s\n", sec.mark, n)
		}
	}
}

func toSet(names []string) map[string]bool {
	out := make(map[string]bool, len(names))
	for _, n := range names {
		out[n] = true
	}

	return out
}

func union(a, b map[string]bool) map[string]bool {
	out := make(map[string]bool, len(a)+len(b))
	for k := range a {
		out[k] = true
	}

	for k := range b {
		out[k] = true
	}

	return out
}
