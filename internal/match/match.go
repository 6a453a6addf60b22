// Package match locates a person's name among OCR text fragments.
//
// Chat sidebars render names in small type, so recognition is noisy: names
// split across fragments, trailing punctuation sticks to words, and umlauts
// or ß come back mangled. Matching is therefore deliberately loose, and a
// two-word target is only trusted when a second fragment nearby confirms it.
package match

import (
	"strings"
	"unicode/utf8"

	"github.com/statuswatch/statuswatch/internal/ocr"
)

// Tuning holds the matcher knobs.
type Tuning struct {
	SidebarMaxX      int `yaml:"sidebarMaxX"`      // left column boundary for preferring sidebar hits
	LineTolerance    int `yaml:"lineTolerance"`    // max vertical distance for same-line confirmation
	WindowBefore     int `yaml:"windowBefore"`     // fragments scanned before the candidate
	WindowAfter      int `yaml:"windowAfter"`      // fragments scanned after the candidate
	MinFragmentLen   int `yaml:"minFragmentLen"`   // shortest fragment considered a first-word candidate
	PrefixLen        int `yaml:"prefixLen"`        // prefix length for first-word matching
	OverlapPrefixLen int `yaml:"overlapPrefixLen"` // prefix length for second-word confirmation
}

// DefaultTuning returns the values the matcher was calibrated with.
func DefaultTuning() Tuning {
	return Tuning{
		SidebarMaxX:      400,
		LineTolerance:    25,
		WindowBefore:     2,
		WindowAfter:      5,
		MinFragmentLen:   2,
		PrefixLen:        3,
		OverlapPrefixLen: 4,
	}
}

// WithDefaults replaces non-positive knobs with their defaults.
func (t Tuning) WithDefaults() Tuning {
	d := DefaultTuning()
	if t.SidebarMaxX <= 0 {
		t.SidebarMaxX = d.SidebarMaxX
	}
	if t.LineTolerance <= 0 {
		t.LineTolerance = d.LineTolerance
	}
	if t.WindowBefore <= 0 {
		t.WindowBefore = d.WindowBefore
	}
	if t.WindowAfter <= 0 {
		t.WindowAfter = d.WindowAfter
	}
	if t.MinFragmentLen <= 0 {
		t.MinFragmentLen = d.MinFragmentLen
	}
	if t.PrefixLen <= 0 {
		t.PrefixLen = d.PrefixLen
	}
	if t.OverlapPrefixLen <= 0 {
		t.OverlapPrefixLen = d.OverlapPrefixLen
	}
	return t
}

// Match is one candidate location for the target name. Full matches carry
// the union box of the name fragment and its confirming neighbor.
type Match struct {
	Text string // recognized text, confirming word appended for full matches
	X    int
	Y    int
	W    int
	H    int
	Full bool
}

// Find runs collection and selection in one step.
func Find(frags []ocr.Fragment, target string, t Tuning) (Match, bool) {
	return Select(FindAll(frags, target, t), t)
}

// FindAll collects every candidate match for target, full matches before the
// partial for each candidate fragment, in fragment order.
func FindAll(frags []ocr.Fragment, target string, t Tuning) []Match {
	words := strings.Fields(strings.ToLower(target))
	if len(words) == 0 {
		return nil
	}
	first := words[0]

	var variants []string
	if len(words) >= 2 {
		variants = nameVariants(words[1])
	}

	var found []Match
	for i, frag := range frags {
		text := strings.TrimSpace(frag.Text)
		if utf8.RuneCountInString(text) < t.MinFragmentLen {
			continue
		}
		clean := strings.TrimRight(strings.ToLower(text), ":.,;!?")
		if !strings.Contains(clean, first) && runePrefix(clean, t.PrefixLen) != runePrefix(first, t.PrefixLen) {
			continue
		}

		// Look for the second word in the surrounding fragments. Several
		// neighbors can confirm the same candidate.
		if len(variants) > 0 {
			lo, hi := max(0, i-t.WindowBefore), min(len(frags), i+t.WindowAfter)
			for j := lo; j < hi; j++ {
				if j == i {
					continue
				}
				nearby := strings.TrimSpace(frags[j].Text)
				if nearby == "" {
					continue
				}
				if abs(frags[j].Y-frag.Y) >= t.LineTolerance || frags[j].X <= frag.X {
					continue
				}
				nearbyLower := strings.ToLower(nearby)
				for _, v := range variants {
					if strings.Contains(nearbyLower, v) ||
						strings.HasPrefix(nearbyLower, runePrefix(v, t.OverlapPrefixLen)) ||
						strings.HasPrefix(v, runePrefix(nearbyLower, t.OverlapPrefixLen)) {
						found = append(found, Match{
							Text: text + " " + nearby,
							X:    min(frag.X, frags[j].X),
							Y:    min(frag.Y, frags[j].Y),
							W:    max(frag.X+frag.W, frags[j].X+frags[j].W) - min(frag.X, frags[j].X),
							H:    max(frag.Y+frag.H, frags[j].Y+frags[j].H) - min(frag.Y, frags[j].Y),
							Full: true,
						})
						break
					}
				}
			}
		}

		found = append(found, Match{Text: text, X: frag.X, Y: frag.Y, W: frag.W, H: frag.H})
	}
	return found
}

// Select picks the best match: full matches beat partials, sidebar hits beat
// the rest of the screen, topmost wins within the sidebar, leftmost outside.
func Select(cands []Match, t Tuning) (Match, bool) {
	if len(cands) == 0 {
		return Match{}, false
	}

	pool := cands
	var fulls []Match
	for _, c := range cands {
		if c.Full {
			fulls = append(fulls, c)
		}
	}
	if len(fulls) > 0 {
		pool = fulls
	}

	var sidebar []Match
	for _, c := range pool {
		if c.X < t.SidebarMaxX {
			sidebar = append(sidebar, c)
		}
	}

	if len(sidebar) > 0 {
		best := sidebar[0]
		for _, c := range sidebar[1:] {
			if c.Y < best.Y {
				best = c
			}
		}
		return best, true
	}

	best := pool[0]
	for _, c := range pool[1:] {
		if c.X < best.X {
			best = c
		}
	}
	return best, true
}

// runePrefix returns the first n runes of s without allocating.
func runePrefix(s string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
