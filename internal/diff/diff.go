// Package diff computes line-level differences between two page snapshots.
package diff

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// Sentinel diff texts. Clients match on these exact strings.
const (
	Baseline  = "First snapshot — baseline saved."
	NoChanges = "No visible content changes detected."
)

// IsSentinel reports whether text is one of the sentinel diff strings.
func IsSentinel(text string) bool {
	return text == Baseline || text == NoChanges
}

type Op byte

const (
	Added   Op = '+'
	Removed Op = '-'
)

// Region is a run of consecutive lines added or removed.
type Region struct {
	Op    Op
	Lines []string
}

func (r Region) String() string {
	prefix := string(r.Op) + " "
	return prefix + strings.Join(r.Lines, "\n"+prefix)
}

type Result struct {
	Changed bool
	Text    string
}

// Compare diffs prev against next line by line. Within a replaced block the
// removed region comes before the added one.
func Compare(prev, next string) Result {
	a := splitLines(prev)
	b := splitLines(next)

	var regions []Region
	for _, op := range difflib.NewMatcher(a, b).GetOpCodes() {
		switch op.Tag {
		case 'r':
			regions = append(regions,
				Region{Op: Removed, Lines: a[op.I1:op.I2]},
				Region{Op: Added, Lines: b[op.J1:op.J2]},
			)
		case 'd':
			regions = append(regions, Region{Op: Removed, Lines: a[op.I1:op.I2]})
		case 'i':
			regions = append(regions, Region{Op: Added, Lines: b[op.J1:op.J2]})
		}
	}

	if len(regions) == 0 {
		return Result{Text: NoChanges}
	}

	parts := make([]string, len(regions))
	for i, r := range regions {
		parts[i] = r.String()
	}

	return Result{
		Changed: true,
		Text:    strings.Join(parts, "\n"),
	}
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(s, "\n"), "\n")
}
