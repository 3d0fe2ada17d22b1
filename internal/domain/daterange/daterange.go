// Package daterange validates the optional date window of leaderboard queries.
package daterange

import (
	"fmt"
	"strings"
	"time"

	"github.com/okian/marquee/internal/domain/types"
)

// Layout is the only accepted timestamp format. Values are read as UTC.
const Layout = "2006-01-02 15:04:05"

// Parse validates a (from, to) pair.
//
// Both absent yields a nil window (all time). Both present and ordered yields
// an inclusive window. A present but unparsable value fails with
// types.ErrBadDateFormat; from after to, or only one bound present, fails with
// types.ErrInvalidRange.
func Parse(from, to string) (*types.Window, error) {
	f, hasFrom, err := parseOne(from)
	if err != nil {
		return nil, err
	}
	t, hasTo, err := parseOne(to)
	if err != nil {
		return nil, err
	}

	switch {
	case !hasFrom && !hasTo:
		return nil, nil
	case hasFrom && hasTo && !f.After(t):
		return &types.Window{From: f, To: t}, nil
	default:
		return nil, types.ErrInvalidRange
	}
}

// Format renders t in Layout after converting it to UTC.
func Format(t time.Time) string {
	return t.UTC().Format(Layout)
}

func parseOne(s string) (time.Time, bool, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false, nil
	}
	t, err := time.ParseInLocation(Layout, s, time.UTC)
	if err != nil {
		return time.Time{}, true, fmt.Errorf("%w: %q", types.ErrBadDateFormat, s)
	}
	return t, true, nil
}
