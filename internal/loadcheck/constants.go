package loadcheck

import "time"

// Worker configuration constants.
const (
	WorkerChannelMultiplier = 2
)

// Runner configuration constants.
const (
	DefaultClockSkew     = 5 * time.Second
	PercentageMultiplier = 100
	maxResponseBytes     = 8 << 20
	windowLayout         = "2006-01-02 15:04:05"
)

// DefaultTitles are created when no titles are given.
var DefaultTitles = []string{
	"Star Wars",
	"Alien",
	"Blade Runner",
	"Heat",
	"Jaws",
	"Arrival",
}
