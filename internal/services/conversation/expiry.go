package conversation

import (
	"strconv"
	"time"

	"woosh/internal/domain"
)

// ExpiredLabel is shown once a read message's window has passed.
const ExpiredLabel = "Expired"

// Remaining returns how long m has left before the relay drops it. ok is
// false while the countdown has not started (the message is unread).
func Remaining(m domain.Message, now time.Time) (d time.Duration, ok bool) {
	exp, ok := m.ExpiryTime()
	if !ok {
		return 0, false
	}
	return exp.Sub(now), true
}

// Label renders the countdown for m: "" while unread, "Ns" with whole seconds
// left, or ExpiredLabel. Expired messages stay visible until the relay stops
// returning them.
func Label(m domain.Message, now time.Time) string {
	if m.ExpiresAt == nil {
		return ""
	}
	secs := *m.ExpiresAt - now.Unix()
	if secs <= 0 {
		return ExpiredLabel
	}
	return strconv.FormatInt(secs, 10) + "s"
}
