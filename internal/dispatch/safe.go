// Package dispatch runs user-supplied listener callbacks under a recover
// guard. Spec §5 requires channel-worker callbacks to be treated as
// untrusted: a panicking observer must be logged (and, if configured,
// reported to Sentry) without tearing down the worker goroutine that fired
// it.
package dispatch

import (
	"fmt"

	"github.com/getsentry/sentry-go"

	"machinetalk/internal/logx"
)

// Safe invokes fn, recovering and logging any panic instead of letting it
// unwind onto the caller's goroutine (a channel or timer worker).
func Safe(log logx.Logger, site string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("panic in %s listener: %v", site, r)
			log.Error().Str("site", site).Msg(err.Error())
			if sentry.CurrentHub().Client() != nil {
				sentry.CurrentHub().Recover(r)
			}
		}
	}()
	fn()
}

// Init configures the global Sentry hub. A zero-value dsn leaves reporting
// disabled; Safe still recovers and logs in that case.
func Init(dsn string) error {
	if dsn == "" {
		return nil
	}
	return sentry.Init(sentry.ClientOptions{Dsn: dsn})
}
