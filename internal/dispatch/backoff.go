package dispatch

import (
	"time"

	"github.com/wappgate/wappgate/internal/provider"
)

// backoffPolicy picks the wait before the next send attempt. Failures
// matching the known provider defect get the longer cooldown; the web
// client needs more time to recover its internal state than an ordinary
// transient error does.
type backoffPolicy struct {
	retryDelay  time.Duration
	defectDelay time.Duration
}

func (p backoffPolicy) delayFor(err error) time.Duration {
	if provider.IsMarkedUnreadDefect(err) {
		return p.defectDelay
	}
	return p.retryDelay
}
