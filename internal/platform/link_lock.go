// Package platform holds OS-specific helpers.
package platform

import (
	"errors"
	"strings"
)

// ErrLinkBusy indicates another process already owns the device link.
var ErrLinkBusy = errors.New("link already in use by another process")

var ErrLinkLockUnsupported = errors.New("link lock unsupported")

// LinkLock represents exclusive ownership of one device link.
type LinkLock interface {
	Release() error
}

// AcquireLinkLock takes a process-wide lock named after target (a serial
// port or host:port). It fails with ErrLinkBusy while another process
// holds it.
func AcquireLinkLock(target string) (LinkLock, error) {
	return acquireLinkLock(lockName(target))
}

func lockName(target string) string {
	return "mvcapture-link-" + normalizeLockComponent(target, "default")
}

func normalizeLockComponent(raw, fallback string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback
	}

	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
		case r == '-' || r == '_' || r == '.':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}

	normalized := strings.Trim(b.String(), "_-.")
	if normalized == "" {
		return fallback
	}

	return normalized
}
