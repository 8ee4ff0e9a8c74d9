//go:build !unix && !windows

package platform

import (
	"fmt"
	"runtime"
)

func acquireLinkLock(_ string) (LinkLock, error) {
	return nil, fmt.Errorf("%w on %s", ErrLinkLockUnsupported, runtime.GOOS)
}
