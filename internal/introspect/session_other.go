//go:build !linux

package introspect

import "github.com/pkg/errors"

func attachProcess(pid int) (*Session, error) {
	return nil, errors.Wrapf(ErrAttachUnavailable, "pid %d: reading other processes is only supported on linux", pid)
}
