//go:build linux

package sysinfo

import (
	"log/slog"

	"golang.org/x/sys/unix"
)

func totalRAM() uint64 {
	var si unix.Sysinfo_t
	if err := unix.Sysinfo(&si); err != nil {
		slog.Debug("sysinfo failed", "error", err)
		return 0
	}
	return uint64(si.Totalram) * uint64(si.Unit)
}
