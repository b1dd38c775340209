// Package sysinfo reads basic host facts reported by the status endpoints.
package sysinfo

import "runtime"

// Info is a point-in-time view of the host.
type Info struct {
	CPUCores      int
	TotalRAMBytes uint64
}

// TotalRAMGB converts total memory to decimal gigabytes.
func (i Info) TotalRAMGB() float64 {
	return float64(i.TotalRAMBytes) / 1e9
}

// Read returns the logical CPU count and total physical memory. Memory is 0
// on platforms where it cannot be determined.
func Read() Info {
	return Info{
		CPUCores:      runtime.NumCPU(),
		TotalRAMBytes: totalRAM(),
	}
}
