//go:build !linux

package sysinfo

func totalRAM() uint64 { return 0 }
