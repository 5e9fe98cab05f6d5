//go:build !debug
// +build !debug

package main

// entryLog is a no-op in non-debug builds; build with -tags debug to enable.
func entryLog(format string, args ...interface{}) {}
