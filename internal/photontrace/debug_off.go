//go:build !debug
// +build !debug

package photontrace

// DebugLog is a no-op in non-debug builds; build with -tags debug to enable.
func DebugLog(format string, args ...interface{}) {}

// DebugLogOnce is a no-op in non-debug builds.
func DebugLogOnce(format string, args ...interface{}) {}
