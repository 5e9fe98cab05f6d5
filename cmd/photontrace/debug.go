//go:build debug
// +build debug

package main

import "fmt"

func entryLog(format string, args ...interface{}) {
	fmt.Printf("[DEBUG][cmd] "+format+"\n", args...)
}
