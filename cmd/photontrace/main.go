package main

import (
	"fmt"
	"os"

	"github.com/lukaszgryglicki/photontrace/internal/photontrace"
)

func main() {
	photontrace.Debug = os.Getenv("DEBUG") != ""

	cfg := "scenes/config.json"
	if len(os.Args) > 1 {
		cfg = os.Args[1]
	}
	entryLog("starting run with config %s", cfg)
	if err := photontrace.Run(cfg); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}
