// Package main provides the entry point for gbasim.
// gbasim is a cycle-counting Game Boy Advance ARM7TDMI simulator built on
// Akita.
//
// For the full CLI, use: go run ./cmd/gbasim
package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Println("gbasim - Game Boy Advance ARM7TDMI Simulator")
	fmt.Println("Built on Akita simulation framework")
	fmt.Println("")
	fmt.Println("Usage: gbasim [options] <cartridge.gba|program.elf>")
	fmt.Println("")
	fmt.Println("Options:")
	fmt.Println("  -bios           BIOS image to boot through")
	fmt.Println("  -cycles         Cycles to run")
	fmt.Println("  -frames         Display frames to run")
	fmt.Println("  -timing-config  Path to timing configuration JSON file")
	fmt.Println("  -fetch-cache    Profile instruction fetch locality")
	fmt.Println("  -v              Verbose output")
	fmt.Println("")
	fmt.Println("Run 'go run ./cmd/gbasim' for the full CLI.")

	if len(os.Args) > 1 {
		fmt.Println("\nNote: You provided arguments. Use 'go run ./cmd/gbasim' instead.")
	}
}
