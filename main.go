// Package main provides the entry point for tinygpu.
// tinygpu is a cycle-level simulator of a minimal SIMD GPU.
//
// For the full CLI, use: go run ./cmd/tinygpu
package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Println("tinygpu - minimal SIMD GPU simulator")
	fmt.Println("")
	fmt.Println("Usage: tinygpu [options] <kernel image>")
	fmt.Println("")
	fmt.Println("Options:")
	fmt.Println("  -demo      Run a built-in sample kernel (matadd, matmul)")
	fmt.Println("  -config    Path to device configuration JSON file")
	fmt.Println("  -threads   Override the kernel thread count")
	fmt.Println("  -v         Verbose output")
	fmt.Println("")
	fmt.Println("Run 'go run ./cmd/tinygpu' for the full CLI.")

	if len(os.Args) > 1 {
		fmt.Println("\nNote: You provided arguments. Use 'go run ./cmd/tinygpu' instead.")
	}
}
