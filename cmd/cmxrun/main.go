// Command cmxrun drives the runtime from the command line: it runs a
// synthetic dense network through the scheduler and memory pools, prints
// pool layouts and benchmarks concurrent submission.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
