// Command onmcombine merges the full ONM survey export, its weights file and
// every ad-hoc extract found next to them into one CSV.
//
// With no arguments it reads ../data and writes <timestamp>_onm-combined.csv
// into the working directory, then prints that path on stdout.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "onmcombine:", err)
		os.Exit(1)
	}
}
