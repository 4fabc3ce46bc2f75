// Command bridgectl runs the bridge operations from a terminal, with upload
// jobs processed by an in-process worker pool.
package main

import (
	"os"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		os.Exit(1)
	}
}

// run executes one command line and releases the bridge afterwards, so
// queued uploads finish before the process exits.
func run(args []string) error {
	root, c := newRootCmd()
	root.SetArgs(args)
	err := root.Execute()
	if cerr := c.close(); err == nil {
		err = cerr
	}
	return err
}
