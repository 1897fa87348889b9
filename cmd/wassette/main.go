// Command wassette is the runtime's entry point: a cobra root command with
// a single "serve" subcommand that resolves configuration, builds the
// lifecycle manager and tool surface, runs reboot recovery, and exposes the
// built-ins over a minimal stdio JSON-lines loop.
package main

import "os"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
