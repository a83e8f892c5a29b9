// Command trs rewrites, evaluates, scores and samples term rewriting systems
// written in the textual syntax of package syntax.
//
// Usage:
//
//	trs rewrite FILE TERM
//	trs step FILE TERM [--all]
//	trs trace FILE START [TARGET]
//	trs score FILE DATA
//	trs sample term|rule|trs --signature "S/0 K/0 ./2"
//	trs version
package main

import "os"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
