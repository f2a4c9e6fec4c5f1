// Command bellfinder runs maintenance tasks against the tower directory and
// the visit log without starting the HTTP server.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
