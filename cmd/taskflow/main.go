// Command taskflow runs example pipelines and inspects their checkpoints.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
