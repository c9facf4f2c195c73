// Command roadmap edits the development roadmap and keeps the feature
// documents and source files that embed its rows in step.
package main

import (
	"fmt"
	"os"
)

func main() {
	root, a := newRootCmd()
	err := root.Execute()
	a.close()
	if err != nil {
		fmt.Fprintln(os.Stderr, "roadmap:", err)
	}
	os.Exit(exitCode(err))
}
