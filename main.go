// The main package for the summarizer executable.
package main

import (
	"github.com/JakeFAU/article-summarizer/cmd"
)

// main defers all execution to the Cobra CLI.
func main() {
	cmd.Execute()
}
