// Command parlance is the entry point for the parlance language-learning
// server and its one-shot tools.
package main

import "os"

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
