package main

import (
	"os"

	"github.com/CodeMonkeyCybersecurity/verdict/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
