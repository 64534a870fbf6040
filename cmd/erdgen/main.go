package main

import (
	"fmt"
	"os"

	"erdgen/internal/erdgen"
)

func main() {
	if err := erdgen.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
