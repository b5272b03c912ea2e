package main

import (
	"fmt"
	"os"

	"github.com/guillotmd/EyeDropIt/internal/app"
)

func main() {
	if err := app.Run(os.Stdout, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
