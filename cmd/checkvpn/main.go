package main

import (
	"fmt"
	"os"

	"github.com/MrSnakeDoc/checkvpn/internal/app"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "checkvpn: %v\n", err)
		os.Exit(app.ExitCode(err))
	}
}
