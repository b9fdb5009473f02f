package main

import (
	"os"

	"github.com/Rahul23Kumar58Yadav/Excel-Analytics-Dashboard-sub001/internal/cli/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
