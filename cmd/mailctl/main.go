package main

import (
	"os"

	"github.com/dtroode/pgpmail-server/cmd/mailctl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
