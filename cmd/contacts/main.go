package main

import (
	"log"
	"os"

	"github.com/contactbook/core/cmd/contacts/commands"
)

func main() {
	rootCmd := commands.NewRootCommand()

	// Execute root command
	if err := rootCmd.Execute(); err != nil {
		log.Printf("Command execution failed: %v", err)
		os.Exit(1)
	}
}
