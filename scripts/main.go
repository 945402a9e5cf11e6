package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/subdesk/subdesk/scripts/internal"
)

// Command represents a script that can be run
type Command struct {
	Name        string
	Description string
	Run         func() error
}

var commands = []Command{
	{
		Name:        "seed-demo",
		Description: "Seed demo plans, customers and subscriptions",
		Run:         internal.SeedDemoData,
	},
}

func main() {
	var (
		listCommands bool
		cmdName      string
		random       bool
	)

	flag.BoolVar(&listCommands, "list", false, "List all available commands")
	flag.StringVar(&cmdName, "cmd", "", "Command to run")
	flag.BoolVar(&random, "random-plans", false, "Assign seeded customers a random plan")

	flag.Parse()

	if listCommands {
		fmt.Println("Available commands:")
		for _, cmd := range commands {
			fmt.Printf("  %-20s %s\n", cmd.Name, cmd.Description)
		}
		return
	}

	if cmdName == "" {
		log.Fatal("Please specify a command to run using -cmd flag. Use -list to see available commands.")
	}

	if random {
		os.Setenv("SEED_RANDOM_PLANS", "true")
	}

	for _, cmd := range commands {
		if cmd.Name == cmdName {
			if err := cmd.Run(); err != nil {
				log.Fatalf("Error running command %s: %v", cmdName, err)
			}
			return
		}
	}

	log.Fatalf("Unknown command: %s. Use -list to see available commands.", cmdName)
}
