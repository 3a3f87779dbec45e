// SPDX-License-Identifier: GPL-3.0-or-later
package main

import (
	"fmt"
	"os"
	"os/user"

	"dil/internal/config"
	"dil/repl"
)

func main() {
	currentUser, err := user.Current()
	if err != nil {
		fmt.Printf("Error getting current user: %v\n", err)
		return
	}

	cfg := config.Default()
	if path := os.Getenv("DIL_CONFIG"); path != "" {
		cfg, err = config.Load(path)
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
	}

	fmt.Printf("Welcome to the dil REPL, %s! Type :help for help.\n", currentUser.Username)
	repl.Start(os.Stdout, cfg)
}
