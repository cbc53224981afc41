// Package main provides the installer CLI application.
// It resolves the newest build, requests a signature and prints the install link.
package main

import (
	"log"
	"os"

	"github.com/prostore-ios/installer/internal/cli"
)

func main() {
	app := cli.NewApp()

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
