// Copyright 2026 Vetpraxis Contributors
// Licensed under the EUPL-1.2

package main

import (
	"context"
	"log"
	"os"

	"codeberg.org/vetpraxis/vetpraxis/internal/config"
	"codeberg.org/vetpraxis/vetpraxis/internal/server"
	"github.com/urfave/cli/v3"
)

func main() {
	cmd := &cli.Command{
		Name:   "vetpraxis",
		Usage:  "Account backend for veterinary-clinic staff",
		Flags:  config.Flags(),
		Action: server.Run,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
