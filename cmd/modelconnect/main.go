package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/syssam/modelconnect/internal/cli"
)

func main() {
	// A missing .env file is fine.
	_ = godotenv.Load()

	if err := cli.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
