package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"zrx-settle/cmd"
)

func main() {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			fmt.Fprintf(os.Stderr, "Error loading .env file: %v\n", err)
			os.Exit(1)
		}
	}

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
