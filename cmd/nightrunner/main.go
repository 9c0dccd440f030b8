package main

import (
	"errors"
	"io/fs"
	"log"

	"github.com/joho/godotenv"

	"nightrunner/internal/cli"
)

func main() {
	// The job container gets its settings from the environment; .env is for
	// local runs only.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("Error loading .env file: %v", err)
	}

	cli.Execute()
}
