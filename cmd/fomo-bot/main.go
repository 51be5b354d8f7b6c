package main

import (
	"github.com/joho/godotenv"

	"github.com/savfrmda3/fomo-bot/internal/cli"
)

func main() {
	// Secrets like auth.session_data are commonly kept in a local .env file;
	// its absence is not an error.
	_ = godotenv.Load()

	cli.Execute()
}
