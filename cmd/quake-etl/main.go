package main

import (
	"github.com/joho/godotenv"

	"github.com/mr1hm/quake-etl/internal/cmd"
	"github.com/mr1hm/quake-etl/internal/logging"
)

func main() {
	_ = godotenv.Load()

	if err := cmd.Execute(); err != nil {
		logging.Fatalf("quake-etl: %v", err)
	}
}
