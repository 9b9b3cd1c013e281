package main

import (
	"github.com/joho/godotenv"

	"github.com/asikmydeen/home-calendar-dashboard-sub000/cmd"
)

// version will be set by goreleaser during build
var version = "dev"

func main() {
	// Load .env if present; credentials are usually kept there in dev.
	_ = godotenv.Load()

	cmd.SetVersion(version)
	cmd.Execute()
}
