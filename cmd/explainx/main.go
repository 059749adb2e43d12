package main

import (
	"os"

	_ "github.com/joho/godotenv/autoload"
)

// @title ExplainX Cron API
// @version 1.0
// @description Admin API of the ExplainX report job runner.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Bearer <ADMIN_API_KEY>
func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
