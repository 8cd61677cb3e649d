package main

import (
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"

	"attendance-tracker/config"
	_ "attendance-tracker/docs"
	"attendance-tracker/pkg/paseto"
	"attendance-tracker/repository"
	"attendance-tracker/router"
	"attendance-tracker/seeder"

	_ "time/tzdata"
)

// @title Attendance Tracker API
// @version 1.0
// @description Employee attendance backend: session ledger, time aggregation, live roster, shift scheduling
//
// @contact.name API Support
//
// @license.name MIT
// @license.url https://opensource.org/licenses/MIT
//
// @host localhost:5000
// @BasePath /api
// @schemes http https
//
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the PASETO token.
//
// @tag.name Auth
// @tag.description Authentication endpoints
//
// @tag.name Users
// @tag.description User management endpoints
//
// @tag.name Attendance
// @tag.description Attendance ledger endpoints
//
// @tag.name Shifts
// @tag.description Shift scheduling endpoints
func main() {
	cfg := config.LoadConfig()

	if err := paseto.Init(cfg.PasetoSecret); err != nil {
		log.Fatalf("failed to initialize token maker: %v", err)
	}

	config.MongoConnect(cfg.MongoURI)
	config.InitDatabase()
	defer config.DisconnectDB()

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		log.Fatalf("invalid TIMEZONE %q: %v", cfg.Timezone, err)
	}

	seeder.SeedSuperAdmin(repository.NewUserRepository())

	app := fiber.New()
	config.SetupCORS(app)
	app.Use(logger.New())

	router.SetupRoutes(app, loc)

	log.Printf("Server running on port %s", cfg.Port)
	log.Printf("API Documentation: http://localhost:%s/docs/index.html", cfg.Port)
	log.Fatal(app.Listen(":" + cfg.Port))
}
