package router

import (
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"

	"attendance-tracker/config/middleware"
	_ "attendance-tracker/docs"
	"attendance-tracker/handlers"
	"attendance-tracker/models"
	"attendance-tracker/repository"
	"attendance-tracker/service"
)

func SetupRoutes(app *fiber.App, loc *time.Location) {
	log.Println("Registering application routes...")

	// Repositories
	userRepo := repository.NewUserRepository()
	attendanceRepo := repository.NewAttendanceRepository()
	shiftRepo := repository.NewShiftRepository()

	// Services
	attendanceService := service.NewAttendanceService(attendanceRepo, userRepo, loc)

	// Handlers
	authHandler := handlers.NewAuthHandler(userRepo)
	userHandler := handlers.NewUserHandler(userRepo)
	attendanceHandler := handlers.NewAttendanceHandler(attendanceService, attendanceRepo)
	shiftHandler := handlers.NewShiftHandler(shiftRepo, userRepo)

	// Health check & Docs
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "Attendance Tracker API",
			"status":  "running",
			"docs":    "/docs/index.html",
		})
	})
	app.Get("/docs/*", swagger.HandlerDefault)

	api := app.Group("/api")

	// Authentication routes
	authGroup := api.Group("/auth")
	authGroup.Post("/login", authHandler.Login)
	authGroup.Post("/register",
		middleware.AuthMiddleware(),
		middleware.RequireRoles(models.RoleAdmin, models.RoleSuperAdmin),
		authHandler.Register)
	authGroup.Post("/change-password", middleware.AuthMiddleware(), authHandler.ChangePassword)
	authGroup.Post("/logout", middleware.AuthMiddleware(), authHandler.Logout)

	// User routes
	userGroup := api.Group("/users", middleware.AuthMiddleware())
	userGroup.Get("/",
		middleware.RequireRoles(models.RoleTeamLead, models.RoleAdmin, models.RoleSuperAdmin),
		userHandler.GetUsers)
	userGroup.Put("/:id/role",
		middleware.RequireRoles(models.RoleSuperAdmin),
		userHandler.UpdateUserRole)
	userGroup.Put("/:id/password",
		middleware.RequireRoles(models.RoleTeamLead, models.RoleAdmin, models.RoleSuperAdmin),
		userHandler.ResetPassword)
	userGroup.Put("/:id",
		middleware.RequireRoles(models.RoleAdmin, models.RoleSuperAdmin),
		userHandler.UpdateUserDetails)
	userGroup.Delete("/:id",
		middleware.RequireRoles(models.RoleSuperAdmin),
		userHandler.DeleteUser)

	// Attendance routes
	attendanceGroup := api.Group("/attendance", middleware.AuthMiddleware())
	attendanceGroup.Post("/check-in", attendanceHandler.CheckIn)
	attendanceGroup.Post("/check-out", attendanceHandler.CheckOut)
	attendanceGroup.Get("/status", attendanceHandler.GetStatus)
	attendanceGroup.Get("/history", attendanceHandler.GetHistory)
	attendanceGroup.Get("/live-status", attendanceHandler.GetLiveStatus)
	attendanceGroup.Post("/scan", attendanceHandler.ScanQRCode)

	moderatorAttendanceGroup := attendanceGroup.Group("/",
		middleware.RequireRoles(models.RoleTeamLead, models.RoleAdmin, models.RoleSuperAdmin))
	moderatorAttendanceGroup.Get("/history/:userId", attendanceHandler.GetUserHistory)
	moderatorAttendanceGroup.Post("/approve-session", attendanceHandler.ApproveSession)

	adminAttendanceGroup := attendanceGroup.Group("/",
		middleware.RequireRoles(models.RoleAdmin, models.RoleSuperAdmin))
	adminAttendanceGroup.Put("/:id/day-status", attendanceHandler.OverrideDayStatus)
	adminAttendanceGroup.Get("/generate-qr", attendanceHandler.GenerateQRCode)

	// Shift routes
	shiftGroup := api.Group("/shifts", middleware.AuthMiddleware())
	shiftGroup.Get("/my", shiftHandler.GetMyShifts)

	leadShiftGroup := shiftGroup.Group("/",
		middleware.RequireRoles(models.RoleTeamLead, models.RoleAdmin, models.RoleSuperAdmin))
	leadShiftGroup.Post("/", shiftHandler.AssignShift)
	leadShiftGroup.Post("/weekly", shiftHandler.AssignWeeklyShifts)
	leadShiftGroup.Get("/team", shiftHandler.GetTeamShifts)

	log.Println("All routes registered.")
	log.Println("Swagger documentation available at: /docs/index.html")
}
