package seeder

import (
	"context"
	"log"
	"os"
	"time"

	"attendance-tracker/models"
	"attendance-tracker/pkg/password"
	"attendance-tracker/repository"
)

// SeedSuperAdmin creates the bootstrap SuperAdmin account when no user
// with the configured email exists yet. Credentials come from
// SUPERADMIN_EMAIL / SUPERADMIN_PASSWORD; without them seeding is skipped.
func SeedSuperAdmin(userRepo *repository.UserRepository) {
	email := os.Getenv("SUPERADMIN_EMAIL")
	plain := os.Getenv("SUPERADMIN_PASSWORD")
	if email == "" || plain == "" {
		log.Println("SUPERADMIN_EMAIL/SUPERADMIN_PASSWORD not set, skipping admin seeding")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	existing, err := userRepo.FindUserByEmail(ctx, email)
	if err == nil && existing != nil {
		log.Println("SuperAdmin account already exists, skipping seeding")
		return
	}

	hashed, err := password.HashPassword(plain)
	if err != nil {
		log.Printf("failed to hash seed password: %v", err)
		return
	}

	name := os.Getenv("SUPERADMIN_NAME")
	if name == "" {
		name = "Super Admin"
	}

	admin := &models.User{
		Name:     name,
		Email:    email,
		Password: hashed,
		Role:     models.RoleSuperAdmin,
	}

	if _, err := userRepo.CreateUser(ctx, admin); err != nil {
		log.Printf("failed to seed SuperAdmin account: %v", err)
		return
	}

	log.Printf("SuperAdmin account (%s) seeded", email)
}
