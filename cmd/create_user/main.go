package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"bootcamps/models"
	"bootcamps/pkg/apperr"
	"bootcamps/pkg/session"

	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if len(os.Args) < 4 {
		fmt.Println("usage: go run ./cmd/create_user <name> <email> <password> [role]")
		os.Exit(2)
	}
	name, email, password := os.Args[1], os.Args[2], os.Args[3]
	role := models.RoleUser
	if len(os.Args) > 4 {
		role = models.Role(os.Args[4])
	}

	_ = godotenv.Load()
	dsn := os.Getenv("DB_DSN")
	if strings.TrimSpace(dsn) == "" {
		log.Fatal("DB_DSN not set in environment")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to open db: %v", err)
	}

	cost := session.DefaultBcryptCost
	if v := os.Getenv("BCRYPT_COST"); v != "" {
		if cost, err = strconv.Atoi(v); err != nil {
			log.Fatalf("BCRYPT_COST: %v", err)
		}
	}
	// Only password hashing is used here; the secret never signs anything.
	auth := session.New(session.NewGormStore(db), session.Config{Secret: []byte("cli"), BcryptCost: cost})

	user := &models.User{Name: name, Email: email, Role: role}
	if err := auth.CreateUser(context.Background(), user, password); err != nil {
		if apperr.KindOf(err) == apperr.KindConflict {
			fmt.Printf("user %s already exists\n", session.NormalizeEmail(email))
			os.Exit(0)
		}
		log.Fatalf("failed to create user: %v", err)
	}
	fmt.Printf("created %s %s id=%d\n", user.Role, user.Email, user.ID)
}
