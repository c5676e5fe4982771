package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"bootcamps/pkg/session"

	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Resets a user's password from the command line. Every session the user
// holds is logged out.
func main() {
	email := flag.String("email", "", "email of the account to reset")
	password := flag.String("password", "", "new plaintext password (min 8 chars)")
	flag.Parse()
	if *email == "" || *password == "" {
		log.Fatal("--email and --password are required")
	}
	if err := session.CheckPasswordPolicy(*password); err != nil {
		log.Fatal(err)
	}
	_ = godotenv.Load()
	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		log.Fatal("DB_DSN not set in env")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	ctx := context.Background()
	auth := session.New(session.NewGormStore(db), session.Config{Secret: []byte("cli")})
	user, err := auth.UserByEmail(ctx, *email)
	if err != nil {
		log.Fatalf("user not found: %v", err)
	}
	if err := auth.SetPassword(ctx, user.ID, *password); err != nil {
		log.Fatalf("update failed: %v", err)
	}
	fmt.Printf("Password reset for %s; existing sessions were revoked\n", user.Email)
}
