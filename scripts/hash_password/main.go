package main

import (
	"fmt"
	"os"

	"bootcamps/pkg/session"

	"golang.org/x/crypto/bcrypt"
)

// Prints a bcrypt hash for manual fixes to users.hashed_password.
func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: go run ./scripts/hash_password <password>")
		os.Exit(2)
	}
	pw := os.Args[1]
	if err := session.CheckPasswordPolicy(pw); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	h, err := bcrypt.GenerateFromPassword([]byte(pw), session.DefaultBcryptCost)
	if err != nil {
		panic(err)
	}
	fmt.Println(string(h))
}
