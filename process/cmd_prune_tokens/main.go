package main

import (
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

// Deletes expired session tokens and clears expired password-reset tokens.
// Tokens are also pruned per user at login; this sweeps users who never return.
func main() {
	dry := flag.Bool("dry-run", false, "only count what would be removed")
	flag.Parse()

	_ = godotenv.Load()
	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		log.Fatal("DB_DSN not set")
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer db.Close()

	if *dry {
		var tokens, resets int64
		if err := db.QueryRow(`SELECT count(*) FROM session_tokens WHERE expires_at <= now()`).Scan(&tokens); err != nil {
			log.Fatalf("count tokens: %v", err)
		}
		if err := db.QueryRow(`SELECT count(*) FROM users WHERE password_reset_expiry <= now()`).Scan(&resets); err != nil {
			log.Fatalf("count resets: %v", err)
		}
		fmt.Printf("dry-run: expired tokens=%d, expired resets=%d\n", tokens, resets)
		return
	}

	res1, err := db.Exec(`DELETE FROM session_tokens WHERE expires_at <= now()`)
	if err != nil {
		log.Fatalf("delete expired tokens: %v", err)
	}
	n1, _ := res1.RowsAffected()
	res2, err := db.Exec(`UPDATE users SET password_reset_token_hash = NULL, password_reset_expiry = NULL WHERE password_reset_expiry <= now()`)
	if err != nil {
		log.Fatalf("clear expired resets: %v", err)
	}
	n2, _ := res2.RowsAffected()
	fmt.Printf("prune done: tokens deleted=%d, resets cleared=%d\n", n1, n2)
}
