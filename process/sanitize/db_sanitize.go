package sanitize

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"regexp"
	"strings"
	"time"

	"bootcamps/models"
	"bootcamps/pkg/session"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// DefaultTables are the application tables, children first.
const DefaultTables = "reviews,courses,bootcamps,session_tokens,users"

var nameRE = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Run executes the db_sanitize CLI behavior. Exported so a small cmd/main can call it.
func Run() {
	var (
		dryRun = flag.Bool("dry-run", true, "Don't perform destructive actions; show what would be done")
		yes    = flag.Bool("yes", false, "Confirm destructive action (required to actually truncate)")
		reseed = flag.Bool("reseed", false, "After truncation, recreate the ADMIN_EMAIL/ADMIN_PASSWORD account")
		tables = flag.String("tables", DefaultTables, "Comma-separated list of tables to truncate")
	)
	flag.Parse()

	if os.Getenv("DB_DSN") == "" {
		log.Fatal("DB_DSN must be set to run db_sanitize")
	}
	gdb := mustInitDBFromEnv()

	existing := []string{}
	for _, t := range TableNames(*tables) {
		var cnt int64
		if err := gdb.Raw("SELECT count(*) FROM pg_tables WHERE schemaname = 'public' AND tablename = ?", t).Scan(&cnt).Error; err != nil {
			log.Fatalf("failed to query pg_tables for %s: %v", t, err)
		}
		if cnt > 0 {
			existing = append(existing, t)
		} else {
			log.Printf("info: table %s not found, skipping", t)
		}
	}
	if len(existing) == 0 {
		log.Println("no requested tables present in the database; nothing to do")
		return
	}

	fmt.Println("Tables considered for truncation:")
	for _, t := range existing {
		fmt.Printf(" - %s\n", t)
	}

	if *dryRun {
		fmt.Println("dry-run enabled; no changes will be made. Use --dry-run=false --yes to execute.")
		return
	}
	if !*yes {
		fmt.Println("Destructive operation. Pass --yes to confirm execution. Aborting.")
		return
	}

	stmt := TruncateStatement(existing)
	log.Printf("Executing: %s", stmt)
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := gdb.WithContext(ctx).Exec(stmt).Error; err != nil {
		log.Fatalf("truncate failed: %v", err)
	}
	log.Println("Truncate completed.")

	if *reseed {
		if err := reseedAdmin(gdb, os.Getenv("ADMIN_EMAIL"), os.Getenv("ADMIN_PASSWORD")); err != nil {
			log.Fatalf("reseed failed: %v", err)
		}
	}
}

// TableNames splits a comma-separated list and drops anything that is not a
// plain identifier.
func TableNames(list string) []string {
	out := []string{}
	for _, p := range strings.Split(list, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if !nameRE.MatchString(p) {
			log.Printf("warning: skipping invalid table name '%s'", p)
			continue
		}
		out = append(out, p)
	}
	return out
}

// TruncateStatement quotes the (already validated) identifiers.
func TruncateStatement(tables []string) string {
	quoted := make([]string, 0, len(tables))
	for _, t := range tables {
		quoted = append(quoted, fmt.Sprintf("%q", t))
	}
	return fmt.Sprintf("TRUNCATE TABLE %s RESTART IDENTITY CASCADE", strings.Join(quoted, ", "))
}

func reseedAdmin(gdb *gorm.DB, email, password string) error {
	if email == "" || password == "" {
		return fmt.Errorf("ADMIN_EMAIL and ADMIN_PASSWORD must be set to reseed")
	}
	auth := session.New(session.NewGormStore(gdb), session.Config{Secret: []byte("cli")})
	admin := &models.User{Name: "Administrator", Email: email, Role: models.RoleAdmin}
	if err := auth.CreateUser(context.Background(), admin, password); err != nil {
		return fmt.Errorf("failed to create admin user: %w", err)
	}
	log.Printf("reseeded admin %s (id=%d)", admin.Email, admin.ID)
	return nil
}

// mustInitDBFromEnv is a light DB initializer used by this CLI.
func mustInitDBFromEnv() *gorm.DB {
	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		log.Fatalf("DB_DSN must be set in environment to run this tool")
	}
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	return gdb
}
