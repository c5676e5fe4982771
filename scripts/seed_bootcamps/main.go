package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"bootcamps/models"
	"bootcamps/pkg/session"
	"bootcamps/pkg/stats"

	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// fixture is one bootcamp with its courses as stored in the seed file.
// Coordinates come from the file; nothing is geocoded.
type fixture struct {
	models.Bootcamp
	Courses []models.Course `json:"courses"`
}

func readFixtures(r io.Reader) ([]fixture, error) {
	var out []fixture
	if err := json.NewDecoder(r).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode fixtures: %w", err)
	}
	for i, f := range out {
		if f.Name == "" || f.Address == "" {
			return nil, fmt.Errorf("fixture %d: name and address are required", i)
		}
	}
	return out, nil
}

func mustDBFromEnv() *gorm.DB {
	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		log.Fatal("DB_DSN not set in env")
	}
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	return gdb
}

func main() {
	file := flag.String("file", "scripts/seed_bootcamps/testdata/bootcamps.json", "JSON file with bootcamps and their courses")
	owner := flag.String("owner", "", "email of the publisher that owns the seeded bootcamps")
	dry := flag.Bool("dry-run", true, "dry-run: don't write to DB")
	flag.Parse()
	if *owner == "" {
		log.Fatal("--owner is required")
	}
	_ = godotenv.Load()

	f, err := os.Open(*file)
	if err != nil {
		log.Fatalf("open fixtures: %v", err)
	}
	defer f.Close()
	fixtures, err := readFixtures(f)
	if err != nil {
		log.Fatal(err)
	}

	gdb := mustDBFromEnv()
	auth := session.New(session.NewGormStore(gdb), session.Config{Secret: []byte("cli")})
	user, err := auth.UserByEmail(context.Background(), *owner)
	if err != nil {
		log.Fatalf("owner not found: %v", err)
	}
	if user.Role == models.RoleUser {
		log.Fatalf("owner %s is a %s; bootcamps need a publisher or admin", user.Email, user.Role)
	}

	for _, fx := range fixtures {
		var existing models.Bootcamp
		if err := gdb.Where("name = ?", fx.Name).First(&existing).Error; err == nil {
			fmt.Printf("EXISTS: bootcamp id=%d name=%s\n", existing.ID, existing.Name)
			continue
		}
		if *dry {
			fmt.Printf("DRY: would create bootcamp %q with %d course(s)\n", fx.Name, len(fx.Courses))
			continue
		}
		err := gdb.Transaction(func(tx *gorm.DB) error {
			b := fx.Bootcamp
			b.ID, b.UserID, b.Courses, b.Reviews = 0, user.ID, nil, nil
			b.AverageCost, b.AverageRating = nil, nil
			if err := tx.Create(&b).Error; err != nil {
				return err
			}
			for _, c := range fx.Courses {
				c.ID, c.BootcampID, c.UserID = 0, b.ID, user.ID
				if err := tx.Create(&c).Error; err != nil {
					return err
				}
			}
			fmt.Printf("created bootcamp id=%d slug=%s courses=%d\n", b.ID, b.Slug, len(fx.Courses))
			return stats.RecomputeAverageCost(tx, b.ID)
		})
		if err != nil {
			log.Printf("seed %q failed: %v", fx.Name, err)
		}
	}
}
