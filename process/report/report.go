package report

import (
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"time"

	"bootcamps/models"
	"bootcamps/pkg/stats"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// MustDBFromEnv opens DB_DSN or exits.
func MustDBFromEnv() *gorm.DB {
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

// Options selects what RunReport prints.
type Options struct {
	BootcampID uint
	List       bool
	Fix        bool
}

// RunReport prints the stored and live aggregates of one bootcamp (or all of
// them), optionally lists their courses and reviews, and with Fix rewrites
// stale averages.
func RunReport(w io.Writer, gdb *gorm.DB, opts Options) error {
	var ids []uint
	if opts.BootcampID != 0 {
		ids = append(ids, opts.BootcampID)
	}
	sums, err := stats.Summarize(gdb, ids...)
	if err != nil {
		return fmt.Errorf("summarize: %w", err)
	}
	if len(sums) == 0 {
		fmt.Fprintln(w, "no bootcamps found")
		return nil
	}

	stale := 0
	for _, s := range sums {
		mark := ""
		if s.Stale() {
			mark = "  STALE"
			stale++
		}
		fmt.Fprintf(w, "bootcamp=%d %q courses=%d avg_cost=%s (live %s) reviews=%d avg_rating=%s (live %s)%s\n",
			s.BootcampID, s.Name, s.Courses, fmtAvg(s.AverageCost), fmtAvg(s.LiveCost),
			s.Reviews, fmtAvg(s.AverageRating), fmtAvg(s.LiveRating), mark)
		if opts.List {
			if err := listRows(w, gdb, s.BootcampID); err != nil {
				return err
			}
		}
	}

	if opts.Fix && stale > 0 {
		err := gdb.Transaction(func(tx *gorm.DB) error {
			for _, s := range sums {
				if !s.Stale() {
					continue
				}
				if err := stats.RecomputeAverageCost(tx, s.BootcampID); err != nil {
					return err
				}
				if err := stats.RecomputeAverageRating(tx, s.BootcampID); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("fix averages: %w", err)
		}
		fmt.Fprintf(w, "fixed %d stale bootcamp(s)\n", stale)
	}
	return nil
}

func listRows(w io.Writer, gdb *gorm.DB, bootcampID uint) error {
	var courses []models.Course
	if err := gdb.Where("bootcamp_id = ?", bootcampID).Order("id").Find(&courses).Error; err != nil {
		return fmt.Errorf("fetch courses: %w", err)
	}
	for _, c := range courses {
		fmt.Fprintf(w, "  course|%d|%s|%.2f|%s\n", c.ID, c.Title, c.Tuition, c.CreatedAt.Format(time.RFC3339))
	}
	var reviews []models.Review
	if err := gdb.Where("bootcamp_id = ?", bootcampID).Order("id").Find(&reviews).Error; err != nil {
		return fmt.Errorf("fetch reviews: %w", err)
	}
	for _, r := range reviews {
		fmt.Fprintf(w, "  review|%d|%s|%d|%s\n", r.ID, r.Title, r.Rating, r.CreatedAt.Format(time.RFC3339))
	}
	return nil
}

func fmtAvg(v *float64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v, 'f', 1, 64)
}
