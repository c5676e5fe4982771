package main

import (
	"flag"
	"fmt"
	"os"

	"bootcamps/process/report"

	"github.com/joho/godotenv"
)

func main() {
	bootcamp := flag.Uint("bootcamp", 0, "bootcamp id to report on (0 = all)")
	list := flag.Bool("list", false, "list courses and reviews")
	fix := flag.Bool("fix", false, "rewrite stale averageCost/averageRating values")
	flag.Parse()

	_ = godotenv.Load()
	if os.Getenv("DB_DSN") == "" {
		fmt.Fprintln(os.Stderr, "DB_DSN not set; export DB_DSN and retry")
		os.Exit(2)
	}

	opts := report.Options{BootcampID: *bootcamp, List: *list, Fix: *fix}
	if err := report.RunReport(os.Stdout, report.MustDBFromEnv(), opts); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
