package main

import (
	"fmt"
	"os"

	"bootcamps/process/inspect"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()
	missing, err := inspect.RunInspectFKs(os.Stdout, os.Getenv("DB_DSN"))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if len(missing) > 0 {
		fmt.Println("Missing cascading foreign keys:")
		for _, fk := range missing {
			fmt.Printf("- %s(%s) -> %s\n", fk.Table, fk.Column, fk.RefTable)
		}
		os.Exit(1)
	}
	fmt.Println("all expected foreign keys cascade")
}
