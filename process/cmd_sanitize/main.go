package main

import (
	"bootcamps/process/sanitize"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()
	sanitize.Run()
}
