package main

import (
	"os"

	"github.com/oremband/oremband/internal/app"
	"github.com/oremband/oremband/internal/commands"
	log "github.com/sirupsen/logrus"
)

func init() {
	level := os.Getenv("LOG_LEVEL")
	if level != "" {
		logrusLevel, err := log.ParseLevel(level)
		if err != nil {
			log.Fatal(err)
		}
		log.SetLevel(logrusLevel)
	} else {
		log.SetLevel(log.InfoLevel)
	}
}

func main() {
	if len(os.Args) > 1 && os.Args[1] == "hash-password" {
		if err := commands.HashPassword(os.Args[2:], os.Stdout); err != nil {
			log.Fatal(err)
		}
		return
	}

	application, err := app.NewApplication()
	if err != nil {
		log.Fatalf("failed to initialize application: %v", err)
	}
	if err := application.Run(); err != nil {
		log.Fatal(err)
	}
}
