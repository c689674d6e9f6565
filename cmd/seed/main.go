package main

import (
	"log"

	"studiobook/internal/config"
	"studiobook/internal/database"
	"studiobook/internal/repository"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal(err)
	}
	if err := repository.Migrate(db); err != nil {
		log.Fatal(err)
	}
	if err := repository.Seed(db); err != nil {
		log.Fatal(err)
	}
	log.Println("seed data loaded")
}
