package main

import (
	"log"

	"syncboard/internal/config"
	"syncboard/internal/server"
)

func main() {
	cfg := config.Load()

	s, err := server.Init(cfg)
	if err != nil {
		log.Fatalf("Server initialization failed: %v", err)
	}

	s.Run()
}
