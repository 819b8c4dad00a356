package main

import (
	"biblioteca/internal/config"
	"biblioteca/internal/entrypoint"
)

// Version information - set at build time via ldflags
var Version = "dev"

func main() {
	cfg := config.NewConfig()
	entrypoint.Run(cfg, Version)
}
