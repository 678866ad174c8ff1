package config

import (
	"log/slog"

	"github.com/caarlos0/env/v11"
)

func Load() App {
	var cfg App
	if err := env.Parse(&cfg); err != nil {
		slog.Error("config parse failed", "err", err)
		panic(err)
	}
	return cfg
}
