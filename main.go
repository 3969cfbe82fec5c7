package main

import (
	"embed"
	"log"

	"go.uber.org/zap"

	"pdf-to-word/internal/bootstrap"
)

//go:embed frontend/index.html
var appAssets embed.FS

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	app, err := bootstrap.NewWithAssets(appAssets, logger)
	if err != nil {
		logger.Fatal("bootstrap app", zap.Error(err))
	}

	if err := app.Run(); err != nil {
		logger.Fatal("run app", zap.Error(err))
	}
}
