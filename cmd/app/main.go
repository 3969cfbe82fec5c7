package main

import (
	"log"

	"go.uber.org/zap"

	"pdf-to-word/internal/bootstrap"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	app, err := bootstrap.New(logger)
	if err != nil {
		logger.Fatal("bootstrap app", zap.Error(err))
	}

	if err := app.Run(); err != nil {
		logger.Fatal("run app", zap.Error(err))
	}
}
