package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"

	"storydice-go/internal/config"
	"storydice-go/internal/controller"
	"storydice-go/internal/handler"
	"storydice-go/internal/service"
	"storydice-go/pkg/mcp"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	var configPath = flag.String("config", "app.yaml", "Path to configuration file")
	var modelDir = flag.String("modeldir", "", "Directory to store serialized models")
	flag.Parse()

	cfgZap := zap.NewProductionConfig()
	cfgZap.Level.SetLevel(zapcore.DebugLevel)
	cfgZap.OutputPaths = []string{"stdout", "all.log"}
	logger, err := cfgZap.Build()
	if err != nil {
		log.Fatal("Failed to initialize logger:", err)
	}

	defer logger.Sync()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	// Override model directory from command line if provided
	if *modelDir != "" {
		cfg.App.ModelDir = *modelDir
	}

	logger.Info("Configuration loaded successfully", zap.Any("config", cfg))

	storyService, err := service.NewStoryService(cfg.App.ModelDir, logger)
	if err != nil {
		logger.Fatal("Failed to initialize story service", zap.Error(err))
	}

	trainConfiguredCorpora(cfg, storyService, logger)

	storyController := controller.NewStoryController(storyService, logger)
	mcpServer := mcp.NewStoryDiceServer(storyService, logger)

	router := handler.SetupRouter(storyController, mcpServer, logger)

	logger.Info("Starting server", zap.Int("port", cfg.App.Port))
	if err := http.ListenAndServe(fmt.Sprintf(":%d", cfg.App.Port), router); err != nil {
		logger.Fatal("Failed to start server", zap.Error(err))
	}
}

// trainConfiguredCorpora builds a model for every corpus named in the config.
// An unreadable corpus is skipped, not fatal; the API can still train models.
func trainConfiguredCorpora(cfg *config.Config, storyService *service.StoryService, logger *zap.Logger) {
	ctx := context.Background()

	for _, corpus := range cfg.Corpora {
		text, err := os.ReadFile(corpus.Path)
		if err != nil {
			logger.Warn("Failed to read corpus",
				zap.String("corpus", corpus.Name),
				zap.String("path", corpus.Path),
				zap.Error(err))
			continue
		}

		_, err = storyService.Train(ctx, corpus.Name, []string{string(text)}, service.TrainOptions{
			Order:  cfg.Model.Order,
			Sides:  cfg.Model.DieSides,
			Policy: cfg.Model.Policy,
		})
		if err != nil {
			logger.Warn("Failed to train corpus",
				zap.String("corpus", corpus.Name),
				zap.Error(err))
		}
	}
}
