package main

import (
	"context"
	"fmt"

	"storydice-go/internal/service"

	"go.uber.org/zap"
)

// Sample texts with diverse transitions and sentence endings
var sampleTexts = []string{
	"The camper was happy to make art and the camper was tired of swimming. The camper was excited to hike.",
	"The leader was happy to sleep and the leader was tired of art. The leader ran from bees.",
	"The weather was sunny. The weather was rainy. The weather was cloudy. The camper ran from friends.",
	"The food tastes good. The food tastes salty. The food tastes sweet. The food tastes fresh.",
	"The river is deep. The river is shallow. The river is refreshing. The river tastes like worms.",
	"The river tastes like fish.",
}

func main() {
	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	ctx := context.Background()

	storyService, err := service.NewStoryService("./dice_models", logger)
	if err != nil {
		logger.Fatal("Failed to create story service", zap.Error(err))
	}

	model, err := storyService.Train(ctx, "camp", sampleTexts, service.TrainOptions{
		Order:    1,
		Sides:    6,
		Override: true,
	})
	if err != nil {
		logger.Fatal("Failed to train model", zap.Error(err))
	}

	fmt.Println(service.FormatMapping(model.Mapping))

	fmt.Println("SAMPLE GENERATED STORIES:")
	fmt.Println("==============================")
	for i := 0; i < 3; i++ {
		seed := int64(i + 1)
		result, err := storyService.Generate(ctx, "camp", service.GenerateOptions{
			Start:     []string{"the"},
			Sentences: 2,
			Seed:      &seed,
		})
		if err != nil {
			logger.Fatal("Failed to generate story", zap.Error(err))
		}
		fmt.Printf("Story %d: %s\n", i+1, result.Story)
	}
}
