package controller

import (
	"errors"
	"net/http"

	"storydice-go/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type StoryController struct {
	storyService *service.StoryService
	logger       *zap.Logger
}

func NewStoryController(storyService *service.StoryService, logger *zap.Logger) *StoryController {
	return &StoryController{
		storyService: storyService,
		logger:       logger,
	}
}

type TrainRequest struct {
	Name     string   `json:"name" binding:"required"`
	Texts    []string `json:"texts" binding:"required"`
	Order    int      `json:"order"`
	DieSides int      `json:"die_sides"`
	Policy   string   `json:"policy"`
	Override bool     `json:"override"`
}

func (sc *StoryController) Train(c *gin.Context) {
	var request TrainRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		sc.logger.Error("Invalid request payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request payload",
			"details": err.Error(),
		})
		return
	}
	if request.Order == 0 {
		request.Order = 1
	}
	if request.DieSides == 0 {
		request.DieSides = 6
	}

	sc.logger.Info("Training model",
		zap.String("name", request.Name),
		zap.Int("texts", len(request.Texts)))

	model, err := sc.storyService.Train(c.Request.Context(), request.Name, request.Texts, service.TrainOptions{
		Order:    request.Order,
		Sides:    request.DieSides,
		Policy:   request.Policy,
		Override: request.Override,
	})
	if err != nil {
		sc.logger.Error("Failed to train model",
			zap.String("name", request.Name),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to train model",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"name":      model.Name,
		"order":     model.Order,
		"die_sides": model.Sides,
		"policy":    model.Policy,
		"contexts":  model.Mapping.Len(),
	})
}

func (sc *StoryController) GetTable(c *gin.Context) {
	name := c.Param("name")

	model, err := sc.storyService.GetModel(name)
	if err != nil {
		sc.logger.Error("Model not found", zap.String("name", name), zap.Error(err))
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "Model not found",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, service.EncodeMapping(model.Mapping))
}

type GenerateRequest struct {
	Name      string   `json:"name" binding:"required"`
	Start     []string `json:"start"`
	Sentences int      `json:"sentences"`
	Seed      *int64   `json:"seed"`
	MaxSteps  int      `json:"max_steps"`
}

func (sc *StoryController) Generate(c *gin.Context) {
	var request GenerateRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		sc.logger.Error("Invalid request payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request payload",
			"details": err.Error(),
		})
		return
	}

	sc.logger.Info("Generating story",
		zap.String("name", request.Name),
		zap.Int("sentences", request.Sentences))

	result, err := sc.storyService.Generate(c.Request.Context(), request.Name, service.GenerateOptions{
		Start:     request.Start,
		Sentences: request.Sentences,
		Seed:      request.Seed,
		MaxSteps:  request.MaxSteps,
	})
	if err != nil {
		sc.logger.Error("Failed to generate story",
			zap.String("name", request.Name),
			zap.Error(err))
		status := http.StatusInternalServerError
		if errors.Is(err, service.ErrNoContexts) || errors.Is(err, service.ErrNoTerminal) {
			status = http.StatusUnprocessableEntity
		}
		c.JSON(status, gin.H{
			"error":   "Failed to generate story",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, result)
}

func (sc *StoryController) DeleteModel(c *gin.Context) {
	name := c.Param("name")

	if err := sc.storyService.DeleteModel(name); err != nil {
		sc.logger.Error("Failed to delete model", zap.String("name", name), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to delete model",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": name})
}
