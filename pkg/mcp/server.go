package mcp

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"storydice-go/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"
)

// StoryDiceServer exposes trained die-roll models as MCP tools.
type StoryDiceServer struct {
	server       *mcp.Server
	storyService *service.StoryService
	logger       *zap.Logger
	handler      *mcp.StreamableHTTPHandler
}

type GenerateStoryParams struct {
	Model     string `json:"model" jsonschema:"the name of the trained model to sample from"`
	Sentences int    `json:"sentences,omitempty" jsonschema:"number of sentences to generate"`
	StartWord string `json:"start_word,omitempty" jsonschema:"word to start the first sentence from"`
}

type DiceTableParams struct {
	Model   string `json:"model" jsonschema:"the name of the trained model"`
	Context string `json:"context,omitempty" jsonschema:"a single context key to show; all contexts when omitted"`
}

func NewStoryDiceServer(storyService *service.StoryService, logger *zap.Logger) *StoryDiceServer {
	server := &StoryDiceServer{
		storyService: storyService,
		logger:       logger,
	}

	mcpServer := mcp.NewServer(&mcp.Implementation{
		Name:    "StoryDice",
		Version: "1.0.0",
	}, nil)

	// Register the generateStory tool
	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "generateStory",
		Description: "Generate a short story by replaying a trained word-transition model with simulated die rolls",
	}, server.handleGenerateStory)

	// Register the getDiceTable tool
	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "getDiceTable",
		Description: "Show the die-roll transition table for a trained model, one roll-range line per next word",
	}, server.handleDiceTable)

	server.handler = mcp.NewStreamableHTTPHandler(func(req *http.Request) *mcp.Server {
		return mcpServer
	}, nil)

	server.server = mcpServer
	return server
}

func (s *StoryDiceServer) handleGenerateStory(ctx context.Context, req *mcp.CallToolRequest, args GenerateStoryParams) (*mcp.CallToolResult, any, error) {
	s.logger.Info("Handling generateStory request",
		zap.String("model", args.Model),
		zap.Int("sentences", args.Sentences))

	model, err := s.storyService.GetModel(args.Model)
	if err != nil {
		s.logger.Error("Model not found", zap.String("model", args.Model), zap.Error(err))
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf("Model not found: %s", args.Model)}},
		}, nil, nil
	}

	opts := service.GenerateOptions{Sentences: args.Sentences}
	if args.StartWord != "" {
		start := make([]string, model.Mapping.Order)
		for i := range start {
			start[i] = args.StartWord
		}
		opts.Start = start
	}

	result, err := s.storyService.Generate(ctx, args.Model, opts)
	if err != nil {
		s.logger.Error("Failed to generate story", zap.String("model", args.Model), zap.Error(err))
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf("Failed to generate story: %v", err)}},
		}, nil, nil
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: result.Story}},
	}, nil, nil
}

func (s *StoryDiceServer) handleDiceTable(ctx context.Context, req *mcp.CallToolRequest, args DiceTableParams) (*mcp.CallToolResult, any, error) {
	s.logger.Info("Handling getDiceTable request",
		zap.String("model", args.Model),
		zap.String("context", args.Context))

	model, err := s.storyService.GetModel(args.Model)
	if err != nil {
		s.logger.Error("Model not found", zap.String("model", args.Model), zap.Error(err))
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf("Model not found: %s", args.Model)}},
		}, nil, nil
	}

	text := ""
	if args.Context != "" {
		key := strings.ToLower(args.Context)
		assignments, ok := model.Mapping.Lookup(key)
		if !ok {
			return &mcp.CallToolResult{
				Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf("Context not found: %s", key)}},
			}, nil, nil
		}
		text = service.FormatContextTable(key, assignments)
	} else {
		text = service.FormatMapping(model.Mapping)
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}, nil, nil
}

// SetupHTTPRoutes mounts the MCP streamable HTTP handler on the main router.
func (s *StoryDiceServer) SetupHTTPRoutes(router *gin.Engine) {
	router.Any("/mcp", gin.WrapH(s.handler))
}
