// Package llm asks an OpenAI-compatible chat completion endpoint to play
// automated seats.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/aaronzipp/avalon-alone/internal/decision"
	"github.com/aaronzipp/avalon-alone/internal/models"
)

// ErrMissingModel is returned when no model name is configured.
var ErrMissingModel = errors.New("model is required")

// Config holds the endpoint settings.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
}

// Provider implements decision.Provider and decision.Speaker.
type Provider struct {
	client      openai.Client
	model       string
	temperature float64
	logger      *slog.Logger
}

// New creates a provider. Retries are left to decision.WithRetry.
func New(cfg Config, logger *slog.Logger, opts ...option.RequestOption) (*Provider, error) {
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, fmt.Errorf("new llm provider: %w", ErrMissingModel)
	}
	if logger == nil {
		logger = slog.Default()
	}
	clientOpts := []option.RequestOption{option.WithMaxRetries(0)}
	if cfg.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(cfg.BaseURL))
	}
	clientOpts = append(clientOpts, opts...)

	return &Provider{
		client:      openai.NewClient(clientOpts...),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		logger:      logger,
	}, nil
}

var _ decision.Provider = (*Provider)(nil)
var _ decision.Speaker = (*Provider)(nil)

func (p *Provider) ProposeTeam(ctx context.Context, req decision.TeamRequest) ([]string, error) {
	content, err := p.complete(ctx, req.View, teamPrompt(req))
	if err != nil {
		return nil, err
	}
	return parseTeam(content, req.TeamSize, req.Candidates)
}

func (p *Provider) ProposeTeamVote(ctx context.Context, req decision.VoteRequest) (models.TeamVote, error) {
	content, err := p.complete(ctx, req.View, teamVotePrompt(req))
	if err != nil {
		return "", err
	}
	return parseTeamVote(content)
}

func (p *Provider) ProposeMissionVote(ctx context.Context, req decision.VoteRequest) (models.MissionVote, error) {
	content, err := p.complete(ctx, req.View, missionVotePrompt(req))
	if err != nil {
		return "", err
	}
	return parseMissionVote(content)
}

func (p *Provider) ProposeAssassinationTarget(ctx context.Context, req decision.AssassinationRequest) (string, error) {
	content, err := p.complete(ctx, req.View, assassinationPrompt(req))
	if err != nil {
		return "", err
	}
	return parseTarget(content, req.Candidates)
}

func (p *Provider) Speak(ctx context.Context, req decision.SpeechRequest) (string, error) {
	content, err := p.complete(ctx, req.View, speechPrompt(req))
	if err != nil {
		return "", err
	}
	return parseSpeech(content)
}

func (p *Provider) complete(ctx context.Context, view models.PlayerView, prompt string) (string, error) {
	resp, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(p.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt(view)),
			openai.UserMessage(prompt),
		},
		Temperature: openai.Float(p.temperature),
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w: %w", decision.ErrUnavailable, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion: %w: no choices", decision.ErrUnavailable)
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	p.logger.Debug("llm answer", "seat", view.Self.Name, "phase", view.Phase, "content", truncate(content))
	return content, nil
}
