// Package ai implements the AI collaborator on the OpenAI chat completions
// API. Every call asks for a JSON object and decodes it into the models
// types.
package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"homematch/models"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const systemPrompt = "You help two people search for a home together. " +
	"Answer only with a single JSON object matching the requested shape. " +
	"Criteria fields: offerType (\"buy\" or \"rent\"), location, priceFrom, priceTo, roomsFrom, roomsTo, " +
	"livingSpaceFrom, livingSpaceTo, radius (km), features (list of strings), onlyWithPrice, freeText. " +
	"Weights use the same field names with integer importance from 1 to 5. Omit unknown fields."

// Config configures the advisor.
type Config struct {
	APIKey string
	Model  string
	// BaseURL overrides the API endpoint, e.g. for a proxy.
	BaseURL string
	// RequestsPerSecond caps the call rate. Zero means unlimited.
	RequestsPerSecond float64
}

// OpenAIAdvisor implements services.Advisor.
type OpenAIAdvisor struct {
	client  *openai.Client
	model   string
	limiter *rate.Limiter
	logger  *zap.Logger
}

func NewOpenAIAdvisor(cfg Config, logger *zap.Logger) (*OpenAIAdvisor, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("OpenAI API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = openai.GPT4oMini
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	logger.Info("🤖 OpenAI advisor ready", zap.String("model", cfg.Model), zap.Float64("rps", cfg.RequestsPerSecond))
	return &OpenAIAdvisor{
		client:  openai.NewClientWithConfig(clientCfg),
		model:   cfg.Model,
		limiter: limiter,
		logger:  logger,
	}, nil
}

// complete sends prompt and decodes the JSON answer into out.
func (a *OpenAIAdvisor) complete(ctx context.Context, operation, prompt string, out any) error {
	if err := a.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%s: rate limiter: %w", operation, err)
	}

	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: a.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
		Temperature:    0.2,
	})
	if err != nil {
		a.logger.Error("❌ OpenAI call failed", zap.String("operation", operation), zap.Error(err))
		return fmt.Errorf("%s: OpenAI API call failed: %w", operation, err)
	}
	if len(resp.Choices) == 0 {
		return fmt.Errorf("%s: OpenAI returned no choices", operation)
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(content), out); err != nil {
		a.logger.Warn("⚠️ OpenAI returned malformed JSON", zap.String("operation", operation), zap.Error(err))
		return fmt.Errorf("%s: decode response: %w", operation, err)
	}
	a.logger.Debug("OpenAI call completed",
		zap.String("operation", operation),
		zap.Int("total_tokens", resp.Usage.TotalTokens),
		zap.String("finish_reason", string(resp.Choices[0].FinishReason)))
	return nil
}

func marshalIndent(v any) string {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(raw)
}

// ExtractPreferences turns a free-text wish list into criteria.
func (a *OpenAIAdvisor) ExtractPreferences(ctx context.Context, freeText string, existing *models.Criteria) (*models.Proposal, error) {
	var b strings.Builder
	b.WriteString("Extract structured search criteria and weights from this description.\n")
	if existing != nil {
		b.WriteString("Refine these current criteria rather than starting over:\n")
		b.WriteString(marshalIndent(existing))
		b.WriteString("\n")
	}
	b.WriteString("Description:\n")
	b.WriteString(freeText)
	b.WriteString("\nRespond as {\"criteria\": {...}, \"weights\": {...}, \"explanation\": \"...\"}.")

	var proposal models.Proposal
	if err := a.complete(ctx, "extract_preferences", b.String(), &proposal); err != nil {
		return nil, err
	}
	sanitizeProposal(&proposal)
	return &proposal, nil
}

// ScoreCompatibility rates how well two preference sets fit together.
func (a *OpenAIAdvisor) ScoreCompatibility(ctx context.Context, x, y models.PreferenceSet) (models.CompatibilityScore, error) {
	prompt := "Rate from 0 to 100 how compatible these two people's home search preferences are, " +
		"and explain the main agreements and conflicts in two sentences.\n" +
		"Person A:\n" + marshalIndent(x) + "\nPerson B:\n" + marshalIndent(y) +
		"\nRespond as {\"score\": <int>, \"comment\": \"...\"}."

	var score models.CompatibilityScore
	if err := a.complete(ctx, "score_compatibility", prompt, &score); err != nil {
		return models.CompatibilityScore{}, err
	}
	if score.Score < 0 || score.Score > 100 {
		return models.CompatibilityScore{}, fmt.Errorf("score_compatibility: score %d out of range", score.Score)
	}
	return score, nil
}

// SuggestCompromise proposes criteria both people can accept.
func (a *OpenAIAdvisor) SuggestCompromise(ctx context.Context, x, y models.PreferenceSet) (*models.Proposal, error) {
	prompt := "Propose one compromise search that both people could accept, respecting each " +
		"person's highest-weighted criteria where possible.\n" +
		"Person A:\n" + marshalIndent(x) + "\nPerson B:\n" + marshalIndent(y) +
		"\nRespond as {\"criteria\": {...}, \"weights\": {...}, \"explanation\": \"...\"}."

	var proposal models.Proposal
	if err := a.complete(ctx, "suggest_compromise", prompt, &proposal); err != nil {
		return nil, err
	}
	sanitizeProposal(&proposal)
	if proposal.Criteria.OfferType == "" {
		proposal.Criteria.OfferType = x.Criteria.OfferType
	}
	return &proposal, nil
}

// sanitizeProposal drops values the model should not have produced:
// unknown offer types, negative numbers and weights outside 1-5.
func sanitizeProposal(p *models.Proposal) {
	c := &p.Criteria
	if c.OfferType != models.OfferTypeBuy && c.OfferType != models.OfferTypeRent {
		c.OfferType = ""
	}
	for _, v := range []**float64{&c.PriceFrom, &c.PriceTo, &c.RoomsFrom, &c.RoomsTo, &c.LivingSpaceFrom, &c.LivingSpaceTo, &c.Radius} {
		if *v != nil && **v < 0 {
			*v = nil
		}
	}
	if c.Location != nil && strings.TrimSpace(*c.Location) == "" {
		c.Location = nil
	}

	wt := &p.Weights
	for _, v := range []**int{&wt.Location, &wt.PriceFrom, &wt.PriceTo, &wt.RoomsFrom, &wt.RoomsTo, &wt.LivingSpaceFrom,
		&wt.LivingSpaceTo, &wt.Radius, &wt.Features, &wt.OnlyWithPrice, &wt.FreeText} {
		if *v == nil {
			continue
		}
		clamped := min(max(**v, 1), 5)
		*v = &clamped
	}
}
