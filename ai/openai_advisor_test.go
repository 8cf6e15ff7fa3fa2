package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"homematch/models"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// chatServer answers every chat completion with content.
func chatServer(t *testing.T, status int, content string) (*httptest.Server, *[]openai.ChatCompletionRequest) {
	t.Helper()
	var requests []openai.ChatCompletionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		var req openai.ChatCompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		requests = append(requests, req)

		w.Header().Set("Content-Type", "application/json")
		if status != http.StatusOK {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"error":{"message":"overloaded","type":"server_error"}}`))
			return
		}
		_ = json.NewEncoder(w).Encode(openai.ChatCompletionResponse{
			Choices: []openai.ChatCompletionChoice{{
				Message:      openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: content},
				FinishReason: openai.FinishReasonStop,
			}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv, &requests
}

func newAdvisor(t *testing.T, srv *httptest.Server) *OpenAIAdvisor {
	t.Helper()
	advisor, err := NewOpenAIAdvisor(Config{APIKey: "test", Model: "gpt-test", BaseURL: srv.URL + "/v1"}, zap.NewNop())
	require.NoError(t, err)
	return advisor
}

func TestExtractPreferences(t *testing.T) {
	srv, requests := chatServer(t, http.StatusOK, `{
		"criteria": {"offerType": "rent", "location": "Zurich", "roomsFrom": 3, "priceTo": -5},
		"weights": {"roomsFrom": 9, "location": 0},
		"explanation": "three rooms in Zurich"
	}`)
	advisor := newAdvisor(t, srv)

	existing := &models.Criteria{OfferType: models.OfferTypeRent}
	proposal, err := advisor.ExtractPreferences(context.Background(), "3 rooms in Zurich", existing)
	require.NoError(t, err)

	assert.Equal(t, "Zurich", *proposal.Criteria.Location)
	assert.Equal(t, 3.0, *proposal.Criteria.RoomsFrom)
	assert.Nil(t, proposal.Criteria.PriceTo, "negative values are dropped")
	assert.Equal(t, 5, *proposal.Weights.RoomsFrom)
	assert.Equal(t, 1, *proposal.Weights.Location)
	assert.Equal(t, "three rooms in Zurich", proposal.Explanation)

	require.Len(t, *requests, 1)
	req := (*requests)[0]
	assert.Equal(t, "gpt-test", req.Model)
	require.NotNil(t, req.ResponseFormat)
	assert.Equal(t, openai.ChatCompletionResponseFormatTypeJSONObject, req.ResponseFormat.Type)
	assert.Contains(t, req.Messages[1].Content, "3 rooms in Zurich")
	assert.Contains(t, req.Messages[1].Content, "Refine these current criteria")
}

func TestScoreCompatibility(t *testing.T) {
	srv, _ := chatServer(t, http.StatusOK, `{"score": 64, "comment": "budgets overlap"}`)
	advisor := newAdvisor(t, srv)

	score, err := advisor.ScoreCompatibility(context.Background(), models.PreferenceSet{}, models.PreferenceSet{})
	require.NoError(t, err)
	assert.Equal(t, models.CompatibilityScore{Score: 64, Comment: "budgets overlap"}, score)
}

func TestScoreCompatibilityRejectsOutOfRange(t *testing.T) {
	srv, _ := chatServer(t, http.StatusOK, `{"score": 140, "comment": "?"}`)
	_, err := newAdvisor(t, srv).ScoreCompatibility(context.Background(), models.PreferenceSet{}, models.PreferenceSet{})
	assert.Error(t, err)
}

func TestSuggestCompromiseKeepsOfferType(t *testing.T) {
	srv, _ := chatServer(t, http.StatusOK, `{"criteria": {"offerType": "lease", "priceTo": 3100}, "explanation": "split the difference"}`)
	a := models.PreferenceSet{Criteria: models.Criteria{OfferType: models.OfferTypeBuy}}

	proposal, err := newAdvisor(t, srv).SuggestCompromise(context.Background(), a, a)
	require.NoError(t, err)
	assert.Equal(t, models.OfferTypeBuy, proposal.Criteria.OfferType)
	assert.Equal(t, 3100.0, *proposal.Criteria.PriceTo)
}

func TestUpstreamFailures(t *testing.T) {
	srv, _ := chatServer(t, http.StatusServiceUnavailable, "")
	_, err := newAdvisor(t, srv).ExtractPreferences(context.Background(), "anything", nil)
	assert.Error(t, err)

	garbled, _ := chatServer(t, http.StatusOK, "not json")
	_, err = newAdvisor(t, garbled).ExtractPreferences(context.Background(), "anything", nil)
	assert.ErrorContains(t, err, "decode response")
}

func TestNewOpenAIAdvisorNeedsKey(t *testing.T) {
	_, err := NewOpenAIAdvisor(Config{}, zap.NewNop())
	assert.Error(t, err)
}
