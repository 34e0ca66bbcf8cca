// Package semantic runs the post-session transcript synthesis: a single
// chat-completions call that scores the conversation for stress and fatigue
// and proposes follow-up suggestions.
package semantic

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/seanesla/kanari-sub005/internal/biomarker"
	"github.com/seanesla/kanari-sub005/internal/session"
)

// ErrTooLittleData means the transcript is too short to score. Terminal: the
// caller should not retry with the same transcript.
var ErrTooLittleData = errors.New("semantic: transcript too short to analyze")

// minTranscriptChars is the floor below which scoring is meaningless.
const minTranscriptChars = 80

const defaultEndpoint = "https://api.cerebras.ai/v1/chat/completions"

const systemPrompt = `You analyze a wellness check-in transcript. Respond with ONLY a JSON object:
{"stressScore": 0-100, "fatigueScore": 0-100, "confidence": 0-1, "summary": "...", "suggestions": ["...", "..."]}
Scores reflect the speaker's state from the words alone. Keep suggestions short, concrete, and kind.`

type Client struct {
	HTTPClient *http.Client
	APIKey     string
	Model      string
	Endpoint   string
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionsRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatChoice struct {
	Index        int         `json:"index"`
	FinishReason string      `json:"finish_reason"`
	Message      chatMessage `json:"message"`
}

type chatCompletionsResponse struct {
	ID      string       `json:"id"`
	Choices []chatChoice `json:"choices"`
}

type synthesisPayload struct {
	StressScore  float64  `json:"stressScore"`
	FatigueScore float64  `json:"fatigueScore"`
	Confidence   float64  `json:"confidence"`
	Summary      string   `json:"summary"`
	Suggestions  []string `json:"suggestions"`
}

func NewClient(apiKey, model string) *Client {
	return &Client{
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		APIKey:     apiKey,
		Model:      model,
		Endpoint:   defaultEndpoint,
	}
}

// Synthesize scores one transcript. Retries transient failures (429, 5xx,
// network) with capped exponential backoff; honors ctx for abort.
func (c *Client) Synthesize(ctx context.Context, transcript string) (*session.Synthesis, error) {
	if c.APIKey == "" {
		return nil, fmt.Errorf("semantic api key missing")
	}
	if len(strings.TrimSpace(transcript)) < minTranscriptChars {
		return nil, ErrTooLittleData
	}

	backoff := retry.WithMaxRetries(3, retry.NewExponential(500*time.Millisecond))
	var out *session.Synthesis
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		s, err := c.synthesizeOnce(ctx, transcript)
		if err != nil {
			return err
		}
		out = s
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) synthesizeOnce(ctx context.Context, transcript string) (*session.Synthesis, error) {
	messages := []chatMessage{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: transcript},
	}
	reqBody, _ := json.Marshal(chatCompletionsRequest{Model: c.Model, Messages: messages})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		// network errors are worth another attempt unless the ctx died
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, retry.RetryableError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		b, _ := io.ReadAll(resp.Body)
		return nil, retry.RetryableError(fmt.Errorf("semantic: status=%d body=%s", resp.StatusCode, string(b)))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("semantic: status=%d body=%s", resp.StatusCode, string(b))
	}

	var cr chatCompletionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return nil, err
	}
	if len(cr.Choices) == 0 {
		return nil, fmt.Errorf("semantic: empty choices")
	}
	return parseSynthesis(cr.Choices[0].Message.Content)
}

// parseSynthesis extracts the JSON object from the model's reply. Models
// sometimes wrap JSON in code fences or prose, so scan for the braces.
func parseSynthesis(content string) (*session.Synthesis, error) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("semantic: no JSON object in reply")
	}
	var p synthesisPayload
	if err := json.Unmarshal([]byte(content[start:end+1]), &p); err != nil {
		return nil, fmt.Errorf("semantic: decode reply: %w", err)
	}
	return &session.Synthesis{
		Semantic: &biomarker.SemanticReading{
			StressScore:  p.StressScore,
			FatigueScore: p.FatigueScore,
			Confidence:   p.Confidence,
		},
		Suggestions: p.Suggestions,
		Summary:     p.Summary,
	}, nil
}
