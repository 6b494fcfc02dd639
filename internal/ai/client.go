// Package ai answers natural-language questions over a set of canonical
// email records through a Groq-hosted chat completion model.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mailmind/backend/internal/models"
)

// DefaultBaseURL is the production Groq API endpoint.
const DefaultBaseURL = "https://api.groq.com/openai/v1"

// DefaultModel is used when the caller does not pick one.
const DefaultModel = "llama-3.1-8b-instant"

const (
	requestTimeout = 60 * time.Second

	// summaryLimit and detailLimit bound how much email data goes into the
	// prompt. Summaries carry headers only; details add a body excerpt.
	summaryLimit      = 20
	detailLimit       = 10
	bodyExcerptLength = 500
)

// ErrUnknownModel is returned when a query names a model outside the catalog.
var ErrUnknownModel = errors.New("unknown model")

// Model describes one selectable completion model.
type Model struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Developer     string `json:"developer"`
	ContextWindow string `json:"contextWindow"`
}

// AvailableModels is the catalog exposed to clients. Queries must name one
// of these ids.
var AvailableModels = []Model{
	{ID: "llama3-70b-8192", Name: "Llama 3 70B", Developer: "Meta", ContextWindow: "8K tokens"},
	{ID: "llama3-8b-8192", Name: "Llama 3 8B", Developer: "Meta", ContextWindow: "8K tokens"},
	{ID: "llama-3.1-8b-instant", Name: "Llama 3.1 8B Instant", Developer: "Meta", ContextWindow: "128K tokens"},
	{ID: "llama-3.3-70b-versatile", Name: "Llama 3.3 70B Versatile", Developer: "Meta", ContextWindow: "128K tokens"},
}

// ValidModel reports whether id names a model in the catalog.
func ValidModel(id string) bool {
	for _, m := range AvailableModels {
		if m.ID == id {
			return true
		}
	}
	return false
}

// Client calls the Groq chat completions API.
type Client struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

func NewClient(apiKey string) *Client {
	return &Client{
		apiKey:  apiKey,
		baseURL: DefaultBaseURL,
		client:  &http.Client{Timeout: requestTimeout},
	}
}

// NewClientWithBaseURL points the client at a different endpoint. Used by
// tests to target a local fake.
func NewClientWithBaseURL(apiKey, baseURL string) *Client {
	c := NewClient(apiKey)
	c.baseURL = strings.TrimRight(baseURL, "/")
	return c
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
	TopP        float64       `json:"top_p"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// emailSummary is the header-only projection included for every email.
type emailSummary struct {
	ID      string `json:"id"`
	Date    string `json:"date"`
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	Snippet string `json:"snippet"`
}

// emailDetail adds a bounded body excerpt for the most recent emails.
type emailDetail struct {
	Subject     string `json:"subject"`
	From        string `json:"from"`
	Date        string `json:"date"`
	Snippet     string `json:"snippet"`
	BodyExcerpt string `json:"bodyExcerpt"`
}

// Query runs one question against the given emails with the selected model
// and returns the model's answer.
func (c *Client) Query(ctx context.Context, query, model string, emails []models.CanonicalEmail) (string, error) {
	if model == "" {
		model = DefaultModel
	}
	if !ValidModel(model) {
		return "", fmt.Errorf("%w: %s", ErrUnknownModel, model)
	}

	userMessage, err := buildUserMessage(query, emails)
	if err != nil {
		return "", fmt.Errorf("failed to build prompt: %w", err)
	}

	payload := chatRequest{
		Model: model,
		Messages: []chatMessage{
			{Role: "system", Content: systemMessage},
			{Role: "user", Content: userMessage},
		},
		Temperature: 0.5,
		MaxTokens:   800,
		TopP:        0.9,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("completion request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("completion request returned status %d", resp.StatusCode)
	}

	var completion chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		return "", fmt.Errorf("failed to decode completion: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", errors.New("completion carried no choices")
	}

	return completion.Choices[0].Message.Content, nil
}

const systemMessage = `You are an AI assistant that analyzes email data to answer user queries.
You have access to the user's emails from the past 2 months.
Analyze the email data provided and answer the user's question accurately.
If you cannot find the answer in the provided emails, say so clearly.
Do not make up information.
Be concise but thorough in your responses.`

func buildUserMessage(query string, emails []models.CanonicalEmail) (string, error) {
	summaries := make([]emailSummary, 0, min(len(emails), summaryLimit))
	for _, email := range emails {
		if len(summaries) >= summaryLimit {
			break
		}
		summaries = append(summaries, emailSummary{
			ID:      email.ID,
			Date:    email.OccurredAt.Format(time.RFC3339),
			From:    orUnknown(email.From),
			To:      orUnknown(email.To),
			Subject: email.Subject,
			Snippet: email.Snippet,
		})
	}

	details := make([]emailDetail, 0, min(len(emails), detailLimit))
	for _, email := range emails {
		if len(details) >= detailLimit {
			break
		}
		details = append(details, emailDetail{
			Subject:     email.Subject,
			From:        orUnknown(email.From),
			Date:        email.OccurredAt.Format(time.RFC3339),
			Snippet:     email.Snippet,
			BodyExcerpt: excerpt(email.Body),
		})
	}

	summaryJSON, err := json.Marshal(summaries)
	if err != nil {
		return "", err
	}
	detailJSON, err := json.Marshal(details)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Here is a summary of my recent emails (%d total):\n%s", len(emails), summaryJSON)
	if len(emails) > summaryLimit {
		b.WriteString(" ... and more")
	}
	fmt.Fprintf(&b, "\n\nHere are more details on my %d most recent emails:\n%s", len(details), detailJSON)
	fmt.Fprintf(&b, "\n\nMy question is: %s", query)
	return b.String(), nil
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}

func excerpt(body string) string {
	runes := []rune(body)
	if len(runes) <= bodyExcerptLength {
		return body
	}
	return string(runes[:bodyExcerptLength]) + "..."
}
