package utils

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// GenerationRequest carries the lead snapshot and style hints for one
// follow-up message.
type GenerationRequest struct {
	CompanyName   string
	ContactPerson string
	Industry      string
	City          string
	Website       string
	Channel       string
	Tone          string
	Language      string
	Context       string
}

// GenerationResult is the generated subject line and message body.
// Subject is empty for channels that have no subject.
type GenerationResult struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Generator produces outreach copy for a follow-up step. A nil Generator
// means generation is unavailable and the processor continues with empty
// copy.
type Generator interface {
	Generate(ctx context.Context, req GenerationRequest) (GenerationResult, error)
}

// OpenAIGenerator generates follow-up messages through the chat
// completions API, asking for a JSON {subject, body} reply.
type OpenAIGenerator struct {
	client *openai.Client
	model  string
	logger *log.Logger
}

func NewOpenAIGenerator(apiKey, model string, logger *log.Logger) *OpenAIGenerator {
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAIGenerator{
		client: openai.NewClient(apiKey),
		model:  model,
		logger: logger,
	}
}

func (g *OpenAIGenerator) Generate(ctx context.Context, req GenerationRequest) (GenerationResult, error) {
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: systemPrompt(req),
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: leadPrompt(req),
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return GenerationResult{}, fmt.Errorf("generation request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return GenerationResult{}, fmt.Errorf("generation returned no choices")
	}

	var result GenerationResult
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &result); err != nil {
		return GenerationResult{}, fmt.Errorf("decoding generated message: %w", err)
	}

	g.logger.Printf("Generated %s message for %s (%d chars)", req.Channel, req.CompanyName, len(result.Body))
	return result, nil
}

func systemPrompt(req GenerationRequest) string {
	tone := req.Tone
	if tone == "" {
		tone = "friendly"
	}
	language := req.Language
	if language == "" {
		language = "en"
	}
	return fmt.Sprintf(
		"You write short B2B outreach follow-ups for the %s channel in a %s tone, language %q. "+
			"Reply with a JSON object {\"subject\": ..., \"body\": ...}; leave subject empty when the channel has no subject line.",
		req.Channel, tone, language,
	)
}

func leadPrompt(req GenerationRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Company: %s\n", req.CompanyName)
	if req.ContactPerson != "" {
		fmt.Fprintf(&b, "Contact: %s\n", req.ContactPerson)
	}
	if req.Industry != "" {
		fmt.Fprintf(&b, "Industry: %s\n", req.Industry)
	}
	if req.City != "" {
		fmt.Fprintf(&b, "City: %s\n", req.City)
	}
	if req.Website != "" {
		fmt.Fprintf(&b, "Website: %s\n", req.Website)
	}
	fmt.Fprintf(&b, "Context: %s", req.Context)
	return b.String()
}
