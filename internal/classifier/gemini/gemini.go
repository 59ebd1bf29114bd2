// Package gemini implements the classifier contract on the Gemini API.
package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/MrJamesThe3rd/bankfeed/internal/classifier"
)

type Config struct {
	APIKey string
	Model  string
}

// generator is the slice of the genai client used here.
type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type Client struct {
	models generator
	model  string
}

func New(ctx context.Context, cfg Config) (*Client, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}

	return &Client{models: client.Models, model: cfg.Model}, nil
}

func (c *Client) Classify(ctx context.Context, req classifier.Request) (*classifier.Response, error) {
	prompt, err := buildPrompt(req)
	if err != nil {
		return nil, &classifier.ServiceError{Kind: classifier.KindMalformed, Err: err}
	}

	resp, err := c.models.GenerateContent(ctx, c.model, genai.Text(prompt), &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		Temperature:      genai.Ptr[float32](0),
	})
	if err != nil {
		return nil, serviceError(ctx, err)
	}

	var out classifier.Response
	if err := json.Unmarshal([]byte(cleanModelJSON(resp.Text())), &out); err != nil {
		return nil, &classifier.ServiceError{Kind: classifier.KindMalformed, Err: fmt.Errorf("decoding model output: %w", err)}
	}

	return &out, nil
}

func serviceError(ctx context.Context, err error) error {
	if ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded) {
		return &classifier.ServiceError{Kind: classifier.KindTimeout, Err: err}
	}

	code := 0

	var apiErr genai.APIError
	var apiErrPtr *genai.APIError

	switch {
	case errors.As(err, &apiErr):
		code = apiErr.Code
	case errors.As(err, &apiErrPtr):
		code = apiErrPtr.Code
	}

	if code == 401 || code == 403 {
		return &classifier.ServiceError{Kind: classifier.KindAuth, Err: err}
	}

	return &classifier.ServiceError{Kind: classifier.KindUnavailable, Err: err}
}

var instructions = map[classifier.Task]string{
	classifier.TaskMapping: "You map bank-export columns to transaction fields.\n" +
		"Each item has the file headers and up to 3 sample rows.\n" +
		"Return one result per item: {\"index\": <item index>, \"mapping\": {<header>: <field>}, " +
		"\"confidence\": <0..1>, \"dateFormat\": <format such as MM/DD/YYYY, or empty>}.\n" +
		"Every key must be one of the headers. Every value must be one of the allowed fields in options.fields.",
	classifier.TaskCategorize: "You categorize bank transactions.\n" +
		"Return one result per item: {\"index\": <item index>, \"category\": <one of options.categories>, \"confidence\": <0..1>}.",
	classifier.TaskSubscriptions: "You decide which repeated charges are subscriptions or recurring bills.\n" +
		"Each item is a merchant with its charges (amount, date, name).\n" +
		"Return results only for recurring items: {\"index\": <item index>, \"merchantName\": <clean merchant name>, " +
		"\"frequency\": \"weekly\"|\"biweekly\"|\"monthly\"|\"quarterly\"|\"yearly\", \"confidence\": <0..1>, \"isEssential\": <bool>}.",
}

func buildPrompt(req classifier.Request) (string, error) {
	instr, ok := instructions[req.Task]
	if !ok {
		return "", fmt.Errorf("unknown task %q", req.Task)
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("encoding request: %w", err)
	}

	var b strings.Builder

	b.WriteString(instr)
	b.WriteString("\nAlways echo the item index unchanged. Output STRICT JSON only, shaped as {\"results\": [...]}.\n\n")
	b.WriteString("Request:\n")
	b.Write(payload)

	return b.String(), nil
}

// cleanModelJSON strips markdown fences and any text around the outermost object.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		}
	}

	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}

	s = strings.TrimSpace(s)

	if start := strings.Index(s, "{"); start != -1 {
		if end := strings.LastIndex(s, "}"); end > start {
			s = s[start : end+1]
		}
	}

	return s
}
