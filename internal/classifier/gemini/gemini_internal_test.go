package gemini

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/MrJamesThe3rd/bankfeed/internal/classifier"
)

type fakeModels struct {
	text   string
	err    error
	prompt string
}

func (f *fakeModels) GenerateContent(_ context.Context, _ string, contents []*genai.Content, _ *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	if len(contents) > 0 && len(contents[0].Parts) > 0 {
		f.prompt = contents[0].Parts[0].Text
	}

	if f.err != nil {
		return nil, f.err
	}

	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{{Text: f.text}}},
		}},
	}, nil
}

func TestCleanModelJSON(t *testing.T) {
	type testCase struct {
		name string
		raw  string
		want string
	}

	tests := []testCase{
		{name: "Plain", raw: `{"results":[]}`, want: `{"results":[]}`},
		{name: "Fenced", raw: "```json\n{\"results\":[]}\n```", want: `{"results":[]}`},
		{name: "Chatter", raw: "Sure! Here you go: {\"results\":[]} Hope it helps.", want: `{"results":[]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cleanModelJSON(tt.raw))
		})
	}
}

func TestClient_Classify(t *testing.T) {
	models := &fakeModels{text: "```json\n{\"results\":[{\"index\":3,\"category\":\"Food\",\"confidence\":0.9}]}\n```"}
	c := &Client{models: models, model: "test"}

	resp, err := c.Classify(context.Background(), classifier.Request{
		Task:  classifier.TaskCategorize,
		Items: []classifier.Item{{Index: 3, Fields: map[string]any{"description": "PIZZA HUT"}}},
	})
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.JSONEq(t, `{"index":3,"category":"Food","confidence":0.9}`, string(resp.Results[0]))
	assert.Contains(t, models.prompt, "PIZZA HUT")
}

func TestClient_Classify_Errors(t *testing.T) {
	type testCase struct {
		name     string
		models   *fakeModels
		task     classifier.Task
		wantKind classifier.ErrorKind
	}

	tests := []testCase{
		{
			name:     "Malformed",
			models:   &fakeModels{text: "I cannot help with that"},
			task:     classifier.TaskMapping,
			wantKind: classifier.KindMalformed,
		},
		{
			name:     "Auth",
			models:   &fakeModels{err: genai.APIError{Code: 403, Message: "forbidden"}},
			task:     classifier.TaskMapping,
			wantKind: classifier.KindAuth,
		},
		{
			name:     "Unavailable",
			models:   &fakeModels{err: errors.New("connection refused")},
			task:     classifier.TaskSubscriptions,
			wantKind: classifier.KindUnavailable,
		},
		{
			name:     "UnknownTask",
			models:   &fakeModels{},
			task:     classifier.Task("poetry"),
			wantKind: classifier.KindMalformed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Client{models: tt.models, model: "test"}

			_, err := c.Classify(context.Background(), classifier.Request{Task: tt.task})
			require.Error(t, err)

			var se *classifier.ServiceError
			require.True(t, errors.As(err, &se))
			assert.Equal(t, tt.wantKind, se.Kind)
		})
	}
}
