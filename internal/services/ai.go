package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
	"github.com/yukikurage/kanban-sync/internal/constants"
	"github.com/yukikurage/kanban-sync/internal/models"
)

var ErrAIUnavailable = errors.New("task generation is not configured")

// chatCompleter is the subset of *openai.Client used here.
type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

type AIService struct {
	client chatCompleter
}

// TaskDraft is a suggested task. Drafts are never persisted until an admin
// submits them through CreateTask.
type TaskDraft struct {
	Title       string              `json:"title"`
	Description string              `json:"description"`
	Priority    models.TaskPriority `json:"priority"`
}

// NewAIService returns a service backed by OpenAI, or a disabled service
// when apiKey is empty.
func NewAIService(apiKey string) *AIService {
	if apiKey == "" {
		return &AIService{}
	}
	return &AIService{client: openai.NewClient(apiKey)}
}

func (s *AIService) Enabled() bool {
	return s.client != nil
}

// GenerateTaskDrafts extracts task drafts from free text using OpenAI GPT.
func (s *AIService) GenerateTaskDrafts(ctx context.Context, text string) ([]TaskDraft, error) {
	if s.client == nil {
		return nil, ErrAIUnavailable
	}

	prompt := fmt.Sprintf(`You are a task extraction assistant for a kanban board. Extract concrete tasks from the text below.

Text:
%s

Return a JSON array of tasks in this format:
[
  {
    "title": "short task title",
    "description": "what needs to be done",
    "priority": "Low" | "Medium" | "High"
  }
]

Rules:
- Return an empty array [] when the text contains no tasks
- Titles must not be "Todo", "In Progress" or "Done"
- Return JSON only, without any explanation`, text)

	resp, err := s.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: openai.GPT4o,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleUser,
					Content: prompt,
				},
			},
			Temperature: 0.3,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("OpenAI API error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from OpenAI")
	}

	content := stripCodeFence(resp.Choices[0].Message.Content)

	var drafts []TaskDraft
	if err := json.Unmarshal([]byte(content), &drafts); err != nil {
		return nil, fmt.Errorf("failed to parse AI response: %w (response: %s)", err, content)
	}

	return sanitizeDrafts(drafts), nil
}

// sanitizeDrafts drops unusable drafts and normalizes the rest.
func sanitizeDrafts(drafts []TaskDraft) []TaskDraft {
	seen := make(map[string]bool, len(drafts))
	out := make([]TaskDraft, 0, len(drafts))
	for _, d := range drafts {
		d.Title = strings.TrimSpace(d.Title)
		if d.Title == "" || constants.IsReservedTitle(d.Title) || seen[d.Title] {
			continue
		}
		if !d.Priority.Valid() {
			d.Priority = models.TaskPriorityMedium
		}
		seen[d.Title] = true
		out = append(out, d)
		if len(out) == constants.MaxAIGeneratedTasks {
			break
		}
	}
	return out
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
