// Package llm drives the function-calling chat turn against an
// OpenAI-compatible endpoint.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"

	"azdo-mcp/internal/tools"
)

const systemPrompt = "You are an assistant for an Azure DevOps organization. " +
	"Use the available tools to answer questions about projects, work items, " +
	"builds, releases, repositories and wikis. Call at most one tool per turn. " +
	"If no tool fits the question, answer directly."

// Config selects the model endpoint. APIKey and Model are required; BaseURL
// is optional and overrides the public OpenAI endpoint.
type Config struct {
	BaseURL string
	APIKey  string
	Model   string
}

// ToolCall is one function call requested by the model.
type ToolCall struct {
	Name      string
	Arguments map[string]any
}

// Chat wraps the model client for the two calls of a chat turn: tool
// selection and result summarization.
type Chat struct {
	client *openai.Client
	model  string
}

// New creates a chat client for the configured endpoint.
func New(cfg Config) *Chat {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	return &Chat{
		client: openai.NewClientWithConfig(clientConfig),
		model:  cfg.Model,
	}
}

// SelectTool asks the model which tool (if any) answers the message. It
// returns the assistant text and, when the model requested one, the first
// tool call. Additional parallel calls are ignored.
func (c *Chat) SelectTool(ctx context.Context, catalog []tools.Descriptor, message string) (string, *ToolCall, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: message},
		},
		Tools: toOpenAITools(catalog),
	})
	if err != nil {
		return "", nil, fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", nil, fmt.Errorf("model returned no choices")
	}

	choice := resp.Choices[0].Message
	if len(choice.ToolCalls) == 0 {
		return choice.Content, nil, nil
	}
	if len(choice.ToolCalls) > 1 {
		log.Debug().Int("count", len(choice.ToolCalls)).Msg("Model requested parallel tool calls, using the first")
	}

	call := choice.ToolCalls[0]
	args := map[string]any{}
	if raw := strings.TrimSpace(call.Function.Arguments); raw != "" {
		if err := json.Unmarshal([]byte(raw), &args); err != nil {
			return "", nil, fmt.Errorf("tool call %s has invalid arguments: %w", call.Function.Name, err)
		}
	}

	return choice.Content, &ToolCall{Name: call.Function.Name, Arguments: args}, nil
}

// Summarize asks the model to answer the original message given a tool
// result. Called for failed tool calls too, with the error text as result.
func (c *Chat) Summarize(ctx context.Context, message, toolName, toolResult string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: message},
			{
				Role: openai.ChatMessageRoleUser,
				Content: fmt.Sprintf("Result of the %s tool:\n\n%s\n\nAnswer the question above using this result.",
					toolName, toolResult),
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("model returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// toOpenAITools converts the registry catalog into function definitions.
func toOpenAITools(catalog []tools.Descriptor) []openai.Tool {
	out := make([]openai.Tool, 0, len(catalog))
	for _, desc := range catalog {
		out = append(out, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        desc.Name,
				Description: desc.Description,
				Parameters:  parameterSchema(desc),
			},
		})
	}
	return out
}

func parameterSchema(desc tools.Descriptor) map[string]any {
	properties := map[string]any{}
	var required []string
	for _, p := range desc.Params {
		prop := map[string]any{
			"type":        schemaType(p.Type),
			"description": p.Description,
		}
		if p.Default != nil {
			prop["default"] = p.Default
		}
		properties[p.Name] = prop
		if p.Required {
			required = append(required, p.Name)
		}
	}

	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func schemaType(paramType string) string {
	switch paramType {
	case "integer":
		return "integer"
	case "object":
		return "object"
	default:
		return "string"
	}
}
