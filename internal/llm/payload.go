// Package llm describes the model invocation contract and the retrying invoker.
package llm

import (
	"context"
	"strings"
)

const RoleUser = "user"

type ContentBlock struct {
	Text string `json:"text"`
}

type Message struct {
	Role    string         `json:"role"`
	Content []ContentBlock `json:"content"`
}

type InferenceConfig struct {
	MaxTokens   int     `json:"maxTokens"`
	Temperature float64 `json:"temperature"`
}

// Payload is the Converse-style request handed to a Client.
type Payload struct {
	ModelID         string          `json:"modelId"`
	System          []ContentBlock  `json:"system"`
	Messages        []Message       `json:"messages"`
	InferenceConfig InferenceConfig `json:"inferenceConfig"`
}

// SystemText joins the system blocks.
func (p *Payload) SystemText() string {
	var sb strings.Builder
	for _, b := range p.System {
		sb.WriteString(b.Text)
	}
	return sb.String()
}

// UserText returns the text of the first user message.
func (p *Payload) UserText() string {
	for _, m := range p.Messages {
		if m.Role == RoleUser && len(m.Content) > 0 {
			return m.Content[0].Text
		}
	}
	return ""
}

type Usage struct {
	InputTokens  int `json:"inputTokens"`
	OutputTokens int `json:"outputTokens"`
}

type Output struct {
	Message Message `json:"message"`
}

// Response mirrors the Converse response shape.
type Response struct {
	Output     Output `json:"output"`
	StopReason string `json:"stopReason,omitempty"`
	Usage      Usage  `json:"usage"`
}

// Text returns output.message.content[0].text, or "" when absent.
func (r *Response) Text() string {
	if r == nil || len(r.Output.Message.Content) == 0 {
		return ""
	}
	return r.Output.Message.Content[0].Text
}

// NewTextResponse builds a single-block assistant response.
func NewTextResponse(text string) *Response {
	return &Response{Output: Output{Message: Message{
		Role:    "assistant",
		Content: []ContentBlock{{Text: text}},
	}}}
}

// Client performs a single model invocation.
type Client interface {
	Converse(ctx context.Context, payload *Payload) (*Response, error)
}

// ClientFunc adapts a function to Client.
type ClientFunc func(ctx context.Context, payload *Payload) (*Response, error)

func (f ClientFunc) Converse(ctx context.Context, payload *Payload) (*Response, error) {
	return f(ctx, payload)
}
