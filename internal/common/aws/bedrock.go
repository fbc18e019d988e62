package aws

import (
	"context"
	"errors"
	"fmt"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"golang.org/x/time/rate"

	"opportunity-workers/internal/llm"
)

var ErrEmptyModelOutput = errors.New("model returned no message output")

type converseAPI interface {
	Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

// BedrockClient sends llm payloads through the Bedrock Converse API. Calls are
// throttled client-side so a burst of jobs does not trip service quotas.
type BedrockClient struct {
	api     converseAPI
	limiter *rate.Limiter
}

type BedrockOptions struct {
	Region            string
	RequestsPerSecond float64
	Burst             int
}

func NewBedrockClient(ctx context.Context, opts BedrockOptions) (*BedrockClient, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(opts.Region))
	if err != nil {
		return nil, err
	}
	return newBedrockClient(bedrockruntime.NewFromConfig(cfg), opts), nil
}

func newBedrockClient(api converseAPI, opts BedrockOptions) *BedrockClient {
	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}
	burst := opts.Burst
	if burst <= 0 {
		burst = 1
	}
	return &BedrockClient{api: api, limiter: rate.NewLimiter(limit, burst)}
}

// Converse implements llm.Client.
func (c *BedrockClient) Converse(ctx context.Context, payload *llm.Payload) (*llm.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("bedrock rate limiter: %w", err)
	}

	out, err := c.api.Converse(ctx, toConverseInput(payload))
	if err != nil {
		return nil, err
	}
	return fromConverseOutput(out)
}

func toConverseInput(p *llm.Payload) *bedrockruntime.ConverseInput {
	in := &bedrockruntime.ConverseInput{
		ModelId: awssdk.String(p.ModelID),
		InferenceConfig: &types.InferenceConfiguration{
			MaxTokens:   awssdk.Int32(int32(p.InferenceConfig.MaxTokens)),
			Temperature: awssdk.Float32(float32(p.InferenceConfig.Temperature)),
		},
	}
	for _, b := range p.System {
		in.System = append(in.System, &types.SystemContentBlockMemberText{Value: b.Text})
	}
	for _, m := range p.Messages {
		msg := types.Message{Role: types.ConversationRole(m.Role)}
		for _, b := range m.Content {
			msg.Content = append(msg.Content, &types.ContentBlockMemberText{Value: b.Text})
		}
		in.Messages = append(in.Messages, msg)
	}
	return in
}

func fromConverseOutput(out *bedrockruntime.ConverseOutput) (*llm.Response, error) {
	member, ok := out.Output.(*types.ConverseOutputMemberMessage)
	if !ok {
		return nil, ErrEmptyModelOutput
	}

	resp := &llm.Response{
		Output:     llm.Output{Message: llm.Message{Role: string(member.Value.Role)}},
		StopReason: string(out.StopReason),
	}
	for _, block := range member.Value.Content {
		if text, ok := block.(*types.ContentBlockMemberText); ok {
			resp.Output.Message.Content = append(resp.Output.Message.Content, llm.ContentBlock{Text: text.Value})
		}
	}
	if out.Usage != nil {
		resp.Usage = llm.Usage{
			InputTokens:  int(awssdk.ToInt32(out.Usage.InputTokens)),
			OutputTokens: int(awssdk.ToInt32(out.Usage.OutputTokens)),
		}
	}
	return resp, nil
}
