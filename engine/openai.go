package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"net/http"
	"sort"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	openai "github.com/sashabaranov/go-openai"

	"github.com/tailored-agentic-units/hrassist/conversation"
)

const cognitiveServicesScope = "https://cognitiveservices.azure.com/.default"

// OpenAIModel is a ChatModel backed by an OpenAI-compatible chat
// completions API, including Azure OpenAI deployments.
type OpenAIModel struct {
	client *openai.Client
	model  string
}

// NewOpenAIModel builds the client once. For Azure without an API key the
// client authenticates every request with DefaultAzureCredential.
func NewOpenAIModel(cfg *ModelConfig) (*OpenAIModel, error) {
	if cfg.Deployment == "" {
		return nil, fmt.Errorf("model deployment is required")
	}

	var clientCfg openai.ClientConfig
	switch cfg.Provider {
	case ProviderAzure:
		if cfg.Endpoint == "" {
			return nil, fmt.Errorf("azure provider requires an endpoint")
		}
		clientCfg = openai.DefaultAzureConfig(cfg.APIKey, cfg.Endpoint)
		if cfg.APIVersion != "" {
			clientCfg.APIVersion = cfg.APIVersion
		}
		deployment := cfg.Deployment
		clientCfg.AzureModelMapperFunc = func(string) string { return deployment }

		if cfg.APIKey == "" {
			cred, err := azidentity.NewDefaultAzureCredential(nil)
			if err != nil {
				return nil, fmt.Errorf("failed to acquire azure credential: %w", err)
			}
			clientCfg.APIType = openai.APITypeAzureAD
			clientCfg.HTTPClient = &bearerDoer{cred: cred, scope: cognitiveServicesScope, next: http.DefaultClient}
		}
	case ProviderOpenAI:
		clientCfg = openai.DefaultConfig(cfg.APIKey)
		if cfg.Endpoint != "" {
			clientCfg.BaseURL = cfg.Endpoint
		}
	default:
		return nil, fmt.Errorf("unknown model provider %q", cfg.Provider)
	}

	return &OpenAIModel{
		client: openai.NewClientWithConfig(clientCfg),
		model:  cfg.Deployment,
	}, nil
}

// bearerDoer stamps each request with a token from an Azure credential.
// The credential caches tokens and refreshes them before expiry.
type bearerDoer struct {
	cred  azcore.TokenCredential
	scope string
	next  *http.Client
}

func (d *bearerDoer) Do(req *http.Request) (*http.Response, error) {
	tok, err := d.cred.GetToken(req.Context(), policy.TokenRequestOptions{Scopes: []string{d.scope}})
	if err != nil {
		return nil, fmt.Errorf("failed to get azure token: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+tok.Token)
	return d.next.Do(req)
}

func (m *OpenAIModel) request(messages []conversation.Message, tools []conversation.Tool) openai.ChatCompletionRequest {
	req := openai.ChatCompletionRequest{
		Model:    m.model,
		Messages: make([]openai.ChatCompletionMessage, 0, len(messages)),
	}
	for _, msg := range messages {
		out := openai.ChatCompletionMessage{
			Role:       string(msg.Role),
			Content:    msg.Content,
			ToolCallID: msg.ToolCallID,
		}
		for _, tc := range msg.ToolCalls {
			out.ToolCalls = append(out.ToolCalls, openai.ToolCall{
				ID:   tc.ID,
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      tc.Name,
					Arguments: tc.Arguments,
				},
			})
		}
		req.Messages = append(req.Messages, out)
	}
	for _, t := range tools {
		req.Tools = append(req.Tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		})
	}
	return req
}

func (m *OpenAIModel) Complete(ctx context.Context, messages []conversation.Message, tools []conversation.Tool) (*Completion, error) {
	resp, err := m.client.CreateChatCompletion(ctx, m.request(messages, tools))
	if err != nil {
		return nil, fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, ErrEmptyResponse
	}

	msg := resp.Choices[0].Message
	out := &Completion{Content: msg.Content}
	for _, tc := range msg.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, conversation.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}
	return out, nil
}

func (m *OpenAIModel) Stream(ctx context.Context, messages []conversation.Message, tools []conversation.Tool) iter.Seq2[ModelDelta, error] {
	return func(yield func(ModelDelta, error) bool) {
		req := m.request(messages, tools)
		req.Stream = true

		stream, err := m.client.CreateChatCompletionStream(ctx, req)
		if err != nil {
			yield(ModelDelta{}, fmt.Errorf("chat completion stream failed: %w", err))
			return
		}
		defer stream.Close()

		acc := newToolCallAccumulator()
		for {
			chunk, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				yield(ModelDelta{}, fmt.Errorf("chat completion stream failed: %w", err))
				return
			}
			if len(chunk.Choices) == 0 {
				continue
			}

			delta := chunk.Choices[0].Delta
			for _, tc := range delta.ToolCalls {
				acc.add(tc)
			}
			if delta.Content != "" {
				if !yield(ModelDelta{Text: delta.Content}, nil) {
					return
				}
			}
		}

		yield(ModelDelta{Done: true, ToolCalls: acc.calls()}, nil)
	}
}

// toolCallAccumulator assembles streamed tool-call fragments. The first
// fragment for an index carries id and name; later ones append arguments.
// Fragments without an index continue the last call unless they carry a
// new id.
type toolCallAccumulator struct {
	byIndex map[int]*conversation.ToolCall
	last    int
}

func newToolCallAccumulator() *toolCallAccumulator {
	return &toolCallAccumulator{byIndex: make(map[int]*conversation.ToolCall), last: -1}
}

func (a *toolCallAccumulator) add(tc openai.ToolCall) {
	idx := a.last
	switch {
	case tc.Index != nil:
		idx = *tc.Index
	case idx < 0:
		idx = 0
	case tc.ID != "" && a.byIndex[idx].ID != "" && a.byIndex[idx].ID != tc.ID:
		idx = a.next()
	}
	a.last = idx

	call, ok := a.byIndex[idx]
	if !ok {
		call = &conversation.ToolCall{}
		a.byIndex[idx] = call
	}
	if tc.ID != "" {
		call.ID = tc.ID
	}
	if tc.Function.Name != "" {
		call.Name = tc.Function.Name
	}
	call.Arguments += tc.Function.Arguments
}

func (a *toolCallAccumulator) next() int {
	n := 0
	for i := range a.byIndex {
		if i >= n {
			n = i + 1
		}
	}
	return n
}

func (a *toolCallAccumulator) calls() []conversation.ToolCall {
	if len(a.byIndex) == 0 {
		return nil
	}
	indexes := make([]int, 0, len(a.byIndex))
	for i := range a.byIndex {
		indexes = append(indexes, i)
	}
	sort.Ints(indexes)

	out := make([]conversation.ToolCall, 0, len(indexes))
	for _, i := range indexes {
		call := *a.byIndex[i]
		if call.Arguments == "" {
			call.Arguments = "{}"
		}
		out = append(out, call)
	}
	return out
}
