package openai

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"

	goopenai "github.com/sashabaranov/go-openai"

	dservice "StockPulse/internal/domain/service"
	applogger "StockPulse/pkg/logger"
)

const DefaultModel = "gpt-4o-mini"

// Factory builds one Generator per API key for any OpenAI compatible endpoint.
type Factory struct {
	model   string
	baseURL string
	log     *applogger.Logger

	mu      sync.Mutex
	clients map[string]*Generator
}

func NewFactory(model, baseURL string, l *applogger.Logger) *Factory {
	if model == "" {
		model = DefaultModel
	}
	return &Factory{model: model, baseURL: baseURL, log: l, clients: make(map[string]*Generator)}
}

var _ dservice.GeneratorFactory = (*Factory)(nil)

func (f *Factory) ForKey(_ context.Context, apiKey string) (dservice.Generator, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if g, ok := f.clients[apiKey]; ok {
		return g, nil
	}
	cfg := goopenai.DefaultConfig(apiKey)
	if f.baseURL != "" {
		cfg.BaseURL = f.baseURL
	}
	g := &Generator{client: goopenai.NewClientWithConfig(cfg), model: f.model, log: f.log}
	f.clients[apiKey] = g
	f.log.Info("openai client created", applogger.String("model", f.model), applogger.String("base_url", f.baseURL))
	return g, nil
}

// Generator talks to an OpenAI compatible chat completion API. It has no web
// search grounding, so Grounded requests are answered from the model alone.
type Generator struct {
	client *goopenai.Client
	model  string
	log    *applogger.Logger
}

var _ dservice.Generator = (*Generator)(nil)

func (g *Generator) Generate(ctx context.Context, req dservice.GenerateRequest) (*dservice.GenerateResponse, error) {
	creq, wrapped, err := toChatRequest(g.model, req)
	if err != nil {
		return nil, err
	}
	resp, err := g.client.CreateChatCompletion(ctx, creq)
	if err != nil {
		return nil, remoteError(err)
	}
	if len(resp.Choices) == 0 {
		return nil, remoteError(errors.New("no choices in response"))
	}
	text := resp.Choices[0].Message.Content
	if wrapped {
		text = unwrapItems(text)
	}
	return &dservice.GenerateResponse{Text: text}, nil
}

func (g *Generator) NewChat(_ context.Context, system string) (dservice.ChatSession, error) {
	s := &chatSession{client: g.client, model: g.model}
	if strings.TrimSpace(system) != "" {
		s.history = append(s.history, goopenai.ChatCompletionMessage{Role: goopenai.ChatMessageRoleSystem, Content: system})
	}
	return s, nil
}

// chatSession keeps the conversation client side; the API is stateless.
type chatSession struct {
	client  *goopenai.Client
	model   string
	history []goopenai.ChatCompletionMessage
}

func (s *chatSession) SendStream(ctx context.Context, text string, onChunk func(string) error) error {
	msgs := append(append([]goopenai.ChatCompletionMessage(nil), s.history...),
		goopenai.ChatCompletionMessage{Role: goopenai.ChatMessageRoleUser, Content: text})

	stream, err := s.client.CreateChatCompletionStream(ctx, goopenai.ChatCompletionRequest{
		Model:    s.model,
		Messages: msgs,
		Stream:   true,
	})
	if err != nil {
		return remoteError(err)
	}
	defer stream.Close()

	var reply strings.Builder
	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return remoteError(err)
		}
		if len(chunk.Choices) == 0 || chunk.Choices[0].Delta.Content == "" {
			continue
		}
		delta := chunk.Choices[0].Delta.Content
		reply.WriteString(delta)
		if err := onChunk(delta); err != nil {
			return err
		}
	}

	s.history = append(msgs, goopenai.ChatCompletionMessage{Role: goopenai.ChatMessageRoleAssistant, Content: reply.String()})
	return nil
}
