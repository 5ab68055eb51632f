package gemini

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"google.golang.org/genai"

	dservice "StockPulse/internal/domain/service"
	applogger "StockPulse/pkg/logger"
)

const DefaultModel = "gemini-3-flash-preview"

// Factory builds one Generator per API key and reuses it.
type Factory struct {
	model string
	log   *applogger.Logger

	mu      sync.Mutex
	clients map[string]*Generator
}

// NewFactory creates a Gemini generator factory for model.
func NewFactory(model string, l *applogger.Logger) *Factory {
	if model == "" {
		model = DefaultModel
	}
	return &Factory{model: model, log: l, clients: make(map[string]*Generator)}
}

var _ dservice.GeneratorFactory = (*Factory)(nil)

func (f *Factory) ForKey(ctx context.Context, apiKey string) (dservice.Generator, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if g, ok := f.clients[apiKey]; ok {
		return g, nil
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	g := &Generator{client: client, model: f.model, log: f.log}
	f.clients[apiKey] = g
	f.log.Info("gemini client created", applogger.String("model", f.model), applogger.Int("clients", len(f.clients)))
	return g, nil
}

// Generator talks to the Gemini API through the genai SDK.
type Generator struct {
	client *genai.Client
	model  string
	log    *applogger.Logger
}

var _ dservice.Generator = (*Generator)(nil)

func (g *Generator) Generate(ctx context.Context, req dservice.GenerateRequest) (*dservice.GenerateResponse, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(req.Prompt), buildConfig(req.System, req.Schema, req.Grounded))
	if err != nil {
		return nil, remoteError(err)
	}
	return &dservice.GenerateResponse{
		Text:    resp.Text(),
		Sources: groundingSources(resp),
	}, nil
}

func (g *Generator) NewChat(ctx context.Context, system string) (dservice.ChatSession, error) {
	chat, err := g.client.Chats.Create(ctx, g.model, buildConfig(system, nil, true), nil)
	if err != nil {
		return nil, remoteError(err)
	}
	return &chatSession{chat: chat}, nil
}

type chatSession struct {
	chat *genai.Chat
}

func (s *chatSession) SendStream(ctx context.Context, text string, onChunk func(string) error) error {
	for resp, err := range s.chat.SendMessageStream(ctx, genai.Part{Text: text}) {
		if err != nil {
			return remoteError(err)
		}
		chunk := resp.Text()
		if chunk == "" {
			continue
		}
		if err := onChunk(chunk); err != nil {
			return err
		}
	}
	return nil
}

func buildConfig(system string, schema *dservice.Schema, grounded bool) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{}
	if strings.TrimSpace(system) != "" {
		cfg.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}
	if grounded {
		cfg.Tools = []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}}
	}
	if schema != nil {
		cfg.ResponseMIMEType = "application/json"
		cfg.ResponseSchema = toSchema(schema)
	}
	return cfg
}
