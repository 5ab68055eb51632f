package service

import (
	"context"

	"StockPulse/internal/domain/models"
)

// SchemaType mirrors the JSON schema primitive types.
type SchemaType string

const (
	TypeObject  SchemaType = "object"
	TypeArray   SchemaType = "array"
	TypeString  SchemaType = "string"
	TypeNumber  SchemaType = "number"
	TypeBoolean SchemaType = "boolean"
)

// Schema is a provider-neutral response schema. Each Generator translates it
// to its own wire form.
type Schema struct {
	Type       SchemaType         `json:"type"`
	Properties map[string]*Schema `json:"properties,omitempty"`
	Items      *Schema            `json:"items,omitempty"`
	Required   []string           `json:"required,omitempty"`
	Enum       []string           `json:"enum,omitempty"`
}

type GenerateRequest struct {
	Prompt string
	System string
	// Schema, when set, asks for a JSON document of that shape.
	Schema *Schema
	// Grounded enables live web search grounding.
	Grounded bool
}

type GenerateResponse struct {
	Text    string
	Sources []models.Source
}

// Generator is one configured connection to a generative AI provider.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error)
	NewChat(ctx context.Context, system string) (ChatSession, error)
}

// ChatSession keeps conversation history on the provider side.
type ChatSession interface {
	// SendStream sends text and calls onChunk for every streamed text
	// fragment. Returning an error from onChunk aborts the stream.
	SendStream(ctx context.Context, text string, onChunk func(chunk string) error) error
}

// GeneratorFactory builds a Generator for a credential.
type GeneratorFactory interface {
	ForKey(ctx context.Context, apiKey string) (Generator, error)
}
