package gemini

import (
	"errors"
	"fmt"
	"testing"

	"google.golang.org/genai"

	"StockPulse/internal/domain/models"
	dservice "StockPulse/internal/domain/service"
)

func TestToSchemaMapsNestedTypes(t *testing.T) {
	in := &dservice.Schema{
		Type: dservice.TypeArray,
		Items: &dservice.Schema{
			Type: dservice.TypeObject,
			Properties: map[string]*dservice.Schema{
				"ticker": {Type: dservice.TypeString},
				"score":  {Type: dservice.TypeNumber},
			},
			Required: []string{"ticker"},
		},
	}
	out := toSchema(in)
	if out.Type != genai.TypeArray || out.Items.Type != genai.TypeObject {
		t.Fatalf("unexpected schema %+v", out)
	}
	if out.Items.Properties["score"].Type != genai.TypeNumber || out.Items.Required[0] != "ticker" {
		t.Fatalf("unexpected item schema %+v", out.Items)
	}
}

func TestBuildConfig(t *testing.T) {
	cfg := buildConfig("be terse", &dservice.Schema{Type: dservice.TypeObject}, true)
	if cfg.ResponseMIMEType != "application/json" || cfg.ResponseSchema == nil {
		t.Fatalf("schema requests must ask for JSON")
	}
	if len(cfg.Tools) != 1 || cfg.Tools[0].GoogleSearch == nil {
		t.Fatalf("grounded requests must enable search")
	}
	if cfg.SystemInstruction == nil || cfg.SystemInstruction.Parts[0].Text != "be terse" {
		t.Fatalf("system instruction missing")
	}

	plain := buildConfig("", nil, false)
	if plain.ResponseMIMEType != "" || plain.Tools != nil || plain.SystemInstruction != nil {
		t.Fatalf("unexpected plain config %+v", plain)
	}
}

func TestGroundingSources(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			GroundingMetadata: &genai.GroundingMetadata{
				GroundingChunks: []*genai.GroundingChunk{
					{Web: &genai.GroundingChunkWeb{URI: "https://a.example", Title: "A"}},
					{},
					{Web: &genai.GroundingChunkWeb{}},
				},
			},
		}},
	}
	got := groundingSources(resp)
	want := []models.Source{{Title: "A", URI: "https://a.example"}, {Title: "Source", URI: "#"}}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("got %+v, want %+v", got, want)
	}
	if groundingSources(&genai.GenerateContentResponse{}) != nil {
		t.Fatalf("no candidates means no sources")
	}
}

func TestRemoteErrorKeepsStatus(t *testing.T) {
	err := remoteError(fmt.Errorf("call: %w", genai.APIError{Code: 429, Message: "Resource exhausted"}))
	var re *models.RemoteError
	if !errors.As(err, &re) || re.Status != 429 {
		t.Fatalf("status lost: %v", err)
	}

	err = remoteError(errors.New("dial tcp: timeout"))
	if !errors.As(err, &re) || re.Status != 0 {
		t.Fatalf("unexpected error %v", err)
	}
}
