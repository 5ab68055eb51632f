package openai

import (
	"errors"
	"strings"
	"testing"

	goopenai "github.com/sashabaranov/go-openai"

	"StockPulse/internal/domain/models"
	dservice "StockPulse/internal/domain/service"
)

func TestToChatRequestWrapsArraySchemas(t *testing.T) {
	req := dservice.GenerateRequest{
		Prompt: "List stocks",
		System: "be brief",
		Schema: &dservice.Schema{Type: dservice.TypeArray, Items: &dservice.Schema{Type: dservice.TypeString}},
	}
	out, wrapped, err := toChatRequest("m", req)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if !wrapped {
		t.Fatalf("array schema must be wrapped")
	}
	if len(out.Messages) != 2 || out.Messages[0].Role != goopenai.ChatMessageRoleSystem {
		t.Fatalf("unexpected messages %+v", out.Messages)
	}
	if !strings.Contains(out.Messages[1].Content, `"items"`) {
		t.Fatalf("schema not embedded in prompt: %s", out.Messages[1].Content)
	}
	if out.ResponseFormat == nil || out.ResponseFormat.Type != goopenai.ChatCompletionResponseFormatTypeJSONObject {
		t.Fatalf("JSON mode not requested")
	}
}

func TestToChatRequestPlainText(t *testing.T) {
	out, wrapped, err := toChatRequest("m", dservice.GenerateRequest{Prompt: "Summarize"})
	if err != nil || wrapped || out.ResponseFormat != nil {
		t.Fatalf("plain requests need no JSON mode: %+v %v %v", out, wrapped, err)
	}
	if out.Messages[0].Content != "Summarize" {
		t.Fatalf("unexpected prompt %q", out.Messages[0].Content)
	}
}

func TestUnwrapItems(t *testing.T) {
	if got := unwrapItems(`{"items": [{"ticker": "AAPL"}]}`); got != `[{"ticker": "AAPL"}]` {
		t.Fatalf("unexpected unwrap %q", got)
	}
	if got := unwrapItems("not json"); got != "not json" {
		t.Fatalf("garbage must pass through, got %q", got)
	}
}

func TestRemoteErrorKeepsStatus(t *testing.T) {
	err := remoteError(&goopenai.APIError{HTTPStatusCode: 429, Message: "Rate limit reached"})
	var re *models.RemoteError
	if !errors.As(err, &re) || re.Status != 429 {
		t.Fatalf("status lost: %v", err)
	}
}
