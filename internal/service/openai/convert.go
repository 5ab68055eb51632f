package openai

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	goopenai "github.com/sashabaranov/go-openai"

	"StockPulse/internal/domain/models"
	dservice "StockPulse/internal/domain/service"
)

// JSON mode only accepts object roots, so array schemas travel wrapped in
// {"items": [...]} and are unwrapped on the way back.
const itemsKey = "items"

// toChatRequest builds the completion request. wrapped reports whether the
// response needs unwrapItems.
func toChatRequest(model string, req dservice.GenerateRequest) (goopenai.ChatCompletionRequest, bool, error) {
	out := goopenai.ChatCompletionRequest{Model: model}
	if strings.TrimSpace(req.System) != "" {
		out.Messages = append(out.Messages, goopenai.ChatCompletionMessage{Role: goopenai.ChatMessageRoleSystem, Content: req.System})
	}

	prompt := req.Prompt
	wrapped := false
	if req.Schema != nil {
		schema := req.Schema
		if schema.Type == dservice.TypeArray {
			wrapped = true
			schema = &dservice.Schema{
				Type:       dservice.TypeObject,
				Properties: map[string]*dservice.Schema{itemsKey: req.Schema},
				Required:   []string{itemsKey},
			}
		}
		b, err := json.Marshal(schema)
		if err != nil {
			return out, false, fmt.Errorf("encode schema: %w", err)
		}
		prompt += "\n\nRespond with a single JSON object matching this JSON schema:\n" + string(b)
		out.ResponseFormat = &goopenai.ChatCompletionResponseFormat{
			Type: goopenai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}
	out.Messages = append(out.Messages, goopenai.ChatCompletionMessage{Role: goopenai.ChatMessageRoleUser, Content: prompt})
	return out, wrapped, nil
}

// unwrapItems returns the items array of a wrapped response. Text that is not
// a wrapper is returned unchanged and left for the caller's decoder to reject.
func unwrapItems(text string) string {
	var w map[string]json.RawMessage
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &w); err != nil {
		return text
	}
	if items, ok := w[itemsKey]; ok {
		return string(items)
	}
	return text
}

func remoteError(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		return &models.RemoteError{Status: apiErr.HTTPStatusCode, Err: err}
	}
	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) {
		return &models.RemoteError{Status: reqErr.HTTPStatusCode, Err: err}
	}
	return &models.RemoteError{Err: err}
}
