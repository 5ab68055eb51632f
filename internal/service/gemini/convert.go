package gemini

import (
	"errors"

	"google.golang.org/genai"

	"StockPulse/internal/domain/models"
	dservice "StockPulse/internal/domain/service"
)

var schemaTypes = map[dservice.SchemaType]genai.Type{
	dservice.TypeObject:  genai.TypeObject,
	dservice.TypeArray:   genai.TypeArray,
	dservice.TypeString:  genai.TypeString,
	dservice.TypeNumber:  genai.TypeNumber,
	dservice.TypeBoolean: genai.TypeBoolean,
}

func toSchema(s *dservice.Schema) *genai.Schema {
	if s == nil {
		return nil
	}
	out := &genai.Schema{
		Type:     schemaTypes[s.Type],
		Required: s.Required,
		Enum:     s.Enum,
		Items:    toSchema(s.Items),
	}
	if len(s.Properties) > 0 {
		out.Properties = make(map[string]*genai.Schema, len(s.Properties))
		for name, p := range s.Properties {
			out.Properties[name] = toSchema(p)
		}
	}
	return out
}

// groundingSources collects the web references of the first candidate.
func groundingSources(resp *genai.GenerateContentResponse) []models.Source {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0] == nil {
		return nil
	}
	meta := resp.Candidates[0].GroundingMetadata
	if meta == nil {
		return nil
	}
	var out []models.Source
	for _, chunk := range meta.GroundingChunks {
		if chunk == nil || chunk.Web == nil {
			continue
		}
		src := models.Source{Title: chunk.Web.Title, URI: chunk.Web.URI}
		if src.Title == "" {
			src.Title = "Source"
		}
		if src.URI == "" {
			src.URI = "#"
		}
		out = append(out, src)
	}
	return out
}

// remoteError keeps the HTTP status of SDK errors so that rate limits are recognised.
func remoteError(err error) error {
	if err == nil {
		return nil
	}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &models.RemoteError{Status: apiErr.Code, Err: err}
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return &models.RemoteError{Status: apiErrPtr.Code, Err: err}
	}
	return &models.RemoteError{Err: err}
}
