package feedback

import (
	"encoding/json"
	"strings"

	"duotoeic/internal/apperr"

	"github.com/google/jsonschema-go/jsonschema"
)

type schema struct {
	raw      *jsonschema.Schema
	resolved *jsonschema.Resolved
}

func newSchema(s *jsonschema.Schema) (*schema, error) {
	resolved, err := s.Resolve(nil)
	if err != nil {
		return nil, err
	}
	return &schema{raw: s, resolved: resolved}, nil
}

func ptr[T any](v T) *T { return &v }

func writingSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"estimatedScore": {Type: "integer", Minimum: ptr(0.0), Maximum: ptr(200.0)},
			"correctedText":  {Type: "string"},
			"critique":       {Type: "string"},
			"betterVocab": {
				Type:     "array",
				Items:    &jsonschema.Schema{Type: "string"},
				MinItems: ptr(3),
				MaxItems: ptr(5),
			},
		},
		Required: []string{"estimatedScore", "correctedText", "critique", "betterVocab"},
	}
}

func speakingSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"fluencyScore":   {Type: "integer", Minimum: ptr(1.0), Maximum: ptr(10.0)},
			"relevanceScore": {Type: "integer", Minimum: ptr(1.0), Maximum: ptr(10.0)},
			"feedback":       {Type: "string"},
			"sampleAnswer":   {Type: "string"},
		},
		Required: []string{"fluencyScore", "relevanceScore", "feedback", "sampleAnswer"},
	}
}

// decode validates text against s before filling dst, so dst is either
// fully populated or untouched.
func (s *schema) decode(text string, dst any) error {
	text = stripFence(text)
	var instance any
	if err := json.Unmarshal([]byte(text), &instance); err != nil {
		return apperr.Wrap(apperr.CodeInvalidPayload, "feedback is not valid JSON", err)
	}
	if err := s.resolved.Validate(instance); err != nil {
		return apperr.Wrap(apperr.CodeInvalidPayload, "feedback does not match schema: "+err.Error(), err)
	}
	if err := json.Unmarshal([]byte(text), dst); err != nil {
		return apperr.Wrap(apperr.CodeInvalidPayload, "decode feedback", err)
	}
	return nil
}

// stripFence removes a ```json fence some models wrap around JSON output.
func stripFence(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimPrefix(text, "json")
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}
