package gemini

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"google.golang.org/genai"

	"github.com/elee1766/procurebot/src/aisdk"
)

// toGeminiRequest splits an OpenAI-format request into the system
// instruction, the contents, and the generation config.
func toGeminiRequest(req *aisdk.ChatCompletionRequest) ([]*genai.Content, *genai.GenerateContentConfig, error) {
	config := &genai.GenerateContentConfig{}
	if req.Temperature != nil {
		t := float32(*req.Temperature)
		config.Temperature = &t
	}
	if req.TopP != nil {
		p := float32(*req.TopP)
		config.TopP = &p
	}
	if req.MaxTokens != nil {
		config.MaxOutputTokens = int32(*req.MaxTokens)
	}
	if len(req.Stop) > 0 {
		config.StopSequences = req.Stop
	}
	if len(req.Tools) > 0 {
		tools, err := toGeminiTools(req.Tools)
		if err != nil {
			return nil, nil, err
		}
		config.Tools = tools
	}

	var system []string
	callNames := make(map[string]string)
	contents := make([]*genai.Content, 0, len(req.Messages))

	for _, msg := range req.Messages {
		if msg == nil {
			continue
		}
		var role string
		var parts []*genai.Part

		switch msg.Role {
		case aisdk.RoleSystem:
			if text := msg.TextContent(); text != "" {
				system = append(system, text)
			}
			continue

		case aisdk.RoleAssistant:
			role = genai.RoleModel
			if text := msg.TextContent(); text != "" {
				parts = append(parts, genai.NewPartFromText(text))
			}
			for _, tc := range msg.ToolCalls {
				args, err := decodeArgs(tc.Function.Arguments)
				if err != nil {
					return nil, nil, fmt.Errorf("tool call %s: %w", tc.ID, err)
				}
				callNames[tc.ID] = tc.Function.Name
				parts = append(parts, &genai.Part{FunctionCall: &genai.FunctionCall{
					ID:   tc.ID,
					Name: tc.Function.Name,
					Args: args,
				}})
			}

		case aisdk.RoleTool:
			role = genai.RoleUser
			name := msg.Name
			if name == "" {
				name = callNames[msg.ToolCallID]
			}
			parts = append(parts, &genai.Part{FunctionResponse: &genai.FunctionResponse{
				ID:       msg.ToolCallID,
				Name:     name,
				Response: map[string]any{"output": msg.TextContent()},
			}})

		default:
			role = genai.RoleUser
			p, err := userParts(msg)
			if err != nil {
				return nil, nil, err
			}
			parts = p
		}

		if len(parts) == 0 {
			continue
		}
		// Gemini expects alternating roles; consecutive tool results share one turn.
		if n := len(contents); n > 0 && contents[n-1].Role == role {
			contents[n-1].Parts = append(contents[n-1].Parts, parts...)
			continue
		}
		contents = append(contents, &genai.Content{Role: role, Parts: parts})
	}

	if len(system) > 0 {
		config.SystemInstruction = genai.NewContentFromText(strings.Join(system, "\n\n"), genai.RoleUser)
	}
	return contents, config, nil
}

func userParts(msg *aisdk.Message) ([]*genai.Part, error) {
	if len(msg.Parts) == 0 {
		if msg.Content == "" {
			return nil, nil
		}
		return []*genai.Part{genai.NewPartFromText(msg.Content)}, nil
	}
	parts := make([]*genai.Part, 0, len(msg.Parts))
	for _, p := range msg.Parts {
		switch p.Type {
		case aisdk.ContentTypeImage:
			if p.ImageURL == nil {
				continue
			}
			mime, data, err := aisdk.DecodeDataURL(p.ImageURL.URL)
			if err != nil {
				return nil, fmt.Errorf("image part: %w", err)
			}
			parts = append(parts, genai.NewPartFromBytes(data, mime))
		default:
			if p.Text != "" {
				parts = append(parts, genai.NewPartFromText(p.Text))
			}
		}
	}
	return parts, nil
}

func decodeArgs(raw json.RawMessage) (map[string]any, error) {
	args := map[string]any{}
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return args, nil
	}
	if strings.HasPrefix(s, `"`) {
		var inner string
		if err := json.Unmarshal(raw, &inner); err != nil {
			return nil, err
		}
		s = inner
		if strings.TrimSpace(s) == "" {
			return args, nil
		}
	}
	if err := json.Unmarshal([]byte(s), &args); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	return args, nil
}

// toGeminiTools converts chat tools into one function-declaration tool.
func toGeminiTools(tools []*aisdk.ChatTool) ([]*genai.Tool, error) {
	decls := make([]*genai.FunctionDeclaration, 0, len(tools))
	for _, t := range tools {
		fd := &genai.FunctionDeclaration{
			Name:        t.Function.Name,
			Description: t.Function.Description,
		}
		if t.Function.Parameters != nil {
			raw, err := json.Marshal(t.Function.Parameters)
			if err != nil {
				return nil, fmt.Errorf("tool %s: %w", t.Function.Name, err)
			}
			schema, err := toGeminiSchema(raw)
			if err != nil {
				return nil, fmt.Errorf("tool %s: %w", t.Function.Name, err)
			}
			fd.Parameters = schema
		}
		decls = append(decls, fd)
	}
	return []*genai.Tool{{FunctionDeclarations: decls}}, nil
}

// jsonSchema is the subset of JSON Schema the tool inputs use.
type jsonSchema struct {
	Type        json.RawMessage            `json:"type"`
	Description string                     `json:"description"`
	Properties  map[string]json.RawMessage `json:"properties"`
	Required    []string                   `json:"required"`
	Enum        []any                      `json:"enum"`
	Items       json.RawMessage            `json:"items"`
	Minimum     *float64                   `json:"minimum"`
	Maximum     *float64                   `json:"maximum"`
}

func toGeminiSchema(raw json.RawMessage) (*genai.Schema, error) {
	var s jsonSchema
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, err
	}

	typ, nullable := schemaType(s.Type)
	out := &genai.Schema{
		Type:        typ,
		Description: s.Description,
		Required:    s.Required,
		Minimum:     s.Minimum,
		Maximum:     s.Maximum,
	}
	if nullable {
		out.Nullable = genai.Ptr(true)
	}
	for _, e := range s.Enum {
		out.Enum = append(out.Enum, fmt.Sprint(e))
	}
	if len(s.Properties) > 0 {
		out.Properties = make(map[string]*genai.Schema, len(s.Properties))
		for name, prop := range s.Properties {
			ps, err := toGeminiSchema(prop)
			if err != nil {
				return nil, fmt.Errorf("property %s: %w", name, err)
			}
			out.Properties[name] = ps
		}
	}
	if len(s.Items) > 0 && s.Items[0] == '{' {
		items, err := toGeminiSchema(s.Items)
		if err != nil {
			return nil, fmt.Errorf("items: %w", err)
		}
		out.Items = items
	}
	if out.Type == genai.TypeUnspecified && len(out.Properties) > 0 {
		out.Type = genai.TypeObject
	}
	return out, nil
}

// schemaType handles both "string" and ["string","null"] forms.
func schemaType(raw json.RawMessage) (genai.Type, bool) {
	if len(raw) == 0 {
		return genai.TypeUnspecified, false
	}
	var single string
	if json.Unmarshal(raw, &single) == nil {
		return simpleType(single), false
	}
	var many []string
	if json.Unmarshal(raw, &many) != nil {
		return genai.TypeUnspecified, false
	}
	typ, nullable := genai.TypeUnspecified, false
	for _, t := range many {
		if t == "null" {
			nullable = true
			continue
		}
		typ = simpleType(t)
	}
	return typ, nullable
}

func simpleType(t string) genai.Type {
	switch t {
	case "string":
		return genai.TypeString
	case "number":
		return genai.TypeNumber
	case "integer":
		return genai.TypeInteger
	case "boolean":
		return genai.TypeBoolean
	case "array":
		return genai.TypeArray
	case "object":
		return genai.TypeObject
	default:
		return genai.TypeUnspecified
	}
}

// fromGeminiResponse converts a (possibly partial) response into an assistant
// message. Function calls without an id get a synthesized one.
func fromGeminiResponse(resp *genai.GenerateContentResponse) (aisdk.Message, string, *aisdk.Usage, error) {
	msg := aisdk.Message{Role: aisdk.RoleAssistant}
	var usage *aisdk.Usage
	if resp.UsageMetadata != nil {
		usage = &aisdk.Usage{
			PromptTokens:     int(resp.UsageMetadata.PromptTokenCount),
			CompletionTokens: int(resp.UsageMetadata.CandidatesTokenCount),
			TotalTokens:      int(resp.UsageMetadata.TotalTokenCount),
		}
	}
	if len(resp.Candidates) == 0 {
		return msg, "", usage, ErrNoCandidates
	}

	cand := resp.Candidates[0]
	if cand.FinishReason == genai.FinishReasonSafety {
		return msg, "", usage, ErrContentBlocked
	}

	var text strings.Builder
	if cand.Content != nil {
		for _, part := range cand.Content.Parts {
			switch {
			case part.FunctionCall != nil:
				args, err := json.Marshal(part.FunctionCall.Args)
				if err != nil {
					return msg, "", usage, err
				}
				if part.FunctionCall.Args == nil {
					args = []byte("{}")
				}
				id := part.FunctionCall.ID
				if id == "" {
					id = "call_" + uuid.NewString()
				}
				msg.ToolCalls = append(msg.ToolCalls, aisdk.ToolCall{
					ID:       id,
					Type:     "function",
					Function: aisdk.FunctionCall{Name: part.FunctionCall.Name, Arguments: args},
				})
			case part.Thought:
			case part.Text != "":
				text.WriteString(part.Text)
			}
		}
	}
	msg.Content = text.String()

	return msg, finishReason(cand.FinishReason, len(msg.ToolCalls) > 0), usage, nil
}

func finishReason(r genai.FinishReason, hasCalls bool) string {
	switch {
	case hasCalls:
		return "tool_calls"
	case r == genai.FinishReasonMaxTokens:
		return "length"
	case r == "":
		return ""
	default:
		return "stop"
	}
}
