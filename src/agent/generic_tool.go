package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/elee1766/procurebot/src/aisdk"
	"github.com/go-playground/validator/v10"
	"github.com/swaggest/jsonschema-go"
)

// ErrorPrefix starts every failed tool result the model sees.
const ErrorPrefix = "Error: "

// GenericToolHandler is a type-safe handler function. The returned string is
// handed to the model verbatim.
type GenericToolHandler[TInput any] func(ctx context.Context, input TInput) (string, error)

// GenericTool is a Tool whose input schema is reflected from TInput and whose
// input is validated with `validate` struct tags before the handler runs.
type GenericTool[TInput any] struct {
	Type        string
	Name        string
	Description string
	Effect      Effect
	Schema      *jsonschema.Schema
	Handler     GenericToolHandler[TInput]

	validate *validator.Validate
}

var _ Tool = (*GenericTool[struct{}])(nil)

func (gt *GenericTool[TInput]) GetType() string                   { return gt.Type }
func (gt *GenericTool[TInput]) GetName() string                   { return gt.Name }
func (gt *GenericTool[TInput]) GetDescription() string            { return gt.Description }
func (gt *GenericTool[TInput]) GetParameters() *jsonschema.Schema { return gt.Schema }
func (gt *GenericTool[TInput]) GetEffect() Effect                 { return gt.Effect }

// Execute decodes and validates the arguments and runs the handler. Failures
// are returned as error results rather than Go errors so the model can react.
func (gt *GenericTool[TInput]) Execute(ctx context.Context, call *aisdk.ToolCall) (*aisdk.ToolResponse, error) {
	var input TInput
	if err := DecodeArguments(call.Function.Arguments, &input); err != nil {
		return ErrorResponse(fmt.Errorf("invalid input: %w", err)), nil
	}

	if err := gt.validate.Struct(input); err != nil {
		return ErrorResponse(fmt.Errorf("invalid input: %s", describeValidation(err))), nil
	}

	output, err := gt.Handler(ctx, input)
	if err != nil {
		return ErrorResponse(err), nil
	}

	return &aisdk.ToolResponse{
		Type:    "success",
		Content: []byte(output),
	}, nil
}

// ErrorResponse renders err as a model-facing error result.
func ErrorResponse(err error) *aisdk.ToolResponse {
	msg := err.Error()
	if !strings.HasPrefix(msg, ErrorPrefix) {
		msg = ErrorPrefix + msg
	}
	return &aisdk.ToolResponse{
		Type:    "error",
		Content: []byte(msg),
		IsError: true,
	}
}

// DecodeArguments unmarshals tool arguments. Providers send them either as a
// JSON object or as a JSON string containing the object; empty means {}.
func DecodeArguments(raw json.RawMessage, v any) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		raw = []byte("{}")
	}
	if raw[0] == '"' {
		var inner string
		if err := json.Unmarshal(raw, &inner); err != nil {
			return err
		}
		raw = []byte(inner)
		if strings.TrimSpace(inner) == "" {
			raw = []byte("{}")
		}
	}
	return json.Unmarshal(raw, v)
}

func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			parts = append(parts, fmt.Sprintf("required field '%s' is missing", fe.Field()))
		case "oneof":
			parts = append(parts, fmt.Sprintf("field '%s' must be one of [%s]", fe.Field(), fe.Param()))
		case "gt", "gte", "min":
			parts = append(parts, fmt.Sprintf("field '%s' must be at least %s", fe.Field(), minimumOf(fe)))
		default:
			parts = append(parts, fmt.Sprintf("field '%s' failed %s", fe.Field(), fe.Tag()))
		}
	}
	return strings.Join(parts, "; ")
}

func minimumOf(fe validator.FieldError) string {
	if fe.Tag() == "gt" {
		return fe.Param() + " (exclusive)"
	}
	return fe.Param()
}

// NewGenericTool creates a tool whose schema is reflected from TInput.
func NewGenericTool[TInput any](name, description string, effect Effect, handler GenericToolHandler[TInput]) (*GenericTool[TInput], error) {
	var input TInput
	inputType := reflect.TypeOf(input)
	if inputType == nil || inputType.Kind() != reflect.Struct {
		return nil, fmt.Errorf("tool input type must be a struct, got %v", inputType)
	}

	reflector := jsonschema.Reflector{}
	schema, err := reflector.Reflect(input)
	if err != nil {
		return nil, fmt.Errorf("failed to generate schema: %w", err)
	}

	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &GenericTool[TInput]{
		Type:        "function",
		Name:        name,
		Description: description,
		Effect:      effect,
		Schema:      &schema,
		Handler:     handler,
		validate:    v,
	}, nil
}
