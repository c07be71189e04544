package bot

import (
	"bytes"
	"fmt"
	"io"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"github.com/rs/zerolog/log"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Card submit actions dispatched by the handler.
const (
	ActionSelectSoftware = "select_software"
	ActionApproveRequest = "approve_request"
	ActionRejectRequest  = "reject_request"
	ActionAcceptInstall  = "accept_install"
)

const selectSoftwareSchema = `
{
  "type": "object",
  "properties": {
    "action": { "const": "select_software" },
    "selection": { "type": "string", "minLength": 1 }
  },
  "required": ["action", "selection"]
}`

const decisionSchema = `
{
  "type": "object",
  "properties": {
    "action": { "enum": ["approve_request", "reject_request"] },
    "request_id": { "type": "integer", "minimum": 1 }
  },
  "required": ["action", "request_id"]
}`

const acceptInstallSchema = `
{
  "type": "object",
  "properties": {
    "action": { "const": "accept_install" },
    "request_id": { "type": "integer", "minimum": 1 }
  },
  "required": ["action", "request_id"]
}`

// SelectSoftwarePayload is the submit payload of the selection card. The
// Selection field carries the JSON-encoded softwareChoice of the picked row.
type SelectSoftwarePayload struct {
	Action    string `mapstructure:"action" validate:"required"`
	Selection string `mapstructure:"selection" validate:"required"`
}

// DecisionPayload is the submit payload of the approval card.
type DecisionPayload struct {
	Action    string `mapstructure:"action" validate:"required"`
	RequestID int64  `mapstructure:"request_id" validate:"required,gt=0"`
}

// AcceptInstallPayload is the submit payload of the confirm-install card.
type AcceptInstallPayload struct {
	Action    string `mapstructure:"action" validate:"required"`
	RequestID int64  `mapstructure:"request_id" validate:"required,gt=0"`
}

var (
	actionSchemas   map[string]*jsonschema.Schema
	payloadValidate = validator.New()
)

func init() {
	actionSchemas = map[string]*jsonschema.Schema{
		ActionSelectSoftware: mustCompileSchema(selectSoftwareSchema),
		ActionApproveRequest: mustCompileSchema(decisionSchema),
		ActionRejectRequest:  mustCompileSchema(decisionSchema),
		ActionAcceptInstall:  mustCompileSchema(acceptInstallSchema),
	}
}

func mustCompileSchema(schema string) *jsonschema.Schema {
	compiled, err := compileSchema(schema)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to compile action schema")
	}
	return compiled
}

// compileSchema compiles a JSON schema string into a jsonschema.Schema
func compileSchema(schema string) (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	compiler.LoadURL = func(url string) (io.ReadCloser, error) {
		if url == "inline://schema" {
			return io.NopCloser(bytes.NewReader([]byte(schema))), nil
		}
		return nil, fmt.Errorf("unsupported schema ref: %s", url)
	}
	if err := compiler.AddResource("inline://schema", bytes.NewReader([]byte(schema))); err != nil {
		return nil, fmt.Errorf("failed to add schema resource: %w", err)
	}
	compiledSchema, err := compiler.Compile("inline://schema")
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema: %w", err)
	}

	return compiledSchema, nil
}

// actionName extracts the action discriminator from a card submit value.
func actionName(value map[string]any) string {
	action, _ := value["action"].(string)
	return action
}

// decodeAction validates value against the action's schema and decodes it
// into out, which must be a pointer to one of the payload types. Validation
// fails closed: an unknown action or a payload that misses the schema never
// reaches the typed decode.
func decodeAction(action string, value map[string]any, out any) error {
	schema, ok := actionSchemas[action]
	if !ok {
		return fmt.Errorf("unknown action: %s", action)
	}
	if err := schema.Validate(normalizeJSON(value)); err != nil {
		return fmt.Errorf("payload does not match schema for %s: %w", action, err)
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	if err := decoder.Decode(value); err != nil {
		return fmt.Errorf("failed to decode %s payload: %w", action, err)
	}

	if err := payloadValidate.Struct(out); err != nil {
		return fmt.Errorf("invalid %s payload: %w", action, err)
	}
	return nil
}

// normalizeJSON rewrites a decoded JSON value so that numbers appear the way
// the schema validator expects regardless of how the HTTP layer decoded them.
func normalizeJSON(v any) any {
	switch t := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, val := range t {
			m[k] = normalizeJSON(val)
		}
		return m
	case []any:
		s := make([]any, len(t))
		for i, val := range t {
			s[i] = normalizeJSON(val)
		}
		return s
	case int:
		return float64(t)
	case int64:
		return float64(t)
	default:
		return v
	}
}
