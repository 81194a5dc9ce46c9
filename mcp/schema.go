package mcp

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	agentpay "github.com/x402-foundation/agentpay"
)

// Schema fragments shared by several tools
var (
	chainProperty = map[string]interface{}{
		"type":        "string",
		"description": "Chain to use (base or solana); defaults to the configured default chain",
	}
	amountProperty = map[string]interface{}{
		"type":        "string",
		"description": "USDC amount as a decimal string, e.g. \"1.50\"",
	}
)

func objectSchema(properties map[string]interface{}, required ...string) map[string]interface{} {
	schema := map[string]interface{}{
		"type":                 "object",
		"properties":           properties,
		"additionalProperties": false,
	}
	if len(required) > 0 {
		req := make([]interface{}, len(required))
		for i, r := range required {
			req[i] = r
		}
		schema["required"] = req
	}
	return schema
}

// argValidator checks raw tool arguments against a compiled JSON schema
type argValidator struct {
	schema *gojsonschema.Schema
}

func newArgValidator(schema map[string]interface{}) (*argValidator, error) {
	compiled, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(schema))
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema: %w", err)
	}
	return &argValidator{schema: compiled}, nil
}

// decode validates raw and unmarshals it into dst.
// Empty arguments are treated as an empty object.
func (v *argValidator) decode(raw json.RawMessage, dst interface{}) error {
	if len(strings.TrimSpace(string(raw))) == 0 || string(raw) == "null" {
		raw = json.RawMessage("{}")
	}

	result, err := v.schema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return agentpay.WrapError(agentpay.ErrCodeInvalidRequest, "arguments are not valid JSON", err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return agentpay.NewError(agentpay.ErrCodeInvalidRequest,
			"invalid arguments: "+strings.Join(msgs, "; "),
			map[string]interface{}{"violations": msgs})
	}

	if err := json.Unmarshal(raw, dst); err != nil {
		return agentpay.WrapError(agentpay.ErrCodeInvalidRequest, "failed to decode arguments", err)
	}
	return nil
}
