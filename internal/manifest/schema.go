package manifest

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

const (
	manifestSchemaResourceNameConstant  = "manifest.schema.json"
	jsonPointerSeparatorConstant        = "/"
	reposKeyConstant                    = "repos"
	schemaCompileErrorTemplateConstant  = "compile manifest schema: %w"
	schemaConvertErrorTemplateConstant  = "convert document for validation: %v"
	unsupportedNodeKindTemplateConstant = "unsupported YAML node kind %d"
)

//go:embed manifest.schema.json
var manifestSchemaDocument []byte

var (
	compiledSchemaOnce  sync.Once
	compiledSchema      *jsonschema.Schema
	compiledSchemaError error
)

func manifestSchema() (*jsonschema.Schema, error) {
	compiledSchemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if resourceError := compiler.AddResource(manifestSchemaResourceNameConstant, bytes.NewReader(manifestSchemaDocument)); resourceError != nil {
			compiledSchemaError = fmt.Errorf(schemaCompileErrorTemplateConstant, resourceError)
			return
		}
		compiledSchema, compiledSchemaError = compiler.Compile(manifestSchemaResourceNameConstant)
		if compiledSchemaError != nil {
			compiledSchemaError = fmt.Errorf(schemaCompileErrorTemplateConstant, compiledSchemaError)
		}
	})
	return compiledSchema, compiledSchemaError
}

// validateStructure checks a decoded YAML document against the manifest schema.
func validateStructure(document *yaml.Node) error {
	schema, schemaError := manifestSchema()
	if schemaError != nil {
		return schemaError
	}

	genericValue, conversionError := nodeToValue(document)
	if conversionError != nil {
		return ParseError{Message: conversionError.Error()}
	}
	encodedDocument, encodeError := json.Marshal(genericValue)
	if encodeError != nil {
		return ParseError{Message: fmt.Sprintf(schemaConvertErrorTemplateConstant, encodeError)}
	}
	var instance any
	if decodeError := json.Unmarshal(encodedDocument, &instance); decodeError != nil {
		return ParseError{Message: fmt.Sprintf(schemaConvertErrorTemplateConstant, decodeError)}
	}

	validationError := schema.Validate(instance)
	if validationError == nil {
		return nil
	}
	var schemaViolation *jsonschema.ValidationError
	if !errors.As(validationError, &schemaViolation) {
		return ParseError{Message: validationError.Error()}
	}
	leaf := schemaViolation
	for len(leaf.Causes) > 0 {
		leaf = leaf.Causes[0]
	}
	return ParseError{Entry: entryFromInstanceLocation(leaf.InstanceLocation), Message: leaf.Message}
}

// entryFromInstanceLocation names the manifest entry a JSON pointer refers to.
func entryFromInstanceLocation(instanceLocation string) string {
	trimmed := strings.TrimPrefix(instanceLocation, jsonPointerSeparatorConstant)
	if len(trimmed) == 0 {
		return ""
	}
	segments := strings.Split(trimmed, jsonPointerSeparatorConstant)
	for index := range segments {
		segments[index] = strings.NewReplacer("~1", "/", "~0", "~").Replace(segments[index])
	}
	if segments[0] == reposKeyConstant && len(segments) > 1 {
		return segments[1]
	}
	return segments[0]
}

// nodeToValue converts a YAML node tree into JSON-compatible values. Mapping keys stay strings
// so numeric-looking child paths are not reinterpreted.
func nodeToValue(node *yaml.Node) (any, error) {
	switch node.Kind {
	case yaml.DocumentNode:
		if len(node.Content) == 0 {
			return nil, nil
		}
		return nodeToValue(node.Content[0])
	case yaml.MappingNode:
		mapping := make(map[string]any, len(node.Content)/2)
		for index := 0; index+1 < len(node.Content); index += 2 {
			value, valueError := nodeToValue(node.Content[index+1])
			if valueError != nil {
				return nil, valueError
			}
			mapping[node.Content[index].Value] = value
		}
		return mapping, nil
	case yaml.SequenceNode:
		sequence := make([]any, 0, len(node.Content))
		for _, item := range node.Content {
			value, valueError := nodeToValue(item)
			if valueError != nil {
				return nil, valueError
			}
			sequence = append(sequence, value)
		}
		return sequence, nil
	case yaml.AliasNode:
		return nodeToValue(node.Alias)
	case yaml.ScalarNode:
		var scalar any
		if decodeError := node.Decode(&scalar); decodeError != nil {
			return nil, decodeError
		}
		return scalar, nil
	default:
		return nil, fmt.Errorf(unsupportedNodeKindTemplateConstant, node.Kind)
	}
}
