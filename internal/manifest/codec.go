package manifest

import (
	"bytes"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	postCloneKeyConstant              = "post_clone"
	postPullKeyConstant               = "post_pull"
	yamlIndentConstant                = 2
	yamlMapTagConstant                = "!!map"
	yamlStringTagConstant             = "!!str"
	yamlSequenceTagConstant           = "!!seq"
	malformedDocumentTemplateConstant = "malformed document: %v"
	malformedEntryTemplateConstant    = "malformed entry: %v"
	malformedHooksTemplateConstant    = "malformed hook list: %v"
	encodeEntryErrorTemplateConstant  = "encode entry %q: %w"
	encodeDocumentTemplateConstant    = "encode manifest: %w"
)

// Decode parses a manifest document. An empty document is an empty manifest.
func Decode(data []byte) (*Manifest, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return New(), nil
	}

	var document yaml.Node
	if unmarshalError := yaml.Unmarshal(data, &document); unmarshalError != nil {
		return nil, ParseError{Message: fmt.Sprintf(malformedDocumentTemplateConstant, unmarshalError)}
	}
	if structureError := validateStructure(&document); structureError != nil {
		return nil, structureError
	}

	manifest := New()
	if len(document.Content) == 0 || document.Content[0].Kind != yaml.MappingNode {
		return manifest, nil
	}
	rootNode := document.Content[0]
	for index := 0; index+1 < len(rootNode.Content); index += 2 {
		keyNode := rootNode.Content[index]
		valueNode := rootNode.Content[index+1]
		switch keyNode.Value {
		case reposKeyConstant:
			if decodeError := decodeRepositories(manifest, valueNode); decodeError != nil {
				return nil, decodeError
			}
		case postCloneKeyConstant:
			if decodeError := valueNode.Decode(&manifest.PostClone); decodeError != nil {
				return nil, ParseError{Entry: postCloneKeyConstant, Message: fmt.Sprintf(malformedHooksTemplateConstant, decodeError)}
			}
		case postPullKeyConstant:
			if decodeError := valueNode.Decode(&manifest.PostPull); decodeError != nil {
				return nil, ParseError{Entry: postPullKeyConstant, Message: fmt.Sprintf(malformedHooksTemplateConstant, decodeError)}
			}
		}
	}

	if validationError := Validate(manifest); validationError != nil {
		return nil, validationError
	}
	return manifest, nil
}

func decodeRepositories(manifest *Manifest, repositoriesNode *yaml.Node) error {
	if repositoriesNode.Kind != yaml.MappingNode {
		return nil
	}
	for index := 0; index+1 < len(repositoriesNode.Content); index += 2 {
		childPath := repositoriesNode.Content[index].Value
		var entry RepoEntry
		if decodeError := repositoriesNode.Content[index+1].Decode(&entry); decodeError != nil {
			return ParseError{Entry: childPath, Message: fmt.Sprintf(malformedEntryTemplateConstant, decodeError)}
		}
		manifest.declarations = append(manifest.declarations, Declaration{Path: childPath, Entry: entry})
	}
	return nil
}

// Encode renders a manifest as YAML, preserving declaration order and omitting empty sections.
func Encode(manifest *Manifest) ([]byte, error) {
	rootNode := &yaml.Node{Kind: yaml.MappingNode, Tag: yamlMapTagConstant}

	if manifest.Len() > 0 {
		repositoriesNode := &yaml.Node{Kind: yaml.MappingNode, Tag: yamlMapTagConstant}
		for _, declaration := range manifest.Declarations() {
			entryNode := &yaml.Node{}
			if encodeError := entryNode.Encode(declaration.Entry); encodeError != nil {
				return nil, fmt.Errorf(encodeEntryErrorTemplateConstant, declaration.Path, encodeError)
			}
			repositoriesNode.Content = append(repositoriesNode.Content, stringNode(declaration.Path), entryNode)
		}
		rootNode.Content = append(rootNode.Content, stringNode(reposKeyConstant), repositoriesNode)
	}
	appendHooks(rootNode, postCloneKeyConstant, manifest.PostClone)
	appendHooks(rootNode, postPullKeyConstant, manifest.PostPull)

	if len(rootNode.Content) == 0 {
		return []byte{}, nil
	}

	var buffer bytes.Buffer
	encoder := yaml.NewEncoder(&buffer)
	encoder.SetIndent(yamlIndentConstant)
	if encodeError := encoder.Encode(rootNode); encodeError != nil {
		return nil, fmt.Errorf(encodeDocumentTemplateConstant, encodeError)
	}
	if closeError := encoder.Close(); closeError != nil {
		return nil, fmt.Errorf(encodeDocumentTemplateConstant, closeError)
	}
	return buffer.Bytes(), nil
}

func appendHooks(rootNode *yaml.Node, key string, commands []string) {
	if len(commands) == 0 {
		return
	}
	sequenceNode := &yaml.Node{Kind: yaml.SequenceNode, Tag: yamlSequenceTagConstant}
	for _, command := range commands {
		sequenceNode.Content = append(sequenceNode.Content, stringNode(command))
	}
	rootNode.Content = append(rootNode.Content, stringNode(key), sequenceNode)
}

func stringNode(value string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: yamlStringTagConstant, Value: value}
}
