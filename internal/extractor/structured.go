package extractor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/tidwall/gjson"
	"gopkg.in/yaml.v3"
)

// partitionJSON yields every string value of the document in order; keys are skipped
func partitionJSON(ctx context.Context, path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	if !gjson.ValidBytes(data) {
		return nil, errors.New("invalid json")
	}

	var elements []string
	collectJSONStrings(gjson.ParseBytes(data), &elements)
	return elements, nil
}

func collectJSONStrings(value gjson.Result, out *[]string) {
	switch {
	case value.IsObject(), value.IsArray():
		value.ForEach(func(_, v gjson.Result) bool {
			collectJSONStrings(v, out)
			return true
		})
	case value.Type == gjson.String:
		*out = append(*out, value.String())
	}
}

// partitionYAML yields every non-null scalar value across all documents of the stream
func partitionYAML(ctx context.Context, path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	var elements []string
	dec := yaml.NewDecoder(bytes.NewReader(data))
	for {
		var node yaml.Node
		err := dec.Decode(&node)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decode yaml: %w", err)
		}
		collectYAMLScalars(&node, &elements)
	}

	return elements, nil
}

func collectYAMLScalars(node *yaml.Node, out *[]string) {
	switch node.Kind {
	case yaml.DocumentNode, yaml.SequenceNode:
		for _, child := range node.Content {
			collectYAMLScalars(child, out)
		}
	case yaml.MappingNode:
		// Content alternates key, value
		for i := 1; i < len(node.Content); i += 2 {
			collectYAMLScalars(node.Content[i], out)
		}
	case yaml.ScalarNode:
		if node.Tag != "!!null" {
			*out = append(*out, node.Value)
		}
	}
}
