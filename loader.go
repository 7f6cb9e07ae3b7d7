package stepgraph

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ParseDefinitionYAML decodes and validates a workflow definition.
//
//	name: onboarding
//	context:
//	  plan: pro
//	steps:
//	  - id: check
//	    type: condition
//	    config: {field: $plan, operator: equals, value: pro, onTrue: welcome}
//	  - id: welcome
//	    handler: sendWelcome
func ParseDefinitionYAML(data []byte) (Definition, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return Definition{}, fmt.Errorf("%w: definition payload is empty", ErrConfiguration)
	}
	var def Definition
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&def); err != nil {
		return Definition{}, fmt.Errorf("%w: decode definition: %w", ErrConfiguration, err)
	}
	if err := def.Validate(); err != nil {
		return Definition{}, err
	}
	return def, nil
}

// LoadDefinitionFile reads a YAML file from disk and returns the parsed
// definition.
func LoadDefinitionFile(path string) (Definition, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Definition{}, fmt.Errorf("stepgraph: stat %s: %w", path, err)
	}
	if info.IsDir() {
		return Definition{}, fmt.Errorf("stepgraph: %s is a directory", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Definition{}, fmt.Errorf("stepgraph: read %s: %w", path, err)
	}
	def, err := ParseDefinitionYAML(data)
	if err != nil {
		return Definition{}, fmt.Errorf("stepgraph: %s: %w", path, err)
	}
	return def, nil
}

// EncodeYAML encodes the definition in the format read by
// ParseDefinitionYAML. Step functions set through Fn are not encoded.
func (d Definition) EncodeYAML() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(d); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
