package plansmith

import (
	"fmt"
	"sort"

	"github.com/m-mizutani/goerr/v2"
	"github.com/santhosh-tekuri/jsonschema/v6"
)

// ParameterType is the type of a tool parameter.
type ParameterType string

const (
	TypeString  ParameterType = "string"
	TypeNumber  ParameterType = "number"
	TypeInteger ParameterType = "integer"
	TypeBoolean ParameterType = "boolean"
	TypeArray   ParameterType = "array"
	TypeObject  ParameterType = "object"
)

// Parameter describes one input parameter of a tool.
type Parameter struct {
	// Name is the parameter key as it appears in task parameters.
	Name string

	// Type is one of the predefined ParameterType values.
	Type ParameterType

	// Description explains the purpose and expected format of the value.
	Description string

	// Required marks the parameter as mandatory for the tool.
	Required bool

	// Enum restricts the value to a fixed set, when non-empty.
	Enum []string

	// Properties defines the structure of object-typed parameters.
	Properties map[string]*Parameter

	// Items defines the element type of array-typed parameters.
	Items *Parameter
}

// Validate validates the parameter specification.
func (p *Parameter) Validate() error {
	eb := goerr.NewBuilder(goerr.V("parameter", p))
	if p.Name == "" {
		return eb.Wrap(ErrInvalidTool, "parameter name is required")
	}

	switch p.Type {
	case TypeString, TypeNumber, TypeInteger, TypeBoolean, TypeArray, TypeObject:
	default:
		return eb.Wrap(ErrInvalidTool, "unknown parameter type", goerr.V("type", p.Type))
	}

	for _, prop := range p.Properties {
		if err := prop.Validate(); err != nil {
			return err
		}
	}
	if p.Items != nil {
		if err := p.Items.Validate(); err != nil {
			return err
		}
	}

	return nil
}

// ToolDescriptor describes one tool the oracle may reference in a plan.
// Descriptors are read-only inputs to the planner: execution is owned by an
// external registry.
type ToolDescriptor struct {
	// Name is the unique identifier of the tool within a ToolSet.
	Name string

	// Description tells the oracle what the tool does.
	Description string

	// Parameters are the tool's input parameters.
	Parameters []*Parameter
}

// Validate validates the descriptor.
func (d *ToolDescriptor) Validate() error {
	eb := goerr.NewBuilder(goerr.V("tool", d.Name))
	if d.Name == "" {
		return eb.Wrap(ErrInvalidTool, "tool name is required")
	}
	for _, param := range d.Parameters {
		if err := param.Validate(); err != nil {
			return eb.Wrap(err, "invalid parameter")
		}
	}
	return nil
}

// parameterSchema renders a Parameter as a JSON schema fragment.
func parameterSchema(p *Parameter) map[string]any {
	schema := map[string]any{
		"type": string(p.Type),
	}
	if p.Description != "" {
		schema["description"] = p.Description
	}
	if len(p.Enum) > 0 {
		values := make([]any, len(p.Enum))
		for i, v := range p.Enum {
			values[i] = v
		}
		schema["enum"] = values
	}
	if p.Type == TypeObject && len(p.Properties) > 0 {
		props := map[string]any{}
		var required []any
		for name, prop := range p.Properties {
			props[name] = parameterSchema(prop)
			if prop.Required {
				required = append(required, name)
			}
		}
		schema["properties"] = props
		if len(required) > 0 {
			schema["required"] = required
		}
	}
	if p.Type == TypeArray && p.Items != nil {
		schema["items"] = parameterSchema(p.Items)
	}
	return schema
}

// ParameterSchema compiles the descriptor's parameter specification into a
// JSON schema for validating task parameters.
func (d *ToolDescriptor) ParameterSchema() (*jsonschema.Schema, error) {
	props := map[string]any{}
	var required []any
	for _, param := range d.Parameters {
		props[param.Name] = parameterSchema(param)
		if param.Required {
			required = append(required, param.Name)
		}
	}

	doc := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		doc["required"] = required
	}

	compiler := jsonschema.NewCompiler()
	resource := fmt.Sprintf("tool://%s/parameters", d.Name)
	if err := compiler.AddResource(resource, doc); err != nil {
		return nil, goerr.Wrap(err, "failed to add parameter schema resource", goerr.V("tool", d.Name))
	}

	schema, err := compiler.Compile(resource)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to compile parameter schema", goerr.V("tool", d.Name))
	}

	return schema, nil
}

// ToolSet is an immutable snapshot of the tools a plan may reference.
// Callers build one per planning call; the planner never reads tool
// availability from shared mutable state, so enabling or disabling a tool
// in one session cannot change the allow-list of a retry loop already in
// flight elsewhere.
type ToolSet struct {
	tools  []*ToolDescriptor
	byName map[string]*ToolDescriptor
}

// NewToolSet builds a snapshot from the given descriptors. Descriptors are
// validated and names must be unique.
func NewToolSet(descriptors ...*ToolDescriptor) (*ToolSet, error) {
	set := &ToolSet{
		byName: make(map[string]*ToolDescriptor, len(descriptors)),
	}
	for _, d := range descriptors {
		if err := d.Validate(); err != nil {
			return nil, err
		}
		if _, ok := set.byName[d.Name]; ok {
			return nil, goerr.Wrap(ErrToolNameConflict, "duplicate tool in snapshot", goerr.V("tool_name", d.Name))
		}
		set.byName[d.Name] = d
		set.tools = append(set.tools, d)
	}
	return set, nil
}

// Lookup returns the descriptor for name.
func (s *ToolSet) Lookup(name string) (*ToolDescriptor, bool) {
	if s == nil {
		return nil, false
	}
	d, ok := s.byName[name]
	return d, ok
}

// Has reports whether name is in the snapshot.
func (s *ToolSet) Has(name string) bool {
	_, ok := s.Lookup(name)
	return ok
}

// Names returns the sorted tool names in the snapshot.
func (s *ToolSet) Names() []string {
	if s == nil {
		return nil
	}
	names := make([]string, 0, len(s.tools))
	for _, d := range s.tools {
		names = append(names, d.Name)
	}
	sort.Strings(names)
	return names
}

// Descriptors returns the descriptors in insertion order.
func (s *ToolSet) Descriptors() []*ToolDescriptor {
	if s == nil {
		return nil
	}
	return s.tools[:]
}

// Len returns the number of tools in the snapshot.
func (s *ToolSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.tools)
}
