// Package nodes implements the host plugin contract: nodes declare typed
// inputs and outputs, expose a single entry point and are published through
// a registry keyed by a globally unique id.
package nodes

import (
	"context"
	"encoding/json"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/Brownie44l1/imgeval/internal/tensor"
)

type InputType string

const (
	TypeImage  InputType = "IMAGE"
	TypeString InputType = "STRING"
	TypeCombo  InputType = "COMBO"
)

const (
	EntryPoint = "execute"
	Category   = "Image_Evaluation"

	// Placeholder is returned in place of a score that could not be computed
	// because its reference input was not supplied.
	Placeholder = "None"
)

// InputSpec declares a single input. Combo inputs accept only one of
// Choices.
type InputSpec struct {
	Type    InputType
	Choices []string
}

func Image() InputSpec  { return InputSpec{Type: TypeImage} }
func String() InputSpec { return InputSpec{Type: TypeString} }

func Combo(choices ...string) InputSpec {
	return InputSpec{Type: TypeCombo, Choices: choices}
}

// MarshalJSON renders the declaration the way the host expects it: ["IMAGE"] for
// typed inputs and [["a", "b"]] for combos.
func (s InputSpec) MarshalJSON() ([]byte, error) {
	if s.Type == TypeCombo {
		return json.Marshal([]any{s.Choices})
	}
	return json.Marshal([]any{s.Type})
}

type Declarations = orderedmap.OrderedMap[string, InputSpec]

// InputTypes holds required and optional input declarations in declaration
// order.
type InputTypes struct {
	Required *Declarations `json:"required"`
	Optional *Declarations `json:"optional,omitempty"`
}

// Field is one named input declaration.
type Field struct {
	Name string
	Spec InputSpec
}

func In(name string, spec InputSpec) Field {
	return Field{Name: name, Spec: spec}
}

// Decl builds an ordered declaration list.
func Decl(fields ...Field) *Declarations {
	decl := orderedmap.New[string, InputSpec]()
	for _, f := range fields {
		decl.Set(f.Name, f.Spec)
	}
	return decl
}

// Inputs carries the keyword arguments of one invocation.
type Inputs map[string]any

func (in Inputs) Image(name string) (*tensor.Image, bool) {
	t, ok := in[name].(*tensor.Image)
	return t, ok && t != nil
}

func (in Inputs) String(name string) (string, bool) {
	s, ok := in[name].(string)
	return s, ok
}

// Node is a unit of functionality exposed to the host graph.
type Node interface {
	InputTypes() InputTypes
	ReturnTypes() []string
	ReturnNames() []string
	Function() string
	Category() string
	Execute(ctx context.Context, in Inputs) ([]any, error)
}

// NodeInfo is the host-facing description of a registered node.
type NodeInfo struct {
	Input       InputTypes `json:"input"`
	Output      []string   `json:"output"`
	OutputName  []string   `json:"output_name"`
	Name        string     `json:"name"`
	DisplayName string     `json:"display_name"`
	Category    string     `json:"category"`
	Function    string     `json:"function"`
}
