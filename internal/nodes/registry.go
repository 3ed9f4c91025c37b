package nodes

import (
	"context"
	"errors"
	"fmt"
	"log"
	"slices"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/Brownie44l1/imgeval/internal/tensor"
)

var (
	ErrUnknownNode   = errors.New("nodes: unknown node")
	ErrDuplicateNode = errors.New("nodes: duplicate node id")
	ErrMissingInput  = errors.New("nodes: missing required input")
	ErrInvalidInput  = errors.New("nodes: invalid input")
	ErrArity         = errors.New("nodes: output arity mismatch")
)

// Registry maps node ids to implementations and display names.
type Registry struct {
	ClassMappings       map[string]Node
	DisplayNameMappings map[string]string
	order               []string
}

func NewRegistry() *Registry {
	return &Registry{
		ClassMappings:       make(map[string]Node),
		DisplayNameMappings: make(map[string]string),
	}
}

func (r *Registry) Register(id, displayName string, n Node) error {
	if _, ok := r.ClassMappings[id]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateNode, id)
	}
	if len(n.ReturnTypes()) != len(n.ReturnNames()) {
		return fmt.Errorf("%w: %q declares %d types and %d names", ErrArity, id, len(n.ReturnTypes()), len(n.ReturnNames()))
	}
	r.ClassMappings[id] = n
	r.DisplayNameMappings[id] = displayName
	r.order = append(r.order, id)
	return nil
}

// IDs returns node ids in registration order.
func (r *Registry) IDs() []string {
	return slices.Clone(r.order)
}

func (r *Registry) Info(id string) (NodeInfo, bool) {
	n, ok := r.ClassMappings[id]
	if !ok {
		return NodeInfo{}, false
	}
	return NodeInfo{
		Input:       n.InputTypes(),
		Output:      n.ReturnTypes(),
		OutputName:  n.ReturnNames(),
		Name:        id,
		DisplayName: r.DisplayNameMappings[id],
		Category:    n.Category(),
		Function:    n.Function(),
	}, true
}

// ObjectInfo describes every registered node, keyed by id.
func (r *Registry) ObjectInfo() *orderedmap.OrderedMap[string, NodeInfo] {
	info := orderedmap.New[string, NodeInfo]()
	for _, id := range r.order {
		ni, _ := r.Info(id)
		info.Set(id, ni)
	}
	return info
}

// Invoke validates in against the node's declaration, calls its entry
// point and checks the result against the declared outputs.
func (r *Registry) Invoke(ctx context.Context, id string, in Inputs) ([]any, error) {
	n, ok := r.ClassMappings[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownNode, id)
	}

	args, err := bind(n.InputTypes(), in)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", id, err)
	}

	out, err := n.Execute(ctx, args)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", id, err)
	}

	types := n.ReturnTypes()
	if len(out) != len(types) {
		return nil, fmt.Errorf("%w: %q returned %d values, declared %d", ErrArity, id, len(out), len(types))
	}
	for i, v := range out {
		if types[i] == string(TypeString) {
			if _, ok := v.(string); !ok {
				return nil, fmt.Errorf("%w: %q output %d is %T, declared STRING", ErrArity, id, i, v)
			}
		}
	}

	return out, nil
}

// bind checks required and optional inputs and drops undeclared ones.
func bind(decl InputTypes, in Inputs) (Inputs, error) {
	args := make(Inputs, len(in))

	for pair := decl.Required.Oldest(); pair != nil; pair = pair.Next() {
		v, ok := in[pair.Key]
		if !ok || v == nil {
			return nil, fmt.Errorf("%w: %s", ErrMissingInput, pair.Key)
		}
		if err := check(pair.Key, pair.Value, v); err != nil {
			return nil, err
		}
		args[pair.Key] = v
	}

	if decl.Optional != nil {
		for pair := decl.Optional.Oldest(); pair != nil; pair = pair.Next() {
			v, ok := in[pair.Key]
			if !ok || v == nil {
				continue
			}
			if err := check(pair.Key, pair.Value, v); err != nil {
				return nil, err
			}
			args[pair.Key] = v
		}
	}

	for k := range in {
		if _, ok := args[k]; !ok && !declared(decl, k) {
			log.Printf("Ignoring undeclared input %q", k)
		}
	}

	return args, nil
}

func declared(decl InputTypes, name string) bool {
	if _, ok := decl.Required.Get(name); ok {
		return true
	}
	if decl.Optional != nil {
		if _, ok := decl.Optional.Get(name); ok {
			return true
		}
	}
	return false
}

func check(name string, spec InputSpec, v any) error {
	switch spec.Type {
	case TypeImage:
		t, ok := v.(*tensor.Image)
		if !ok {
			return fmt.Errorf("%w: %s must be an IMAGE, got %T", ErrInvalidInput, name, v)
		}
		if err := t.Validate(); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidInput, name, err)
		}
	case TypeString:
		if _, ok := v.(string); !ok {
			return fmt.Errorf("%w: %s must be a STRING, got %T", ErrInvalidInput, name, v)
		}
	case TypeCombo:
		s, ok := v.(string)
		if !ok || !slices.Contains(spec.Choices, s) {
			return fmt.Errorf("%w: %s must be one of %v, got %v", ErrInvalidInput, name, spec.Choices, v)
		}
	default:
		return fmt.Errorf("%w: %s has unsupported type %s", ErrInvalidInput, name, spec.Type)
	}
	return nil
}
