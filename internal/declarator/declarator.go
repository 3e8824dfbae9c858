// Package declarator inverts C's declarator grammar: read inside-out, a
// declarator wraps an inner declaration with pointer/array/function layers
// until it bottoms out at the bound identifier.
package declarator

import (
	"github.com/pkg/errors"

	"cllvm/internal/ast"
	"cllvm/internal/types"
)

// Resolved is the outcome of inverting one declarator tree: the identifier
// it binds, its full type, and (for function declarators) its parameter
// names in declaration order.
type Resolved struct {
	Name       string
	Type       *types.Type
	ParamNames []string
}

// Resolve walks declarator node n, wrapping base (the type carried in from
// the declaration-specifier) according to each layer of n, and returns the
// identifier and final type once it bottoms out.
func Resolve(n *ast.Node, base *types.Type, lib *types.Library) (Resolved, error) {
	if n == nil {
		return Resolved{Type: base}, nil
	}
	switch n.Kind {
	case ast.IdentifierDeclarator:
		return Resolved{Name: n.Text(), Type: base}, nil

	case ast.PointerDeclarator:
		return Resolve(n.Child(0), lib.InternPointer(base), lib)

	case ast.ArrayDeclarator:
		if base.Kind == types.Function {
			return Resolved{}, errors.New("array of functions is not allowed")
		}
		length, ok := n.Data.(int64)
		if !ok || length <= 0 {
			return Resolved{}, errors.New("array declarator requires a positive constant length")
		}
		return Resolve(n.Child(0), lib.InternArray(base, length), lib)

	case ast.FunctionDeclarator:
		if base.Kind == types.Function {
			return Resolved{}, errors.New("function returning function is not allowed")
		}
		if base.Kind == types.Array {
			return Resolved{}, errors.New("function returning array is not allowed")
		}
		params, names, variadic, err := resolveParams(n, lib)
		if err != nil {
			return Resolved{}, err
		}
		fnType := lib.InternFunction(base, params, variadic)
		inner, err := Resolve(n.Child(0), fnType, lib)
		if err != nil {
			return Resolved{}, err
		}
		inner.ParamNames = names
		return inner, nil
	}
	return Resolved{}, errors.Errorf("%s is not a declarator", n.Kind)
}

// resolveParams resolves a FunctionDeclarator's parameter list: n.Children[0]
// is the inner declarator being wrapped; the remaining children are
// ParameterDeclaration nodes, with a trailing Ellipsis node marking a
// variadic function. A single unnamed "void" parameter denotes zero
// parameters.
func resolveParams(n *ast.Node, lib *types.Library) (params []*types.Type, names []string, variadic bool, err error) {
	rest := n.Children[1:]
	if len(rest) == 1 {
		if spec := rest[0].Child(0); spec != nil && spec.Text() == "void" && rest[0].Child(1) == nil {
			return nil, nil, false, nil
		}
	}
	seen := make(map[string]bool)
	for _, p := range rest {
		if p.Kind == ast.Ellipsis {
			variadic = true
			continue
		}
		specNode := p.Child(0)
		declNode := p.Child(1)
		base, terr := parameterBaseType(specNode, lib)
		if terr != nil {
			return nil, nil, false, terr
		}
		r, rerr := Resolve(declNode, base, lib)
		if rerr != nil {
			return nil, nil, false, rerr
		}
		// A parameter of function type decays to pointer-to-function.
		pt := r.Type
		if pt.Kind == types.Function {
			pt = lib.InternPointer(pt)
		}
		if r.Name != "" {
			if seen[r.Name] {
				return nil, nil, false, errors.Errorf("duplicate parameter name %q", r.Name)
			}
			seen[r.Name] = true
		}
		params = append(params, pt)
		names = append(names, r.Name)
	}
	return params, names, variadic, nil
}

// parameterBaseType resolves one parameter's type specifier: a named
// builtin, or a struct referenced by tag. Struct definitions inside a
// parameter list are rejected; the tag must refer to a struct introduced
// elsewhere.
func parameterBaseType(spec *ast.Node, lib *types.Library) (*types.Type, error) {
	if spec == nil {
		return nil, errors.New("parameter declaration is missing a type specifier")
	}
	if s := spec.Child(0); s != nil && s.Kind == ast.StructSpecifier {
		if s.Text() == "" {
			return nil, errors.New("parameter of struct type requires a struct tag")
		}
		return lib.InternStruct(s.Text()), nil
	}
	return lib.Get(spec.Text())
}

// Identifier walks declarator node n to find the bound name without
// re-resolving the full type.
func Identifier(n *ast.Node) (string, error) {
	if n == nil {
		return "", errors.New("abstract declarator has no identifier")
	}
	switch n.Kind {
	case ast.IdentifierDeclarator:
		return n.Text(), nil
	case ast.PointerDeclarator, ast.ArrayDeclarator:
		return Identifier(n.Child(0))
	case ast.FunctionDeclarator:
		return Identifier(n.Child(0))
	}
	return "", errors.Errorf("%s is not a declarator", n.Kind)
}
