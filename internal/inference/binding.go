package inference

import (
	"errors"
	"fmt"
	"strings"

	"github.com/anime-shed/tea-leaf-inspector-go/pkg/models"
)

// ErrContractMismatch marks declared tensors that cannot carry the three feature inputs.
var ErrContractMismatch = errors.New("tensor contract mismatch")

// Role is the logical meaning of a classifier input.
type Role string

const (
	RoleRGB     Role = "rgb"
	RoleColor   Role = "color"
	RoleTexture Role = "texture"
)

// roleTable maps declared-name substrings to roles, checked in order.
// "texture" comes first so that names like "rgb_texture" bind as texture.
var roleTable = []struct {
	substr string
	role   Role
}{
	{"texture", RoleTexture},
	{"rgb", RoleRGB},
	{"color", RoleColor},
}

// Binding resolves each role to a declared input.
type Binding map[Role]models.TensorSpec

// RoleFor returns the role a declared tensor name binds to.
func RoleFor(name string) (Role, bool) {
	lower := strings.ToLower(name)
	for _, entry := range roleTable {
		if strings.Contains(lower, entry.substr) {
			return entry.role, true
		}
	}
	return "", false
}

// Bind matches declared inputs to roles by name. It fails with
// ErrContractMismatch if fewer than three inputs are declared, if any
// role is unmatched or claimed twice, or if a shape cannot hold a
// 1×height×width×3 tensor.
func Bind(inputs []models.TensorSpec, height, width int) (Binding, error) {
	if len(inputs) < 3 {
		return nil, fmt.Errorf("%w: classifier declares %d input(s), need 3", ErrContractMismatch, len(inputs))
	}

	binding := make(Binding, 3)
	for _, spec := range inputs {
		role, ok := RoleFor(spec.Name)
		if !ok {
			continue
		}
		if prev, dup := binding[role]; dup {
			return nil, fmt.Errorf("%w: inputs %q and %q both bind to %s", ErrContractMismatch, prev.Name, spec.Name, role)
		}
		if err := checkShape(spec.Shape, height, width); err != nil {
			return nil, fmt.Errorf("%w: input %q: %v", ErrContractMismatch, spec.Name, err)
		}
		switch spec.DType {
		case DTypeUint8, DTypeFloat32:
		default:
			return nil, fmt.Errorf("%w: input %q has unsupported dtype %s", ErrContractMismatch, spec.Name, spec.DType)
		}
		spec.Role = string(role)
		binding[role] = spec
	}

	for _, role := range []Role{RoleRGB, RoleColor, RoleTexture} {
		if _, ok := binding[role]; !ok {
			return nil, fmt.Errorf("%w: no declared input matches role %s", ErrContractMismatch, role)
		}
	}
	return binding, nil
}

// checkShape accepts NHWC shapes with a batch of 1. Negative dimensions are dynamic.
func checkShape(shape []int64, height, width int) error {
	if len(shape) != 4 {
		return fmt.Errorf("expected 4 dimensions, got %v", shape)
	}
	want := []int64{1, int64(height), int64(width), 3}
	for i, d := range shape {
		if d >= 0 && d != want[i] {
			return fmt.Errorf("shape %v does not fit %v", shape, want)
		}
	}
	return nil
}

// Annotate returns specs with the role each binds to filled in.
func Annotate(specs []models.TensorSpec) []models.TensorSpec {
	out := make([]models.TensorSpec, len(specs))
	for i, spec := range specs {
		if role, ok := RoleFor(spec.Name); ok {
			spec.Role = string(role)
		}
		out[i] = spec
	}
	return out
}
