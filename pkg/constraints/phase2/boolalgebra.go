// Package phase2 applies the optional constraint families of spec §4.4
// that sit behind SolverParameters.EnablePhase2: operator assignment and
// skill matching, shift/calendar availability, and sequence-dependent
// setup-time transitions. Every function here mirrors phase1's shape --
// take a built Model/Factory, add constraints, return an error -- so the
// builder can apply phase1 and phase2 families in the same fixed-order
// loop.
package phase2

import (
	"fmt"

	"github.com/gitrdm/gokanlogic/pkg/minikanren"
	"github.com/gitrdm/templatesched/pkg/varfactory"
)

// andBool returns a fresh boolean constrained to true iff both a and b
// are true, built from BoolSum (count the two booleans) plus InSetReified
// (true iff the count is 2) rather than a dedicated conjunction
// primitive -- minikanren has no And/Or constraint, and this pair is the
// same combination ApplyModeSelection and the skill-count families
// already use to turn a count into a boolean condition.
func andBool(model *minikanren.Model, a, b *minikanren.FDVariable, name string) (*minikanren.FDVariable, error) {
	total := model.NewVariableWithName(minikanren.NewBitSetDomain(3), name+".count")
	sum, err := minikanren.NewBoolSum([]*minikanren.FDVariable{a, b}, total)
	if err != nil {
		return nil, fmt.Errorf("phase2.andBool: %w", err)
	}
	model.AddConstraint(sum)

	g := model.NewVariableWithName(varfactory.NewBoolDomain(), name)
	in, err := minikanren.NewInSetReified(total, []int{3}, g)
	if err != nil {
		return nil, fmt.Errorf("phase2.andBool: %w", err)
	}
	model.AddConstraint(in)
	return g, nil
}

// orBool returns a fresh boolean constrained to true iff at least one of
// vars is true, via the same BoolSum+InSetReified pair: the total ranges
// over [1, n+1] (count+1 encoding), and "at least one true" is every
// value above the all-false case.
func orBool(model *minikanren.Model, vars []*minikanren.FDVariable, name string) (*minikanren.FDVariable, error) {
	if len(vars) == 1 {
		return vars[0], nil
	}
	total := model.NewVariableWithName(minikanren.NewBitSetDomain(len(vars)+1), name+".count")
	sum, err := minikanren.NewBoolSum(vars, total)
	if err != nil {
		return nil, fmt.Errorf("phase2.orBool: %w", err)
	}
	model.AddConstraint(sum)

	atLeastOne := make([]int, 0, len(vars))
	for c := 2; c <= len(vars)+1; c++ {
		atLeastOne = append(atLeastOne, c)
	}
	any := model.NewVariableWithName(varfactory.NewBoolDomain(), name)
	in, err := minikanren.NewInSetReified(total, atLeastOne, any)
	if err != nil {
		return nil, fmt.Errorf("phase2.orBool: %w", err)
	}
	model.AddConstraint(in)
	return any, nil
}

// notBool returns a fresh boolean constrained to the logical complement
// of b, via a LinearSum pinned to the constant 3 (b + notB must equal
// BoolFalse+BoolTrue=3 in the {1,2} encoding).
func notBool(model *minikanren.Model, b *minikanren.FDVariable, name string) (*minikanren.FDVariable, error) {
	notB := model.NewVariableWithName(varfactory.NewBoolDomain(), name)
	three := model.NewVariableWithName(minikanren.NewBitSetDomainFromValues(3, []int{3}), name+".three")
	sum, err := minikanren.NewLinearSum([]*minikanren.FDVariable{b, notB}, []int{1, 1}, three)
	if err != nil {
		return nil, fmt.Errorf("phase2.notBool: %w", err)
	}
	model.AddConstraint(sum)
	return notB, nil
}

// offsetVariable creates a fresh variable constrained to equal src+offset,
// for use as one side of an Inequality. Mirrors phase1.offsetVariable;
// duplicated locally since that helper is unexported from phase1.
func offsetVariable(model *minikanren.Model, src *minikanren.FDVariable, offset int, name string) (*minikanren.FDVariable, error) {
	dst := model.NewVariableWithName(
		minikanren.NewBitSetDomain(src.Domain().MaxValue()+offset),
		name,
	)
	arith, err := minikanren.NewArithmetic(src, dst, offset)
	if err != nil {
		return nil, fmt.Errorf("phase2.offsetVariable: %w", err)
	}
	model.AddConstraint(arith)
	return dst, nil
}

// constVariable creates a fresh variable pinned to a single value, for use
// as the fixed side of an Inequality or Arithmetic relation.
func constVariable(model *minikanren.Model, value int, name string) *minikanren.FDVariable {
	return model.NewVariableWithName(minikanren.NewBitSetDomainFromValues(value, []int{value}), name)
}
