package phase3

import (
	"fmt"
	"math"
	"sort"

	"github.com/gitrdm/gokanlogic/pkg/minikanren"
	"github.com/gitrdm/templatesched/internal/errs"
	"github.com/gitrdm/templatesched/pkg/problem"
)

// Components names the registered objective variables a scalarization may
// draw on, keyed the same way as SolverParameters.ObjectiveWeights and
// ObjectiveLexOrder entries ("makespan", "total_lateness",
// "max_lateness", "total_cost").
type Components map[string]*ShiftedObjective

// ApplyScalarization combines the requested components into the single
// FD variable SolveOptimalWithOptions needs, per spec §4.4/§6's Open
// Question: the caller must supply either ObjectiveWeights or
// ObjectiveLexOrder explicitly when EnablePhase3 is set -- there is no
// silent default, since picking one unasked would bake in a priority the
// caller never chose.
func ApplyScalarization(model *minikanren.Model, p *problem.Problem, components Components) (*minikanren.FDVariable, error) {
	params := p.Template.SolverParameters
	switch {
	case len(params.ObjectiveWeights) > 0:
		return weightedSum(model, components, params.ObjectiveWeights)
	case len(params.ObjectiveLexOrder) > 0:
		return lexicographicSum(model, components, params.ObjectiveLexOrder)
	default:
		return nil, errs.NewMalformedProblem("EnablePhase3 is set but neither ObjectiveWeights nor ObjectiveLexOrder was supplied")
	}
}

// weightedSum builds objective = sum(weight_i * component_i.Variable),
// with float weights scaled to integers (coefficients must be plain ints
// for LinearSum) by a common factor: at least 1000 (three decimal places
// of every weight), raised by powers of ten until the smallest nonzero
// weight scales to at least 1.
func weightedSum(model *minikanren.Model, components Components, weights map[string]float64) (*minikanren.FDVariable, error) {
	names := sortedKeys(weights)
	scale := weightScaleFactor(weights)

	vars := make([]*minikanren.FDVariable, 0, len(names))
	coeffs := make([]int, 0, len(names))
	maxTotal := 0
	for _, name := range names {
		comp, ok := components[name]
		if !ok || comp == nil {
			return nil, fmt.Errorf("phase3.weightedSum: unknown or unregistered objective component %q", name)
		}
		coeff := int(math.Round(weights[name] * float64(scale)))
		if coeff <= 0 {
			continue
		}
		vars = append(vars, comp.Variable)
		coeffs = append(coeffs, coeff)
		maxTotal += coeff * comp.Variable.Domain().MaxValue()
	}
	if len(vars) == 0 {
		return nil, fmt.Errorf("phase3.weightedSum: all objective weights rounded to zero")
	}

	total := model.NewVariableWithName(minikanren.NewBitSetDomain(maxTotal), "objective.weightedSum")
	sum, err := minikanren.NewLinearSum(vars, coeffs, total)
	if err != nil {
		return nil, fmt.Errorf("phase3.weightedSum: %w", err)
	}
	model.AddConstraint(sum)
	return total, nil
}

// lexicographicSum encodes strict priority order via the standard
// weighted-sum construction: each component's coefficient exceeds the sum
// of all lower-priority components' maximum possible contributions, so no
// combination of lower-priority components can ever outweigh a one-unit
// improvement in a higher-priority one. This trades a true sequential
// lexicographic solve (solve for priority 1, fix it, solve for priority 2,
// ...) for a single-pass weighted sum; sequential re-solving belongs in
// pkg/solve's driver loop, not the model builder, and is left as a future
// enhancement there.
func lexicographicSum(model *minikanren.Model, components Components, order []string) (*minikanren.FDVariable, error) {
	vars := make([]*minikanren.FDVariable, len(order))
	maxVals := make([]int, len(order))
	for i, name := range order {
		comp, ok := components[name]
		if !ok || comp == nil {
			return nil, fmt.Errorf("phase3.lexicographicSum: unknown or unregistered objective component %q", name)
		}
		vars[i] = comp.Variable
		maxVals[i] = comp.Variable.Domain().MaxValue()
	}

	coeffs := make([]int, len(order))
	suffixMax := 1
	for i := len(order) - 1; i >= 0; i-- {
		coeffs[i] = suffixMax
		suffixMax *= maxVals[i] + 1
	}

	maxTotal := 0
	for i := range vars {
		maxTotal += coeffs[i] * maxVals[i]
	}

	total := model.NewVariableWithName(minikanren.NewBitSetDomain(maxTotal), "objective.lexicographicSum")
	sum, err := minikanren.NewLinearSum(vars, coeffs, total)
	if err != nil {
		return nil, fmt.Errorf("phase3.lexicographicSum: %w", err)
	}
	model.AddConstraint(sum)
	return total, nil
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// weightScaleFactor picks an integer scale large enough that the smallest
// nonzero weight rounds to at least 1.
func weightScaleFactor(weights map[string]float64) int {
	smallest := math.MaxFloat64
	for _, w := range weights {
		if w > 0 && w < smallest {
			smallest = w
		}
	}
	if smallest == math.MaxFloat64 {
		return 1
	}
	scale := 1000
	for smallest*float64(scale) < 1 {
		scale *= 10
	}
	return scale
}
