package phase1

import (
	"fmt"

	"github.com/gitrdm/gokanlogic/pkg/minikanren"
	"github.com/gitrdm/templatesched/pkg/problem"
	"github.com/gitrdm/templatesched/pkg/varfactory"
)

// ApplyPrecedence enforces, for every precedence edge (p, s, d1, d2?) and
// every instance: end[p] + d1 <= start[s], and if d2 is present,
// start[s] <= end[p] + d2. Delays are plain unit offsets, so each is
// added to end[p] through an offset variable (an Arithmetic constraint)
// rather than a LinearSum; Start/End already carry the same +1 varfactory
// shift, which cancels across the inequality.
func ApplyPrecedence(model *minikanren.Model, f *varfactory.Factory, p *problem.Problem) error {
	for _, inst := range p.Instances {
		for _, edge := range p.Template.Precedences {
			predVars := f.Vars(inst.ID, edge.PredecessorTaskID)
			succVars := f.Vars(inst.ID, edge.SuccessorTaskID)

			predEndPlusDelay, err := offsetVariable(model, predVars.End, edge.MinDelayUnits,
				fmt.Sprintf("%s/%s->%s.endPlusMinDelay", inst.ID, edge.PredecessorTaskID, edge.SuccessorTaskID))
			if err != nil {
				return fmt.Errorf("phase1.ApplyPrecedence: %s->%s: %w", edge.PredecessorTaskID, edge.SuccessorTaskID, err)
			}
			minIneq, err := minikanren.NewInequality(predEndPlusDelay, succVars.Start, minikanren.LessEqual)
			if err != nil {
				return fmt.Errorf("phase1.ApplyPrecedence: %s->%s: %w", edge.PredecessorTaskID, edge.SuccessorTaskID, err)
			}
			model.AddConstraint(minIneq)

			if edge.MaxDelayUnits != nil {
				predEndPlusMax, err := offsetVariable(model, predVars.End, *edge.MaxDelayUnits,
					fmt.Sprintf("%s/%s->%s.endPlusMaxDelay", inst.ID, edge.PredecessorTaskID, edge.SuccessorTaskID))
				if err != nil {
					return fmt.Errorf("phase1.ApplyPrecedence: %s->%s: %w", edge.PredecessorTaskID, edge.SuccessorTaskID, err)
				}
				maxIneq, err := minikanren.NewInequality(succVars.Start, predEndPlusMax, minikanren.LessEqual)
				if err != nil {
					return fmt.Errorf("phase1.ApplyPrecedence: %s->%s: %w", edge.PredecessorTaskID, edge.SuccessorTaskID, err)
				}
				model.AddConstraint(maxIneq)
			}
		}
	}
	return nil
}

// offsetVariable creates a fresh variable constrained to equal src+offset
// via Arithmetic, for use as one side of an Inequality.
func offsetVariable(model *minikanren.Model, src *minikanren.FDVariable, offset int, name string) (*minikanren.FDVariable, error) {
	srcDomain := src.Domain()
	dst := model.NewVariableWithName(
		minikanren.NewBitSetDomain(srcDomain.MaxValue()+offset),
		name,
	)
	arith, err := minikanren.NewArithmetic(src, dst, offset)
	if err != nil {
		return nil, err
	}
	model.AddConstraint(arith)
	return dst, nil
}
