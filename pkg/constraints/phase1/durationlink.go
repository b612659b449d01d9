package phase1

import (
	"fmt"

	"github.com/gitrdm/gokanlogic/pkg/minikanren"
	"github.com/gitrdm/templatesched/pkg/problem"
	"github.com/gitrdm/templatesched/pkg/varfactory"
)

// ApplyDurationLink ties each task's Duration variable to the duration of
// whichever mode is selected, and its End variable to Start+Duration.
//
// The mode link is a one-directional implication (mode selected => duration
// equals that mode's constant), built from two reified Inequality
// constraints rather than a reified Equality: reifying full equality would
// also force Duration != d for every *unselected* mode, which breaks as
// soon as two modes share the same duration value. ReifiedConstraint's
// documented semantics (enforce when true, leave unconstrained when false)
// give exactly the one-directional rule needed here, and the exactly-one
// constraint from ApplyModeSelection guarantees some mode eventually pins
// Duration.
func ApplyDurationLink(model *minikanren.Model, f *varfactory.Factory, p *problem.Problem) error {
	for _, inst := range p.Instances {
		for _, task := range p.Template.Tasks {
			tv := f.Vars(inst.ID, task.ID)

			for i, m := range task.Modes {
				name := fmt.Sprintf("%s/%s.mode[%s].durationConst", inst.ID, task.ID, m.ID)
				constVar := model.NewVariableWithName(
					minikanren.NewBitSetDomainFromValues(m.DurationUnits, []int{m.DurationUnits}),
					name,
				)

				le, err := minikanren.NewInequality(tv.Duration, constVar, minikanren.LessEqual)
				if err != nil {
					return fmt.Errorf("phase1.ApplyDurationLink: task %s mode %s: %w", task.ID, m.ID, err)
				}
				reifiedLE, err := minikanren.NewReifiedConstraint(le, tv.ModeSelected[i])
				if err != nil {
					return fmt.Errorf("phase1.ApplyDurationLink: task %s mode %s: %w", task.ID, m.ID, err)
				}
				model.AddConstraint(reifiedLE)

				ge, err := minikanren.NewInequality(tv.Duration, constVar, minikanren.GreaterEqual)
				if err != nil {
					return fmt.Errorf("phase1.ApplyDurationLink: task %s mode %s: %w", task.ID, m.ID, err)
				}
				reifiedGE, err := minikanren.NewReifiedConstraint(ge, tv.ModeSelected[i])
				if err != nil {
					return fmt.Errorf("phase1.ApplyDurationLink: task %s mode %s: %w", task.ID, m.ID, err)
				}
				model.AddConstraint(reifiedGE)
			}

			// End = Start + Duration, expressed as a LinearSum over the
			// domain-shifted Start/End variables and the unshifted
			// Duration: the +1 shift varfactory applies to Start and End
			// cancels, since both sides of the relation carry it
			// identically.
			linear, err := minikanren.NewLinearSum(
				[]*minikanren.FDVariable{tv.Start, tv.Duration},
				[]int{1, 1},
				tv.End,
			)
			if err != nil {
				return fmt.Errorf("phase1.ApplyDurationLink: task %s: %w", task.ID, err)
			}
			model.AddConstraint(linear)
		}
	}
	return nil
}
