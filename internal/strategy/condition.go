package strategy

import "github.com/11e3/quantlab/internal/frame"

// Condition evaluates a per-bar boolean series over a frame. Conditions
// compose with And, Or, and Not so strategies can assemble entry and
// exit rules from small reusable pieces.
type Condition interface {
	Evaluate(f *frame.Frame) []bool
}

// ConditionFunc adapts a plain function to the Condition interface.
type ConditionFunc func(f *frame.Frame) []bool

func (fn ConditionFunc) Evaluate(f *frame.Frame) []bool {
	return fn(f)
}

// And is true where every condition is true.
func And(conds ...Condition) Condition {
	return ConditionFunc(func(f *frame.Frame) []bool {
		out := make([]bool, f.Len())
		for i := range out {
			out[i] = len(conds) > 0
		}
		for _, c := range conds {
			for i, v := range c.Evaluate(f) {
				out[i] = out[i] && v
			}
		}
		return out
	})
}

// Or is true where any condition is true.
func Or(conds ...Condition) Condition {
	return ConditionFunc(func(f *frame.Frame) []bool {
		out := make([]bool, f.Len())
		for _, c := range conds {
			for i, v := range c.Evaluate(f) {
				out[i] = out[i] || v
			}
		}
		return out
	})
}

// Not inverts a condition.
func Not(c Condition) Condition {
	return ConditionFunc(func(f *frame.Frame) []bool {
		out := c.Evaluate(f)
		inverted := make([]bool, len(out))
		for i, v := range out {
			inverted[i] = !v
		}
		return inverted
	})
}
