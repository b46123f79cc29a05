package ruleengine

// Evaluator is the interface that all strategy evaluators implement.
type Evaluator interface {
	// Eval checks if the input satisfies the strategy.
	//
	// data is the compiled parameter set produced by Compile for the same
	// strategy; a mismatching type is an internal error.
	Eval(data any, input EvaluationInput) (bool, error)
}

// DefaultEvaluator implements the standard strategy, which is on for everyone.
type DefaultEvaluator struct{}

func (e *DefaultEvaluator) Eval(_ any, _ EvaluationInput) (bool, error) {
	return true, nil
}
