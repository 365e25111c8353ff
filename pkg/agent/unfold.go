package agent

// Unfold builds the unbounded agent runtime (spec.md §4.3): should_stop is
// constantly false, so the state machine alternates user/tool turns forever
// until the caller stops calling Next or the stream itself errors.
func Unfold(initial Context, stepFn StepFunc, updateFn UpdateFunc, makeStream MakeStreamFunc, opts ...Option) *Runtime {
	return New(initial, stepFn, updateFn, makeStream, nil, opts...)
}

// UnfoldUntil is Unfold with a terminal predicate, checked before each
// user turn (spec.md §4.3 "Bounded variant").
func UnfoldUntil(initial Context, stepFn StepFunc, updateFn UpdateFunc, makeStream MakeStreamFunc, shouldStop ShouldStopFunc, opts ...Option) *Runtime {
	return New(initial, stepFn, updateFn, makeStream, shouldStop, opts...)
}

// UnfoldWithTools is UnfoldUntil plus a tool_handler: Messages whose
// StopReason is tool_use trigger concurrent tool execution before the next
// turn begins, per spec.md §4.3's PendingToolTurn transition.
func UnfoldWithTools(initial Context, stepFn StepFunc, updateFn UpdateFunc, makeStream MakeStreamFunc, shouldStop ShouldStopFunc, toolHandler ToolHandlerFunc, opts ...Option) *Runtime {
	return New(initial, stepFn, updateFn, makeStream, shouldStop, append(opts, WithTools(toolHandler))...)
}
