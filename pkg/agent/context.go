// Package agent implements the agent combinator runtime (spec.md §4.3): an
// indefinite sequence of model turns, each a bounded event stream, driven by
// a small set of caller-supplied closures over a typed Context.
//
// Grounded on original_source/src/combinators.rs's Context trait,
// VecContext, and the impl_tuple_context! family, with one structural
// divergence: Rust's declarative macro generates Context impls for tuples up
// to 26 elements; Go has no macro/variadic-generics equivalent, so this
// package hand-writes Tuple2 and Tuple3 (the arities the teacher's and
// original's own examples actually compose), documented in DESIGN.md.
// The teacher's pkg/agent (ToolLoopAgent, AgentConfig, Skills, Subagents)
// targets a different shape entirely — a step-bounded loop over the
// multi-provider pkg/ai/pkg/provider stack — with no Context/unfold analog,
// so it is replaced rather than generalized; its mergeListener generic
// callback-merge pattern and contextKey/run-ID idiom (toolloop.go) are
// reused below in runtime.go's run-correlation IDs.
package agent

import "github.com/coregen-ai/convo/pkg/message"

// Context abstracts over how an agent's conversation state is stored and
// turned into the message list for the next API call (spec.md §4.3,
// §6 "Caller-facing API").
type Context interface {
	// Prepare consumes the context and returns the message history for the
	// next request. Consuming (rather than borrowing) lets implementations
	// move owned state instead of cloning it.
	Prepare() []message.MessageParam

	// PushOrMergeMessage appends a message to this context's history,
	// merging into the tail message when roles match (message.PushOrMerge).
	PushOrMergeMessage(next message.MessageParam)
}

// VecContext is the simplest Context: a bare message history. It is also
// the canonical storage type tuple contexts push_or_merge into.
type VecContext struct {
	Messages []message.MessageParam
}

func NewVecContext(messages ...message.MessageParam) *VecContext {
	return &VecContext{Messages: append([]message.MessageParam{}, messages...)}
}

func (c *VecContext) Prepare() []message.MessageParam { return c.Messages }

func (c *VecContext) PushOrMergeMessage(next message.MessageParam) {
	c.Messages = message.PushOrMerge(c.Messages, next)
}

// Tuple2 composes two contexts into one: Prepare concatenates both
// histories (merging across the seam via PushOrMerge, exactly as
// impl_tuple_context! does in the original), but only the last component
// (B) is writable — push_or_merge_message on a Tuple2 always targets B.
// This lets a caller graft read-only injected history (A, e.g. a
// system-level transcript) ahead of the mutable working context (B).
type Tuple2[A Context, B Context] struct {
	First  A
	Second B
}

func NewTuple2[A Context, B Context](first A, second B) Tuple2[A, B] {
	return Tuple2[A, B]{First: first, Second: second}
}

func (t Tuple2[A, B]) Prepare() []message.MessageParam {
	var result []message.MessageParam
	for _, mp := range t.First.Prepare() {
		result = message.PushOrMerge(result, mp)
	}
	for _, mp := range t.Second.Prepare() {
		result = message.PushOrMerge(result, mp)
	}
	return result
}

func (t Tuple2[A, B]) PushOrMergeMessage(next message.MessageParam) {
	t.Second.PushOrMergeMessage(next)
}

// Tuple3 is Tuple2 generalized to three components; only the last (C) is
// writable.
type Tuple3[A Context, B Context, C Context] struct {
	First  A
	Second B
	Third  C
}

func NewTuple3[A Context, B Context, C Context](first A, second B, third C) Tuple3[A, B, C] {
	return Tuple3[A, B, C]{First: first, Second: second, Third: third}
}

func (t Tuple3[A, B, C]) Prepare() []message.MessageParam {
	var result []message.MessageParam
	for _, mp := range t.First.Prepare() {
		result = message.PushOrMerge(result, mp)
	}
	for _, mp := range t.Second.Prepare() {
		result = message.PushOrMerge(result, mp)
	}
	for _, mp := range t.Third.Prepare() {
		result = message.PushOrMerge(result, mp)
	}
	return result
}

func (t Tuple3[A, B, C]) PushOrMergeMessage(next message.MessageParam) {
	t.Third.PushOrMergeMessage(next)
}
