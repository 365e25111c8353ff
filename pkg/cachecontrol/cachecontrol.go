// Package cachecontrol implements the cache-control planner (spec.md §4.4):
// placing ephemeral cache-breakpoint markers on a bounded, recency-biased
// set of user messages, and pruning stale markers back down to a budget.
//
// Grounded line-for-line on original_source/src/cache_control.rs
// (apply_cache_control_to_messages, prune_cache_controls_in_messages,
// clear_cache_control_from_message, set_cache_control_on_block,
// block_has_cache_control). One deliberate divergence from that source,
// per spec.md §4.4 step 5's explicit wording ("place the marker on the
// last block whose variant supports caching"): the original walks only the
// literal last block of a message and no-ops when it isn't cacheable,
// silently placing zero markers on that message; this planner instead walks
// backward to the last block whose variant is marker-eligible on a user
// message (Text, ToolUse, ToolResult — see userMessageCacheable), which is
// what spec.md and its Scenario E describe. The teacher has no analog for
// this algorithm (its
// provider-level cache_control structs, e.g.
// pkg/providers/alibaba/cache_control.go, are static per-field settings,
// not a dynamic budget-aware planner), so this package is new rather than
// adapted.
package cachecontrol

import "github.com/coregen-ai/convo/pkg/message"

// Apply implements spec.md §4.4 steps 1-5: compute the remaining budget
// after the system prompt's own markers, clear all existing markers, then
// place one marker each on the last cacheable block of the most recent
// `budget` user messages.
func Apply(system *message.SystemPrompt, messages []message.MessageParam) {
	sysN := 0
	if system != nil {
		sysN = system.CountCacheControls()
	}
	budget := message.MaxCacheBreakpoints - sysN

	for i := range messages {
		clearMessage(&messages[i])
	}
	if budget <= 0 {
		return
	}

	var userIndices []int
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == message.RoleUser {
			userIndices = append(userIndices, i)
			if len(userIndices) == budget {
				break
			}
		}
	}
	for _, idx := range userIndices {
		applyToMessage(&messages[idx])
	}
}

// Prune implements spec.md §4.4's separate prune_cache_controls: walk all
// messages in order, collect every marked (message, block) position, and if
// more than keepLatest are marked, clear markers on the oldest excess ones.
func Prune(messages []message.MessageParam, keepLatest int) {
	if keepLatest == 0 {
		for i := range messages {
			clearMessage(&messages[i])
		}
		return
	}

	type position struct {
		msgIdx, blockIdx int
	}
	var positions []position
	for mi := range messages {
		blocks := messages[mi].Content.Blocks()
		for bi, b := range blocks {
			if hasCacheControl(b) {
				positions = append(positions, position{mi, bi})
			}
		}
	}
	if len(positions) <= keepLatest {
		return
	}

	dropCount := len(positions) - keepLatest
	for _, p := range positions[:dropCount] {
		blocks := messages[p.msgIdx].Content.Blocks()
		clearOnBlock(blocks[p.blockIdx])
	}
}

func clearMessage(msg *message.MessageParam) {
	for _, b := range msg.Content.Blocks() {
		clearOnBlock(b)
	}
}

func applyToMessage(msg *message.MessageParam) {
	if msg.Content.IsText() {
		block := &message.TextBlock{Text: msg.Content.Text(), CacheControl: message.EphemeralCacheControl()}
		msg.Content = message.NewBlockContent(block)
		return
	}
	blocks := msg.Content.Blocks()
	for i := len(blocks) - 1; i >= 0; i-- {
		if cacheable, ok := userMessageCacheable(blocks[i]); ok {
			cacheable.SetCacheControl(message.EphemeralCacheControl())
			return
		}
	}
}

// userMessageCacheable narrows Cacheable to the variants spec.md §4.4 step 5
// permits a marker on a *user* message: Text, ToolUse, ToolResult. Image,
// Document, and RawBlock blocks implement Cacheable too but are excluded
// here per that policy; ServerToolUse and WebSearchToolResult blocks do not
// implement Cacheable at all.
func userMessageCacheable(b message.ContentBlock) (message.Cacheable, bool) {
	switch b.(type) {
	case *message.TextBlock, *message.ToolUseBlock, *message.ToolResultBlock:
		cacheable, ok := b.(message.Cacheable)
		return cacheable, ok
	default:
		return nil, false
	}
}

func hasCacheControl(b message.ContentBlock) bool {
	cacheable, ok := b.(message.Cacheable)
	if !ok {
		return false
	}
	return cacheable.GetCacheControl() != nil
}

func clearOnBlock(b message.ContentBlock) {
	if cacheable, ok := b.(message.Cacheable); ok {
		cacheable.SetCacheControl(nil)
	}
}
