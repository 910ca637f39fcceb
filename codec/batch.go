package codec

import "strings"

// DefaultByteBudget and DefaultCommandBudget are the batch size limits
// used when a caller has no more specific requirement.
const (
	DefaultByteBudget    = 512
	DefaultCommandBudget = 20
)

// Batch groups commands into strings, each joining its member commands'
// Text with "\n", such that no batch's joined length exceeds byteBudget
// and no batch holds more than commandBudget commands. Each batch is
// intended to be sent as a single raw-paste exec.
//
// A single command whose text alone exceeds byteBudget is still emitted,
// alone, in its own batch — the budget is a packing target, not a hard
// per-command limit.
func Batch(commands []Command, byteBudget, commandBudget int) []string {
	var batches []string
	var cur []string
	curLen := 0

	flush := func() {
		if len(cur) > 0 {
			batches = append(batches, strings.Join(cur, "\n"))
			cur = nil
			curLen = 0
		}
	}

	for _, c := range commands {
		added := len(c.Text)
		if len(cur) > 0 {
			added++ // separating "\n"
		}
		if len(cur) > 0 && (curLen+added > byteBudget || len(cur)+1 > commandBudget) {
			flush()
			added = len(c.Text)
		}
		cur = append(cur, c.Text)
		curLen += added
	}
	flush()

	return batches
}
