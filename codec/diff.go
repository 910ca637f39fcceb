package codec

import (
	"github.com/pmezard/go-difflib/difflib"
)

// OpKind distinguishes the two surviving patch-plan operation kinds. Any
// source-side bytes not covered by an Equal are implicitly deleted.
type OpKind int

const (
	// Insert emits New[J1:J2] literally.
	Insert OpKind = iota
	// Equal copies Old[I1:I2], which is known to match New[J1:J2].
	Equal
)

// Op is one step of a diff plan: either Insert{J1,J2} (indices into the
// new byte slice) or Equal{I1,I2} (indices into the old byte slice).
type Op struct {
	Kind   OpKind
	I1, I2 int
	J1, J2 int
}

// Plan computes an ordered patch plan turning old into new.
//
// equalOverhead and seekOverhead are the estimated on-wire cost (in
// bytes) of emitting a read command and an extra seek command
// respectively; see EstimateOverheads. An Equal span is only worth
// keeping as a read-from-device operation when its length exceeds that
// cost — otherwise it is cheaper to fold its bytes into the surrounding
// literal insert.
func Plan(old, new []byte, equalOverhead, seekOverhead int) []Op {
	matcher := difflib.NewMatcher(splitBytes(old), splitBytes(new))
	opCodes := matcher.GetOpCodes()

	type rawInsert struct{ j1, j2 int }
	type rawEqual struct{ i1, i2, j1, j2 int }

	var plan []Op
	var pending *rawInsert
	cursor := 0

	flushInsert := func() {
		if pending != nil {
			plan = append(plan, Op{Kind: Insert, J1: pending.j1, J2: pending.j2})
			pending = nil
		}
	}
	extendInsert := func(j1, j2 int) {
		if pending == nil {
			pending = &rawInsert{j1: j1, j2: j2}
		} else {
			pending.j2 = j2
		}
	}

	for _, oc := range opCodes {
		switch oc.Tag {
		case 'd':
			// Deleted old bytes become an implicit seek; nothing to emit.
		case 'i', 'r':
			extendInsert(oc.J1, oc.J2)
		case 'e':
			e := rawEqual{i1: oc.I1, i2: oc.I2, j1: oc.J1, j2: oc.J2}
			length := e.i2 - e.i1
			overhead := equalOverhead
			if cursor != e.i1 {
				overhead += seekOverhead
			}
			if length <= overhead {
				// Cheaper to treat as a literal insert than a device read.
				extendInsert(e.j1, e.j2)
			} else {
				flushInsert()
				plan = append(plan, Op{Kind: Equal, I1: e.i1, I2: e.i2})
				cursor = e.i2
			}
		}
	}
	flushInsert()

	return plan
}

// Apply reconstructs the patched byte slice given both old and the new
// byte slice the plan was computed against (Insert spans index into
// new). Used by tests to check the planner's round-trip invariant.
func Apply(old, new []byte, plan []Op) []byte {
	var out []byte
	for _, op := range plan {
		switch op.Kind {
		case Insert:
			out = append(out, new[op.J1:op.J2]...)
		case Equal:
			out = append(out, old[op.I1:op.I2]...)
		}
	}
	return out
}

func splitBytes(data []byte) []string {
	out := make([]string, len(data))
	for i, c := range data {
		out[i] = string([]byte{c})
	}
	return out
}
