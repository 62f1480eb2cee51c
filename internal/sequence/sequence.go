// Package sequence implements the ordered-id codec that boards and columns
// use to persist the display order of their children. A sequence is stored
// and transported as a comma-joined string ("40,41,42"); every operation here
// works on the decoded []int64 form and never mutates its input.
package sequence

import (
	"fmt"
	"strconv"
	"strings"
)

const delimiter = ","

// Top is the anchor id meaning "head of the list".
const Top int64 = 0

// Decode parses a stored sequence string. The empty string is the empty
// sequence. Malformed entries are skipped so one bad token cannot discard
// the rest of the order.
func Decode(s string) []int64 {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, delimiter)
	ids := make([]int64, 0, len(parts))
	for _, p := range parts {
		id, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

// Encode renders ids as the stored string form. Empty input encodes to "".
func Encode(ids []int64) string {
	if len(ids) == 0 {
		return ""
	}
	var b strings.Builder
	for i, id := range ids {
		if i > 0 {
			b.WriteString(delimiter)
		}
		b.WriteString(strconv.FormatInt(id, 10))
	}
	return b.String()
}

// InsertAfter returns seq with newID inserted immediately after the first
// occurrence of afterID. An afterID of Top prepends. An afterID not present
// in seq appends: a stale anchor is never an error, the element just lands
// at the end.
func InsertAfter(seq []int64, afterID, newID int64) []int64 {
	out := make([]int64, 0, len(seq)+1)
	if afterID == Top {
		out = append(out, newID)
		return append(out, seq...)
	}
	inserted := false
	for _, id := range seq {
		out = append(out, id)
		if !inserted && id == afterID {
			out = append(out, newID)
			inserted = true
		}
	}
	if !inserted {
		out = append(out, newID)
	}
	return out
}

// Remove returns seq without the first occurrence of id. Removing an absent
// id is a no-op.
func Remove(seq []int64, id int64) []int64 {
	out := make([]int64, 0, len(seq))
	removed := false
	for _, v := range seq {
		if !removed && v == id {
			removed = true
			continue
		}
		out = append(out, v)
	}
	return out
}

// MoveAfter returns seq with id repositioned immediately after afterID,
// following the same anchor rules as InsertAfter. Moving an element after
// itself leaves the sequence unchanged.
func MoveAfter(seq []int64, afterID, id int64) []int64 {
	if afterID == id {
		out := make([]int64, len(seq))
		copy(out, seq)
		return out
	}
	return InsertAfter(Remove(seq, id), afterID, id)
}

// Remap returns seq with every id replaced through mapping. It is used when
// cloning a board from a template, so the cloned sequences point at the new
// rows. Every id must have a mapping entry; a gap is a bug in the caller,
// not a runtime condition, so Remap panics.
func Remap(seq []int64, mapping map[int64]int64) []int64 {
	out := make([]int64, 0, len(seq))
	for _, id := range seq {
		mapped, ok := mapping[id]
		if !ok {
			panic(fmt.Sprintf("sequence: no mapping for id %d", id))
		}
		out = append(out, mapped)
	}
	return out
}
