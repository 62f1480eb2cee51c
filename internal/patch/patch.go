// Package patch defines the wire records that carry board changes to
// clients. Both a mutation's own result and an incremental-sync catch-up are
// expressed as an ordered list of these records, so the client has a single
// apply path.
package patch

import (
	"strconv"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

type Action string

const (
	ActionCreate Action = "create"
	ActionPut    Action = "put"
	ActionDelete Action = "delete"
)

// Entity kind names used on the wire.
const (
	KindBoard   = "board"
	KindColumn  = "column"
	KindCard    = "card"
	KindUser    = "user"
	KindMessage = "message"
)

// Patch describes one create/update/delete of one entity. Fields always
// contains "id". Order within a patch list matters: later patches to the
// same entity win, so clients must apply in order.
type Patch struct {
	Name   string         `json:"name"`
	Action Action         `json:"action"`
	Fields map[string]any `json:"fields"`
}

// sanitizer strips unsafe markup from free-text fields before transport.
var sanitizer = bluemonday.UGCPolicy()

// Log collects the patches emitted during one request, in emission order.
// The zero value is ready to use.
type Log struct {
	patches []Patch
}

func NewLog() *Log {
	return &Log{}
}

// Create appends a create record. Payloads are scrubbed like Put payloads.
func (l *Log) Create(name string, fields map[string]any) {
	l.patches = append(l.patches, Patch{Name: name, Action: ActionCreate, Fields: scrub(fields)})
}

// Put appends an update record carrying only the fields that changed.
func (l *Log) Put(name string, fields map[string]any) {
	l.patches = append(l.patches, Patch{Name: name, Action: ActionPut, Fields: scrub(fields)})
}

// Delete appends a delete record; only the id travels.
func (l *Log) Delete(name string, id int64) {
	l.patches = append(l.patches, Patch{Name: name, Action: ActionDelete, Fields: map[string]any{"id": id}})
}

// Patches returns the collected list in emission order. A request that
// changed nothing yields an empty, non-nil list so the wire form is always
// a JSON array.
func (l *Log) Patches() []Patch {
	if l.patches == nil {
		return []Patch{}
	}
	return l.patches
}

// scrub normalizes a payload for transport: free-text string fields lose
// unsafe markup, and numeric-looking strings become numbers so the wire
// format is type-stable regardless of how the store returned them. The
// sequence field stays a string; it is the codec's serialized form.
func scrub(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		s, ok := v.(string)
		if !ok || k == "sequence" {
			out[k] = v
			continue
		}
		if n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64); err == nil && strings.TrimSpace(s) != "" {
			out[k] = n
			continue
		}
		out[k] = sanitizer.Sanitize(s)
	}
	return out
}
