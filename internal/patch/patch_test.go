package patch_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"

	"syncboard/internal/patch"
)

func TestLogPreservesEmissionOrder(t *testing.T) {
	log := patch.NewLog()
	log.Create(patch.KindCard, map[string]any{"id": int64(40), "title": "x"})
	log.Put(patch.KindColumn, map[string]any{"id": int64(20), "sequence": "40"})
	log.Delete(patch.KindCard, 41)

	patches := log.Patches()
	assert.Len(t, patches, 3)
	assert.Equal(t, patch.ActionCreate, patches[0].Action)
	assert.Equal(t, patch.KindCard, patches[0].Name)
	assert.Equal(t, patch.ActionPut, patches[1].Action)
	assert.Equal(t, patch.ActionDelete, patches[2].Action)
	assert.Equal(t, int64(41), patches[2].Fields["id"])
}

func TestEmptyLogIsNonNil(t *testing.T) {
	log := patch.NewLog()
	patches := log.Patches()
	assert.NotNil(t, patches)
	assert.Empty(t, patches)

	// The wire form must be a JSON array even when nothing changed.
	raw, err := json.Marshal(patches)
	assert.NoError(t, err)
	assert.Equal(t, "[]", string(raw))
}

func TestPutScrubsUnsafeMarkup(t *testing.T) {
	log := patch.NewLog()
	log.Put(patch.KindCard, map[string]any{
		"id":    int64(40),
		"title": `hello <script>alert("x")</script>world`,
	})

	fields := log.Patches()[0].Fields
	assert.Equal(t, "hello world", fields["title"])
}

func TestPutCoercesNumericStrings(t *testing.T) {
	log := patch.NewLog()
	log.Put(patch.KindCard, map[string]any{
		"id":        "40",
		"column_id": " 20 ",
		"title":     "not a number",
	})

	fields := log.Patches()[0].Fields
	assert.Equal(t, int64(40), fields["id"])
	assert.Equal(t, int64(20), fields["column_id"])
	assert.Equal(t, "not a number", fields["title"])
}

func TestSequenceFieldStaysString(t *testing.T) {
	log := patch.NewLog()
	// A single-element sequence looks numeric but must stay a string.
	log.Put(patch.KindColumn, map[string]any{"id": int64(20), "sequence": "40"})

	fields := log.Patches()[0].Fields
	assert.Equal(t, "40", fields["sequence"])
}

func TestNonStringFieldsPassThrough(t *testing.T) {
	log := patch.NewLog()
	log.Put(patch.KindCard, map[string]any{
		"id":        int64(40),
		"completed": true,
		"assignees": []int64{1, 2},
	})

	fields := log.Patches()[0].Fields
	assert.Equal(t, true, fields["completed"])
	assert.Equal(t, []int64{1, 2}, fields["assignees"])
}

func TestWireFormat(t *testing.T) {
	log := patch.NewLog()
	log.Put(patch.KindColumn, map[string]any{"id": int64(20), "sequence": "40,41"})

	raw, err := json.Marshal(log.Patches())
	assert.NoError(t, err)
	assert.JSONEq(t, `[{"name":"column","action":"put","fields":{"id":20,"sequence":"40,41"}}]`, string(raw))
}
