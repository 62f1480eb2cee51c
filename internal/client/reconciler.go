// Package client holds the board-view side of the update protocol: the
// reconciler that applies incoming patch lists to local state and the
// polling loop that periodically fetches them. Both a mutation's own result
// and a catch-up fetch flow through the same ApplyPatches, so the two paths
// cannot disagree on how a patch lands.
package client

import (
	"encoding/json"
	"strconv"
	"sync"

	"syncboard/internal/patch"
	"syncboard/internal/sequence"
)

// Entity is the client's last-known field set for one entity.
type Entity map[string]any

// Listener observes applied patches, e.g. to refresh a widget.
type Listener func(kind string, action patch.Action, id int64)

// Reconciler tracks one board view. Applying the same patch list twice is a
// no-op the second time, so a caller may safely retry a failed catch-up.
type Reconciler struct {
	mu      sync.Mutex
	boardID int64

	boards   map[int64]Entity
	columns  map[int64]Entity
	cards    map[int64]Entity
	users    map[int64]Entity
	messages map[int64]Entity

	root        *Node
	columnNodes map[int64]*Node
	cardNodes   map[int64]*Node

	listeners []Listener
}

func NewReconciler(boardID int64) *Reconciler {
	return &Reconciler{
		boardID:     boardID,
		boards:      make(map[int64]Entity),
		columns:     make(map[int64]Entity),
		cards:       make(map[int64]Entity),
		users:       make(map[int64]Entity),
		messages:    make(map[int64]Entity),
		root:        &Node{Kind: patch.KindBoard, ID: boardID},
		columnNodes: make(map[int64]*Node),
		cardNodes:   make(map[int64]*Node),
	}
}

// Subscribe registers a listener for applied patches. Listeners run after a
// patch list has been fully applied and must not call back into the
// reconciler's apply path.
func (r *Reconciler) Subscribe(fn Listener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, fn)
}

type event struct {
	kind   string
	action patch.Action
	id     int64
}

// ApplyPatches applies an ordered patch list: upserts and deletes entities
// by id, and whenever a sequence field arrives on a board or column patch,
// makes the rendered child order match it exactly — removing children no
// longer listed and leaving untouched children stable.
func (r *Reconciler) ApplyPatches(patches []patch.Patch) {
	r.mu.Lock()
	var events []event
	var listeners []Listener
	for _, p := range patches {
		id, ok := asInt64(p.Fields["id"])
		if !ok {
			continue
		}
		r.apply(p, id)
		events = append(events, event{kind: p.Name, action: p.Action, id: id})
	}
	listeners = append(listeners, r.listeners...)
	r.mu.Unlock()

	for _, fn := range listeners {
		for _, ev := range events {
			fn(ev.kind, ev.action, ev.id)
		}
	}
}

func (r *Reconciler) apply(p patch.Patch, id int64) {
	if p.Action == patch.ActionDelete {
		r.applyDelete(p.Name, id)
		return
	}

	coll := r.collection(p.Name)
	if coll == nil {
		return
	}
	ent, ok := coll[id]
	if !ok {
		ent = make(Entity, len(p.Fields))
		coll[id] = ent
	}
	// Partial update: absent fields stay untouched.
	for k, v := range p.Fields {
		ent[k] = v
	}

	seq, hasSeq := p.Fields["sequence"].(string)
	switch p.Name {
	case patch.KindBoard:
		if id == r.boardID && hasSeq {
			r.reorder(r.root, patch.KindColumn, sequence.Decode(seq))
		}
	case patch.KindColumn:
		if node := r.ensureNode(patch.KindColumn, id); hasSeq {
			r.reorder(node, patch.KindCard, sequence.Decode(seq))
		}
	case patch.KindCard:
		r.ensureNode(patch.KindCard, id)
	}
}

func (r *Reconciler) applyDelete(kind string, id int64) {
	switch kind {
	case patch.KindColumn:
		delete(r.columns, id)
		if node, ok := r.columnNodes[id]; ok {
			// Tear down the column's rendered cards with it.
			for _, child := range node.children {
				delete(r.cardNodes, child.ID)
			}
			node.children = nil
			node.detach()
			delete(r.columnNodes, id)
		}
	case patch.KindCard:
		delete(r.cards, id)
		if node, ok := r.cardNodes[id]; ok {
			node.detach()
			delete(r.cardNodes, id)
		}
	case patch.KindBoard:
		delete(r.boards, id)
		if id == r.boardID {
			r.root.children = nil
			r.columnNodes = make(map[int64]*Node)
			r.cardNodes = make(map[int64]*Node)
		}
	case patch.KindUser:
		delete(r.users, id)
	case patch.KindMessage:
		delete(r.messages, id)
	}
}

func (r *Reconciler) collection(kind string) map[int64]Entity {
	switch kind {
	case patch.KindBoard:
		return r.boards
	case patch.KindColumn:
		return r.columns
	case patch.KindCard:
		return r.cards
	case patch.KindUser:
		return r.users
	case patch.KindMessage:
		return r.messages
	}
	return nil
}

func (r *Reconciler) nodeIndex(kind string) map[int64]*Node {
	if kind == patch.KindColumn {
		return r.columnNodes
	}
	return r.cardNodes
}

func (r *Reconciler) ensureNode(kind string, id int64) *Node {
	index := r.nodeIndex(kind)
	if node, ok := index[id]; ok {
		return node
	}
	node := &Node{Kind: kind, ID: id}
	index[id] = node
	return node
}

// reorder makes parent's rendered children match seq exactly. Children whose
// id is absent from seq are detached; ids without a node yet get one, so a
// sequence may safely arrive before the create patch of a child it names.
func (r *Reconciler) reorder(parent *Node, childKind string, seq []int64) {
	wanted := make(map[int64]bool, len(seq))
	for _, id := range seq {
		wanted[id] = true
	}
	for _, child := range append([]*Node(nil), parent.children...) {
		if !wanted[child.ID] {
			child.detach()
		}
	}
	children := make([]*Node, 0, len(seq))
	for _, id := range seq {
		node := r.ensureNode(childKind, id)
		if node.parent != parent {
			node.detach()
			node.parent = parent
		}
		children = append(children, node)
	}
	parent.children = children
}

// ColumnOrder returns the rendered column ids of the board, in order.
func (r *Reconciler) ColumnOrder() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.root.ChildIDs()
}

// CardOrder returns the rendered card ids of a column, in order.
func (r *Reconciler) CardOrder(columnID int64) []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	node, ok := r.columnNodes[columnID]
	if !ok {
		return nil
	}
	return node.ChildIDs()
}

// Column returns a copy of the last-known fields of a column.
func (r *Reconciler) Column(id int64) Entity {
	return r.snapshot(r.columns, id)
}

// Card returns a copy of the last-known fields of a card.
func (r *Reconciler) Card(id int64) Entity {
	return r.snapshot(r.cards, id)
}

// User returns a copy of the last-known fields of a user.
func (r *Reconciler) User(id int64) Entity {
	return r.snapshot(r.users, id)
}

// Board returns a copy of the last-known fields of the tracked board.
func (r *Reconciler) Board() Entity {
	return r.snapshot(r.boards, r.boardID)
}

func (r *Reconciler) snapshot(coll map[int64]Entity, id int64) Entity {
	r.mu.Lock()
	defer r.mu.Unlock()
	ent, ok := coll[id]
	if !ok {
		return nil
	}
	out := make(Entity, len(ent))
	for k, v := range ent {
		out[k] = v
	}
	return out
}

// asInt64 normalizes the id representations that survive JSON transport.
func asInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case float64:
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	case string:
		i, err := strconv.ParseInt(n, 10, 64)
		return i, err == nil
	}
	return 0, false
}
