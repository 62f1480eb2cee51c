package store

import (
	"context"
	"sort"
	"sync"

	"syncboard/internal/model"
)

// Memory is an in-memory Store. It backs dev mode (STORAGE=memory) and the
// engine/sync/handler tests. Transaction runs fn directly: there is no
// rollback, matching the single-writer use this implementation is meant for.
type Memory struct {
	mu sync.Mutex

	nextID   int64
	boards   map[int64]model.Board
	columns  map[int64]model.Column
	cards    map[int64]model.Card
	messages map[int64]model.DiscussionMessage
	users    map[int64]model.User
	shares   []model.BoardShare

	// card id -> assigned user ids
	assignments map[int64]map[int64]bool
}

func NewMemory() *Memory {
	return &Memory{
		boards:      make(map[int64]model.Board),
		columns:     make(map[int64]model.Column),
		cards:       make(map[int64]model.Card),
		messages:    make(map[int64]model.DiscussionMessage),
		users:       make(map[int64]model.User),
		assignments: make(map[int64]map[int64]bool),
	}
}

func (m *Memory) allocID() int64 {
	m.nextID++
	return m.nextID
}

func (m *Memory) Transaction(ctx context.Context, fn func(Store) error) error {
	return fn(m)
}

func (m *Memory) GetBoard(ctx context.Context, id int64) (*model.Board, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if board, ok := m.boards[id]; ok {
		return &board, nil
	}
	return nil, nil
}

func (m *Memory) CreateBoard(ctx context.Context, board *model.Board) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if board.ID == 0 {
		board.ID = m.allocID()
	} else if board.ID > m.nextID {
		m.nextID = board.ID
	}
	m.boards[board.ID] = *board
	return nil
}

func (m *Memory) UpdateBoard(ctx context.Context, board *model.Board) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.boards[board.ID] = *board
	return nil
}

func (m *Memory) BoardsByOwner(ctx context.Context, ownerID int64) ([]model.Board, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Board
	for _, b := range m.boards {
		if b.OwnerID == ownerID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) GetColumn(ctx context.Context, id int64) (*model.Column, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if column, ok := m.columns[id]; ok {
		return &column, nil
	}
	return nil, nil
}

func (m *Memory) CreateColumn(ctx context.Context, column *model.Column) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if column.ID == 0 {
		column.ID = m.allocID()
	} else if column.ID > m.nextID {
		m.nextID = column.ID
	}
	m.columns[column.ID] = *column
	return nil
}

func (m *Memory) UpdateColumn(ctx context.Context, column *model.Column) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.columns[column.ID] = *column
	return nil
}

func (m *Memory) DeleteColumn(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.columns, id)
	return nil
}

func (m *Memory) ColumnsModifiedAfter(ctx context.Context, boardID, cursor int64) ([]model.Column, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Column
	for _, c := range m.columns {
		if c.BoardID == boardID && c.LastModified > cursor {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) GetCard(ctx context.Context, id int64) (*model.Card, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if card, ok := m.cards[id]; ok {
		return &card, nil
	}
	return nil, nil
}

func (m *Memory) CreateCard(ctx context.Context, card *model.Card) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if card.ID == 0 {
		card.ID = m.allocID()
	} else if card.ID > m.nextID {
		m.nextID = card.ID
	}
	m.cards[card.ID] = *card
	return nil
}

func (m *Memory) UpdateCard(ctx context.Context, card *model.Card) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cards[card.ID] = *card
	return nil
}

func (m *Memory) DeleteCard(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.cards, id)
	return nil
}

func (m *Memory) CardsModifiedAfter(ctx context.Context, boardID, cursor int64) ([]model.Card, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Card
	for _, c := range m.cards {
		if c.BoardID == boardID && c.LastModified > cursor {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) Assignees(ctx context.Context, cardID int64) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	set := m.assignments[cardID]
	ids := make([]int64, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (m *Memory) AddAssignee(ctx context.Context, cardID, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.assignments[cardID] == nil {
		m.assignments[cardID] = make(map[int64]bool)
	}
	m.assignments[cardID][userID] = true
	return nil
}

func (m *Memory) RemoveAssignee(ctx context.Context, cardID, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.assignments[cardID], userID)
	return nil
}

func (m *Memory) DeleteAssignments(ctx context.Context, cardID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.assignments, cardID)
	return nil
}

func (m *Memory) GetMessage(ctx context.Context, id int64) (*model.DiscussionMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if msg, ok := m.messages[id]; ok {
		return &msg, nil
	}
	return nil, nil
}

func (m *Memory) CreateMessage(ctx context.Context, msg *model.DiscussionMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if msg.ID == 0 {
		msg.ID = m.allocID()
	} else if msg.ID > m.nextID {
		m.nextID = msg.ID
	}
	m.messages[msg.ID] = *msg
	return nil
}

func (m *Memory) DeleteMessage(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.messages, id)
	return nil
}

func (m *Memory) CountMessages(ctx context.Context, cardID int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var count int64
	for _, msg := range m.messages {
		if msg.CardID == cardID {
			count++
		}
	}
	return count, nil
}

func (m *Memory) MessagesByCard(ctx context.Context, cardID int64) ([]model.DiscussionMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.DiscussionMessage
	for _, msg := range m.messages {
		if msg.CardID == cardID {
			out = append(out, msg)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) DeleteMessagesByCard(ctx context.Context, cardID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, msg := range m.messages {
		if msg.CardID == cardID {
			delete(m.messages, id)
		}
	}
	return nil
}

func (m *Memory) GetUser(ctx context.Context, id int64) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if user, ok := m.users[id]; ok {
		return &user, nil
	}
	return nil, nil
}

func (m *Memory) UsersByIDs(ctx context.Context, ids []int64) ([]model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.User
	for _, id := range ids {
		if user, ok := m.users[id]; ok {
			out = append(out, user)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) CreateUser(ctx context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if user.ID == 0 {
		user.ID = m.allocID()
	} else if user.ID > m.nextID {
		m.nextID = user.ID
	}
	m.users[user.ID] = *user
	return nil
}

func (m *Memory) FindUserByEmail(ctx context.Context, email string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, user := range m.users {
		if user.Email == email {
			u := user
			return &u, nil
		}
	}
	return nil, nil
}

func (m *Memory) CreateShare(ctx context.Context, share *model.BoardShare) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if share.ID == 0 {
		share.ID = m.allocID()
	}
	m.shares = append(m.shares, *share)
	return nil
}

func (m *Memory) DeleteShare(ctx context.Context, boardID, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.shares[:0]
	for _, s := range m.shares {
		if s.BoardID != boardID || s.UserID != userID {
			kept = append(kept, s)
		}
	}
	m.shares = kept
	return nil
}

func (m *Memory) HasBoardRole(ctx context.Context, boardID, userID int64, role string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.shares {
		if s.BoardID != boardID || s.UserID != userID {
			continue
		}
		if role != model.RoleEditor || s.Role == model.RoleEditor {
			return true, nil
		}
	}
	return false, nil
}
