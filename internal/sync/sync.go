// Package sync implements the catch-up side of the update protocol: given a
// board and the last timestamp a client has fully observed, it returns every
// newer row reshaped into the same patch format the mutation engine emits,
// so catch-up and live mutation share one wire format and one client apply
// path.
//
// Deletions leave no tombstone: a client whose cursor predates a deletion
// will not hear about it and reconciles by fetching a full snapshot
// (cursor 0). This is a documented limitation, not an error condition.
package sync

import (
	"context"

	"syncboard/internal/engine"
	"syncboard/internal/patch"
	"syncboard/internal/store"
)

type Service struct {
	store store.Store
}

func New(st store.Store) *Service {
	return &Service{store: st}
}

// Sync returns one put patch per board/column/card row of boardID modified
// after cursor. Card patches embed the full current assignee list, and a put
// user patch is emitted for every user referenced by a returned card so the
// client can resolve names without a second request. Cursor 0 yields a full
// snapshot. Sync performs no writes.
func (s *Service) Sync(ctx context.Context, boardID, cursor int64) ([]patch.Patch, error) {
	board, err := s.store.GetBoard(ctx, boardID)
	if err != nil {
		return nil, err
	}
	if board == nil {
		return nil, engine.ErrBoardNotFound
	}

	log := patch.NewLog()
	if board.LastModified > cursor {
		log.Put(patch.KindBoard, map[string]any{
			"id":            board.ID,
			"title":         board.Title,
			"sequence":      board.Sequence,
			"locked":        board.Locked,
			"scope":         board.Scope,
			"last_modified": board.LastModified,
		})
	}

	columns, err := s.store.ColumnsModifiedAfter(ctx, boardID, cursor)
	if err != nil {
		return nil, err
	}
	for i := range columns {
		col := &columns[i]
		log.Put(patch.KindColumn, map[string]any{
			"id":            col.ID,
			"board_id":      col.BoardID,
			"title":         col.Title,
			"sequence":      col.Sequence,
			"locked":        col.Locked,
			"options":       col.Options,
			"last_modified": col.LastModified,
		})
	}

	cards, err := s.store.CardsModifiedAfter(ctx, boardID, cursor)
	if err != nil {
		return nil, err
	}
	seen := make(map[int64]bool)
	var userIDs []int64
	for i := range cards {
		card := &cards[i]
		assignees, err := s.store.Assignees(ctx, card.ID)
		if err != nil {
			return nil, err
		}
		if assignees == nil {
			assignees = []int64{}
		}
		for _, id := range assignees {
			if !seen[id] {
				seen[id] = true
				userIDs = append(userIDs, id)
			}
		}
		log.Put(patch.KindCard, map[string]any{
			"id":             card.ID,
			"column_id":      card.ColumnID,
			"title":          card.Title,
			"content":        card.Content,
			"completed":      card.Completed,
			"has_discussion": card.HasDiscussion,
			"options":        card.Options,
			"assignees":      assignees,
			"last_modified":  card.LastModified,
		})
	}

	users, err := s.store.UsersByIDs(ctx, userIDs)
	if err != nil {
		return nil, err
	}
	for i := range users {
		log.Put(patch.KindUser, map[string]any{
			"id":   users[i].ID,
			"name": users[i].Name,
		})
	}

	return log.Patches(), nil
}
