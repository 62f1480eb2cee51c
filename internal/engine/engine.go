// Package engine implements the board mutation operations. Every operation
// reads current state, recomputes the affected sequences, persists all of
// its writes in one transaction and returns the patch list describing what
// changed, so the initiating client can reconcile without a follow-up fetch.
package engine

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"syncboard/internal/model"
	"syncboard/internal/patch"
	"syncboard/internal/sequence"
	"syncboard/internal/store"
)

// Validation failures. These are rejected before any write; no patch is
// emitted and nothing is retried.
var (
	ErrBoardNotFound   = errors.New("board not found")
	ErrColumnNotFound  = errors.New("column not found")
	ErrCardNotFound    = errors.New("card not found")
	ErrMessageNotFound = errors.New("message not found")
	ErrUserNotFound    = errors.New("user not found")
	ErrBoardLocked     = errors.New("board is locked")
	ErrColumnLocked    = errors.New("column is locked")
)

type Engine struct {
	store store.Store
	log   *logrus.Logger
	now   func() time.Time
}

func New(st store.Store, log *logrus.Logger) *Engine {
	return &Engine{store: st, log: log, now: time.Now}
}

// stamp returns the next lastModified value for a row whose current value is
// prev. Wall-clock time normally wins; the +1 keeps the value strictly
// advancing when two mutations land within the same millisecond, since
// lastModified is the sync cursor.
func (e *Engine) stamp(prev int64) int64 {
	now := e.now().UnixMilli()
	if now <= prev {
		now = prev + 1
	}
	return now
}

// anchor translates the nullable wire anchor into the codec's form.
func anchor(afterID *int64) int64 {
	if afterID == nil {
		return sequence.Top
	}
	return *afterID
}

func boardFields(b *model.Board) map[string]any {
	return map[string]any{
		"id":            b.ID,
		"title":         b.Title,
		"sequence":      b.Sequence,
		"locked":        b.Locked,
		"scope":         b.Scope,
		"last_modified": b.LastModified,
	}
}

func columnFields(c *model.Column) map[string]any {
	return map[string]any{
		"id":            c.ID,
		"board_id":      c.BoardID,
		"title":         c.Title,
		"sequence":      c.Sequence,
		"locked":        c.Locked,
		"options":       c.Options,
		"last_modified": c.LastModified,
	}
}

func cardFields(c *model.Card, assignees []int64) map[string]any {
	if assignees == nil {
		assignees = []int64{}
	}
	return map[string]any{
		"id":             c.ID,
		"column_id":      c.ColumnID,
		"title":          c.Title,
		"content":        c.Content,
		"completed":      c.Completed,
		"has_discussion": c.HasDiscussion,
		"options":        c.Options,
		"assignees":      assignees,
		"last_modified":  c.LastModified,
	}
}

// CreateBoard creates an empty board owned by ownerID.
func (e *Engine) CreateBoard(ctx context.Context, ownerID int64, title, scope string) (*model.Board, []patch.Patch, error) {
	if scope == "" {
		scope = model.ScopeUser
	}
	board := &model.Board{
		Title:        title,
		OwnerID:      ownerID,
		Scope:        scope,
		LastModified: e.stamp(0),
	}
	if err := e.store.CreateBoard(ctx, board); err != nil {
		return nil, nil, err
	}
	log := patch.NewLog()
	log.Create(patch.KindBoard, boardFields(board))
	e.log.WithFields(logrus.Fields{"board": board.ID, "owner": ownerID}).Info("board created")
	return board, log.Patches(), nil
}

// CloneBoard copies a template board's columns and cards into a new board
// owned by ownerID. Old ids are remapped into the cloned sequences so the
// new board's ordering mirrors the template's. Assignees and discussion
// threads are not copied.
func (e *Engine) CloneBoard(ctx context.Context, templateID, ownerID int64, title, scope string) (*model.Board, []patch.Patch, error) {
	tpl, err := e.store.GetBoard(ctx, templateID)
	if err != nil {
		return nil, nil, err
	}
	if tpl == nil {
		return nil, nil, ErrBoardNotFound
	}
	if title == "" {
		title = tpl.Title
	}
	if scope == "" {
		scope = model.ScopeUser
	}

	var board *model.Board
	log := patch.NewLog()
	err = e.store.Transaction(ctx, func(tx store.Store) error {
		board = &model.Board{
			Title:        title,
			OwnerID:      ownerID,
			Scope:        scope,
			LastModified: e.stamp(0),
		}
		if err := tx.CreateBoard(ctx, board); err != nil {
			return err
		}

		columnMap := make(map[int64]int64)
		var clonedColumns []*model.Column
		var clonedCards []*model.Card
		for _, columnID := range sequence.Decode(tpl.Sequence) {
			col, err := tx.GetColumn(ctx, columnID)
			if err != nil {
				return err
			}
			if col == nil {
				return ErrColumnNotFound
			}
			clone := &model.Column{
				BoardID:      board.ID,
				Title:        col.Title,
				Locked:       col.Locked,
				Options:      col.Options,
				LastModified: e.stamp(0),
			}
			if err := tx.CreateColumn(ctx, clone); err != nil {
				return err
			}
			columnMap[col.ID] = clone.ID

			cardMap := make(map[int64]int64)
			for _, cardID := range sequence.Decode(col.Sequence) {
				card, err := tx.GetCard(ctx, cardID)
				if err != nil {
					return err
				}
				if card == nil {
					return ErrCardNotFound
				}
				cardClone := &model.Card{
					ColumnID:     clone.ID,
					BoardID:      board.ID,
					Title:        card.Title,
					Content:      card.Content,
					Options:      card.Options,
					CreatedBy:    ownerID,
					LastModified: e.stamp(0),
				}
				if err := tx.CreateCard(ctx, cardClone); err != nil {
					return err
				}
				cardMap[card.ID] = cardClone.ID
				clonedCards = append(clonedCards, cardClone)
			}
			clone.Sequence = sequence.Encode(sequence.Remap(sequence.Decode(col.Sequence), cardMap))
			if err := tx.UpdateColumn(ctx, clone); err != nil {
				return err
			}
			clonedColumns = append(clonedColumns, clone)
		}

		board.Sequence = sequence.Encode(sequence.Remap(sequence.Decode(tpl.Sequence), columnMap))
		if err := tx.UpdateBoard(ctx, board); err != nil {
			return err
		}

		log.Create(patch.KindBoard, boardFields(board))
		for _, col := range clonedColumns {
			log.Create(patch.KindColumn, columnFields(col))
		}
		for _, card := range clonedCards {
			log.Create(patch.KindCard, cardFields(card, nil))
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	e.log.WithFields(logrus.Fields{"board": board.ID, "template": templateID}).Info("board cloned")
	return board, log.Patches(), nil
}

// SetBoardColumnsLocked locks or unlocks the board and cascades the flag to
// every column of the board.
func (e *Engine) SetBoardColumnsLocked(ctx context.Context, boardID int64, locked bool) ([]patch.Patch, error) {
	board, err := e.store.GetBoard(ctx, boardID)
	if err != nil {
		return nil, err
	}
	if board == nil {
		return nil, ErrBoardNotFound
	}

	log := patch.NewLog()
	err = e.store.Transaction(ctx, func(tx store.Store) error {
		board.Locked = locked
		board.LastModified = e.stamp(board.LastModified)
		if err := tx.UpdateBoard(ctx, board); err != nil {
			return err
		}
		log.Put(patch.KindBoard, map[string]any{
			"id":            board.ID,
			"locked":        board.Locked,
			"last_modified": board.LastModified,
		})

		for _, columnID := range sequence.Decode(board.Sequence) {
			col, err := tx.GetColumn(ctx, columnID)
			if err != nil {
				return err
			}
			if col == nil {
				continue
			}
			col.Locked = locked
			col.LastModified = e.stamp(col.LastModified)
			if err := tx.UpdateColumn(ctx, col); err != nil {
				return err
			}
			log.Put(patch.KindColumn, map[string]any{
				"id":            col.ID,
				"locked":        col.Locked,
				"last_modified": col.LastModified,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.log.WithFields(logrus.Fields{"board": boardID, "locked": locked}).Info("board columns lock toggled")
	return log.Patches(), nil
}
