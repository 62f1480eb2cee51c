package engine

import (
	"context"

	"github.com/sirupsen/logrus"

	"syncboard/internal/model"
	"syncboard/internal/patch"
	"syncboard/internal/sequence"
	"syncboard/internal/store"
)

// AddColumn creates a column and inserts it into the board's sequence after
// afterID (nil means head of the board).
func (e *Engine) AddColumn(ctx context.Context, boardID int64, afterID *int64, title string, opts model.ColumnOptions) (*model.Column, []patch.Patch, error) {
	board, err := e.store.GetBoard(ctx, boardID)
	if err != nil {
		return nil, nil, err
	}
	if board == nil {
		return nil, nil, ErrBoardNotFound
	}
	if board.Locked {
		return nil, nil, ErrBoardLocked
	}

	var column *model.Column
	log := patch.NewLog()
	err = e.store.Transaction(ctx, func(tx store.Store) error {
		column = &model.Column{
			BoardID:      boardID,
			Title:        title,
			Options:      opts,
			LastModified: e.stamp(0),
		}
		if err := tx.CreateColumn(ctx, column); err != nil {
			return err
		}

		board.Sequence = sequence.Encode(sequence.InsertAfter(sequence.Decode(board.Sequence), anchor(afterID), column.ID))
		board.LastModified = e.stamp(board.LastModified)
		if err := tx.UpdateBoard(ctx, board); err != nil {
			return err
		}

		log.Create(patch.KindColumn, columnFields(column))
		log.Put(patch.KindBoard, map[string]any{
			"id":            board.ID,
			"sequence":      board.Sequence,
			"last_modified": board.LastModified,
		})
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	e.log.WithFields(logrus.Fields{"board": boardID, "column": column.ID}).Info("column added")
	return column, log.Patches(), nil
}

// MoveColumn repositions a column within the board's sequence. A locked
// board or column makes this a no-op rather than an error, so a concurrent
// lock cannot fail an in-flight drag.
func (e *Engine) MoveColumn(ctx context.Context, columnID int64, afterID *int64) ([]patch.Patch, error) {
	column, err := e.store.GetColumn(ctx, columnID)
	if err != nil {
		return nil, err
	}
	if column == nil {
		return nil, ErrColumnNotFound
	}
	board, err := e.store.GetBoard(ctx, column.BoardID)
	if err != nil {
		return nil, err
	}
	if board == nil {
		return nil, ErrBoardNotFound
	}
	log := patch.NewLog()
	if board.Locked || column.Locked {
		return log.Patches(), nil
	}

	err = e.store.Transaction(ctx, func(tx store.Store) error {
		board.Sequence = sequence.Encode(sequence.MoveAfter(sequence.Decode(board.Sequence), anchor(afterID), columnID))
		board.LastModified = e.stamp(board.LastModified)
		if err := tx.UpdateBoard(ctx, board); err != nil {
			return err
		}
		log.Put(patch.KindBoard, map[string]any{
			"id":            board.ID,
			"sequence":      board.Sequence,
			"last_modified": board.LastModified,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.log.WithFields(logrus.Fields{"board": board.ID, "column": columnID}).Debug("column moved")
	return log.Patches(), nil
}

// UpdateColumn edits the column's title and options.
func (e *Engine) UpdateColumn(ctx context.Context, columnID int64, title string, opts model.ColumnOptions) ([]patch.Patch, error) {
	column, err := e.store.GetColumn(ctx, columnID)
	if err != nil {
		return nil, err
	}
	if column == nil {
		return nil, ErrColumnNotFound
	}
	if column.Locked {
		return nil, ErrColumnLocked
	}

	log := patch.NewLog()
	err = e.store.Transaction(ctx, func(tx store.Store) error {
		column.Title = title
		column.Options = opts
		column.LastModified = e.stamp(column.LastModified)
		if err := tx.UpdateColumn(ctx, column); err != nil {
			return err
		}
		log.Put(patch.KindColumn, map[string]any{
			"id":            column.ID,
			"title":         column.Title,
			"options":       column.Options,
			"last_modified": column.LastModified,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return log.Patches(), nil
}

// SetColumnLocked toggles the column's lock flag.
func (e *Engine) SetColumnLocked(ctx context.Context, columnID int64, locked bool) ([]patch.Patch, error) {
	column, err := e.store.GetColumn(ctx, columnID)
	if err != nil {
		return nil, err
	}
	if column == nil {
		return nil, ErrColumnNotFound
	}

	log := patch.NewLog()
	err = e.store.Transaction(ctx, func(tx store.Store) error {
		column.Locked = locked
		column.LastModified = e.stamp(column.LastModified)
		if err := tx.UpdateColumn(ctx, column); err != nil {
			return err
		}
		log.Put(patch.KindColumn, map[string]any{
			"id":            column.ID,
			"locked":        column.Locked,
			"last_modified": column.LastModified,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return log.Patches(), nil
}

// DeleteColumn deletes a column and every card in it. Card deletions emit
// one delete patch each; the board sequence is rewritten once at the end,
// not per card.
func (e *Engine) DeleteColumn(ctx context.Context, columnID int64) ([]patch.Patch, error) {
	column, err := e.store.GetColumn(ctx, columnID)
	if err != nil {
		return nil, err
	}
	if column == nil {
		return nil, ErrColumnNotFound
	}
	board, err := e.store.GetBoard(ctx, column.BoardID)
	if err != nil {
		return nil, err
	}
	if board == nil {
		return nil, ErrBoardNotFound
	}
	if board.Locked {
		return nil, ErrBoardLocked
	}

	log := patch.NewLog()
	err = e.store.Transaction(ctx, func(tx store.Store) error {
		for _, cardID := range sequence.Decode(column.Sequence) {
			if err := e.deleteCardRows(ctx, tx, cardID); err != nil {
				return err
			}
			log.Delete(patch.KindCard, cardID)
		}
		if err := tx.DeleteColumn(ctx, columnID); err != nil {
			return err
		}
		log.Delete(patch.KindColumn, columnID)

		board.Sequence = sequence.Encode(sequence.Remove(sequence.Decode(board.Sequence), columnID))
		board.LastModified = e.stamp(board.LastModified)
		if err := tx.UpdateBoard(ctx, board); err != nil {
			return err
		}
		log.Put(patch.KindBoard, map[string]any{
			"id":            board.ID,
			"sequence":      board.Sequence,
			"last_modified": board.LastModified,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.log.WithFields(logrus.Fields{"board": board.ID, "column": columnID}).Info("column deleted")
	return log.Patches(), nil
}

// deleteCardRows removes a card and its dependent rows without touching any
// sequence; callers own the sequence update.
func (e *Engine) deleteCardRows(ctx context.Context, tx store.Store, cardID int64) error {
	if err := tx.DeleteAssignments(ctx, cardID); err != nil {
		return err
	}
	if err := tx.DeleteMessagesByCard(ctx, cardID); err != nil {
		return err
	}
	return tx.DeleteCard(ctx, cardID)
}
