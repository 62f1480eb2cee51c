package engine

import (
	"context"

	"github.com/sirupsen/logrus"

	"syncboard/internal/model"
	"syncboard/internal/patch"
	"syncboard/internal/sequence"
	"syncboard/internal/store"
)

// AddCard creates a card in columnID and inserts it into the column's
// sequence after afterID (nil means head of the column).
func (e *Engine) AddCard(ctx context.Context, userID, columnID int64, afterID *int64, title, content string) (*model.Card, []patch.Patch, error) {
	column, err := e.store.GetColumn(ctx, columnID)
	if err != nil {
		return nil, nil, err
	}
	if column == nil {
		return nil, nil, ErrColumnNotFound
	}
	if column.Locked {
		return nil, nil, ErrColumnLocked
	}
	board, err := e.store.GetBoard(ctx, column.BoardID)
	if err != nil {
		return nil, nil, err
	}
	if board == nil {
		return nil, nil, ErrBoardNotFound
	}
	if board.Locked {
		return nil, nil, ErrBoardLocked
	}

	var card *model.Card
	log := patch.NewLog()
	err = e.store.Transaction(ctx, func(tx store.Store) error {
		card = &model.Card{
			ColumnID:     columnID,
			BoardID:      column.BoardID,
			Title:        title,
			Content:      content,
			CreatedBy:    userID,
			LastModified: e.stamp(0),
		}
		if err := tx.CreateCard(ctx, card); err != nil {
			return err
		}

		column.Sequence = sequence.Encode(sequence.InsertAfter(sequence.Decode(column.Sequence), anchor(afterID), card.ID))
		column.LastModified = e.stamp(column.LastModified)
		if err := tx.UpdateColumn(ctx, column); err != nil {
			return err
		}

		log.Create(patch.KindCard, cardFields(card, nil))
		log.Put(patch.KindColumn, map[string]any{
			"id":            column.ID,
			"sequence":      column.Sequence,
			"last_modified": column.LastModified,
		})
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	e.log.WithFields(logrus.Fields{"column": columnID, "card": card.ID}).Info("card added")
	return card, log.Patches(), nil
}

// MoveCard repositions a card after afterID inside targetColumnID. A move
// within the card's own column rewrites one sequence. A cross-column move is
// the one operation touching three rows — source column, target column and
// the card itself — and all three are written in the same transaction. If
// the target column autocloses, an incomplete card is completed on arrival.
func (e *Engine) MoveCard(ctx context.Context, cardID int64, afterID *int64, targetColumnID int64) ([]patch.Patch, error) {
	card, err := e.store.GetCard(ctx, cardID)
	if err != nil {
		return nil, err
	}
	if card == nil {
		return nil, ErrCardNotFound
	}
	source, err := e.store.GetColumn(ctx, card.ColumnID)
	if err != nil {
		return nil, err
	}
	if source == nil {
		return nil, ErrColumnNotFound
	}
	board, err := e.store.GetBoard(ctx, source.BoardID)
	if err != nil {
		return nil, err
	}
	if board == nil {
		return nil, ErrBoardNotFound
	}
	if board.Locked {
		return nil, ErrBoardLocked
	}
	if source.Locked {
		return nil, ErrColumnLocked
	}

	log := patch.NewLog()

	if targetColumnID == source.ID {
		err = e.store.Transaction(ctx, func(tx store.Store) error {
			source.Sequence = sequence.Encode(sequence.MoveAfter(sequence.Decode(source.Sequence), anchor(afterID), cardID))
			source.LastModified = e.stamp(source.LastModified)
			if err := tx.UpdateColumn(ctx, source); err != nil {
				return err
			}
			log.Put(patch.KindColumn, map[string]any{
				"id":            source.ID,
				"sequence":      source.Sequence,
				"last_modified": source.LastModified,
			})
			return nil
		})
		if err != nil {
			return nil, err
		}
		return log.Patches(), nil
	}

	target, err := e.store.GetColumn(ctx, targetColumnID)
	if err != nil {
		return nil, err
	}
	// A column of another board is not a valid target; cards never cross
	// board boundaries.
	if target == nil || target.BoardID != source.BoardID {
		return nil, ErrColumnNotFound
	}
	if target.Locked {
		return nil, ErrColumnLocked
	}

	err = e.store.Transaction(ctx, func(tx store.Store) error {
		source.Sequence = sequence.Encode(sequence.Remove(sequence.Decode(source.Sequence), cardID))
		source.LastModified = e.stamp(source.LastModified)
		if err := tx.UpdateColumn(ctx, source); err != nil {
			return err
		}

		target.Sequence = sequence.Encode(sequence.InsertAfter(sequence.Decode(target.Sequence), anchor(afterID), cardID))
		target.LastModified = e.stamp(target.LastModified)
		if err := tx.UpdateColumn(ctx, target); err != nil {
			return err
		}

		card.ColumnID = target.ID
		completedChanged := false
		if target.Options.AutoClose && !card.Completed {
			card.Completed = true
			completedChanged = true
		}
		card.LastModified = e.stamp(card.LastModified)
		if err := tx.UpdateCard(ctx, card); err != nil {
			return err
		}

		log.Put(patch.KindColumn, map[string]any{
			"id":            source.ID,
			"sequence":      source.Sequence,
			"last_modified": source.LastModified,
		})
		log.Put(patch.KindColumn, map[string]any{
			"id":            target.ID,
			"sequence":      target.Sequence,
			"last_modified": target.LastModified,
		})
		cardPut := map[string]any{
			"id":            card.ID,
			"column_id":     card.ColumnID,
			"last_modified": card.LastModified,
		}
		if completedChanged {
			cardPut["completed"] = card.Completed
		}
		log.Put(patch.KindCard, cardPut)
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.log.WithFields(logrus.Fields{"card": cardID, "from": source.ID, "to": target.ID}).Debug("card moved")
	return log.Patches(), nil
}

// UpdateCard edits the card's title, content and options.
func (e *Engine) UpdateCard(ctx context.Context, cardID int64, title, content string, opts model.CardOptions) ([]patch.Patch, error) {
	card, err := e.store.GetCard(ctx, cardID)
	if err != nil {
		return nil, err
	}
	if card == nil {
		return nil, ErrCardNotFound
	}

	log := patch.NewLog()
	err = e.store.Transaction(ctx, func(tx store.Store) error {
		card.Title = title
		card.Content = content
		card.Options = opts
		card.LastModified = e.stamp(card.LastModified)
		if err := tx.UpdateCard(ctx, card); err != nil {
			return err
		}
		log.Put(patch.KindCard, map[string]any{
			"id":            card.ID,
			"title":         card.Title,
			"content":       card.Content,
			"options":       card.Options,
			"last_modified": card.LastModified,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return log.Patches(), nil
}

// SetCardCompleted toggles the card's completion flag.
func (e *Engine) SetCardCompleted(ctx context.Context, cardID int64, completed bool) ([]patch.Patch, error) {
	card, err := e.store.GetCard(ctx, cardID)
	if err != nil {
		return nil, err
	}
	if card == nil {
		return nil, ErrCardNotFound
	}

	log := patch.NewLog()
	err = e.store.Transaction(ctx, func(tx store.Store) error {
		card.Completed = completed
		card.LastModified = e.stamp(card.LastModified)
		if err := tx.UpdateCard(ctx, card); err != nil {
			return err
		}
		log.Put(patch.KindCard, map[string]any{
			"id":            card.ID,
			"completed":     card.Completed,
			"last_modified": card.LastModified,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return log.Patches(), nil
}

// DeleteCard removes a card, its assignments and its discussion thread, and
// drops its id from the owning column's sequence.
func (e *Engine) DeleteCard(ctx context.Context, cardID int64) ([]patch.Patch, error) {
	card, err := e.store.GetCard(ctx, cardID)
	if err != nil {
		return nil, err
	}
	if card == nil {
		return nil, ErrCardNotFound
	}
	column, err := e.store.GetColumn(ctx, card.ColumnID)
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
		column.Sequence = sequence.Encode(sequence.Remove(sequence.Decode(column.Sequence), cardID))
		column.LastModified = e.stamp(column.LastModified)
		if err := tx.UpdateColumn(ctx, column); err != nil {
			return err
		}
		if err := e.deleteCardRows(ctx, tx, cardID); err != nil {
			return err
		}
		log.Put(patch.KindColumn, map[string]any{
			"id":            column.ID,
			"sequence":      column.Sequence,
			"last_modified": column.LastModified,
		})
		log.Delete(patch.KindCard, cardID)
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.log.WithFields(logrus.Fields{"column": column.ID, "card": cardID}).Info("card deleted")
	return log.Patches(), nil
}

// AssignUser adds userID to the card's assignee set. Assigning an already
// assigned user is a no-op at the row level; the full assignee list is
// re-emitted either way so clients never diff the set themselves.
func (e *Engine) AssignUser(ctx context.Context, cardID, userID int64) ([]patch.Patch, error) {
	return e.setAssignment(ctx, cardID, userID, true)
}

// UnassignUser removes userID from the card's assignee set.
func (e *Engine) UnassignUser(ctx context.Context, cardID, userID int64) ([]patch.Patch, error) {
	return e.setAssignment(ctx, cardID, userID, false)
}

func (e *Engine) setAssignment(ctx context.Context, cardID, userID int64, assign bool) ([]patch.Patch, error) {
	card, err := e.store.GetCard(ctx, cardID)
	if err != nil {
		return nil, err
	}
	if card == nil {
		return nil, ErrCardNotFound
	}
	user, err := e.store.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	log := patch.NewLog()
	err = e.store.Transaction(ctx, func(tx store.Store) error {
		if assign {
			if err := tx.AddAssignee(ctx, cardID, userID); err != nil {
				return err
			}
		} else {
			if err := tx.RemoveAssignee(ctx, cardID, userID); err != nil {
				return err
			}
		}
		card.LastModified = e.stamp(card.LastModified)
		if err := tx.UpdateCard(ctx, card); err != nil {
			return err
		}
		assignees, err := tx.Assignees(ctx, cardID)
		if err != nil {
			return err
		}
		if assignees == nil {
			assignees = []int64{}
		}
		log.Put(patch.KindCard, map[string]any{
			"id":            card.ID,
			"assignees":     assignees,
			"last_modified": card.LastModified,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return log.Patches(), nil
}

// PostDiscussionMessage appends a message to the card's discussion thread
// and raises the card's has-discussion flag on the first message.
func (e *Engine) PostDiscussionMessage(ctx context.Context, cardID, userID int64, content string) (*model.DiscussionMessage, []patch.Patch, error) {
	card, err := e.store.GetCard(ctx, cardID)
	if err != nil {
		return nil, nil, err
	}
	if card == nil {
		return nil, nil, ErrCardNotFound
	}

	var msg *model.DiscussionMessage
	log := patch.NewLog()
	err = e.store.Transaction(ctx, func(tx store.Store) error {
		msg = &model.DiscussionMessage{
			CardID:    cardID,
			UserID:    userID,
			Content:   content,
			CreatedAt: e.now().UnixMilli(),
		}
		if err := tx.CreateMessage(ctx, msg); err != nil {
			return err
		}
		log.Create(patch.KindMessage, map[string]any{
			"id":         msg.ID,
			"card_id":    msg.CardID,
			"user_id":    msg.UserID,
			"content":    msg.Content,
			"created_at": msg.CreatedAt,
		})

		if !card.HasDiscussion {
			card.HasDiscussion = true
			card.LastModified = e.stamp(card.LastModified)
			if err := tx.UpdateCard(ctx, card); err != nil {
				return err
			}
			log.Put(patch.KindCard, map[string]any{
				"id":             card.ID,
				"has_discussion": true,
				"last_modified":  card.LastModified,
			})
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return msg, log.Patches(), nil
}

// DeleteDiscussionMessage removes a message; deleting the last message of a
// card clears the card's has-discussion flag.
func (e *Engine) DeleteDiscussionMessage(ctx context.Context, messageID int64) ([]patch.Patch, error) {
	msg, err := e.store.GetMessage(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if msg == nil {
		return nil, ErrMessageNotFound
	}
	card, err := e.store.GetCard(ctx, msg.CardID)
	if err != nil {
		return nil, err
	}
	if card == nil {
		return nil, ErrCardNotFound
	}

	log := patch.NewLog()
	err = e.store.Transaction(ctx, func(tx store.Store) error {
		if err := tx.DeleteMessage(ctx, messageID); err != nil {
			return err
		}
		log.Delete(patch.KindMessage, messageID)

		remaining, err := tx.CountMessages(ctx, msg.CardID)
		if err != nil {
			return err
		}
		if remaining == 0 && card.HasDiscussion {
			card.HasDiscussion = false
			card.LastModified = e.stamp(card.LastModified)
			if err := tx.UpdateCard(ctx, card); err != nil {
				return err
			}
			log.Put(patch.KindCard, map[string]any{
				"id":             card.ID,
				"has_discussion": false,
				"last_modified":  card.LastModified,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return log.Patches(), nil
}
