package store

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"syncboard/internal/model"
)

// DB is the gorm/postgres implementation of Store.
type DB struct {
	db *gorm.DB
}

func NewDB(db *gorm.DB) *DB {
	return &DB{db: db}
}

// Migrate creates or updates the schema for every persisted entity.
func (r *DB) Migrate() error {
	return r.db.AutoMigrate(
		&model.Board{},
		&model.Column{},
		&model.Card{},
		&model.CardAssignment{},
		&model.DiscussionMessage{},
		&model.User{},
		&model.BoardShare{},
	)
}

func (r *DB) Transaction(ctx context.Context, fn func(Store) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&DB{db: tx})
	})
}

func (r *DB) GetBoard(ctx context.Context, id int64) (*model.Board, error) {
	var board model.Board
	if err := r.db.WithContext(ctx).First(&board, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &board, nil
}

func (r *DB) CreateBoard(ctx context.Context, board *model.Board) error {
	return r.db.WithContext(ctx).Create(board).Error
}

func (r *DB) UpdateBoard(ctx context.Context, board *model.Board) error {
	return r.db.WithContext(ctx).Save(board).Error
}

func (r *DB) BoardsByOwner(ctx context.Context, ownerID int64) ([]model.Board, error) {
	var boards []model.Board
	err := r.db.WithContext(ctx).Where("owner_id = ?", ownerID).Order("id").Find(&boards).Error
	return boards, err
}

func (r *DB) GetColumn(ctx context.Context, id int64) (*model.Column, error) {
	var column model.Column
	if err := r.db.WithContext(ctx).First(&column, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &column, nil
}

func (r *DB) CreateColumn(ctx context.Context, column *model.Column) error {
	return r.db.WithContext(ctx).Create(column).Error
}

func (r *DB) UpdateColumn(ctx context.Context, column *model.Column) error {
	return r.db.WithContext(ctx).Save(column).Error
}

func (r *DB) DeleteColumn(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Delete(&model.Column{}, "id = ?", id).Error
}

func (r *DB) ColumnsModifiedAfter(ctx context.Context, boardID, cursor int64) ([]model.Column, error) {
	var columns []model.Column
	err := r.db.WithContext(ctx).
		Where("board_id = ? AND last_modified > ?", boardID, cursor).
		Order("id").
		Find(&columns).Error
	return columns, err
}

func (r *DB) GetCard(ctx context.Context, id int64) (*model.Card, error) {
	var card model.Card
	if err := r.db.WithContext(ctx).First(&card, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &card, nil
}

func (r *DB) CreateCard(ctx context.Context, card *model.Card) error {
	return r.db.WithContext(ctx).Create(card).Error
}

func (r *DB) UpdateCard(ctx context.Context, card *model.Card) error {
	return r.db.WithContext(ctx).Save(card).Error
}

func (r *DB) DeleteCard(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Delete(&model.Card{}, "id = ?", id).Error
}

func (r *DB) CardsModifiedAfter(ctx context.Context, boardID, cursor int64) ([]model.Card, error) {
	var cards []model.Card
	err := r.db.WithContext(ctx).
		Where("board_id = ? AND last_modified > ?", boardID, cursor).
		Order("id").
		Find(&cards).Error
	return cards, err
}

func (r *DB) Assignees(ctx context.Context, cardID int64) ([]int64, error) {
	var ids []int64
	err := r.db.WithContext(ctx).
		Model(&model.CardAssignment{}).
		Where("card_id = ?", cardID).
		Order("user_id").
		Pluck("user_id", &ids).Error
	return ids, err
}

func (r *DB) AddAssignee(ctx context.Context, cardID, userID int64) error {
	return r.db.WithContext(ctx).Exec(
		"INSERT INTO card_assignments (card_id, user_id) VALUES (?, ?) ON CONFLICT DO NOTHING",
		cardID, userID,
	).Error
}

func (r *DB) RemoveAssignee(ctx context.Context, cardID, userID int64) error {
	return r.db.WithContext(ctx).
		Where("card_id = ? AND user_id = ?", cardID, userID).
		Delete(&model.CardAssignment{}).Error
}

func (r *DB) DeleteAssignments(ctx context.Context, cardID int64) error {
	return r.db.WithContext(ctx).
		Where("card_id = ?", cardID).
		Delete(&model.CardAssignment{}).Error
}

func (r *DB) GetMessage(ctx context.Context, id int64) (*model.DiscussionMessage, error) {
	var msg model.DiscussionMessage
	if err := r.db.WithContext(ctx).First(&msg, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &msg, nil
}

func (r *DB) CreateMessage(ctx context.Context, msg *model.DiscussionMessage) error {
	return r.db.WithContext(ctx).Create(msg).Error
}

func (r *DB) DeleteMessage(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Delete(&model.DiscussionMessage{}, "id = ?", id).Error
}

func (r *DB) CountMessages(ctx context.Context, cardID int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.DiscussionMessage{}).
		Where("card_id = ?", cardID).
		Count(&count).Error
	return count, err
}

func (r *DB) MessagesByCard(ctx context.Context, cardID int64) ([]model.DiscussionMessage, error) {
	var msgs []model.DiscussionMessage
	err := r.db.WithContext(ctx).
		Where("card_id = ?", cardID).
		Order("id").
		Find(&msgs).Error
	return msgs, err
}

func (r *DB) DeleteMessagesByCard(ctx context.Context, cardID int64) error {
	return r.db.WithContext(ctx).
		Where("card_id = ?", cardID).
		Delete(&model.DiscussionMessage{}).Error
}

func (r *DB) GetUser(ctx context.Context, id int64) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

func (r *DB) UsersByIDs(ctx context.Context, ids []int64) ([]model.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var users []model.User
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Order("id").Find(&users).Error
	return users, err
}

func (r *DB) CreateUser(ctx context.Context, user *model.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *DB) FindUserByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

func (r *DB) CreateShare(ctx context.Context, share *model.BoardShare) error {
	return r.db.WithContext(ctx).Create(share).Error
}

func (r *DB) DeleteShare(ctx context.Context, boardID, userID int64) error {
	return r.db.WithContext(ctx).
		Where("board_id = ? AND user_id = ?", boardID, userID).
		Delete(&model.BoardShare{}).Error
}

func (r *DB) HasBoardRole(ctx context.Context, boardID, userID int64, role string) (bool, error) {
	var count int64
	q := r.db.WithContext(ctx).
		Model(&model.BoardShare{}).
		Where("board_id = ? AND user_id = ?", boardID, userID)
	// An editor share satisfies a viewer requirement.
	if role == model.RoleEditor {
		q = q.Where("role = ?", model.RoleEditor)
	}
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
