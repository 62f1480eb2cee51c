// Package store is the persistence boundary for boards, columns, cards,
// discussion messages and users. Get methods return (nil, nil) when the row
// does not exist; translating that into a domain error is the caller's job.
package store

import (
	"context"

	"syncboard/internal/model"
)

type Store interface {
	// Transaction runs fn against a store whose writes commit together or
	// not at all.
	Transaction(ctx context.Context, fn func(Store) error) error

	GetBoard(ctx context.Context, id int64) (*model.Board, error)
	CreateBoard(ctx context.Context, board *model.Board) error
	UpdateBoard(ctx context.Context, board *model.Board) error
	BoardsByOwner(ctx context.Context, ownerID int64) ([]model.Board, error)

	GetColumn(ctx context.Context, id int64) (*model.Column, error)
	CreateColumn(ctx context.Context, column *model.Column) error
	UpdateColumn(ctx context.Context, column *model.Column) error
	DeleteColumn(ctx context.Context, id int64) error
	ColumnsModifiedAfter(ctx context.Context, boardID, cursor int64) ([]model.Column, error)

	GetCard(ctx context.Context, id int64) (*model.Card, error)
	CreateCard(ctx context.Context, card *model.Card) error
	UpdateCard(ctx context.Context, card *model.Card) error
	DeleteCard(ctx context.Context, id int64) error
	CardsModifiedAfter(ctx context.Context, boardID, cursor int64) ([]model.Card, error)

	Assignees(ctx context.Context, cardID int64) ([]int64, error)
	AddAssignee(ctx context.Context, cardID, userID int64) error
	RemoveAssignee(ctx context.Context, cardID, userID int64) error
	DeleteAssignments(ctx context.Context, cardID int64) error

	GetMessage(ctx context.Context, id int64) (*model.DiscussionMessage, error)
	CreateMessage(ctx context.Context, msg *model.DiscussionMessage) error
	DeleteMessage(ctx context.Context, id int64) error
	CountMessages(ctx context.Context, cardID int64) (int64, error)
	MessagesByCard(ctx context.Context, cardID int64) ([]model.DiscussionMessage, error)
	DeleteMessagesByCard(ctx context.Context, cardID int64) error

	GetUser(ctx context.Context, id int64) (*model.User, error)
	UsersByIDs(ctx context.Context, ids []int64) ([]model.User, error)
	CreateUser(ctx context.Context, user *model.User) error
	FindUserByEmail(ctx context.Context, email string) (*model.User, error)

	CreateShare(ctx context.Context, share *model.BoardShare) error
	DeleteShare(ctx context.Context, boardID, userID int64) error
	HasBoardRole(ctx context.Context, boardID, userID int64, role string) (bool, error)
}
