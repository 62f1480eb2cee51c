package model

type CardOptions struct {
	Background string `json:"background,omitempty"`
}

type Card struct {
	ID       int64 `gorm:"primaryKey;autoIncrement"`
	ColumnID int64 `gorm:"not null;index"`
	// BoardID is denormalized from the column so incremental sync can filter
	// cards by board in one query.
	BoardID int64 `gorm:"not null;index"`

	Title         string `gorm:"not null"`
	Content       string
	Completed     bool        `gorm:"not null;default:false"`
	HasDiscussion bool        `gorm:"not null;default:false"`
	Options       CardOptions `gorm:"serializer:json"`
	CreatedBy     int64       `gorm:"not null"`
	LastModified  int64       `gorm:"not null;index"`
}

// CardAssignment is one row of a card's assignee set.
type CardAssignment struct {
	CardID int64 `gorm:"primaryKey;autoIncrement:false"`
	UserID int64 `gorm:"primaryKey;autoIncrement:false"`
}
