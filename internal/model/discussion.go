package model

// DiscussionMessage is one entry of a card's append-only discussion thread.
type DiscussionMessage struct {
	ID        int64 `gorm:"primaryKey;autoIncrement"`
	CardID    int64 `gorm:"not null;index"`
	UserID    int64 `gorm:"not null"`
	Content   string
	CreatedAt int64 `gorm:"not null"`
}
