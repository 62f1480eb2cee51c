package model

// Scope a board is attached to. Template boards are the source of CloneBoard.
const (
	ScopeCourse   = "course"
	ScopeUser     = "user"
	ScopeGroup    = "group"
	ScopeTemplate = "template"
)

type Board struct {
	ID      int64  `gorm:"primaryKey;autoIncrement"`
	Title   string `gorm:"not null"`
	OwnerID int64  `gorm:"not null;index"`
	Scope   string `gorm:"not null;default:'user'"`

	// Sequence holds the ordered ids of this board's columns, comma-joined.
	Sequence     string `gorm:"not null;default:''"`
	Locked       bool   `gorm:"not null;default:false"`
	LastModified int64  `gorm:"not null;index"`
}
