package models

// HandledMessage is one row of the handled set: a Slack message timestamp the
// relay has answered or declined.
type HandledMessage struct {
	ID string `gorm:"primaryKey;type:text"`

	// UTC unix seconds of the first insert; later inserts are ignored.
	HandledAt int64 `gorm:"not null;index"`
}

func (HandledMessage) TableName() string { return "handled_messages" }
