package history

import (
	"fmt"
	"time"
)

// Direction of a logged message
type Direction string

const (
	Sent     Direction = "tx"
	Received Direction = "rx"
)

// Message is one chat line seen by this node
type Message struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	Direction Direction `gorm:"size:2;index" json:"direction"`
	Channel   uint8     `gorm:"index" json:"channel"`
	User      string    `gorm:"size:16;index" json:"user"`
	Text      string    `gorm:"size:192" json:"text"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

// TableName specifies the table name for GORM
func (Message) TableName() string {
	return "messages"
}

func (m Message) String() string {
	arrow := "<"
	if m.Direction == Sent {
		arrow = ">"
	}
	return fmt.Sprintf("%s CH%02d %s %s: %s", m.CreatedAt.Format("15:04:05"), m.Channel, arrow, m.User, m.Text)
}
