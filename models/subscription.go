package models

import (
	"time"

	"github.com/google/uuid"
)

// Notification topics. Scoped topics (writer/participants/chat room) carry the
// post UUID in GroupCode; TO_ALL leaves it null.
const (
	TopicToAll              = "TO_ALL"
	TopicToPostWriter       = "TO_POST_WRITER"
	TopicToPostParticipants = "TO_POST_PARTICIPANTS"
	TopicToChatRoom         = "TO_CHAT_ROOM"
)

func IsValidTopic(topic string) bool {
	switch topic {
	case TopicToAll, TopicToPostWriter, TopicToPostParticipants, TopicToChatRoom:
		return true
	}
	return false
}

// Subscription binds a device endpoint to a notification topic. SubscriptionArn
// is non-null only while a matching SNS subscription exists; pausing is modeled
// by dropping the SNS subscription and keeping the row.
type Subscription struct {
	UUID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	DeviceUUID      uuid.UUID `gorm:"type:uuid;index:idx_device_topic_group,unique;not null"`
	Device          Device    `gorm:"foreignKey:DeviceUUID;references:UUID"`
	Topic           string    `gorm:"size:32;index:idx_device_topic_group,unique;not null"`
	GroupCode       *string   `gorm:"size:255;index:idx_device_topic_group,unique"`
	OptIn           bool      `gorm:"default:true"`
	SubscriptionArn *string   `gorm:"type:text"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
