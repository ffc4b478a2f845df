package models

import (
	"time"

	"github.com/google/uuid"
)

// Device is a mobile device registered for push notifications. EndpointArn is
// derived from the platform token by the device service and is never accepted
// from clients.
type Device struct {
	UUID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID      uint      `gorm:"index;not null"`
	User        User
	DeviceToken *string `gorm:"type:text"`
	EndpointArn *string `gorm:"type:text"`
	OptIn       bool    `gorm:"default:true"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
