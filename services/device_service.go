package services

import (
	"context"
	"log"

	"github.com/nanuri-team/nanuri-backend/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DeviceService owns the Device write path. Every mutation runs the broker
// side effects explicitly here rather than inside persistence hooks, so the
// call graph shows where network I/O happens.
type DeviceService struct {
	db   *gorm.DB
	sns  *SNSService
	subs *SubscriptionService
}

func NewDeviceService(db *gorm.DB, sns *SNSService, subs *SubscriptionService) *DeviceService {
	return &DeviceService{db: db, sns: sns, subs: subs}
}

type DeviceParams struct {
	DeviceToken *string
	OptIn       *bool
}

// registerEndpoint creates the platform endpoint for an opted-in device with a
// token. A broker error leaves the ARN null; a device without push capability
// is still a valid device.
func (s *DeviceService) registerEndpoint(ctx context.Context, device *models.Device) {
	device.EndpointArn = nil
	if !device.OptIn || device.DeviceToken == nil || *device.DeviceToken == "" {
		return
	}
	arn, err := s.sns.CreatePlatformEndpoint(ctx, *device.DeviceToken)
	if err != nil {
		log.Printf("Failed to create endpoint for device %s: %v", device.UUID, err)
		return
	}
	device.EndpointArn = &arn
}

func (s *DeviceService) Create(ctx context.Context, userID uint, deviceToken *string, optIn bool) (*models.Device, error) {
	device := &models.Device{
		UUID:        uuid.New(),
		UserID:      userID,
		DeviceToken: deviceToken,
		OptIn:       optIn,
	}
	s.registerEndpoint(ctx, device)

	if err := s.db.Create(device).Error; err != nil {
		return nil, err
	}
	return s.Get(device.UUID)
}

func (s *DeviceService) Get(deviceUUID uuid.UUID) (*models.Device, error) {
	var device models.Device
	if err := s.db.Preload("User").First(&device, "uuid = ?", deviceUUID).Error; err != nil {
		return nil, err
	}
	return &device, nil
}

func (s *DeviceService) Update(ctx context.Context, device *models.Device, params DeviceParams) error {
	// A rotated token must not leave the old endpoint orphaned on the broker.
	if params.DeviceToken != nil && device.DeviceToken != nil && *params.DeviceToken != *device.DeviceToken {
		s.sns.DeleteEndpointByDeviceToken(ctx, *device.DeviceToken)
	}

	if params.DeviceToken != nil {
		device.DeviceToken = params.DeviceToken
	}
	if params.OptIn != nil {
		device.OptIn = *params.OptIn
	}

	if device.OptIn {
		s.registerEndpoint(ctx, device)
	} else {
		if device.DeviceToken != nil && *device.DeviceToken != "" {
			s.sns.DeleteEndpointByDeviceToken(ctx, *device.DeviceToken)
		}
		device.EndpointArn = nil
	}

	return s.db.Save(device).Error
}

// Delete removes the broker endpoint, then every child subscription through
// its own delete path (each unsubscribing on the broker), then the row.
func (s *DeviceService) Delete(ctx context.Context, device *models.Device) error {
	if device.DeviceToken != nil && *device.DeviceToken != "" {
		s.sns.DeleteEndpointByDeviceToken(ctx, *device.DeviceToken)
	}

	var subs []models.Subscription
	if err := s.db.Where("device_uuid = ?", device.UUID).Find(&subs).Error; err != nil {
		return err
	}
	for i := range subs {
		if err := s.subs.Delete(ctx, &subs[i]); err != nil {
			return err
		}
	}

	return s.db.Delete(&models.Device{}, "uuid = ?", device.UUID).Error
}
