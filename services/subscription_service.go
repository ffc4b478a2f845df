package services

import (
	"context"
	"log"

	"github.com/nanuri-team/nanuri-backend/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SubscriptionService keeps Subscription rows and their SNS subscriptions in
// step. SNS has no "paused" state, so every mutation unsubscribes the old
// broker subscription and re-subscribes only when the row is eligible again.
type SubscriptionService struct {
	db  *gorm.DB
	sns *SNSService
}

func NewSubscriptionService(db *gorm.DB, sns *SNSService) *SubscriptionService {
	return &SubscriptionService{db: db, sns: sns}
}

type SubscriptionParams struct {
	Topic     *string
	GroupCode *string
	OptIn     *bool
}

// resolveArn subscribes on the broker when the row is eligible: the
// subscription and the owning device both opted in, and the device has a live
// endpoint. Broker errors are non-fatal and leave the ARN null.
func (s *SubscriptionService) resolveArn(ctx context.Context, device *models.Device, sub *models.Subscription) *string {
	if !sub.OptIn || !device.OptIn || device.EndpointArn == nil {
		return nil
	}
	arn, err := s.sns.Subscribe(ctx, sub.Topic, *device.EndpointArn, sub.GroupCode)
	if err != nil {
		log.Printf("Failed to subscribe device %s to %s: %v", device.UUID, sub.Topic, err)
		return nil
	}
	return &arn
}

func (s *SubscriptionService) Create(ctx context.Context, device *models.Device, topic string, groupCode *string, optIn bool) (*models.Subscription, error) {
	sub := &models.Subscription{
		UUID:       uuid.New(),
		DeviceUUID: device.UUID,
		Topic:      topic,
		GroupCode:  groupCode,
		OptIn:      optIn,
	}
	sub.SubscriptionArn = s.resolveArn(ctx, device, sub)

	if err := s.db.Create(sub).Error; err != nil {
		// The row failed; do not leave a dangling broker subscription behind.
		if sub.SubscriptionArn != nil {
			s.sns.Unsubscribe(ctx, *sub.SubscriptionArn)
		}
		return nil, err
	}
	sub.Device = *device
	return sub, nil
}

func (s *SubscriptionService) Get(subUUID uuid.UUID) (*models.Subscription, error) {
	var sub models.Subscription
	if err := s.db.Preload("Device").First(&sub, "uuid = ?", subUUID).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}

// List returns subscriptions, optionally filtered to one device, with
// limit/offset pagination.
func (s *SubscriptionService) List(deviceUUID *uuid.UUID, limit, offset int) ([]models.Subscription, error) {
	query := s.db.Preload("Device").Order("created_at")
	if deviceUUID != nil {
		query = query.Where("device_uuid = ?", *deviceUUID)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	var subs []models.Subscription
	if err := query.Find(&subs).Error; err != nil {
		return nil, err
	}
	return subs, nil
}

func (s *SubscriptionService) Update(ctx context.Context, sub *models.Subscription, params SubscriptionParams) error {
	if sub.SubscriptionArn != nil {
		s.sns.Unsubscribe(ctx, *sub.SubscriptionArn)
		sub.SubscriptionArn = nil
	}

	if params.Topic != nil {
		sub.Topic = *params.Topic
	}
	if params.GroupCode != nil {
		sub.GroupCode = params.GroupCode
	}
	if params.OptIn != nil {
		sub.OptIn = *params.OptIn
	}

	sub.SubscriptionArn = s.resolveArn(ctx, &sub.Device, sub)
	if err := s.db.Save(sub).Error; err != nil {
		// The row failed; do not leave a dangling broker subscription behind.
		if sub.SubscriptionArn != nil {
			s.sns.Unsubscribe(ctx, *sub.SubscriptionArn)
			sub.SubscriptionArn = nil
		}
		return err
	}
	return nil
}

// Delete unsubscribes on the broker before removing the row. Broker failures
// never block the local delete.
func (s *SubscriptionService) Delete(ctx context.Context, sub *models.Subscription) error {
	if sub.SubscriptionArn != nil {
		s.sns.Unsubscribe(ctx, *sub.SubscriptionArn)
	}
	return s.db.Delete(&models.Subscription{}, "uuid = ?", sub.UUID).Error
}
