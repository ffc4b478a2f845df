package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/aws/aws-sdk-go-v2/aws"
	awssns "github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"
)

// SNSAPI is the subset of the SNS client the notification services use.
type SNSAPI interface {
	CreatePlatformEndpoint(ctx context.Context, params *awssns.CreatePlatformEndpointInput, optFns ...func(*awssns.Options)) (*awssns.CreatePlatformEndpointOutput, error)
	DeleteEndpoint(ctx context.Context, params *awssns.DeleteEndpointInput, optFns ...func(*awssns.Options)) (*awssns.DeleteEndpointOutput, error)
	ListEndpointsByPlatformApplication(ctx context.Context, params *awssns.ListEndpointsByPlatformApplicationInput, optFns ...func(*awssns.Options)) (*awssns.ListEndpointsByPlatformApplicationOutput, error)
	CreateTopic(ctx context.Context, params *awssns.CreateTopicInput, optFns ...func(*awssns.Options)) (*awssns.CreateTopicOutput, error)
	Subscribe(ctx context.Context, params *awssns.SubscribeInput, optFns ...func(*awssns.Options)) (*awssns.SubscribeOutput, error)
	Unsubscribe(ctx context.Context, params *awssns.UnsubscribeInput, optFns ...func(*awssns.Options)) (*awssns.UnsubscribeOutput, error)
	ListSubscriptions(ctx context.Context, params *awssns.ListSubscriptionsInput, optFns ...func(*awssns.Options)) (*awssns.ListSubscriptionsOutput, error)
	Publish(ctx context.Context, params *awssns.PublishInput, optFns ...func(*awssns.Options)) (*awssns.PublishOutput, error)
}

// SNSService wraps the push broker. Topics are created on demand; endpoints
// are looked up by device token because SNS itself only keys them by ARN.
type SNSService struct {
	Client                 SNSAPI
	PlatformApplicationArn string
}

func NewSNSService(client SNSAPI, platformApplicationArn string) *SNSService {
	return &SNSService{
		Client:                 client,
		PlatformApplicationArn: platformApplicationArn,
	}
}

func (s *SNSService) CreatePlatformEndpoint(ctx context.Context, deviceToken string) (string, error) {
	out, err := s.Client.CreatePlatformEndpoint(ctx, &awssns.CreatePlatformEndpointInput{
		PlatformApplicationArn: aws.String(s.PlatformApplicationArn),
		Token:                  aws.String(deviceToken),
	})
	if err != nil {
		return "", fmt.Errorf("failed to create platform endpoint: %w", err)
	}
	return aws.ToString(out.EndpointArn), nil
}

// GetEndpointByDeviceToken scans the platform application's endpoint listing
// for the given token. Returns "" when no endpoint exists.
func (s *SNSService) GetEndpointByDeviceToken(ctx context.Context, deviceToken string) (string, error) {
	input := &awssns.ListEndpointsByPlatformApplicationInput{
		PlatformApplicationArn: aws.String(s.PlatformApplicationArn),
	}
	for {
		out, err := s.Client.ListEndpointsByPlatformApplication(ctx, input)
		if err != nil {
			return "", fmt.Errorf("failed to list endpoints: %w", err)
		}
		for _, endpoint := range out.Endpoints {
			if endpoint.Attributes["Token"] == deviceToken {
				return aws.ToString(endpoint.EndpointArn), nil
			}
		}
		if out.NextToken == nil {
			return "", nil
		}
		input.NextToken = out.NextToken
	}
}

// DeleteEndpointByDeviceToken removes the endpoint registered for the token,
// if any. Best-effort: a missing endpoint or a broker error only logs.
func (s *SNSService) DeleteEndpointByDeviceToken(ctx context.Context, deviceToken string) {
	endpointArn, err := s.GetEndpointByDeviceToken(ctx, deviceToken)
	if err != nil {
		log.Printf("Failed to look up endpoint for deletion: %v", err)
		return
	}
	if endpointArn == "" {
		return
	}
	if _, err := s.Client.DeleteEndpoint(ctx, &awssns.DeleteEndpointInput{EndpointArn: aws.String(endpointArn)}); err != nil {
		log.Printf("Failed to delete endpoint %s: %v", endpointArn, err)
	}
}

func (s *SNSService) CreateTopic(ctx context.Context, name string) (string, error) {
	out, err := s.Client.CreateTopic(ctx, &awssns.CreateTopicInput{Name: aws.String(name)})
	if err != nil {
		return "", fmt.Errorf("failed to create topic '%s': %w", name, err)
	}
	return aws.ToString(out.TopicArn), nil
}

// Subscribe attaches the endpoint to the topic, creating the topic when it
// does not exist yet. A group code becomes a filter policy so that scoped
// publishes only reach matching subscriptions.
func (s *SNSService) Subscribe(ctx context.Context, topic, endpointArn string, groupCode *string) (string, error) {
	topicArn, err := s.CreateTopic(ctx, topic)
	if err != nil {
		return "", err
	}

	attributes := map[string]string{}
	if groupCode != nil {
		policy, err := json.Marshal(map[string][]string{"group_code": {*groupCode}})
		if err != nil {
			return "", fmt.Errorf("failed to marshal filter policy: %w", err)
		}
		attributes["FilterPolicy"] = string(policy)
	}

	out, err := s.Client.Subscribe(ctx, &awssns.SubscribeInput{
		TopicArn:              aws.String(topicArn),
		Protocol:              aws.String("application"),
		Endpoint:              aws.String(endpointArn),
		Attributes:            attributes,
		ReturnSubscriptionArn: true,
	})
	if err != nil {
		return "", fmt.Errorf("failed to subscribe endpoint to '%s': %w", topic, err)
	}
	return aws.ToString(out.SubscriptionArn), nil
}

// Unsubscribe is best-effort; SNS subscriptions are never updated in place, so
// every re-subscribe goes through here first.
func (s *SNSService) Unsubscribe(ctx context.Context, subscriptionArn string) {
	if _, err := s.Client.Unsubscribe(ctx, &awssns.UnsubscribeInput{SubscriptionArn: aws.String(subscriptionArn)}); err != nil {
		log.Printf("Failed to unsubscribe %s: %v", subscriptionArn, err)
	}
}

// ListSubscriptions walks the paginated subscription listing.
func (s *SNSService) ListSubscriptions(ctx context.Context) ([]snstypes.Subscription, error) {
	var subscriptions []snstypes.Subscription
	input := &awssns.ListSubscriptionsInput{}
	for {
		out, err := s.Client.ListSubscriptions(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("failed to list subscriptions: %w", err)
		}
		subscriptions = append(subscriptions, out.Subscriptions...)
		if out.NextToken == nil {
			return subscriptions, nil
		}
		input.NextToken = out.NextToken
	}
}

// Publish sends a notification body to a topic. The group code rides along as
// a message attribute so subscription filter policies can match on it.
func (s *SNSService) Publish(ctx context.Context, topic, body string, groupCode *string) error {
	topicArn, err := s.CreateTopic(ctx, topic)
	if err != nil {
		return err
	}

	input := &awssns.PublishInput{
		TopicArn: aws.String(topicArn),
		Message:  aws.String(body),
	}
	if groupCode != nil {
		input.MessageAttributes = map[string]snstypes.MessageAttributeValue{
			"group_code": {
				DataType:    aws.String("String"),
				StringValue: aws.String(*groupCode),
			},
		}
	}

	if _, err := s.Client.Publish(ctx, input); err != nil {
		return fmt.Errorf("failed to publish to '%s': %w", topic, err)
	}
	return nil
}
