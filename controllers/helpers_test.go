package controllers

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/nanuri-team/nanuri-backend/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	dynamotypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	awssns "github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.Device{}, &models.Subscription{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

func newTestUser(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()
	user := &models.User{Email: email}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	return user
}

// memDynamo is an in-memory stand-in for the group_message table.
type memDynamo struct {
	mu       sync.Mutex
	tables   []string
	items    map[string][]map[string]dynamotypes.AttributeValue
	putErr   error
	queryErr error
}

func newMemDynamo() *memDynamo {
	return &memDynamo{items: make(map[string][]map[string]dynamotypes.AttributeValue)}
}

func (m *memDynamo) ListTables(ctx context.Context, params *dynamodb.ListTablesInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ListTablesOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return &dynamodb.ListTablesOutput{TableNames: append([]string{}, m.tables...)}, nil
}

func (m *memDynamo) CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tables = append(m.tables, aws.ToString(params.TableName))
	return &dynamodb.CreateTableOutput{}, nil
}

func (m *memDynamo) PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.putErr != nil {
		return nil, m.putErr
	}
	channel := params.Item["channel_id"].(*dynamotypes.AttributeValueMemberS).Value
	m.items[channel] = append(m.items[channel], params.Item)
	return &dynamodb.PutItemOutput{}, nil
}

func (m *memDynamo) Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.queryErr != nil {
		return nil, m.queryErr
	}
	channel := params.ExpressionAttributeValues[":channel_id"].(*dynamotypes.AttributeValueMemberS).Value
	return &dynamodb.QueryOutput{Items: append([]map[string]dynamotypes.AttributeValue{}, m.items[channel]...)}, nil
}

// failPuts and failQueries flip the injected errors under the store's lock,
// since server goroutines read them concurrently.
func (m *memDynamo) failPuts(err error) {
	m.mu.Lock()
	m.putErr = err
	m.mu.Unlock()
}

func (m *memDynamo) failQueries(err error) {
	m.mu.Lock()
	m.queryErr = err
	m.mu.Unlock()
}

// memSNS records broker state for API-level assertions.
type memSNS struct {
	mu        sync.Mutex
	endpoints map[string]string // arn -> token
	subs      map[string]string // arn -> topic arn
	published []string          // topic arns
	nextID    int
}

func newMemSNS() *memSNS {
	return &memSNS{endpoints: make(map[string]string), subs: make(map[string]string)}
}

func (m *memSNS) CreatePlatformEndpoint(ctx context.Context, params *awssns.CreatePlatformEndpointInput, optFns ...func(*awssns.Options)) (*awssns.CreatePlatformEndpointOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	token := aws.ToString(params.Token)
	for arn, existing := range m.endpoints {
		if existing == token {
			return &awssns.CreatePlatformEndpointOutput{EndpointArn: aws.String(arn)}, nil
		}
	}
	m.nextID++
	arn := fmt.Sprintf("arn:aws:sns:test:endpoint/%d", m.nextID)
	m.endpoints[arn] = token
	return &awssns.CreatePlatformEndpointOutput{EndpointArn: aws.String(arn)}, nil
}

func (m *memSNS) DeleteEndpoint(ctx context.Context, params *awssns.DeleteEndpointInput, optFns ...func(*awssns.Options)) (*awssns.DeleteEndpointOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.endpoints, aws.ToString(params.EndpointArn))
	return &awssns.DeleteEndpointOutput{}, nil
}

func (m *memSNS) ListEndpointsByPlatformApplication(ctx context.Context, params *awssns.ListEndpointsByPlatformApplicationInput, optFns ...func(*awssns.Options)) (*awssns.ListEndpointsByPlatformApplicationOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var endpoints []snstypes.Endpoint
	for arn, token := range m.endpoints {
		endpoints = append(endpoints, snstypes.Endpoint{
			EndpointArn: aws.String(arn),
			Attributes:  map[string]string{"Token": token},
		})
	}
	return &awssns.ListEndpointsByPlatformApplicationOutput{Endpoints: endpoints}, nil
}

func (m *memSNS) CreateTopic(ctx context.Context, params *awssns.CreateTopicInput, optFns ...func(*awssns.Options)) (*awssns.CreateTopicOutput, error) {
	return &awssns.CreateTopicOutput{TopicArn: aws.String("arn:aws:sns:test:topic/" + aws.ToString(params.Name))}, nil
}

func (m *memSNS) Subscribe(ctx context.Context, params *awssns.SubscribeInput, optFns ...func(*awssns.Options)) (*awssns.SubscribeOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	arn := fmt.Sprintf("arn:aws:sns:test:subscription/%d", m.nextID)
	m.subs[arn] = aws.ToString(params.TopicArn)
	return &awssns.SubscribeOutput{SubscriptionArn: aws.String(arn)}, nil
}

func (m *memSNS) Unsubscribe(ctx context.Context, params *awssns.UnsubscribeInput, optFns ...func(*awssns.Options)) (*awssns.UnsubscribeOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.subs, aws.ToString(params.SubscriptionArn))
	return &awssns.UnsubscribeOutput{}, nil
}

func (m *memSNS) ListSubscriptions(ctx context.Context, params *awssns.ListSubscriptionsInput, optFns ...func(*awssns.Options)) (*awssns.ListSubscriptionsOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var subs []snstypes.Subscription
	for arn, topicArn := range m.subs {
		subs = append(subs, snstypes.Subscription{
			SubscriptionArn: aws.String(arn),
			TopicArn:        aws.String(topicArn),
		})
	}
	return &awssns.ListSubscriptionsOutput{Subscriptions: subs}, nil
}

func (m *memSNS) Publish(ctx context.Context, params *awssns.PublishInput, optFns ...func(*awssns.Options)) (*awssns.PublishOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published = append(m.published, aws.ToString(params.TopicArn))
	return &awssns.PublishOutput{MessageId: aws.String("m-1")}, nil
}

func (m *memSNS) tokenRegistered(token string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.endpoints {
		if existing == token {
			return true
		}
	}
	return false
}

func (m *memSNS) subscriptionCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subs)
}
