package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nanuri-team/nanuri-backend/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

const groupMessageTable = "group_message"

const createdAtLayout = "2006-01-02 15:04:05.000000"

// DynamoAPI is the subset of the DynamoDB client the message log uses.
type DynamoAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	ListTables(ctx context.Context, params *dynamodb.ListTablesInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ListTablesOutput, error)
	CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
}

// MessageLogService is the append-only chat message log. Rows are keyed by
// (channel_id, message_id) and are write-once; retention is not this service's
// concern.
type MessageLogService struct {
	Client DynamoAPI

	mu     sync.Mutex
	lastID map[string]float64
}

func NewMessageLogService(client DynamoAPI) *MessageLogService {
	return &MessageLogService{
		Client: client,
		lastID: make(map[string]float64),
	}
}

// EnsureTable provisions the group_message table if it does not exist yet.
// Safe to call on every boot.
func (s *MessageLogService) EnsureTable(ctx context.Context) error {
	tables, err := s.Client.ListTables(ctx, &dynamodb.ListTablesInput{})
	if err != nil {
		return fmt.Errorf("failed to list tables: %w", err)
	}
	for _, name := range tables.TableNames {
		if name == groupMessageTable {
			return nil
		}
	}

	_, err = s.Client.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName: aws.String(groupMessageTable),
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String("channel_id"), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: aws.String("message_id"), AttributeType: types.ScalarAttributeTypeN},
		},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String("channel_id"), KeyType: types.KeyTypeHash},
			{AttributeName: aws.String("message_id"), KeyType: types.KeyTypeRange},
		},
		ProvisionedThroughput: &types.ProvisionedThroughput{
			ReadCapacityUnits:  aws.Int64(5),
			WriteCapacityUnits: aws.Int64(5),
		},
		TableClass: types.TableClassStandard,
	})
	if err != nil {
		return fmt.Errorf("failed to create table '%s': %w", groupMessageTable, err)
	}
	return nil
}

// nextMessageID returns a strictly increasing sort key per channel. It starts
// from the wall clock but never goes backwards or repeats, even when two sends
// land within the same clock tick.
func (s *MessageLogService) nextMessageID(channelID string, now time.Time) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := float64(now.UnixMicro()) / 1e6
	if last, ok := s.lastID[channelID]; ok && id <= last {
		id = last + 1e-6
	}
	s.lastID[channelID] = id
	return id
}

// Insert appends one message and returns the stored record including the
// generated message_id and created_at. Errors propagate; a lost insert must
// never be silent.
func (s *MessageLogService) Insert(ctx context.Context, channelID, messageFrom, messageTo, message, format string) (models.ChatMessage, error) {
	now := time.Now().UTC()
	record := models.ChatMessage{
		ChannelID:   channelID,
		MessageID:   s.nextMessageID(channelID, now),
		MessageTo:   messageTo,
		MessageFrom: messageFrom,
		Message:     message,
		Format:      format,
		CreatedAt:   now.Format(createdAtLayout),
	}

	item, err := attributevalue.MarshalMap(record)
	if err != nil {
		return models.ChatMessage{}, fmt.Errorf("failed to marshal message: %w", err)
	}

	_, err = s.Client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(groupMessageTable),
		Item:      item,
	})
	if err != nil {
		return models.ChatMessage{}, fmt.Errorf("failed to put item in table '%s': %w", groupMessageTable, err)
	}
	return record, nil
}

// QueryByChannel returns every message stored for the channel. The returned
// slice carries no order guarantee; callers sort by message_id.
func (s *MessageLogService) QueryByChannel(ctx context.Context, channelID string) ([]models.ChatMessage, error) {
	output, err := s.Client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(groupMessageTable),
		KeyConditionExpression: aws.String("channel_id = :channel_id"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":channel_id": &types.AttributeValueMemberS{Value: channelID},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query table '%s': %w", groupMessageTable, err)
	}

	var records []models.ChatMessage
	if err := attributevalue.UnmarshalListOfMaps(output.Items, &records); err != nil {
		return nil, fmt.Errorf("failed to unmarshal messages: %w", err)
	}
	for i := range records {
		if records[i].Format == "" {
			records[i].Format = models.DefaultMessageFormat
		}
	}
	return records, nil
}
