package models

// ChatMessage is one row of the append-only group_message DynamoDB table.
// channel_id is the partition key and message_id the numeric sort key; rows are
// never updated or deleted.
type ChatMessage struct {
	ChannelID   string  `dynamodbav:"channel_id" json:"channel_id"`
	MessageID   float64 `dynamodbav:"message_id" json:"message_id"`
	MessageTo   string  `dynamodbav:"message_to" json:"message_to"`
	MessageFrom string  `dynamodbav:"message_from" json:"message_from"`
	Message     string  `dynamodbav:"message" json:"message"`
	Format      string  `dynamodbav:"format" json:"format"`
	CreatedAt   string  `dynamodbav:"created_at" json:"created_at"`
}

const DefaultMessageFormat = "plain/text"
