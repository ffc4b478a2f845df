package controllers

import (
	"net/http"

	"github.com/nanuri-team/nanuri-backend/models"
	"github.com/nanuri-team/nanuri-backend/services"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/gin-gonic/gin"
)

// MessageController publishes push notifications to a topic, optionally
// narrowed by a group code matched against subscription filter policies.
type MessageController struct {
	SNS *services.SNSService
}

func NewMessageController(sns *services.SNSService) *MessageController {
	return &MessageController{SNS: sns}
}

type publishMessageReq struct {
	Topic     string  `json:"topic" binding:"required"`
	Body      string  `json:"body" binding:"required,max=1600"`
	GroupCode *string `json:"group_code"`
}

func (mc *MessageController) Publish(c *gin.Context) {
	var req publishMessageReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !models.IsValidTopic(req.Topic) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown topic"})
		return
	}

	if err := mc.SNS.Publish(c.Request.Context(), req.Topic, req.Body, req.GroupCode); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

// ListBrokerSubscriptions reports what the broker actually holds, for
// reconciling against the subscription rows.
func (mc *MessageController) ListBrokerSubscriptions(c *gin.Context) {
	subs, err := mc.SNS.ListSubscriptions(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	results := make([]gin.H, 0, len(subs))
	for _, sub := range subs {
		results = append(results, gin.H{
			"subscription_arn": aws.ToString(sub.SubscriptionArn),
			"topic_arn":        aws.ToString(sub.TopicArn),
			"endpoint":         aws.ToString(sub.Endpoint),
		})
	}
	c.JSON(http.StatusOK, gin.H{"count": len(results), "results": results})
}
