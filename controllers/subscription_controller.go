package controllers

import (
	"net/http"
	"strconv"

	"github.com/nanuri-team/nanuri-backend/models"
	"github.com/nanuri-team/nanuri-backend/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type SubscriptionController struct {
	Subscriptions *services.SubscriptionService
	Devices       *services.DeviceService
}

func NewSubscriptionController(subs *services.SubscriptionService, devices *services.DeviceService) *SubscriptionController {
	return &SubscriptionController{Subscriptions: subs, Devices: devices}
}

func subscriptionJSON(sub *models.Subscription) gin.H {
	return gin.H{
		"uuid":             sub.UUID,
		"device":           sub.DeviceUUID,
		"topic":            sub.Topic,
		"group_code":       sub.GroupCode,
		"opt_in":           sub.OptIn,
		"subscription_arn": sub.SubscriptionArn,
	}
}

type createSubscriptionReq struct {
	Device    string  `json:"device" binding:"required"`
	Topic     string  `json:"topic" binding:"required"`
	GroupCode *string `json:"group_code"`
	OptIn     *bool   `json:"opt_in"`
}

func (sc *SubscriptionController) Create(c *gin.Context) {
	var req createSubscriptionReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !models.IsValidTopic(req.Topic) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown topic"})
		return
	}

	deviceUUID, err := uuid.Parse(req.Device)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid device uuid"})
		return
	}
	device, err := sc.Devices.Get(deviceUUID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "device not found"})
		return
	}

	optIn := true
	if req.OptIn != nil {
		optIn = *req.OptIn
	}

	sub, err := sc.Subscriptions.Create(c.Request.Context(), device, req.Topic, req.GroupCode, optIn)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, subscriptionJSON(sub))
}

// List supports ?device=<uuid> filtering and limit/offset pagination.
func (sc *SubscriptionController) List(c *gin.Context) {
	var deviceUUID *uuid.UUID
	if device := c.Query("device"); device != "" {
		parsed, err := uuid.Parse(device)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid device uuid"})
			return
		}
		deviceUUID = &parsed
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	subs, err := sc.Subscriptions.List(deviceUUID, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	results := make([]gin.H, 0, len(subs))
	for i := range subs {
		results = append(results, subscriptionJSON(&subs[i]))
	}
	c.JSON(http.StatusOK, gin.H{"count": len(results), "results": results})
}

func (sc *SubscriptionController) lookup(c *gin.Context) (*models.Subscription, bool) {
	subUUID, err := uuid.Parse(c.Param("uuid"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid subscription uuid"})
		return nil, false
	}
	sub, err := sc.Subscriptions.Get(subUUID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "subscription not found"})
		return nil, false
	}
	return sub, true
}

func (sc *SubscriptionController) Retrieve(c *gin.Context) {
	sub, ok := sc.lookup(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, subscriptionJSON(sub))
}

type updateSubscriptionReq struct {
	Topic     *string `json:"topic"`
	GroupCode *string `json:"group_code"`
	OptIn     *bool   `json:"opt_in"`
}

func (sc *SubscriptionController) Update(c *gin.Context) {
	sub, ok := sc.lookup(c)
	if !ok {
		return
	}

	var req updateSubscriptionReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Topic != nil && !models.IsValidTopic(*req.Topic) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown topic"})
		return
	}

	params := services.SubscriptionParams{Topic: req.Topic, GroupCode: req.GroupCode, OptIn: req.OptIn}
	if err := sc.Subscriptions.Update(c.Request.Context(), sub, params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, subscriptionJSON(sub))
}

func (sc *SubscriptionController) Delete(c *gin.Context) {
	sub, ok := sc.lookup(c)
	if !ok {
		return
	}
	if err := sc.Subscriptions.Delete(c.Request.Context(), sub); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}
