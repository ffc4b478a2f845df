package controllers

import (
	"net/http"

	"github.com/nanuri-team/nanuri-backend/models"
	"github.com/nanuri-team/nanuri-backend/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type DeviceController struct {
	Devices *services.DeviceService
}

func NewDeviceController(devices *services.DeviceService) *DeviceController {
	return &DeviceController{Devices: devices}
}

// deviceJSON mirrors the API shape: uuid and endpoint_arn are read-only,
// user is the owner's email.
func deviceJSON(device *models.Device) gin.H {
	return gin.H{
		"uuid":         device.UUID,
		"user":         device.User.Email,
		"device_token": device.DeviceToken,
		"endpoint_arn": device.EndpointArn,
		"opt_in":       device.OptIn,
	}
}

type createDeviceReq struct {
	DeviceToken *string `json:"device_token"`
	OptIn       *bool   `json:"opt_in"`
}

func (dc *DeviceController) Create(c *gin.Context) {
	userID := c.GetUint("userID")

	var req createDeviceReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	optIn := true
	if req.OptIn != nil {
		optIn = *req.OptIn
	}

	device, err := dc.Devices.Create(c.Request.Context(), userID, req.DeviceToken, optIn)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, deviceJSON(device))
}

func (dc *DeviceController) lookup(c *gin.Context) (*models.Device, bool) {
	deviceUUID, err := uuid.Parse(c.Param("uuid"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid device uuid"})
		return nil, false
	}
	device, err := dc.Devices.Get(deviceUUID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "device not found"})
		return nil, false
	}
	return device, true
}

func (dc *DeviceController) Retrieve(c *gin.Context) {
	device, ok := dc.lookup(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, deviceJSON(device))
}

// Update serves both PUT and PATCH; fields absent from the body are left
// untouched.
func (dc *DeviceController) Update(c *gin.Context) {
	device, ok := dc.lookup(c)
	if !ok {
		return
	}

	var req createDeviceReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	params := services.DeviceParams{DeviceToken: req.DeviceToken, OptIn: req.OptIn}
	if err := dc.Devices.Update(c.Request.Context(), device, params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, deviceJSON(device))
}

func (dc *DeviceController) Delete(c *gin.Context) {
	device, ok := dc.lookup(c)
	if !ok {
		return
	}
	if err := dc.Devices.Delete(c.Request.Context(), device); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}
