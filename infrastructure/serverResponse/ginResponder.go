package server_response

import (
	"os"

	"fingerprint.gateman.io/infrastructure/logger"
	"github.com/gin-gonic/gin"
)

type ginResponder struct{}

// Sends a JSON envelope of message, body and optional errors to the client
func (gr ginResponder) Respond(ctx interface{}, code int, message string, payload interface{}, errs []error, response_code *uint, device_id *string) {
	ginCtx, ok := (ctx).(*gin.Context)
	if !ok {
		logger.Error("could not transform *interface{} to gin.Context in serverResponse package", logger.LoggerOptions{
			Key:  "payload",
			Data: ctx,
		})
		return
	}
	ginCtx.Abort()
	response := map[string]any{
		"message": message,
		"body":    payload,
	}
	if response_code != nil {
		response["response_code"] = *response_code
	}
	if errs != nil {
		errMsgs := []string{}
		for _, err := range errs {
			errMsgs = append(errMsgs, err.Error())
		}
		response["errors"] = errMsgs
	}
	if os.Getenv("ENV") != "prod" {
		opts := []logger.LoggerOptions{{Key: "message", Data: message}, {Key: "status", Data: code}}
		if device_id != nil {
			opts = append(opts, logger.LoggerOptions{Key: "deviceId", Data: *device_id})
		}
		logger.Info("response", opts...)
	}
	ginCtx.JSON(code, response)
}
