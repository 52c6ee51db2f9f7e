package middlewares

import (
	"errors"
	"regexp"

	apperrors "fingerprint.gateman.io/application/appErrors"
	"fingerprint.gateman.io/application/interfaces"
)

var deviceIDPattern = regexp.MustCompile(`^[A-Za-z0-9._:-]{1,128}$`)

// DeviceHeaderMiddleware requires every scanner terminal to identify itself
// with X-Device-Id so responses and logs can be traced back to it.
func DeviceHeaderMiddleware(ctx *interfaces.ApplicationContext[any]) (*interfaces.ApplicationContext[any], bool) {
	deviceID := ctx.GetHeader("X-Device-Id")
	if deviceID == nil {
		apperrors.ClientError(ctx.Ctx, "X-Device-Id header is required", []error{errors.New("device id header missing")}, nil, "")
		return nil, false
	}
	if !deviceIDPattern.MatchString(*deviceID) {
		apperrors.ClientError(ctx.Ctx, "X-Device-Id header is malformed", []error{errors.New("device id may only contain letters, digits and ._:-")}, nil, "")
		return nil, false
	}
	ctx.DeviceID = *deviceID
	return ctx, true
}
