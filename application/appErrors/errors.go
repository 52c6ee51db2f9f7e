package apperrors

import (
	"net/http"

	"fingerprint.gateman.io/application/constants"
	"fingerprint.gateman.io/infrastructure/logger"
	server_response "fingerprint.gateman.io/infrastructure/serverResponse"
)

func NotFoundError(ctx interface{}, message string, deviceID *string) {
	server_response.Responder.Respond(ctx, http.StatusNotFound, message, nil, nil, nil, deviceID)
}

func ValidationFailedError(ctx interface{}, errMessages *[]error, deviceID string) {
	server_response.Responder.Respond(ctx, http.StatusUnprocessableEntity, "Payload validation failed 🙄", nil, *errMessages, nil, &deviceID)
}

func ErrorProcessingPayload(ctx interface{}, deviceID *string) {
	server_response.Responder.Respond(ctx, http.StatusBadRequest, "Abnormal payload passed 🤨", nil, nil, nil, deviceID)
}

func LowQualityError(ctx interface{}, err error, deviceID string) {
	server_response.Responder.Respond(ctx, http.StatusBadRequest,
		"Fingerprint scan quality is too low 😕. Clean the sensor and scan again.", nil, []error{err}, &constants.LOW_QUALITY_SCAN, &deviceID)
}

func ImageDecodeError(ctx interface{}, err error, deviceID string) {
	server_response.Responder.Respond(ctx, http.StatusBadRequest, "could not read the fingerprint image", nil, []error{err}, &constants.UNREADABLE_IMAGE, &deviceID)
}

func EnrollmentLimitError(ctx interface{}, message string, deviceID string) {
	server_response.Responder.Respond(ctx, http.StatusConflict, message, nil, nil, &constants.ENROLLMENT_LIMIT_REACHED, &deviceID)
}

func NoTemplatesError(ctx interface{}, message string, deviceID string) {
	server_response.Responder.Respond(ctx, http.StatusNotFound, message, nil, nil, &constants.NO_TEMPLATES_FOR_SUBJECT, &deviceID)
}

func ExternalDependencyError(ctx interface{}, serviceName string, err error, deviceID string) {
	logger.Error(err.Error(), logger.LoggerOptions{
		Key:  "service",
		Data: serviceName,
	})
	server_response.Responder.Respond(ctx, http.StatusServiceUnavailable,
		"Omo! Our service is temporarily down 😢. Our team is working to fix it. Please check back later.", nil, nil, nil, &deviceID)
}

func FatalServerError(ctx interface{}, err error, deviceID string) {
	logger.Error("fatal server error", logger.LoggerOptions{Key: "error", Data: err.Error()})
	server_response.Responder.Respond(ctx, http.StatusInternalServerError,
		"Omo! Our service is temporarily down 😢. Our team is working to fix it. Please check back later.", nil, nil, nil, &deviceID)
}

func CustomError(ctx interface{}, msg string, responseCode *uint, deviceID string) {
	server_response.Responder.Respond(ctx, http.StatusBadRequest, msg, nil, nil, responseCode, &deviceID)
}

func ClientError(ctx interface{}, msg string, errs []error, responseCode *uint, deviceID string) {
	server_response.Responder.Respond(ctx, http.StatusBadRequest, msg, nil, errs, responseCode, &deviceID)
}
