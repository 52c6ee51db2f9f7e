package controller

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	apperrors "fingerprint.gateman.io/application/appErrors"
	"fingerprint.gateman.io/application/constants"
	"fingerprint.gateman.io/application/controller/dto"
	"fingerprint.gateman.io/application/interfaces"
	fingerprint_usecase "fingerprint.gateman.io/application/usecases/fingerprint"
	"fingerprint.gateman.io/application/utils"
	"fingerprint.gateman.io/infrastructure/biometric/types"
	"fingerprint.gateman.io/infrastructure/database/store"
	server_response "fingerprint.gateman.io/infrastructure/serverResponse"
	"fingerprint.gateman.io/infrastructure/validator"
)

// FingerprintService is what the HTTP layer needs from the fingerprint use cases.
type FingerprintService interface {
	Enroll(ctx context.Context, staffID string, image []byte) (*fingerprint_usecase.EnrollResult, error)
	EnrollMulti(ctx context.Context, staffID string, images [][]byte) (*fingerprint_usecase.EnrollResult, error)
	Match(ctx context.Context, image []byte, threshold float64) (*fingerprint_usecase.MatchOutcome, error)
	Verify(ctx context.Context, staffID string, image []byte, threshold float64) (*fingerprint_usecase.VerifyOutcome, error)
	Status(ctx context.Context, staffID string) (*fingerprint_usecase.TemplateStatus, error)
	Delete(ctx context.Context, staffID string) (int, error)
	Quality(ctx context.Context, image []byte) (*fingerprint_usecase.QualityOutcome, error)
	Sync(ctx context.Context) (*fingerprint_usecase.SyncOutcome, error)
}

type FingerprintController struct {
	Service FingerprintService
}

func NewFingerprintController(service FingerprintService) *FingerprintController {
	return &FingerprintController{Service: service}
}

// handleError maps use case failures onto the response codes the terminals expect.
func handleError(ctx interface{}, err error, deviceID string) {
	switch {
	case errors.Is(err, types.ErrImageDecodeFailure):
		apperrors.ImageDecodeError(ctx, err, deviceID)
	case errors.Is(err, types.ErrLowQuality):
		apperrors.LowQualityError(ctx, err, deviceID)
	case errors.Is(err, types.ErrEnrollmentLimit):
		apperrors.EnrollmentLimitError(ctx, err.Error(), deviceID)
	case errors.Is(err, types.ErrNoTemplatesForSubject):
		apperrors.NoTemplatesError(ctx, err.Error(), deviceID)
	case errors.Is(err, store.ErrNoRemote):
		apperrors.ClientError(ctx, err.Error(), nil, &constants.REMOTE_STORE_DISABLED, deviceID)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		apperrors.CustomError(ctx, "request was cancelled before it completed", nil, deviceID)
	default:
		apperrors.FatalServerError(ctx, err, deviceID)
	}
}

func decodeImage(ctx interface{}, encoded string, field string, deviceID string) ([]byte, bool) {
	if err := dto.ValidateImagePayload(encoded, field); err != nil {
		apperrors.ValidationFailedError(ctx, &[]error{err}, deviceID)
		return nil, false
	}
	data, err := utils.DecodeBase64Image(encoded)
	if err != nil {
		apperrors.ImageDecodeError(ctx, fmt.Errorf("%s: %w", field, err), deviceID)
		return nil, false
	}
	return data, true
}

func (fc *FingerprintController) Enroll(ctx *interfaces.ApplicationContext[dto.EnrollFingerprintDTO]) {
	if errs := validator.ValidatorInstance.ValidateStruct(ctx.Body); errs != nil {
		apperrors.ValidationFailedError(ctx.Ctx, errs, ctx.DeviceID)
		return
	}
	image, ok := decodeImage(ctx.Ctx, ctx.Body.Image, "image", ctx.DeviceID)
	if !ok {
		return
	}
	result, err := fc.Service.Enroll(ctx.Ctx, ctx.Body.StaffID, image)
	if err != nil {
		handleError(ctx.Ctx, err, ctx.DeviceID)
		return
	}
	server_response.Responder.Respond(ctx.Ctx, http.StatusCreated, fmt.Sprintf("scan %d enrolled", result.EnrollCount), result, nil, nil, &ctx.DeviceID)
}

func (fc *FingerprintController) EnrollMulti(ctx *interfaces.ApplicationContext[dto.MultiEnrollFingerprintDTO]) {
	if errs := validator.ValidatorInstance.ValidateStruct(ctx.Body); errs != nil {
		apperrors.ValidationFailedError(ctx.Ctx, errs, ctx.DeviceID)
		return
	}
	if err := dto.ValidateMultiEnrollRequest(ctx.Body); err != nil {
		apperrors.ValidationFailedError(ctx.Ctx, &[]error{err}, ctx.DeviceID)
		return
	}
	images := make([][]byte, 0, len(ctx.Body.Images))
	for i, encoded := range ctx.Body.Images {
		image, ok := decodeImage(ctx.Ctx, encoded, fmt.Sprintf("images[%d]", i), ctx.DeviceID)
		if !ok {
			return
		}
		images = append(images, image)
	}
	result, err := fc.Service.EnrollMulti(ctx.Ctx, ctx.Body.StaffID, images)
	if err != nil {
		handleError(ctx.Ctx, err, ctx.DeviceID)
		return
	}
	server_response.Responder.Respond(ctx.Ctx, http.StatusCreated, fmt.Sprintf("%d scans fused into one template", result.ScansFused), result, nil, nil, &ctx.DeviceID)
}

func (fc *FingerprintController) Match(ctx *interfaces.ApplicationContext[dto.MatchFingerprintDTO]) {
	if errs := validator.ValidatorInstance.ValidateStruct(ctx.Body); errs != nil {
		apperrors.ValidationFailedError(ctx.Ctx, errs, ctx.DeviceID)
		return
	}
	image, ok := decodeImage(ctx.Ctx, ctx.Body.Image, "image", ctx.DeviceID)
	if !ok {
		return
	}
	outcome, err := fc.Service.Match(ctx.Ctx, image, ctx.Body.Threshold)
	if err != nil {
		handleError(ctx.Ctx, err, ctx.DeviceID)
		return
	}
	if !outcome.Matched {
		server_response.Responder.Respond(ctx.Ctx, http.StatusOK, "no match found", outcome, nil, &constants.NO_MATCH, &ctx.DeviceID)
		return
	}
	server_response.Responder.Respond(ctx.Ctx, http.StatusOK, "match found", outcome, nil, nil, &ctx.DeviceID)
}

func (fc *FingerprintController) Verify(ctx *interfaces.ApplicationContext[dto.VerifyFingerprintDTO]) {
	if errs := validator.ValidatorInstance.ValidateStruct(ctx.Body); errs != nil {
		apperrors.ValidationFailedError(ctx.Ctx, errs, ctx.DeviceID)
		return
	}
	image, ok := decodeImage(ctx.Ctx, ctx.Body.Image, "image", ctx.DeviceID)
	if !ok {
		return
	}
	outcome, err := fc.Service.Verify(ctx.Ctx, ctx.Body.StaffID, image, ctx.Body.Threshold)
	if err != nil {
		handleError(ctx.Ctx, err, ctx.DeviceID)
		return
	}
	if !outcome.Matched {
		server_response.Responder.Respond(ctx.Ctx, http.StatusOK, "fingerprint does not match", outcome, nil, &constants.NO_MATCH, &ctx.DeviceID)
		return
	}
	server_response.Responder.Respond(ctx.Ctx, http.StatusOK, "fingerprint verified", outcome, nil, nil, &ctx.DeviceID)
}

func (fc *FingerprintController) Templates(ctx *interfaces.ApplicationContext[dto.StaffIDParamDTO]) {
	if errs := validator.ValidatorInstance.ValidateStruct(ctx.Body); errs != nil {
		apperrors.ValidationFailedError(ctx.Ctx, errs, ctx.DeviceID)
		return
	}
	status, err := fc.Service.Status(ctx.Ctx, ctx.Body.StaffID)
	if err != nil {
		handleError(ctx.Ctx, err, ctx.DeviceID)
		return
	}
	server_response.Responder.Respond(ctx.Ctx, http.StatusOK, "templates fetched", status, nil, nil, &ctx.DeviceID)
}

func (fc *FingerprintController) Delete(ctx *interfaces.ApplicationContext[dto.StaffIDParamDTO]) {
	if errs := validator.ValidatorInstance.ValidateStruct(ctx.Body); errs != nil {
		apperrors.ValidationFailedError(ctx.Ctx, errs, ctx.DeviceID)
		return
	}
	removed, err := fc.Service.Delete(ctx.Ctx, ctx.Body.StaffID)
	if err != nil {
		handleError(ctx.Ctx, err, ctx.DeviceID)
		return
	}
	if removed == 0 {
		apperrors.NotFoundError(ctx.Ctx, "no templates found for this staff member", &ctx.DeviceID)
		return
	}
	server_response.Responder.Respond(ctx.Ctx, http.StatusOK, "templates deleted", map[string]any{
		"staffId": ctx.Body.StaffID,
		"removed": removed,
	}, nil, nil, &ctx.DeviceID)
}

func (fc *FingerprintController) Quality(ctx *interfaces.ApplicationContext[dto.FingerprintQualityDTO]) {
	if errs := validator.ValidatorInstance.ValidateStruct(ctx.Body); errs != nil {
		apperrors.ValidationFailedError(ctx.Ctx, errs, ctx.DeviceID)
		return
	}
	image, ok := decodeImage(ctx.Ctx, ctx.Body.Image, "image", ctx.DeviceID)
	if !ok {
		return
	}
	outcome, err := fc.Service.Quality(ctx.Ctx, image)
	if err != nil {
		handleError(ctx.Ctx, err, ctx.DeviceID)
		return
	}
	server_response.Responder.Respond(ctx.Ctx, http.StatusOK, "quality assessed", outcome, nil, nil, &ctx.DeviceID)
}

func (fc *FingerprintController) Sync(ctx *interfaces.ApplicationContext[any]) {
	outcome, err := fc.Service.Sync(ctx.Ctx)
	if err != nil {
		handleError(ctx.Ctx, err, ctx.DeviceID)
		return
	}
	msg := "templates synced"
	if outcome.Queued {
		msg = "sync queued"
	}
	server_response.Responder.Respond(ctx.Ctx, http.StatusOK, msg, outcome, nil, nil, &ctx.DeviceID)
}
