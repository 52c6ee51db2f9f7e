package dto

import (
	"fmt"
	"strings"
)

type EnrollFingerprintDTO struct {
	StaffID string `json:"staffId" validate:"required,staffid"`
	Image   string `json:"image" validate:"required,base64image"` // base64 encoded scan
}

type MultiEnrollFingerprintDTO struct {
	StaffID string   `json:"staffId" validate:"required,staffid"`
	Images  []string `json:"images" validate:"required,min=2,max=10,dive,base64image"`
}

type MatchFingerprintDTO struct {
	Image     string  `json:"image" validate:"required,base64image"`
	Threshold float64 `json:"threshold,omitempty" validate:"omitempty,gt=0,lt=1"`
}

type VerifyFingerprintDTO struct {
	StaffID   string  `json:"staffId" validate:"required,staffid"`
	Image     string  `json:"image" validate:"required,base64image"`
	Threshold float64 `json:"threshold,omitempty" validate:"omitempty,gt=0,lt=1"`
}

type FingerprintQualityDTO struct {
	Image string `json:"image" validate:"required,base64image"`
}

type StaffIDParamDTO struct {
	StaffID string `validate:"required,staffid"`
}

// maxImageChars bounds a base64 scan at roughly 15MiB of raw bytes.
const maxImageChars = 20 << 20

// ValidateImagePayload runs the cheap checks that do not need a decoder.
func ValidateImagePayload(image, fieldName string) error {
	image = strings.TrimSpace(image)
	if image == "" {
		return fmt.Errorf("%s cannot be empty", fieldName)
	}
	if strings.HasPrefix(image, "http://") || strings.HasPrefix(image, "https://") {
		return fmt.Errorf("%s must be base64 encoded, URLs are not fetched", fieldName)
	}
	if len(image) > maxImageChars {
		return fmt.Errorf("%s is too large (max %d characters)", fieldName, maxImageChars)
	}
	if !strings.HasPrefix(image, "data:") && len(image) < 16 {
		return fmt.Errorf("%s is too short to be an image", fieldName)
	}
	return nil
}

func ValidateMultiEnrollRequest(req *MultiEnrollFingerprintDTO) error {
	if req == nil {
		return fmt.Errorf("request cannot be nil")
	}
	for i, image := range req.Images {
		if err := ValidateImagePayload(image, fmt.Sprintf("images[%d]", i)); err != nil {
			return err
		}
	}
	return nil
}
