package dto

import (
	"strings"
	"testing"
)

func TestValidateImagePayload(t *testing.T) {
	tests := []struct {
		name    string
		image   string
		wantErr bool
		errMsg  string
	}{
		{
			name:    "empty image",
			image:   "   ",
			wantErr: true,
			errMsg:  "image cannot be empty",
		},
		{
			name:    "url image",
			image:   "https://example.com/finger.png",
			wantErr: true,
			errMsg:  "URLs are not fetched",
		},
		{
			name:    "too short",
			image:   "abcd",
			wantErr: true,
			errMsg:  "too short",
		},
		{
			name:    "too large",
			image:   strings.Repeat("a", maxImageChars+1),
			wantErr: true,
			errMsg:  "too large",
		},
		{
			name:  "base64 payload",
			image: strings.Repeat("abcd", 25),
		},
		{
			name:  "data uri",
			image: "data:image/png;base64,iVBORw0KGgo=",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateImagePayload(tt.image, "image")
			if tt.wantErr {
				if err == nil {
					t.Errorf("ValidateImagePayload() expected error but got none")
					return
				}
				if tt.errMsg != "" && !strings.Contains(err.Error(), tt.errMsg) {
					t.Errorf("ValidateImagePayload() error = %v, want error containing %v", err, tt.errMsg)
				}
			} else if err != nil {
				t.Errorf("ValidateImagePayload() unexpected error = %v", err)
			}
		})
	}
}

func TestValidateMultiEnrollRequest(t *testing.T) {
	if err := ValidateMultiEnrollRequest(nil); err == nil || !strings.Contains(err.Error(), "cannot be nil") {
		t.Errorf("expected nil request error, got %v", err)
	}
	req := &MultiEnrollFingerprintDTO{
		StaffID: "STAFF1",
		Images:  []string{strings.Repeat("abcd", 25), ""},
	}
	err := ValidateMultiEnrollRequest(req)
	if err == nil || !strings.Contains(err.Error(), "images[1] cannot be empty") {
		t.Errorf("expected second image to fail, got %v", err)
	}
	req.Images[1] = strings.Repeat("efgh", 25)
	if err := ValidateMultiEnrollRequest(req); err != nil {
		t.Errorf("unexpected error %v", err)
	}
}
