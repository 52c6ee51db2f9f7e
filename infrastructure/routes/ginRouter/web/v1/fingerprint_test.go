package routev1

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"fingerprint.gateman.io/application/constants"
	"fingerprint.gateman.io/application/controller"
	fingerprint_usecase "fingerprint.gateman.io/application/usecases/fingerprint"
	"fingerprint.gateman.io/infrastructure/biometric/types"
	"fingerprint.gateman.io/infrastructure/database/store"
	middlewares "fingerprint.gateman.io/infrastructure/middleware"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeService struct {
	err     error
	matched bool
	removed int
	calls   []string
}

func (f *fakeService) Enroll(_ context.Context, staffID string, _ []byte) (*fingerprint_usecase.EnrollResult, error) {
	f.calls = append(f.calls, "enroll")
	if f.err != nil {
		return nil, f.err
	}
	return &fingerprint_usecase.EnrollResult{Success: true, StaffID: staffID, EnrollCount: 1, EnrollStatus: constants.ENROLLMENT_INCOMPLETE}, nil
}

func (f *fakeService) EnrollMulti(_ context.Context, staffID string, images [][]byte) (*fingerprint_usecase.EnrollResult, error) {
	f.calls = append(f.calls, fmt.Sprintf("enroll_multi:%d", len(images)))
	if f.err != nil {
		return nil, f.err
	}
	return &fingerprint_usecase.EnrollResult{Success: true, StaffID: staffID, EnrollCount: 1, ScansFused: len(images)}, nil
}

func (f *fakeService) Match(_ context.Context, _ []byte, threshold float64) (*fingerprint_usecase.MatchOutcome, error) {
	f.calls = append(f.calls, "match")
	if f.err != nil {
		return nil, f.err
	}
	out := &fingerprint_usecase.MatchOutcome{Matched: f.matched, Threshold: threshold}
	if f.matched {
		out.StaffID = "alice"
	}
	return out, nil
}

func (f *fakeService) Verify(_ context.Context, staffID string, _ []byte, _ float64) (*fingerprint_usecase.VerifyOutcome, error) {
	f.calls = append(f.calls, "verify")
	if f.err != nil {
		return nil, f.err
	}
	return &fingerprint_usecase.VerifyOutcome{MatchResult: types.MatchResult{StaffID: staffID, Matched: f.matched}}, nil
}

func (f *fakeService) Status(_ context.Context, staffID string) (*fingerprint_usecase.TemplateStatus, error) {
	f.calls = append(f.calls, "status")
	return &fingerprint_usecase.TemplateStatus{StaffID: staffID, EnrollmentStatus: constants.ENROLLMENT_INCOMPLETE}, f.err
}

func (f *fakeService) Delete(_ context.Context, _ string) (int, error) {
	f.calls = append(f.calls, "delete")
	return f.removed, f.err
}

func (f *fakeService) Quality(_ context.Context, _ []byte) (*fingerprint_usecase.QualityOutcome, error) {
	f.calls = append(f.calls, "quality")
	return &fingerprint_usecase.QualityOutcome{Enrollable: true}, f.err
}

func (f *fakeService) Sync(_ context.Context) (*fingerprint_usecase.SyncOutcome, error) {
	f.calls = append(f.calls, "sync")
	if f.err != nil {
		return nil, f.err
	}
	return &fingerprint_usecase.SyncOutcome{Queued: true, Pending: 2}, nil
}

type envelope struct {
	Message      string         `json:"message"`
	Body         map[string]any `json:"body"`
	ResponseCode uint           `json:"response_code"`
	Errors       []string       `json:"errors"`
}

var scan = base64.StdEncoding.EncodeToString([]byte("synthetic fingerprint scan bytes"))

func newRouter(service *fakeService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	server := gin.New()
	api := server.Group("/api")
	api.Use(middlewares.DeviceHeaderMiddleware())
	FingerprintRouter(api.Group("/v1"), controller.NewFingerprintController(service))
	return server
}

func call(t *testing.T, server *gin.Engine, method, path string, body any, deviceID string) (int, envelope) {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if deviceID != "" {
		req.Header.Set("X-Device-Id", deviceID)
	}
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return rec.Code, env
}

func TestFingerprintRoutes(t *testing.T) {
	tests := []struct {
		name         string
		service      *fakeService
		method       string
		path         string
		body         any
		deviceID     string
		wantStatus   int
		wantCode     uint
		wantCalls    []string
		wantContains string
	}{
		{
			name:       "enroll succeeds",
			service:    &fakeService{},
			method:     http.MethodPost,
			path:       "/api/v1/fingerprint/enroll",
			body:       map[string]any{"staffId": "alice", "image": scan},
			deviceID:   "terminal-1",
			wantStatus: http.StatusCreated,
			wantCalls:  []string{"enroll"},
		},
		{
			name:       "missing device header",
			service:    &fakeService{},
			method:     http.MethodPost,
			path:       "/api/v1/fingerprint/enroll",
			body:       map[string]any{"staffId": "alice", "image": scan},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:         "invalid staff id",
			service:      &fakeService{},
			method:       http.MethodPost,
			path:         "/api/v1/fingerprint/enroll",
			body:         map[string]any{"staffId": "bad id!", "image": scan},
			deviceID:     "terminal-1",
			wantStatus:   http.StatusUnprocessableEntity,
			wantContains: "staffID must be",
		},
		{
			name:         "image is not base64",
			service:      &fakeService{},
			method:       http.MethodPost,
			path:         "/api/v1/fingerprint/enroll",
			body:         map[string]any{"staffId": "alice", "image": "!!!not base64!!!"},
			deviceID:     "terminal-1",
			wantStatus:   http.StatusUnprocessableEntity,
			wantContains: "base64 encoded image",
		},
		{
			name:       "malformed json",
			service:    &fakeService{},
			method:     http.MethodPost,
			path:       "/api/v1/fingerprint/enroll",
			body:       "{",
			deviceID:   "terminal-1",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "low quality scan",
			service:    &fakeService{err: fmt.Errorf("only 3 minutiae: %w", types.ErrLowQuality)},
			method:     http.MethodPost,
			path:       "/api/v1/fingerprint/enroll",
			body:       map[string]any{"staffId": "alice", "image": scan},
			deviceID:   "terminal-1",
			wantStatus: http.StatusBadRequest,
			wantCode:   constants.LOW_QUALITY_SCAN,
			wantCalls:  []string{"enroll"},
		},
		{
			name:       "enrollment limit",
			service:    &fakeService{err: types.ErrEnrollmentLimit},
			method:     http.MethodPost,
			path:       "/api/v1/fingerprint/enroll",
			body:       map[string]any{"staffId": "alice", "image": scan},
			deviceID:   "terminal-1",
			wantStatus: http.StatusConflict,
			wantCode:   constants.ENROLLMENT_LIMIT_REACHED,
			wantCalls:  []string{"enroll"},
		},
		{
			name:       "unreadable image",
			service:    &fakeService{err: fmt.Errorf("decoding: %w", types.ErrImageDecodeFailure)},
			method:     http.MethodPost,
			path:       "/api/v1/fingerprint/quality",
			body:       map[string]any{"image": scan},
			deviceID:   "terminal-1",
			wantStatus: http.StatusBadRequest,
			wantCode:   constants.UNREADABLE_IMAGE,
			wantCalls:  []string{"quality"},
		},
		{
			name:       "multi enroll needs two scans",
			service:    &fakeService{},
			method:     http.MethodPost,
			path:       "/api/v1/fingerprint/enroll/multi",
			body:       map[string]any{"staffId": "alice", "images": []string{scan}},
			deviceID:   "terminal-1",
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:       "multi enroll fuses",
			service:    &fakeService{},
			method:     http.MethodPost,
			path:       "/api/v1/fingerprint/enroll/multi",
			body:       map[string]any{"staffId": "alice", "images": []string{scan, scan, scan}},
			deviceID:   "terminal-1",
			wantStatus: http.StatusCreated,
			wantCalls:  []string{"enroll_multi:3"},
		},
		{
			name:       "match without a hit",
			service:    &fakeService{},
			method:     http.MethodPost,
			path:       "/api/v1/fingerprint/match",
			body:       map[string]any{"image": scan},
			deviceID:   "terminal-1",
			wantStatus: http.StatusOK,
			wantCode:   constants.NO_MATCH,
			wantCalls:  []string{"match"},
		},
		{
			name:       "match threshold out of range",
			service:    &fakeService{},
			method:     http.MethodPost,
			path:       "/api/v1/fingerprint/match",
			body:       map[string]any{"image": scan, "threshold": 1.5},
			deviceID:   "terminal-1",
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:       "match found",
			service:    &fakeService{matched: true},
			method:     http.MethodPost,
			path:       "/api/v1/fingerprint/match",
			body:       map[string]any{"image": scan, "threshold": 0.4},
			deviceID:   "terminal-1",
			wantStatus: http.StatusOK,
			wantCalls:  []string{"match"},
		},
		{
			name:       "verify unknown subject",
			service:    &fakeService{err: types.ErrNoTemplatesForSubject},
			method:     http.MethodPost,
			path:       "/api/v1/fingerprint/verify",
			body:       map[string]any{"staffId": "ghost", "image": scan},
			deviceID:   "terminal-1",
			wantStatus: http.StatusNotFound,
			wantCode:   constants.NO_TEMPLATES_FOR_SUBJECT,
			wantCalls:  []string{"verify"},
		},
		{
			name:       "template status",
			service:    &fakeService{},
			method:     http.MethodGet,
			path:       "/api/v1/fingerprint/templates/alice",
			deviceID:   "terminal-1",
			wantStatus: http.StatusOK,
			wantCalls:  []string{"status"},
		},
		{
			name:       "delete nothing",
			service:    &fakeService{},
			method:     http.MethodDelete,
			path:       "/api/v1/fingerprint/templates/ghost",
			deviceID:   "terminal-1",
			wantStatus: http.StatusNotFound,
			wantCalls:  []string{"delete"},
		},
		{
			name:       "delete subject",
			service:    &fakeService{removed: 3},
			method:     http.MethodDelete,
			path:       "/api/v1/fingerprint/templates/alice",
			deviceID:   "terminal-1",
			wantStatus: http.StatusOK,
			wantCalls:  []string{"delete"},
		},
		{
			name:       "sync without remote",
			service:    &fakeService{err: store.ErrNoRemote},
			method:     http.MethodPost,
			path:       "/api/v1/fingerprint/sync",
			deviceID:   "terminal-1",
			wantStatus: http.StatusBadRequest,
			wantCode:   constants.REMOTE_STORE_DISABLED,
			wantCalls:  []string{"sync"},
		},
		{
			name:       "sync queued",
			service:    &fakeService{},
			method:     http.MethodPost,
			path:       "/api/v1/fingerprint/sync",
			deviceID:   "terminal-1",
			wantStatus: http.StatusOK,
			wantCalls:  []string{"sync"},
		},
		{
			name:       "unexpected failure",
			service:    &fakeService{err: fmt.Errorf("disk full")},
			method:     http.MethodPost,
			path:       "/api/v1/fingerprint/enroll",
			body:       map[string]any{"staffId": "alice", "image": scan},
			deviceID:   "terminal-1",
			wantStatus: http.StatusInternalServerError,
			wantCalls:  []string{"enroll"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, env := call(t, newRouter(tt.service), tt.method, tt.path, tt.body, tt.deviceID)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantCode, env.ResponseCode)
			assert.Equal(t, tt.wantCalls, tt.service.calls)
			if tt.wantContains != "" {
				assert.Contains(t, fmt.Sprint(env.Errors), tt.wantContains)
			}
		})
	}
}
