package fingerprint_usecase

import (
	"time"

	"fingerprint.gateman.io/infrastructure/biometric/quality"
	"fingerprint.gateman.io/infrastructure/biometric/types"
)

type EnrollResult struct {
	Success       bool                  `json:"success"`
	StaffID       string                `json:"staffId"`
	TemplateID    string                `json:"templateId"`
	EnrollCount   int                   `json:"enrollCount"`
	EnrollStatus  string                `json:"enrollStatus"`
	Remaining     int                   `json:"remaining"`
	MinutiaeCount int                   `json:"minutiaeCount"`
	KeypointCount int                   `json:"keypointCount"`
	ScansFused    int                   `json:"scansFused,omitempty"`
	Quality       types.TemplateQuality `json:"quality"`
}

type MatchOutcome struct {
	Matched           bool                `json:"matched"`
	StaffID           string              `json:"staffId,omitempty"`
	Score             float64             `json:"score"`
	Confidence        types.Confidence    `json:"confidence"`
	Threshold         float64             `json:"threshold"`
	Ambiguous         bool                `json:"ambiguous"`
	SubjectsCompared  int                 `json:"subjectsCompared"`
	FailedComparisons int                 `json:"failedComparisons"`
	Candidates        []types.MatchResult `json:"candidates"`
	ProbeQuality      float64             `json:"probeQuality"`
	ElapsedMS         int64               `json:"elapsedMs"`
}

type VerifyOutcome struct {
	types.MatchResult
	ProbeQuality float64 `json:"probeQuality"`
	ElapsedMS    int64   `json:"elapsedMs"`
}

type TemplateSummary struct {
	ID            string                `json:"id"`
	CreatedAt     time.Time             `json:"createdAt"`
	Quality       types.TemplateQuality `json:"quality"`
	MinutiaeCount int                   `json:"minutiaeCount"`
	KeypointCount int                   `json:"keypointCount"`
	Degraded      bool                  `json:"degraded"`
	Synced        bool                  `json:"synced"`
	ImageURL      *string               `json:"imageUrl,omitempty"`
}

type TemplateStatus struct {
	StaffID          string            `json:"staffId"`
	TemplateCount    int               `json:"templateCount"`
	EnrollmentStatus string            `json:"enrollmentStatus"`
	Remaining        int               `json:"remaining"`
	MinEnrollments   int               `json:"minEnrollments"`
	MaxEnrollments   int               `json:"maxEnrollments"`
	Templates        []TemplateSummary `json:"templates"`
}

type QualityOutcome struct {
	quality.Report
	MinutiaeCount  int                   `json:"minutiaeCount"`
	KeypointCount  int                   `json:"keypointCount"`
	Degraded       bool                  `json:"degraded"`
	DegradedReason string                `json:"degradedReason,omitempty"`
	Template       types.TemplateQuality `json:"templateQuality"`
	Strategy       string                `json:"strategy"`
	Enrollable     bool                  `json:"enrollable"`
}

type SyncOutcome struct {
	Queued  bool `json:"queued"`
	Synced  int  `json:"synced"`
	Pending int  `json:"pending"`
}
