package types

import "context"

type SubjectTemplate struct {
	StaffID  string
	Template *Template
}

// TemplateStore is the persistence boundary the matching core talks to.
// A successful StoreTemplate must be visible to ListTemplates in the same
// process even when remote durability lags.
type TemplateStore interface {
	StoreTemplate(ctx context.Context, staffID string, tpl *Template) (bool, int, error)
	ListTemplates(ctx context.Context, staffID string) ([]*Template, error)
	ListAll(ctx context.Context) ([]SubjectTemplate, error)
	Count(ctx context.Context, staffID string) (int, error)
	DeleteAll(ctx context.Context, staffID string) (int, error)
}
