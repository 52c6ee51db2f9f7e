package entities

import (
	"time"

	"fingerprint.gateman.io/application/utils"
	"fingerprint.gateman.io/infrastructure/biometric/types"
)

type FingerprintTemplate struct {
	StaffID  string         `bson:"staffId" json:"staffId" cbor:"1,keyasint"`
	Template types.Template `bson:"template" json:"template" cbor:"2,keyasint"`
	Synced   bool           `bson:"synced" json:"synced" cbor:"3,keyasint"`
	// ImageKey is the object key of the archived raw scan, if any.
	ImageKey *string `bson:"imageKey" json:"imageKey,omitempty" cbor:"4,keyasint,omitempty"`

	ID        string     `bson:"_id" json:"id" cbor:"10,keyasint"`
	CreatedAt time.Time  `bson:"createdAt" json:"createdAt" cbor:"11,keyasint"`
	UpdatedAt time.Time  `bson:"updatedAt" json:"updatedAt" cbor:"12,keyasint"`
	DeletedAt *time.Time `bson:"deletedAt" json:"deletedAt" cbor:"13,keyasint,omitempty"`
}

func (model FingerprintTemplate) ParseModel() any {
	now := time.Now()
	if model.CreatedAt.IsZero() {
		model.CreatedAt = now
		if model.ID == "" {
			model.ID = utils.GenerateUULDString()
		}
	}
	model.UpdatedAt = now
	return &model
}
