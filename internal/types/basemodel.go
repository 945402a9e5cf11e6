package types

import (
	"time"
)

// BaseModel holds the audit timestamps shared by mutable records.
// Any changes to this model should be reflected in the migrations.
type BaseModel struct {
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

func GetDefaultBaseModel(now time.Time) BaseModel {
	return BaseModel{
		CreatedAt: now.UTC(),
		UpdatedAt: now.UTC(),
	}
}
