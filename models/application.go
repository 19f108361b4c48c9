package models

import "time"

// ApplicationType distinguishes permits from certificates in the catalog.
type ApplicationType string

const (
	ApplicationTypePermit      ApplicationType = "Permit"
	ApplicationTypeCertificate ApplicationType = "Certificate"
)

// Application is a catalog entry applicants submit against. It is read-only to the
// workflow services.
type Application struct {
	ApplicationID  int             `gorm:"primaryKey;column:application_id" json:"application_id"`
	Title          string          `gorm:"column:title" json:"title"`
	Type           ApplicationType `gorm:"column:type" json:"type"`
	Description    string          `gorm:"column:description" json:"description"`
	Requirements   []string        `gorm:"column:requirements;serializer:json" json:"requirements"`
	ApplicationFee float64         `gorm:"column:application_fee" json:"application_fee"`
	ProcessingFee  float64         `gorm:"column:processing_fee" json:"processing_fee"`
	CreatedAt      time.Time       `gorm:"column:created_at" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"column:updated_at" json:"updated_at"`
}

func (Application) TableName() string {
	return "applications"
}
