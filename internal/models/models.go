package models

import "time"

// Registration is the authoritative record for one attendee. The normalized
// phone number is the business key; RegistrationID is the server-assigned
// public identifier and the join key for the spreadsheet mirror.
type Registration struct {
	ID uint `gorm:"primaryKey" json:"-"`

	RegistrationID string `gorm:"size:16;uniqueIndex" json:"registration_id"`
	Phone          string `gorm:"size:16;uniqueIndex" json:"phone"`

	Name           string `gorm:"size:128;not null" json:"name"`
	Company        string `gorm:"size:128" json:"company"`
	Address        string `gorm:"size:256" json:"address"`
	City           string `gorm:"size:64" json:"city"`
	State          string `gorm:"size:64" json:"state"`
	AttendanceDays string `gorm:"size:64" json:"attendance_days"`

	PaymentID *string `gorm:"size:64" json:"payment_id,omitempty"`
	ImageURL  string  `gorm:"size:512" json:"image_url"`

	CheckedInAt *time.Time `json:"checked_in_at,omitempty"`

	// NeedsSync marks the mirror row as stale or missing. Set on create and
	// on every mutation; cleared only by the reconciler after a confirmed
	// successful write. May be a false positive, never a false negative.
	NeedsSync bool `gorm:"index;not null;default:false" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"-"`
}

// PublicFields is the safe-to-share subset returned by the public endpoints,
// both on success and in duplicate-phone conflict responses.
type PublicFields struct {
	RegistrationID string `json:"registration_id"`
	Name           string `json:"name"`
	Phone          string `json:"phone"`
	Company        string `json:"company"`
	AttendanceDays string `json:"attendance_days"`
	ImageURL       string `json:"image_url"`
}

func (r Registration) Public() PublicFields {
	return PublicFields{
		RegistrationID: r.RegistrationID,
		Name:           r.Name,
		Phone:          r.Phone,
		Company:        r.Company,
		AttendanceDays: r.AttendanceDays,
		ImageURL:       r.ImageURL,
	}
}
