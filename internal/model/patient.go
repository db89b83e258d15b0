package model

import (
	"time"

	"github.com/google/uuid"
)

type Patient struct {
	ID          uuid.UUID `db:"id" json:"id"`
	ClinicianID uuid.UUID `db:"clinician_id" json:"clinician_id"`
	FullName    string    `db:"full_name" json:"full_name"`
	Gender      string    `db:"gender" json:"gender"`
	PhoneNumber string    `db:"phone_number" json:"phone_number"`
	DateOfBirth Date      `db:"date_of_birth" json:"date_of_birth"`
	Address     string    `db:"address" json:"address"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// PatientPayload is the wire representation accepted by the create and
// update endpoints. Any clinician supplied by the caller is ignored; the
// owning clinician is always resolved from the request identity.
type PatientPayload struct {
	FullName    string `json:"full_name"`
	Gender      string `json:"gender"`
	PhoneNumber string `json:"phone_number"`
	DateOfBirth Date   `json:"date_of_birth"`
	Address     string `json:"address"`
}

// PatientListItem is the fixed projection returned by the list endpoint.
type PatientListItem struct {
	ID          uuid.UUID `db:"id" json:"id"`
	FullName    string    `db:"full_name" json:"full_name"`
	Gender      string    `db:"gender" json:"gender"`
	PhoneNumber string    `db:"phone_number" json:"phone_number"`
	DateOfBirth Date      `db:"date_of_birth" json:"date_of_birth"`
	Address     string    `db:"address" json:"address"`
}

// PatientList is the paginated response body for the patient listing.
type PatientList struct {
	Patients []*PatientListItem `json:"patients"`
	Pagination
}
