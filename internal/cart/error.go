package cart

import "errors"

var (
	// -- Validation & Input --
	ErrOwnerRequired      = errors.New("cart owner is required")
	ErrInvalidLineType    = errors.New("invalid cart line type")
	ErrItemIDRequired     = errors.New("item id is required")
	ErrMissingServiceData = errors.New("service items require appointment_date and time_slot_id")
	ErrInvalidAppointment = errors.New("appointment_date must be YYYY-MM-DD")

	// -- Resource State --
	ErrOfferingNotFound = errors.New("product or service not found")

	// -- Persistence --
	ErrCorruptCart = errors.New("persisted cart is malformed")
	ErrFailedSave  = errors.New("failed to save cart")
	ErrFailedLoad  = errors.New("failed to load cart")
)
