package domain

import "errors"

// Доменные ошибки - используются во всех слоях приложения

// Draft errors
var (
	ErrEmptyPlate       = errors.New("plate is required")
	ErrEmptyVehicleType = errors.New("vehicle type is required")
	ErrEmptySpotLabel   = errors.New("spot label is required")
)

// Capture errors
var (
	ErrSourceNotReady    = errors.New("capture source is not ready")
	ErrSourceClosed      = errors.New("capture source is closed")
	ErrCaptureInFlight   = errors.New("capture already in progress")
	ErrSessionTornDown   = errors.New("capture session is torn down")
	ErrCameraLeaseDenied = errors.New("camera is held by another terminal")
)

// Workflow errors
var (
	ErrInvalidTransition = errors.New("invalid workflow transition")
	ErrNotFormReady      = errors.New("no draft ready for submission")
	ErrNoFeeQuote        = errors.New("no fee quote for active session")
)

// Booking errors
var (
	ErrBookingNotFound = errors.New("no active booking for plate")
	ErrBookingInvalid  = errors.New("booking is not valid")
)

// Payment errors
var (
	ErrInvalidPaymentMethod = errors.New("invalid payment method")
	ErrRFIDNotValidated     = errors.New("rfid tag is not validated for this plate")
	ErrRFIDValidationFailed = errors.New("rfid validation failed")
)

// Backend errors
var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrTokenExpired   = errors.New("token expired")
	ErrNotFound       = errors.New("not found")
	ErrConflict       = errors.New("conflict")
	ErrBadRequest     = errors.New("bad request")
	ErrBackendTimeout = errors.New("backend request timed out")
	ErrInternal       = errors.New("internal error")
)
