package domain

import "errors"

var (
	// ErrNotFound indicates the requested entity was not found.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists indicates a uniqueness constraint rejected the write.
	ErrAlreadyExists = errors.New("already exists")
	// ErrInvalidState indicates the operation is not allowed in the entity's current status.
	ErrInvalidState = errors.New("invalid state")
	// ErrAlreadyProcessed indicates the cart was already converted into an order.
	ErrAlreadyProcessed = errors.New("already processed")
	// ErrInvalidSignature indicates a payment webhook failed signature verification.
	ErrInvalidSignature = errors.New("invalid signature")
	// ErrUnauthorized indicates the caller does not own the requested resource.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidInput indicates a malformed request value (quantity, status, id).
	ErrInvalidInput = errors.New("invalid input")
)
