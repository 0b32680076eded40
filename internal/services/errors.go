// Package services defines the business logic for inventory, customers,
// sales, cash-box sessions, and campaigns. This file centralizes common
// service-level error values so that they can be consistently returned by
// service methods and checked by callers.
//
// These errors are intended for internal use by the service layer;
// translation into user-facing messages or HTTP status codes is performed
// at the handler layer.
package services

import "errors"

// Inventory-related errors.
var (
	// ErrFrameNotFound indicates that the requested frame does not exist.
	ErrFrameNotFound = errors.New("frame not found")

	// ErrDuplicateSKU is returned when a create or update would assign a SKU
	// already carried by another frame.
	ErrDuplicateSKU = errors.New("sku already exists")

	// ErrInsufficientStock is returned when a sale asks for more units of a
	// frame than are on hand. Nothing is decremented.
	ErrInsufficientStock = errors.New("insufficient stock")
)

// Customer-related errors.
var (
	// ErrCustomerNotFound indicates that the requested customer does not
	// exist or was deleted.
	ErrCustomerNotFound = errors.New("customer not found")
)

// Sales-related errors.
var (
	// ErrSaleNotFound indicates that the requested sales note does not exist.
	ErrSaleNotFound = errors.New("sale note not found")

	// ErrEmptySale is returned when a sales note is submitted without line
	// items.
	ErrEmptySale = errors.New("sale has no items")

	// ErrCampaignNotFound indicates that the referenced campaign does not
	// exist.
	ErrCampaignNotFound = errors.New("campaign not found")
)

// Cash-box errors.
var (
	// ErrSessionAlreadyOpen is returned when opening a cash session while
	// another one is still open.
	ErrSessionAlreadyOpen = errors.New("a cash session is already open")

	// ErrNoOpenSession is returned by cash operations that require an open
	// session when the box is closed.
	ErrNoOpenSession = errors.New("no open cash session")

	// ErrInvalidMovement is returned when a cash movement has an unknown
	// kind or a non-positive amount.
	ErrInvalidMovement = errors.New("invalid cash movement")
)

// ErrValidation wraps input validation failures. Check with errors.Is and
// surface the wrapped detail to the caller.
var ErrValidation = errors.New("validation failed")
