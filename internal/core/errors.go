package core

import "errors"

var (
	// ErrNoSheets is returned when a workbook carries no parsable sheet.
	ErrNoSheets = errors.New("workbook has no parsable sheets")

	// ErrEmptyWorkbook is returned when an encoded workbook comes out empty.
	ErrEmptyWorkbook = errors.New("empty workbook buffer")

	// ErrUnknownKind is returned for entity kinds outside the five fixed kinds.
	ErrUnknownKind = errors.New("unknown entity kind")

	// ErrOperationInProgress is returned when another operation holds the slot.
	ErrOperationInProgress = errors.New("operation in progress")

	// ErrConfirmationRequired is returned when a destructive operation was
	// requested without explicit confirmation.
	ErrConfirmationRequired = errors.New("confirmation required")

	// ErrUnresolvedCustomer marks an invoice whose customer could not be found or created.
	ErrUnresolvedCustomer = errors.New("required field: customer_id unresolved")
)
