// Package core provides the business logic for ledger import, export and restore.
//
// # Error Codes Reference
//
// This file defines user-friendly error messages with codes for support reference.
// When an operation fails, the code is returned alongside the message so it can
// be quoted back to support.
//
// # Database Errors (DB001-DB099)
//
//	DB001 - Duplicate key: A record with this number already exists
//	        Patterns: "duplicate key"
//	DB002 - Unique constraint: This value must be unique but already exists
//	        Patterns: "unique constraint", "violates unique"
//	DB003 - Foreign key: Referenced record does not exist
//	        Patterns: "foreign key constraint", "violates foreign key"
//	DB004 - Connection refused: Unable to connect to database
//	DB005 - Connection reset: Database connection was interrupted
//	DB006 - Timeout: Operation timed out
//	DB007 - Deadlock: Database was busy with conflicting operations
//
// # Validation Errors (VAL001-VAL099)
//
//	VAL001 - Unknown kind: Entity kind is not one of the five workbook kinds
//	         Patterns: "unknown entity kind"
//	VAL002 - Required field: Required field is empty or unresolved
//	         Patterns: "required field"
//	VAL003 - Invalid rows: Request body is not a list of rows
//	         Patterns: "invalid rows"
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File too large: Workbook exceeds the maximum upload size
//	FILE002 - No sheets: Workbook has no sheet with data rows
//	FILE003 - Empty workbook: Generated workbook is empty
//	FILE004 - No file: No file was selected
//	FILE005 - Not a workbook: File is not a valid .xlsx workbook
//
// # Operation Errors (OPS001-OPS099)
//
//	OPS001 - Busy: Another import, export or restore is running
//	OPS002 - Confirmation: Destructive operation was not confirmed
//	OPS003 - Cancelled: Request was cancelled
//	OPS004 - Deadline: Request timed out
//
// # Backup Errors (AUTH001-AUTH099)
//
//	AUTH001 - Credential expired: Drive credential was rejected
//	AUTH002 - Reconnect: No usable Drive credential is stored
//	AUTH003 - No backup: No backup file has been recorded yet
//
// # Default Error (ERR000)
//
// Fallback when no specific pattern matches. Check application logs for the
// original technical error.
//
// # Pattern Matching
//
// Error patterns are matched case-insensitively using strings.Contains.
// The first matching pattern wins, so more specific patterns are defined
// before general ones.
package core

import (
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns maps technical error patterns (case-insensitive) to user messages.
// Order matters: the first match wins.
var errorPatterns = []errorPattern{
	// =========================================================================
	// Database Constraint Errors (DB001-DB003)
	// =========================================================================
	{
		pattern: "duplicate key",
		msg: UserMessage{
			Message: "A record with this number already exists",
			Action:  "Remove duplicate rows from the workbook or clear existing data first",
			Code:    "DB001",
		},
	},
	{
		pattern: "unique constraint",
		msg: UserMessage{
			Message: "This value must be unique but already exists",
			Action:  "Check for duplicate entries in your workbook",
			Code:    "DB002",
		},
	},
	{
		pattern: "violates unique",
		msg: UserMessage{
			Message: "A duplicate value was found",
			Action:  "Review your data for duplicate numbers or SKUs",
			Code:    "DB002",
		},
	},
	{
		pattern: "foreign key constraint",
		msg: UserMessage{
			Message: "Referenced record does not exist",
			Action:  "Import customers before invoices",
			Code:    "DB003",
		},
	},
	{
		pattern: "violates foreign key",
		msg: UserMessage{
			Message: "Referenced record does not exist",
			Action:  "Import customers before invoices",
			Code:    "DB003",
		},
	},

	// =========================================================================
	// Database Connection Errors (DB004-DB007)
	// =========================================================================
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to database",
			Action:  "Please try again in a few moments",
			Code:    "DB004",
		},
	},
	{
		pattern: "connection reset",
		msg: UserMessage{
			Message: "Database connection was interrupted",
			Action:  "Please try again",
			Code:    "DB005",
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "Operation timed out",
			Action:  "Try a smaller workbook or try again later",
			Code:    "DB006",
		},
	},
	{
		pattern: "deadlock",
		msg: UserMessage{
			Message: "Database was busy with conflicting operations",
			Action:  "Please try again",
			Code:    "DB007",
		},
	},

	// =========================================================================
	// Validation Errors (VAL001-VAL003)
	// =========================================================================
	{
		pattern: "unknown entity kind",
		msg: UserMessage{
			Message: "Unknown record type",
			Action:  "Use products, customers, invoices, bills or exchange_bills",
			Code:    "VAL001",
		},
	},
	{
		pattern: "required field",
		msg: UserMessage{
			Message: "Required field is empty",
			Action:  "Ensure every row has its number and customer columns filled",
			Code:    "VAL002",
		},
	},
	{
		pattern: "invalid rows",
		msg: UserMessage{
			Message: "Request body is not a list of rows",
			Action:  "Send a JSON array of objects keyed by column header",
			Code:    "VAL003",
		},
	},

	// =========================================================================
	// File Errors (FILE001-FILE005)
	// =========================================================================
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "Workbook exceeds the maximum upload size",
			Action:  "Split the workbook and import one sheet at a time",
			Code:    "FILE001",
		},
	},
	{
		pattern: "no parsable sheets",
		msg: UserMessage{
			Message: "The workbook has no sheets with data",
			Action:  "Check that sheets are named Products, Customers, Invoices, Bills or Exchange Bills",
			Code:    "FILE002",
		},
	},
	{
		pattern: "empty workbook",
		msg: UserMessage{
			Message: "The generated workbook is empty",
			Action:  "Please try again or contact support",
			Code:    "FILE003",
		},
	},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was selected",
			Action:  "Please select an .xlsx file",
			Code:    "FILE004",
		},
	},
	{
		pattern: "not a valid zip",
		msg: UserMessage{
			Message: "File is not a valid workbook",
			Action:  "Save the file as .xlsx and try again",
			Code:    "FILE005",
		},
	},

	// =========================================================================
	// Operation Errors (OPS001-OPS004)
	// =========================================================================
	{
		pattern: "operation in progress",
		msg: UserMessage{
			Message: "Another operation is already running",
			Action:  "Wait for it to finish and try again",
			Code:    "OPS001",
		},
	},
	{
		pattern: "confirmation required",
		msg: UserMessage{
			Message: "This operation deletes existing data",
			Action:  "Confirm the operation to continue",
			Code:    "OPS002",
		},
	},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "OPS003",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Try a smaller workbook or check your connection",
			Code:    "OPS004",
		},
	},

	// =========================================================================
	// Backup Errors (AUTH001-AUTH003)
	// =========================================================================
	{
		pattern: "credential expired",
		msg: UserMessage{
			Message: "Your Drive connection has expired",
			Action:  "Reconnect to Drive and try again",
			Code:    "AUTH001",
		},
	},
	{
		pattern: "reconnect required",
		msg: UserMessage{
			Message: "Not connected to Drive",
			Action:  "Connect to Drive before syncing",
			Code:    "AUTH002",
		},
	},
	{
		pattern: "no backup file",
		msg: UserMessage{
			Message: "No backup has been synced yet",
			Action:  "Run a backup sync first",
			Code:    "AUTH003",
		},
	},

	// =========================================================================
	// Request Errors (VAL004), matched last
	// =========================================================================
	{
		pattern: "invalid request",
		msg: UserMessage{
			Message: "The request could not be read",
			Action:  "Check the request body and parameters",
			Code:    "VAL004",
		},
	},
}

// defaultMessage is returned when no pattern matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// It returns the first matching pattern (case-insensitive), or a generic
// fallback with code ERR000.
//
// Example:
//
//	msg := MapError(ErrOperationInProgress)
//	// msg.Code == "OPS001"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	errStr := strings.ToLower(err.Error())

	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err matches a known pattern rather than the
// generic ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error with its user-facing message.
type UserError struct {
	Technical error       // Original technical error for logging
	User      UserMessage // User-friendly message for display
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps err to a UserError. Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
