package settlement

import "errors"

var (
	// ErrTxNotFound: no transaction with that id.
	ErrTxNotFound = errors.New("transaction not found")
	// ErrWrongChannel: confirmation only applies to the offline channel.
	ErrWrongChannel = errors.New("not an offline transaction")
	// ErrAlreadyVerified: the transaction already reached a terminal status;
	// a duplicate confirmation is a no-op.
	ErrAlreadyVerified = errors.New("transaction already verified")
	// ErrInvalidCode: the one-time code does not match. Leaves the row
	// PENDING.
	ErrInvalidCode = errors.New("invalid OTP")
	// ErrCodeExpired: the one-time code is past its stored expiry. The code
	// can never match again, so the row is marked FAILED.
	ErrCodeExpired = errors.New("OTP expired")
	// ErrNoAdminContact: the offline channel needs an administrator to hand
	// the code to.
	ErrNoAdminContact = errors.New("admin contact not found")
)
