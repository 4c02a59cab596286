package service

import "errors"

// Validation errors. Surfaced to the caller as denials, never retried.
var (
	ErrAlreadyOwnsClub  = errors.New("user already owns a club")
	ErrAlreadyReviewed  = errors.New("club has already been reviewed")
	ErrDuplicateBan     = errors.New("user is already banned from this club")
	ErrClubNotVerified  = errors.New("club has not been verified yet")
	ErrBanned           = errors.New("user is banned from this club")
	ErrOwnerCannotLeave = errors.New("owners cannot leave their own club")
	ErrNotReviewer      = errors.New("reviewer role required")
	ErrNotClubOwner     = errors.New("only the club owner may do this")
	ErrUnknownModPerm   = errors.New("unknown moderator permission")
)
