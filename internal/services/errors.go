package services

import "errors"

var (
	ErrInvalidInput            = errors.New("invalid input")
	ErrForbidden               = errors.New("forbidden")
	ErrUserNotFound            = errors.New("user not found")
	ErrPropertyNotFound        = errors.New("property not found")
	ErrProfileNotFound         = errors.New("student profile not found")
	ErrVisitRequestNotFound    = errors.New("visit request not found")
	ErrJoinRequestNotFound     = errors.New("join request not found")
	ErrNotificationNotFound    = errors.New("notification not found")
	ErrProfileIncomplete       = errors.New("profile incomplete")
	ErrDuplicatePendingRequest = errors.New("you already have a pending request for this property")
	ErrNotPending              = errors.New("request is not pending")
	ErrAlreadyInWishlist       = errors.New("property already in wishlist")
	ErrPropertyUnavailable     = errors.New("property is not available")
	ErrDocumentTooLarge        = errors.New("document exceeds the maximum size")
	ErrDocumentNotFound        = errors.New("document not found")
)
