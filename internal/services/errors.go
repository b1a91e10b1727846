// Package services defines the business logic for the wishes guestbook.
// This file centralizes service-level error values so handlers can map them
// to HTTP statuses consistently. Storage-level sentinels (store.ErrNotFound,
// store.ErrAmbiguousID) pass through services unchanged.
package services

import "errors"

var (
	// ErrEmptyMessage is returned when a wish message is empty after trimming.
	ErrEmptyMessage = errors.New("message required")

	// ErrMessageTooLong is returned when a wish message exceeds the
	// configured rune bound.
	ErrMessageTooLong = errors.New("message too long")

	// ErrProfanity is returned when a wish message fails the blocklist check.
	ErrProfanity = errors.New("inappropriate language is not allowed")

	// ErrEmptyImport is returned when a bulk import carries no usable rows.
	ErrEmptyImport = errors.New("no wishes provided")
)
