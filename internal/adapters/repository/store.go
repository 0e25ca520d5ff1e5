// Package repository defines the session store interface and errors.
package repository

import (
	"context"

	"github.com/apexsports/shotform/internal/domain/model"
)

// Store provides access to per-session shot records. Sessions are
// append-only: a ShotRecord is never mutated or removed once appended, so
// readers can hold references across appends.
type Store interface {
	// Append adds a completed shot record to its session, creating the
	// session on first use. Appends are serialized; the record must not be
	// modified afterwards.
	Append(ctx context.Context, rec *model.ShotRecord) error

	// Shots returns the session's records in append order.
	// Returns ErrSessionNotFound for an unknown session.
	Shots(ctx context.Context, sessionID string) ([]*model.ShotRecord, error)

	// Sessions returns the known session IDs in first-seen order.
	Sessions(ctx context.Context) []string

	// Count returns the total number of shot records across sessions.
	Count(ctx context.Context) int
}
