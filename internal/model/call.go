package model

import (
	"time"

	"github.com/google/uuid"
)

// BackendCall is one journaled request to the points backend.
type BackendCall struct {
	ID       uuid.UUID
	Method   string
	Path     string
	Status   int
	Duration time.Duration
	Error    string
	At       time.Time
}
