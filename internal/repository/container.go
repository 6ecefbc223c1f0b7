// Package repository defines the persistence boundary for containers.
// Implementations store the structured (tagged-value) form of a
// storage; policies and capacity hooks are code and never persisted.
package repository

import (
	"context"
	"time"

	"github.com/osse101/stockpile/internal/tag"
)

// ContainerRecord is the stored metadata for one container.
type ContainerRecord struct {
	ID        string
	Name      string
	SlotCount int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Container is the repository interface for container persistence.
type Container interface {
	// Create provisions a container holding the given structured form
	// and returns its generated ID.
	Create(ctx context.Context, name string, slotCount int, contents *tag.Compound) (string, error)

	// Get returns the container metadata and its structured contents.
	Get(ctx context.Context, id string) (*ContainerRecord, *tag.Compound, error)

	// Save replaces the container's structured contents.
	Save(ctx context.Context, id string, contents *tag.Compound) error

	// Delete removes the container.
	Delete(ctx context.Context, id string) error

	// List returns metadata for all containers.
	List(ctx context.Context) ([]ContainerRecord, error)
}
