package port

import "fincheck/internal/domain"

// IndexStore persists the index and its metadata as one unit.
type IndexStore interface {
	// Save replaces any previous index atomically.
	Save(idx *domain.Index) error

	// Load returns the stored index. It returns an error wrapping
	// fs.ErrNotExist when nothing has been built yet.
	Load() (*domain.Index, error)
}
