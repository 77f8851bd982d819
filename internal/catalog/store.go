// Package catalog holds the in-memory session catalog: the single item
// being scanned, the accepted history, and the post-export archive.
package catalog

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oldleaf/shelfscan/internal/models"
)

// Store owns the three disjoint collections of the session. Both lists are
// ordered newest first. All mutations go through its methods; operating on
// an unknown id is a no-op, never an error.
type Store struct {
	mu      sync.RWMutex
	working *models.CatalogEntry
	history []*models.CatalogEntry
	archive []*models.CatalogEntry
}

func New() *Store {
	return &Store{}
}

// Accept appends a new entry to the front of history and returns a copy.
func (s *Store) Accept(record models.BookRecord, image []byte, imageName string) models.CatalogEntry {
	entry := &models.CatalogEntry{
		BookRecord: record,
		ID:         uuid.NewString(),
		Image:      image,
		ImageName:  imageName,
		CreatedAt:  time.Now(),
	}
	s.mu.Lock()
	s.history = append([]*models.CatalogEntry{entry}, s.history...)
	s.mu.Unlock()
	return *entry
}

// AcceptBatch converts completed batch items into history entries at the
// front of the list, keeping their batch order within the group. Item
// identities carry over to the entries.
func (s *Store) AcceptBatch(items []models.BatchItem) []models.CatalogEntry {
	if len(items) == 0 {
		return nil
	}
	entries := make([]*models.CatalogEntry, 0, len(items))
	for _, item := range items {
		image := item.Processed
		if len(image) == 0 {
			image = item.Source
		}
		entries = append(entries, &models.CatalogEntry{
			BookRecord: item.Record,
			ID:         item.ID,
			Image:      image,
			ImageName:  item.Filename,
			CreatedAt:  time.Now(),
		})
	}
	s.mu.Lock()
	s.history = append(entries, s.history...)
	s.mu.Unlock()
	return copyEntries(entries)
}

// EditField mutates one field of the matching history entry in place.
func (s *Store) EditField(id, field, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, entry := range s.history {
		if entry.ID == id {
			entry.SetField(field, value)
			return
		}
	}
}

// DeleteEntry removes the entry with the given id from history or archive.
func (s *Store) DeleteEntry(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = removeByID(s.history, id)
	s.archive = removeByID(s.archive, id)
}

// ArchiveAll moves the whole history, in its existing order, to the front
// of the archive, leaving history empty.
func (s *Store) ArchiveAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.history) == 0 {
		return
	}
	s.archive = append(s.history, s.archive...)
	s.history = nil
}

// Restore moves one archived entry back to the front of history, unchanged.
func (s *Store) Restore(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, entry := range s.archive {
		if entry.ID == id {
			s.archive = append(s.archive[:i], s.archive[i+1:]...)
			s.history = append([]*models.CatalogEntry{entry}, s.history...)
			return
		}
	}
}

// History returns a value snapshot of the accepted entries, newest first.
// Copies are taken under the lock so readers never share mutable state with
// a concurrent edit.
func (s *Store) History() []models.CatalogEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyEntries(s.history)
}

// Archive returns a value snapshot of the exported entries, newest first.
func (s *Store) Archive() []models.CatalogEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyEntries(s.archive)
}

func copyEntries(entries []*models.CatalogEntry) []models.CatalogEntry {
	out := make([]models.CatalogEntry, len(entries))
	for i, entry := range entries {
		out[i] = *entry
	}
	return out
}

// SetWorking replaces the single working slot with the entry being scanned.
func (s *Store) SetWorking(entry *models.CatalogEntry) {
	s.mu.Lock()
	s.working = entry
	s.mu.Unlock()
}

// Working returns the working slot, which may be nil.
func (s *Store) Working() *models.CatalogEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.working
}

// TakeWorking clears and returns the working slot.
func (s *Store) TakeWorking() *models.CatalogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry := s.working
	s.working = nil
	return entry
}

func removeByID(entries []*models.CatalogEntry, id string) []*models.CatalogEntry {
	for i, entry := range entries {
		if entry.ID == id {
			return append(entries[:i], entries[i+1:]...)
		}
	}
	return entries
}
