package manifest

import (
	"errors"
	"path/filepath"
	"sync"
)

// Transaction accumulates manifest mutations for one invocation and flushes each touched
// manifest exactly once. It is safe for concurrent use; all mutations are serialised.
type Transaction struct {
	store     *Store
	mutex     sync.Mutex
	manifests map[string]*Manifest
	dirty     map[string]bool
	order     []string
}

// Begin starts a transaction backed by the store.
func (store *Store) Begin() *Transaction {
	return &Transaction{
		store:     store,
		manifests: make(map[string]*Manifest),
		dirty:     make(map[string]bool),
	}
}

// Manifest returns a copy of the manifest of directory as seen by the transaction.
// A directory without a manifest yields an empty one.
func (transaction *Transaction) Manifest(directory string) (*Manifest, error) {
	transaction.mutex.Lock()
	defer transaction.mutex.Unlock()
	current, loadError := transaction.loadLocked(directory)
	if loadError != nil {
		return nil, loadError
	}
	return current.Clone(), nil
}

// Update applies mutate to the manifest of directory. The change is kept only when mutate
// succeeds and the result validates.
func (transaction *Transaction) Update(directory string, mutate func(manifest *Manifest) error) error {
	transaction.mutex.Lock()
	defer transaction.mutex.Unlock()

	current, loadError := transaction.loadLocked(directory)
	if loadError != nil {
		return loadError
	}
	candidate := current.Clone()
	if mutationError := mutate(candidate); mutationError != nil {
		return mutationError
	}
	if validationError := Validate(candidate); validationError != nil {
		return attachFile(validationError, transaction.store.PathFor(directory))
	}

	key := filepath.Clean(directory)
	transaction.manifests[key] = candidate
	if !transaction.dirty[key] {
		transaction.dirty[key] = true
		transaction.order = append(transaction.order, key)
	}
	return nil
}

// Pending reports whether any manifest awaits a flush.
func (transaction *Transaction) Pending() bool {
	transaction.mutex.Lock()
	defer transaction.mutex.Unlock()
	return len(transaction.order) > 0
}

// Commit writes every modified manifest in the order it was first modified.
func (transaction *Transaction) Commit() error {
	transaction.mutex.Lock()
	defer transaction.mutex.Unlock()

	var commitErrors []error
	for _, directory := range transaction.order {
		if saveError := transaction.store.Save(directory, transaction.manifests[directory]); saveError != nil {
			commitErrors = append(commitErrors, saveError)
			continue
		}
		delete(transaction.dirty, directory)
	}
	remaining := transaction.order[:0]
	for _, directory := range transaction.order {
		if transaction.dirty[directory] {
			remaining = append(remaining, directory)
		}
	}
	transaction.order = remaining
	return errors.Join(commitErrors...)
}

func (transaction *Transaction) loadLocked(directory string) (*Manifest, error) {
	key := filepath.Clean(directory)
	if loaded, exists := transaction.manifests[key]; exists {
		return loaded, nil
	}
	loaded, loadError := transaction.store.Load(key)
	if errors.Is(loadError, ErrNotFound) {
		loaded, loadError = New(), nil
	}
	if loadError != nil {
		return nil, loadError
	}
	transaction.manifests[key] = loaded
	return loaded, nil
}
