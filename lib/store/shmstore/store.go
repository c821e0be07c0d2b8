package shmstore

import (
	"errors"
	"sync"
	"time"

	"github.com/ValentinKolb/shmKV/lib/engine"
	"github.com/ValentinKolb/shmKV/lib/shm"
	"github.com/ValentinKolb/shmKV/lib/store"
	"github.com/cenkalti/backoff/v4"
)

type storeImpl struct {
	mu     sync.Mutex
	seg    *shm.Segment
	engine *engine.Engine
	closed bool
}

// --------------------------------------------------------------------------
// Constructors
// --------------------------------------------------------------------------

// CreateStore creates a new segment under the given name and attaches to
// it. The calling process is the designated creator and is by convention
// the one that later calls Unlink.
func CreateStore(name string) (store.IStore, error) {
	seg, err := shm.Create(name)
	if err != nil {
		return nil, mapError(err)
	}
	return newStore(seg)
}

// NewStore attaches to an existing segment without touching its contents.
func NewStore(name string) (store.IStore, error) {
	seg, err := shm.Open(name)
	if err != nil {
		return nil, mapError(err)
	}
	return newStore(seg)
}

// OpenOrCreateStore attaches to the named segment, creating it if it does
// not exist yet. Two processes racing through the create fall-back can
// collide (one wins the O_EXCL create, the other sees AlreadyExists); the
// loser retries the open with a short exponential backoff.
func OpenOrCreateStore(name string) (store.IStore, error) {
	var s store.IStore

	attach := func() error {
		var err error
		if s, err = NewStore(name); err == nil {
			return nil
		}
		if store.CodeOf(err) != store.RetCNotFound {
			return backoff.Permanent(err)
		}
		if s, err = CreateStore(name); err == nil {
			return nil
		}
		if store.CodeOf(err) == store.RetCAlreadyExists {
			return err // someone else won the create, retry the open
		}
		return backoff.Permanent(err)
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 10 * time.Millisecond
	policy.MaxElapsedTime = 2 * time.Second

	if err := backoff.Retry(attach, policy); err != nil {
		return nil, err
	}
	return s, nil
}

// Unlink removes the named segment from the OS namespace. Stores that are
// already attached keep working; new attachments fail NotFound.
func Unlink(name string) error {
	return mapError(shm.Unlink(name))
}

func newStore(seg *shm.Segment) (store.IStore, error) {
	eng, err := engine.New(seg)
	if err != nil {
		_ = seg.Destroy()
		return nil, mapError(err)
	}
	return &storeImpl{seg: seg, engine: eng}, nil
}

// --------------------------------------------------------------------------
// Interface Methods (docu see store/interface.go)
// --------------------------------------------------------------------------

func (s *storeImpl) Put(key string, value []byte) error {
	eng, err := s.live()
	if err != nil {
		return err
	}
	return mapError(eng.Put(key, value))
}

func (s *storeImpl) Get(key string) ([]byte, int64, error) {
	eng, err := s.live()
	if err != nil {
		return nil, 0, err
	}
	value, stamp, err := eng.Get(key)
	return value, stamp, mapError(err)
}

func (s *storeImpl) Delete(key string) error {
	eng, err := s.live()
	if err != nil {
		return err
	}
	return mapError(eng.Delete(key))
}

func (s *storeImpl) Status() (store.Status, error) {
	eng, err := s.live()
	if err != nil {
		return store.Status{}, err
	}
	snap, err := eng.Status()
	if err != nil {
		return store.Status{}, mapError(err)
	}

	status := store.Status{
		Version:    snap.Version,
		EntryCount: snap.EntryCount,
		Capacity:   snap.Capacity,
		Entries:    make([]store.Entry, len(snap.Entries)),
	}
	for i, e := range snap.Entries {
		status.Entries[i] = store.Entry{Key: e.Key, Value: e.Value, Timestamp: e.Timestamp}
	}
	return status, nil
}

func (s *storeImpl) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.engine = nil
	return mapError(s.seg.Destroy())
}

// --------------------------------------------------------------------------
// Helpers
// --------------------------------------------------------------------------

// live returns the engine if the store is still attached. The engine holds
// a pointer into the mapping, so it must never be used past Close.
func (s *storeImpl) live() (*engine.Engine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.engine == nil {
		return nil, store.NewError(store.RetCNotInitialized, "store is not attached to a segment")
	}
	return s.engine, nil
}

// mapError translates the sentinel errors of the segment manager and the
// table engine into the typed codes of the binding contract.
func mapError(err error) error {
	if err == nil {
		return nil
	}

	code := store.RetCInternalError
	switch {
	case errors.Is(err, engine.ErrNotInitialized):
		code = store.RetCNotInitialized
	case errors.Is(err, engine.ErrEmptyKey):
		code = store.RetCEmptyKey
	case errors.Is(err, engine.ErrInvalidKey):
		code = store.RetCInvalidKey
	case errors.Is(err, engine.ErrKeyTooLong):
		code = store.RetCKeyTooLong
	case errors.Is(err, engine.ErrValueTooLong):
		code = store.RetCValueTooLong
	case errors.Is(err, engine.ErrNotFound), errors.Is(err, shm.ErrNotFound):
		code = store.RetCNotFound
	case errors.Is(err, engine.ErrStoreFull):
		code = store.RetCStoreFull
	case errors.Is(err, shm.ErrInvalidLayout):
		code = store.RetCInvalidLayout
	case errors.Is(err, shm.ErrResourceExhausted):
		code = store.RetCResourceExhausted
	case errors.Is(err, shm.ErrAlreadyExists):
		code = store.RetCAlreadyExists
	}
	return store.NewError(code, err.Error())
}
