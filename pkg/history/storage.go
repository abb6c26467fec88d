package history

import (
	"encoding/json"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/vango-dev/navigare/internal/errors"
)

// RedirectKey is the storage key of the redirect marker.
const RedirectKey = "navigareRedirect"

// RedirectMarker survives a full page redirect and tells the next document
// how to resume.
type RedirectMarker struct {
	PreserveScroll bool `json:"preserveScroll"`
}

// Storage is session-scoped key/value storage.
type Storage interface {
	Get(key string) (value []byte, ok bool, err error)
	Set(key string, value []byte) error
	Delete(key string) error
}

// MemoryStorage is a map-backed Storage.
type MemoryStorage struct {
	mu   sync.Mutex
	data map[string][]byte
}

// NewMemoryStorage returns an empty MemoryStorage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{data: make(map[string][]byte)}
}

func (s *MemoryStorage) Get(key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	return append([]byte(nil), v...), ok, nil
}

func (s *MemoryStorage) Set(key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = append([]byte(nil), value...)
	return nil
}

func (s *MemoryStorage) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

const bucketSession = "session"

// BoltStorage persists session storage in a bbolt database.
type BoltStorage struct {
	db *bolt.DB
}

// OpenBolt opens or creates the database at path.
func OpenBolt(path string) (*BoltStorage, error) {
	db, err := bolt.Open(path, 0644, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, errors.New("N030").WithDetail(path).Wrap(err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketSession))
		return err
	})
	if err != nil {
		db.Close()
		return nil, errors.New("N030").WithDetail("initialize session bucket").Wrap(err)
	}
	return &BoltStorage{db: db}, nil
}

func (s *BoltStorage) Get(key string) ([]byte, bool, error) {
	var value []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket([]byte(bucketSession)).Get([]byte(key))
		if v != nil {
			value = append([]byte{}, v...)
		}
		return nil
	})
	if err != nil {
		return nil, false, errors.New("N030").Wrap(err)
	}
	return value, value != nil, nil
}

func (s *BoltStorage) Set(key string, value []byte) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketSession)).Put([]byte(key), value)
	})
	if err != nil {
		return errors.New("N030").Wrap(err)
	}
	return nil
}

func (s *BoltStorage) Delete(key string) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketSession)).Delete([]byte(key))
	})
	if err != nil {
		return errors.New("N030").Wrap(err)
	}
	return nil
}

// Close closes the database.
func (s *BoltStorage) Close() error {
	return s.db.Close()
}

func readMarker(s Storage) (RedirectMarker, bool, error) {
	raw, ok, err := s.Get(RedirectKey)
	if err != nil || !ok {
		return RedirectMarker{}, false, err
	}
	var m RedirectMarker
	if err := json.Unmarshal(raw, &m); err != nil {
		return RedirectMarker{}, false, errors.New("N030").WithDetail("redirect marker").Wrap(err)
	}
	return m, true, nil
}

var (
	_ Storage = (*MemoryStorage)(nil)
	_ Storage = (*BoltStorage)(nil)
)
