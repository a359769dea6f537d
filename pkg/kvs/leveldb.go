package kvs

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/syndtr/goleveldb/leveldb"
	lderrors "github.com/syndtr/goleveldb/leveldb/errors"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// LevelDBStore persists entries on disk. Each namespace lives in its own
// database directory.
//
// Values are stored as an 8-byte big-endian expiry (unix nanoseconds, 0 for
// none) followed by the payload.
type LevelDBStore struct {
	db        *leveldb.DB
	path      string
	syncWrite bool

	// Operations hold mu for reading; Take and Close hold it exclusively.
	mu     sync.RWMutex
	closed bool
	stop   chan struct{}
	done   chan struct{}
}

// NewLevelDBStore opens (or creates) the database for namespace.
func NewLevelDBStore(namespace string, cfg LevelDBConfig) (*LevelDBStore, error) {
	root := cfg.Path
	if root == "" {
		base, err := os.UserCacheDir()
		if err != nil {
			base = os.TempDir()
		}
		root = filepath.Join(base, "wunderlist-login")
	}

	dbPath := root
	if namespace != "" {
		dbPath = filepath.Join(root, sanitizeDirName(namespace))
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("kvs/leveldb: failed to create directory: %w", err)
	}

	db, err := leveldb.OpenFile(dbPath, &opt.Options{NoSync: !cfg.SyncWrites})
	if err != nil {
		var corrupted *lderrors.ErrCorrupted
		if errors.As(err, &corrupted) {
			db, err = leveldb.RecoverFile(dbPath, nil)
		}
		if err != nil {
			return nil, fmt.Errorf("kvs/leveldb: failed to open database at %s: %w", dbPath, err)
		}
	}

	interval := cfg.CleanupInterval
	if interval <= 0 {
		interval = defaultCleanupInterval
	}

	s := &LevelDBStore{
		db:        db,
		path:      dbPath,
		syncWrite: cfg.SyncWrites,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	go s.purgeLoop(interval)
	return s, nil
}

// Path returns the database directory
func (s *LevelDBStore) Path() string {
	return s.path
}

func sanitizeDirName(name string) string {
	return strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			return r
		}
		return '-'
	}, name)
}

func encodeEntry(value []byte, ttl time.Duration) []byte {
	var expiresAt int64
	if ttl > 0 {
		expiresAt = time.Now().Add(ttl).UnixNano()
	}
	buf := make([]byte, 8+len(value))
	binary.BigEndian.PutUint64(buf[:8], uint64(expiresAt))
	copy(buf[8:], value)
	return buf
}

// decodeEntry returns the payload and whether it is still live.
func decodeEntry(buf []byte, now time.Time) ([]byte, bool, error) {
	if len(buf) < 8 {
		return nil, false, errors.New("kvs/leveldb: corrupt entry")
	}
	expiresAt := int64(binary.BigEndian.Uint64(buf[:8]))
	if expiresAt > 0 && now.UnixNano() > expiresAt {
		return nil, false, nil
	}
	return buf[8:], true, nil
}

func (s *LevelDBStore) writeOptions() *opt.WriteOptions {
	return &opt.WriteOptions{Sync: s.syncWrite}
}

// get reads a live entry. Callers hold s.mu.
func (s *LevelDBStore) get(key string) ([]byte, error) {
	buf, err := s.db.Get([]byte(key), nil)
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("kvs/leveldb: get failed: %w", err)
	}

	value, live, err := decodeEntry(buf, time.Now())
	if err != nil {
		return nil, err
	}
	if !live {
		return nil, ErrNotFound
	}
	return value, nil
}

func (s *LevelDBStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	return s.get(key)
}

func (s *LevelDBStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}

	if err := s.db.Put([]byte(key), encodeEntry(value, ttl), s.writeOptions()); err != nil {
		return fmt.Errorf("kvs/leveldb: set failed: %w", err)
	}
	return nil
}

func (s *LevelDBStore) Take(ctx context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}

	value, err := s.get(key)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	if delErr := s.db.Delete([]byte(key), s.writeOptions()); delErr != nil {
		return nil, fmt.Errorf("kvs/leveldb: delete failed: %w", delErr)
	}
	if err != nil {
		return nil, err
	}
	return value, nil
}

func (s *LevelDBStore) Delete(ctx context.Context, key string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}

	if err := s.db.Delete([]byte(key), s.writeOptions()); err != nil {
		return fmt.Errorf("kvs/leveldb: delete failed: %w", err)
	}
	return nil
}

func (s *LevelDBStore) Exists(ctx context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return false, ErrClosed
	}

	_, err := s.get(key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (s *LevelDBStore) List(ctx context.Context, prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}

	iter := s.db.NewIterator(util.BytesPrefix([]byte(prefix)), nil)
	defer iter.Release()

	now := time.Now()
	var keys []string
	for iter.Next() {
		if _, live, err := decodeEntry(iter.Value(), now); err == nil && live {
			keys = append(keys, string(iter.Key()))
		}
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("kvs/leveldb: iteration failed: %w", err)
	}
	return keys, nil
}

// Close stops the cleanup goroutine and closes the database.
func (s *LevelDBStore) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.closed = true
	s.mu.Unlock()

	close(s.stop)
	<-s.done

	if err := s.db.Close(); err != nil {
		return fmt.Errorf("kvs/leveldb: close failed: %w", err)
	}
	return nil
}

func (s *LevelDBStore) purgeLoop(interval time.Duration) {
	defer close(s.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.purge()
		case <-s.stop:
			return
		}
	}
}

// purge deletes expired entries in one batch
func (s *LevelDBStore) purge() {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return
	}

	iter := s.db.NewIterator(nil, nil)
	now := time.Now()
	batch := new(leveldb.Batch)
	for iter.Next() {
		if _, live, err := decodeEntry(iter.Value(), now); err == nil && !live {
			batch.Delete(append([]byte(nil), iter.Key()...))
		}
	}
	iter.Release()

	if batch.Len() > 0 {
		_ = s.db.Write(batch, nil)
	}
}
