// Package boltdb implements storage.StateStore on top of a bbolt file.
package boltdb

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"pricebot/internal/models"
	"pricebot/internal/storage"
)

var (
	sessionsBucketName  = []byte("sessions")
	questionsBucketName = []byte("questions")
	updatesBucketName   = []byte("updates")
)

// MaxTrackedUpdates bounds the idempotence window. Update ids grow monotonically,
// so ids more than MaxTrackedUpdates behind the newest one are forgotten.
const MaxTrackedUpdates = 10000

var _ storage.StateStore = (*Store)(nil)

// Store is a bbolt backed state store
type Store struct {
	db *bolt.DB
}

// Open opens (or creates) the database file at path and prepares the buckets
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open state db %s: %w", path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{sessionsBucketName, questionsBucketName, updatesBucketName} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create buckets: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) SaveSession(ctx context.Context, sess models.Session) error {
	raw, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(sessionsBucketName).Put(itob(sess.UserID), raw)
	})
}

func (s *Store) LoadSessions(ctx context.Context) ([]models.Session, error) {
	var sessions []models.Session

	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(sessionsBucketName).ForEach(func(k, v []byte) error {
			var sess models.Session
			if err := json.Unmarshal(v, &sess); err != nil {
				return fmt.Errorf("failed to unmarshal session %d: %w", btoi(k), err)
			}
			sessions = append(sessions, sess)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	return sessions, nil
}

func (s *Store) SaveQuestion(ctx context.Context, q models.PendingQuestion) error {
	raw, err := json.Marshal(q)
	if err != nil {
		return fmt.Errorf("failed to marshal question: %w", err)
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(questionsBucketName).Put(itob(int64(q.RelayMessageID)), raw)
	})
}

func (s *Store) DeleteQuestion(ctx context.Context, relayMessageID int) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(questionsBucketName)
		key := itob(int64(relayMessageID))
		if bucket.Get(key) == nil {
			return storage.ErrNotFound
		}
		return bucket.Delete(key)
	})
}

func (s *Store) LoadQuestions(ctx context.Context) ([]models.PendingQuestion, error) {
	var questions []models.PendingQuestion

	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(questionsBucketName).ForEach(func(k, v []byte) error {
			var q models.PendingQuestion
			if err := json.Unmarshal(v, &q); err != nil {
				return fmt.Errorf("failed to unmarshal question %d: %w", btoi(k), err)
			}
			questions = append(questions, q)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	return questions, nil
}

func (s *Store) MarkUpdate(ctx context.Context, updateID int) (fresh bool, err error) {
	err = s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(updatesBucketName)
		key := itob(int64(updateID))
		if bucket.Get(key) != nil {
			fresh = false
			return nil
		}

		if err := bucket.Put(key, []byte{}); err != nil {
			return err
		}
		fresh = true

		var stale [][]byte
		cutoff := int64(updateID) - MaxTrackedUpdates
		c := bucket.Cursor()
		for k, _ := c.First(); k != nil && btoi(k) <= cutoff; k, _ = c.Next() {
			stale = append(stale, append([]byte(nil), k...))
		}
		for _, k := range stale {
			if err := bucket.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
	return
}

func (s *Store) Close() error {
	return s.db.Close()
}

func itob(v int64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(v))
	return b
}

func btoi(b []byte) int64 {
	return int64(binary.BigEndian.Uint64(b))
}
