package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"

	"github.com/kilupskalvis/zcurate/internal/models"
)

const (
	// sessionByBufferPrefix maps a buffer path to its session id in the kv bucket
	sessionByBufferPrefix = "session_for:"
	keyLastSession        = "last_session"
)

// CreateSession registers a new review session for a buffer, replacing any
// earlier session registered for the same buffer.
func (s *Store) CreateSession(bufferPath, mode string, reviewSet []int64) (*models.SessionInfo, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate session id: %w", err)
	}
	now := time.Now().UTC()
	info := &models.SessionInfo{
		ID:         id.String(),
		BufferPath: bufferPath,
		Mode:       mode,
		CreatedAt:  now,
		LastOpened: now,
		ReviewSet:  append([]int64(nil), reviewSet...),
	}

	err = s.db.Update(func(tx *bolt.Tx) error {
		if err := putSession(tx, info); err != nil {
			return err
		}
		kv := tx.Bucket(bucketKV)
		if err := kv.Put([]byte(sessionByBufferPrefix+bufferPath), []byte(info.ID)); err != nil {
			return err
		}
		return kv.Put([]byte(keyLastSession), []byte(info.ID))
	})
	if err != nil {
		return nil, err
	}
	return info, nil
}

// GetSession retrieves a session by ID or unique ID prefix.
func (s *Store) GetSession(id string) (*models.SessionInfo, error) {
	var info *models.SessionInfo
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSessions)
		if data := b.Get([]byte(id)); data != nil {
			info = &models.SessionInfo{}
			return json.Unmarshal(data, info)
		}

		// short id lookup
		c := b.Cursor()
		prefix := []byte(id)
		for k, v := c.Seek(prefix); k != nil && len(k) >= len(prefix) && string(k[:len(prefix)]) == id; k, v = c.Next() {
			if info != nil {
				return fmt.Errorf("session id %s is ambiguous", id)
			}
			info = &models.SessionInfo{}
			if err := json.Unmarshal(v, info); err != nil {
				return fmt.Errorf("unmarshal session: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if info == nil {
		return nil, fmt.Errorf("session %s not found", id)
	}
	return info, nil
}

// GetSessionByBuffer returns the session registered for a buffer, or nil.
func (s *Store) GetSessionByBuffer(bufferPath string) (*models.SessionInfo, error) {
	id, err := s.GetValue(sessionByBufferPrefix + bufferPath)
	if err != nil || id == "" {
		return nil, err
	}
	return s.GetSession(id)
}

// LastSession returns the most recently opened session, or nil.
func (s *Store) LastSession() (*models.SessionInfo, error) {
	id, err := s.GetValue(keyLastSession)
	if err != nil || id == "" {
		return nil, err
	}
	return s.GetSession(id)
}

// TouchSession records that a session was reopened.
func (s *Store) TouchSession(id, mode string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		info, err := getSession(tx, id)
		if err != nil {
			return err
		}
		info.LastOpened = time.Now().UTC()
		info.Mode = mode
		if err := putSession(tx, info); err != nil {
			return err
		}
		return tx.Bucket(bucketKV).Put([]byte(keyLastSession), []byte(id))
	})
}

// ListSessions returns all sessions, oldest first.
func (s *Store) ListSessions() ([]*models.SessionInfo, error) {
	var sessions []*models.SessionInfo
	err := s.db.View(func(tx *bolt.Tx) error {
		// v7 ids sort by creation time
		return tx.Bucket(bucketSessions).ForEach(func(k, v []byte) error {
			var info models.SessionInfo
			if err := json.Unmarshal(v, &info); err != nil {
				return fmt.Errorf("unmarshal session %s: %w", k, err)
			}
			sessions = append(sessions, &info)
			return nil
		})
	})
	return sessions, err
}

func getSession(tx *bolt.Tx, id string) (*models.SessionInfo, error) {
	data := tx.Bucket(bucketSessions).Get([]byte(id))
	if data == nil {
		return nil, fmt.Errorf("session %s not found", id)
	}
	var info models.SessionInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return &info, nil
}

func putSession(tx *bolt.Tx, info *models.SessionInfo) error {
	data, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	return tx.Bucket(bucketSessions).Put([]byte(info.ID), data)
}
