package store

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/kilupskalvis/zcurate/internal/models"
)

// eventKey encodes a journal sequence number so keys sort numerically.
func eventKey(seq uint64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, seq)
	return k
}

// RecordCommit appends a buffer commit to the journal and bumps the owning
// session's commit count. Seq and a missing Timestamp are filled in.
func (s *Store) RecordCommit(ev *models.CommitEvent) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketEvents)
		seq, err := b.NextSequence()
		if err != nil {
			return fmt.Errorf("next event sequence: %w", err)
		}
		ev.Seq = seq
		if ev.Timestamp.IsZero() {
			ev.Timestamp = time.Now().UTC()
		}
		data, err := json.Marshal(ev)
		if err != nil {
			return fmt.Errorf("marshal event: %w", err)
		}
		if err := b.Put(eventKey(seq), data); err != nil {
			return err
		}

		if ev.SessionID != "" {
			info, err := getSession(tx, ev.SessionID)
			if err != nil {
				return err
			}
			info.CommitCount++
			if err := putSession(tx, info); err != nil {
				return err
			}
		}
		return incrementCounter(tx.Bucket(bucketCounters), counterCommitCount)
	})
}

// ListEvents returns journaled commits newest first. An empty sessionID lists
// every session; limit <= 0 means no limit.
func (s *Store) ListEvents(sessionID string, limit int) ([]*models.CommitEvent, error) {
	var events []*models.CommitEvent
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketEvents).Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			var ev models.CommitEvent
			if err := json.Unmarshal(v, &ev); err != nil {
				return fmt.Errorf("unmarshal event: %w", err)
			}
			if sessionID != "" && ev.SessionID != sessionID {
				continue
			}
			events = append(events, &ev)
			if limit > 0 && len(events) >= limit {
				break
			}
		}
		return nil
	})
	return events, err
}
