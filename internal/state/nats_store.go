package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/nats-io/nats.go"

	"roadwatch/internal/domain"
)

// NATSSettings selects KV bucket and key for notification snapshots.
type NATSSettings struct {
	URL                []string
	Bucket             string
	Key                string
	AllowCreateBuckets bool
}

// NATSStore persists notification snapshots in a JetStream KV bucket.
// Params: NATS connection and KV bucket handle.
// Returns: KV-backed snapshot store implementation.
type NATSStore struct {
	nc  *nats.Conn
	kv  nats.KeyValue
	key string
}

// snapshotDoc is persisted KV value shape.
type snapshotDoc struct {
	Notifications []domain.Notification `json:"notifications"`
}

// NewNATSStore opens or creates KV bucket and returns snapshot backend.
// Params: NATS URLs, bucket, key, and bucket creation policy.
// Returns: initialized NATS store or setup error.
func NewNATSStore(settings NATSSettings) (*NATSStore, error) {
	nc, err := nats.Connect(strings.Join(settings.URL, ","), nats.Name("roadwatch-notifications"))
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream init: %w", err)
	}

	kv, err := js.KeyValue(settings.Bucket)
	if err != nil {
		if !settings.AllowCreateBuckets {
			nc.Close()
			return nil, fmt.Errorf("open notification bucket %q: %w", settings.Bucket, err)
		}
		kv, err = js.CreateKeyValue(&nats.KeyValueConfig{
			Bucket:      settings.Bucket,
			Description: "roadwatch in-app notifications",
			History:     1,
		})
		if err != nil {
			nc.Close()
			return nil, fmt.Errorf("create notification bucket %q: %w", settings.Bucket, err)
		}
	}

	return &NATSStore{nc: nc, kv: kv, key: settings.Key}, nil
}

// Load reads persisted snapshot and its KV revision.
// Params: context is unused by the KV client.
// Returns: snapshot, revision, or ErrNotFound.
func (s *NATSStore) Load(context.Context) ([]domain.Notification, uint64, error) {
	entry, err := s.kv.Get(s.key)
	if err != nil {
		if errors.Is(err, nats.ErrKeyNotFound) {
			return nil, 0, ErrNotFound
		}
		return nil, 0, fmt.Errorf("get snapshot: %w", err)
	}

	var doc snapshotDoc
	if err := json.Unmarshal(entry.Value(), &doc); err != nil {
		return nil, 0, fmt.Errorf("decode snapshot: %w", err)
	}
	return doc.Notifications, entry.Revision(), nil
}

// Save writes snapshot; non-zero expected revision uses KV CAS update.
// Params: expected revision and newest-first snapshot.
// Returns: new KV revision or ErrConflict.
func (s *NATSStore) Save(_ context.Context, expectedRevision uint64, items []domain.Notification) (uint64, error) {
	if items == nil {
		items = []domain.Notification{}
	}
	body, err := json.Marshal(snapshotDoc{Notifications: items})
	if err != nil {
		return 0, fmt.Errorf("encode snapshot: %w", err)
	}
	if expectedRevision == 0 {
		rev, err := s.kv.Put(s.key, body)
		if err != nil {
			return 0, fmt.Errorf("put snapshot: %w", err)
		}
		return rev, nil
	}
	rev, err := s.kv.Update(s.key, body, expectedRevision)
	if err != nil {
		if errors.Is(err, nats.ErrKeyExists) || strings.Contains(strings.ToLower(err.Error()), "wrong last sequence") {
			return 0, ErrConflict
		}
		return 0, fmt.Errorf("update snapshot: %w", err)
	}
	return rev, nil
}

// Close closes underlying NATS connection.
func (s *NATSStore) Close() error {
	s.nc.Close()
	return nil
}
