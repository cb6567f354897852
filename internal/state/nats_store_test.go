package state

import (
	"context"
	"errors"
	"testing"

	"roadwatch/internal/domain"
	"roadwatch/test/testutil"
)

func TestNATSStoreSnapshotIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skip integration test in short mode")
	}

	url, stopNATS := testutil.StartLocalNATSServer(t)
	defer stopNATS()

	store, err := NewNATSStore(NATSSettings{
		URL:                []string{url},
		Bucket:             "notifications_test",
		Key:                "inbox",
		AllowCreateBuckets: true,
	})
	if err != nil {
		t.Fatalf("new nats store: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	if _, _, err := store.Load(ctx); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on empty bucket, got %v", err)
	}

	rev, err := store.Save(ctx, 0, []domain.Notification{note("n1", domain.NotificationEscalation, true)})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	items, gotRev, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if gotRev != rev || len(items) != 1 || items[0].ID != "n1" || !items[0].ActionRequired {
		t.Fatalf("unexpected snapshot: items=%+v rev=%d expected=%d", items, gotRev, rev)
	}

	if _, err := store.Save(ctx, rev+10, nil); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if _, err := store.Save(ctx, rev, nil); err != nil {
		t.Fatalf("cas save: %v", err)
	}
}
