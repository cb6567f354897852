package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestDeliveryAttemptsCountsByLabel(t *testing.T) {
	before := testutil.ToFloat64(DeliveryAttempts.WithLabelValues("test-channel", "success"))
	DeliveryAttempts.WithLabelValues("test-channel", "success").Inc()
	DeliveryAttempts.WithLabelValues("test-channel", "failed").Inc()

	if got := testutil.ToFloat64(DeliveryAttempts.WithLabelValues("test-channel", "success")); got != before+1 {
		t.Fatalf("expected %v, got %v", before+1, got)
	}
}

func TestStoreGauges(t *testing.T) {
	NotificationsStored.Set(4)
	NotificationsUnread.Set(2)

	if got := testutil.ToFloat64(NotificationsStored); got != 4 {
		t.Fatalf("stored=%v", got)
	}
	if got := testutil.ToFloat64(NotificationsUnread); got != 2 {
		t.Fatalf("unread=%v", got)
	}
}

func TestEscalationSkippedIncrements(t *testing.T) {
	before := testutil.ToFloat64(EscalationSkipped)
	EscalationSkipped.Add(3)
	if got := testutil.ToFloat64(EscalationSkipped); got != before+3 {
		t.Fatalf("expected %v, got %v", before+3, got)
	}
}
