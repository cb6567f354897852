package permanent

import (
	"errors"
	"fmt"
	"testing"
)

func TestMarkAndIs(t *testing.T) {
	t.Parallel()

	root := errors.New("bad recipient")
	marked := fmt.Errorf("email send: %w", Mark(root))
	if !Is(marked) {
		t.Fatalf("wrapped permanent error must be detected")
	}
	if !errors.Is(marked, root) {
		t.Fatalf("root cause must stay reachable")
	}
	if Is(root) || Is(nil) || Mark(nil) != nil {
		t.Fatalf("unmarked and nil errors must not be permanent")
	}
}

func TestHTTPStatusClassification(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status    int
		permanent bool
	}{
		{400, true},
		{404, true},
		{408, false},
		{409, false},
		{429, false},
		{500, false},
		{503, false},
	}
	for _, tt := range tests {
		if got := Is(HTTPStatus("webhook", tt.status, "")); got != tt.permanent {
			t.Fatalf("status %d: permanent=%v want %v", tt.status, got, tt.permanent)
		}
	}
	if err := HTTPStatus("webhook", 400, "nope"); err.Error() != "webhook status=400 body=nope" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}
