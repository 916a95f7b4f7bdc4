package reqid

import (
	"context"
	"testing"

	"github.com/google/uuid"
)

func TestContextRoundTrip(t *testing.T) {
	ctx, id := NewContext(context.Background())
	got, ok := FromContext(ctx)
	if !ok || got != id {
		t.Fatalf("expected %s from context, got %s ok=%v", id, got, ok)
	}
	if _, err := uuid.Parse(id); err != nil {
		t.Fatalf("id is not a UUID: %v", err)
	}
	if _, ok := FromContext(context.Background()); ok {
		t.Fatalf("unexpected id in empty context")
	}
}

func TestEnsureKeepsExistingID(t *testing.T) {
	ctx, id := NewContext(context.Background())
	same, got := Ensure(ctx)
	if got != id || same != ctx {
		t.Fatalf("Ensure replaced existing id %s with %s", id, got)
	}
	_, fresh := Ensure(context.Background())
	if fresh == "" {
		t.Fatalf("Ensure did not create an id")
	}
}
