package datacenter

import (
	"context"
	"testing"
	"time"

	"fieldcollector/internal/point"
)

func TestIngestStoresLatestValue(t *testing.T) {
	t.Parallel()
	c := New()
	if snap := c.Snapshot("BCU"); snap != nil {
		t.Fatalf("expected no snapshot before ingest, got %v", snap)
	}
	c.Ingest("BCU", []Entry{{Key: "SOH", Value: point.Val{Kind: point.F32, F32: 100.0}}})
	snap := c.Snapshot("BCU")
	if len(snap) != 1 || snap[0].Value.F32 != 100.0 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
}

func TestIngestSkipsUnchangedValue(t *testing.T) {
	t.Parallel()
	c := New()
	var seen int
	c.Subscribe(func(dev string, e Entry) { seen++ })
	c.Ingest("BCU", []Entry{{Key: "SOH", Value: point.Val{Kind: point.F32, F32: 100.0}}})
	c.Ingest("BCU", []Entry{{Key: "SOH", Value: point.Val{Kind: point.F32, F32: 100.0}}})
	if seen != 1 {
		t.Fatalf("expected exactly 1 notification for unchanged repeats, got %d", seen)
	}
	c.Ingest("BCU", []Entry{{Key: "SOH", Value: point.Val{Kind: point.F32, F32: 101.0}}})
	if seen != 2 {
		t.Fatalf("expected a notification for a changed value, got %d", seen)
	}
}

func TestDispatchRoundTrip(t *testing.T) {
	t.Parallel()
	c := New()
	if snap := c.Snapshot("BCU"); snap != nil {
		t.Fatalf("expected no snapshot before ingest, got %v", snap)
	}

	ch, err := c.Attach("BCU", 1)
	if err != nil {
		t.Fatalf("attach: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := c.Dispatch(ctx, "BCU", []Entry{{Key: "SOC", Value: point.Val{Kind: point.F32, F32: 84.3}}}); err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	c.Ingest("BCU", []Entry{{Key: "SOH", Value: point.Val{Kind: point.F32, F32: 100.0}}})
	snap := c.Snapshot("BCU")
	if len(snap) != 1 || snap[0].Value.F32 != 100.0 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}

	select {
	case msg := <-ch:
		if len(msg) != 1 || msg[0].Value.F32 != 84.3 {
			t.Fatalf("unexpected dispatched message: %+v", msg)
		}
	default:
		t.Fatal("expected a message on the downlink channel")
	}

	c.Detach("BCU")
	if err := c.Dispatch(ctx, "BCU", nil); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound after detach, got %v", err)
	}
}

func TestAttachRejectsDoubleRegistration(t *testing.T) {
	t.Parallel()
	c := New()
	if _, err := c.Attach("BCU", 1); err != nil {
		t.Fatalf("attach: %v", err)
	}
	if _, err := c.Attach("BCU", 1); err != ErrAlreadyRegistered {
		t.Fatalf("expected ErrAlreadyRegistered, got %v", err)
	}
}
