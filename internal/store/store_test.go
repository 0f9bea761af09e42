package store

import (
	"path/filepath"
	"testing"

	"fieldcollector/internal/datacenter"
	"fieldcollector/internal/point"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "store.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSubscriberPersistsIngestedEntries(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	sub := s.Subscriber()

	sub("dev-1", datacenter.Entry{Key: "temp", Value: point.Val{Kind: point.U32, U32: 21}})
	sub("dev-1", datacenter.Entry{Key: "pressure", Value: point.Val{Kind: point.U32, U32: 7}})

	devices, err := s.ListDevices()
	if err != nil {
		t.Fatalf("list devices: %v", err)
	}
	if len(devices) != 1 || devices[0].DeviceID != "dev-1" {
		t.Fatalf("unexpected devices: %+v", devices)
	}

	latest, err := s.LatestPoints("dev-1")
	if err != nil {
		t.Fatalf("latest points: %v", err)
	}
	if len(latest) != 2 {
		t.Fatalf("expected 2 latest points, got %d", len(latest))
	}
}

func TestLatestPointsReturnsMostRecentValue(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	sub := s.Subscriber()

	sub("dev-2", datacenter.Entry{Key: "temp", Value: point.Val{Kind: point.U32, U32: 1}})
	sub("dev-2", datacenter.Entry{Key: "temp", Value: point.Val{Kind: point.U32, U32: 2}})

	latest, err := s.LatestPoints("dev-2")
	if err != nil {
		t.Fatalf("latest points: %v", err)
	}
	if len(latest) != 1 {
		t.Fatalf("expected 1 distinct point, got %d", len(latest))
	}
	if latest[0].Value != 2 {
		t.Fatalf("expected most recent value 2, got %v", latest[0].Value)
	}
}

func TestStatsJSONCountsRows(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	sub := s.Subscriber()
	sub("dev-3", datacenter.Entry{Key: "a", Value: point.Val{Kind: point.U32, U32: 1}})
	sub("dev-3", datacenter.Entry{Key: "b", Value: point.Val{Kind: point.U32, U32: 2}})

	raw, err := s.StatsJSON()
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if len(raw) == 0 {
		t.Fatal("expected non-empty stats JSON")
	}
}
