package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeProject(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "project.json")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write project: %v", err)
	}
	return path
}

func TestLoadStripsBOM(t *testing.T) {
	t.Parallel()
	body := "\xEF\xBB\xBF  {\"productType\":\"p\",\"devices\":{}}"
	path := writeProject(t, body)
	p, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if p.ProductType != "p" {
		t.Fatalf("unexpected product type: %q", p.ProductType)
	}
}

func TestToModbusTCPValidatesIP(t *testing.T) {
	t.Parallel()
	slave := uint8(1)
	port := uint16(502)
	interval := uint64(1000)
	timeout := uint64(500)
	badIP := "not-an-ip"
	dc := DeviceConfig{Slave: &slave, IP: &badIP, Port: &port, Interval: &interval, Timeout: &timeout}
	if _, err := dc.ToModbusTCP(); !errors.Is(err, ErrInvalidIP) {
		t.Fatalf("expected ErrInvalidIP, got %v", err)
	}

	goodIP := "192.168.1.10"
	dc.IP = &goodIP
	cfg, err := dc.ToModbusTCP()
	if err != nil {
		t.Fatalf("ToModbusTCP: %v", err)
	}
	if cfg.IP != goodIP || cfg.Port != 502 {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestToModbusTCPRequiresFields(t *testing.T) {
	t.Parallel()
	dc := DeviceConfig{}
	if _, err := dc.ToModbusTCP(); !errors.Is(err, ErrMissingField) {
		t.Fatalf("expected ErrMissingField, got %v", err)
	}
}
