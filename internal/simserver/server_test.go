package simserver

import (
	"testing"

	mb "github.com/goburrow/modbus"
)

func startTestServer(t *testing.T) (*Server, string) {
	t.Helper()
	srv := NewServer()
	if err := srv.Listen("127.0.0.1:0"); err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(srv.Close)
	return srv, srv.Addr().String()
}

func TestServerReadWriteHoldingRegister(t *testing.T) {
	t.Parallel()
	srv, addr := startTestServer(t)
	if err := srv.SetHoldingRegister(10, 42); err != nil {
		t.Fatalf("seed: %v", err)
	}

	handler := mb.NewTCPClientHandler(addr)
	if err := handler.Connect(); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer handler.Close()
	client := mb.NewClient(handler)

	got, err := client.ReadHoldingRegisters(10, 1)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got) != 2 || got[0] != 0 || got[1] != 42 {
		t.Fatalf("unexpected read result: %v", got)
	}

	if _, err := client.WriteSingleRegister(11, 7); err != nil {
		t.Fatalf("write single register: %v", err)
	}
	stored, err := srv.GetHoldingRegister(11)
	if err != nil || stored != 7 {
		t.Fatalf("expected register 11 == 7, got %d err=%v", stored, err)
	}

	if _, err := client.WriteMultipleRegisters(20, 2, []byte{0, 1, 0, 2}); err != nil {
		t.Fatalf("write multiple registers: %v", err)
	}
	v0, _ := srv.GetHoldingRegister(20)
	v1, _ := srv.GetHoldingRegister(21)
	if v0 != 1 || v1 != 2 {
		t.Fatalf("expected [1,2], got [%d,%d]", v0, v1)
	}
}

func TestServerWriteCoils(t *testing.T) {
	t.Parallel()
	srv, addr := startTestServer(t)

	handler := mb.NewTCPClientHandler(addr)
	if err := handler.Connect(); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer handler.Close()
	client := mb.NewClient(handler)

	if _, err := client.WriteSingleCoil(5, 0xFF00); err != nil {
		t.Fatalf("write single coil: %v", err)
	}
	on, err := srv.GetCoil(5)
	if err != nil || !on {
		t.Fatalf("expected coil 5 on, got %v err=%v", on, err)
	}

	if _, err := client.WriteMultipleCoils(8, 3, []byte{0b101}); err != nil {
		t.Fatalf("write multiple coils: %v", err)
	}
	c0, _ := srv.GetCoil(8)
	c1, _ := srv.GetCoil(9)
	c2, _ := srv.GetCoil(10)
	if !c0 || c1 || !c2 {
		t.Fatalf("expected coils [true,false,true], got [%v,%v,%v]", c0, c1, c2)
	}
}

func TestServerReadOutOfRangeReturnsException(t *testing.T) {
	t.Parallel()
	_, addr := startTestServer(t)

	handler := mb.NewTCPClientHandler(addr)
	if err := handler.Connect(); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer handler.Close()
	client := mb.NewClient(handler)

	if _, err := client.ReadHoldingRegisters(0, 0); err == nil {
		t.Fatal("expected error for zero quantity read")
	}
}
