package transport

import (
	"errors"
	"testing"
	"time"

	"github.com/kevinboenisch/jpodbgr/wire"
)

func TestPipeRoundTrip(t *testing.T) {
	a, b := Pipe()

	f := wire.New("DBG_STRT", 32)
	if err := f.AppendUint32(42); err != nil {
		t.Fatal(err)
	}

	errCh := make(chan error, 1)
	go func() { errCh <- a.Send(f) }()

	got, err := b.Receive(time.Second)
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if err := <-errCh; err != nil {
		t.Fatalf("Send: %v", err)
	}

	if !got.HasTag("DBG_STRT") {
		t.Fatalf("unexpected tag: %q", got.Tag.String())
	}
	v, err := got.ReadUint32(0)
	if err != nil || v != 42 {
		t.Fatalf("unexpected payload: v=%d err=%v", v, err)
	}
}

func TestPipeReceiveTimesOut(t *testing.T) {
	_, b := Pipe()
	_, err := b.Receive(20 * time.Millisecond)
	if !errors.Is(err, wire.ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
}
