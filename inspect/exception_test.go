package inspect

import (
	"strings"
	"testing"

	"github.com/kevinboenisch/jpodbgr/wire"
)

func TestExceptionFitsWhole(t *testing.T) {
	resp := wire.New("DBG_EXCP", 64)
	if err := Exception(resp, "ValueError: bad thing"); err != nil {
		t.Fatalf("Exception: %v", err)
	}
	s, _, err := resp.ReadZString(0)
	if err != nil {
		t.Fatalf("ReadZString: %v", err)
	}
	if s != "ValueError: bad thing" {
		t.Fatalf("unexpected traceback: %q", s)
	}
}

func TestExceptionTruncatesToBudget(t *testing.T) {
	long := strings.Repeat("x", 500)
	resp := wire.New("DBG_EXCP", 32)
	if err := Exception(resp, long); err != nil {
		t.Fatalf("Exception: %v", err)
	}
	s, next, err := resp.ReadZString(0)
	if err != nil {
		t.Fatalf("ReadZString: %v", err)
	}
	if next != 32 {
		t.Fatalf("expected the payload to exactly fill the 32-byte budget, got %d", next)
	}
	if !strings.HasSuffix(s, "...") {
		t.Fatalf("expected a ... suffix, got %q", s)
	}
}
