package wire

import "testing"

func TestTagPadding(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"DBG_STRT", "DBG_STRT"},
		{"ab", "ab      "},
	}
	for _, c := range cases {
		got := NewTag(c.in).String()
		if got != c.want {
			t.Errorf("NewTag(%q).String() = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestAppendAndReadRoundTrip(t *testing.T) {
	f := New("DBG_STAC", 64)
	if err := f.AppendZString("main.py"); err != nil {
		t.Fatalf("AppendZString: %v", err)
	}
	if err := f.AppendUint32(42); err != nil {
		t.Fatalf("AppendUint32: %v", err)
	}

	name, next, err := f.ReadZString(0)
	if err != nil || name != "main.py" {
		t.Fatalf("ReadZString: %q, %v", name, err)
	}
	v, err := f.ReadUint32(next)
	if err != nil || v != 42 {
		t.Fatalf("ReadUint32: %d, %v", v, err)
	}
}

func TestAppendBufferFull(t *testing.T) {
	f := New("DBG_VARS", 8)
	if err := f.AppendZString("0123456"); err != nil {
		t.Fatalf("first append should fit: %v", err)
	}
	if err := f.AppendByte('x'); err != ErrBufferFull {
		t.Fatalf("want ErrBufferFull, got %v", err)
	}
}

func TestEndTokenOmittedWhenNoRoom(t *testing.T) {
	f := New("DBG_STAC", EndTokenSize-1)
	if f.AppendEndToken() {
		t.Fatalf("end token should not have fit in %d bytes", f.max)
	}
	if len(f.Payload) != 0 {
		t.Fatalf("payload should be untouched on a failed end-token append, got %v", f.Payload)
	}
}

func TestEndTokenAppendedWhenRoomExists(t *testing.T) {
	f := New("DBG_STAC", EndTokenSize)
	if !f.AppendEndToken() {
		t.Fatalf("end token should fit exactly")
	}
	got, _, err := f.ReadZString(0)
	if err != nil || got != EndToken {
		t.Fatalf("ReadZString = %q, %v", got, err)
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	f := NewResponse("DBG_DONE", 7, 32)
	_ = f.AppendUint32(0)
	raw := f.Encode()

	got, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.ID != 7 || got.Tag.String() != "DBG_DONE" {
		t.Fatalf("got id=%d tag=%q", got.ID, got.Tag.String())
	}
	v, err := got.ReadUint32(0)
	if err != nil || v != 0 {
		t.Fatalf("ReadUint32 after decode: %d, %v", v, err)
	}
}

func TestFindByte(t *testing.T) {
	f := New("DBG_BRKP", 32)
	_ = f.AppendRawString("prog")
	_ = f.AppendByte(0)
	_ = f.AppendUint32(10)

	idx := f.FindByte(0, 0)
	if idx != 4 {
		t.Fatalf("FindByte = %d, want 4", idx)
	}
	// The u32 line 10 is encoded 0A 00 00 00, so the next NUL after
	// the terminator is its second byte, at offset 6.
	if got := f.FindByte(5, 0); got != 6 {
		t.Fatalf("FindByte(5, 0) = %d, want 6", got)
	}
}
