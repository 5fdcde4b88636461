package types

import (
	"errors"
	"testing"
)

func TestComponentID_Packing(t *testing.T) {
	id := ClassIPC.Component(0x05)
	if uint32(id) != 0x02000005 {
		t.Fatalf("id = %#x", uint32(id))
	}
	if id.Class() != ClassIPC || id.Code() != 0x05 {
		t.Fatalf("class %v code %#x", id.Class(), id.Code())
	}
	if ClassCPU.Component(0xff123456).Code() != 0x123456 {
		t.Fatal("code wider than 24 bits not truncated")
	}
}

func TestClass_Names(t *testing.T) {
	tests := []struct {
		in   string
		want Class
	}{
		{"ipc", ClassIPC},
		{"IRQ", ClassIRQ},
		{"eq-fir", ClassEQFIR},
		{"EQ_IIR", ClassEQIIR},
		{"cpu", ClassCPU},
		{"none", ClassNone},
	}
	for _, tt := range tests {
		got, err := ParseClass(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("ParseClass(%q) = %v, %v", tt.in, got, err)
		}
	}
	if _, err := ParseClass("gpu"); err == nil {
		t.Error("unknown class accepted")
	}
	if ClassEQFIR.String() != "EQ_FIR" || Class(200).String() != "CLASS(200)" {
		t.Errorf("names %q %q", ClassEQFIR, Class(200))
	}

	all := Classes()
	if len(all) != int(MaxClass) || all[0] != ClassIRQ || all[len(all)-1] != ClassCPU {
		t.Fatalf("classes = %v", all)
	}
	for _, c := range all {
		back, err := ParseClass(c.String())
		if err != nil || back != c {
			t.Errorf("%v does not parse back: %v", c, err)
		}
	}
}

func TestLevel(t *testing.T) {
	for in, want := range map[string]Level{"critical": LevelCritical, "ERROR": LevelCritical, "verbose": LevelVerbose, "Event": LevelVerbose} {
		if got, err := ParseLevel(in); err != nil || got != want {
			t.Errorf("ParseLevel(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseLevel("debug"); err == nil {
		t.Error("unknown level accepted")
	}
	if LevelVerbose.RegionName() != ".static_log.verbose" || LevelCritical.RegionName() != ".static_log.critical" {
		t.Error("region names")
	}
	if Level(7).String() != "LEVEL(7)" {
		t.Errorf("unknown level = %q", Level(7))
	}
	if Level(7).RegionName() != ".static_log.7" {
		t.Errorf("unknown level region = %q", Level(7).RegionName())
	}
}

func TestWire_AllArities(t *testing.T) {
	arity := func(ref uint32) (int, bool) {
		if ref > MaxParams {
			return 0, false
		}
		return int(ref), true
	}
	var b []byte
	for n := 0; n <= MaxParams; n++ {
		f := Frame{Ref: uint32(n), Seq: uint32(10 + n), N: uint8(n)}
		for i := 0; i < n; i++ {
			f.Params[i] = uint32(0xa0 + i)
		}
		b = f.AppendWire(b)
	}
	if len(b) != 8+12+16+20 {
		t.Fatalf("stream %d bytes", len(b))
	}

	for n := 0; n <= MaxParams; n++ {
		f, used, err := ReadWire(b, arity)
		if err != nil {
			t.Fatal(err)
		}
		if used != WireSize(n) || f.Ref != uint32(n) || f.Seq != uint32(10+n) || int(f.N) != n {
			t.Fatalf("frame %d = %+v used %d", n, f, used)
		}
		for i := 0; i < n; i++ {
			if f.Params[i] != uint32(0xa0+i) {
				t.Fatalf("frame %d param %d = %#x", n, i, f.Params[i])
			}
		}
		b = b[used:]
	}
}

func TestReadWire_Rejects(t *testing.T) {
	f := Frame{Ref: 2, Seq: 1, N: 2, Params: [MaxParams]uint32{1, 2}}
	b := f.AppendWire(nil)
	two := func(uint32) (int, bool) { return 2, true }

	if _, _, err := ReadWire(b[:4], two); !errors.Is(err, ErrShortFrame) {
		t.Errorf("short header: %v", err)
	}
	if _, _, err := ReadWire(b[:12], two); !errors.Is(err, ErrShortFrame) {
		t.Errorf("short params: %v", err)
	}
	if _, _, err := ReadWire(b, func(uint32) (int, bool) { return 0, false }); err == nil {
		t.Error("unknown ref accepted")
	}
	if _, _, err := ReadWire(b, func(uint32) (int, bool) { return 4, true }); err == nil {
		t.Error("arity 4 accepted")
	}
}

func TestRoutingNames(t *testing.T) {
	if BufferAndMailbox.String() != "buffer+mailbox" || BufferOnly.String() != "buffer" {
		t.Error("destination names")
	}
	if InterruptSafe.String() != "interrupt-safe" || Standard.String() != "standard" {
		t.Error("safety names")
	}
}
