package boot

import (
	"testing"

	"firmtrace/constants"
)

func TestCode_Values(t *testing.T) {
	tests := []struct {
		code Code
		want uint32
		name string
	}{
		{LoaderEntry, 0x100, "LDR_ENTRY"},
		{LoaderParseSegment, 0x220, "LDR_PARSE_SEGMENT"},
		{SysWork, 0x3100, "SYS_WORK"},
		{SysPower, 0x3600, "SYS_POWER"},
		{PlatformMbox, 0x4110, "PLATFORM_MBOX"},
		{PlatformIDC, 0x41b0, "PLATFORM_IDC"},
		{Code(0x4242), 0x4242, "0x4242"},
	}
	for _, tt := range tests {
		if uint32(tt.code) != tt.want {
			t.Errorf("%s = %#x, want %#x", tt.name, uint32(tt.code), tt.want)
		}
		if tt.code.String() != tt.name {
			t.Errorf("%#x.String() = %q, want %q", tt.want, tt.code.String(), tt.name)
		}
	}
}

func TestRecorder_PointAndSignal(t *testing.T) {
	reg := NewRegister(nil)
	r := NewRecorder(reg)

	if _, ok := r.Last(); ok {
		t.Fatal("empty recorder reported a milestone")
	}
	r.Point(Start)
	r.Point(PlatformEntry)

	if got, _ := r.Last(); got != PlatformEntry {
		t.Fatalf("Last = %v", got)
	}
	if reg.Load() != uint32(PlatformEntry) {
		t.Fatalf("status register = %#x", reg.Load())
	}
	if codes := r.Codes(); len(codes) != 2 || codes[0] != Start {
		t.Fatalf("Codes = %v", codes)
	}
}

func TestRecorder_KeepsNewest(t *testing.T) {
	r := NewRecorder(nil)
	total := constants.BootBufferSize + 5
	for i := 0; i < total; i++ {
		r.Point(Code(i))
	}
	codes := r.Codes()
	if len(codes) != constants.BootBufferSize {
		t.Fatalf("len = %d", len(codes))
	}
	if codes[0] != Code(5) || codes[len(codes)-1] != Code(total-1) {
		t.Fatalf("window = %v..%v", codes[0], codes[len(codes)-1])
	}
	if r.Count() != uint32(total) {
		t.Fatalf("count = %d", r.Count())
	}
}

func TestRegister_SharedWord(t *testing.T) {
	var word uint32
	NewRegister(&word).WriteStatus(uint32(Arch))
	if word != uint32(Arch) {
		t.Fatalf("word = %#x", word)
	}
}

func TestDefault_Point(t *testing.T) {
	before := Default.Count()
	Point(LoaderJump)
	if got, _ := Default.Last(); got != LoaderJump || Default.Count() != before+1 {
		t.Fatalf("Last = %v count = %d", got, Default.Count())
	}
}
