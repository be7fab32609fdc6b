package irep

import (
	"encoding/binary"
	"testing"
)

func TestAddPoolDedup(t *testing.T) {
	ir := New()
	a := ir.AddPool(IntValue(42))
	b := ir.AddPool(StringValue("x"))
	c := ir.AddPool(IntValue(42))
	if a != c {
		t.Errorf("identical int pooled twice: %d vs %d", a, c)
	}
	if a == b {
		t.Errorf("distinct values share index %d", a)
	}
	// Same numeric value, different kind: distinct entries.
	d := ir.AddPool(FloatValue(42))
	if d == a {
		t.Error("int 42 and float 42 should not share a pool slot")
	}
	if len(ir.Pool) != 3 {
		t.Errorf("pool has %d entries, want 3", len(ir.Pool))
	}
}

func TestAddSymDedup(t *testing.T) {
	ir := New()
	a := ir.AddSym("puts")
	ir.AddSym("+")
	if ir.AddSym("puts") != a {
		t.Error("symbol interned twice")
	}
	if len(ir.Syms) != 2 {
		t.Errorf("got %d symbols, want 2", len(ir.Syms))
	}
}

func TestPatchJumpDelta(t *testing.T) {
	ir := New()
	ph := ir.EmitJump(OpJmp)
	ir.Emit(OpLoadNil, 1) // 2 bytes
	ir.Emit(OpLoadNil, 1) // 2 bytes
	ir.PatchJump(ph)

	delta := int16(binary.BigEndian.Uint16(ir.Code[ph:]))
	if delta != 4 {
		t.Errorf("forward delta: got %d, want 4", delta)
	}

	back := ir.EmitJump(OpJmp)
	ir.PatchJumpTo(back, 0)
	delta = int16(binary.BigEndian.Uint16(ir.Code[back:]))
	// Placeholder sits at offset 8; the jump lands back at 0.
	if delta != -10 {
		t.Errorf("backward delta: got %d, want -10", delta)
	}
}

func TestReserveRegsHighWater(t *testing.T) {
	ir := New()
	ir.ReserveRegs(5)
	ir.ReserveRegs(3)
	if ir.NRegs != 5 {
		t.Errorf("NRegs = %d, want 5", ir.NRegs)
	}
}

func TestLineAt(t *testing.T) {
	ir := New()
	ir.Debug = &DebugInfo{Filename: "a.rb"}
	ir.AddLine(0, 1)
	ir.AddLine(4, 1) // same line, coalesced
	ir.AddLine(8, 3)

	if len(ir.Debug.Lines) != 2 {
		t.Fatalf("got %d line entries, want 2 after coalescing", len(ir.Debug.Lines))
	}
	tests := []struct{ offset, want int }{
		{0, 1}, {7, 1}, {8, 3}, {100, 3},
	}
	for _, tt := range tests {
		if got := ir.LineAt(tt.offset); got != tt.want {
			t.Errorf("LineAt(%d) = %d, want %d", tt.offset, got, tt.want)
		}
	}
}

func TestLineAtWithoutDebug(t *testing.T) {
	ir := New()
	ir.AddLine(0, 7)
	if got := ir.LineAt(0); got != 0 {
		t.Errorf("LineAt without debug info = %d, want 0", got)
	}
}

func TestRemoveLocalsRecursive(t *testing.T) {
	child := New()
	child.LocalNames = []string{"a"}
	grandchild := New()
	grandchild.LocalNames = []string{"b"}
	child.AddChild(grandchild)

	ir := New()
	ir.LocalNames = []string{"x", "y"}
	ir.AddChild(child)

	if !ir.HasLocalNames() {
		t.Fatal("HasLocalNames should be true before stripping")
	}
	ir.RemoveLocals()
	if ir.HasLocalNames() {
		t.Error("local names survived RemoveLocals")
	}
	if grandchild.LocalNames != nil {
		t.Error("grandchild names survived RemoveLocals")
	}
}
