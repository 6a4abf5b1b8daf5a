package integrator

import (
	"math"
	"testing"

	"github.com/LuniumLuk/Tira/types"
)

func TestClampNoOpWhenDisabled(t *testing.T) {
	cfg := Config{ClampMax: 0}
	c := types.Vec3{100, 200, 300}
	got := Clamp(cfg, c)
	if got != c {
		t.Fatalf("expected Clamp to no-op when ClampMax <= 0, got %v", got)
	}
}

func TestClampBounds(t *testing.T) {
	cfg := Config{ClampMin: 0, ClampMax: 10}
	got := Clamp(cfg, types.Vec3{-5, 5, 50})
	want := types.Vec3{0, 5, 10}
	if got != want {
		t.Fatalf("Clamp(%v) = %v, want %v", types.Vec3{-5, 5, 50}, got, want)
	}
}

func TestFinite(t *testing.T) {
	if !Finite(types.Vec3{1, 2, 3}) {
		t.Fatal("expected a finite vector to be reported finite")
	}
	if Finite(types.Vec3{float32(math.NaN()), 0, 0}) {
		t.Fatal("expected a NaN component to fail Finite")
	}
	if Finite(types.Vec3{float32(math.Inf(1)), 0, 0}) {
		t.Fatal("expected an Inf component to fail Finite")
	}
}

func TestNewSelectsIntegratorByType(t *testing.T) {
	cases := []struct {
		typ  Type
		name string
		is   func(Integrator) bool
	}{
		{TypeWhitted, "whitted", func(i Integrator) bool { _, ok := i.(*Whitted); return ok }},
		{TypeMonteCarlo, "path", func(i Integrator) bool { _, ok := i.(*MonteCarlo); return ok }},
		{TypeBidirectional, "bdpt", func(i Integrator) bool { _, ok := i.(*Bidirectional); return ok }},
	}
	for _, c := range cases {
		cfg := DefaultConfig()
		cfg.Type = c.typ
		got := New(cfg)
		if got == nil {
			t.Fatalf("New(%s) returned nil integrator", c.name)
		}
		if !c.is(got) {
			t.Fatalf("New(%s) returned %T", c.name, got)
		}
	}
}
