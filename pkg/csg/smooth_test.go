package csg

import (
	"testing"

	"github.com/chewxy/math32"
)

func TestSminSmaxHard(t *testing.T) {
	pairs := [][2]float32{{-1, 0.5}, {2, 2}, {3, -4}, {0, 0}, {-0.25, -0.75}}
	for _, p := range pairs {
		if got := Smin(p[0], p[1], 0); got != math32.Min(p[0], p[1]) {
			t.Errorf("Smin(%g, %g, 0) = %g, want %g", p[0], p[1], got, math32.Min(p[0], p[1]))
		}
		if got := Smax(p[0], p[1], 0); got != math32.Max(p[0], p[1]) {
			t.Errorf("Smax(%g, %g, 0) = %g, want %g", p[0], p[1], got, math32.Max(p[0], p[1]))
		}
	}
}

func TestSminSmaxSoft(t *testing.T) {
	const k = 0.5

	// Outside the support radius the smooth and hard versions agree.
	if got := Smin(0, 1, k); got != 0 {
		t.Errorf("Smin(0, 1, %g) = %g, want 0", k, got)
	}
	if got := Smax(0, 1, k); got != 1 {
		t.Errorf("Smax(0, 1, %g) = %g, want 1", k, got)
	}

	// At the crossover the correction is k/4.
	if got, want := Smin(1, 1, k), float32(1-k/4); !approx(got, want, 1e-6) {
		t.Errorf("Smin(1, 1, %g) = %g, want %g", k, got, want)
	}
	if got, want := Smax(1, 1, k), float32(1+k/4); !approx(got, want, 1e-6) {
		t.Errorf("Smax(1, 1, %g) = %g, want %g", k, got, want)
	}

	// h = (0.5 - 0.25) / 0.5 = 0.5, correction = 0.25 * 0.5 / 4.
	if got, want := Smin(0, 0.25, k), float32(-0.03125); !approx(got, want, 1e-6) {
		t.Errorf("Smin(0, 0.25, %g) = %g, want %g", k, got, want)
	}

	for a := float32(-1); a <= 1; a += 0.125 {
		if Smin(a, 0.3, k) > math32.Min(a, 0.3) {
			t.Errorf("Smin(%g, 0.3) above min", a)
		}
		if Smax(a, 0.3, k) < math32.Max(a, 0.3) {
			t.Errorf("Smax(%g, 0.3) below max", a)
		}
	}
}

func TestEvalOperationHard(t *testing.T) {
	pairs := [][2]float32{{-1, 0.5}, {0.5, -1}, {2, 3}, {-2, -3}}
	for _, p := range pairs {
		f, g := p[0], p[1]
		if got := EvalOperation(f, g, Union(0)); got != math32.Min(f, g) {
			t.Errorf("union(%g, %g) = %g, want %g", f, g, got, math32.Min(f, g))
		}
		if got := EvalOperation(f, g, Subtract(0)); got != math32.Max(f, -g) {
			t.Errorf("subtract(%g, %g) = %g, want %g", f, g, got, math32.Max(f, -g))
		}
	}
}

func TestEvalOperationBlendZeroIsInert(t *testing.T) {
	for _, soft := range []float32{0, 0.1, 1} {
		if got := EvalOperation(0.7, -3, Operation{Blend: 0, Softness: soft}); got != 0.7 {
			t.Errorf("blend 0 softness %g = %g, want 0.7", soft, got)
		}
	}
}

func TestEvalOperationBlendMonotonic(t *testing.T) {
	cases := []struct {
		f, g, soft float32
	}{
		{0.5, -0.2, 0},
		{0.5, -0.2, 0.3},
		{0.1, 0.15, 0.5},
		{-0.4, 0.2, 0.25},
	}
	for _, c := range cases {
		// Union: moving blend from 0 to 1 never raises the distance.
		prev := EvalOperation(c.f, c.g, Operation{Blend: 0, Softness: c.soft})
		for b := float32(0.05); b <= 1.0001; b += 0.05 {
			cur := EvalOperation(c.f, c.g, Operation{Blend: math32.Min(b, 1), Softness: c.soft})
			if cur > prev+1e-6 {
				t.Errorf("union f=%g g=%g soft=%g: blend %g gave %g > %g", c.f, c.g, c.soft, b, cur, prev)
			}
			prev = cur
		}
		if want := Smin(c.f, c.g, c.soft); !approx(prev, want, 1e-6) {
			t.Errorf("union at blend 1 = %g, want %g", prev, want)
		}

		// Subtraction: moving blend from 0 to -1 never lowers the distance.
		prev = c.f
		for b := float32(0.05); b <= 1.0001; b += 0.05 {
			cur := EvalOperation(c.f, c.g, Operation{Blend: -math32.Min(b, 1), Softness: c.soft})
			if cur < prev-1e-6 {
				t.Errorf("subtract f=%g g=%g soft=%g: blend -%g gave %g < %g", c.f, c.g, c.soft, b, cur, prev)
			}
			prev = cur
		}
		if want := Smax(c.f, -c.g, c.soft); !approx(prev, want, 1e-6) {
			t.Errorf("subtract at blend -1 = %g, want %g", prev, want)
		}
	}
}

func TestOperationValidate(t *testing.T) {
	valid := []Operation{Union(0), Subtract(2), {Blend: 0}, {Blend: -0.3, Softness: 0.1}}
	for _, op := range valid {
		if err := op.Validate(); err != nil {
			t.Errorf("%v: unexpected error %v", op, err)
		}
	}
	invalid := []Operation{
		{Blend: 1.01},
		{Blend: -1.01},
		{Blend: math32.NaN()},
		{Blend: 1, Softness: -0.1},
		{Blend: 1, Softness: math32.Inf(1)},
	}
	for _, op := range invalid {
		if err := op.Validate(); err == nil {
			t.Errorf("%v: expected error", op)
		}
	}
}

func approx(a, b, tol float32) bool {
	return math32.Abs(a-b) <= tol
}
