package raymarch

import (
	"context"
	"errors"
	"image/color"
	"testing"

	"github.com/chazu/michelangelo/pkg/csg"
	"github.com/chewxy/math32"
)

func unitSphere(t *testing.T) *csg.Flat {
	t.Helper()
	tr := csg.New()
	if _, err := tr.AddSphere(csg.NoIndex, 0, csg.Vec3{}, 1); err != nil {
		t.Fatal(err)
	}
	f, err := csg.Linearize(tr)
	if err != nil {
		t.Fatal(err)
	}
	return f
}

func smallParams() Params {
	p := DefaultParams()
	p.Width, p.Height = 32, 24
	return p
}

// ---------------------------------------------------------------------------
// Params
// ---------------------------------------------------------------------------

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Params)
	}{
		{"zero width", func(p *Params) { p.Width = 0 }},
		{"negative height", func(p *Params) { p.Height = -1 }},
		{"no steps", func(p *Params) { p.MaxSteps = 0 }},
		{"zero epsilon", func(p *Params) { p.Epsilon = 0 }},
		{"nan epsilon", func(p *Params) { p.Epsilon = math32.NaN() }},
		{"flat fov", func(p *Params) { p.FovY = 0 }},
		{"fov too wide", func(p *Params) { p.FovY = math32.Pi }},
		{"eye at target", func(p *Params) { p.Eye = p.Target }},
		{"up along view", func(p *Params) { p.Up = p.Target.Sub(p.Eye) }},
		{"infinite eye", func(p *Params) { p.Eye.X = math32.Inf(1) }},
	}

	if err := DefaultParams().Validate(); err != nil {
		t.Fatalf("DefaultParams().Validate() = %v", err)
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultParams()
			tt.modify(&p)
			if err := p.Validate(); !errors.Is(err, ErrInvalidParams) {
				t.Errorf("Validate() = %v, want ErrInvalidParams", err)
			}
			if _, err := Render(context.Background(), unitSphere(t), p); !errors.Is(err, ErrInvalidParams) {
				t.Errorf("Render() = %v, want ErrInvalidParams", err)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Rendering
// ---------------------------------------------------------------------------

func TestRenderSphere(t *testing.T) {
	p := smallParams()
	img, err := Render(context.Background(), unitSphere(t), p)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if b := img.Bounds(); b.Dx() != p.Width || b.Dy() != p.Height {
		t.Fatalf("image is %v, want %dx%d", b, p.Width, p.Height)
	}

	bg := toRGBA(background)
	centre := img.RGBAAt(p.Width/2, p.Height/2)
	if centre == bg {
		t.Fatal("centre pixel missed the sphere")
	}
	if centre == toRGBA(exhausted) {
		t.Fatal("centre ray ran out of steps")
	}
	if centre.R <= centre.G || centre.R <= centre.B {
		t.Errorf("centre pixel %v should carry the diffuse tint", centre)
	}
	if corner := img.RGBAAt(0, 0); corner != bg {
		t.Errorf("corner pixel = %v, want background %v", corner, bg)
	}
}

func TestRenderEmpty(t *testing.T) {
	f, err := csg.Linearize(csg.New())
	if err != nil {
		t.Fatal(err)
	}
	img, err := Render(context.Background(), f, smallParams())
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	bg := toRGBA(background)
	for y := 0; y < img.Bounds().Dy(); y++ {
		for x := 0; x < img.Bounds().Dx(); x++ {
			if c := img.RGBAAt(x, y); c != bg {
				t.Fatalf("pixel (%d,%d) = %v, want background", x, y, c)
			}
		}
	}
}

func TestRenderWorkersAgree(t *testing.T) {
	f := unitSphere(t)
	p := smallParams()
	p.Workers = 1
	serial, err := Render(context.Background(), f, p)
	if err != nil {
		t.Fatal(err)
	}
	p.Workers = 8
	parallel, err := Render(context.Background(), f, p)
	if err != nil {
		t.Fatal(err)
	}
	for i := range serial.Pix {
		if serial.Pix[i] != parallel.Pix[i] {
			t.Fatalf("byte %d differs between 1 and 8 workers", i)
		}
	}
}

func TestRenderCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	img, err := Render(ctx, unitSphere(t), smallParams())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Render() error = %v, want context.Canceled", err)
	}
	if img != nil {
		t.Error("expected nil image on cancellation")
	}
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func TestSlab(t *testing.T) {
	lo := csg.Vec3{X: -1, Y: -1, Z: -1}
	hi := csg.Vec3{X: 1, Y: 1, Z: 1}
	tests := []struct {
		name       string
		o, d       csg.Vec3
		hit        bool
		tmin, tmax float32
	}{
		{"head on", csg.Vec3{Z: 5}, csg.Vec3{Z: -1}, true, 4, 6},
		{"miss", csg.Vec3{X: 3, Z: 5}, csg.Vec3{Z: -1}, false, 0, 0},
		{"behind", csg.Vec3{Z: 5}, csg.Vec3{Z: 1}, false, 0, 0},
		{"inside", csg.Vec3{}, csg.Vec3{X: 1}, true, -1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmin, tmax, ok := slab(tt.o, tt.d, lo, hi)
			if ok != tt.hit {
				t.Fatalf("hit = %v, want %v", ok, tt.hit)
			}
			if ok && (tmin != tt.tmin || tmax != tt.tmax) {
				t.Errorf("t = [%g, %g], want [%g, %g]", tmin, tmax, tt.tmin, tt.tmax)
			}
		})
	}
}

func TestCameraCentreRay(t *testing.T) {
	p := DefaultParams()
	p.Width, p.Height = 3, 3
	cam := newCamera(p)
	d := cam.ray(1, 1, p.Width, p.Height)
	want := p.Target.Sub(p.Eye).Normalize()
	if d.Sub(want).Length() > 1e-6 {
		t.Errorf("centre ray = %v, want %v", d, want)
	}
}

func TestToRGBA(t *testing.T) {
	tests := []struct {
		in   csg.Vec3
		want color.RGBA
	}{
		{csg.Vec3{}, color.RGBA{A: 255}},
		{csg.Vec3{X: 1, Y: 2, Z: -1}, color.RGBA{R: 255, G: 255, A: 255}},
		{csg.Vec3{X: 0.5, Y: math32.NaN()}, color.RGBA{R: 128, A: 255}},
	}
	for _, tt := range tests {
		if got := toRGBA(tt.in); got != tt.want {
			t.Errorf("toRGBA(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
