// Package raymarch renders a preview image of a linearized CSG tree by
// sphere tracing. Rows are shaded in parallel; every row owns its own
// evaluator so no scratch memory is shared between goroutines.
package raymarch

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"runtime"

	"github.com/chazu/michelangelo/pkg/csg"
	"github.com/chewxy/math32"
	"golang.org/x/sync/errgroup"
)

// ErrInvalidParams is wrapped by every Params validation failure.
var ErrInvalidParams = errors.New("invalid render params")

// Params configures a render.
type Params struct {
	Width, Height int
	MaxSteps      int     // sphere tracing steps per ray
	Epsilon       float32 // hit threshold on |distance|
	Eye, Target   csg.Vec3
	Up            csg.Vec3
	FovY          float32 // vertical field of view in radians
	Workers       int     // concurrent rows; <= 0 means GOMAXPROCS
}

// DefaultParams looks at the origin from the +Z side with a unit-scale
// framing.
func DefaultParams() Params {
	return Params{
		Width:    320,
		Height:   240,
		MaxSteps: 1000,
		Epsilon:  1e-3,
		Eye:      csg.Vec3{X: 0, Y: 1, Z: 4},
		Target:   csg.Vec3{},
		Up:       csg.Vec3{Y: 1},
		FovY:     math32.Pi / 4,
	}
}

// Validate reports the first unusable field.
func (p Params) Validate() error {
	switch {
	case p.Width <= 0 || p.Height <= 0:
		return fmt.Errorf("%w: size %dx%d", ErrInvalidParams, p.Width, p.Height)
	case p.MaxSteps <= 0:
		return fmt.Errorf("%w: max steps %d", ErrInvalidParams, p.MaxSteps)
	case !(p.Epsilon > 0):
		return fmt.Errorf("%w: epsilon %g", ErrInvalidParams, p.Epsilon)
	case !(p.FovY > 0 && p.FovY < math32.Pi):
		return fmt.Errorf("%w: field of view %g", ErrInvalidParams, p.FovY)
	case !p.Eye.IsFinite() || !p.Target.IsFinite() || !p.Up.IsFinite():
		return fmt.Errorf("%w: camera vectors must be finite", ErrInvalidParams)
	}
	if p.Target.Sub(p.Eye).Length() == 0 {
		return fmt.Errorf("%w: eye and target coincide", ErrInvalidParams)
	}
	if p.Target.Sub(p.Eye).Cross(p.Up).Length() == 0 {
		return fmt.Errorf("%w: up is parallel to the view direction", ErrInvalidParams)
	}
	return nil
}

// Shading constants.
var (
	diffuse    = csg.Vec3{X: 0.9, Y: 0.3, Z: 0.2}
	lightDir   = csg.Vec3{X: 0.2, Y: 1}.Normalize()
	background = csg.Vec3{X: 0.01, Y: 0.01, Z: 0.01}
	// exhausted marks rays that ran out of steps without hitting or
	// leaving the scene.
	exhausted = csg.Vec3{X: 1}
)

type camera struct {
	eye                csg.Vec3
	forward, right, up csg.Vec3
	tanX, tanY         float32
}

func newCamera(p Params) camera {
	forward := p.Target.Sub(p.Eye).Normalize()
	right := forward.Cross(p.Up).Normalize()
	tanY := math32.Tan(p.FovY / 2)
	return camera{
		eye:     p.Eye,
		forward: forward,
		right:   right,
		up:      right.Cross(forward),
		tanX:    tanY * float32(p.Width) / float32(p.Height),
		tanY:    tanY,
	}
}

// ray returns the direction through the centre of pixel (x, y).
func (c camera) ray(x, y, w, h int) csg.Vec3 {
	u := (2*(float32(x)+0.5)/float32(w) - 1) * c.tanX
	v := (1 - 2*(float32(y)+0.5)/float32(h)) * c.tanY
	return c.forward.Add(c.right.Scale(u)).Add(c.up.Scale(v)).Normalize()
}

// Render sphere traces f and returns the shaded image. It stops between
// rows when ctx is cancelled and returns ctx's error.
func Render(ctx context.Context, f *csg.Flat, p Params) (*image.RGBA, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	img := image.NewRGBA(image.Rect(0, 0, p.Width, p.Height))
	cam := newCamera(p)
	lo, hi, ok := f.Bounds()
	// Pad so surfaces lying on the box are reached before the exit test.
	pad := csg.Vec3{X: p.Epsilon, Y: p.Epsilon, Z: p.Epsilon}.Scale(2)
	lo, hi = lo.Sub(pad), hi.Add(pad)

	workers := p.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for y := 0; y < p.Height; y++ {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			ev := f.NewEvaluator()
			for x := 0; x < p.Width; x++ {
				c := background
				if ok {
					c = trace(ev, cam.eye, cam.ray(x, y, p.Width, p.Height), lo, hi, p)
				}
				img.SetRGBA(x, y, toRGBA(c))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return img, nil
}

// trace follows one ray through the box [lo, hi].
func trace(ev *csg.Evaluator, o, d, lo, hi csg.Vec3, p Params) csg.Vec3 {
	tmin, tmax, hit := slab(o, d, lo, hi)
	if !hit {
		return background
	}
	t := math32.Max(tmin, 0)
	for i := 0; i < p.MaxSteps; i++ {
		pos := o.Add(d.Scale(t))
		dist := ev.Eval(pos)
		if math32.Abs(dist) <= p.Epsilon {
			return shade(ev, pos, p.Epsilon)
		}
		if t > tmax {
			return background
		}
		t += math32.Max(dist, p.Epsilon)
	}
	return exhausted
}

// slab intersects the ray o + t*d with an axis-aligned box.
func slab(o, d, lo, hi csg.Vec3) (tmin, tmax float32, ok bool) {
	tmin, tmax = math32.Inf(-1), math32.Inf(1)
	axes := [3][4]float32{
		{o.X, d.X, lo.X, hi.X},
		{o.Y, d.Y, lo.Y, hi.Y},
		{o.Z, d.Z, lo.Z, hi.Z},
	}
	for _, a := range axes {
		origin, dir, min, max := a[0], a[1], a[2], a[3]
		if dir == 0 {
			if origin < min || origin > max {
				return 0, 0, false
			}
			continue
		}
		t0, t1 := (min-origin)/dir, (max-origin)/dir
		if t0 > t1 {
			t0, t1 = t1, t0
		}
		tmin = math32.Max(tmin, t0)
		tmax = math32.Min(tmax, t1)
	}
	return tmin, tmax, tmax >= tmin && tmax >= 0
}

// shade is Lambert diffuse under a fixed light plus a sky-weighted ambient
// term. The normal comes from forward differences.
func shade(ev *csg.Evaluator, pos csg.Vec3, eps float32) csg.Vec3 {
	o := ev.Eval(pos)
	n := csg.Vec3{
		X: ev.Eval(pos.Add(csg.Vec3{X: eps})) - o,
		Y: ev.Eval(pos.Add(csg.Vec3{Y: eps})) - o,
		Z: ev.Eval(pos.Add(csg.Vec3{Z: eps})) - o,
	}.Normalize()
	lambert := math32.Max(n.Dot(lightDir), 0)
	ambient := math32.Min((n.Y+1)*0.1, 0.1)
	return diffuse.Scale(lambert + ambient)
}

func toRGBA(c csg.Vec3) color.RGBA {
	channel := func(v float32) uint8 {
		if !(v > 0) {
			return 0
		}
		if v >= 1 {
			return 255
		}
		return uint8(v*255 + 0.5)
	}
	return color.RGBA{R: channel(c.X), G: channel(c.Y), B: channel(c.Z), A: 255}
}
