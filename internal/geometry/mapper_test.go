package geometry

import (
	"errors"
	"math"
	"testing"
)

func TestMapToImage_WidthConstrained(t *testing.T) {
	container := Rect{X: 0, Y: 0, Width: 400, Height: 300}
	natural := Size{Width: 800, Height: 400}

	got, err := MapToImage(Point{X: 200, Y: 150}, container, natural)
	if err != nil {
		t.Fatalf("MapToImage() error = %v", err)
	}
	if got.XPercent != 50 || got.YPercent != 50 {
		t.Errorf("MapToImage() = %+v, want {50 50}", got)
	}
}

func TestLetterbox(t *testing.T) {
	tests := []struct {
		name string
		g    ImageGeometry
		want Rendered
	}{
		{
			name: "wide image in 4:3 container",
			g:    ImageGeometry{NaturalWidth: 800, NaturalHeight: 400, ContainerWidth: 400, ContainerHeight: 300},
			want: Rendered{Width: 400, Height: 200, OffsetX: 0, OffsetY: 50},
		},
		{
			name: "tall image in square container",
			g:    ImageGeometry{NaturalWidth: 300, NaturalHeight: 600, ContainerWidth: 400, ContainerHeight: 400},
			want: Rendered{Width: 200, Height: 400, OffsetX: 100, OffsetY: 0},
		},
		{
			name: "same aspect fills container",
			g:    ImageGeometry{NaturalWidth: 500, NaturalHeight: 500, ContainerWidth: 400, ContainerHeight: 400},
			want: Rendered{Width: 400, Height: 400},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Letterbox(tt.g)
			if err != nil {
				t.Fatalf("Letterbox() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Letterbox() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestMapToImage_OutOfBounds(t *testing.T) {
	// 800x400 in 400x300: rendered band is y in [50, 250].
	container := Rect{X: 10, Y: 20, Width: 400, Height: 300}
	natural := Size{Width: 800, Height: 400}

	tests := []struct {
		name   string
		p      Point
		inside bool
	}{
		{"top letterbox", Point{X: 210, Y: 20 + 25}, false},
		{"bottom letterbox", Point{X: 210, Y: 20 + 275}, false},
		{"left of container", Point{X: 5, Y: 170}, false},
		{"right of container", Point{X: 411, Y: 170}, false},
		{"top edge of image", Point{X: 210, Y: 20 + 50}, true},
		{"bottom edge of image", Point{X: 210, Y: 20 + 250}, true},
		{"left edge", Point{X: 10, Y: 170}, true},
		{"right edge", Point{X: 410, Y: 170}, true},
		{"NaN x", Point{X: math.NaN(), Y: 170}, false},
		{"NaN y", Point{X: 210, Y: math.NaN()}, false},
		{"infinite x", Point{X: math.Inf(1), Y: 170}, false},
		{"negative infinite y", Point{X: 210, Y: math.Inf(-1)}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := MapToImage(tt.p, container, natural)
			if tt.inside && err != nil {
				t.Errorf("MapToImage(%v) error = %v, want nil", tt.p, err)
			}
			if !tt.inside && !errors.Is(err, ErrOutOfBounds) {
				t.Errorf("MapToImage(%v) error = %v, want ErrOutOfBounds", tt.p, err)
			}
		})
	}
}

func TestMapToImage_InsideRange(t *testing.T) {
	container := Rect{X: 0, Y: 0, Width: 640, Height: 480}
	naturals := []Size{{1024, 1024}, {1920, 1080}, {600, 1200}, {640, 480}}

	for _, natural := range naturals {
		rr, err := RenderedRect(container, natural)
		if err != nil {
			t.Fatalf("RenderedRect(%v) error = %v", natural, err)
		}
		// Strictly interior samples.
		for i := 1; i < 10; i++ {
			for j := 1; j < 10; j++ {
				p := Point{X: rr.X + rr.Width*float64(i)/10, Y: rr.Y + rr.Height*float64(j)/10}
				pos, err := MapToImage(p, container, natural)
				if err != nil {
					t.Fatalf("MapToImage(%v, natural %v) error = %v", p, natural, err)
				}
				if pos.XPercent < 0 || pos.XPercent > 100 || pos.YPercent < 0 || pos.YPercent > 100 {
					t.Errorf("MapToImage(%v, natural %v) = %+v, want within [0,100]", p, natural, pos)
				}
			}
		}
	}
}

func TestMapToImage_ContainerOffset(t *testing.T) {
	// Square image in a wide container: horizontal letterbox.
	container := Rect{X: 100, Y: 50, Width: 600, Height: 300}
	natural := Size{Width: 300, Height: 300}

	got, err := MapToImage(Point{X: 100 + 150 + 75, Y: 50 + 150}, container, natural)
	if err != nil {
		t.Fatalf("MapToImage() error = %v", err)
	}
	if got.XPercent != 25 || got.YPercent != 50 {
		t.Errorf("MapToImage() = %+v, want {25 50}", got)
	}
}

func TestMapToImage_InvalidGeometry(t *testing.T) {
	tests := []struct {
		name      string
		container Rect
		natural   Size
	}{
		{"zero container", Rect{Width: 0, Height: 300}, Size{Width: 10, Height: 10}},
		{"zero natural", Rect{Width: 100, Height: 100}, Size{Width: 0, Height: 10}},
		{"negative", Rect{Width: -1, Height: 100}, Size{Width: 10, Height: 10}},
		{"NaN container width", Rect{Width: math.NaN(), Height: 300}, Size{Width: 800, Height: 400}},
		{"NaN natural height", Rect{Width: 400, Height: 300}, Size{Width: 800, Height: math.NaN()}},
		{"infinite natural width", Rect{Width: 400, Height: 300}, Size{Width: math.Inf(1), Height: 400}},
		{"infinite container height", Rect{Width: 400, Height: math.Inf(1)}, Size{Width: 800, Height: 400}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := MapToImage(Point{}, tt.container, tt.natural)
			if !errors.Is(err, ErrInvalidGeometry) {
				t.Errorf("MapToImage() error = %v, want ErrInvalidGeometry", err)
			}
		})
	}
}

func TestFromPercent_RoundTrip(t *testing.T) {
	container := Rect{X: 12, Y: 34, Width: 500, Height: 360}
	natural := Size{Width: 1200, Height: 500}
	pos := NormalizedPosition{XPercent: 37.5, YPercent: 81.25}

	p, err := FromPercent(pos, container, natural)
	if err != nil {
		t.Fatalf("FromPercent() error = %v", err)
	}
	back, err := MapToImage(p, container, natural)
	if err != nil {
		t.Fatalf("MapToImage() error = %v", err)
	}
	if math.Abs(back.XPercent-pos.XPercent) > 1e-9 || math.Abs(back.YPercent-pos.YPercent) > 1e-9 {
		t.Errorf("round trip = %+v, want %+v", back, pos)
	}
}

func TestRectContains(t *testing.T) {
	r := Rect{X: 10, Y: 20, Width: 100, Height: 50}

	tests := []struct {
		name string
		p    Point
		want bool
	}{
		{"inside", Point{50, 40}, true},
		{"top-left corner", Point{10, 20}, true},
		{"bottom-right corner", Point{110, 70}, true},
		{"outside left", Point{5, 40}, false},
		{"outside bottom", Point{50, 75}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := r.Contains(tt.p); got != tt.want {
				t.Errorf("Rect.Contains(%v) = %v, want %v", tt.p, got, tt.want)
			}
		})
	}
}
