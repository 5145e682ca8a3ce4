package generate

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"google.golang.org/genai"

	"github.com/Nikhil-Joson/HomeCanvas/internal/geometry"
	"github.com/Nikhil-Joson/HomeCanvas/internal/history"
	"github.com/Nikhil-Joson/HomeCanvas/internal/imaging"
)

func testImage(t *testing.T, w, h int) history.Image {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{G: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode() error = %v", err)
	}
	return history.Image{Data: buf.Bytes(), MIMEType: "image/png", Width: w, Height: h}
}

func TestDefaultPrompts(t *testing.T) {
	p, err := DefaultPrompts()
	if err != nil {
		t.Fatalf("DefaultPrompts() error = %v", err)
	}
	if p.CompositeSystem == "" || p.EditSystem == "" || p.LocateSystem == "" {
		t.Error("system prompts missing")
	}

	got, err := p.Composite(PromptData{
		ProductLabel: "oak armchair",
		SceneLabel:   "living room",
		Location:     "on the rug left of the sofa",
		Position:     geometry.NormalizedPosition{XPercent: 25, YPercent: 62.5},
	})
	if err != nil {
		t.Fatalf("Composite() error = %v", err)
	}
	for _, want := range []string{"oak armchair", "living room", "on the rug left of the sofa", "25.0%", "62.5%"} {
		if !strings.Contains(got, want) {
			t.Errorf("Composite() missing %q in:\n%s", want, got)
		}
	}
}

func TestPrompts_Defaults(t *testing.T) {
	p, err := DefaultPrompts()
	if err != nil {
		t.Fatalf("DefaultPrompts() error = %v", err)
	}
	got, err := p.Composite(PromptData{})
	if err != nil {
		t.Fatalf("Composite() error = %v", err)
	}
	if !strings.Contains(got, "product") || !strings.Contains(got, "at the marked point") {
		t.Errorf("Composite() without labels = %q", got)
	}
}

func TestParsePrompts_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not yaml", "composite: [unterminated"},
		{"missing templates", "edit:\n  system: hi\n"},
		{"bad template", "locate:\n  user: ok\ncomposite:\n  user: \"{{.Nope\"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParsePrompts([]byte(tt.data)); err == nil {
				t.Error("ParsePrompts() error = nil, want error")
			}
		})
	}
}

func TestExtract(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{
				{Text: "thinking...", Thought: true},
				{Text: "Moved the lamp."},
				{InlineData: &genai.Blob{Data: []byte{1, 2, 3}, MIMEType: "image/png"}},
				{InlineData: &genai.Blob{Data: []byte{4}, MIMEType: "image/png"}},
			}},
		}},
	}

	out := extract(resp)
	if out.text != "Moved the lamp." {
		t.Errorf("text = %q, want %q", out.text, "Moved the lamp.")
	}
	if out.image == nil || !bytes.Equal(out.image.Data, []byte{1, 2, 3}) {
		t.Errorf("image = %+v, want first inline blob", out.image)
	}

	if empty := extract(nil); empty.text != "" || empty.image != nil {
		t.Errorf("extract(nil) = %+v, want empty", empty)
	}
	if empty := extract(&genai.GenerateContentResponse{Candidates: []*genai.Candidate{{}}}); empty.image != nil {
		t.Errorf("extract(no content) = %+v, want empty", empty)
	}
}

func TestPrepareComposite(t *testing.T) {
	req := CompositeRequest{
		Product:  testImage(t, 60, 120),
		Scene:    testImage(t, 200, 100),
		Position: geometry.NormalizedPosition{XPercent: 50, YPercent: 50},
	}

	in, err := prepareComposite(req)
	if err != nil {
		t.Fatalf("prepareComposite() error = %v", err)
	}
	for name, img := range map[string]history.Image{"product": in.product, "scene": in.scene, "debug": in.debug} {
		if img.Width != imaging.SquareSize || img.Height != imaging.SquareSize {
			t.Errorf("%s = %dx%d, want square %d", name, img.Width, img.Height, imaging.SquareSize)
		}
	}

	debug, _, err := imaging.Decode("debug", in.debug.Data)
	if err != nil {
		t.Fatalf("Decode(debug) error = %v", err)
	}
	r, g, b, _ := debug.At(512, 512).RGBA()
	if r>>8 != 255 || g>>8 != 0 || b>>8 != 0 {
		t.Errorf("marker pixel = (%d,%d,%d), want red", r>>8, g>>8, b>>8)
	}
}

func TestPrepareComposite_BadInput(t *testing.T) {
	req := CompositeRequest{
		Product: history.Image{Data: []byte("junk")},
		Scene:   testImage(t, 10, 10),
	}
	_, err := prepareComposite(req)
	var de *imaging.DecodeError
	if !errors.As(err, &de) || de.Source != "product" {
		t.Errorf("prepareComposite() error = %v, want product DecodeError", err)
	}
}

func TestFinishComposite(t *testing.T) {
	square := testImage(t, 1024, 1024)

	got, err := finishComposite(square.Data, history.Image{Width: 200, Height: 100})
	if err != nil {
		t.Fatalf("finishComposite() error = %v", err)
	}
	if got.Width != 1024 || got.Height != 512 {
		t.Errorf("finishComposite() = %dx%d, want 1024x512", got.Width, got.Height)
	}

	_, err = finishComposite([]byte("not an image"), history.Image{Width: 2, Height: 1})
	var de *imaging.DecodeError
	if !errors.As(err, &de) {
		t.Errorf("finishComposite(junk) error = %v, want DecodeError", err)
	}
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"rate limited", fmt.Errorf("generate composite: %w", &genai.APIError{Code: 429}), "rate limited"},
		{"forbidden", &genai.APIError{Code: 403}, "API key"},
		{"timeout", fmt.Errorf("edit: %w", context.DeadlineExceeded), "too long"},
		{"empty", ErrEmptyResponse, "did not return"},
		{"malformed", &imaging.DecodeError{Source: "edit", Err: errors.New("bad header")}, "could not be read"},
		{"other", errors.New("boom"), "Reset and try again"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := UserMessage(tt.err); !strings.Contains(got, tt.want) {
				t.Errorf("UserMessage() = %q, want it to contain %q", got, tt.want)
			}
		})
	}
}

func TestEditResult_Empty(t *testing.T) {
	var nilResult *EditResult
	if !nilResult.Empty() {
		t.Error("nil result not empty")
	}
	if !(&EditResult{}).Empty() {
		t.Error("zero result not empty")
	}
	if (&EditResult{Text: "hi"}).Empty() {
		t.Error("text result reported empty")
	}
}
