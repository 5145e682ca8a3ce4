package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/png"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	"github.com/Nikhil-Joson/HomeCanvas/internal/history"
	"github.com/Nikhil-Joson/HomeCanvas/internal/imaging"
)

var (
	ErrInvalidFormat = errors.New("invalid format: must be mp4, gif, or webm")
	ErrNoFrames      = errors.New("no revisions to export")
)

type Format string

const (
	MP4  Format = "mp4"
	GIF  Format = "gif"
	WebM Format = "webm"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case MP4, GIF, WebM:
		return f, nil
	case "":
		return GIF, nil
	default:
		return "", ErrInvalidFormat
	}
}

func (f Format) ContentType() string {
	switch f {
	case MP4:
		return "video/mp4"
	case WebM:
		return "video/webm"
	default:
		return "image/gif"
	}
}

// Result is an encoded timelapse on disk. Close removes it.
type Result struct {
	Path        string
	ContentType string
	Frames      int
	dir         string
}

func (r *Result) Close() error {
	return os.RemoveAll(r.dir)
}

// Exporter renders a revision timeline into a video with ffmpeg.
type Exporter struct {
	ffmpegPath string
}

func NewExporter(ffmpegPath string) *Exporter {
	return &Exporter{ffmpegPath: ffmpegPath}
}

// Timelapse writes one frame per revision, each scaled to the first
// revision's size, and encodes them at fps frames per second.
func (e *Exporter) Timelapse(ctx context.Context, revs []history.Revision, format Format, fps int) (*Result, error) {
	if len(revs) == 0 {
		return nil, ErrNoFrames
	}
	if fps <= 0 || fps > 30 {
		fps = 1
	}

	tempDir, err := os.MkdirTemp("", "homecanvas-export-*")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	res := &Result{ContentType: format.ContentType(), Frames: len(revs), dir: tempDir}

	if err := writeFrames(tempDir, revs); err != nil {
		res.Close()
		return nil, err
	}

	slog.Info("export started", "format", format, "frames", len(revs), "fps", fps)

	res.Path = filepath.Join(tempDir, "output."+string(format))
	for _, args := range ffmpegPasses(format, tempDir, fps, res.Path) {
		if err := e.runFfmpeg(ctx, args...); err != nil {
			res.Close()
			return nil, err
		}
	}
	return res, nil
}

func writeFrames(dir string, revs []history.Revision) error {
	var w, h int
	for i, rev := range revs {
		img, _, err := imaging.Decode("revision", rev.Image.Data)
		if err != nil {
			return err
		}
		if i == 0 {
			// yuv420p needs even dimensions.
			w, h = img.Bounds().Dx()&^1, img.Bounds().Dy()&^1
			w, h = max(w, 2), max(h, 2)
		}

		var buf bytes.Buffer
		if err := png.Encode(&buf, imaging.Resize(img, w, h)); err != nil {
			return fmt.Errorf("encode frame %d: %w", i, err)
		}
		path := filepath.Join(dir, fmt.Sprintf("frame_%04d.png", i))
		if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
			return fmt.Errorf("write frame %d: %w", i, err)
		}
	}
	return nil
}

// ffmpegPasses returns the argument lists to run in order.
func ffmpegPasses(format Format, dir string, fps int, output string) [][]string {
	input := []string{
		"-framerate", strconv.Itoa(fps),
		"-i", filepath.Join(dir, "frame_%04d.png"),
	}
	with := func(extra ...string) []string {
		return append(append([]string(nil), input...), extra...)
	}

	switch format {
	case MP4:
		return [][]string{with(
			"-c:v", "libx264",
			"-pix_fmt", "yuv420p",
			"-crf", "18",
			"-preset", "fast",
			"-movflags", "+faststart",
			output,
		)}
	case WebM:
		return [][]string{with(
			"-c:v", "libvpx-vp9",
			"-crf", "30",
			"-b:v", "0",
			"-pix_fmt", "yuv420p",
			output,
		)}
	default:
		// Two-pass GIF: generate palette then apply
		palette := filepath.Join(dir, "palette.png")
		return [][]string{
			with("-vf", "palettegen=stats_mode=diff", palette),
			with("-i", palette, "-lavfi", "paletteuse=dither=bayer:bayer_scale=5:diff_mode=rectangle", output),
		}
	}
}

func (e *Exporter) runFfmpeg(ctx context.Context, args ...string) error {
	// Prepend -y to overwrite output without prompting
	fullArgs := append([]string{"-y"}, args...)
	cmd := exec.CommandContext(ctx, e.ffmpegPath, fullArgs...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg: %w: %s", err, stderr.String())
	}
	return nil
}
