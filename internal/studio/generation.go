package studio

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/Nikhil-Joson/HomeCanvas/internal/chat"
	"github.com/Nikhil-Joson/HomeCanvas/internal/generate"
	"github.com/Nikhil-Joson/HomeCanvas/internal/geometry"
	"github.com/Nikhil-Joson/HomeCanvas/internal/history"
)

const editReplyText = "Here is the updated scene."

// GenerationError is a failed call to the generation service. The history
// is unchanged and the studio's LastError describes it.
type GenerationError struct {
	Op  string
	Err error
}

func (e *GenerationError) Error() string { return e.Op + ": " + e.Err.Error() }

func (e *GenerationError) Unwrap() error { return e.Err }

// Place composites the product into the current scene at pos and pushes the
// result. It blocks until the generation call returns.
func (s *Studio) Place(ctx context.Context, pos geometry.NormalizedPosition) error {
	if err := s.lock(); err != nil {
		return err
	}
	if s.product == nil {
		s.unlock()
		return ErrNoProduct
	}
	scene, ok := s.history.Current()
	if !ok {
		s.unlock()
		return ErrNoScene
	}
	if s.busy {
		s.unlock()
		return ErrBusy
	}
	req := generate.CompositeRequest{
		Product:      *s.product,
		ProductLabel: s.productLabel,
		Scene:        scene.Image,
		SceneLabel:   s.sceneLabel,
		Position:     pos,
	}
	s.begin()
	s.unlock()

	gctx, cancel := s.generationContext(ctx)
	defer cancel()
	res, err := s.gen.GenerateComposite(gctx, req)

	if lerr := s.lock(); lerr != nil {
		return lerr
	}
	defer s.unlock()
	defer s.end(ctx)

	if err != nil {
		s.fail(err)
		return &GenerationError{Op: "generate composite", Err: err}
	}

	s.lastErr = ""
	s.lastPrompt = res.Prompt
	s.clearDebug()
	if !res.DebugImage.IsZero() {
		if h, err := s.assets.Publish(res.DebugImage); err == nil {
			s.debugHandle = h
		} else {
			slog.Warn("publish debug image", "error", err, "session", s.id)
		}
	}
	s.history.Push(history.NewRevision(s.history.NextSeq(), res.Image, history.SourceComposite))
	slog.Info("placement composited", "session", s.id,
		"x", pos.XPercent, "y", pos.YPercent, "revisions", s.history.Len())
	return nil
}

// PlaceAt maps a client pointer over the scene container and places the
// product there. A zero natural size uses the current scene's size. A point
// on the letterbox padding returns geometry.ErrOutOfBounds and changes
// nothing.
func (s *Studio) PlaceAt(ctx context.Context, pointer geometry.Point, container geometry.Rect, natural geometry.Size) error {
	if natural.IsEmpty() {
		s.mu.Lock()
		natural = s.scene.NaturalSize()
		s.mu.Unlock()
		if natural.IsEmpty() {
			return ErrNoScene
		}
	}
	pos, err := geometry.MapToImage(pointer, container, natural)
	if err != nil {
		if errors.Is(err, geometry.ErrOutOfBounds) {
			slog.Debug("placement outside image", "session", s.id, "x", pointer.X, "y", pointer.Y)
		}
		return err
	}
	return s.Place(ctx, pos)
}

// Chat sends an edit instruction for the revision chosen by c. A missing
// base is answered in the conversation without calling the generator.
func (s *Studio) Chat(ctx context.Context, prompt string, c chat.Context) error {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return ErrEmptyPrompt
	}
	if err := s.lock(); err != nil {
		return err
	}
	if s.busy {
		s.unlock()
		return ErrBusy
	}

	base, err := s.selector.Select(c, s.history)
	s.say(chat.RoleUser, prompt, "")
	if err != nil {
		var nothing *chat.NothingToEditError
		if !errors.As(err, &nothing) {
			s.unlock()
			return err
		}
		s.say(chat.RoleModel, nothing.Error(), "")
		s.changed(ctx)
		s.unlock()
		return nil
	}
	s.begin()
	s.unlock()

	gctx, cancel := s.generationContext(ctx)
	defer cancel()
	res, err := s.gen.EditWithInstruction(gctx, prompt, base.Image)

	if lerr := s.lock(); lerr != nil {
		return lerr
	}
	defer s.unlock()
	defer s.end(ctx)

	if err != nil {
		s.say(chat.RoleModel, s.fail(err), "")
		return &GenerationError{Op: "edit with instruction", Err: err}
	}

	s.lastErr = ""
	switch {
	case res.Empty():
		s.say(chat.RoleModel, chat.SoftFailureText, "")
	case res.Image != nil:
		rev := history.NewRevision(s.history.NextSeq(), *res.Image, history.SourceEdit)
		s.history.Push(rev)
		text := res.Text
		if text == "" {
			text = editReplyText
		}
		s.say(chat.RoleModel, text, rev.ID)
	default:
		s.say(chat.RoleModel, res.Text, "")
	}
	return nil
}

// begin marks the studio busy. Callers hold the lock.
func (s *Studio) begin() {
	s.busy = true
	s.syncTarget()
	s.pending = append(s.pending, Notice{Type: NoticeState, Data: s.stateLocked()})
}

// end clears the busy flag and publishes the resulting state. Callers hold
// the lock.
func (s *Studio) end(ctx context.Context) {
	s.busy = false
	s.changed(ctx)
}

// fail records err as the user-visible error and returns its message.
func (s *Studio) fail(err error) string {
	msg := generate.UserMessage(err)
	s.lastErr = msg
	slog.Error("generation failed", "error", err, "session", s.id)
	s.pending = append(s.pending, Notice{Type: NoticeError, Data: ErrorData{Message: msg}})
	return msg
}

func (s *Studio) say(role chat.Role, text, revisionID string) {
	m := s.convo.Append(role, text, revisionID)
	s.pending = append(s.pending, Notice{Type: NoticeMessage, Data: m})
}
