// Package studio is the per-session engine. It owns the scene history, the
// chat, the placement gesture and gizmo state, and the display handles that
// back what the user currently sees. Every mutation is serialized by the
// studio's mutex; generation calls run outside it behind a busy flag.
package studio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Nikhil-Joson/HomeCanvas/internal/asset"
	"github.com/Nikhil-Joson/HomeCanvas/internal/chat"
	"github.com/Nikhil-Joson/HomeCanvas/internal/generate"
	"github.com/Nikhil-Joson/HomeCanvas/internal/geometry"
	"github.com/Nikhil-Joson/HomeCanvas/internal/gesture"
	"github.com/Nikhil-Joson/HomeCanvas/internal/gizmo"
	"github.com/Nikhil-Joson/HomeCanvas/internal/history"
	"github.com/Nikhil-Joson/HomeCanvas/internal/store"
)

// SceneTargetID is the drop target id of the scene image.
const SceneTargetID = "scene"

const DefaultTimeout = 2 * time.Minute

// PersistTimeout bounds each journal save. Saves run under the studio lock.
const PersistTimeout = 10 * time.Second

var (
	ErrBusy        = errors.New("a generation is already in progress")
	ErrNoProduct   = errors.New("no product image loaded")
	ErrNoScene     = errors.New("no scene image loaded")
	ErrEmptyPrompt = errors.New("prompt is empty")
	ErrClosed      = errors.New("studio is closed")
)

// Publisher materializes images as display handles. asset.Store implements
// it.
type Publisher interface {
	Publish(img history.Image) (asset.Handle, error)
	Release(h asset.Handle) error
}

// Options configures a Studio. Generator and Assets are required.
type Options struct {
	Generator generate.Service
	Assets    Publisher
	// Journal persists state after each change. Nil disables persistence.
	Journal store.Journal
	// Timeout bounds each generation call. Zero uses DefaultTimeout.
	Timeout time.Duration
}

// Studio is safe for concurrent use.
type Studio struct {
	id      string
	gen     generate.Service
	assets  Publisher
	journal store.Journal
	timeout time.Duration

	mu           sync.Mutex
	closed       bool
	history      *history.History
	convo        *chat.Conversation
	selector     *chat.ContextSelector
	gestures     *gesture.Controller
	scene        *gesture.Region
	gizmo        *gizmo.Gizmo
	product      *history.Image
	productLabel string
	sceneLabel   string
	busy         bool
	lastErr      string
	lastPrompt   string

	// Display handles keyed by revision id, plus the product and the last
	// composite's debug image.
	handles       map[string]asset.Handle
	productHandle asset.Handle
	debugHandle   asset.Handle

	dropped *gesture.PlacementEvent
	pending []Notice

	subsMu  sync.Mutex
	subs    map[int]func(Notice)
	nextSub int
}

// New creates an empty studio for session id.
func New(id string, opts Options) *Studio {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	s := &Studio{
		id:       id,
		gen:      opts.Generator,
		assets:   opts.Assets,
		journal:  opts.Journal,
		timeout:  timeout,
		history:  history.New(),
		convo:    chat.NewConversation(),
		selector: chat.NewContextSelector(),
		gestures: gesture.NewController(nil),
		scene:    gesture.NewRegion(SceneTargetID),
		gizmo:    gizmo.New(),
		handles:  make(map[string]asset.Handle),
		subs:     make(map[int]func(Notice)),
	}
	s.history.OnRelease(s.releaseRevision)
	s.gestures.AddTarget(s.scene)
	s.gestures.Listen(gesture.Listener{
		OnHover: func(id string) {
			s.pending = append(s.pending, Notice{Type: NoticeHover, Data: HoverData{TargetID: id}})
		},
		OnPreview: func(p gesture.Preview) {
			s.pending = append(s.pending, Notice{Type: NoticePreview, Data: p})
		},
		OnPlacement: func(ev gesture.PlacementEvent) {
			s.dropped = &ev
			s.pending = append(s.pending, Notice{Type: NoticePlacement, Data: ev})
		},
	})
	s.syncTarget()
	return s
}

func (s *Studio) ID() string { return s.id }

// lock acquires the studio mutex. The returned error is ErrClosed after
// Close; the mutex is not held in that case.
func (s *Studio) lock() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	return nil
}

// unlock releases the mutex and then delivers notices queued while it was
// held, so subscribers never run under the lock.
func (s *Studio) unlock() {
	notices := s.pending
	s.pending = nil
	s.mu.Unlock()
	s.dispatch(notices)
}

// changed records a state transition: the drop target and display handles
// follow the history, the chat context is reconciled, state is persisted and
// a state notice is queued. Callers hold the lock.
func (s *Studio) changed(ctx context.Context) {
	s.selector.Reconcile(s.history)
	s.syncTarget()
	s.syncDisplay()
	s.persist(ctx)
	s.pending = append(s.pending, Notice{Type: NoticeState, Data: s.stateLocked()})
}

// syncTarget points the scene drop target at the current revision. Drops
// need a product and an idle studio; a drag hovering the scene when it stops
// accepting drops is cancelled.
func (s *Studio) syncTarget() {
	if rev, ok := s.history.Current(); ok {
		s.scene.SetNaturalSize(naturalSize(rev.Image))
	} else {
		s.scene.SetNaturalSize(geometry.Size{})
	}
	s.scene.SetEnabled(s.product != nil && !s.busy)

	if sess, ok := s.gestures.Session(); ok && sess.Hovered != nil &&
		sess.Hovered.ID() == SceneTargetID && !s.scene.Enabled() {
		s.gestures.Cancel(gesture.ReasonTargetDisabled)
	}
}

// syncDisplay keeps exactly the current and previous revisions published.
func (s *Studio) syncDisplay() {
	want := make(map[string]history.Revision, 2)
	if rev, ok := s.history.Current(); ok {
		want[rev.ID] = rev
	}
	if rev, ok := s.history.Previous(); ok {
		want[rev.ID] = rev
	}

	for id, h := range s.handles {
		if _, ok := want[id]; !ok {
			s.release(h)
			delete(s.handles, id)
		}
	}
	for id, rev := range want {
		if _, ok := s.handles[id]; ok {
			continue
		}
		h, err := s.assets.Publish(rev.Image)
		if err != nil {
			slog.Error("publish revision", "error", err, "session", s.id, "revision", id)
			continue
		}
		s.handles[id] = h
	}
}

// releaseRevision is the history release hook for revisions dropped by
// truncation, reset or restore.
func (s *Studio) releaseRevision(rev history.Revision) {
	if h, ok := s.handles[rev.ID]; ok {
		s.release(h)
		delete(s.handles, rev.ID)
	}
}

func (s *Studio) release(h asset.Handle) {
	if err := s.assets.Release(h); err != nil {
		slog.Warn("release display handle", "error", err, "session", s.id, "handle", h.ID)
	}
}

func (s *Studio) persist(ctx context.Context) {
	if s.journal == nil {
		return
	}
	snap := &store.Snapshot{
		SessionID:    s.id,
		Revisions:    s.history.Revisions(),
		Index:        s.history.Index(),
		Messages:     s.convo.Messages(),
		Product:      s.product,
		ProductLabel: s.productLabel,
		SceneLabel:   s.sceneLabel,
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), PersistTimeout)
	defer cancel()
	if err := s.journal.Save(ctx, snap); err != nil {
		slog.Error("persist session", "error", err, "session", s.id)
	}
}

// SetProduct replaces the product image and stages an overlay for it at the
// centre of the scene.
func (s *Studio) SetProduct(ctx context.Context, img history.Image, label string) error {
	if err := s.lock(); err != nil {
		return err
	}
	defer s.unlock()

	h, err := s.assets.Publish(img)
	if err != nil {
		return fmt.Errorf("publish product: %w", err)
	}
	s.release(s.productHandle)
	s.productHandle = h
	s.product = &img
	s.productLabel = label

	bounds := s.scene.Bounds()
	width := float64(img.Width)
	if !bounds.IsEmpty() && width > bounds.Width/4 {
		width = bounds.Width / 4
	}
	s.gizmo.Stage(gizmo.Transform{X: bounds.Width / 2, Y: bounds.Height / 2, Scale: 1, Width: width})

	s.changed(ctx)
	return nil
}

// SetScene discards the current session context and seeds a fresh history
// with img as its first revision.
func (s *Studio) SetScene(ctx context.Context, img history.Image, label string) error {
	if err := s.lock(); err != nil {
		return err
	}
	defer s.unlock()

	s.history.Reset()
	s.convo.Reset()
	s.selector.Choose(chat.ContextCurrent)
	s.clearDebug()
	s.lastErr = ""
	s.sceneLabel = label
	s.history.Push(history.NewRevision(s.history.NextSeq(), img, history.SourceUpload))

	s.changed(ctx)
	return nil
}

// SetLayout records where the scene is displayed on the client, in client
// coordinates.
func (s *Studio) SetLayout(bounds geometry.Rect) error {
	if err := s.lock(); err != nil {
		return err
	}
	defer s.unlock()
	s.scene.SetLayout(bounds)
	return nil
}

// Undo moves back one revision. It reports whether the cursor moved.
func (s *Studio) Undo(ctx context.Context) (bool, error) {
	return s.step(ctx, s.history.Undo)
}

// Redo moves forward one revision. It reports whether the cursor moved.
func (s *Studio) Redo(ctx context.Context) (bool, error) {
	return s.step(ctx, s.history.Redo)
}

func (s *Studio) step(ctx context.Context, move func() bool) (bool, error) {
	if err := s.lock(); err != nil {
		return false, err
	}
	defer s.unlock()
	if !move() {
		return false, nil
	}
	s.changed(ctx)
	return true, nil
}

// Reset discards the scene, the product, the chat and any staged overlay.
// An in-flight generation is not cancelled; its result lands in the fresh
// history.
func (s *Studio) Reset(ctx context.Context) error {
	if err := s.lock(); err != nil {
		return err
	}
	defer s.unlock()

	s.gestures.Cancel(gesture.ReasonInterrupted)
	s.history.Reset()
	s.convo.Reset()
	s.selector.Choose(chat.ContextCurrent)
	s.gizmo.Cancel()
	s.release(s.productHandle)
	s.productHandle = asset.Handle{}
	s.product = nil
	s.productLabel = ""
	s.sceneLabel = ""
	s.clearDebug()
	s.lastErr = ""
	s.lastPrompt = ""

	s.changed(ctx)
	return nil
}

func (s *Studio) clearDebug() {
	s.release(s.debugHandle)
	s.debugHandle = asset.Handle{}
}

// Restore loads persisted state into an empty studio.
func (s *Studio) Restore(ctx context.Context, snap *store.Snapshot) error {
	if err := s.lock(); err != nil {
		return err
	}
	defer s.unlock()

	if err := s.history.Restore(snap.Revisions, snap.Index); err != nil {
		return fmt.Errorf("restore history: %w", err)
	}
	s.convo.Restore(snap.Messages)
	s.sceneLabel = snap.SceneLabel
	s.productLabel = snap.ProductLabel
	if snap.Product != nil {
		h, err := s.assets.Publish(*snap.Product)
		if err != nil {
			return fmt.Errorf("publish product: %w", err)
		}
		p := *snap.Product
		s.product = &p
		s.productHandle = h
	}

	s.selector.Reconcile(s.history)
	s.syncTarget()
	s.syncDisplay()
	return nil
}

// Visible returns the revisions up to the cursor, oldest first.
func (s *Studio) Visible() []history.Revision {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.Visible()
}

// Close releases every display handle. Later calls fail with ErrClosed.
func (s *Studio) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.gestures.Cancel(gesture.ReasonTargetRemoved)
	s.gestures.RemoveTarget(SceneTargetID)
	for id, h := range s.handles {
		s.release(h)
		delete(s.handles, id)
	}
	s.release(s.productHandle)
	s.productHandle = asset.Handle{}
	s.clearDebug()
	s.pending = nil
	s.mu.Unlock()

	s.subsMu.Lock()
	clear(s.subs)
	s.subsMu.Unlock()
}

// generationContext detaches the call from the caller's cancellation; the
// studio timeout still bounds it.
func (s *Studio) generationContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
}

func naturalSize(img history.Image) geometry.Size {
	return geometry.Size{Width: float64(img.Width), Height: float64(img.Height)}
}
