package studio

import "log/slog"

// NoticeType names what changed. The values double as live protocol message
// types.
type NoticeType string

const (
	NoticeState     NoticeType = "state"
	NoticeHover     NoticeType = "hover"
	NoticePreview   NoticeType = "preview"
	NoticePlacement NoticeType = "placement"
	NoticeMessage   NoticeType = "chat.message"
	NoticeError     NoticeType = "error"
)

// Notice is delivered to subscribers after a studio change.
type Notice struct {
	Type NoticeType
	Data any
}

type HoverData struct {
	TargetID string `json:"targetId"`
}

type ErrorData struct {
	Message string `json:"message"`
}

// Subscribe registers fn for every notice and returns a function that
// removes it. fn runs on the goroutine that made the change and must not
// block.
func (s *Studio) Subscribe(fn func(Notice)) func() {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	s.nextSub++
	id := s.nextSub
	s.subs[id] = fn
	return func() {
		s.subsMu.Lock()
		delete(s.subs, id)
		s.subsMu.Unlock()
	}
}

func (s *Studio) dispatch(notices []Notice) {
	if len(notices) == 0 {
		return
	}
	s.subsMu.Lock()
	fns := make([]func(Notice), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subsMu.Unlock()

	for _, n := range notices {
		for _, fn := range fns {
			func() {
				defer func() {
					if r := recover(); r != nil {
						slog.Error("studio subscriber panicked", "panic", r, "session", s.id, "notice", n.Type)
					}
				}()
				fn(n)
			}()
		}
	}
}

// Idle reports whether no subscriber is attached and no generation is
// running.
func (s *Studio) Idle() bool {
	s.subsMu.Lock()
	n := len(s.subs)
	s.subsMu.Unlock()
	if n > 0 {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.busy
}
