package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/Nikhil-Joson/HomeCanvas/internal/asset"
	"github.com/Nikhil-Joson/HomeCanvas/internal/auth"
	"github.com/Nikhil-Joson/HomeCanvas/internal/chat"
	"github.com/Nikhil-Joson/HomeCanvas/internal/export"
	"github.com/Nikhil-Joson/HomeCanvas/internal/generate"
	"github.com/Nikhil-Joson/HomeCanvas/internal/geometry"
	"github.com/Nikhil-Joson/HomeCanvas/internal/gizmo"
	"github.com/Nikhil-Joson/HomeCanvas/internal/history"
	"github.com/Nikhil-Joson/HomeCanvas/internal/imaging"
	"github.com/Nikhil-Joson/HomeCanvas/internal/live"
	mw "github.com/Nikhil-Joson/HomeCanvas/internal/middleware"
	"github.com/Nikhil-Joson/HomeCanvas/internal/studio"
	"github.com/Nikhil-Joson/HomeCanvas/internal/typeid"
)

type Handler struct {
	sessions       *Manager
	tokens         *auth.Service
	hub            *live.Hub
	exporter       *export.Exporter
	maxUploadBytes int64
	originPatterns []string
}

type Config struct {
	MaxUploadBytes int64
	// OriginPatterns are the websocket origin host patterns.
	OriginPatterns []string
}

func NewHandler(sessions *Manager, tokens *auth.Service, hub *live.Hub, exporter *export.Exporter, cfg Config) *Handler {
	return &Handler{
		sessions:       sessions,
		tokens:         tokens,
		hub:            hub,
		exporter:       exporter,
		maxUploadBytes: cfg.MaxUploadBytes,
		originPatterns: cfg.OriginPatterns,
	}
}

// Register mounts the session routes on r. Everything under /api and /ws
// requires a token issued for the session in the path.
func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/sessions", h.Create).Methods("POST")

	api := r.PathPrefix("/api/sessions/{id}").Subrouter()
	api.Use(h.tokens.SessionMiddleware, mw.Compress)
	api.HandleFunc("", h.Get).Methods("GET")
	api.HandleFunc("", h.Delete).Methods("DELETE")
	api.HandleFunc("/token", auth.NewHandler(h.tokens).Refresh).Methods("POST")
	api.HandleFunc("/product", h.UploadProduct).Methods("POST")
	api.HandleFunc("/scene", h.UploadScene).Methods("POST")
	api.HandleFunc("/placements", h.Place).Methods("POST")
	api.HandleFunc("/undo", h.Undo).Methods("POST")
	api.HandleFunc("/redo", h.Redo).Methods("POST")
	api.HandleFunc("/reset", h.Reset).Methods("POST")
	api.HandleFunc("/chat", h.Chat).Methods("POST")
	api.HandleFunc("/gizmo", h.Gizmo).Methods("PUT")
	api.HandleFunc("/export", h.Export).Methods("GET")

	ws := r.PathPrefix("/ws/sessions/{id}").Subrouter()
	ws.Use(h.tokens.SessionMiddleware)
	ws.HandleFunc("", h.Live)
}

type createResponse struct {
	SessionID string       `json:"sessionId"`
	Token     string       `json:"token"`
	State     studio.State `json:"state"`
}

type placementRequest struct {
	Pointer   geometry.Point `json:"pointer"`
	Container geometry.Rect  `json:"container"`
	Natural   geometry.Size  `json:"natural"`
}

type chatRequest struct {
	Prompt  string `json:"prompt"`
	Context string `json:"context"`
}

type gizmoRequest struct {
	Action    string           `json:"action"` // stage, patch, confirm or cancel
	Transform *gizmo.Transform `json:"transform,omitempty"`
	Patch     *gizmo.Patch     `json:"patch,omitempty"`
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	st, err := h.sessions.Create(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	token, err := h.tokens.IssueToken(st.ID())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, createResponse{SessionID: st.ID(), Token: token, State: st.State()})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	st, ok := h.studio(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, st.State())
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) UploadProduct(w http.ResponseWriter, r *http.Request) {
	h.upload(w, r, (*studio.Studio).SetProduct)
}

func (h *Handler) UploadScene(w http.ResponseWriter, r *http.Request) {
	h.upload(w, r, (*studio.Studio).SetScene)
}

func (h *Handler) upload(w http.ResponseWriter, r *http.Request, apply func(*studio.Studio, context.Context, history.Image, string) error) {
	st, ok := h.studio(w, r)
	if !ok {
		return
	}

	up, err := asset.ReadUpload(w, r, h.maxUploadBytes)
	if err != nil {
		var decodeErr *imaging.DecodeError
		switch {
		case errors.As(err, &decodeErr):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "file is not a supported image"})
		case errors.Is(err, asset.ErrUploadTooLarge), errors.Is(err, asset.ErrMissingFile):
			handleServiceError(w, err)
		default:
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		}
		return
	}

	if err := apply(st, r.Context(), up.Image, up.Label); err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st.State())
}

func (h *Handler) Place(w http.ResponseWriter, r *http.Request) {
	st, ok := h.studio(w, r)
	if !ok {
		return
	}

	var req placementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	err := st.PlaceAt(r.Context(), req.Pointer, req.Container, req.Natural)
	if errors.Is(err, geometry.ErrOutOfBounds) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st.State())
}

func (h *Handler) Undo(w http.ResponseWriter, r *http.Request) {
	st, ok := h.studio(w, r)
	if !ok {
		return
	}
	if _, err := st.Undo(r.Context()); err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st.State())
}

func (h *Handler) Redo(w http.ResponseWriter, r *http.Request) {
	st, ok := h.studio(w, r)
	if !ok {
		return
	}
	if _, err := st.Redo(r.Context()); err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st.State())
}

func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	st, ok := h.studio(w, r)
	if !ok {
		return
	}
	if err := st.Reset(r.Context()); err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st.State())
}

func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	st, ok := h.studio(w, r)
	if !ok {
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	c, err := chat.ParseContext(req.Context)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	if err := st.Chat(r.Context(), req.Prompt, c); err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st.State())
}

func (h *Handler) Gizmo(w http.ResponseWriter, r *http.Request) {
	st, ok := h.studio(w, r)
	if !ok {
		return
	}

	var req gizmoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	var err error
	switch req.Action {
	case "stage":
		if req.Transform == nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "transform is required"})
			return
		}
		err = st.StageProduct(*req.Transform)
	case "patch":
		if req.Patch == nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "patch is required"})
			return
		}
		err = st.PatchGizmo(*req.Patch)
	case "confirm":
		err = st.ConfirmGizmo(r.Context())
		if errors.Is(err, geometry.ErrOutOfBounds) {
			w.WriteHeader(http.StatusNoContent)
			return
		}
	case "cancel":
		err = st.CancelGizmo()
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "action must be stage, patch, confirm or cancel"})
		return
	}
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st.State())
}

func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	st, ok := h.studio(w, r)
	if !ok {
		return
	}

	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	fps := 1
	if v := r.URL.Query().Get("fps"); v != "" {
		if fps, err = strconv.Atoi(v); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "fps must be an integer"})
			return
		}
	}

	res, err := h.exporter.Timelapse(r.Context(), st.Visible(), format, fps)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	defer res.Close()

	f, err := os.Open(res.Path)
	if err != nil {
		handleServiceError(w, fmt.Errorf("open export: %w", err))
		return
	}
	defer f.Close()
	stat, err := f.Stat()
	if err != nil {
		handleServiceError(w, fmt.Errorf("stat export: %w", err))
		return
	}

	w.Header().Set("Content-Type", res.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.%s"`, typeid.NewExportID(), format))
	w.Header().Set("Content-Length", strconv.FormatInt(stat.Size(), 10))
	io.Copy(w, f)
}

// Live upgrades to the session's websocket channel.
func (h *Handler) Live(w http.ResponseWriter, r *http.Request) {
	st, ok := h.studio(w, r)
	if !ok {
		return
	}
	h.hub.Serve(w, r, st, h.originPatterns)
}

func (h *Handler) studio(w http.ResponseWriter, r *http.Request) (*studio.Studio, bool) {
	st, err := h.sessions.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		handleServiceError(w, err)
		return nil, false
	}
	return st, true
}

func handleServiceError(w http.ResponseWriter, err error) {
	var genErr *studio.GenerationError
	switch {
	case errors.Is(err, ErrSessionNotFound), errors.Is(err, studio.ErrClosed):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "session not found"})
	case errors.Is(err, asset.ErrUploadTooLarge):
		writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": err.Error()})
	case errors.Is(err, studio.ErrBusy):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.Is(err, studio.ErrNoProduct),
		errors.Is(err, studio.ErrNoScene),
		errors.Is(err, studio.ErrEmptyPrompt),
		errors.Is(err, gizmo.ErrNotStaged),
		errors.Is(err, geometry.ErrInvalidGeometry),
		errors.Is(err, asset.ErrMissingFile),
		errors.Is(err, export.ErrInvalidFormat),
		errors.Is(err, export.ErrNoFrames):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.As(err, &genErr):
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": generate.UserMessage(err)})
	default:
		slog.Error("service error", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
