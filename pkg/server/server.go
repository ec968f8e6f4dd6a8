package server

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/docker/docqa/pkg/model"
	"github.com/docker/docqa/pkg/pdf"
	"github.com/docker/docqa/pkg/rag/catalog"
	"github.com/docker/docqa/pkg/rag/prompt"
	"github.com/docker/docqa/pkg/rag/session"
)

const uploadMessage = "Arquivo PDF enviado com sucesso!"

// CompleterFactory creates the generative backend used by /api/ask.
type CompleterFactory func(ctx context.Context, backend model.Backend) (model.Completer, error)

// DocumentLister lists learned documents.
type DocumentLister interface {
	List(ctx context.Context) ([]catalog.Entry, error)
}

// UploadTracker is told about uploads learned directly by the server, so
// that a watcher on the upload directory does not learn them again.
type UploadTracker interface {
	MarkLearned(path, text string)
	Forget(path string)
}

type Server struct {
	e         *echo.Echo
	session   *session.Session
	catalog   DocumentLister
	models    CompleterFactory
	tracker   UploadTracker
	uploadDir string
}

type Opt func(*Server)

// WithUploadDir sets where uploaded files are kept (default "uploads").
func WithUploadDir(dir string) Opt {
	return func(s *Server) {
		s.uploadDir = dir
	}
}

func WithCatalog(c DocumentLister) Opt {
	return func(s *Server) {
		s.catalog = c
	}
}

func WithUploadTracker(t UploadTracker) Opt {
	return func(s *Server) {
		s.tracker = t
	}
}

func WithModels(f CompleterFactory) Opt {
	return func(s *Server) {
		s.models = f
	}
}

func New(sess *session.Session, opts ...Opt) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.CORS())
	e.Use(middleware.RequestLogger())

	s := &Server{
		e:         e,
		session:   sess,
		uploadDir: "uploads",
	}
	for _, opt := range opts {
		opt(s)
	}

	group := e.Group("/api")

	// Health check endpoint
	group.GET("/ping", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	// Upload a document and learn it
	group.POST("/upload", s.upload)
	// Learn raw text
	group.POST("/learn", s.learn)
	// Retrieve the chunks closest to a query
	group.POST("/search", s.search)
	// Answer a question with a generative backend
	group.POST("/ask", s.ask)
	// Forget the active document and everything persisted
	group.POST("/reset", s.reset)
	group.GET("/status", s.status)
	group.GET("/documents", s.documents)

	return s
}

// ServeHTTP makes the server usable with httptest.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.e.ServeHTTP(w, r)
}

// Serve accepts connections on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := http.Server{
		Handler:           s.e,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) && ctx.Err() == nil {
		slog.Error("Failed to start server", "error", err)
		return err
	}

	return nil
}

func (s *Server) upload(c echo.Context) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("missing file: %v", err))
	}

	filename := filepath.Base(strings.ReplaceAll(fh.Filename, `\`, "/"))
	if filename == "." || filename == "/" || filename == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid file name")
	}

	src, err := fh.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("failed to open upload: %v", err))
	}
	defer src.Close()

	path, err := s.saveUpload(src, filename)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, fmt.Sprintf("failed to save upload: %v", err))
	}

	text, err := pdf.ReadDocument(path)
	if err != nil {
		if errors.Is(err, pdf.ErrUnsupported) {
			return echo.NewHTTPError(http.StatusUnsupportedMediaType, err.Error())
		}
		return echo.NewHTTPError(http.StatusUnprocessableEntity, fmt.Sprintf("failed to read document: %v", err))
	}

	if s.tracker != nil {
		s.tracker.MarkLearned(path, text)
	}
	result, err := s.session.Learn(c.Request().Context(), text, filename)
	if err != nil {
		if s.tracker != nil {
			s.tracker.Forget(path)
		}
		return echo.NewHTTPError(http.StatusInternalServerError, fmt.Sprintf("failed to learn document: %v", err))
	}

	return c.JSON(http.StatusOK, UploadResponse{
		Filename: filename,
		Message:  uploadMessage,
		Learn:    result,
	})
}

func (s *Server) saveUpload(src io.Reader, filename string) (string, error) {
	if err := os.MkdirAll(s.uploadDir, 0o755); err != nil {
		return "", err
	}

	path := filepath.Join(s.uploadDir, filename)
	dst, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return "", err
	}
	if err := dst.Close(); err != nil {
		return "", err
	}

	slog.Debug("Saved upload", "path", path)
	return path, nil
}

func (s *Server) learn(c echo.Context) error {
	var req LearnRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
	}

	result, err := s.session.Learn(c.Request().Context(), req.Text, cmp.Or(req.Source, "document"))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, fmt.Sprintf("failed to learn document: %v", err))
	}

	return c.JSON(http.StatusOK, result)
}

func (s *Server) search(c echo.Context) error {
	var req SearchRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
	}

	matches, err := s.session.SearchHits(c.Request().Context(), req.Query, req.K)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, fmt.Sprintf("failed to search: %v", err))
	}

	return c.JSON(http.StatusOK, SearchResponse{Results: matches})
}

func (s *Server) ask(c echo.Context) error {
	var req AskRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
	}
	if strings.TrimSpace(req.Question) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "question is required")
	}

	backend, err := model.ParseBackend(cmp.Or(req.Model, string(model.GPT)))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if s.session.State() == session.StateEmpty {
		return echo.NewHTTPError(http.StatusBadRequest, session.ErrNoDocument.Error())
	}
	if s.models == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "no model backends configured")
	}

	ctx := c.Request().Context()

	chunks, err := s.session.Search(ctx, req.Question, req.K)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, fmt.Sprintf("failed to search: %v", err))
	}

	completer, err := s.models(ctx, backend)
	if err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, fmt.Sprintf("model %s unavailable: %v", backend, err))
	}

	answer, err := completer.Complete(ctx, prompt.Build(req.Question, chunks))
	if err != nil {
		slog.Error("Model call failed", "backend", backend, "error", err)
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}

	return c.JSON(http.StatusOK, AskResponse{
		Model:   string(backend),
		Label:   backend.Label(),
		Answer:  answer,
		Context: chunks,
	})
}

func (s *Server) reset(c echo.Context) error {
	if err := s.session.Reset(c.Request().Context()); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, fmt.Sprintf("failed to reset: %v", err))
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) status(c echo.Context) error {
	resp := StatusResponse{State: s.session.State()}
	if meta, ok := s.session.Meta(); ok {
		resp.SourceFilename = meta.SourceFilename
		resp.NChunks = meta.NChunks
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) documents(c echo.Context) error {
	if s.catalog == nil {
		return c.JSON(http.StatusOK, []catalog.Entry{})
	}

	entries, err := s.catalog.List(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, fmt.Sprintf("failed to list documents: %v", err))
	}
	if entries == nil {
		entries = []catalog.Entry{}
	}
	return c.JSON(http.StatusOK, entries)
}
