package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/tendant/simple-features/pkg/blob"
	_ "github.com/tendant/simple-features/pkg/featuredefs"
	"github.com/tendant/simple-features/pkg/features"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	locator, err := features.Default()
	if err != nil {
		slog.Error("failed to load feature config", "error", err)
		os.Exit(1)
	}
	store, err := features.GetByType[blob.Storage](context.Background(), locator)
	if err != nil {
		slog.Error("failed to resolve blob storage", "error", err)
		os.Exit(1)
	}

	server := NewBlobServer(store)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%s", port),
		Handler: server.Routes(),
	}

	go func() {
		slog.Info("server starting", "port", port, "storage", store.ID())
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}
	slog.Info("server exiting")
}

// BlobServer exposes a blob storage over HTTP.
type BlobServer struct {
	store blob.Storage
}

// NewBlobServer creates a new HTTP wrapper over the given storage.
func NewBlobServer(store blob.Storage) *BlobServer {
	return &BlobServer{store: store}
}

// Routes sets up the HTTP routes.
func (s *BlobServer) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	r.Route("/blobs", func(r chi.Router) {
		r.Get("/", s.handleList)
		r.Get("/*", s.handleGet)
		r.Put("/*", s.handlePut)
		r.Delete("/*", s.handleDelete)
	})

	return r
}

func (s *BlobServer) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	err := s.store.Walk(ctx, func(b blob.Blob) error {
		_, err := fmt.Fprintln(w, b.Key())
		return err
	})
	if err != nil {
		slog.Error("listing blobs", "error", err)
	}
}

func (s *BlobServer) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	key := chi.URLParam(r, "*")

	b, err := s.store.Get(ctx, key)
	if err != nil {
		writeStorageError(w, err)
		return
	}
	rc, err := b.Open(ctx)
	if err != nil {
		writeStorageError(w, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	if _, err := io.Copy(w, rc); err != nil {
		slog.Error("streaming blob", "key", key, "error", err)
	}
}

func (s *BlobServer) handlePut(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	key := chi.URLParam(r, "*")

	if err := s.store.Put(ctx, key, r.Body); err != nil {
		writeStorageError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *BlobServer) handleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	key := chi.URLParam(r, "*")

	del, ok := s.store.(blob.DeletableStorage)
	if !ok {
		http.Error(w, "storage does not support delete", http.StatusMethodNotAllowed)
		return
	}
	if err := del.Delete(ctx, key); err != nil {
		writeStorageError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeStorageError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, blob.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, blob.ErrKeyEscapesRoot):
		http.Error(w, "invalid key", http.StatusBadRequest)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
