// Package server exposes the ingestion pipeline over HTTP. One POST per
// ingestion kind, invoked once per chunk by the driving client; the
// response carries the updated stats the client must send back with the
// next chunk.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/raphaelgruber/stockroom-go/internal/ingest"
	"github.com/raphaelgruber/stockroom-go/internal/metrics"
	"github.com/raphaelgruber/stockroom-go/internal/models"
)

// actorHeader carries the acting identity the auth gate established.
// Permission evaluation happened upstream; the pipeline only stamps it.
const actorHeader = "X-Stockroom-Actor"

// multipartMemory is the in-memory threshold for multipart parsing;
// larger files spool to disk.
const multipartMemory = 32 << 20

// Pipeline is the chunk orchestrator the server fronts.
type Pipeline interface {
	ImportItems(ctx context.Context, chunk ingest.ImportChunk) (models.Stats, error)
	ImportIndividuals(ctx context.Context, chunk ingest.ImportChunk) (models.Stats, error)
	UploadAttachments(ctx context.Context, chunk ingest.UploadChunk) (models.Stats, error)
}

// Server wires the pipeline to the HTTP surface.
type Server struct {
	Pipeline       Pipeline
	Collector      *metrics.Collector
	MaxUploadBytes int64
}

// Router builds the HTTP handler.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/v1", func(r chi.Router) {
		r.Post("/import/items", s.handleImportItems)
		r.Post("/import/individuals", s.handleImportIndividuals)
		r.Post("/attachments/{entity}", s.handleUploadAttachments)
		r.Post("/errors/report", s.handleErrorsReport)
		r.Get("/stats", s.handleStats)
	})

	return r
}

// importRequest is the body of one import chunk call.
type importRequest struct {
	Actor       string       `json:"actor,omitempty"`
	ProjectCode string       `json:"projectCode,omitempty"`
	Total       int          `json:"total"`
	IsLast      bool         `json:"isLast"`
	Stats       models.Stats `json:"stats"`
	Rows        []models.Row `json:"rows"`
}

// uploadMeta is the JSON "meta" field of one upload chunk call.
type uploadMeta struct {
	Actor  string       `json:"actor,omitempty"`
	Ref    string       `json:"ref,omitempty"`
	Total  int          `json:"total"`
	IsLast bool         `json:"isLast"`
	Stats  models.Stats `json:"stats"`
}

// chunkResponse is the envelope every chunk call returns. On a fatal
// chunk failure OK is false and Message is the top-level error, distinct
// from the per-unit errors inside Stats.
type chunkResponse struct {
	OK      bool         `json:"ok"`
	Message string       `json:"message"`
	Stats   models.Stats `json:"stats"`
}

func (s *Server) handleImportItems(w http.ResponseWriter, r *http.Request) {
	s.handleImport(w, r, s.Pipeline.ImportItems)
}

func (s *Server) handleImportIndividuals(w http.ResponseWriter, r *http.Request) {
	s.handleImport(w, r, s.Pipeline.ImportIndividuals)
}

func (s *Server) handleImport(
	w http.ResponseWriter,
	r *http.Request,
	process func(context.Context, ingest.ImportChunk) (models.Stats, error),
) {
	var req importRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}

	stats, err := process(r.Context(), ingest.ImportChunk{
		Actor:       actor(r, req.Actor),
		ProjectCode: req.ProjectCode,
		Rows:        req.Rows,
		Total:       req.Total,
		Stats:       req.Stats,
		IsLast:      req.IsLast,
	})
	writeChunkResponse(w, stats, err)
}

func (s *Server) handleUploadAttachments(w http.ResponseWriter, r *http.Request) {
	entity := chi.URLParam(r, "entity")

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("parse multipart: %w", err))
		return
	}

	var meta uploadMeta
	if raw := r.FormValue("meta"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &meta); err != nil {
			writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid meta JSON: %w", err))
			return
		}
	}

	var files []models.FileUnit
	if r.MultipartForm != nil {
		for _, header := range r.MultipartForm.File["files"] {
			unit := models.FileUnit{
				Name:        header.Filename,
				Size:        header.Size,
				ContentType: header.Header.Get("Content-Type"),
			}
			// Oversized files are not read into memory; the validator
			// rejects them from the declared size alone.
			if s.MaxUploadBytes <= 0 || header.Size <= s.MaxUploadBytes {
				f, err := header.Open()
				if err != nil {
					writeErr(w, http.StatusBadRequest, fmt.Errorf("open file part %q: %w", header.Filename, err))
					return
				}
				data, err := io.ReadAll(f)
				_ = f.Close()
				if err != nil {
					writeErr(w, http.StatusBadRequest, fmt.Errorf("read file part %q: %w", header.Filename, err))
					return
				}
				unit.Data = data
				unit.Size = int64(len(data))
			}
			files = append(files, unit)
		}
	}

	stats, err := s.Pipeline.UploadAttachments(r.Context(), ingest.UploadChunk{
		Actor:  actor(r, meta.Actor),
		Entity: entity,
		Ref:    meta.Ref,
		Files:  files,
		Total:  meta.Total,
		Stats:  meta.Stats,
		IsLast: meta.IsLast,
	})
	writeChunkResponse(w, stats, err)
}

// handleErrorsReport flattens a stats object into the exportable
// master/detail error report.
func (s *Server) handleErrorsReport(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Stats models.Stats `json:"stats"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}
	writeJSON(w, http.StatusOK, models.BuildErrorReport(req.Stats))
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	if s.Collector == nil {
		writeJSON(w, http.StatusOK, metrics.Snapshot{})
		return
	}
	writeJSON(w, http.StatusOK, s.Collector.Snapshot())
}

func actor(r *http.Request, bodyActor string) string {
	if h := r.Header.Get(actorHeader); h != "" {
		return h
	}
	return bodyActor
}

// writeChunkResponse maps the orchestrator outcome to the response
// envelope. Pipeline failures still return the updated stats so the
// client keeps what prior chunks accumulated.
func writeChunkResponse(w http.ResponseWriter, stats models.Stats, err error) {
	resp := chunkResponse{OK: true, Message: "chunk processed", Stats: stats}
	switch {
	case err == nil:
	case errors.Is(err, ingest.ErrCommitFailed):
		resp.OK = false
		resp.Message = ingest.MsgBatchWriteError
	default:
		resp.OK = false
		resp.Message = "Unexpected error"
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
