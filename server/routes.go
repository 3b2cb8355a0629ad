package server

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/siegeai/jsonstruct/ident"
	"github.com/siegeai/jsonstruct/infer"
	"github.com/siegeai/jsonstruct/lattice"
	"github.com/siegeai/jsonstruct/pipeline"
	"github.com/siegeai/jsonstruct/source"
	"github.com/urfave/negroni"
)

// ErrorResponse is the JSON body of every non-200 answer. The conflict
// fields are set for 422 responses caused by disagreeing documents.
type ErrorResponse struct {
	Error      string `json:"error"`
	Path       string `json:"path,omitempty"`
	Member     string `json:"member,omitempty"`
	Left       string `json:"left,omitempty"`
	Right      string `json:"right,omitempty"`
	Identifier string `json:"identifier,omitempty"`
}

func (s *Server) logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := negroni.NewResponseWriter(w)
		next.ServeHTTP(ww, r)
		s.logger.Info("handled request",
			"method", r.Method,
			"uri", r.RequestURI,
			"status", ww.Status(),
			"bytes", ww.Size(),
			"elapsed", time.Since(start))
	})
}

func (s *Server) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok\n"))
	}
}

type inferRequest struct {
	opts   pipeline.Options
	format source.Format
	body   []byte
}

func parseInferRequest(w http.ResponseWriter, r *http.Request, maxBody int64) (*inferRequest, error) {
	q := r.URL.Query()

	dialect, err := pipeline.ParseDialect(q.Get("dialect"))
	if err != nil {
		return nil, err
	}
	format, err := source.ParseFormat(q.Get("format"))
	if err != nil {
		return nil, err
	}
	if format == source.Auto {
		format = formatForContentType(r.Header.Get("Content-Type"))
	}
	mutable := false
	if v := q.Get("mutable"); v != "" {
		if mutable, err = strconv.ParseBool(v); err != nil {
			return nil, fmt.Errorf("mutable: %w", err)
		}
	}
	name := q.Get("name")
	if name == "" {
		name = "Root"
	}

	body, err := source.ReadAllEncoded(r.Header.Get("Content-Encoding"), http.MaxBytesReader(w, r.Body, maxBody))
	if err != nil {
		return nil, err
	}

	return &inferRequest{
		opts: pipeline.Options{
			Root:    name,
			Mutable: mutable,
			Dialect: dialect,
			Package: q.Get("package"),
		},
		format: format,
		body:   body,
	}, nil
}

func formatForContentType(ct string) source.Format {
	mt, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return source.JSON
	}
	switch mt {
	case "application/x-ndjson", "application/jsonl", "application/x-jsonlines":
		return source.JSONLines
	case "application/yaml", "application/x-yaml", "text/yaml":
		return source.YAML
	}
	return source.JSON
}

// key identifies a request by everything that influences its output.
func (req *inferRequest) key() string {
	h := sha256.New()
	fmt.Fprintf(h, "%s\x00%t\x00%s\x00%s\x00%s\x00", req.opts.Root, req.opts.Mutable, req.opts.Dialect, req.opts.Package, req.format)
	h.Write(req.body)
	return hex.EncodeToString(h.Sum(nil))
}

func (s *Server) handleInfer() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		req, err := parseInferRequest(w, r, s.maxBody)
		if err != nil {
			s.metrics.runs.WithLabelValues(resultInvalid).Inc()
			status := http.StatusBadRequest
			if errors.As(err, new(*http.MaxBytesError)) {
				status = http.StatusRequestEntityTooLarge
			}
			writeError(w, status, &ErrorResponse{Error: err.Error()})
			return
		}
		defer func() {
			s.metrics.duration.WithLabelValues(string(req.opts.Dialect)).Observe(time.Since(start).Seconds())
		}()

		key := req.key()
		if out, ok := s.cache.Get(key); ok {
			s.metrics.runs.WithLabelValues(resultCached).Inc()
			s.writeArtifact(w, r, req, out, "hit")
			return
		}

		docs, err := pipeline.Decode("request", req.format, req.body)
		if err != nil {
			s.metrics.runs.WithLabelValues(resultInvalid).Inc()
			writeError(w, http.StatusBadRequest, &ErrorResponse{Error: err.Error()})
			return
		}

		req.opts.Logger = s.logger
		out, err := pipeline.Run(req.opts, docs)
		if err != nil {
			status, body := classify(err)
			if status == http.StatusInternalServerError {
				s.metrics.runs.WithLabelValues(resultError).Inc()
				s.logger.Error("inference failed", "err", err)
			} else {
				s.metrics.runs.WithLabelValues(resultConflict).Inc()
			}
			writeError(w, status, body)
			return
		}

		s.cache.Add(key, out)
		s.metrics.runs.WithLabelValues(resultOK).Inc()
		s.writeArtifact(w, r, req, out, "miss")
	}
}

func (s *Server) writeArtifact(w http.ResponseWriter, r *http.Request, req *inferRequest, out []byte, cache string) {
	if s.store != nil {
		runID := uuid.NewString()
		if err := s.store.Put(r.Context(), runID, req.opts.Root+req.opts.Dialect.Ext(), out); err != nil {
			s.logger.Warn("could not store artifact", "run", runID, "err", err)
		} else {
			w.Header().Set("X-Jsonstruct-Run", runID)
		}
	}
	w.Header().Set("Content-Type", req.opts.Dialect.ContentType())
	w.Header().Set("X-Jsonstruct-Cache", cache)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out)
}

// classify maps a pipeline error to a status and body. Anything the caller
// can fix by changing the documents is a 422.
func classify(err error) (int, *ErrorResponse) {
	body := &ErrorResponse{Error: err.Error()}

	var conflict *lattice.ConflictError
	var collision *ident.CollisionError
	switch {
	case errors.As(err, &conflict):
		body.Path = conflict.Path
		body.Member = conflict.Member
		body.Left = conflict.Left
		body.Right = conflict.Right
		return http.StatusUnprocessableEntity, body
	case errors.As(err, &collision):
		body.Member = collision.Names[0]
		body.Identifier = collision.Identifier
		return http.StatusUnprocessableEntity, body
	case errors.Is(err, infer.ErrRootNotObject), errors.Is(err, pipeline.ErrNoDocuments):
		return http.StatusUnprocessableEntity, body
	}
	return http.StatusInternalServerError, body
}

func writeError(w http.ResponseWriter, status int, body *ErrorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
