// Package listener samples JSON bodies from captured HTTP traffic and infers
// one schema per endpoint and direction.
package listener

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/gopacket"
	"github.com/siegeai/jsonstruct/httpassembly"
	"github.com/siegeai/jsonstruct/ident"
	"github.com/siegeai/jsonstruct/infer"
	"github.com/siegeai/jsonstruct/lattice"
	"github.com/siegeai/jsonstruct/source"
	"github.com/valyala/fastjson"
)

const (
	Request  = "request"
	Response = "response"
)

type groupKey struct {
	endpoint Endpoint
	dir      string
	status   int
}

type group struct {
	driver  *infer.Driver
	dropped int
}

type operation struct {
	params   []ParamKind
	statuses map[int]struct{}
}

type Listener struct {
	source     PacketSource
	logger     *slog.Logger
	flushAfter time.Duration

	mu     sync.Mutex
	ops    map[Endpoint]*operation
	groups map[groupKey]*group
}

type Option func(*Listener)

func WithLogger(logger *slog.Logger) Option {
	return func(l *Listener) {
		l.logger = logger
	}
}

// WithFlushAfter sets how long a connection may stay idle, in capture time,
// before its buffered exchanges are handed over. The default is two minutes.
func WithFlushAfter(d time.Duration) Option {
	return func(l *Listener) {
		l.flushAfter = d
	}
}

func New(src PacketSource, opts ...Option) *Listener {
	l := &Listener{
		source:     src,
		logger:     slog.Default(),
		flushAfter: 2 * time.Minute,
		ops:        make(map[Endpoint]*operation),
		groups:     make(map[groupKey]*group),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

type factory struct {
	l *Listener
}

func (f *factory) New() httpassembly.HttpStream {
	return &stream{l: f.l}
}

type stream struct {
	l *Listener
}

func (s *stream) ReassembledRequestResponse(req *http.Request, res *http.Response) {
	s.l.Observe(req, res)
}

// Run reassembles packets until the source is exhausted or ctx is done.
func (l *Listener) Run(ctx context.Context) error {
	assembler := httpassembly.NewAssembler(&factory{l: l})

	packets := l.source.Packets()
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	// capture time, so replayed files age connections correctly
	var last time.Time
	for {
		select {
		case <-ctx.Done():
			assembler.FlushAll()
			return ctx.Err()

		case p, ok := <-packets:
			if !ok {
				n := assembler.FlushAll()
				l.logger.Debug("packet source exhausted", "closed", n)
				return nil
			}
			last = packetTime(p, last)
			assembler.Assemble(p)

		case <-ticker.C:
			if !last.IsZero() {
				assembler.FlushOlderThan(last.Add(-l.flushAfter))
			}
		}
	}
}

func packetTime(p gopacket.Packet, last time.Time) time.Time {
	if md := p.Metadata(); md != nil && md.Timestamp.After(last) {
		return md.Timestamp
	}
	return last
}

// Observe samples one exchange. Server errors are ignored entirely, and the
// request body of a 400 is not sampled.
func (l *Listener) Observe(req *http.Request, res *http.Response) {
	if res.StatusCode >= 500 {
		l.logger.Debug("skipping server error", "method", req.Method, "path", req.URL.Path, "status", res.StatusCode)
		return
	}
	if !operationMethod(req.Method) {
		l.logger.Debug("skipping unknown method", "method", req.Method)
		return
	}
	path, params := TemplatePath(req.URL.Path)
	e := Endpoint{Method: req.Method, Path: path}

	l.mu.Lock()
	defer l.mu.Unlock()

	op, ok := l.ops[e]
	if !ok {
		op = &operation{params: params, statuses: make(map[int]struct{})}
		l.ops[e] = op
	}
	op.statuses[res.StatusCode] = struct{}{}

	if res.StatusCode != http.StatusBadRequest {
		l.sample(groupKey{endpoint: e, dir: Request}, req.Header, req.Body)
	}
	l.sample(groupKey{endpoint: e, dir: Response, status: res.StatusCode}, res.Header, res.Body)
}

func (l *Listener) sample(k groupKey, h http.Header, body io.ReadCloser) {
	if body == nil || body == http.NoBody || !isJSON(h.Get("Content-Type")) {
		return
	}
	log := l.logger.With("endpoint", k.endpoint.String(), "dir", k.dir, "status", k.status)

	b, err := source.ReadAllEncoded(h.Get("Content-Encoding"), body)
	if err != nil {
		log.Warn("could not read body", "err", err)
		return
	}
	if len(bytes.TrimSpace(b)) == 0 {
		return
	}
	v, err := fastjson.ParseBytes(b)
	if err != nil {
		log.Debug("body is not json", "err", err)
		return
	}

	g, ok := l.groups[k]
	if !ok {
		g = &group{driver: infer.New(rootName(k.endpoint, k.dir, k.status), infer.WithSanitizer(ident.GoSource), infer.WithLogger(l.logger))}
		l.groups[k] = g
	}
	if err := g.driver.AddSource(k.endpoint.String(), infer.FastJSON(v)); err != nil {
		g.dropped++
		log.Warn("dropping sample", "err", err)
	}
}

// isJSON accepts a missing content type, application/json and any +json
// media type.
func isJSON(contentType string) bool {
	if contentType == "" {
		return true
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mt == "application/json" || strings.HasSuffix(mt, "+json")
}

// Observed is what the listener learned about one endpoint. Lattices are nil
// for directions without a JSON body.
type Observed struct {
	Endpoint  Endpoint
	Params    []ParamKind
	Request   *lattice.Lattice
	Responses map[int]*lattice.Lattice
	Dropped   int
}

// Endpoints snapshots every endpoint seen so far, sorted by path and method.
func (l *Listener) Endpoints() []Observed {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Observed, 0, len(l.ops))
	for e, op := range l.ops {
		o := Observed{Endpoint: e, Params: op.params, Responses: make(map[int]*lattice.Lattice, len(op.statuses))}
		if g, ok := l.groups[groupKey{endpoint: e, dir: Request}]; ok {
			o.Request = committed(g)
			o.Dropped += g.dropped
		}
		for status := range op.statuses {
			o.Responses[status] = nil
			if g, ok := l.groups[groupKey{endpoint: e, dir: Response, status: status}]; ok {
				o.Responses[status] = committed(g)
				o.Dropped += g.dropped
			}
		}
		out = append(out, o)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Endpoint.Path != out[j].Endpoint.Path {
			return out[i].Endpoint.Path < out[j].Endpoint.Path
		}
		return out[i].Endpoint.Method < out[j].Endpoint.Method
	})
	return out
}

// committed returns the group's lattice, or nil when every sample was
// dropped. Drivers never mutate a committed lattice.
func committed(g *group) *lattice.Lattice {
	if g.driver.Documents() == 0 {
		return nil
	}
	return g.driver.Lattice()
}
