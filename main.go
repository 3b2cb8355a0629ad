package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/google/uuid"
	"github.com/siegeai/jsonstruct/config"
	"github.com/siegeai/jsonstruct/ident"
	"github.com/siegeai/jsonstruct/infer"
	"github.com/siegeai/jsonstruct/integrations/jsonstructd"
	"github.com/siegeai/jsonstruct/lattice"
	"github.com/siegeai/jsonstruct/listener"
	"github.com/siegeai/jsonstruct/pipeline"
	"github.com/siegeai/jsonstruct/sink"
	"github.com/siegeai/jsonstruct/source"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("could not load config", "err", err)
		os.Exit(1)
	}
	if err := setupLogging(cfg.LogLevel); err != nil {
		slog.Error("could not init logging", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		report(err)
		os.Exit(1)
	}
}

func setupLogging(level string) error {
	var logLevel slog.Level
	err := logLevel.UnmarshalText([]byte(level))
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})
	slog.SetDefault(slog.New(h))
	return err
}

// report logs err with whatever detail its type carries.
func report(err error) {
	var sce *infer.SchemaConflictError
	var ce *lattice.ConflictError
	var coll *ident.CollisionError
	var remote *jsonstructd.ConflictResponse
	switch {
	case errors.As(err, &sce):
		c := sce.Conflict
		slog.Error("documents disagree", "source", sce.Source, "document", sce.Document,
			"path", c.Path, "member", c.Member, "left", c.Left, "right", c.Right)
	case errors.As(err, &ce):
		slog.Error("documents disagree", "path", ce.Path, "member", ce.Member, "left", ce.Left, "right", ce.Right)
	case errors.As(err, &coll):
		slog.Error("member names collide", "structure", coll.Structure, "identifier", coll.Identifier,
			"first", coll.Names[0], "second", coll.Names[1])
	case errors.As(err, &remote):
		slog.Error("server refused documents", "err", remote.Message, "path", remote.Path, "member", remote.Member,
			"left", remote.Left, "right", remote.Right, "identifier", remote.Identifier)
	default:
		slog.Error("jsonstruct failed", "err", err)
	}
}

type options struct {
	pipeline.Options
	format string
	pcap   string
	iface  string
	filter string
	server string
	out    string
	title  string
	docs   []string
}

func parseFlags(cfg *config.Config, args []string, stderr io.Writer) (*options, error) {
	fs := flag.NewFlagSet("jsonstruct", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var o options
	var dialect string
	fs.StringVar(&o.Root, "name", "Root", "name of the root structure")
	fs.BoolVar(&o.Mutable, "mutable", false, "also emit setters")
	fs.StringVar(&dialect, "dialect", "declaration", "output dialect: declaration, go or openapi")
	fs.StringVar(&o.Package, "package", "models", "package clause of the go dialect")
	fs.StringVar(&o.format, "format", "auto", "document format: auto, json, jsonl or yaml")
	fs.StringVar(&o.pcap, "pcap", "", "infer one root per endpoint from a pcap or pcapng capture")
	fs.StringVar(&o.iface, "iface", "", "infer from live traffic on a device until interrupted")
	fs.StringVar(&o.filter, "filter", "tcp and port 80", "bpf filter for -iface")
	fs.StringVar(&o.server, "server", cfg.Server, "infer on a jsonstructd service instead of locally")
	fs.StringVar(&o.out, "out", "", `write artifacts to a directory, or "s3" for the configured bucket; stdout when empty`)
	fs.StringVar(&o.title, "title", "Observed API", "document title for traffic specs")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "usage: jsonstruct [flags] [document ...]\n\nDocuments are paths, http(s) or file urls, or - for stdin.\n\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	d, err := pipeline.ParseDialect(dialect)
	if err != nil {
		return nil, err
	}
	o.Dialect = d
	if _, err := source.ParseFormat(o.format); err != nil {
		return nil, err
	}
	if (o.pcap != "" || o.iface != "") && fs.NArg() > 0 {
		return nil, errors.New("documents cannot be combined with -pcap or -iface")
	}
	if o.pcap != "" && o.iface != "" {
		return nil, errors.New("-pcap and -iface are exclusive")
	}

	o.docs = fs.Args()
	if len(o.docs) == 0 {
		o.docs = []string{"-"}
	}
	o.Logger = slog.Default()
	return &o, nil
}

// artifact is one rendered output and the path it is stored under.
type artifact struct {
	path    string
	content []byte
}

func run(ctx context.Context, cfg *config.Config, args []string, stdout io.Writer) error {
	o, err := parseFlags(cfg, args, os.Stderr)
	if err != nil {
		return err
	}

	var arts []artifact
	switch {
	case o.pcap != "" || o.iface != "":
		arts, err = fromTraffic(ctx, o)
	case o.server != "":
		arts, err = fromServer(ctx, o)
	default:
		arts, err = fromDocuments(ctx, o)
	}
	if err != nil {
		return err
	}

	return emit(ctx, cfg, o.out, arts, stdout)
}

func fromDocuments(ctx context.Context, o *options) ([]artifact, error) {
	format, _ := source.ParseFormat(o.format)

	var docs []pipeline.Doc
	for _, loc := range o.docs {
		data, err := source.Fetch(ctx, loc)
		if err != nil {
			return nil, err
		}
		ds, err := pipeline.Decode(loc, format, data)
		if err != nil {
			return nil, err
		}
		docs = append(docs, ds...)
	}

	out, err := pipeline.Run(o.Options, docs)
	if err != nil {
		return nil, err
	}
	return []artifact{{path: o.Root + o.Dialect.Ext(), content: out}}, nil
}

// fromServer posts every location as one body. Locations are concatenated,
// so they must share a format; JSON documents become a JSON Lines stream.
func fromServer(ctx context.Context, o *options) ([]artifact, error) {
	client, err := jsonstructd.NewClient(o.server)
	if err != nil {
		return nil, err
	}

	format, _ := source.ParseFormat(o.format)
	var body bytes.Buffer
	var sent source.Format
	for i, loc := range o.docs {
		data, err := source.Fetch(ctx, loc)
		if err != nil {
			return nil, err
		}
		f := format
		if f == source.Auto {
			f = source.FormatFor(loc)
		}
		if i > 0 && f != sent {
			return nil, fmt.Errorf("%s: cannot mix %s and %s documents on one request", loc, sent, f)
		}
		sent = f
		if i > 0 {
			if f == source.YAML {
				body.WriteString("\n---\n")
			} else {
				body.WriteByte('\n')
			}
		}
		body.Write(data)
	}
	if sent == source.JSON && len(o.docs) > 1 {
		sent = source.JSONLines
	}

	out, err := client.Infer(ctx, jsonstructd.Request{
		Name:    o.Root,
		Mutable: o.Mutable,
		Dialect: string(o.Dialect),
		Format:  sent.String(),
		Package: o.Package,
		Body:    body.Bytes(),
	})
	if err != nil {
		return nil, err
	}
	return []artifact{{path: o.Root + o.Dialect.Ext(), content: []byte(out)}}, nil
}

// fromTraffic renders one artifact per inferred root, or a single document
// for the openapi dialect.
func fromTraffic(ctx context.Context, o *options) ([]artifact, error) {
	var src listener.PacketSource
	if o.pcap != "" {
		f, err := listener.NewPacketSourceFile(o.pcap)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		src = f
	} else {
		s, err := listener.NewPacketSourceLive(o.iface, o.filter)
		if err != nil {
			return nil, err
		}
		src = s
		slog.Info("listening", "device", o.iface, "filter", o.filter)
	}

	l := listener.New(src, listener.WithLogger(slog.Default()))
	if err := l.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return nil, err
	}
	endpoints := l.Endpoints()
	slog.Info("traffic sampled", "endpoints", len(endpoints))

	if o.Dialect == pipeline.OpenAPI {
		doc, err := listener.Spec(o.title, "0.0.1", endpoints)
		if err != nil {
			return nil, err
		}
		bs, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return nil, err
		}
		return []artifact{{path: "openapi.json", content: append(bs, '\n')}}, nil
	}

	roots := listener.Roots(endpoints)
	names := make([]string, 0, len(roots))
	for name := range roots {
		names = append(names, name)
	}
	sort.Strings(names)

	r := o.Renderer()
	arts := make([]artifact, 0, len(names))
	for _, name := range names {
		out, err := r.Render(roots[name], o.Mutable)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		arts = append(arts, artifact{path: name + o.Dialect.Ext(), content: out})
	}
	return arts, nil
}

func emit(ctx context.Context, cfg *config.Config, out string, arts []artifact, stdout io.Writer) error {
	if out == "" {
		for i, a := range arts {
			if i > 0 {
				fmt.Fprintln(stdout)
			}
			if _, err := stdout.Write(a.content); err != nil {
				return err
			}
		}
		return nil
	}

	var store sink.Store
	if out == "s3" {
		if !cfg.S3Enabled() {
			return errors.New("-out s3 requires JSONSTRUCT_S3_ENDPOINT")
		}
		s3, err := sink.NewS3Store(cfg.S3)
		if err != nil {
			return err
		}
		store = s3
	} else {
		store = sink.DirStore{Root: out}
	}

	runID := uuid.NewString()
	for _, a := range arts {
		if err := store.Put(ctx, runID, a.path, a.content); err != nil {
			return err
		}
	}
	slog.Info("wrote artifacts", "run", runID, "count", len(arts), "out", out)
	fmt.Fprintln(stdout, runID)
	return nil
}
