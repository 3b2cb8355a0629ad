package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/siegeai/jsonstruct/fake"
	"github.com/siegeai/jsonstruct/integrations/jsonstructd"
)

func main() {
	server := flag.String("server", "http://localhost:8080", "jsonstructd to load")
	workers := flag.Int("workers", 4, "concurrent callers")
	runs := flag.Int("n", 100, "requests per worker")
	docs := flag.Int("docs", 20, "documents per request")
	flag.Parse()

	client, err := jsonstructd.NewClient(*server)
	if err != nil {
		slog.Error("could not init client", "err", err)
		return
	}

	var failed atomic.Int64
	wg := &sync.WaitGroup{}
	start := time.Now()
	for w := 0; w < *workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			caller(client, int64(w), *runs, *docs, &failed)
		}(w)
	}
	wg.Wait()

	total := *workers * *runs
	slog.Info("done", "requests", total, "failed", failed.Load(), "elapsed", time.Since(start))
}

func caller(client *jsonstructd.Client, worker int64, runs, docs int, failed *atomic.Int64) {
	buf := &bytes.Buffer{}
	for i := 0; i < runs; i++ {
		buf.Reset()
		if err := call(client, buf, worker*int64(runs)+int64(i), docs); err != nil {
			failed.Add(1)
			slog.Warn("request failed", "worker", worker, "run", i, "err", err)
		}
	}
}

func call(client *jsonstructd.Client, buf *bytes.Buffer, seed int64, docs int) error {
	enc := json.NewEncoder(buf)
	for _, doc := range fake.New(seed).Corpus(docs) {
		if err := enc.Encode(doc); err != nil {
			return err
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	began := time.Now()
	_, err := client.Infer(ctx, jsonstructd.Request{Format: "jsonl", Dialect: "go", Body: buf.Bytes()})
	var conflict *jsonstructd.ConflictResponse
	if errors.As(err, &conflict) {
		// corpora are consistent, so this is a server bug
		slog.Error("unexpected conflict", "seed", seed, "path", conflict.Path, "member", conflict.Member)
	}
	if err != nil {
		return err
	}
	slog.Debug("completed request", "seed", seed, "took", time.Since(began))
	return nil
}
