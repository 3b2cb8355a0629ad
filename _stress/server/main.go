package main

import (
	"encoding/json"
	"errors"
	"flag"
	"hash/fnv"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/mux"
	"github.com/siegeai/jsonstruct/fake"
)

// An upstream with stable per-resource shapes. Capture its traffic and feed
// the capture to jsonstruct -pcap.
func main() {
	addr := flag.String("addr", "0.0.0.0:8081", "address to listen on")
	flag.Parse()

	f := &fixtures{corpora: make(map[string][]map[string]any)}
	r := mux.NewRouter()
	r.HandleFunc("/{resource}", f.handler()).Methods(http.MethodGet, http.MethodPost)
	r.HandleFunc("/{resource}/{id:[0-9]+}", f.handler()).Methods(http.MethodGet, http.MethodPut)

	server := http.Server{Addr: *addr, Handler: r}
	err := server.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		panic(err)
	}
}

type fixtures struct {
	mu      sync.Mutex
	corpora map[string][]map[string]any
}

// corpus returns the documents of one resource, seeded by its name so every
// run serves the same shapes.
func (f *fixtures) corpus(resource string) []map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.corpora[resource]
	if !ok {
		h := fnv.New64a()
		_, _ = h.Write([]byte(resource))
		c = fake.New(int64(h.Sum64())).Corpus(32)
		f.corpora[resource] = c
	}
	return c
}

func (f *fixtures) handler() http.HandlerFunc {
	var n uint64
	var mu sync.Mutex
	return func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		n++
		i := n
		mu.Unlock()

		c := f.corpus(mux.Vars(r)["resource"])
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if err := json.NewEncoder(w).Encode(c[i%uint64(len(c))]); err != nil {
			slog.Warn("could not write response", "err", err)
			return
		}
		slog.Info("completed response", "url", r.URL)
	}
}
