// Package source reads documents from files, URLs or stdin and decodes them
// into values the inference driver walks.
package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	gojson "github.com/goccy/go-json"
	"github.com/siegeai/jsonstruct/infer"
	"github.com/valyala/fastjson"
	"gopkg.in/yaml.v3"
)

type Format int

const (
	Auto Format = iota
	JSON
	JSONLines
	YAML
)

func (f Format) String() string {
	switch f {
	case Auto:
		return "auto"
	case JSON:
		return "json"
	case JSONLines:
		return "jsonl"
	case YAML:
		return "yaml"
	}
	return fmt.Sprintf("Format(%d)", int(f))
}

func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "", "auto":
		return Auto, nil
	case "json":
		return JSON, nil
	case "jsonl", "ndjson", "jsonlines":
		return JSONLines, nil
	case "yaml", "yml":
		return YAML, nil
	}
	return Auto, fmt.Errorf("unknown format %q", s)
}

// FormatFor guesses a format from a file name or URL path. Anything
// unrecognized is JSON.
func FormatFor(name string) Format {
	if u, err := url.Parse(name); err == nil && u.Scheme != "" {
		name = u.Path
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jsonl", ".ndjson":
		return JSONLines
	case ".yaml", ".yml":
		return YAML
	}
	return JSON
}

// DecodeError reports malformed input. Err is the decoder's error unchanged.
type DecodeError struct {
	Source string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Source == "" {
		return "decode: " + e.Err.Error()
	}
	return fmt.Sprintf("decode %s: %s", e.Source, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Decode splits data into documents. JSON holds exactly one document; JSON
// Lines and YAML hold any number, and empty YAML documents are skipped.
func Decode(name string, format Format, data []byte) ([]infer.Value, error) {
	if format == Auto {
		format = FormatFor(name)
	}

	var vs []infer.Value
	var err error
	switch format {
	case JSON:
		var v *fastjson.Value
		v, err = fastjson.ParseBytes(data)
		if err == nil {
			vs = []infer.Value{infer.FastJSON(v)}
		}
	case JSONLines:
		vs, err = decodeStream(data)
	case YAML:
		vs, err = decodeYAML(data)
	default:
		err = fmt.Errorf("unknown format %s", format)
	}
	if err != nil {
		return nil, &DecodeError{Source: name, Err: err}
	}
	return vs, nil
}

// decodeStream reads concatenated JSON values, one per line or otherwise.
func decodeStream(data []byte) ([]infer.Value, error) {
	dec := gojson.NewDecoder(bytes.NewReader(data))
	var vs []infer.Value
	for {
		var v any
		if err := dec.Decode(&v); err != nil {
			if errors.Is(err, io.EOF) {
				return vs, nil
			}
			return nil, fmt.Errorf("document %d: %w", len(vs), err)
		}
		vs = append(vs, infer.Native(v))
	}
}

func decodeYAML(data []byte) ([]infer.Value, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	var vs []infer.Value
	for i := 0; ; i++ {
		var v any
		if err := dec.Decode(&v); err != nil {
			if errors.Is(err, io.EOF) {
				return vs, nil
			}
			return nil, fmt.Errorf("document %d: %w", i, err)
		}
		if v == nil {
			continue
		}
		vs = append(vs, infer.Native(v))
	}
}

// Fetch reads a document location: "-" for stdin, an http(s) or file URL, or
// a path on disk.
func Fetch(ctx context.Context, location string) ([]byte, error) {
	if location == "-" {
		return io.ReadAll(os.Stdin)
	}

	u, err := url.Parse(location)
	if err != nil || u.Scheme == "" || len(u.Scheme) == 1 {
		// not a URL, or a windows drive letter
		return os.ReadFile(location)
	}

	switch u.Scheme {
	case "http", "https":
		return fetchHTTP(ctx, u)
	case "file":
		return os.ReadFile(filepath.FromSlash(u.Path))
	}
	return nil, fmt.Errorf("unsupported scheme %q", u.Scheme)
}

func fetchHTTP(ctx context.Context, u *url.URL) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Add("Accept", "application/json, application/x-ndjson, application/yaml;q=0.9, */*;q=0.5")
	// an explicit Accept-Encoding disables the transport's transparent gzip
	req.Header.Add("Accept-Encoding", "gzip, deflate")

	res, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: unexpected response %s", u.Redacted(), res.Status)
	}
	return ReadAllEncoded(res.Header.Get("Content-Encoding"), res.Body)
}
