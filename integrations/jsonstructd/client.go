// Package jsonstructd is a client for the jsonstructd inference service.
package jsonstructd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

type Client struct {
	Server string
	HTTP   *http.Client
}

var (
	ErrUnexpectedResponse = errors.New("unexpected response code")
)

func NewClient(server string) (*Client, error) {
	u, err := url.Parse(server)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("server %q must be an http or https url", server)
	}
	return &Client{
		Server: strings.TrimSuffix(server, "/"),
		HTTP:   &http.Client{},
	}, nil
}

// Request mirrors the query parameters of POST /v1/infer. Empty fields take
// the service defaults.
type Request struct {
	Name        string
	Mutable     bool
	Dialect     string
	Format      string
	Package     string
	ContentType string
	Body        []byte
}

// ConflictResponse is returned for documents the service refused to infer,
// either because they disagree or because two members collide.
type ConflictResponse struct {
	Message    string `json:"error"`
	Path       string `json:"path,omitempty"`
	Member     string `json:"member,omitempty"`
	Left       string `json:"left,omitempty"`
	Right      string `json:"right,omitempty"`
	Identifier string `json:"identifier,omitempty"`
}

func (c *ConflictResponse) Error() string {
	return c.Message
}

// Infer posts documents and returns the rendered declaration.
func (c *Client) Infer(ctx context.Context, args Request) (string, error) {
	q := url.Values{}
	if args.Name != "" {
		q.Set("name", args.Name)
	}
	if args.Mutable {
		q.Set("mutable", strconv.FormatBool(args.Mutable))
	}
	if args.Dialect != "" {
		q.Set("dialect", args.Dialect)
	}
	if args.Format != "" {
		q.Set("format", args.Format)
	}
	if args.Package != "" {
		q.Set("package", args.Package)
	}
	u := c.formatURL("/v1/infer")
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(args.Body))
	if err != nil {
		return "", err
	}
	contentType := args.ContentType
	if contentType == "" {
		contentType = "application/json"
	}
	req.Header.Add("Content-Type", contentType)

	res, err := c.HTTP.Do(req)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return "", err
	}

	switch res.StatusCode {
	case http.StatusOK:
		return string(body), nil
	case http.StatusUnprocessableEntity:
		var conflict ConflictResponse
		if err := json.Unmarshal(body, &conflict); err != nil {
			return "", fmt.Errorf("%w: %s", ErrUnexpectedResponse, res.Status)
		}
		return "", &conflict
	}

	var e ConflictResponse
	if json.Unmarshal(body, &e) == nil && e.Message != "" {
		return "", fmt.Errorf("%w: %s: %s", ErrUnexpectedResponse, res.Status, e.Message)
	}
	return "", fmt.Errorf("%w: %s", ErrUnexpectedResponse, res.Status)
}

// Health reports whether the service answers its health check.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.formatURL("/healthz"), nil)
	if err != nil {
		return err
	}
	res, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return ErrUnexpectedResponse
	}
	return nil
}

func (c *Client) formatURL(path string) string {
	return fmt.Sprintf("%s%s", c.Server, path)
}
