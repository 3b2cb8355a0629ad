package httpassembly

import (
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	getReq  = "GET /users/1 HTTP/1.1\r\nHost: example.com\r\n\r\n"
	postReq = "POST /users HTTP/1.1\r\nHost: example.com\r\nContent-Type: application/json\r\nContent-Length: 13\r\n\r\n{\"name\":\"a\"}\n"
	headReq = "HEAD /users HTTP/1.1\r\nHost: example.com\r\n\r\n"

	okRes      = "HTTP/1.1 200 OK\r\nContent-Type: application/json\r\nContent-Length: 9\r\n\r\n{\"id\":1}\n"
	chunkedRes = "HTTP/1.1 201 Created\r\nTransfer-Encoding: chunked\r\n\r\n4\r\n{\"id\r\n4\r\n\":2}\r\n0\r\n\r\n"
	headRes    = "HTTP/1.1 200 OK\r\nContent-Length: 512\r\n\r\n"
)

func body(t *testing.T, rc io.ReadCloser) string {
	t.Helper()
	b, err := io.ReadAll(rc)
	require.NoError(t, err)
	return string(b)
}

func TestParsePairs(t *testing.T) {
	pairs, err := ParsePairs([]byte(getReq), []byte(okRes))
	require.NoError(t, err)
	require.Len(t, pairs, 1)

	assert.Equal(t, http.MethodGet, pairs[0].Request.Method)
	assert.Equal(t, "/users/1", pairs[0].Request.URL.Path)
	assert.Equal(t, 200, pairs[0].Response.StatusCode)
	assert.Equal(t, "{\"id\":1}\n", body(t, pairs[0].Response.Body))
}

func TestParsePairsPipelined(t *testing.T) {
	pairs, err := ParsePairs([]byte(postReq+headReq+getReq), []byte(chunkedRes+headRes+okRes))
	require.NoError(t, err)
	require.Len(t, pairs, 3)

	assert.Equal(t, "{\"name\":\"a\"}\n", body(t, pairs[0].Request.Body))
	assert.Equal(t, `{"id":2}`, body(t, pairs[0].Response.Body))

	// a HEAD response announces a length but carries no body
	assert.Equal(t, http.MethodHead, pairs[1].Request.Method)
	assert.Empty(t, body(t, pairs[1].Response.Body))

	assert.Equal(t, "/users/1", pairs[2].Request.URL.Path)
	assert.Equal(t, "{\"id\":1}\n", body(t, pairs[2].Response.Body))
}

func TestParsePairsUnanswered(t *testing.T) {
	pairs, err := ParsePairs([]byte(getReq+getReq), []byte(okRes))
	require.NoError(t, err)
	assert.Len(t, pairs, 1)

	pairs, err = ParsePairs([]byte(getReq), nil)
	require.NoError(t, err)
	assert.Empty(t, pairs)
}

func TestParsePairsMalformed(t *testing.T) {
	pairs, err := ParsePairs([]byte(getReq+"not http at all\r\n\r\n"), []byte(okRes+okRes))
	assert.Error(t, err)
	assert.Len(t, pairs, 1)

	pairs, err = ParsePairs([]byte(getReq), []byte("HTTP/1.1 abc\r\n\r\n"))
	assert.Error(t, err)
	assert.Empty(t, pairs)
}

type recorder struct {
	pairs []Pair
}

func (r *recorder) New() HttpStream {
	return r
}

func (r *recorder) ReassembledRequestResponse(req *http.Request, res *http.Response) {
	r.pairs = append(r.pairs, Pair{Request: req, Response: res})
}

func TestStreamFlushesOnDirectionChange(t *testing.T) {
	rec := &recorder{}
	s := &streamWrapper{wrap: rec}

	s.req.WriteString(getReq)
	s.res.WriteString(okRes)
	assert.Empty(t, rec.pairs)

	s.flush()
	require.Len(t, rec.pairs, 1)
	assert.Zero(t, s.req.Len())
	assert.Zero(t, s.res.Len())

	s.req.WriteString(postReq)
	s.res.WriteString(chunkedRes)
	assert.True(t, s.ReassemblyComplete(nil))
	require.Len(t, rec.pairs, 2)
	assert.Equal(t, 201, rec.pairs[1].Response.StatusCode)
}
