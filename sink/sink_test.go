package sink

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ Store = DirStore{}
var _ Store = (*S3Store)(nil)

func TestDirStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	d := DirStore{Root: t.TempDir()}

	require.Nil(t, d.Put(ctx, "run-1", "/models/root.go", []byte("package models\n")))

	b, err := os.ReadFile(filepath.Join(d.Root, "run-1", "models", "root.go"))
	require.Nil(t, err)
	assert.Equal(t, "package models\n", string(b))

	b, err = d.Get(ctx, "run-1", "models/root.go")
	assert.Nil(t, err)
	assert.Equal(t, "package models\n", string(b))
}

func TestDirStoreNotFound(t *testing.T) {
	d := DirStore{Root: t.TempDir()}
	_, err := d.Get(context.Background(), "run-1", "missing.decl")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDirStoreRejects(t *testing.T) {
	ctx := context.Background()
	d := DirStore{Root: t.TempDir()}
	assert.NotNil(t, d.Put(ctx, "", "a.decl", nil))
	assert.NotNil(t, d.Put(ctx, "run", " ", nil))
	assert.NotNil(t, d.Put(ctx, "run", "../../escape.decl", nil))
}

func TestNewS3StoreValidates(t *testing.T) {
	_, err := NewS3Store(S3Config{})
	assert.NotNil(t, err)
	_, err = NewS3Store(S3Config{Endpoint: "localhost:9000", Bucket: "b"})
	assert.NotNil(t, err)
	_, err = NewS3Store(S3Config{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "s"})
	assert.NotNil(t, err)

	s, err := NewS3Store(S3Config{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "s", Bucket: "decls"})
	require.Nil(t, err)
	assert.Equal(t, "us-east-1", s.region)
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "text/x-go; charset=utf-8", contentType("run/root.go"))
	assert.Equal(t, "text/plain; charset=utf-8", contentType("run/Root.decl"))
	assert.Equal(t, "application/octet-stream", contentType("run/blob"))
}
