// internal/marketdata/archive/s3_test.go
package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestS3Storage_ImplementsStorage(t *testing.T) {
	var _ Storage = (*S3Storage)(nil)
}

func TestS3Storage_Key(t *testing.T) {
	tests := []struct {
		prefix string
		path   string
		want   string
	}{
		{"", "1d/AAPL.csv", "1d/AAPL.csv"},
		{"candles", "1d/AAPL.csv", "candles/1d/AAPL.csv"},
		{"candles/", "/1d/AAPL.csv", "candles/1d/AAPL.csv"},
	}
	for _, tt := range tests {
		s := &S3Storage{prefix: strings.Trim(tt.prefix, "/")}
		assert.Equal(t, tt.want, s.key(tt.path))
		assert.Equal(t, strings.TrimPrefix(tt.path, "/"), s.rel(s.key(tt.path)))
	}
}

func TestNewS3_RequiresBucket(t *testing.T) {
	_, err := NewS3(S3Config{Region: "us-east-1"})
	assert.Error(t, err)
}

// fakeS3 serves the handful of path-style calls S3Storage makes.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string]string
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	// /bucket/key...
	parts := strings.SplitN(strings.TrimPrefix(r.URL.Path, "/"), "/", 2)
	key := ""
	if len(parts) == 2 {
		key = parts[1]
	}

	switch {
	case r.Method == http.MethodGet && r.URL.Query().Get("list-type") == "2":
		prefix := r.URL.Query().Get("prefix")
		var b strings.Builder
		b.WriteString(`<?xml version="1.0" encoding="UTF-8"?><ListBucketResult xmlns="http://s3.amazonaws.com/doc/2006-03-01/">`)
		b.WriteString(`<Name>bucket</Name><IsTruncated>false</IsTruncated>`)
		for k := range f.objects {
			if strings.HasPrefix(k, prefix) {
				fmt.Fprintf(&b, "<Contents><Key>%s</Key></Contents>", k)
			}
		}
		b.WriteString(`</ListBucketResult>`)
		w.Header().Set("Content-Type", "application/xml")
		io.WriteString(w, b.String())
	case r.Method == http.MethodGet:
		body, ok := f.objects[key]
		if !ok {
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusNotFound)
			io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>missing</Message></Error>`)
			return
		}
		io.WriteString(w, body)
	case r.Method == http.MethodHead:
		if _, ok := f.objects[key]; !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	case r.Method == http.MethodPut:
		f.objects[key] = "stored"
		w.WriteHeader(http.StatusOK)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func newFakeS3(t *testing.T, objects map[string]string) (*S3Storage, *fakeS3) {
	t.Helper()
	fake := &fakeS3{objects: objects}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	s, err := NewS3(S3Config{
		Bucket:    "bucket",
		Endpoint:  srv.URL,
		Region:    "us-east-1",
		AccessKey: "key",
		SecretKey: "secret",
		Prefix:    "candles",
	})
	require.NoError(t, err)
	return s, fake
}

func TestS3Storage_Read(t *testing.T) {
	s, _ := newFakeS3(t, map[string]string{"candles/1d/AAPL.csv": "date,open\n"})
	ctx := context.Background()

	got, err := s.Read(ctx, "1d/AAPL.csv")
	require.NoError(t, err)
	assert.Equal(t, "date,open\n", string(got))

	_, err = s.Read(ctx, "1d/MSFT.csv")
	assert.True(t, errors.Is(err, ErrNotFound), "got %v", err)
}

func TestS3Storage_Exists(t *testing.T) {
	s, _ := newFakeS3(t, map[string]string{"candles/1d/AAPL.csv": "x"})
	ctx := context.Background()

	ok, err := s.Exists(ctx, "1d/AAPL.csv")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Exists(ctx, "1d/MSFT.csv")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestS3Storage_List(t *testing.T) {
	s, _ := newFakeS3(t, map[string]string{
		"candles/1d/AAPL.csv": "x",
		"candles/1h/AAPL.csv": "x",
	})
	paths, err := s.List(context.Background(), "1d/")
	require.NoError(t, err)
	assert.Equal(t, []string{"1d/AAPL.csv"}, paths)
}

func TestS3Storage_Write(t *testing.T) {
	s, fake := newFakeS3(t, map[string]string{})
	require.NoError(t, s.Write(context.Background(), "1d/AAPL.csv", []byte("date\n")))

	fake.mu.Lock()
	defer fake.mu.Unlock()
	assert.Contains(t, fake.objects, "candles/1d/AAPL.csv")
}
