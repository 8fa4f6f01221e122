package blob

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"longtrees/internal/platform/config"
)

// StoreSuite runs the same checks against every Store implementation.
type StoreSuite struct {
	suite.Suite
	newStore func(t *testing.T) Store
	store    Store
}

func (s *StoreSuite) SetupTest() {
	s.store = s.newStore(s.T())
}

func (s *StoreSuite) TestPutGetReplace() {
	ctx := context.Background()
	s.Require().NoError(s.store.Put(ctx, "exports/trees.jsonl", bytes.NewReader([]byte("one\n")), "application/x-ndjson"))
	s.Require().NoError(s.store.Put(ctx, "exports/trees.jsonl", bytes.NewReader([]byte("two\n")), "application/x-ndjson"))

	rc, err := s.store.Get(ctx, "exports/trees.jsonl")
	s.Require().NoError(err)
	defer rc.Close()
	body, err := io.ReadAll(rc)
	s.Require().NoError(err)
	s.Equal("two\n", string(body))
}

func (s *StoreSuite) TestGetMissing() {
	_, err := s.store.Get(context.Background(), "absent.jsonl")
	s.ErrorIs(err, ErrNotFound)
}

func (s *StoreSuite) TestListByPrefix() {
	ctx := context.Background()
	for _, key := range []string{"b/2.jsonl", "a/1.jsonl", "b/1.jsonl"} {
		s.Require().NoError(s.store.Put(ctx, key, strings.NewReader("x"), ""))
	}
	keys, err := s.store.List(ctx, "b/")
	s.Require().NoError(err)
	s.Equal([]string{"b/1.jsonl", "b/2.jsonl"}, keys)
}

func (s *StoreSuite) TestRejectsEscapingKeys() {
	for _, key := range []string{"", "/etc/passwd", "../outside", "a/../../b"} {
		err := s.store.Put(context.Background(), key, strings.NewReader("x"), "")
		s.Error(err, "key %q", key)
	}
}

func TestFSStore(t *testing.T) {
	suite.Run(t, &StoreSuite{newStore: func(t *testing.T) Store {
		store, err := NewFS(t.TempDir())
		require.NoError(t, err)
		return store
	}})
}

func TestS3Store(t *testing.T) {
	suite.Run(t, &StoreSuite{newStore: func(t *testing.T) Store {
		return newFakeS3(t)
	}})
}

func TestOpen(t *testing.T) {
	store, err := Open(context.Background(), config.Export{Driver: config.ExportFS, Dir: t.TempDir()})
	require.NoError(t, err)
	assert.Equal(t, "fs", store.Driver())

	_, err = Open(context.Background(), config.Export{Driver: config.ExportS3})
	assert.ErrorContains(t, err, "bucket")

	_, err = Open(context.Background(), config.Export{Driver: "ftp"})
	assert.Error(t, err)
}

func newFakeS3(t *testing.T) *S3 {
	t.Helper()
	rt := &fakeS3{objects: map[string][]byte{}}
	store, err := NewS3(context.Background(), S3Config{
		Bucket:          "exports",
		Endpoint:        "http://s3.test.local",
		AccessKeyID:     "AKIA",
		SecretAccessKey: "SECRET",
		PathStyle:       true,
	}, func(o *s3.Options) {
		o.HTTPClient = &http.Client{Transport: rt}
		o.Retryer = aws.NopRetryer{}
	})
	require.NoError(t, err)
	return store
}

// fakeS3 answers the path-style PutObject, GetObject and ListObjectsV2 calls
// the store makes.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (f *fakeS3) RoundTrip(req *http.Request) (*http.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	// path is /<bucket>[/<key>]
	parts := strings.SplitN(strings.TrimPrefix(req.URL.Path, "/"), "/", 2)
	key := ""
	if len(parts) == 2 {
		key = parts[1]
	}

	switch {
	case req.Method == http.MethodGet && req.URL.Query().Get("list-type") == "2":
		prefix := req.URL.Query().Get("prefix")
		var keys []string
		for k := range f.objects {
			if strings.HasPrefix(k, prefix) {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)
		var b strings.Builder
		b.WriteString(`<?xml version="1.0" encoding="UTF-8"?><ListBucketResult><IsTruncated>false</IsTruncated>`)
		for _, k := range keys {
			fmt.Fprintf(&b, "<Contents><Key>%s</Key><Size>%d</Size></Contents>", k, len(f.objects[k]))
		}
		b.WriteString("</ListBucketResult>")
		return respond(req, http.StatusOK, b.String()), nil

	case req.Method == http.MethodPut:
		body, err := io.ReadAll(req.Body)
		if err != nil {
			return nil, err
		}
		f.objects[key] = body
		return respond(req, http.StatusOK, ""), nil

	case req.Method == http.MethodGet:
		body, ok := f.objects[key]
		if !ok {
			return respond(req, http.StatusNotFound,
				`<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>missing</Message></Error>`), nil
		}
		return respond(req, http.StatusOK, string(body)), nil
	}
	return respond(req, http.StatusMethodNotAllowed, ""), nil
}

func respond(req *http.Request, status int, body string) *http.Response {
	return &http.Response{
		StatusCode:    status,
		Header:        http.Header{"Content-Type": {"application/xml"}},
		Body:          io.NopCloser(strings.NewReader(body)),
		ContentLength: int64(len(body)),
		Request:       req,
	}
}
