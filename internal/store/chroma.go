package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"docsnap/internal/docsnap"
	"docsnap/internal/snapshot"
)

const (
	defaultTenant   = "default_tenant"
	defaultDatabase = "default_database"
	defaultPageSize = 1000
	defaultTimeout  = 30 * time.Second
)

// ChromaOptions configures a ChromaStore.
type ChromaOptions struct {
	// Host may carry an http:// or https:// prefix. Without one, port 443
	// selects https.
	Host     string
	Port     int
	Token    string
	Tenant   string
	Database string
	// PageSize bounds each page read by GetRecords.
	PageSize int
	Timeout  time.Duration
}

// ChromaStore talks to a Chroma server over its v2 REST API.
type ChromaStore struct {
	client   *resty.Client
	prefix   string
	pageSize int
}

type chromaCollection struct {
	ID       string            `json:"id"`
	Name     string            `json:"name"`
	Metadata snapshot.Metadata `json:"metadata"`
}

type chromaCreateRequest struct {
	Name        string            `json:"name"`
	Metadata    snapshot.Metadata `json:"metadata,omitempty"`
	GetOrCreate bool              `json:"get_or_create"`
}

type chromaGetRequest struct {
	Limit   int      `json:"limit"`
	Offset  int      `json:"offset"`
	Include []string `json:"include"`
}

type chromaGetResponse struct {
	IDs        []string            `json:"ids"`
	Documents  []*string           `json:"documents"`
	Metadatas  []snapshot.Metadata `json:"metadatas"`
	Embeddings [][]float32         `json:"embeddings"`
}

type chromaAddRequest struct {
	IDs        []string            `json:"ids"`
	Documents  []*string           `json:"documents"`
	Metadatas  []snapshot.Metadata `json:"metadatas"`
	Embeddings [][]float32         `json:"embeddings,omitempty"`
}

// NewChromaStore creates a client. No request is made until the first call.
func NewChromaStore(opts ChromaOptions) *ChromaStore {
	if opts.Tenant == "" {
		opts.Tenant = defaultTenant
	}
	if opts.Database == "" {
		opts.Database = defaultDatabase
	}
	if opts.PageSize <= 0 {
		opts.PageSize = defaultPageSize
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}

	cli := resty.New().
		SetBaseURL(BaseURL(opts.Host, opts.Port)).
		SetTimeout(opts.Timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if opts.Token != "" {
		cli.SetHeader("X-Chroma-Token", opts.Token)
	}

	return &ChromaStore{
		client:   cli,
		prefix:   fmt.Sprintf("/api/v2/tenants/%s/databases/%s/collections", url.PathEscape(opts.Tenant), url.PathEscape(opts.Database)),
		pageSize: opts.PageSize,
	}
}

// BaseURL builds the server URL from a host and port.
func BaseURL(host string, port int) string {
	scheme := "http"
	switch {
	case strings.HasPrefix(host, "https://"):
		scheme, host = "https", strings.TrimPrefix(host, "https://")
	case strings.HasPrefix(host, "http://"):
		host = strings.TrimPrefix(host, "http://")
	case port == 443:
		scheme = "https"
	}
	host = strings.TrimRight(host, "/")
	if port > 0 {
		host += ":" + strconv.Itoa(port)
	}
	return scheme + "://" + host
}

func (s *ChromaStore) Heartbeat(ctx context.Context) error {
	resp, err := s.client.R().SetContext(ctx).Get("/api/v2/heartbeat")
	if err != nil {
		return fmt.Errorf("heartbeat request: %w", err)
	}
	return mapHTTPError(resp)
}

// ListCollections pages through the collections in server order.
func (s *ChromaStore) ListCollections(ctx context.Context) ([]docsnap.Collection, error) {
	out := []docsnap.Collection{}
	for offset := 0; ; offset += s.pageSize {
		resp, err := s.client.R().
			SetContext(ctx).
			SetQueryParams(map[string]string{
				"limit":  strconv.Itoa(s.pageSize),
				"offset": strconv.Itoa(offset),
			}).
			Get(s.prefix)
		if err != nil {
			return nil, fmt.Errorf("list collections request: %w", err)
		}
		if err := mapHTTPError(resp); err != nil {
			return nil, err
		}

		var page []chromaCollection
		if err := decodeJSON(resp.Body(), &page); err != nil {
			return nil, fmt.Errorf("list collections decode: %w", err)
		}
		for _, c := range page {
			out = append(out, docsnap.Collection(c))
		}
		if len(page) < s.pageSize {
			return out, nil
		}
	}
}

func (s *ChromaStore) GetCollection(ctx context.Context, name string) (*docsnap.Collection, error) {
	resp, err := s.client.R().SetContext(ctx).Get(s.prefix + "/" + url.PathEscape(name))
	if err != nil {
		return nil, fmt.Errorf("get collection request: %w", err)
	}
	if err := mapHTTPError(resp); err != nil {
		return nil, err
	}

	var raw chromaCollection
	if err := decodeJSON(resp.Body(), &raw); err != nil {
		return nil, fmt.Errorf("get collection decode: %w", err)
	}
	c := docsnap.Collection(raw)
	return &c, nil
}

// CreateCollection omits empty metadata, which Chroma rejects.
func (s *ChromaStore) CreateCollection(ctx context.Context, name string, metadata snapshot.Metadata) (*docsnap.Collection, error) {
	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(chromaCreateRequest{Name: name, Metadata: metadata}).
		Post(s.prefix)
	if err != nil {
		return nil, fmt.Errorf("create collection request: %w", err)
	}
	if err := mapHTTPError(resp); err != nil {
		return nil, err
	}

	var raw chromaCollection
	if err := decodeJSON(resp.Body(), &raw); err != nil {
		return nil, fmt.Errorf("create collection decode: %w", err)
	}
	c := docsnap.Collection(raw)
	return &c, nil
}

func (s *ChromaStore) DeleteCollection(ctx context.Context, name string) (docsnap.DeleteOutcome, error) {
	resp, err := s.client.R().SetContext(ctx).Delete(s.prefix + "/" + url.PathEscape(name))
	if err != nil {
		return docsnap.Deleted, fmt.Errorf("delete collection request: %w", err)
	}
	if err := mapHTTPError(resp); err != nil {
		if errors.Is(err, docsnap.ErrCollectionNotFound) {
			return docsnap.AlreadyAbsent, nil
		}
		return docsnap.Deleted, err
	}
	return docsnap.Deleted, nil
}

// GetRecords pages through the collection until a short page is returned.
func (s *ChromaStore) GetRecords(ctx context.Context, c *docsnap.Collection) (*docsnap.Records, error) {
	out := &docsnap.Records{IDs: []string{}, Documents: []*string{}, Metadatas: []snapshot.Metadata{}}
	withEmbeddings := true

	for offset := 0; ; offset += s.pageSize {
		resp, err := s.client.R().
			SetContext(ctx).
			SetBody(chromaGetRequest{
				Limit:   s.pageSize,
				Offset:  offset,
				Include: []string{"documents", "metadatas", "embeddings"},
			}).
			Post(s.prefix + "/" + url.PathEscape(c.ID) + "/get")
		if err != nil {
			return nil, fmt.Errorf("get records request: %w", err)
		}
		if err := mapHTTPError(resp); err != nil {
			return nil, err
		}

		var page chromaGetResponse
		if err := decodeJSON(resp.Body(), &page); err != nil {
			return nil, fmt.Errorf("get records decode: %w", err)
		}
		n := len(page.IDs)
		if len(page.Documents) != n || len(page.Metadatas) != n {
			return nil, &docsnap.CorruptRecordsError{
				Collection: c.Name,
				IDs:        n,
				Documents:  len(page.Documents),
				Metadatas:  len(page.Metadatas),
				Embeddings: len(page.Embeddings),
			}
		}

		out.IDs = append(out.IDs, page.IDs...)
		out.Documents = append(out.Documents, page.Documents...)
		for _, m := range page.Metadatas {
			if m == nil {
				m = snapshot.Metadata{}
			}
			out.Metadatas = append(out.Metadatas, m)
		}
		if withEmbeddings && len(page.Embeddings) == n {
			out.Embeddings = append(out.Embeddings, page.Embeddings...)
		} else {
			withEmbeddings = false
			out.Embeddings = nil
		}

		if n < s.pageSize {
			break
		}
	}
	if len(out.Embeddings) != len(out.IDs) {
		out.Embeddings = nil
	}
	return out, nil
}

// AddRecords sends empty metadata maps as null, which Chroma rejects otherwise.
func (s *ChromaStore) AddRecords(ctx context.Context, c *docsnap.Collection, records *docsnap.Records) error {
	if err := records.Validate(c.Name); err != nil {
		return err
	}

	metadatas := make([]snapshot.Metadata, len(records.Metadatas))
	for i, m := range records.Metadatas {
		if len(m) > 0 {
			metadatas[i] = m
		}
	}

	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(chromaAddRequest{
			IDs:        records.IDs,
			Documents:  records.Documents,
			Metadatas:  metadatas,
			Embeddings: records.Embeddings,
		}).
		Post(s.prefix + "/" + url.PathEscape(c.ID) + "/add")
	if err != nil {
		return fmt.Errorf("add records request: %w", err)
	}
	return mapHTTPError(resp)
}

func (s *ChromaStore) Count(ctx context.Context, c *docsnap.Collection) (int, error) {
	resp, err := s.client.R().SetContext(ctx).Get(s.prefix + "/" + url.PathEscape(c.ID) + "/count")
	if err != nil {
		return 0, fmt.Errorf("count request: %w", err)
	}
	if err := mapHTTPError(resp); err != nil {
		return 0, err
	}

	n, err := strconv.Atoi(strings.TrimSpace(string(resp.Body())))
	if err != nil {
		return 0, fmt.Errorf("count decode: %w", err)
	}
	return n, nil
}

// decodeJSON keeps numbers as json.Number so integer metadata survives a
// round trip unchanged.
func decodeJSON(body []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	return dec.Decode(v)
}

var _ docsnap.Store = (*ChromaStore)(nil)
