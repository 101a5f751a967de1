package invite

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/tbourn/go-wedding-backend/internal/domain"
)

const (
	headerIdempotencyKey = "Idempotency-Key"
	queryPageSize        = 100
	maxQueryPages        = 50
	maxEventBytes        = 1 << 20
)

// listFields maps a table to the JSON field holding its page of records.
var listFields = map[string]string{
	domain.TableRSVPs:     "rsvps",
	domain.TableGuestbook: "entries",
	domain.TablePhotos:    "photos",
	domain.TableQuestions: "questions",
}

// APIError is a non-2xx response from the backend.
type APIError struct {
	Status    int    `json:"-"`
	RequestID string `json:"request_id"`
	Code      string `json:"code"`
	Message   string `json:"message"`
	Field     string `json:"field"`
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("backend: status %d", e.Status)
	}
	return fmt.Sprintf("backend: %d %s: %s", e.Status, e.Code, e.Message)
}

// HTTPStore is a Store backed by the invitation backend's REST API.
type HTTPStore struct {
	baseURL string
	client  *http.Client
	stream  *http.Client
	log     zerolog.Logger
}

// NewHTTPStore returns a store for the API at baseURL (for example
// "https://wedding.example.com/api/v1"). timeout bounds every call except
// the change feed.
func NewHTTPStore(baseURL string, timeout time.Duration, opts ...Option) *HTTPStore {
	o := buildOptions(opts)
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	tr := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 4,
		IdleConnTimeout:     90 * time.Second,
	}
	return &HTTPStore{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout, Transport: tr},
		stream:  &http.Client{Transport: tr},
		log:     o.log,
	}
}

// Health checks that the backend answers.
func (s *HTTPStore) Health(ctx context.Context) error {
	u, err := url.Parse(s.baseURL)
	if err != nil {
		return err
	}
	u.Path = "/health"
	resp, err := s.do(ctx, s.client, http.MethodGet, u.String(), nil, nil)
	if err != nil {
		return err
	}
	return decode(resp, nil)
}

// Insert implements Store.
func (s *HTTPStore) Insert(ctx context.Context, table string, in any, key string, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return err
	}
	hdr := http.Header{"Content-Type": {"application/json"}}
	if key != "" {
		hdr.Set(headerIdempotencyKey, key)
	}
	resp, err := s.do(ctx, s.client, http.MethodPost, s.baseURL+"/"+table, bytes.NewReader(body), hdr)
	if err != nil {
		return err
	}
	return decode(resp, out)
}

// Query implements Store. It follows pagination until the last page.
func (s *HTTPStore) Query(ctx context.Context, table string, out any) error {
	field, ok := listFields[table]
	if !ok {
		return fmt.Errorf("invite: unknown table %q", table)
	}

	var all []json.RawMessage
	for page := 1; page <= maxQueryPages; page++ {
		q := url.Values{"page": {strconv.Itoa(page)}, "page_size": {strconv.Itoa(queryPageSize)}}
		resp, err := s.do(ctx, s.client, http.MethodGet, s.baseURL+"/"+table+"?"+q.Encode(), nil, nil)
		if err != nil {
			return err
		}
		var body map[string]json.RawMessage
		if err := decode(resp, &body); err != nil {
			return err
		}
		var items []json.RawMessage
		if raw, ok := body[field]; ok {
			if err := json.Unmarshal(raw, &items); err != nil {
				return err
			}
		}
		all = append(all, items...)

		var p struct {
			HasNext bool `json:"has_next"`
		}
		if raw, ok := body["pagination"]; ok {
			_ = json.Unmarshal(raw, &p)
		}
		if !p.HasNext {
			break
		}
	}

	if all == nil {
		all = []json.RawMessage{}
	}
	b, err := json.Marshal(all)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, out)
}

// DeleteGuestbook implements Store.
func (s *HTTPStore) DeleteGuestbook(ctx context.Context, id, secret string) error {
	body, err := json.Marshal(map[string]string{"secret": secret})
	if err != nil {
		return err
	}
	u := s.baseURL + "/" + domain.TableGuestbook + "/" + url.PathEscape(id)
	resp, err := s.do(ctx, s.client, http.MethodDelete, u, bytes.NewReader(body),
		http.Header{"Content-Type": {"application/json"}})
	if err != nil {
		return err
	}
	err = decode(resp, nil)
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Status {
		case http.StatusNotFound:
			return ErrNotFound
		case http.StatusForbidden:
			return ErrSecretMismatch
		}
	}
	return err
}

// PhotoUpload is one file for UploadPhotos.
type PhotoUpload struct {
	Name string
	Body io.Reader
}

// UploadPhotos sends a batch of images in one multipart request.
func (s *HTTPStore) UploadPhotos(ctx context.Context, uploadedBy string, files []PhotoUpload) ([]domain.GuestPhoto, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if uploadedBy != "" {
		if err := mw.WriteField("uploaded_by", uploadedBy); err != nil {
			return nil, err
		}
	}
	for _, f := range files {
		fw, err := mw.CreateFormFile("files", f.Name)
		if err != nil {
			return nil, err
		}
		if _, err := io.Copy(fw, f.Body); err != nil {
			return nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	resp, err := s.do(ctx, s.client, http.MethodPost, s.baseURL+"/"+domain.TablePhotos, &buf,
		http.Header{"Content-Type": {mw.FormDataContentType()}})
	if err != nil {
		return nil, err
	}
	var out struct {
		Photos []domain.GuestPhoto `json:"photos"`
	}
	if err := decode(resp, &out); err != nil {
		return nil, err
	}
	return out.Photos, nil
}

// Subscribe implements Store by reading the backend's Server-Sent Events
// stream for table.
func (s *HTTPStore) Subscribe(ctx context.Context, table string) (<-chan Change, error) {
	hdr := http.Header{"Accept": {"text/event-stream"}, "Cache-Control": {"no-cache"}}
	resp, err := s.do(ctx, s.stream, http.MethodGet, s.baseURL+"/stream/"+url.PathEscape(table), nil, hdr)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, decode(resp, nil)
	}

	out := make(chan Change, 16)
	go func() {
		defer close(out)
		defer resp.Body.Close()
		err := readEvents(resp.Body, func(event string, data []byte) bool {
			if event != "insert" && event != "update" {
				return true
			}
			var ch Change
			if err := json.Unmarshal(data, &ch); err != nil {
				s.log.Warn().Err(err).Str("table", table).Msg("bad feed event")
				return true
			}
			select {
			case out <- ch:
				return true
			case <-ctx.Done():
				return false
			}
		})
		if err != nil && ctx.Err() == nil {
			s.log.Warn().Err(err).Str("table", table).Msg("feed stream closed")
		}
	}()
	return out, nil
}

// readEvents parses a text/event-stream body and calls fn per event until
// fn returns false or the body ends.
func readEvents(r io.Reader, fn func(event string, data []byte) bool) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 4096), maxEventBytes)

	var event string
	var data bytes.Buffer
	for sc.Scan() {
		line := strings.TrimSuffix(sc.Text(), "\r")
		if line == "" {
			if data.Len() > 0 || event != "" {
				if event == "" {
					event = "message"
				}
				if !fn(event, bytes.TrimSuffix(data.Bytes(), []byte("\n"))) {
					return nil
				}
			}
			event = ""
			data.Reset()
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue
		}
		name, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")
		switch name {
		case "event":
			event = value
		case "data":
			data.WriteString(value)
			data.WriteByte('\n')
		}
	}
	return sc.Err()
}

func (s *HTTPStore) do(ctx context.Context, c *http.Client, method, u string, body io.Reader, hdr http.Header) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, err
	}
	for k, v := range hdr {
		req.Header[k] = v
	}
	req.Header.Set("User-Agent", "guestctl/1.0")
	s.log.Debug().Str("method", method).Str("url", u).Msg("backend request")
	return c.Do(req)
}

// decode closes resp and decodes a 2xx body into out (if non-nil) or an
// error body into *APIError. Backend validation errors become
// *domain.ValidationError.
func decode(resp *http.Response, out any) error {
	defer resp.Body.Close()
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil || resp.StatusCode == http.StatusNoContent {
			_, _ = io.Copy(io.Discard, resp.Body)
			return nil
		}
		return json.NewDecoder(resp.Body).Decode(out)
	}

	apiErr := &APIError{Status: resp.StatusCode}
	_ = json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(apiErr)
	if apiErr.Code == "validation_failed" && apiErr.Field != "" {
		return &domain.ValidationError{Field: apiErr.Field, Reason: strings.TrimPrefix(apiErr.Message, apiErr.Field+": ")}
	}
	return apiErr
}
