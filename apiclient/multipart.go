package apiclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"time"
)

// UploadBuilder assembles a multipart/form-data request. Files can come
// from disk or from in-memory bytes, mixed with plain form fields. The
// body is buffered up front so the usual retry machinery can replay it.
//
//	res, err := client.Upload().
//		Path("/documents").
//		File("document", "report.pdf").
//		Field("owner", "ops").
//		Send(ctx)
type UploadBuilder struct {
	client *Client

	baseURL    string
	basePath   string
	path       string
	headers    []Header
	auth       AuthConfig
	timeout    time.Duration
	retryCount *int
	retryDelay time.Duration

	fields []Param
	files  []uploadFile
}

type uploadFile struct {
	fieldName string
	fileName  string
	path      string // read from disk when set
	content   []byte
}

// BaseURL overrides the client's configured base URL for this upload.
func (ub *UploadBuilder) BaseURL(u string) *UploadBuilder {
	ub.baseURL = u
	return ub
}

// BasePath sets the path prefix.
func (ub *UploadBuilder) BasePath(p string) *UploadBuilder {
	ub.basePath = p
	return ub
}

// Path sets the endpoint path.
func (ub *UploadBuilder) Path(p string) *UploadBuilder {
	ub.path = p
	return ub
}

// Header adds a request header.
func (ub *UploadBuilder) Header(name, value string) *UploadBuilder {
	ub.headers = append(ub.headers, Header{Name: name, Value: value})
	return ub
}

// Auth sets the auth descriptor.
func (ub *UploadBuilder) Auth(a AuthConfig) *UploadBuilder {
	ub.auth = a
	return ub
}

// Timeout sets the per-attempt timeout.
func (ub *UploadBuilder) Timeout(d time.Duration) *UploadBuilder {
	ub.timeout = d
	return ub
}

// Retries overrides the client's retry budget for this upload.
func (ub *UploadBuilder) Retries(n int) *UploadBuilder {
	ub.retryCount = &n
	return ub
}

// RetryDelay overrides the base backoff delay.
func (ub *UploadBuilder) RetryDelay(d time.Duration) *UploadBuilder {
	ub.retryDelay = d
	return ub
}

// Field adds a plain form field.
func (ub *UploadBuilder) Field(name, value string) *UploadBuilder {
	ub.fields = append(ub.fields, Param{Name: name, Value: value})
	return ub
}

// File attaches a file from disk under the given form field name. The
// file is read when Send is called.
func (ub *UploadBuilder) File(fieldName, path string) *UploadBuilder {
	ub.files = append(ub.files, uploadFile{
		fieldName: fieldName,
		fileName:  filepath.Base(path),
		path:      path,
	})
	return ub
}

// FileBytes attaches in-memory content as a file part.
func (ub *UploadBuilder) FileBytes(fieldName, fileName string, content []byte) *UploadBuilder {
	ub.files = append(ub.files, uploadFile{
		fieldName: fieldName,
		fileName:  fileName,
		content:   content,
	})
	return ub
}

// Send builds the multipart body and posts it through the execution
// engine, so retries, auth, interceptors and metrics apply exactly as for
// regular requests.
func (ub *UploadBuilder) Send(ctx context.Context) (*Result, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for _, f := range ub.files {
		part, err := w.CreateFormFile(f.fieldName, f.fileName)
		if err != nil {
			return nil, fmt.Errorf("create form file %q: %w", f.fieldName, err)
		}
		if f.path != "" {
			src, err := os.Open(f.path)
			if err != nil {
				return nil, fmt.Errorf("open upload file %q: %w", f.path, err)
			}
			_, err = io.Copy(part, src)
			src.Close()
			if err != nil {
				return nil, fmt.Errorf("read upload file %q: %w", f.path, err)
			}
		} else {
			if _, err := part.Write(f.content); err != nil {
				return nil, fmt.Errorf("write upload content %q: %w", f.fieldName, err)
			}
		}
	}
	for _, f := range ub.fields {
		if err := w.WriteField(f.Name, f.Value); err != nil {
			return nil, fmt.Errorf("write form field %q: %w", f.Name, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("finalize multipart body: %w", err)
	}

	cfg := ub.client.config
	baseURL := ub.baseURL
	if baseURL == "" {
		baseURL = cfg.BaseURL
	}
	timeout := ub.timeout
	if timeout == 0 {
		timeout = cfg.Timeout
	}
	retryCount := cfg.Retries
	if ub.retryCount != nil {
		retryCount = *ub.retryCount
	}
	retryDelay := ub.retryDelay
	if retryDelay == 0 {
		retryDelay = cfg.RetryDelay
	}

	spec := RequestSpec{
		Method:      MethodPost,
		BaseURL:     baseURL,
		BasePath:    ub.basePath,
		Path:        ub.path,
		Headers:     append([]Header(nil), ub.headers...),
		Body:        buf.Bytes(),
		ContentType: w.FormDataContentType(),
		Auth:        ub.auth,
		Timeout:     timeout,
		RetryCount:  retryCount,
		RetryDelay:  retryDelay,
		RetryIf:     DefaultRetryPredicate,
		LogEnabled:  true,
	}

	return ub.client.engine.Execute(ctx, spec)
}
