package apiclient

import (
	"fmt"
	"net/http"
	"time"

	"github.com/PaesslerAG/jsonpath"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/xeipuuv/gojsonschema"
)

// Result wraps a completed HTTP exchange. The body has already been read
// in full, so every accessor is repeatable and none of them can fail on a
// half-consumed stream.
type Result struct {
	resp     *http.Response
	body     []byte
	duration time.Duration
	attempts int
	logger   zerolog.Logger
}

// StatusCode returns the HTTP status code of the final attempt.
func (r *Result) StatusCode() int { return r.resp.StatusCode }

// Status returns the full status line, e.g. "200 OK".
func (r *Result) Status() string { return r.resp.Status }

// Header returns the response headers.
func (r *Result) Header() http.Header { return r.resp.Header }

// Bytes returns the raw response body. The slice is shared; callers must
// not modify it.
func (r *Result) Bytes() []byte { return r.body }

// String returns the response body as a string.
func (r *Result) String() string { return string(r.body) }

// Duration is the wall-clock time of the final attempt's round trip.
func (r *Result) Duration() time.Duration { return r.duration }

// Attempts is the total number of transport attempts made, including the
// successful one.
func (r *Result) Attempts() int { return r.attempts }

// IsSuccess reports whether the status code is in the 2xx range.
func (r *Result) IsSuccess() bool {
	return r.resp.StatusCode >= 200 && r.resp.StatusCode < 300
}

// IsError reports whether the status code is 4xx or 5xx.
func (r *Result) IsError() bool { return r.resp.StatusCode >= 400 }

// DecodeJSON unmarshals the response body into v.
func (r *Result) DecodeJSON(v any) error {
	if err := json.Unmarshal(r.body, v); err != nil {
		return &SerializationError{Op: "decode response", Err: err}
	}
	return nil
}

// Field evaluates a JSONPath expression (e.g. "$.data.items[0].id")
// against the response body and returns the matched value.
func (r *Result) Field(path string) (any, error) {
	var doc any
	if err := json.Unmarshal(r.body, &doc); err != nil {
		return nil, &SerializationError{Op: "decode response", Err: err}
	}
	v, err := jsonpath.Get(path, doc)
	if err != nil {
		return nil, &AssertionError{
			Message: fmt.Sprintf("jsonpath %q: %v", path, err),
			Status:  r.resp.StatusCode,
			Body:    string(r.body),
		}
	}
	return v, nil
}

// AssertStatus fails unless the status code matches exactly. The returned
// error carries the body so test output shows what the server said.
func (r *Result) AssertStatus(want int) error {
	if r.resp.StatusCode == want {
		return nil
	}
	return &AssertionError{
		Message: fmt.Sprintf("expected status %d, got %d", want, r.resp.StatusCode),
		Status:  r.resp.StatusCode,
		Body:    string(r.body),
	}
}

// AssertSuccess fails unless the status code is 2xx.
func (r *Result) AssertSuccess() error {
	if r.IsSuccess() {
		return nil
	}
	return &AssertionError{
		Message: fmt.Sprintf("expected 2xx status, got %d", r.resp.StatusCode),
		Status:  r.resp.StatusCode,
		Body:    string(r.body),
	}
}

// AssertFieldEquals fails unless the JSONPath expression resolves to want.
// Numeric JSON values decode as float64, so compare against float64 for
// numbers.
func (r *Result) AssertFieldEquals(path string, want any) error {
	got, err := r.Field(path)
	if err != nil {
		return err
	}
	if got != want {
		return &AssertionError{
			Message: fmt.Sprintf("field %q: expected %v, got %v", path, want, got),
			Status:  r.resp.StatusCode,
			Body:    string(r.body),
		}
	}
	return nil
}

// AssertPredicate fails with the given message unless fn returns true for
// this result.
func (r *Result) AssertPredicate(message string, fn func(*Result) bool) error {
	if fn(r) {
		return nil
	}
	return &AssertionError{
		Message: message,
		Status:  r.resp.StatusCode,
		Body:    string(r.body),
	}
}

// ValidateSchema validates the response body against a JSON Schema
// document. The error message lists every violated constraint.
func (r *Result) ValidateSchema(schema string) error {
	res, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(schema),
		gojsonschema.NewBytesLoader(r.body),
	)
	if err != nil {
		return &AssertionError{
			Message: fmt.Sprintf("schema validation: %v", err),
			Status:  r.resp.StatusCode,
			Body:    string(r.body),
		}
	}
	if res.Valid() {
		return nil
	}
	msg := "schema violations:"
	for _, desc := range res.Errors() {
		msg += " " + desc.String() + ";"
	}
	return &AssertionError{
		Message: msg,
		Status:  r.resp.StatusCode,
		Body:    string(r.body),
	}
}

// SoftAssert collects assertion failures instead of stopping at the first
// one. Run the checks, then call Err to get the combined failure, if any.
//
//	soft := res.SoftAssert()
//	soft.Check(res.AssertStatus(200))
//	soft.Check(res.AssertFieldEquals("$.ok", true))
//	if err := soft.Err(); err != nil { ... }
type SoftAssert struct {
	result   *Result
	failures []error
}

// SoftAssert returns a collector bound to this result.
func (r *Result) SoftAssert() *SoftAssert {
	return &SoftAssert{result: r}
}

// Check records err if it is non-nil and returns the collector for
// chaining. Swallowed failures are logged at warn level so they remain
// visible even when the caller never inspects Err.
func (s *SoftAssert) Check(err error) *SoftAssert {
	if err != nil {
		s.failures = append(s.failures, err)
		s.result.logger.Warn().
			Int("status", s.result.resp.StatusCode).
			Err(err).
			Msg("soft assertion failed")
	}
	return s
}

// Failures returns the collected assertion errors in check order.
func (s *SoftAssert) Failures() []error { return s.failures }

// Err returns nil when every check passed, otherwise a single
// *AssertionError summarizing all failures.
func (s *SoftAssert) Err() error {
	if len(s.failures) == 0 {
		return nil
	}
	msg := fmt.Sprintf("%d assertion(s) failed:", len(s.failures))
	for i, f := range s.failures {
		msg += fmt.Sprintf(" [%d] %v;", i+1, f)
	}
	return &AssertionError{
		Message: msg,
		Status:  s.result.resp.StatusCode,
		Body:    string(s.result.body),
	}
}
