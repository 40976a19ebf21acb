package apiclient

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"sync"
)

// MockTransport is a configurable http.RoundTripper for tests. It stubs
// responses by path or predicate, supports sequences for retry scenarios
// (serve 500, 500, then 200), and records every request it sees.
type MockTransport struct {
	mu          sync.Mutex
	stubs       []mockStub
	defaultResp *mockResponse
	defaultErr  error
	requests    []*http.Request
	bodies      [][]byte
}

type mockStub struct {
	matcher  func(*http.Request) bool
	sequence []mockOutcome
	next     int
}

type mockOutcome struct {
	resp *mockResponse
	err  error
}

type mockResponse struct {
	status int
	body   string
	header http.Header
}

// NewMockTransport creates an empty transport; unmatched requests fail.
func NewMockTransport() *MockTransport {
	return &MockTransport{}
}

// StubResponse makes every otherwise-unmatched request return the given
// status and body.
func (m *MockTransport) StubResponse(statusCode int, body string) *MockTransport {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultResp = &mockResponse{status: statusCode, body: body}
	return m
}

// StubError makes every otherwise-unmatched request fail with err.
func (m *MockTransport) StubError(err error) *MockTransport {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultErr = err
	return m
}

// StubPath stubs requests to the given URL path.
func (m *MockTransport) StubPath(path string, statusCode int, body string) *MockTransport {
	return m.StubFunc(func(req *http.Request) bool {
		return req.URL.Path == path
	}, statusCode, body)
}

// StubFunc stubs requests matching the predicate. First matching stub wins.
func (m *MockTransport) StubFunc(matcher func(*http.Request) bool, statusCode int, body string) *MockTransport {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stubs = append(m.stubs, mockStub{
		matcher:  matcher,
		sequence: []mockOutcome{{resp: &mockResponse{status: statusCode, body: body}}},
	})
	return m
}

// StubFuncError stubs requests matching the predicate to fail with err.
func (m *MockTransport) StubFuncError(matcher func(*http.Request) bool, err error) *MockTransport {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stubs = append(m.stubs, mockStub{
		matcher:  matcher,
		sequence: []mockOutcome{{err: err}},
	})
	return m
}

// StubSequence serves the given outcomes in order to requests matching the
// path; once exhausted, the last outcome repeats. Use MockStatus and
// MockError to build the steps.
func (m *MockTransport) StubSequence(path string, outcomes ...MockOutcome) *MockTransport {
	seq := make([]mockOutcome, len(outcomes))
	for i, o := range outcomes {
		seq[i] = mockOutcome(o)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stubs = append(m.stubs, mockStub{
		matcher: func(req *http.Request) bool {
			return req.URL.Path == path
		},
		sequence: seq,
	})
	return m
}

// MockOutcome is one step of a StubSequence.
type MockOutcome mockOutcome

// MockStatus builds a sequence step that serves a status and body.
func MockStatus(statusCode int, body string) MockOutcome {
	return MockOutcome{resp: &mockResponse{status: statusCode, body: body}}
}

// MockError builds a sequence step that fails at the transport level.
func MockError(err error) MockOutcome {
	return MockOutcome{err: err}
}

// RoundTrip implements http.RoundTripper.
func (m *MockTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	var body []byte
	if req.Body != nil {
		body, _ = io.ReadAll(req.Body)
		req.Body.Close()
		req.Body = io.NopCloser(bytes.NewReader(body))
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)
	m.bodies = append(m.bodies, body)

	for i := range m.stubs {
		s := &m.stubs[i]
		if !s.matcher(req) {
			continue
		}
		out := s.sequence[s.next]
		if s.next < len(s.sequence)-1 {
			s.next++
		}
		if out.err != nil {
			return nil, out.err
		}
		return out.resp.build(req), nil
	}

	if m.defaultErr != nil {
		return nil, m.defaultErr
	}
	if m.defaultResp != nil {
		return m.defaultResp.build(req), nil
	}
	return nil, errors.New("no stub found for request: " + req.Method + " " + req.URL.String())
}

func (r *mockResponse) build(req *http.Request) *http.Response {
	header := make(http.Header)
	for k, v := range r.header {
		header[k] = v
	}
	return &http.Response{
		StatusCode:    r.status,
		Status:        http.StatusText(r.status),
		Header:        header,
		Body:          io.NopCloser(bytes.NewBufferString(r.body)),
		ContentLength: int64(len(r.body)),
		Request:       req,
	}
}

// Requests returns a copy of all recorded requests in arrival order.
func (m *MockTransport) Requests() []*http.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*http.Request{}, m.requests...)
}

// RequestBodies returns the bodies of all recorded requests, aligned with
// Requests().
func (m *MockTransport) RequestBodies() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]byte, len(m.bodies))
	for i, b := range m.bodies {
		out[i] = append([]byte(nil), b...)
	}
	return out
}

// RequestCount returns the number of requests seen.
func (m *MockTransport) RequestCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// LastRequest returns the most recent request, or nil.
func (m *MockTransport) LastRequest() *http.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.requests) == 0 {
		return nil
	}
	return m.requests[len(m.requests)-1]
}

// Reset clears all stubs and recorded requests.
func (m *MockTransport) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stubs = nil
	m.defaultResp = nil
	m.defaultErr = nil
	m.requests = nil
	m.bodies = nil
}
