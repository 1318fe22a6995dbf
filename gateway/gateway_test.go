package gateway

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/storefront/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCreds struct {
	mu       sync.Mutex
	token    string
	ok       bool
	next     string
	nextOK   bool
	forced   []string
	ensureCt int
}

func (f *fakeCreds) EnsureValidToken(context.Context) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ensureCt++
	return f.token, f.ok
}

func (f *fakeCreds) ForceRefresh(_ context.Context, rejected string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.forced = append(f.forced, rejected)
	f.token, f.ok = f.next, f.nextOK
	return f.next, f.nextOK
}

type scripted struct {
	statuses []int
	err      error
	seen     []*transport.Request
}

func (s *scripted) Do(_ context.Context, req *transport.Request) (*transport.Response, error) {
	s.seen = append(s.seen, req.Clone())
	if s.err != nil {
		return nil, s.err
	}
	status := s.statuses[0]
	if len(s.statuses) > 1 {
		s.statuses = s.statuses[1:]
	}
	return &transport.Response{StatusCode: status}, nil
}

func newRequest() *transport.Request {
	return &transport.Request{Method: http.MethodGet, Path: "/cart"}
}

func TestSendAttachesCredential(t *testing.T) {
	creds := &fakeCreds{token: "a-1", ok: true}
	next := &scripted{statuses: []int{http.StatusOK}}
	g := New(next, creds, nil, Hooks{})

	req := newRequest()
	resp, err := g.Send(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.Len(t, next.seen, 1)
	assert.Equal(t, "Bearer a-1", next.seen[0].Header.Get("Authorization"))
	assert.NotEmpty(t, next.seen[0].Header.Get(HeaderRequestID))
	assert.Nil(t, req.Header, "caller's request is not modified")
	assert.Empty(t, creds.forced)
}

func TestSendAnonymousHasNoAuthorization(t *testing.T) {
	creds := &fakeCreds{}
	next := &scripted{statuses: []int{http.StatusOK}}
	_, err := New(next, creds, nil, Hooks{}).Send(context.Background(), newRequest())
	require.NoError(t, err)
	assert.Empty(t, next.seen[0].Header.Get("Authorization"))
}

func TestSendRetriesOnceAfter401(t *testing.T) {
	creds := &fakeCreds{token: "stale", ok: true, next: "fresh", nextOK: true}
	next := &scripted{statuses: []int{http.StatusUnauthorized, http.StatusOK}}
	var retried int
	g := New(next, creds, nil, Hooks{AuthRetried: func() { retried++ }})

	resp, err := g.Send(context.Background(), newRequest())
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.Len(t, next.seen, 2)
	assert.Equal(t, "Bearer stale", next.seen[0].Header.Get("Authorization"))
	assert.Equal(t, "Bearer fresh", next.seen[1].Header.Get("Authorization"))
	assert.Equal(t, next.seen[0].Header.Get(HeaderRequestID), next.seen[1].Header.Get(HeaderRequestID))
	assert.Equal(t, []string{"stale"}, creds.forced)
	assert.Equal(t, 1, retried)
}

func TestSendSecond401IsUnauthorized(t *testing.T) {
	creds := &fakeCreds{token: "stale", ok: true, next: "fresh", nextOK: true}
	next := &scripted{statuses: []int{http.StatusUnauthorized, http.StatusUnauthorized, http.StatusOK}}
	var failed int
	g := New(next, creds, nil, Hooks{AuthFailed: func() { failed++ }})

	resp, err := g.Send(context.Background(), newRequest())
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Nil(t, resp)
	assert.Len(t, next.seen, 2, "no second retry")
	assert.Len(t, creds.forced, 1)
	assert.Equal(t, 1, failed)
}

func TestSendNoRetryWhenRefreshYieldsNothing(t *testing.T) {
	creds := &fakeCreds{token: "stale", ok: true}
	next := &scripted{statuses: []int{http.StatusUnauthorized}}

	_, err := New(next, creds, nil, Hooks{}).Send(context.Background(), newRequest())
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Len(t, next.seen, 1)
}

func TestSendDoesNotRetryOtherFailures(t *testing.T) {
	for _, status := range []int{http.StatusInternalServerError, http.StatusServiceUnavailable, http.StatusForbidden, http.StatusNotFound} {
		creds := &fakeCreds{token: "a", ok: true, next: "b", nextOK: true}
		next := &scripted{statuses: []int{status}}
		resp, err := New(next, creds, nil, Hooks{}).Send(context.Background(), newRequest())
		require.NoError(t, err)
		assert.Equal(t, status, resp.StatusCode)
		assert.Len(t, next.seen, 1)
		assert.Empty(t, creds.forced)
	}

	creds := &fakeCreds{token: "a", ok: true}
	next := &scripted{err: transport.ErrTimeout}
	var gotStatus = -1
	var gotErr error
	g := New(next, creds, nil, Hooks{Completed: func(status int, _ time.Duration, err error) {
		gotStatus, gotErr = status, err
	}})
	_, err := g.Send(context.Background(), newRequest())
	assert.True(t, errors.Is(err, transport.ErrTimeout))
	assert.Len(t, next.seen, 1)
	assert.Equal(t, 0, gotStatus)
	assert.ErrorIs(t, gotErr, transport.ErrTimeout)
}

func TestGatewayIsATransport(t *testing.T) {
	var _ transport.Transport = (*Gateway)(nil)
}
