package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/amsctl/internal/shared"
	"golang.org/x/oauth2"
)

const (
	RequestIDHeader    = "X-Request-ID"
	RefreshCookie      = "refreshToken"
	DefaultRefreshPath = "/auth/refresh"
	DefaultEntryPoint  = "/login"

	defaultRefreshTimeout = 30 * time.Second
	maxMessageBytes       = 1 << 20
)

// hardCodes are 401 messages that no refresh can recover from.
var hardCodes = map[string]struct{}{
	"NO_ACCESS_TOKEN":                  {},
	"NO_REFRESH_TOKEN":                 {},
	"INVALID_REFRESH_TOKEN":            {},
	"MISSING_REFRESH_TOKEN":            {},
	"INVALID_OR_EXPIRED_REFRESH_TOKEN": {},
	"BEARER_TOKEN_MISSING":             {},
}

// IsHardFailure reports whether a 401 message ends the session outright.
func IsHardFailure(message string) bool {
	_, ok := hardCodes[message]
	return ok
}

// Redirector sends the user to an unauthenticated entry point once the session is gone.
type Redirector interface {
	Redirect(ctx context.Context, path string)
}

// RedirectFunc adapts a function to [Redirector].
type RedirectFunc func(ctx context.Context, path string)

func (f RedirectFunc) Redirect(ctx context.Context, path string) { f(ctx, path) }

// RefreshError is returned to every request that was waiting on a failed refresh.
type RefreshError struct {
	StatusCode int    // 0 when the refresh call got no response
	Message    string // message field of the error body, if any
	Err        error
}

func (e *RefreshError) Error() string {
	switch {
	case e.Message != "":
		return fmt.Sprintf("%s: %d %s", shared.ErrRefreshFailed, e.StatusCode, e.Message)
	case e.StatusCode != 0 && e.Err != nil:
		return fmt.Sprintf("%s: status %d: %v", shared.ErrRefreshFailed, e.StatusCode, e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s: status %d", shared.ErrRefreshFailed, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", shared.ErrRefreshFailed, e.Err)
	default:
		return shared.ErrRefreshFailed.Error()
	}
}

func (e *RefreshError) Unwrap() []error {
	if e.Err == nil {
		return []error{shared.ErrRefreshFailed}
	}
	return []error{shared.ErrRefreshFailed, e.Err}
}

// Options configures a [Pipeline]. BaseURL and Store are required.
type Options struct {
	BaseURL        string
	Store          CredentialStore
	Transport      http.RoundTripper // defaults to [http.DefaultTransport]
	Redirector     Redirector
	EntryPoint     string // defaults to /login
	RefreshPath    string // defaults to /auth/refresh
	RefreshTimeout time.Duration
	Policy         Policy
	Logger         *log.Logger
}

// waiter is a request parked until the in-flight refresh settles.
// done is buffered so releasing never blocks on a caller that stopped waiting.
type waiter struct {
	seq  uint64
	done chan error
}

// Pipeline is an [http.RoundTripper] that authenticates requests and refreshes
// the access credential at most once per burst of expired-credential failures.
type Pipeline struct {
	base           http.RoundTripper
	baseURL        string
	store          CredentialStore
	redirector     Redirector
	entryPoint     string
	refreshPath    string
	refreshTimeout time.Duration
	policy         Policy
	logger         *log.Logger

	mu         sync.Mutex
	refreshing bool
	queue      []*waiter
	seq        uint64
}

// NewPipeline creates a [Pipeline], filling unset options with defaults.
func NewPipeline(opts Options) (*Pipeline, error) {
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("%w: base URL is required", shared.ErrMissingConfig)
	}
	if opts.Store == nil {
		return nil, fmt.Errorf("%w: credential store is required", shared.ErrMissingConfig)
	}

	p := &Pipeline{
		base:           opts.Transport,
		baseURL:        strings.TrimRight(opts.BaseURL, "/"),
		store:          opts.Store,
		redirector:     opts.Redirector,
		entryPoint:     opts.EntryPoint,
		refreshPath:    opts.RefreshPath,
		refreshTimeout: opts.RefreshTimeout,
		policy:         opts.Policy,
		logger:         opts.Logger,
	}

	if p.base == nil {
		p.base = http.DefaultTransport
	}
	if p.entryPoint == "" {
		p.entryPoint = DefaultEntryPoint
	}
	if p.refreshPath == "" {
		p.refreshPath = DefaultRefreshPath
	}
	if p.refreshTimeout <= 0 {
		p.refreshTimeout = defaultRefreshTimeout
	}
	if p.policy == (Policy{}) {
		p.policy = DefaultPolicy()
	}
	if p.logger == nil {
		p.logger = log.New(io.Discard)
	}
	if p.redirector == nil {
		p.redirector = RedirectFunc(func(_ context.Context, path string) {
			p.logger.Warn("session ended", "redirect", path)
		})
	}

	return p, nil
}

// BaseURL returns the API base URL without a trailing slash.
func (p *Pipeline) BaseURL() string { return p.baseURL }

// EntryPoint returns the path users are redirected to when the session ends.
func (p *Pipeline) EntryPoint() string { return p.entryPoint }

// Transport returns the underlying transport, which sends requests without credentials.
func (p *Pipeline) Transport() http.RoundTripper { return p.base }

// Store returns the credential store the pipeline reads from.
func (p *Pipeline) Store() CredentialStore { return p.store }

// Policy returns the expiry policy applied to issued credentials.
func (p *Pipeline) Policy() Policy { return p.policy }

// Client returns an [http.Client] that sends every request through the pipeline.
func (p *Pipeline) Client(timeout time.Duration) *http.Client {
	return &http.Client{Transport: p, Timeout: timeout}
}

// Do sends req through the pipeline.
func (p *Pipeline) Do(req *http.Request) (*http.Response, error) {
	return p.RoundTrip(req)
}

// Token implements [oauth2.TokenSource] over the stored access credential.
func (p *Pipeline) Token() (*oauth2.Token, error) {
	creds, err := p.store.Get(context.Background())
	if err != nil {
		return nil, err
	}
	if creds.AccessToken == "" {
		return nil, shared.ErrNotAuthenticated
	}
	return creds.Token(), nil
}

// Login stores a freshly issued credential pair under the pipeline's policy.
func (p *Pipeline) Login(ctx context.Context, access, refresh string) (Credentials, error) {
	creds := p.policy.Issue(access, refresh, time.Now())
	if err := p.store.Set(ctx, creds); err != nil {
		return Credentials{}, fmt.Errorf("failed to store credentials: %w", err)
	}
	return creds, nil
}

// Logout clears both credentials.
func (p *Pipeline) Logout(ctx context.Context) error {
	return p.store.Clear(ctx)
}

// Refresh renews the access credential, joining a refresh that is already in flight.
func (p *Pipeline) Refresh(ctx context.Context) error {
	return p.awaitRefresh(ctx)
}

// RoundTrip implements [http.RoundTripper].
//
// Network errors pass through untouched. A 401 carrying a hard code clears the session and is
// returned as is. Any other 401 triggers (or joins) a refresh, after which the request is sent
// once more with the new credential; a second 401 is returned to the caller.
func (p *Pipeline) RoundTrip(req *http.Request) (*http.Response, error) {
	body, err := snapshotBody(req)
	if err != nil {
		return nil, err
	}

	id := req.Header.Get(RequestIDHeader)
	if id == "" {
		id = shared.GenerateID()
	}

	return p.roundTrip(req, body, id, false)
}

func (p *Pipeline) roundTrip(req *http.Request, body []byte, id string, retried bool) (*http.Response, error) {
	ctx := req.Context()
	logger := p.logger.With("request_id", id, "method", req.Method, "path", req.URL.Path)

	resp, err := p.send(req, body, id)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}

	message := peekMessage(resp)
	if IsHardFailure(message) {
		logger.Warn("session rejected", "code", message)
		p.endSession(ctx)
		return resp, nil
	}
	if retried {
		logger.Debug("unauthorized after retry", "code", message)
		return resp, nil
	}

	logger.Debug("access credential rejected", "code", message)
	if err := p.awaitRefresh(ctx); err != nil {
		closeBody(resp)
		return nil, err
	}

	closeBody(resp)
	return p.roundTrip(req, body, id, true)
}

// send dispatches one attempt of req with the current access credential.
func (p *Pipeline) send(req *http.Request, body []byte, id string) (*http.Response, error) {
	creds, err := p.store.Get(req.Context())
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials: %w", err)
	}

	out := req.Clone(req.Context())
	out.Header.Set(RequestIDHeader, id)
	if creds.AccessToken != "" {
		out.Header.Set("Authorization", "Bearer "+creds.AccessToken)
	}
	if body != nil {
		out.Body = io.NopCloser(bytes.NewReader(body))
		out.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(body)), nil
		}
		out.ContentLength = int64(len(body))
	}

	return p.base.RoundTrip(out)
}

// awaitRefresh runs the refresh when none is in flight, or waits for the one that is.
func (p *Pipeline) awaitRefresh(ctx context.Context) error {
	p.mu.Lock()
	if p.refreshing {
		w := p.enqueue()
		p.mu.Unlock()

		p.logger.Debug("waiting for refresh", "position", w.seq)
		select {
		case err := <-w.done:
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	p.refreshing = true
	p.mu.Unlock()

	err := p.refresh(ctx)
	if err != nil {
		p.endSession(ctx)
	}

	p.mu.Lock()
	waiters := p.drain()
	p.mu.Unlock()

	for _, w := range waiters {
		w.done <- err
	}

	if err != nil {
		p.logger.Error("refresh failed", "err", err, "waiters", len(waiters))
		return err
	}
	p.logger.Info("access credential refreshed", "waiters", len(waiters))
	return nil
}

// enqueue appends a waiter. Callers must hold p.mu.
func (p *Pipeline) enqueue() *waiter {
	p.seq++
	w := &waiter{seq: p.seq, done: make(chan error, 1)}
	p.queue = append(p.queue, w)
	return w
}

// drain empties the queue and clears the in-flight flag in one step, returning the
// waiters in arrival order. Callers must hold p.mu.
func (p *Pipeline) drain() []*waiter {
	waiters := p.queue
	p.queue = nil
	p.refreshing = false
	return waiters
}

type refreshResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	Message      string `json:"message"`
}

// refresh exchanges the refresh credential for a new access credential and stores it.
//
// It runs on the underlying transport, detached from the caller's cancellation and bounded by
// the refresh timeout.
func (p *Pipeline) refresh(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.refreshTimeout)
	defer cancel()

	creds, err := p.store.Get(ctx)
	if err != nil {
		return &RefreshError{Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+p.refreshPath, nil)
	if err != nil {
		return &RefreshError{Err: err}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeader, shared.GenerateID())
	if creds.AccessToken != "" {
		req.Header.Set("Authorization", "Bearer "+creds.AccessToken)
	}
	if creds.RefreshToken != "" {
		req.AddCookie(&http.Cookie{Name: RefreshCookie, Value: creds.RefreshToken})
	}

	p.logger.Info("refreshing access credential")

	resp, err := p.base.RoundTrip(req)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("%w: %w", shared.ErrTimeout, err)
		}
		return &RefreshError{Err: err}
	}
	defer closeBody(resp)

	var payload refreshResponse
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxMessageBytes))
	if err != nil {
		return &RefreshError{StatusCode: resp.StatusCode, Err: err}
	}
	decodeErr := json.Unmarshal(data, &payload)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &RefreshError{StatusCode: resp.StatusCode, Message: payload.Message}
	}
	if decodeErr != nil {
		return &RefreshError{StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to decode refresh response: %w", decodeErr)}
	}
	if payload.AccessToken == "" {
		return &RefreshError{StatusCode: resp.StatusCode, Err: errors.New("response carried no access credential")}
	}

	rotated := payload.RefreshToken
	if rotated == "" {
		for _, c := range resp.Cookies() {
			if c.Name == RefreshCookie && c.Value != "" {
				rotated = c.Value
			}
		}
	}

	next := p.policy.Renew(creds, payload.AccessToken, rotated, time.Now())
	if err := p.store.Set(ctx, next); err != nil {
		return &RefreshError{Err: fmt.Errorf("failed to store credentials: %w", err)}
	}
	return nil
}

// endSession clears both credentials and redirects to the entry point.
func (p *Pipeline) endSession(ctx context.Context) {
	if err := p.store.Clear(context.WithoutCancel(ctx)); err != nil {
		p.logger.Error("failed to clear credentials", "err", err)
	}
	p.redirector.Redirect(ctx, p.entryPoint)
}

// snapshotBody reads and closes the request body so every attempt can replay it.
func snapshotBody(req *http.Request) ([]byte, error) {
	if req.Body == nil || req.Body == http.NoBody {
		return nil, nil
	}
	defer req.Body.Close()

	data, err := io.ReadAll(req.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to buffer request body: %w", err)
	}
	return data, nil
}

// peekMessage reads the message field of an error body and restores the body for the caller.
func peekMessage(resp *http.Response) string {
	if resp.Body == nil {
		return ""
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxMessageBytes))
	resp.Body.Close()
	resp.Body = io.NopCloser(bytes.NewReader(data))

	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return ""
	}
	return payload.Message
}

func closeBody(resp *http.Response) {
	if resp.Body != nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}
}
