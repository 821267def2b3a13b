package transport

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"autoriven/scraper/internal/config"
	"autoriven/scraper/internal/metrics"
	"autoriven/scraper/internal/proxy"

	log "github.com/sirupsen/logrus"
	"go.uber.org/ratelimit"
	"resty.dev/v3"
)

// Options tune a single Fetch call.
type Options struct {
	Method     string            // GET when empty
	Form       url.Values        // Sent url-encoded as the request body
	Headers    map[string]string // Extra headers, applied after the fingerprint
	SessionKey string            // Requests sharing a key share cookies
	Proxy      string            // Pins a credential; empty rotates round-robin
	UserAgent  string            // Overrides the session fingerprint
}

// Fetcher is the contract the site client depends on.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string, opts Options) (string, error)
	Proxies() proxy.Supplier
}

// Transport issues requests through rotating proxies with per-session cookie
// affinity, synthesized browser headers and jittered exponential backoff.
type Transport struct {
	cfg      config.ScraperConfig
	proxies  proxy.Supplier
	sessions *SessionStore
	rl       ratelimit.Limiter

	clientsMu sync.Mutex
	clients   map[string]*resty.Client

	jitter func(max time.Duration) time.Duration
	sleep  func(ctx context.Context, d time.Duration) error
}

func New(cfg config.ScraperConfig, proxies proxy.Supplier) *Transport {
	rl := ratelimit.NewUnlimited()
	if cfg.MaxRequestsPerSecond > 0 {
		rl = ratelimit.New(cfg.MaxRequestsPerSecond)
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}

	return &Transport{
		cfg:      cfg,
		proxies:  proxies,
		sessions: NewSessionStore(RandomFingerprint),
		rl:       rl,
		clients:  make(map[string]*resty.Client),
		jitter:   randomJitter,
		sleep:    Sleep,
	}
}

func (t *Transport) Proxies() proxy.Supplier {
	return t.proxies
}

func (t *Transport) Sessions() *SessionStore {
	return t.sessions
}

// Fetch returns the body of rawURL. Individual failed attempts are retried and
// never surfaced; after the last one a *FetchExhaustedError carries the final
// cause. Context cancellation is returned as is.
func (t *Transport) Fetch(ctx context.Context, rawURL string, opts Options) (string, error) {
	target, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid url %q: %w", rawURL, err)
	}

	key := opts.SessionKey
	if key == "" {
		key = defaultSessionKey
		if t.cfg.IsolateSessions {
			key = NewSessionKey()
			defer t.sessions.Destroy(key)
		}
	}
	session := t.sessions.Get(key)

	var lastErr error
	for attempt := 0; attempt < t.cfg.MaxAttempts; attempt++ {
		if attempt > 0 {
			delay := Backoff(t.cfg.BaseDelay, attempt-1) + t.jitter(t.cfg.MaxJitter)
			log.Debugf("🔄 Retrying %s in %v (attempt %d/%d): %v", rawURL, delay.Round(time.Millisecond), attempt+1, t.cfg.MaxAttempts, lastErr)
			if err := t.sleep(ctx, delay); err != nil {
				return "", fmt.Errorf("request cancelled: %w", err)
			}
		}
		if err := ctx.Err(); err != nil {
			return "", fmt.Errorf("request cancelled: %w", err)
		}

		proxyURL := opts.Proxy
		if proxyURL == "" && t.proxies != nil {
			proxyURL = t.proxies.Get()
		}

		body, status, err := t.attempt(ctx, target, session, proxyURL, opts)
		if err == nil {
			return body, nil
		}
		if ctx.Err() != nil {
			return "", fmt.Errorf("request cancelled: %w", ctx.Err())
		}
		lastErr = err

		if IsBlockStatus(status) || errors.Is(err, ErrBlockPage) {
			session.Reset()
			metrics.SessionResetsTotal.Inc()
			log.Warnf("🚫 Suspected block on %s via %s (%v), session %s reset", rawURL, proxy.Redact(proxyURL), err, session.Key)
		}
	}

	metrics.FetchExhaustedTotal.Inc()
	return "", &FetchExhaustedError{URL: rawURL, Attempts: t.cfg.MaxAttempts, Cause: lastErr}
}

// maxRedirects bounds the redirect hops followed within one attempt.
const maxRedirects = 10

// attempt performs one request, following redirects hop by hop so cookies set
// on intermediate responses reach the session. The returned status is 0 when
// no response was received.
func (t *Transport) attempt(ctx context.Context, target *url.URL, session *Session, proxyURL string, opts Options) (string, int, error) {
	fp := session.Fingerprint()
	ua := opts.UserAgent
	if ua == "" {
		ua = t.cfg.UserAgent
	}
	if ua != "" {
		fp = FingerprintFor(ua)
	}

	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}
	form := opts.Form

	current := target
	for hop := 0; ; hop++ {
		resp, err := t.send(ctx, current, session, fp, proxyURL, method, form, opts.Headers)
		if err != nil {
			metrics.FetchAttemptsTotal.WithLabelValues("error").Inc()
			return "", 0, fmt.Errorf("failed to fetch URL: %w", err)
		}
		session.StoreCookies(current, resp.Cookies())

		status := resp.StatusCode()
		location := resp.Header().Get("Location")
		if !isRedirect(status) || location == "" {
			return t.read(resp, status)
		}
		if hop >= maxRedirects {
			metrics.FetchAttemptsTotal.WithLabelValues("error").Inc()
			return "", status, fmt.Errorf("%w after %s", ErrTooManyRedirects, current)
		}

		next, err := current.Parse(location)
		if err != nil {
			metrics.FetchAttemptsTotal.WithLabelValues("error").Inc()
			return "", status, fmt.Errorf("invalid redirect location %q: %w", location, err)
		}
		log.Debugf("↪️ %s redirected to %s (%d)", current, next, status)
		current = next

		// 307 and 308 replay the request as is; the others continue with GET.
		if status != http.StatusTemporaryRedirect && status != http.StatusPermanentRedirect {
			method = http.MethodGet
			form = nil
		}
	}
}

func (t *Transport) send(
	ctx context.Context,
	target *url.URL,
	session *Session,
	fp Fingerprint,
	proxyURL, method string,
	form url.Values,
	headers map[string]string,
) (*resty.Response, error) {
	t.rl.Take()

	req := t.client(proxyURL).R().
		SetContext(ctx).
		SetHeaders(fp.Headers()).
		SetCookies(session.Cookies(target))
	for k, v := range headers {
		req.SetHeader(k, v)
	}
	if form != nil {
		req.SetHeader("Content-Type", "application/x-www-form-urlencoded").
			SetBody(form.Encode())
	}

	start := time.Now()
	resp, err := req.Execute(method, target.String())
	metrics.FetchDuration.Observe(time.Since(start).Seconds())
	return resp, err
}

// read classifies the final response of an attempt.
func (t *Transport) read(resp *resty.Response, status int) (string, int, error) {
	if status >= http.StatusBadRequest {
		outcome := "status"
		if IsBlockStatus(status) {
			outcome = "blocked"
		}
		metrics.FetchAttemptsTotal.WithLabelValues(outcome).Inc()
		return "", status, &StatusError{Code: status}
	}

	body := resp.String()
	if strings.TrimSpace(body) == "" {
		metrics.FetchAttemptsTotal.WithLabelValues("empty").Inc()
		return "", status, ErrEmptyBody
	}
	if marker := t.blockMarker(body); marker != "" {
		metrics.FetchAttemptsTotal.WithLabelValues("blocked").Inc()
		return "", status, fmt.Errorf("%w: %q", ErrBlockPage, marker)
	}

	metrics.FetchAttemptsTotal.WithLabelValues("ok").Inc()
	return body, status, nil
}

func isRedirect(status int) bool {
	switch status {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		return true
	}
	return false
}

func (t *Transport) blockMarker(body string) string {
	for _, m := range t.cfg.BlockMarkers {
		if m != "" && strings.Contains(body, m) {
			return m
		}
	}
	return ""
}

// client returns the resty client bound to proxyURL. Cookies live in the
// sessions and redirects are followed by attempt, so the clients carry no jar
// and never redirect on their own.
func (t *Transport) client(proxyURL string) *resty.Client {
	t.clientsMu.Lock()
	defer t.clientsMu.Unlock()

	if c, ok := t.clients[proxyURL]; ok {
		return c
	}

	c := resty.New().
		SetTimeout(t.cfg.Timeout).
		SetRetryCount(0).
		SetCookieJar(nil).
		SetRedirectPolicy(resty.NoRedirectPolicy())
	if t.cfg.InsecureSkipVerify {
		c.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	if proxyURL != "" {
		c.SetProxy(proxyURL)
		log.Debugf("🔗 Created client for proxy %s", proxy.Redact(proxyURL))
	}

	t.clients[proxyURL] = c
	return c
}

// Close releases every underlying HTTP client.
func (t *Transport) Close() error {
	t.clientsMu.Lock()
	defer t.clientsMu.Unlock()

	var errs []error
	for key, c := range t.clients {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
		delete(t.clients, key)
	}
	return errors.Join(errs...)
}
