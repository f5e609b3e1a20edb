// Package mx answers the question "does this domain accept mail" by looking
// up MX records, with per-domain caching and single-flight de-duplication so
// a burst of requests for one domain costs at most one DNS round trip.
package mx

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"net"
	"sort"
	"strings"
	"sync"
	"time"

	mdns "github.com/miekg/dns"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/scoutlabs/mailscout/internal/domain"
	"github.com/scoutlabs/mailscout/internal/metrics"
)

// exchanger is the subset of *dns.Client the resolver uses, injectable in tests.
type exchanger interface {
	ExchangeContext(ctx context.Context, m *mdns.Msg, addr string) (*mdns.Msg, time.Duration, error)
}

type Config struct {
	Servers     []string      // "host:port"; empty = /etc/resolv.conf, then public resolvers
	Timeout     time.Duration // per-exchange budget
	CacheTTL    time.Duration
	QueriesPerS float64 // outbound throttle; 0 = no limit
	RetryWait   time.Duration
}

type Resolver struct {
	udp exchanger
	tcp exchanger

	timeout   time.Duration
	retryWait time.Duration
	limiter   *rate.Limiter
	cache     *Cache
	group     singleflight.Group
	logger    *slog.Logger

	mu          sync.Mutex
	servers     []string
	rotateIndex int
}

func NewResolver(cfg Config, logger *slog.Logger) *Resolver {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 4 * time.Second
	}
	if cfg.RetryWait <= 0 {
		cfg.RetryWait = 500 * time.Millisecond
	}
	if len(cfg.Servers) == 0 {
		cfg.Servers = systemResolvers()
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.QueriesPerS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.QueriesPerS), int(cfg.QueriesPerS)+1)
	}

	return &Resolver{
		udp: &mdns.Client{
			Net:          "udp",
			Timeout:      cfg.Timeout,
			DialTimeout:  cfg.Timeout,
			ReadTimeout:  cfg.Timeout,
			WriteTimeout: cfg.Timeout,
			UDPSize:      1232,
		},
		tcp: &mdns.Client{
			Net:          "tcp",
			Timeout:      cfg.Timeout,
			DialTimeout:  cfg.Timeout,
			ReadTimeout:  cfg.Timeout,
			WriteTimeout: cfg.Timeout,
		},
		timeout:   cfg.Timeout,
		retryWait: cfg.RetryWait,
		limiter:   limiter,
		cache:     NewCache(cfg.CacheTTL),
		servers:   cfg.Servers,
		logger:    logger.With("component", "mx_resolver"),
	}
}

// Cache exposes the verification cache so maintenance jobs can purge it.
func (r *Resolver) Cache() *Cache { return r.cache }

// Verify resolves MX records for rawDomain. Within the cache TTL, repeat
// calls are served from memory; concurrent calls for the same uncached domain
// share one in-flight lookup. NXDOMAIN and empty answers are legitimate
// negative results, not errors.
func (r *Resolver) Verify(ctx context.Context, rawDomain string) (*domain.DomainVerification, error) {
	name, err := domain.NormalizeDomain(rawDomain)
	if err != nil {
		return nil, err
	}

	if v := r.cache.Get(name); v != nil {
		metrics.MXCacheHits.Inc()
		return v, nil
	}
	metrics.MXCacheMisses.Inc()

	// The flight runs on a detached context so one caller's cancellation
	// cannot poison the result for other waiters on the same domain.
	ch := r.group.DoChan(name, func() (any, error) {
		flightCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*r.timeout+r.retryWait)
		defer cancel()

		v, err := r.lookupWithRetry(flightCtx, name)
		if err != nil {
			return nil, err
		}
		r.cache.Set(name, v)
		return v, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Shared {
			metrics.MXSingleflightShared.Inc()
		}
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*domain.DomainVerification), nil
	}
}

// lookupWithRetry performs the MX query with at most one retry. Timeouts and
// SERVFAIL are retried after a jittered backoff; NXDOMAIN and other permanent
// conditions are not.
func (r *Resolver) lookupWithRetry(ctx context.Context, name string) (*domain.DomainVerification, error) {
	v, err := r.lookup(ctx, name)
	if err == nil || !retryable(err) {
		return v, err
	}

	wait := r.retryWait + time.Duration(rand.Int63n(int64(r.retryWait/2)+1))
	r.logger.Debug("mx lookup retry", "domain", name, "wait", wait, "error", err)

	select {
	case <-ctx.Done():
		return nil, classifyNetErr(ctx.Err())
	case <-time.After(wait):
	}

	return r.lookup(ctx, name)
}

func (r *Resolver) lookup(ctx context.Context, name string) (*domain.DomainVerification, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, classifyNetErr(err)
	}

	msg := new(mdns.Msg)
	msg.SetQuestion(mdns.Fqdn(name), mdns.TypeMX)
	msg.RecursionDesired = true
	msg.SetEdns0(1232, false)

	server := r.nextServer()

	start := time.Now()
	resp, outcome, err := r.exchange(ctx, msg, server)
	metrics.DNSLookupDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}

	return r.classify(name, resp)
}

// exchange queries over UDP, falling back to TCP on truncation or transport
// error. The second return is the metric label for the attempt's outcome.
func (r *Resolver) exchange(ctx context.Context, msg *mdns.Msg, server string) (*mdns.Msg, string, error) {
	resp, _, err := r.udp.ExchangeContext(ctx, msg, server)
	if err == nil && resp != nil && !resp.Truncated {
		return resp, "ok", nil
	}

	resp, _, tcpErr := r.tcp.ExchangeContext(ctx, msg, server)
	if tcpErr != nil {
		classified := classifyNetErr(tcpErr)
		if err != nil {
			// Prefer the UDP failure mode when both transports failed.
			classified = classifyNetErr(err)
		}
		return nil, outcomeLabel(classified), classified
	}
	if resp == nil {
		return nil, "error", fmt.Errorf("%w: empty response from %s", domain.ErrDNSResolutionFailure, server)
	}
	return resp, "ok", nil
}

// classify turns a DNS response into a DomainVerification or a structured
// failure. NXDOMAIN means the domain does not exist: has_mx=false, no error.
func (r *Resolver) classify(name string, resp *mdns.Msg) (*domain.DomainVerification, error) {
	switch resp.Rcode {
	case mdns.RcodeSuccess:
		// fall through to the answer section
	case mdns.RcodeNameError:
		return &domain.DomainVerification{Domain: name, CheckedAt: time.Now()}, nil
	case mdns.RcodeServerFailure:
		return nil, fmt.Errorf("%w: SERVFAIL for %s", errServfail, name)
	default:
		return nil, fmt.Errorf("%w: %s for %s", domain.ErrDNSResolutionFailure, mdns.RcodeToString[resp.Rcode], name)
	}

	records := make([]domain.MXRecord, 0, len(resp.Answer))
	for _, rr := range resp.Answer {
		mxRR, ok := rr.(*mdns.MX)
		if !ok {
			continue
		}
		records = append(records, domain.MXRecord{
			Priority: int(mxRR.Preference),
			Host:     strings.TrimSuffix(mxRR.Mx, "."),
		})
	}
	sort.SliceStable(records, func(i, j int) bool { return records[i].Priority < records[j].Priority })

	return &domain.DomainVerification{
		Domain:    name,
		HasMX:     len(records) > 0,
		Records:   records,
		CheckedAt: time.Now(),
	}, nil
}

func (r *Resolver) nextServer() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	server := r.servers[r.rotateIndex%len(r.servers)]
	r.rotateIndex = (r.rotateIndex + 1) % len(r.servers)

	if !strings.Contains(server, ":") {
		server = net.JoinHostPort(server, "53")
	}
	return server
}

// errServfail marks a transient upstream failure eligible for one retry. It
// surfaces to callers as ErrDNSResolutionFailure.
var errServfail = fmt.Errorf("%w (transient)", domain.ErrDNSResolutionFailure)

func retryable(err error) bool {
	return errors.Is(err, domain.ErrDNSTimeout) || errors.Is(err, errServfail)
}

func classifyNetErr(err error) error {
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %v", domain.ErrDNSTimeout, err)
	case errors.As(err, &netErr) && netErr.Timeout():
		return fmt.Errorf("%w: %v", domain.ErrDNSTimeout, err)
	default:
		return fmt.Errorf("%w: %v", domain.ErrDNSResolutionFailure, err)
	}
}

func outcomeLabel(err error) string {
	if errors.Is(err, domain.ErrDNSTimeout) {
		return "timeout"
	}
	return "error"
}

func systemResolvers() []string {
	cfg, err := mdns.ClientConfigFromFile("/etc/resolv.conf")
	if err != nil || cfg == nil || len(cfg.Servers) == 0 {
		return []string{"1.1.1.1:53", "8.8.8.8:53"}
	}
	servers := make([]string, 0, len(cfg.Servers))
	for _, s := range cfg.Servers {
		servers = append(servers, net.JoinHostPort(s, cfg.Port))
	}
	return servers
}
