package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http/httptest"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/storefront"
	"github.com/MrEthical07/storefront/internal/fakeapi"
	"github.com/MrEthical07/storefront/permission"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

const (
	loadEmail    = "load@example.com"
	loadPassword = "load-test-password"
)

func main() {
	var (
		clients     = flag.Int("clients", 32, "number of independent signed-in clients")
		concurrency = flag.Int("concurrency", 128, "number of concurrent workers")
		ops         = flag.Int("ops", 20000, "authorized requests per phase")
		rounds      = flag.Int("rounds", 5, "access token revocations in the revoked phase")
		refreshLag  = flag.Duration("refresh-delay", 20*time.Millisecond, "fake API delay on every refresh")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		prefix      = flag.String("prefix", "sfload", "refresh token key prefix")
	)
	flag.Parse()

	if *clients <= 0 || *concurrency <= 0 || *ops <= 0 || *rounds <= 0 {
		fmt.Fprintln(os.Stderr, "clients, concurrency, ops and rounds must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	rdb, cleanup, err := openRedis(*redisAddr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "redis: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	srv := fakeapi.New(fakeapi.Options{RefreshDelay: *refreshLag, Logger: logger})
	if err := srv.AddUser(loadEmail, loadPassword, permission.Member); err != nil {
		fmt.Fprintf(os.Stderr, "seed user: %v\n", err)
		os.Exit(1)
	}
	hs := httptest.NewServer(srv.Handler())
	defer hs.Close()

	fmt.Printf("signing in %d clients...\n", *clients)
	pool, err := signIn(ctx, hs.URL, srv, rdb, *prefix, *clients, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sign in: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		for _, c := range pool {
			c.Close()
		}
	}()

	steady := runPhase(ctx, pool, *ops, *concurrency)
	steadyRefreshes := srv.Calls("refresh")

	var revoked phaseStats
	perRound := *ops / *rounds
	if perRound == 0 {
		perRound = 1
	}
	for r := 0; r < *rounds; r++ {
		srv.InvalidateAccessTokens()
		revoked = revoked.merge(runPhase(ctx, pool, perRound, *concurrency))
	}
	revokedRefreshes := srv.Calls("refresh") - steadyRefreshes

	fmt.Println("---- results ----")
	printStats("steady", steady)
	printStats("revoked", revoked)

	var shared, retries uint64
	for _, c := range pool {
		snap := c.MetricsSnapshot()
		shared += snap.Counters[storefront.MetricRefreshShared]
		retries += snap.Counters[storefront.MetricAuthRetry]
	}
	// A client refreshes at most once per revocation, and not at all in a round
	// where no worker picked it.
	ceiling := *clients * *rounds
	fmt.Printf("refresh: calls=%d ceiling=%d steady=%d shared=%d auth_retries=%d\n",
		revokedRefreshes, ceiling, steadyRefreshes, shared, retries)
	if revokedRefreshes > ceiling {
		fmt.Fprintf(os.Stderr, "refresh dedup violated: %d refresh calls for %d client revocations\n", revokedRefreshes, ceiling)
		os.Exit(1)
	}
}

func openRedis(addr string) (redis.UniversalClient, func(), error) {
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}
	if addr != "" {
		client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		fmt.Printf("using redis at %s\n", addr)
		return client, func() { _ = client.Close() }, nil
	}

	mr, err := miniredis.Run()
	if err != nil {
		return nil, nil, fmt.Errorf("start miniredis: %w", err)
	}
	client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{mr.Addr()}})
	fmt.Printf("using miniredis at %s\n", mr.Addr())
	return client, func() {
		_ = client.Close()
		mr.Close()
	}, nil
}

func signIn(ctx context.Context, baseURL string, srv *fakeapi.Server, rdb redis.UniversalClient, prefix string, n int, logger *slog.Logger) ([]*storefront.Client, error) {
	dc := srv.DecoderConfig()
	pool := make([]*storefront.Client, 0, n)
	for i := 0; i < n; i++ {
		cfg := storefront.DefaultConfig()
		cfg.API.BaseURL = baseURL
		cfg.JWT.SigningMethod = string(dc.SigningMethod)
		cfg.JWT.VerifyKey = dc.Key
		cfg.JWT.Issuer = dc.Issuer
		cfg.Session.Persistence = storefront.PersistRedis
		cfg.Session.RedisPrefix = fmt.Sprintf("%s:%d", prefix, i)
		cfg.Metrics = storefront.MetricsConfig{Enabled: true, EnableLatencyHistograms: true}

		c, err := storefront.New().WithConfig(cfg).WithRedis(rdb).WithLogger(logger).Build()
		if err != nil {
			return nil, err
		}
		if _, err := c.Login(ctx, loadEmail, loadPassword); err != nil {
			c.Close()
			return nil, err
		}
		pool = append(pool, c)
	}
	return pool, nil
}

func runPhase(ctx context.Context, pool []*storefront.Client, ops, concurrency int) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				c := pool[r.Intn(len(pool))]
				t0 := time.Now()
				_, err := c.API().GetCart(ctx)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	return phaseStats{total: time.Since(start), samples: latencies, failures: failures}
}

type phaseStats struct {
	total    time.Duration
	samples  []time.Duration
	failures int64
}

func (s phaseStats) merge(o phaseStats) phaseStats {
	return phaseStats{
		total:    s.total + o.total,
		samples:  append(s.samples, o.samples...),
		failures: s.failures + o.failures,
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
}

func printStats(name string, s phaseStats) {
	samples := append([]time.Duration(nil), s.samples...)
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	var perSec float64
	if s.total > 0 {
		perSec = float64(len(samples)) / s.total.Seconds()
	}
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		len(samples),
		s.failures,
		s.total.Round(time.Millisecond),
		perSec,
		percentile(samples, 50).Round(time.Microsecond),
		percentile(samples, 95).Round(time.Microsecond),
		percentile(samples, 99).Round(time.Microsecond),
	)
}
