package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	goAuthClient "github.com/MrEthical07/goAuthClient"
	"github.com/MrEthical07/goAuthClient/authtest"
	"github.com/MrEthical07/goAuthClient/session"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

func main() {
	var (
		sessions    = flag.Int("sessions", 50, "number of signed-in clients")
		concurrency = flag.Int("concurrency", 64, "number of concurrent workers")
		ops         = flag.Int("ops", 20000, "operations per phase (request + guard)")
		expireEvery = flag.Int("expire-every", 2000, "expire every access token after this many requests")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		prefix      = flag.String("prefix", "loadtest:auth", "token store key prefix")
	)
	flag.Parse()

	if *sessions <= 0 || *concurrency <= 0 || *ops <= 0 || *expireEvery <= 0 {
		fmt.Fprintln(os.Stderr, "sessions, concurrency, ops and expire-every must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var (
		cleanup func()
		rdb     redis.UniversalClient
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		addr = mr.Addr()
		rdb = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() {
			_ = rdb.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		rdb = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() { _ = rdb.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	srv := authtest.NewServer(authtest.Options{})
	defer srv.Close()

	fmt.Printf("signing in %d clients...\n", *sessions)
	startSeed := time.Now()
	clients, err := signIn(ctx, srv, rdb, *prefix, *sessions)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sign in failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		for _, c := range clients {
			_ = c.Close()
		}
	}()
	fmt.Printf("signed in in %s\n", time.Since(startSeed).Round(time.Millisecond))

	requestStats, expirations := runRequestPhase(ctx, srv, clients, *ops, *concurrency, *expireEvery)
	guardStats := runGuardPhase(ctx, clients, *ops, *concurrency)

	fmt.Println("---- results ----")
	printStats("request", requestStats)
	printStats("guard", guardStats)

	refreshes := srv.RefreshCalls()
	bound := int64(expirations) * int64(len(clients))
	fmt.Printf("refresh: calls=%d expirations=%d bound=%d replayed=%d\n", refreshes, expirations, bound, sumMetric(clients, goAuthClient.MetricRequestReplayed))
	if refreshes > bound {
		fmt.Fprintln(os.Stderr, "more refresh calls than expirations allow: refresh cycles are not shared")
		os.Exit(1)
	}
}

func signIn(ctx context.Context, srv *authtest.Server, rdb redis.UniversalClient, prefix string, n int) ([]*goAuthClient.Client, error) {
	clients := make([]*goAuthClient.Client, n)
	for i := 0; i < n; i++ {
		email := fmt.Sprintf("user-%d@loadtest.local", i)
		srv.AddAccount(authtest.Account{
			Password: "loadtest",
			User: session.User{
				ID:       fmt.Sprintf("u-%d", i),
				Email:    email,
				TenantID: fmt.Sprintf("t-%d", i%8),
				Roles:    session.RoleList{"Sales"},
			},
		})

		cfg := goAuthClient.DefaultConfig()
		cfg.API.BaseURL = srv.URL
		cfg.Store.Kind = goAuthClient.StoreRedis
		cfg.Store.Redis.Prefix = prefix
		cfg.Store.Redis.Namespace = fmt.Sprintf("session-%d", i)
		cfg.Metrics.Enabled = true

		c, err := goAuthClient.New().WithConfig(cfg).WithRedis(rdb).Build()
		if err != nil {
			return nil, err
		}
		c.Initialize(ctx)
		if _, err := c.Login(ctx, goAuthClient.Credentials{Email: email, Password: "loadtest"}); err != nil {
			_ = c.Close()
			return nil, fmt.Errorf("login %s: %w", email, err)
		}
		clients[i] = c
	}
	return clients, nil
}

func runRequestPhase(ctx context.Context, srv *authtest.Server, clients []*goAuthClient.Client, ops, concurrency, expireEvery int) (phaseStats, int) {
	var (
		cursor      int64
		failures    int64
		expirations int64
		latencies   = make([]time.Duration, 0, ops)
		mu          sync.Mutex
	)

	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < concurrency; w++ {
		worker := w
		g.Go(func() error {
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return nil
				}
				if i > 0 && i%expireEvery == 0 {
					srv.ExpireAccessTokens()
					atomic.AddInt64(&expirations, 1)
				}
				c := clients[r.Intn(len(clients))]
				t0 := time.Now()
				err := c.API().DoJSON(gctx, http.MethodGet, "/api/orders", nil, nil)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		})
	}
	_ = g.Wait()
	total := time.Since(start)
	return computeStats(total, latencies, failures), int(expirations)
}

func runGuardPhase(ctx context.Context, clients []*goAuthClient.Client, ops, concurrency int) phaseStats {
	targets := []string{"/orders", "/customers", "/reports", "/settings"}
	required := [][]string{nil, {"Sales"}, {"Admin"}, {"Manager", "Sales"}}

	var (
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < concurrency; w++ {
		worker := w
		g.Go(func() error {
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*6151))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return nil
				}
				c := clients[r.Intn(len(clients))]
				k := r.Intn(len(targets))
				t0 := time.Now()
				_, err := c.Decider().Check(gctx, targets[k], required[k]...)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		})
	}
	_ = g.Wait()
	total := time.Since(start)
	return computeStats(total, latencies, failures)
}

func sumMetric(clients []*goAuthClient.Client, id goAuthClient.MetricID) uint64 {
	var total uint64
	for _, c := range clients {
		total += c.MetricsSnapshot().Counters[id]
	}
	return total
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
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
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
