package loadgen

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Config drives one traffic generation run against a live passport
// instance.
type Config struct {
	BaseURL     string
	Profile     string
	Duration    time.Duration
	RPS         int
	Concurrency int
	Seed        int64
}

type Result struct {
	TotalRequests int
	Failures      int
	StatusClasses map[string]int
}

var sampleLogins = []string{"alice", "bob", "carol", "mallory", "trent"}

// Run fires read-only traffic at the auth and login-check endpoints. It
// never mutates accounts, so it is safe against any environment.
func Run(ctx context.Context, cfg Config) (Result, error) {
	if cfg.BaseURL == "" {
		return Result{}, fmt.Errorf("base url is required")
	}
	if cfg.RPS <= 0 || cfg.Concurrency <= 0 || cfg.Duration <= 0 {
		return Result{}, fmt.Errorf("rps, concurrency and duration must be positive")
	}
	profile := normalizeProfile(cfg.Profile)

	runCtx, cancel := context.WithTimeout(ctx, cfg.Duration)
	defer cancel()

	var mu sync.Mutex
	res := Result{StatusClasses: make(map[string]int)}
	record := func(status int, failed bool) {
		mu.Lock()
		res.TotalRequests++
		res.StatusClasses[classifyStatusClass(status)]++
		if failed {
			res.Failures++
		}
		mu.Unlock()
	}

	client := &http.Client{Timeout: 10 * time.Second}
	interval := time.Second / time.Duration(cfg.RPS)
	g, gctx := errgroup.WithContext(runCtx)

	for i := 0; i < cfg.Concurrency; i++ {
		worker := i
		g.Go(func() error {
			rng := rand.New(rand.NewSource(cfg.Seed + int64(worker)))
			ticker := time.NewTicker(interval * time.Duration(cfg.Concurrency))
			defer ticker.Stop()
			for {
				select {
				case <-gctx.Done():
					return nil
				case <-ticker.C:
					url := pickTarget(cfg.BaseURL, profile, rng)
					req, err := http.NewRequestWithContext(gctx, http.MethodGet, url, nil)
					if err != nil {
						record(0, true)
						continue
					}
					resp, err := client.Do(req)
					if err != nil {
						record(0, true)
						continue
					}
					_ = resp.Body.Close()
					record(resp.StatusCode, resp.StatusCode >= 500)
				}
			}
		})
	}

	if err := g.Wait(); err != nil && err != context.DeadlineExceeded {
		return res, err
	}
	return res, nil
}

func pickTarget(baseURL, profile string, rng *rand.Rand) string {
	base := strings.TrimRight(baseURL, "/")
	login := sampleLogins[rng.Intn(len(sampleLogins))]
	switch profile {
	case "auth":
		return base + "/passport/auth"
	case "check":
		return base + "/passport/login/check/" + login
	default:
		if rng.Intn(2) == 0 {
			return base + "/passport/auth"
		}
		return base + "/passport/login/check/" + login
	}
}

func classifyStatusClass(status int) string {
	switch {
	case status >= 200 && status < 300:
		return "2xx"
	case status >= 300 && status < 400:
		return "3xx"
	case status >= 400 && status < 500:
		return "4xx"
	case status >= 500 && status < 600:
		return "5xx"
	default:
		return "other"
	}
}

func normalizeProfile(profile string) string {
	v := strings.TrimSpace(strings.ToLower(profile))
	if v == "" {
		return "mixed"
	}
	return v
}
