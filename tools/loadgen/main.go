// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Command loadgen is a tiny, dependency-free HTTP load generator for the
// demo server's /tenants/{id}/generate endpoint. It reuses HTTP
// connections (keep-alive) and supports concurrency so demo scripts run
// fast without relying on external tools.
//
// Modes:
//   - single: send N requests against a single tenant
//   - zipf:   approximate 80/20 skew (hot/cold) without PRNG: send the hot
//     tenant all but one of every hot_every requests (4/5 at the default 5)
//
// Usage examples:
//
//	loadgen -base=http://127.0.0.1:8080 -mode=single -tenant=guild-1 -n=5000 -c=16
//	loadgen -base=http://127.0.0.1:8080 -mode=zipf -hot_tenant=guild-1 -cold_tenants=50 -n=8000 -c=16
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

type modeType string

const (
	modeSingle modeType = "single"
	modeZipf   modeType = "zipf"
)

func main() {
	var (
		base        = flag.String("base", "http://127.0.0.1:8080", "Base URL including scheme and host")
		modeS       = flag.String("mode", string(modeSingle), "Mode: single|zipf")
		tenant      = flag.String("tenant", "guild-1", "Tenant id for single mode")
		hotTenant   = flag.String("hot_tenant", "guild-1", "Hot tenant id for zipf mode")
		coldN       = flag.Int("cold_tenants", 50, "Number of cold tenants to round-robin in zipf mode")
		seed        = flag.String("seed", "", "Seed tokens, space-separated")
		maxLen      = flag.Int("max_len", 20, "max_len query parameter")
		N           = flag.Int("n", 5000, "Total requests to send")
		conc        = flag.Int("c", 8, "Number of concurrent workers")
		hotEvery    = flag.Int("hot_every", 5, "Zipf-like skew period (all but 1 of this period go to the hot tenant; minimum 2)")
		timeout     = flag.Duration("timeout", 20*time.Second, "Overall timeout for the loadgen run")
		connIdle    = flag.Duration("idle_timeout", 30*time.Second, "HTTP idle connection timeout")
		maxIdle     = flag.Int("max_idle", 256, "Max idle connections total")
		maxIdlePer  = flag.Int("max_idle_per_host", 256, "Max idle connections per host")
	)
	flag.Parse()

	m := modeType(strings.ToLower(*modeS))
	if m != modeSingle && m != modeZipf {
		fmt.Fprintf(os.Stderr, "unknown -mode=%s (want single|zipf)\n", *modeS)
		os.Exit(2)
	}
	if *N <= 0 || *conc <= 0 {
		fmt.Fprintln(os.Stderr, "-n and -c must be > 0")
		os.Exit(2)
	}
	if m == modeZipf {
		if *coldN <= 0 {
			fmt.Fprintln(os.Stderr, "-cold_tenants must be > 0 in zipf mode")
			os.Exit(2)
		}
		if *hotEvery < 2 {
			*hotEvery = 2
		}
	}

	baseURL := strings.TrimRight(*base, "/")

	tr := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        *maxIdle,
		MaxIdleConnsPerHost: *maxIdlePer,
		IdleConnTimeout:     *connIdle,
	}
	client := &http.Client{Transport: tr, Timeout: 5 * time.Second}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	start := time.Now()
	var done int64

	worker := func(id, count int) {
		defer atomic.AddInt64(&done, int64(count))
		for i := 0; i < count; i++ {
			select {
			case <-ctx.Done():
				return
			default:
			}
			var t string
			if m == modeSingle {
				t = *tenant
			} else if ((i + id) % *hotEvery) != 0 {
				t = *hotTenant
			} else {
				idx := ((i + id) % *coldN) + 1
				t = fmt.Sprintf("cold-tenant-%d", idx)
			}

			q := url.Values{"max_len": {fmt.Sprintf("%d", *maxLen)}}
			if *seed != "" {
				q.Set("seed", *seed)
			}
			u := fmt.Sprintf("%s/tenants/%s/generate?%s", baseURL, url.PathEscape(t), q.Encode())

			req, _ := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
			resp, err := client.Do(req)
			if err == nil {
				_, _ = io.Copy(io.Discard, resp.Body)
				_ = resp.Body.Close()
			} else {
				time.Sleep(200 * time.Microsecond)
			}
		}
	}

	per := *N / *conc
	rem := *N - per**conc
	var wg sync.WaitGroup
	wg.Add(*conc)
	for w := 0; w < *conc; w++ {
		count := per
		if w == *conc-1 {
			count += rem
		}
		go func(id, n int) {
			defer wg.Done()
			worker(id, n)
		}(w, count)
	}
	wg.Wait()
	elapsed := time.Since(start)
	if elapsed <= 0 {
		elapsed = time.Millisecond
	}
	ops := float64(*N) / elapsed.Seconds()
	fmt.Printf("LoadGen: mode=%s N=%d c=%d go=%d Duration=%s Throughput=%.0f req/s\n", m, *N, *conc, runtime.GOMAXPROCS(0), elapsed.Truncate(time.Millisecond), ops)
}
