package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"math"
	"math/rand"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mohammed-shakir/mgnrega-tracker/internal/core/model"
	"github.com/mohammed-shakir/mgnrega-tracker/internal/geo"
)

type Config struct {
	BaseURL         string
	FiscalYear      string
	Month           string
	Concurrency     int
	Duration        time.Duration
	ZipfS           float64
	ZipfV           float64
	Mix             string
	OutputPrefix    string
	RequestTimeout  time.Duration
	AppendTimestamp bool
}

func loadConfig() Config {
	var cfg Config
	flag.StringVar(&cfg.BaseURL, "target", "http://localhost:5000/api", "Tracker API base URL")
	flag.StringVar(&cfg.FiscalYear, "fy", "2024-25", "Financial year for performance requests")
	flag.StringVar(&cfg.Month, "month", "", "Month for performance requests (empty uses the server default)")
	flag.IntVar(&cfg.Concurrency, "concurrency", 16, "Concurrent workers")
	flag.DurationVar(&cfg.Duration, "duration", 30*time.Second, "Test duration")
	flag.Float64Var(&cfg.ZipfS, "zipf-s", 1.3, "Zipf parameter s (>1)")
	flag.Float64Var(&cfg.ZipfV, "zipf-v", 1.0, "Zipf parameter v (>=1)")
	flag.StringVar(&cfg.Mix, "mix", "performance=70,detect=20,search=10", "Request mix as kind=weight pairs")
	flag.StringVar(&cfg.OutputPrefix, "out", "results/loadgen", "Output file prefix (JSON/CSV)")
	flag.DurationVar(&cfg.RequestTimeout, "timeout", 10*time.Second, "Per-request timeout")
	flag.BoolVar(&cfg.AppendTimestamp, "append-ts", true, "Append timestamp to output prefix")
	flag.Parse()
	return cfg
}

type kind string

const (
	kindPerformance kind = "performance"
	kindHistory     kind = "history"
	kindDetect      kind = "detect"
	kindSearch      kind = "search"
)

type weighted struct {
	kind   kind
	weight int
}

// parseMix reads "performance=70,detect=20" into a cumulative weight table.
func parseMix(s string) ([]weighted, int, error) {
	var out []weighted
	total := 0
	for part := range strings.SplitSeq(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, w, ok := strings.Cut(part, "=")
		if !ok {
			return nil, 0, fmt.Errorf("mix entry %q: want kind=weight", part)
		}
		k := kind(strings.ToLower(strings.TrimSpace(name)))
		switch k {
		case kindPerformance, kindHistory, kindDetect, kindSearch:
		default:
			return nil, 0, fmt.Errorf("mix entry %q: unknown kind", part)
		}
		var n int
		if _, err := fmt.Sscanf(strings.TrimSpace(w), "%d", &n); err != nil || n < 0 {
			return nil, 0, fmt.Errorf("mix entry %q: bad weight", part)
		}
		if n == 0 {
			continue
		}
		total += n
		out = append(out, weighted{kind: k, weight: total})
	}
	if total == 0 {
		return nil, 0, fmt.Errorf("mix %q has no positive weights", s)
	}
	return out, total, nil
}

func pickKind(mix []weighted, total int, r *rand.Rand) kind {
	n := r.Intn(total)
	for _, w := range mix {
		if n < w.weight {
			return w.kind
		}
	}
	return mix[len(mix)-1].kind
}

// buildRequest maps one workload step onto a tracker endpoint.
func buildRequest(ctx context.Context, cfg Config, k kind, d model.DistrictLocation, r *rand.Rand) (*http.Request, error) {
	base := strings.TrimRight(cfg.BaseURL, "/")
	switch k {
	case kindPerformance, kindHistory:
		u, err := url.Parse(fmt.Sprintf("%s/performance/%s/%s", base, url.PathEscape(d.StateCode), url.PathEscape(d.DistrictCode)))
		if err != nil {
			return nil, fmt.Errorf("bad target: %w", err)
		}
		q := u.Query()
		if k == kindHistory {
			u.Path += "/history"
			q.Set("limit", "12")
		} else {
			q.Set("financialYear", cfg.FiscalYear)
			if cfg.Month != "" {
				q.Set("month", cfg.Month)
			}
		}
		u.RawQuery = q.Encode()
		return http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	case kindDetect:
		// jitter within ~5 km of the centroid
		body, _ := json.Marshal(map[string]float64{
			"latitude":  d.Latitude + (r.Float64()-0.5)*0.09,
			"longitude": d.Longitude + (r.Float64()-0.5)*0.09,
		})
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"/location/detect", bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("detect request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	case kindSearch:
		name := []rune(d.DistrictName)
		n := min(len(name), 2+r.Intn(4))
		u, err := url.Parse(base + "/location/search")
		if err != nil {
			return nil, fmt.Errorf("bad target: %w", err)
		}
		u.RawQuery = url.Values{"q": {string(name[:n])}}.Encode()
		return http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	}
	return nil, fmt.Errorf("unknown kind %q", k)
}

// one sample per request
type sample struct {
	Timestamp time.Time
	Latency   time.Duration
	Status    int
	ErrorMsg  string
	Kind      kind
	District  string
	Stale     bool
}

type summary struct {
	StartTime     time.Time        `json:"start"`
	EndTime       time.Time        `json:"end"`
	DurationSec   float64          `json:"duration_sec"`
	TotalRequests int64            `json:"total"`
	SuccessCount  int64            `json:"success"`
	ErrorCount    int64            `json:"errors"`
	StaleCount    int64            `json:"stale"`
	ByKind        map[kind]int64   `json:"by_kind"`
	ByStatus      map[string]int64 `json:"by_status"`
	ThroughputRPS float64          `json:"throughput_rps"`
	P50Ms         float64          `json:"p50_ms"`
	P95Ms         float64          `json:"p95_ms"`
	P99Ms         float64          `json:"p99_ms"`
	Concurrency   int              `json:"concurrency"`
	ZipfS         float64          `json:"zipf_s"`
	ZipfV         float64          `json:"zipf_v"`
	Mix           string           `json:"mix"`
	TargetURL     string           `json:"target"`
}

type aggregatedResult struct {
	total    int64
	success  int64
	errors   int64
	stale    int64
	byKind   map[kind]int64
	byStatus map[string]int64
	latMs    []float64
}

func (a *aggregatedResult) add(s sample) {
	a.total++
	a.byKind[s.Kind]++
	a.byStatus[statusLabel(s)]++
	if s.Stale {
		a.stale++
	}
	// detect answering "not found" is still a 200
	if s.ErrorMsg == "" && s.Status >= 200 && s.Status < 300 {
		a.success++
		a.latMs = append(a.latMs, float64(s.Latency.Microseconds())/1000.0)
		return
	}
	a.errors++
}

func statusLabel(s sample) string {
	if s.Status == 0 {
		return "transport_error"
	}
	return fmt.Sprintf("%d", s.Status)
}

func main() {
	cfg := loadConfig()
	mix, mixTotal, err := parseMix(cfg.Mix)
	if err != nil {
		log.Fatalf("mix: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(cfg.OutputPrefix), 0o750); err != nil {
		log.Fatalf("mkdir results: %v", err)
	}

	prefix := cfg.OutputPrefix
	if cfg.AppendTimestamp {
		prefix = fmt.Sprintf("%s_%s", prefix, time.Now().UTC().Format("20060102_150405Z"))
	}

	districts := geo.Districts()
	imax := uint64(len(districts)) - 1
	seed := time.Now().UnixNano()

	httpClient := &http.Client{
		Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			DialContext:           (&net.Dialer{Timeout: 4 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
			MaxIdleConns:          1024,
			MaxIdleConnsPerHost:   256,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   4 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		},
		Timeout: cfg.RequestTimeout,
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Duration)
	defer cancel()

	csvPath := prefix + "_samples.csv"
	jsonPath := prefix + "_summary.json"
	csvFile, err := os.Create(filepath.Clean(csvPath))
	if err != nil {
		log.Printf("open csv: %v", err)
		return
	}
	defer func() { _ = csvFile.Close() }()
	csvWriter := csv.NewWriter(csvFile)

	samplesChan := make(chan sample, 4096)
	resultsChan := make(chan aggregatedResult, 1)
	go func() {
		_ = csvWriter.Write([]string{"timestamp", "latency_ms", "status", "error", "kind", "district", "stale"})
		agg := aggregatedResult{
			byKind:   map[kind]int64{},
			byStatus: map[string]int64{},
			latMs:    make([]float64, 0, 1<<16),
		}
		for s := range samplesChan {
			agg.add(s)
			_ = csvWriter.Write([]string{
				s.Timestamp.UTC().Format(time.RFC3339Nano),
				fmt.Sprintf("%.3f", float64(s.Latency.Microseconds())/1000.0),
				fmt.Sprintf("%d", s.Status),
				s.ErrorMsg,
				string(s.Kind),
				s.District,
				fmt.Sprintf("%t", s.Stale),
			})
		}
		csvWriter.Flush()
		if err := csvWriter.Error(); err != nil {
			log.Printf("csv flush error: %v", err)
		}
		resultsChan <- agg
	}()

	startTime := time.Now()
	log.Printf("loadgen start target=%s dur=%s conc=%d zipf(s=%.2f,v=%.2f) mix=%s districts=%d",
		cfg.BaseURL, cfg.Duration, cfg.Concurrency, cfg.ZipfS, cfg.ZipfV, cfg.Mix, len(districts))

	var wg sync.WaitGroup
	wg.Add(cfg.Concurrency)

	for workerID := range cfg.Concurrency {
		go func(id int) {
			defer wg.Done()

			rWorker := rand.New(rand.NewSource(seed + int64(id) + 1))
			zipfDist := rand.NewZipf(rWorker, cfg.ZipfS, cfg.ZipfV, imax)
			for {
				select {
				case <-ctx.Done():
					return
				default:
				}

				idx := int(zipfDist.Uint64())
				if idx >= len(districts) {
					continue
				}
				d := districts[idx]
				k := pickKind(mix, mixTotal, rWorker)

				req, err := buildRequest(ctx, cfg, k, d, rWorker)
				if err != nil {
					log.Printf("build request: %v", err)
					return
				}
				req.Header.Set("Accept", "application/json")

				startReq := time.Now()
				resp, err := httpClient.Do(req)
				result := sample{
					Timestamp: startReq,
					Latency:   time.Since(startReq),
					Kind:      k,
					District:  d.DistrictCode,
				}
				if err != nil {
					if ctx.Err() != nil {
						return
					}
					result.ErrorMsg = err.Error()
				} else {
					result.Status = resp.StatusCode
					result.Stale = resp.Header.Get("X-Data-Stale") == "true"
					_, _ = io.Copy(io.Discard, resp.Body)
					_ = resp.Body.Close()
					if resp.StatusCode < 200 || resp.StatusCode >= 300 {
						result.ErrorMsg = fmt.Sprintf("status=%d", resp.StatusCode)
					}
				}

				select {
				case samplesChan <- result:
				case <-ctx.Done():
					return
				}
			}
		}(workerID)
	}

	go func() {
		<-ctx.Done()
		wg.Wait()
		close(samplesChan)
	}()

	agg := <-resultsChan
	endTime := time.Now()
	elapsed := endTime.Sub(startTime).Seconds()

	sort.Float64s(agg.latMs)
	p50 := percentile(agg.latMs, 50)
	p95 := percentile(agg.latMs, 95)
	p99 := percentile(agg.latMs, 99)

	runSummary := summary{
		StartTime:     startTime.UTC(),
		EndTime:       endTime.UTC(),
		DurationSec:   elapsed,
		TotalRequests: agg.total,
		SuccessCount:  agg.success,
		ErrorCount:    agg.errors,
		StaleCount:    agg.stale,
		ByKind:        agg.byKind,
		ByStatus:      agg.byStatus,
		ThroughputRPS: float64(agg.total) / elapsed,
		P50Ms:         p50,
		P95Ms:         p95,
		P99Ms:         p99,
		Concurrency:   cfg.Concurrency,
		ZipfS:         cfg.ZipfS,
		ZipfV:         cfg.ZipfV,
		Mix:           cfg.Mix,
		TargetURL:     cfg.BaseURL,
	}

	jsonFile, err := os.Create(filepath.Clean(jsonPath))
	if err == nil {
		enc := json.NewEncoder(jsonFile)
		enc.SetIndent("", "  ")
		_ = enc.Encode(runSummary)
		_ = jsonFile.Close()
	}

	log.Printf("done: total=%d succ=%d err=%d stale=%d thr=%.2f rps p50=%.1fms p95=%.1fms p99=%.1fms",
		agg.total, agg.success, agg.errors, agg.stale, runSummary.ThroughputRPS, p50, p95, p99)
	log.Printf("wrote %s and %s", jsonPath, csvPath)
}

func percentile(sortedValues []float64, p float64) float64 {
	if len(sortedValues) == 0 {
		return math.NaN()
	}
	if p <= 0 {
		return sortedValues[0]
	}
	if p >= 100 {
		return sortedValues[len(sortedValues)-1]
	}
	k := (p / 100.0) * float64(len(sortedValues)-1)
	f := math.Floor(k)
	i := int(f)
	if i >= len(sortedValues)-1 {
		return sortedValues[len(sortedValues)-1]
	}
	d := k - f
	return sortedValues[i]*(1-d) + sortedValues[i+1]*d
}
