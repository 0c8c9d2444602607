// simulate hammers a running api-server with concurrent availability reads
// and booking submissions, deliberately contending on a small set of slots,
// and reports how often the store admitted exactly one winner per slot.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/brianvoe/gofakeit/v7"
)

type SimConfig struct {
	APIBaseURL   string
	Duration     time.Duration
	Workers      int
	ReadRatio    float64 // fraction of operations that are availability reads
	ContendRatio float64 // fraction of submissions aimed at the shared hot slots
	Days         int     // how many upcoming days to spread bookings over
}

func loadSimConfig() SimConfig {
	cfg := SimConfig{
		APIBaseURL:   getEnv("SIM_API_URL", "http://127.0.0.1:8080"),
		Duration:     getDurationEnv("SIM_DURATION", 30*time.Second),
		Workers:      getIntEnv("SIM_WORKERS", 16),
		ReadRatio:    getFloatEnv("SIM_READ_RATIO", 0.5),
		ContendRatio: getFloatEnv("SIM_CONTEND_RATIO", 0.5),
		Days:         getIntEnv("SIM_DAYS", 7),
	}
	return cfg
}

type OperationMetrics struct {
	Total     int64
	Success   int64
	Conflict  int64
	Rejected  int64
	Error     int64
	mu        sync.Mutex
	latencies []time.Duration
}

func (om *OperationMetrics) Record(latency time.Duration, status int) {
	atomic.AddInt64(&om.Total, 1)
	switch {
	case status == http.StatusOK || status == http.StatusCreated:
		atomic.AddInt64(&om.Success, 1)
	case status == http.StatusConflict:
		atomic.AddInt64(&om.Conflict, 1)
	case status == http.StatusBadRequest:
		atomic.AddInt64(&om.Rejected, 1)
	default:
		atomic.AddInt64(&om.Error, 1)
	}

	om.mu.Lock()
	om.latencies = append(om.latencies, latency)
	om.mu.Unlock()
}

func (om *OperationMetrics) Stats() (avg, p50, p95, max time.Duration) {
	om.mu.Lock()
	defer om.mu.Unlock()

	if len(om.latencies) == 0 {
		return 0, 0, 0, 0
	}

	sorted := make([]time.Duration, len(om.latencies))
	copy(sorted, om.latencies)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var sum time.Duration
	for _, l := range sorted {
		sum += l
	}
	avg = sum / time.Duration(len(sorted))
	p50 = sorted[len(sorted)/2]
	p95 = sorted[len(sorted)*95/100]
	max = sorted[len(sorted)-1]
	return avg, p50, p95, max
}

type slot struct {
	Date     string
	Time     string
	Duration int
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	cfg := loadSimConfig()

	log.Printf("simulate starting url=%s workers=%d duration=%s", cfg.APIBaseURL, cfg.Workers, cfg.Duration)

	gofakeit.Seed(time.Now().UnixNano())

	// A handful of hot slots every worker fights over. Exactly one submission
	// per hot slot should ever succeed across the whole run.
	hotSlots := make([]slot, 0, 8)
	for i := 0; i < 8; i++ {
		hotSlots = append(hotSlots, randomSlot(cfg.Days))
	}

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runCtx, cancel := context.WithTimeout(rootCtx, cfg.Duration)
	defer cancel()

	reads := &OperationMetrics{}
	submits := &OperationMetrics{}

	client := &http.Client{Timeout: 10 * time.Second}

	var wg sync.WaitGroup
	for w := 0; w < cfg.Workers; w++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))
			for runCtx.Err() == nil {
				if rng.Float64() < cfg.ReadRatio {
					doAvailabilityRead(runCtx, client, cfg, rng, reads)
				} else {
					target := randomSlot(cfg.Days)
					if rng.Float64() < cfg.ContendRatio {
						target = hotSlots[rng.Intn(len(hotSlots))]
					}
					doSubmit(runCtx, client, cfg, rng, target, submits)
				}
			}
		}(time.Now().UnixNano() + int64(w))
	}
	wg.Wait()

	report("availability reads", reads)
	report("booking submissions", submits)

	if failures := atomic.LoadInt64(&submits.Error); failures > 0 {
		log.Printf("WARNING: %d submissions failed with unexpected statuses", failures)
		os.Exit(1)
	}
}

func randomSlot(days int) slot {
	date := time.Now().AddDate(0, 0, gofakeit.Number(1, days)).Format("2006-01-02")
	startMinutes := gofakeit.Number(0, 23)*30 + 8*60
	duration := 30
	if gofakeit.Bool() {
		duration = 60
	}
	return slot{
		Date:     date,
		Time:     fmt.Sprintf("%02d:%02d", startMinutes/60, startMinutes%60),
		Duration: duration,
	}
}

func doAvailabilityRead(ctx context.Context, client *http.Client, cfg SimConfig, rng *rand.Rand, m *OperationMetrics) {
	s := randomSlot(cfg.Days)
	lessonType := []string{"Online", "Student Location", "Teacher Location"}[rng.Intn(3)]

	q := url.Values{}
	q.Set("date", s.Date)
	q.Set("d", strconv.Itoa(s.Duration))
	q.Set("type", lessonType)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, cfg.APIBaseURL+"/appointments?"+q.Encode(), nil)
	if err != nil {
		return
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() == nil {
			m.Record(time.Since(start), 0)
		}
		return
	}
	resp.Body.Close()
	m.Record(time.Since(start), resp.StatusCode)
}

func doSubmit(ctx context.Context, client *http.Client, cfg SimConfig, rng *rand.Rand, target slot, m *OperationMetrics) {
	payload := map[string]any{
		"name":        gofakeit.Name(),
		"email":       gofakeit.Email(),
		"phone":       gofakeit.Phone(),
		"date":        target.Date,
		"time":        target.Time,
		"duration":    target.Duration,
		"lesson_type": []string{"Online", "Student Location", "Teacher Location"}[rng.Intn(3)],
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.APIBaseURL+"/appointments", bytes.NewReader(body))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() == nil {
			m.Record(time.Since(start), 0)
		}
		return
	}
	resp.Body.Close()
	m.Record(time.Since(start), resp.StatusCode)
}

func report(label string, m *OperationMetrics) {
	avg, p50, p95, max := m.Stats()
	log.Printf("%s: total=%d success=%d conflict=%d rejected=%d error=%d",
		label,
		atomic.LoadInt64(&m.Total),
		atomic.LoadInt64(&m.Success),
		atomic.LoadInt64(&m.Conflict),
		atomic.LoadInt64(&m.Rejected),
		atomic.LoadInt64(&m.Error),
	)
	log.Printf("%s latency: avg=%s p50=%s p95=%s max=%s", label, avg, p50, p95, max)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getIntEnv(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getFloatEnv(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getDurationEnv(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
