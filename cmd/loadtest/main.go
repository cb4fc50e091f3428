package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"slices"
	"sync"
	"time"

	"github.com/awmpietro/scenario-simulator/internal/transport/simdto"
)

const planDOT = `digraph Migration {
	backup    [cost=2000, duration="4h", probability=0.98]
	provision [cost=25000, duration="2d", probability=0.9, effects="budget_pressure"]
	migrate   [cost=8000, duration=24, probability=0.85]
	verify    [cost=1000, duration="8h", probability=0.95]
	backup -> migrate
	provision -> migrate
	migrate -> verify
}`

type sample struct {
	latency time.Duration
	status  int
	partial bool
	err     error
}

func main() {
	url := flag.String("url", "http://localhost:8080/simulate", "simulate endpoint URL")
	rps := flag.Int("rps", 20, "target requests per second")
	duration := flag.Duration("duration", 30*time.Second, "test duration")
	workers := flag.Int("workers", 20, "number of concurrent workers")
	trials := flag.Int("trials", 1000, "trials per posture in each request")
	maxP90 := flag.Duration("max-p90", 250*time.Millisecond, "P90 latency budget for PASS")
	timeout := flag.Duration("timeout", 10*time.Second, "HTTP client timeout")
	flag.Parse()

	if *rps <= 0 || *duration <= 0 || *workers <= 0 || *trials <= 0 {
		fmt.Fprintln(os.Stderr, "rps, duration, workers and trials must be > 0")
		os.Exit(2)
	}

	body, err := json.Marshal(simdto.SimulateRequest{
		PlanDOT:  planDOT,
		Trials:   *trials,
		Postures: []string{"optimistic", "realistic", "pessimistic"},
		Benefit:  60_000,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "marshal payload: %v\n", err)
		os.Exit(1)
	}

	client := &http.Client{Timeout: *timeout}
	jobs := make(chan int, *workers)
	samples := make([]sample, *rps*int(duration.Seconds())+1)

	var wg sync.WaitGroup
	for i := 0; i < *workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				samples[idx] = post(client, *url, body)
			}
		}()
	}

	ticker := time.NewTicker(time.Second / time.Duration(*rps))
	defer ticker.Stop()
	deadline := time.Now().Add(*duration)
	launched := 0

	for now := range ticker.C {
		if now.After(deadline) || launched == len(samples) {
			break
		}
		jobs <- launched
		launched++
	}
	close(jobs)
	wg.Wait()
	samples = samples[:launched]

	if len(samples) == 0 {
		fmt.Fprintln(os.Stderr, "no requests executed")
		os.Exit(1)
	}

	latencies := make([]time.Duration, 0, len(samples))
	var ok2xx, non2xx, errs, partial int
	for _, s := range samples {
		latencies = append(latencies, s.latency)
		switch {
		case s.err != nil:
			errs++
		case s.status >= 200 && s.status < 300:
			ok2xx++
			if s.partial {
				partial++
			}
		default:
			non2xx++
		}
	}

	slices.Sort(latencies)
	p50 := percentile(latencies, 50)
	p90 := percentile(latencies, 90)
	p99 := percentile(latencies, 99)
	achievedRPS := float64(len(latencies)) / duration.Seconds()

	fmt.Printf("Load test finished\n")
	fmt.Printf("- target_rps: %d\n", *rps)
	fmt.Printf("- achieved_rps: %.2f\n", achievedRPS)
	fmt.Printf("- trials_per_posture: %d\n", *trials)
	fmt.Printf("- requests: %d\n", len(latencies))
	fmt.Printf("- 2xx: %d (partial: %d)\n", ok2xx, partial)
	fmt.Printf("- non_2xx: %d\n", non2xx)
	fmt.Printf("- errors: %d\n", errs)
	fmt.Printf("- avg_ms: %.3f\n", ms(average(latencies)))
	fmt.Printf("- p50_ms: %.3f\n", ms(p50))
	fmt.Printf("- p90_ms: %.3f\n", ms(p90))
	fmt.Printf("- p99_ms: %.3f\n", ms(p99))

	if achievedRPS >= float64(*rps)*0.98 && p90 < *maxP90 && errs == 0 && non2xx == 0 && partial == 0 {
		fmt.Printf("PASS: meets %d RPS and P90 < %s\n", *rps, maxP90.String())
		return
	}

	fmt.Println("FAIL: does not meet target (or has request errors or partial runs)")
	os.Exit(1)
}

func post(client *http.Client, url string, body []byte) sample {
	start := time.Now()
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return sample{latency: time.Since(start), err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return sample{latency: time.Since(start), err: err}
	}
	defer resp.Body.Close()

	s := sample{status: resp.StatusCode}
	var out simdto.SimulateResponse
	if resp.StatusCode == http.StatusOK && json.NewDecoder(resp.Body).Decode(&out) == nil && out.Result != nil {
		s.partial = out.Result.Partial
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	s.latency = time.Since(start)
	return s
}

func percentile(items []time.Duration, p int) time.Duration {
	if len(items) == 0 {
		return 0
	}
	return items[(len(items)-1)*p/100]
}

func average(items []time.Duration) time.Duration {
	if len(items) == 0 {
		return 0
	}
	var total time.Duration
	for _, d := range items {
		total += d
	}
	return total / time.Duration(len(items))
}

func ms(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000.0
}
