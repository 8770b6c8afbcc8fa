// Loadtest is a concurrent HTTP load testing tool that fires synthetic
// transaction requests at a fallback engine's /transactions endpoint and
// reports throughput, latency percentiles, and approval/processor
// distribution.
//
// Usage:
//
//	go run ./cmd/loadtest -url http://localhost:8080/transactions -concurrency 20 -requests 2000
//	go run ./cmd/loadtest -url http://localhost:8080/transactions -csv results.csv -out summary.json
package main

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

type txnResult struct {
	Status          string   `json:"status"`
	ProcessorUsed   string   `json:"processor_used"`
	DeclineType     string   `json:"decline_type"`
	ProcessorsTried []string `json:"processors_tried"`
}

func main() {
	var (
		url         = flag.String("url", "http://localhost:8080/transactions", "Target URL")
		concurrency = flag.Int("concurrency", 10, "Number of concurrent workers")
		requests    = flag.Int("requests", 100, "Total number of requests to send")
		timeoutSec  = flag.Int("timeout", 10, "Per-request timeout in seconds")
	)

	outJSON := flag.String("out", "", "Write JSON summary to this file (optional)")
	outCSV := flag.String("csv", "", "Write per-request CSV to this file (optional)")
	verbose := flag.Bool("v", false, "Verbose per-request logging to stdout")
	flag.Parse()

	client := &http.Client{Timeout: time.Duration(*timeoutSec) * time.Second}

	jobs := make(chan int)
	var wg sync.WaitGroup

	var total int32
	var approved int32
	var declined int32
	var failure int32

	processorCounts := make(map[string]int32)
	var procMu sync.Mutex

	var allLatencies []time.Duration
	var latMu sync.Mutex

	statusCodes := make(map[int]int32)
	var statusMu sync.Mutex

	var csvFile *os.File
	var csvWriter *csv.Writer
	var csvMu sync.Mutex
	if *outCSV != "" {
		f, err := os.Create(*outCSV)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to create csv file: %v\n", err)
			os.Exit(1)
		}
		csvFile = f
		csvWriter = csv.NewWriter(f)
		csvWriter.Write([]string{"idx", "timestamp", "status", "processor_used", "decline_type", "processors_tried", "http_status", "duration_ms"})
	}

	rng := rand.New(rand.NewSource(1))
	testStart := time.Now()

	for i := 0; i < *concurrency; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for idx := range jobs {
				atomic.AddInt32(&total, 1)
				start := time.Now()

				body, _ := json.Marshal(map[string]interface{}{
					"transaction_id": fmt.Sprintf("loadtest-%d-%d", workerID, idx),
					"amount":         fmt.Sprintf("%.2f", 1+rng.Float64()*999),
					"currency":       "USD",
					"merchant_id":    "loadtest-merchant",
					"card_last_four": fmt.Sprintf("%04d", rng.Intn(10000)),
				})

				req, err := http.NewRequest("POST", *url, bytes.NewReader(body))
				if err != nil {
					atomic.AddInt32(&failure, 1)
					continue
				}
				req.Header.Set("Content-Type", "application/json")

				resp, err := client.Do(req)
				dur := time.Since(start)

				latMu.Lock()
				allLatencies = append(allLatencies, dur)
				latMu.Unlock()

				if err != nil {
					atomic.AddInt32(&failure, 1)
					if *verbose {
						fmt.Printf("[%d] idx=%d error=%v\n", workerID, idx, err)
					}
					continue
				}

				statusMu.Lock()
				statusCodes[resp.StatusCode]++
				statusMu.Unlock()

				var result txnResult
				decoded := json.NewDecoder(resp.Body).Decode(&result) == nil
				io.Copy(io.Discard, resp.Body)
				resp.Body.Close()

				if resp.StatusCode != 200 || !decoded {
					atomic.AddInt32(&failure, 1)
					continue
				}

				switch result.Status {
				case "approved":
					atomic.AddInt32(&approved, 1)
				case "declined":
					atomic.AddInt32(&declined, 1)
				}

				if result.ProcessorUsed != "" {
					procMu.Lock()
					processorCounts[result.ProcessorUsed]++
					procMu.Unlock()
				}

				if csvWriter != nil {
					csvMu.Lock()
					csvWriter.Write([]string{
						fmt.Sprintf("%d", idx),
						time.Now().Format(time.RFC3339Nano),
						result.Status,
						result.ProcessorUsed,
						result.DeclineType,
						strings.Join(result.ProcessorsTried, "|"),
						fmt.Sprintf("%d", resp.StatusCode),
						fmt.Sprintf("%.3f", float64(dur.Microseconds())/1000.0),
					})
					csvMu.Unlock()
				}

				if *verbose {
					fmt.Printf("[%d] idx=%d status=%s processor=%s dur=%v\n", workerID, idx, result.Status, result.ProcessorUsed, dur)
				}
			}
		}(i)
	}

	go func() {
		for i := 0; i < *requests; i++ {
			jobs <- i
		}
		close(jobs)
	}()

	wg.Wait()
	totalDuration := time.Since(testStart)

	if csvWriter != nil {
		csvWriter.Flush()
		csvFile.Close()
	}

	throughput := float64(total) / totalDuration.Seconds()

	fmt.Println("--- Load Test Summary ---")
	fmt.Printf("Target: %s\n", *url)
	fmt.Printf("Requests: %d  Concurrency: %d\n", *requests, *concurrency)
	fmt.Printf("Total sent: %d  Approved: %d  Declined: %d  Failure: %d\n", total, approved, declined, failure)
	fmt.Printf("Duration: %v  Throughput: %.2f req/s\n", totalDuration, throughput)

	fmt.Println("\nProcessor distribution:")
	procMu.Lock()
	var procKeys []string
	for k := range processorCounts {
		procKeys = append(procKeys, k)
	}
	sort.Strings(procKeys)
	for _, k := range procKeys {
		fmt.Printf("  %s -> %d\n", k, processorCounts[k])
	}
	procMu.Unlock()

	if len(allLatencies) > 0 {
		tmp := make([]time.Duration, len(allLatencies))
		copy(tmp, allLatencies)
		sort.Slice(tmp, func(i, j int) bool { return tmp[i] < tmp[j] })
		pick := func(p float64) time.Duration { return tmp[int(float64(len(tmp)-1)*p)] }
		fmt.Println("\nLatencies:")
		fmt.Printf("  samples=%d min=%v p50=%v p90=%v p95=%v p99=%v max=%v\n",
			len(tmp), tmp[0], pick(0.50), pick(0.90), pick(0.95), pick(0.99), tmp[len(tmp)-1])
	}

	if *outJSON != "" {
		report := map[string]interface{}{
			"target":         *url,
			"requests":       *requests,
			"concurrency":    *concurrency,
			"total_sent":     total,
			"approved":       approved,
			"declined":       declined,
			"failure":        failure,
			"duration_ms":    totalDuration.Milliseconds(),
			"throughput_rps": throughput,
			"processors":     processorCounts,
			"status_codes":   statusCodes,
		}
		f, err := os.Create(*outJSON)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to create json file: %v\n", err)
			os.Exit(1)
		}
		enc := json.NewEncoder(f)
		enc.SetIndent("", "  ")
		enc.Encode(report)
		f.Close()
		fmt.Printf("\nWrote JSON summary to %s\n", *outJSON)
	}

	if failure > 0 {
		os.Exit(2)
	}
}
