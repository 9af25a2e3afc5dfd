package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// Replays a dedicated-server log file against the ingest endpoint the way
// the shipper would: batched JSON arrays of {"log","log_id"} objects, in
// file order, rate limited.
func main() {
	targetURL := flag.String("url", "http://localhost:8080/ingest", "Target URL for ingestion")
	apiKey := flag.String("api-key", "supersecretkey", "API Key for authentication")
	logFile := flag.String("file", "", "Server log file to replay (required)")
	batchSize := flag.Int("batch", 50, "Lines per request")
	lps := flag.Int("lps", 500, "Lines per second limit")
	flag.Parse()

	if *logFile == "" {
		log.Fatal("missing -file")
	}

	f, err := os.Open(*logFile)
	if err != nil {
		log.Fatalf("open log file: %v", err)
	}
	defer f.Close()

	log.Printf("Replaying %s to %s (batch=%d, lps=%d)", *logFile, *targetURL, *batchSize, *lps)

	ctx := context.Background()
	limiter := rate.NewLimiter(rate.Limit(*lps), *batchSize)
	client := &http.Client{Timeout: 10 * time.Second}

	type shippedLine struct {
		Log   string `json:"log"`
		LogID string `json:"log_id"`
	}

	var (
		batch     []shippedLine
		sent      int
		failed    int
		startedAt = time.Now()
	)

	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := limiter.WaitN(ctx, len(batch)); err != nil {
			log.Fatalf("rate limiter: %v", err)
		}

		body, err := json.Marshal(batch)
		if err != nil {
			log.Fatalf("marshal batch: %v", err)
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, *targetURL, bytes.NewReader(body))
		if err != nil {
			log.Fatalf("build request: %v", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-API-Key", *apiKey)

		resp, err := client.Do(req)
		if err != nil {
			failed += len(batch)
			log.Printf("batch failed: %v", err)
		} else {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				sent += len(batch)
			} else {
				failed += len(batch)
				log.Printf("batch rejected: status %d", resp.StatusCode)
			}
		}
		batch = batch[:0]
	}

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		batch = append(batch, shippedLine{Log: line, LogID: uuid.NewString()})
		if len(batch) >= *batchSize {
			flush()
		}
	}
	if err := scanner.Err(); err != nil {
		log.Fatalf("read log file: %v", err)
	}
	flush()

	elapsed := time.Since(startedAt)
	log.Println("Replay finished.")
	log.Printf("Lines sent: %d", sent)
	log.Printf("Lines failed: %d", failed)
	fmt.Printf("Effective rate: %.1f lines/s\n", float64(sent)/elapsed.Seconds())
}
