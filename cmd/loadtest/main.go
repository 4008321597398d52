// Command loadtest posts synthetic events against a running event gateway.
// A throwaway traffic generator; no new dependency is justified for it, so
// it stays on net/http, flag, and the uuid package already used elsewhere
// in the module.
package main

import (
	"bytes"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

func buildEvent(eventType string) []byte {
	now := time.Now().UTC().Format(time.RFC3339)
	return []byte(fmt.Sprintf(`{
		"id": "%s",
		"eventType": %q,
		"eventVersion": "1.0",
		"metadata": {"source": "loadtest"},
		"dataType": "string",
		"data": {"type": "string", "content": "synthetic payload %d"},
		"timestamp": %q,
		"origin": "loadtest"
	}`, uuid.New().String(), eventType, rand.Intn(1_000_000), now))
}

func main() {
	target := flag.String("target", "http://localhost:8080/event", "event gateway URL to post to")
	eventType := flag.String("event-type", "loadtest.ping", "eventType field to send")
	concurrency := flag.Int("concurrency", 10, "number of concurrent workers")
	total := flag.Int("requests", 1000, "total number of requests to send")
	flag.Parse()

	client := &http.Client{Timeout: 10 * time.Second}

	var sent, failed int64
	var wg sync.WaitGroup
	work := make(chan struct{}, *total)
	for i := 0; i < *total; i++ {
		work <- struct{}{}
	}
	close(work)

	start := time.Now()
	for w := 0; w < *concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range work {
				body := buildEvent(*eventType)
				resp, err := client.Post(*target, "application/json", bytes.NewReader(body))
				if err != nil {
					atomic.AddInt64(&failed, 1)
					continue
				}
				resp.Body.Close()
				if resp.StatusCode >= 300 {
					atomic.AddInt64(&failed, 1)
				} else {
					atomic.AddInt64(&sent, 1)
				}
			}
		}()
	}
	wg.Wait()

	elapsed := time.Since(start)
	fmt.Printf("sent=%d failed=%d elapsed=%s rps=%.1f\n", sent, failed, elapsed, float64(sent)/elapsed.Seconds())
}
