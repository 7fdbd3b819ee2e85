// message-seeder generates signed synthetic webhook traffic against a running
// hooksink instance. Useful for demos and for exercising the pagination and
// stats endpoints with realistic data.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"

	"github.com/hooksink/hooksink/internal/signature"
)

var (
	targetURL  = flag.String("url", "http://localhost:8080", "hooksink base URL")
	secret     = flag.String("secret", "", "webhook signing secret (required)")
	count      = flag.Int("count", 100, "number of messages to send")
	senders    = flag.Int("senders", 8, "number of distinct senders")
	interval   = flag.Duration("interval", 50*time.Millisecond, "interval between messages")
	timeSpread = flag.Duration("time-spread", 24*time.Hour, "spread message timestamps over this period")
	dupRate    = flag.Float64("dup-rate", 0.1, "fraction of messages resent with the same message_id")
)

type webhookPayload struct {
	MessageID string `json:"message_id"`
	From      string `json:"from"`
	To        string `json:"to"`
	TS        string `json:"ts"`
	Text      string `json:"text"`
}

func main() {
	flag.Parse()

	if *secret == "" {
		log.Fatal("signing secret is required. Use -secret flag")
	}

	gofakeit.Seed(time.Now().UnixNano())

	pool := make([]string, *senders)
	for i := range pool {
		pool[i] = fakeMSISDN()
	}

	log.Printf("Starting message seeder:")
	log.Printf("  Target URL: %s", *targetURL)
	log.Printf("  Message count: %d", *count)
	log.Printf("  Senders: %d", *senders)
	log.Printf("  Duplicate rate: %.0f%%", *dupRate*100)

	client := &http.Client{Timeout: 10 * time.Second}

	successCount := 0
	failCount := 0
	var lastBody []byte

	for i := 0; i < *count; i++ {
		body := lastBody
		if body == nil || rand.Float64() >= *dupRate {
			ts := time.Now().UTC()
			if *timeSpread > 0 {
				ts = ts.Add(-time.Duration(rand.Int63n(int64(*timeSpread))))
			}
			payload := webhookPayload{
				MessageID: uuid.New().String(),
				From:      pool[rand.Intn(len(pool))],
				To:        fakeMSISDN(),
				TS:        ts.Truncate(time.Second).Format(time.RFC3339),
				Text:      gofakeit.Sentence(8),
			}
			var err error
			body, err = json.Marshal(payload)
			if err != nil {
				log.Fatalf("Failed to marshal payload: %v", err)
			}
			lastBody = body
		}

		if err := send(client, body); err != nil {
			log.Printf("Failed to send message: %v", err)
			failCount++
		} else {
			successCount++
			if successCount%50 == 0 {
				log.Printf("Progress: %d/%d messages sent", successCount, *count)
			}
		}

		if *interval > 0 && i < *count-1 {
			time.Sleep(*interval)
		}
	}

	log.Printf("Seeding complete:")
	log.Printf("  Success: %d messages", successCount)
	log.Printf("  Failed: %d messages", failCount)
}

func send(client *http.Client, body []byte) error {
	req, err := http.NewRequest(http.MethodPost, *targetURL+"/webhook", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Signature", signature.Compute(*secret, body))

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}

func fakeMSISDN() string {
	return "+" + gofakeit.Numerify("1##########")
}
