// Command send_test_alert posts a signed sample alert to a running
// server, which is the quickest way to exercise the full gateway and
// pipeline end to end:
//
//	WEBHOOK_API_KEY=... WEBHOOK_SECRET_KEY=... go run ./scripts/send_test_alert.go
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/chainsync-ai/alertbridge/pkg/signature"
)

func main() {
	target := os.Getenv("TARGET_URL")
	if target == "" {
		target = "http://localhost:8080/webhooks/chainsync/alert"
	}
	apiKey := os.Getenv("WEBHOOK_API_KEY")
	if apiKey == "" {
		log.Fatal("WEBHOOK_API_KEY is required")
	}
	secret := os.Getenv("WEBHOOK_SECRET_KEY")

	payload := map[string]any{
		"alert_id":         "test-" + uuid.NewString(),
		"alert_type":       "system_outage",
		"severity":         "high",
		"description":      "Order processing service unresponsive for 5 minutes",
		"affected_systems": []string{"order-service", "payment-gateway"},
		"detected_at":      time.Now().UTC().Format(time.RFC3339),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		log.Fatalf("marshal payload: %v", err)
	}

	req, err := http.NewRequest(http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		log.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", apiKey)

	if secret != "" {
		sig, ts, err := signature.Sign(secret, body)
		if err != nil {
			log.Fatalf("sign payload: %v", err)
		}
		req.Header.Set("X-Webhook-Signature", sig)
		req.Header.Set("X-Webhook-Timestamp", ts)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Fatalf("send request: %v", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	fmt.Printf("status: %s\n%s\n", resp.Status, respBody)
}
