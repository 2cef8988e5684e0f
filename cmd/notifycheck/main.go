package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/park285/game-finalizer/internal/notify"
)

// notifycheck checks the SMS gateway configured through NOTIFY_* and can
// optionally push one test message.
func main() {
	send := flag.Bool("send", false, "send a test message")
	to := flag.Int64("to", 0, "recipient participant id for -send")
	flag.Parse()

	baseURL := os.Getenv("NOTIFY_BASE_URL")
	wsURL := os.Getenv("NOTIFY_WS_URL")
	apiKey := os.Getenv("NOTIFY_API_KEY")

	if baseURL == "" && wsURL == "" {
		log.Fatal("NOTIFY_BASE_URL or NOTIFY_WS_URL is required")
	}
	var headers notify.HeaderProvider
	if apiKey != "" {
		headers = notify.APIKeyHeader(apiKey)
	}

	msg := notify.SMS{ID: uuid.NewString(), To: *to, Name: "notifycheck", Message: "notifycheck test message"}

	if baseURL != "" {
		client := notify.NewHTTPSender(baseURL,
			notify.WithHeaderProvider(headers),
			notify.WithTimeout(8*time.Second),
		)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := client.Ping(ctx); err != nil {
			log.Printf("/health error: %v", err)
		} else {
			log.Printf("/health ok: %s", baseURL)
		}
		cancel()
		if *send {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := client.Send(ctx, msg); err != nil {
				log.Printf("/sms error: %v", err)
			} else {
				log.Printf("/sms ok: id=%s", msg.ID)
			}
			cancel()
		}
	}

	if wsURL == "" {
		log.Println("NOTIFY_WS_URL not set; skipping WS check")
		return
	}
	if !*send {
		log.Println("WS check needs -send; skipping")
		return
	}
	ws := notify.NewWSSender(wsURL, notify.WithWSHeaders(headers))
	defer ws.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := ws.Send(ctx, msg); err != nil {
		log.Printf("WS send error: %v", err)
		return
	}
	log.Printf("WS send ok: id=%s", msg.ID)
}
