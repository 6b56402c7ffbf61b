//go:build ignore

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/service-aggregator/internal/domain"
)

func main() {
	redisAddr := flag.String("redis", "localhost:6379", "Redis address for streams")
	provider := flag.String("provider", "OSM", "provider to refresh")
	country := flag.String("country", "Jordan", "country to refresh")
	bbox := flag.String("bbox", "", "optional minLat,minLon,maxLat,maxLon")
	wait := flag.Duration("wait", 2*time.Minute, "how long to wait for the done event")
	flag.Parse()

	client := redis.NewClient(&redis.Options{
		Addr: *redisAddr,
	})
	defer client.Close()

	ctx := context.Background()

	// Проверка подключения
	if err := client.Ping(ctx).Err(); err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}

	event := domain.RefreshRequestEvent{
		RequestID:   uuid.New(),
		Provider:    *provider,
		Country:     *country,
		RequestedAt: time.Now().UTC(),
	}
	if *bbox != "" {
		event.BBox = bbox
	}

	data, err := json.Marshal(event)
	if err != nil {
		log.Fatalf("Failed to marshal event: %v", err)
	}

	// Запоминаем хвост done-стрима до публикации, чтобы не читать старые ответы
	lastID := "$"
	if last, err := client.XRevRangeN(ctx, domain.StreamServicesRefreshDone, "+", "-", 1).Result(); err == nil && len(last) > 0 {
		lastID = last[0].ID
	}

	result, err := client.XAdd(ctx, &redis.XAddArgs{
		Stream: domain.StreamServicesRefresh,
		Values: map[string]interface{}{
			"data": string(data),
		},
	}).Result()
	if err != nil {
		log.Fatalf("Failed to publish event: %v", err)
	}

	fmt.Printf("Event published\n")
	fmt.Printf("   Stream: %s\n", domain.StreamServicesRefresh)
	fmt.Printf("   Message ID: %s\n", result)
	fmt.Printf("   Request ID: %s\n", event.RequestID)
	fmt.Printf("   Provider: %s, country: %s\n", event.Provider, event.Country)

	fmt.Printf("\nWaiting for response in %s...\n", domain.StreamServicesRefreshDone)

	deadline := time.Now().Add(*wait)
	for time.Now().Before(deadline) {
		streams, err := client.XRead(ctx, &redis.XReadArgs{
			Streams: []string{domain.StreamServicesRefreshDone, lastID},
			Count:   10,
			Block:   time.Second,
		}).Result()
		if err != nil && err != redis.Nil {
			log.Fatalf("Failed to read done stream: %v", err)
		}

		for _, stream := range streams {
			for _, msg := range stream.Messages {
				lastID = msg.ID

				raw, ok := msg.Values["data"].(string)
				if !ok {
					continue
				}

				var done domain.RefreshDoneEvent
				if err := json.Unmarshal([]byte(raw), &done); err != nil {
					continue
				}
				if done.RequestID != event.RequestID {
					continue
				}

				pretty, _ := json.MarshalIndent(done, "", "  ")
				fmt.Printf("\nResponse received:\n%s\n", pretty)
				return
			}
		}
	}

	fmt.Println("Timeout waiting for response")
}
