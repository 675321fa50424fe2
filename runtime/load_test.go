package runtime_test

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"realtime-hub/domain"
	"realtime-hub/domain/event"
	"realtime-hub/runtime"
	"realtime-hub/session"

	"github.com/stretchr/testify/require"
)

func TestRouter_LoadTest(t *testing.T) {
	if testing.Short() {
		t.Skip("load test")
	}
	req := require.New(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Logs off, we measure routing only
	log := slog.New(slog.DiscardHandler)
	registry := runtime.NewRegistry(log)
	registry.Notify(runtime.NewPresenceBroadcaster(log, registry))
	router := runtime.NewRouter(log, registry)

	numClients := 100
	messagesPerClient := 200

	// 1. Every client gets an outbound handle drained like a writer would
	var received atomic.Uint64
	var drainers sync.WaitGroup
	outbounds := make([]*session.Outbound, numClients)
	for i := range outbounds {
		outbound := session.NewOutbound(domain.UserID(i+1), 1024)
		outbounds[i] = outbound
		drainers.Add(1)
		go func() {
			defer drainers.Done()
			for {
				select {
				case e := <-outbound.Events():
					if e.Kind() == event.ChatKind {
						received.Add(1)
					}
				case <-outbound.Done():
					return
				}
			}
		}()
		registry.Add(ctx, domain.UserID(i+1), outbound)
	}

	// 2. Measures
	var successCount atomic.Uint64
	var failureCount atomic.Uint64
	start := time.Now()
	var wg sync.WaitGroup

	// 3. Traffic, every client writes to its neighbour
	for i := 0; i < numClients; i++ {
		wg.Add(1)
		go func(from int) {
			defer wg.Done()
			to := domain.UserID((from+1)%numClients + 1)
			for j := 0; j < messagesPerClient; j++ {
				if err := router.RouteChat(ctx, domain.UserID(from+1), to, "load test message"); err != nil {
					failureCount.Add(1)
				} else {
					successCount.Add(1)
				}
			}
		}(i)
	}
	wg.Wait()
	duration := time.Since(start)

	// 4. Every accepted chat reaches its drainer
	req.Eventually(func() bool { return received.Load() == successCount.Load() }, 5*time.Second, 10*time.Millisecond)
	for _, outbound := range outbounds {
		outbound.Close()
	}
	drainers.Wait()

	req.Equal(uint64(numClients*messagesPerClient), successCount.Load()+failureCount.Load())
	t.Logf("\n--- ROUTER LOAD TEST ---\n"+
		"Duration  : %v\n"+
		"Delivered : %d\n"+
		"Rejected  : %d (full outbound)\n"+
		"Rate      : %.2f msg/sec\n",
		duration, successCount.Load(), failureCount.Load(), float64(successCount.Load())/duration.Seconds())
	fmt.Println()
}
