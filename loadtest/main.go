// Stress test for the chat socket route: fans N relay listeners into one
// room and measures delivery of DELETED pointers pushed by a single sender.
// Relay connections skip membership validation and pointer resolution, so
// this isolates registry + broadcast throughput from the database.
package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

func main() {
	addr := flag.String("addr", "localhost:8080", "server host:port")
	secret := flag.String("secret", "", "relay socket secret")
	conns := flag.Int("conns", 100, "listener connections")
	msgs := flag.Int("msgs", 50, "pointers to send")
	room := flag.String("room", "load-test", "chat room path parameter")
	flag.Parse()

	if *secret == "" {
		log.Fatal("❌ -secret is required")
	}

	uri := fmt.Sprintf("ws://%s/ws/chats/%s", *addr, *room)
	header := http.Header{}
	header.Set("Authorization", *secret)

	log.Printf("🔥 STARTING STRESS TEST: %d listeners, %d pointers...", *conns, *msgs)

	var received atomic.Int64
	var wg sync.WaitGroup
	expected := int64(*conns) * int64(*msgs)

	for i := 0; i < *conns; i++ {
		conn, _, err := websocket.DefaultDialer.Dial(uri, header)
		if err != nil {
			log.Fatalf("❌ Dial failed after %d connections: %v", i, err)
		}
		defer conn.Close()

		wg.Add(1)
		go func(c *websocket.Conn) {
			defer wg.Done()
			for received.Load() < expected {
				c.SetReadDeadline(time.Now().Add(10 * time.Second))
				if _, _, err := c.ReadMessage(); err != nil {
					return
				}
				received.Add(1)
			}
		}(conn)
	}

	sender, _, err := websocket.DefaultDialer.Dial(uri, header)
	if err != nil {
		log.Fatalf("❌ Sender dial failed: %v", err)
	}
	defer sender.Close()

	start := time.Now()
	for i := 0; i < *msgs; i++ {
		pointer := map[string]string{"id": uuid.New().String(), "status": "DELETED"}
		if err := sender.WriteJSON(pointer); err != nil {
			log.Fatalf("❌ Send failed at pointer %d: %v", i, err)
		}
	}

	wg.Wait()
	elapsed := time.Since(start)
	got := received.Load()
	log.Printf("✅ LOAD TEST COMPLETE: %d/%d frames in %s (%.0f frames/sec)",
		got, expected, elapsed, float64(got)/elapsed.Seconds())
}
