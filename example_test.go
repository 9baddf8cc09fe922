package durasock_test

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/durasock/durasock"
)

func ExampleNew() {
	conn, err := durasock.New("wss://example.com/live", &durasock.Config{
		HeartbeatInterval: 15 * time.Second,
		ProbeTimeout:      3 * time.Second,
	})
	if err != nil {
		log.Fatal(err)
	}

	conn.OnOpen = func() {
		fmt.Println("connected")
	}
	conn.OnMessage = func(msg durasock.Message) {
		fmt.Println("received", msg.Type)
	}
	conn.OnClose = func(err error) {
		fmt.Println("transport lost:", err)
	}

	if err := conn.Connect(context.Background()); err != nil {
		log.Fatal(err)
	}
	defer conn.Close()

	_ = conn.Send(map[string]any{"type": "subscribe", "channel": "ticker"})
}

func ExampleConn_Send() {
	type order struct {
		Type   string  `json:"type"`
		Symbol string  `json:"symbol"`
		Price  float64 `json:"price"`
	}

	conn, err := durasock.New("wss://example.com/orders", nil)
	if err != nil {
		log.Fatal(err)
	}
	if err := conn.Connect(context.Background()); err != nil {
		log.Fatal(err)
	}
	defer conn.Close()

	// Send drops the frame silently when the connection is between
	// transports; queueing is the caller's concern.
	if err := conn.Send(order{Type: "limit", Symbol: "ES", Price: 5432.5}); err != nil {
		log.Fatal(err)
	}
}

func ExampleConn_WatchVisibility() {
	conn, err := durasock.New("wss://example.com/live", nil)
	if err != nil {
		log.Fatal(err)
	}
	if err := conn.Connect(context.Background()); err != nil {
		log.Fatal(err)
	}
	defer conn.Close()

	// Wire the host's lifecycle notifications into the connection:
	// backgrounding suspends it, foregrounding redials immediately.
	signals := make(chan durasock.Signal)
	gate := conn.WatchVisibility(signals)
	defer gate.Stop()

	go func() {
		signals <- durasock.Background
		time.Sleep(time.Minute)
		signals <- durasock.Foreground
	}()
}

func ExampleAcquire() {
	cfg := &durasock.Config{SharedScope: durasock.SharePerURL}

	// Both acquirers get the same underlying connection.
	a, err := durasock.Acquire("wss://example.com/live", cfg)
	if err != nil {
		log.Fatal(err)
	}
	b, err := durasock.Acquire("wss://example.com/live", cfg)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(a == b)
	defer a.Close()
}

func ExampleConfig() {
	conn, err := durasock.New("https://example.com/live", &durasock.Config{
		PayloadEncoding:      durasock.EncodingBinary,
		HeartbeatInitiator:   durasock.InitiatorPeer,
		ReconnectDelay:       2 * time.Second,
		MaxReconnectDelay:    30 * time.Second,
		MaxReconnectAttempts: 10,
	})
	if err != nil {
		log.Fatal(err)
	}
	// https URLs are rewritten to the transport scheme.
	fmt.Println(conn.URL())
	// Output: wss://example.com/live
}
