// Smoke-tests a running server end to end: register, login, create a chat,
// send a message, poll it back, then stream an AI reply.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"ai-chat-be/pkg/client"

	"github.com/fatih/color"
	"github.com/google/uuid"
)

func main() {
	baseURL := flag.String("base-url", "http://localhost:5000", "server base URL")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	ok := color.New(color.FgGreen).PrintfFunc()
	info := color.New(color.FgCyan).PrintfFunc()
	warn := color.New(color.FgYellow).PrintfFunc()

	suffix := uuid.NewString()[:8]
	email := fmt.Sprintf("smoke-%s@example.com", suffix)
	username := "smoke-" + suffix
	password := "smoke-test-password"

	info("Registering %s...\n", email)
	if err := client.Register(ctx, *baseURL, username, email, password); err != nil {
		log.Fatalf("register failed: %v", err)
	}
	ok("Registered\n")

	token, err := client.Login(ctx, *baseURL, email, password)
	if err != nil {
		log.Fatalf("login failed: %v", err)
	}
	ok("Logged in\n")

	c := client.New(*baseURL, token)

	chat, err := c.CreateChat(ctx, "")
	if err != nil {
		log.Fatalf("create chat failed: %v", err)
	}
	ok("Created chat %s (%q)\n", chat.Id, chat.Title)

	sent, err := c.SendMessage(ctx, chat.Id, "Hello from the smoke test", nil)
	if err != nil {
		log.Fatalf("send message failed: %v", err)
	}
	ok("Sent message %s\n", sent.Id)

	view := client.NewChatView()
	poller := client.NewPoller(c, chat.Id, view)
	poller.Sweep(ctx)

	messages := view.Messages()
	if len(messages) == 0 {
		log.Fatal("poll returned no messages")
	}
	ok("Polled %d message(s) back\n", len(messages))

	info("Streaming AI reply...\n")
	view.BeginStream()
	reply, err := c.StreamAI(ctx, chat.Id, "Say hello back in one short sentence.", func(chunk string) {
		view.AppendStreamChunk(chunk)
		fmt.Print(chunk)
	})
	fmt.Println()
	if err != nil {
		view.EndStream(nil)
		warn("Stream degraded: %v\n", err)
	} else {
		view.EndStream(nil)
		poller.Sweep(ctx)
		ok("Streamed %d characters\n", len(reply))
	}

	ok("Smoke test passed\n")
}
