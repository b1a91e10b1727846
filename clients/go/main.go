// Command-line client for the wishes guestbook API.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/mooky-live/wishes-backend/clients/go/wishes"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	baseURL := os.Getenv("WISHES_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080/api"
	}

	client := wishes.NewClient(baseURL)
	client.AdminPass = os.Getenv("WISHES_ADMIN_PASS")
	client.SeedToken = os.Getenv("WISHES_SEED_TOKEN")

	ctx := context.Background()
	cmd := os.Args[1]

	switch cmd {
	case "health":
		resp, err := client.Health(ctx)
		exitOnError(err)
		fmt.Printf("status=%s store=%s broker=%s\n", resp.Status, resp.Store, resp.Broker)

	case "list":
		resp, err := client.ListWishes(ctx)
		exitOnError(err)
		for _, w := range resp.Wishes {
			printWish(w)
		}

	case "count":
		n, err := client.Count(ctx)
		exitOnError(err)
		fmt.Println(n)

	case "wish":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "Usage: wishes wish <message> [name]")
			os.Exit(1)
		}
		name := ""
		if len(os.Args) > 3 {
			name = os.Args[3]
		}
		resp, err := client.CreateWish(ctx, name, os.Args[2])
		exitOnError(err)
		fmt.Printf("created %s\n", resp.ID)

	case "delete":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "Usage: wishes delete <id-or-prefix>")
			os.Exit(1)
		}
		resp, err := client.DeleteWish(ctx, os.Args[2])
		exitOnError(err)
		fmt.Printf("deleted %s\n", resp.Deleted)

	case "watch":
		watch(client)

	default:
		usage()
		os.Exit(1)
	}
}

// watch follows the live feed, reconciling events into a rolling view.
func watch(client *wishes.Client) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stream, err := client.Stream(ctx)
	exitOnError(err)
	defer stream.Close()

	rec := wishes.NewReconciler()
	for ev := range stream.C {
		rec.Apply(ev)
		switch ev.Type {
		case wishes.EventSnapshot:
			fmt.Printf("-- %d wishes --\n", len(ev.Wishes))
			for _, w := range rec.Wishes() {
				printWish(w)
			}
		case wishes.EventWish:
			if ev.Wish != nil {
				printWish(*ev.Wish)
			}
		case wishes.EventError:
			fmt.Fprintf(os.Stderr, "stream error: %s\n", ev.Error)
		}
	}
	exitOnError(stream.Err())
}

func printWish(w wishes.Wish) {
	id := w.ID
	if len(id) > 8 {
		id = id[:8]
	}
	ts := w.CreatedAt.Local().Format("2006-01-02 15:04:05")
	fmt.Printf("[%s] %s  %s: %s\n", ts, id, w.Name, w.Message)
}

func usage() {
	fmt.Fprintln(os.Stderr, strings.TrimSpace(`
Usage: wishes <command> [args]

Commands:
  health              server health
  list                all wishes, newest first
  count               total number of wishes
  wish <msg> [name]   create a wish
  delete <id>         delete a wish (WISHES_ADMIN_PASS)
  watch               follow the live feed

Environment:
  WISHES_URL          API base URL (default http://localhost:8080/api)
  WISHES_ADMIN_PASS   admin secret for delete
  WISHES_SEED_TOKEN   seed token for import
`))
}

func exitOnError(err error) {
	if err == nil {
		return
	}
	fmt.Fprintln(os.Stderr, "error:", err)
	os.Exit(1)
}
