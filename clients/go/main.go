// PitchLab CLI - command line client for a PitchLab server
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/DenisLeme/pitchlab/clients/go/pitchlab"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	baseURL := os.Getenv("PITCHLAB_URL")
	client := pitchlab.NewClient(baseURL)
	cmd := os.Args[1]

	switch cmd {
	case "health":
		resp, err := client.Health()
		exitOnError(err)
		printJSON(resp)

	case "rooms":
		rooms, err := client.ListRooms()
		exitOnError(err)
		for _, room := range rooms {
			fmt.Printf("  %s  %s\n", room.ID, room.Name)
		}

	case "create":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "Usage: pitchlab create <name>")
			os.Exit(1)
		}
		room, err := client.CreateRoom(os.Args[2])
		exitOnError(err)
		fmt.Printf("Created room: %s\n", room.ID)

	case "read":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "Usage: pitchlab read <room_id>")
			os.Exit(1)
		}
		resp, err := client.GetMessages(os.Args[2], 20, "")
		exitOnError(err)
		for _, msg := range resp.Messages {
			author := msg.AuthorName
			if msg.Role == "assistant" {
				author = "assistant"
			}
			ts := msg.CreatedAt.Format("2006-01-02 15:04:05")
			fmt.Printf("[%s] %s: %s\n", ts, author, msg.Content)
		}

	case "post":
		if len(os.Args) < 5 {
			fmt.Fprintln(os.Stderr, "Usage: pitchlab post <room_id> <author> <message>")
			os.Exit(1)
		}
		msg, err := client.PostMessage(os.Args[2], os.Args[3], os.Args[4], false)
		exitOnError(err)
		fmt.Printf("Posted: %s\n", msg.ID)

	case "idea":
		if len(os.Args) < 4 {
			fmt.Fprintln(os.Stderr, "Usage: pitchlab idea <room_id> <content>")
			os.Exit(1)
		}
		idea, err := client.CreateIdea(os.Args[2], os.Args[3])
		exitOnError(err)
		fmt.Printf("Idea: %s\n", idea.ID)

	case "vote":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "Usage: pitchlab vote <idea_id>")
			os.Exit(1)
		}
		idea, err := client.VoteIdea(os.Args[2])
		exitOnError(err)
		fmt.Printf("Score: %d\n", idea.Score)

	case "digest":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "Usage: pitchlab digest <room_id> [summary|tags|pitch]")
			os.Exit(1)
		}
		mode := pitchlab.DigestSummary
		if len(os.Args) > 3 {
			mode = os.Args[3]
		}
		exitOnError(client.RunDigest(os.Args[2], mode))
		fmt.Println("Digest done")

	case "tags":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "Usage: pitchlab tags <room_id>")
			os.Exit(1)
		}
		tags, err := client.RoomTags(os.Args[2])
		exitOnError(err)
		for _, tag := range tags {
			fmt.Printf("  %s (%d)\n", tag.Name, tag.Uses)
		}

	case "help", "--help", "-h":
		usage()

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Println(`PitchLab CLI - collaborative ideation rooms

Usage: pitchlab <command> [options]

Commands:
  create <name>                   Create a room
  rooms                           List rooms
  read <room_id>                  Read messages from a room
  post <room_id> <author> <msg>   Post a message
  idea <room_id> <content>        Post an idea
  vote <idea_id>                  Upvote an idea
  digest <room_id> [mode]         Run an AI digest (summary, tags, pitch)
  tags <room_id>                  Show a room's tag counts
  health                          Check server health

Environment:
  PITCHLAB_URL   Server URL (default: http://localhost:4000)`)
}

func exitOnError(err error) {
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func printJSON(v interface{}) {
	data, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(data))
}
