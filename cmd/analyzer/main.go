package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/kirillkom/git-guard/internal/bootstrap"
	"github.com/kirillkom/git-guard/internal/config"
	"github.com/kirillkom/git-guard/internal/core/domain"
	"github.com/kirillkom/git-guard/internal/observability/logging"
)

// The analyzer runs as a commit-msg hook: argv[1] is the path to the message
// file git prepared. The hook prints the risk verdict and three message
// options; picking one rewrites the file, anything else keeps the draft.
func main() {
	if len(os.Args) < 2 {
		log.Fatalf("usage: analyzer <commit-msg-file>")
	}
	msgFile := os.Args[1]

	raw, err := os.ReadFile(msgFile)
	if err != nil {
		log.Fatalf("read commit message: %v", err)
	}
	draft := firstMessageLine(string(raw))

	cfg := config.Load()
	logger := logging.NewJSONLogger("analyzer", cfg.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	suggestion, err := app.AnalyzeUC.Analyze(ctx, draft)
	if err != nil {
		// A broken pipeline must never block a commit.
		fmt.Fprintf(os.Stderr, "analysis unavailable, keeping draft: %v\n", err)
		return
	}

	printSuggestion(draft, suggestion)

	if choice := readChoice(); choice > 0 {
		selected := suggestion.Options[choice-1]
		if err := os.WriteFile(msgFile, []byte(selected+"\n"), 0o644); err != nil {
			log.Fatalf("write commit message: %v", err)
		}
		fmt.Printf("commit message set to: %s\n", selected)
	}
}

func firstMessageLine(raw string) string {
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line != "" && !strings.HasPrefix(line, "#") {
			return line
		}
	}
	return ""
}

func printSuggestion(draft string, s domain.Suggestion) {
	fmt.Printf("\nRisk: %s\nSummary: %s\n\n", s.Risk, s.Summary)
	for i, opt := range s.Options {
		fmt.Printf("  %d) %s\n", i+1, opt)
	}
	fmt.Printf("\nPick 1-%d to replace %q, or press Enter to keep it: ", len(s.Options), draft)
}

// readChoice reads the selection from the controlling terminal. Hooks run
// with stdin detached, so /dev/tty is tried first.
func readChoice() int {
	in := os.Stdin
	if tty, err := os.Open("/dev/tty"); err == nil {
		defer tty.Close()
		in = tty
	}

	scanner := bufio.NewScanner(in)
	if !scanner.Scan() {
		return 0
	}
	switch strings.TrimSpace(scanner.Text()) {
	case "1":
		return 1
	case "2":
		return 2
	case "3":
		return 3
	default:
		return 0
	}
}
