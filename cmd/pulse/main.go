// Command pulse routes one message through the analysis pipeline and prints
// the resulting event as JSON.
//
//	pulse -user Alex "the product arrived broken"
//	echo "who built pulseai" | pulse -user Alex
//	pulse -history -user-id 7
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/spacesedan/pulseai/config"
	"github.com/spacesedan/pulseai/internal/clients"
	"github.com/spacesedan/pulseai/internal/conversation"
	"github.com/spacesedan/pulseai/internal/db"
	"github.com/spacesedan/pulseai/internal/logging"
	"github.com/spacesedan/pulseai/internal/models"
	"github.com/spacesedan/pulseai/internal/pipeline"
)

var errMissingUserID = errors.New("[Pulse] -history needs -user-id")

func main() {
	userName := flag.String("user", "there", "name used in scripted answers")
	userID := flag.Int64("user-id", 0, "user id recorded on the event")
	backend := flag.String("backend", "", "sentiment backend override (vader, huggingface, hugot)")
	showHistory := flag.Bool("history", false, "print the stored analysis history of -user-id and exit")
	flag.Parse()

	config.LoadEnv(config.AppEnv())
	logging.InitLogger()
	settings := config.LoadSettings()
	if *backend != "" {
		settings.SentimentBackend = strings.ToLower(*backend)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if *showHistory {
		store := db.NewHistoryStore(clients.GetDynamoDBClient(), settings.HistoryTableName)
		if err := printHistory(ctx, store, *userID, os.Stdout); err != nil {
			slog.Error("[Pulse] Failed to load history", slog.String("error", err.Error()))
			os.Exit(1)
		}
		return
	}

	// Titles are only generated for stored chats, which the CLI never creates.
	settings.TitleUseAI = false

	text, err := readText(flag.Args(), os.Stdin)
	if err != nil {
		slog.Error("[Pulse] Failed to read input", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := run(ctx, settings, models.AnalysisRequest{UserID: *userID, UserName: *userName, Text: text}, os.Stdout); err != nil {
		slog.Error("[Pulse] Analysis failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, settings config.Settings, req models.AnalysisRequest, out io.Writer) error {
	components, err := pipeline.Build(settings)
	if err != nil {
		return err
	}
	defer components.Close()

	service := conversation.NewService(conversation.Deps{
		Router: components.Router,
		Titles: components.Titles,
	})

	event, err := service.Analyze(ctx, req)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(event)
}

// printHistory writes the user's stored analysis records, newest first.
func printHistory(ctx context.Context, history conversation.HistoryReader, userID int64, out io.Writer) error {
	if userID == 0 {
		return errMissingUserID
	}
	service := conversation.NewService(conversation.Deps{History: history})

	records, err := service.History(ctx, userID)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(records)
}

// readText joins the positional arguments, or reads stdin when there are none.
func readText(args []string, stdin io.Reader) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	raw, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("[Pulse] failed to read stdin: %w", err)
	}
	return strings.TrimSpace(string(raw)), nil
}
