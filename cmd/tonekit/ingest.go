package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/tonekit/tonekit/pkg/messages"
	"github.com/tonekit/tonekit/pkg/models"
)

var (
	ingestCollection string
	ingestSender     string
	ingestMerge      bool
	ingestSize       int
	ingestChatroomID int64
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [csv file]",
	Short: "Embed a chat log with a timestamp,sender,content header into a collection",
	Example: "tonekit ingest --collection alice --sender alice --merge " +
		"KakaoTalk_Chat_1234_2024.csv",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		appState, err := NewAppState(ctx, cfg)
		if err != nil {
			return err
		}
		defer func() {
			if err := appState.Index.Close(); err != nil {
				log.Errorf("Error closing index: %v", err)
			}
		}()

		opts := messages.ParseOptions{
			ChatroomID: ingestChatroomID,
			Size:       ingestSize,
			Merge:      ingestMerge,
			MergeGap:   cfg.Ingest.MergeGap(),
		}
		final, err := ingestFile(ctx, appState, args[0], ingestCollection, ingestSender, opts)
		if err != nil {
			return err
		}
		if final.Status == models.ProgressError {
			return fmt.Errorf("ingestion failed: %s", final.Error)
		}
		return nil
	},
}

// ingestFile parses path, keeps sender's messages when sender is set and loads
// them into collection, logging each progress event. It returns the final event.
func ingestFile(
	ctx context.Context,
	appState *models.AppState,
	path, collection, sender string,
	opts messages.ParseOptions,
) (models.IngestionProgress, error) {
	if opts.ChatroomID == 0 {
		id, err := messages.ChatroomIDFromFilename(filepath.Base(path))
		if err != nil {
			log.Warnf("Using default chatroom id: %v", err)
		}
		opts.ChatroomID = id
	}

	f, err := os.Open(path)
	if err != nil {
		return models.IngestionProgress{}, err
	}
	defer f.Close()

	msgs, err := messages.ParseCSV(f, opts)
	if err != nil {
		return models.IngestionProgress{}, err
	}
	if sender != "" {
		msgs = filterBySender(msgs, sender)
	}
	log.Infof("Parsed %s messages from %s", humanize.Comma(int64(len(msgs))), path)

	if err := ensureCollection(ctx, appState.Index, collection); err != nil {
		return models.IngestionProgress{}, err
	}

	events, err := appState.Loader.LoadMessages(ctx, collection, msgs)
	if err != nil {
		return models.IngestionProgress{}, err
	}

	final := models.NotStartedProgress()
	for p := range events {
		final = p
		switch p.Status {
		case models.ProgressError:
			log.Errorf("Ingestion into %s failed: %s", collection, p.Error)
		default:
			log.Infof(
				"%s: %s / %s messages (%.2f%%)",
				p.Status,
				humanize.Comma(int64(p.Processed)),
				humanize.Comma(int64(p.Total)),
				p.Percentage,
			)
		}
	}

	return final, nil
}

// ensureCollection creates collection, or loads it when it already exists.
func ensureCollection(ctx context.Context, index models.VectorIndex, collection string) error {
	err := index.CreateCollection(ctx, collection)
	if errors.Is(err, models.ErrAlreadyExists) {
		log.Infof("Collection %s exists, appending to it", collection)
		return index.LoadCollection(ctx, collection)
	}
	return err
}

func filterBySender(msgs []models.Message, sender string) []models.Message {
	filtered := make([]models.Message, 0, len(msgs))
	for _, msg := range msgs {
		if msg.Sender == sender {
			filtered = append(filtered, msg)
		}
	}
	return filtered
}
