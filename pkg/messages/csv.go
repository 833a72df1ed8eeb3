package messages

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/tonekit/tonekit/pkg/models"
)

var requiredColumns = []string{"timestamp", "sender", "content"}

type ParseOptions struct {
	// ChatroomID tags every parsed message. Defaults to DefaultChatroomID.
	ChatroomID int64
	// Size stops parsing after this many data rows. 0 means no limit.
	Size int
	// Merge appends MergeAdjacent groups to the output.
	Merge bool
	// MergeGap defaults to DefaultMergeGap.
	MergeGap time.Duration
}

// ParseCSV parses a chat log with a header row naming at least the timestamp,
// sender and content columns. Rows that fail to parse are skipped and counted.
func ParseCSV(r io.Reader, opts ParseOptions) ([]models.Message, error) {
	if opts.ChatroomID == 0 {
		opts.ChatroomID = DefaultChatroomID
	}

	reader := newReader(r)
	header, err := reader.Read()
	if err != nil {
		return nil, models.NewFormatError("unable to read CSV header", err)
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[name] = i
	}
	for _, name := range requiredColumns {
		if _, ok := columns[name]; !ok {
			return nil, models.NewFormatError(
				fmt.Sprintf("CSV must contain these columns: %v", requiredColumns),
				nil,
			)
		}
	}
	tsCol, senderCol, contentCol := columns["timestamp"], columns["sender"], columns["content"]
	width := max(tsCol, senderCol, contentCol) + 1

	msgs := make([]models.Message, 0)
	rows, skipped := 0, 0
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		rows++
		switch {
		case err != nil:
			log.Warnf("Skipping unreadable row %d: %s", rows, err)
			skipped++
		case len(record) < width:
			log.Warnf("Skipping short row %d: %v", rows, record)
			skipped++
		default:
			msg, err := ParseRow(opts.ChatroomID, record[tsCol], record[senderCol], record[contentCol])
			if err != nil {
				log.Warnf("Skipping invalid row %d: %s", rows, err)
				skipped++
				break
			}
			msgs = append(msgs, msg)
		}

		if opts.Size > 0 && rows >= opts.Size {
			break
		}
	}

	if skipped > 0 {
		log.Warnf("Skipped %d of %d rows", skipped, rows)
	}

	if opts.Merge {
		return MergeAdjacent(msgs, opts.MergeGap), nil
	}
	return msgs, nil
}
