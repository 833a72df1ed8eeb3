package messages

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/tonekit/tonekit/internal"
	"github.com/tonekit/tonekit/pkg/models"
)

var log = internal.GetLogger()

// DefaultChatroomID is used for rows that do not come from a named chat export.
const DefaultChatroomID int64 = 1

// ParseRow builds a Message from one raw row. timestamp must be in models.TimestampLayout.
func ParseRow(chatroomID int64, timestamp, sender, content string) (models.Message, error) {
	ts, err := time.Parse(models.TimestampLayout, strings.TrimSpace(timestamp))
	if err != nil {
		return models.Message{}, models.NewParseError(timestamp, err)
	}

	return models.Message{
		ChatroomID: chatroomID,
		Timestamp:  ts,
		Sender:     sender,
		Content:    content,
	}, nil
}

// ParseInline parses headerless timestamp,sender,content rows, such as the
// context block sent alongside a convert request. Any bad row fails the whole input.
func ParseInline(raw string) ([]models.Message, error) {
	msgs := make([]models.Message, 0)
	if strings.TrimSpace(raw) == "" {
		return msgs, nil
	}

	reader := newReader(strings.NewReader(raw))
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, models.NewFormatError(fmt.Sprintf("failed to parse string: %s", raw), err)
		}
		if len(record) < 3 {
			return nil, models.NewFormatError(
				fmt.Sprintf("failed to parse string: %s", raw),
				fmt.Errorf("expected 3 columns, got %d", len(record)),
			)
		}

		msg, err := ParseRow(DefaultChatroomID, record[0], record[1], record[2])
		if err != nil {
			return nil, models.NewFormatError(fmt.Sprintf("failed to parse string: %s", raw), err)
		}
		msgs = append(msgs, msg)
	}

	return msgs, nil
}

// ExtractBySender reads a headerless timestamp,sender,content chat export and
// returns the rows written by targetSender in file order. The chatroom id is the
// third underscore separated token of filename, e.g. KakaoTalk_Chat_1234_2024.csv.
// Malformed rows are skipped and counted; only a bad file name or a failing reader
// is an error.
func ExtractBySender(r io.Reader, filename, targetSender string) ([]models.Message, error) {
	chatroomID, err := ChatroomIDFromFilename(filename)
	if err != nil {
		return nil, err
	}

	reader := newReader(r)
	msgs := make([]models.Message, 0)
	rows, skipped := 0, 0
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		rows++

		var csvErr *csv.ParseError
		switch {
		case errors.As(err, &csvErr):
			log.Warnf("Skipping unreadable row %d: %s", rows, err)
			skipped++
		case err != nil:
			return nil, models.NewFormatError("failed to extract user messages", err)
		case len(record) != 3:
			log.Warnf("Skipping row %d with %d columns", rows, len(record))
			skipped++
		case record[1] != targetSender:
		default:
			msg, err := ParseRow(chatroomID, record[0], record[1], record[2])
			if err != nil {
				log.Warnf("Skipping invalid row %d: %s", rows, err)
				skipped++
				break
			}
			msgs = append(msgs, msg)
		}
	}

	if skipped > 0 {
		log.Warnf("Skipped %d of %d rows in %s", skipped, rows, filename)
	}

	return msgs, nil
}

// ChatroomIDFromFilename extracts the numeric chatroom id from a chat export file name.
func ChatroomIDFromFilename(filename string) (int64, error) {
	tokens := strings.Split(filename, "_")
	if len(tokens) < 3 {
		return 0, models.NewFormatError(
			fmt.Sprintf("file name %q has no chatroom id token", filename),
			nil,
		)
	}

	id, err := strconv.ParseInt(tokens[2], 10, 64)
	if err != nil {
		return 0, models.NewFormatError(
			fmt.Sprintf("file name %q has an invalid chatroom id", filename),
			err,
		)
	}

	return id, nil
}

func newReader(r io.Reader) *csv.Reader {
	reader := csv.NewReader(r)
	// column counts are checked per row so errors name the row rather than the file
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	return reader
}
