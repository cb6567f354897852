package ingest

import (
	"bytes"
	"errors"
	"fmt"

	"roadwatch/internal/domain"
)

// IssueSink receives decoded issue records from ingest interfaces.
// Params: one record or ordered batch.
// Returns: processing error.
type IssueSink interface {
	Push(record domain.IssueRecord) error
	PushBatch(records []domain.IssueRecord) error
}

// decodePayload decodes one issue object or a non-empty JSON array of issues.
// Params: raw request/message body.
// Returns: records and whether payload was a batch.
func decodePayload(body []byte) ([]domain.IssueRecord, bool, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, false, errors.New("empty payload")
	}
	if trimmed[0] == '[' {
		records, err := domain.DecodeIssues(trimmed)
		if err != nil {
			return nil, true, err
		}
		if len(records) == 0 {
			return nil, true, errors.New("empty batch")
		}
		for i := range records {
			if err := records[i].Validate(); err != nil {
				return nil, true, fmt.Errorf("issue[%d]: %w", i, err)
			}
		}
		return records, true, nil
	}
	record, err := domain.DecodeIssue(trimmed)
	if err != nil {
		return nil, false, err
	}
	return []domain.IssueRecord{record}, false, nil
}

// deliver forwards decoded records to sink using single or batch call.
func deliver(sink IssueSink, records []domain.IssueRecord, batch bool) error {
	if batch {
		return sink.PushBatch(records)
	}
	return sink.Push(records[0])
}
