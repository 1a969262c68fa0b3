package dynamodb

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"

	"trendscout/domain/core/entities"
)

// maxPartBytes bounds one payload attribute so an item, with its keys and
// summary attributes, stays under DynamoDB's 400 KB item limit
var maxPartBytes = 300 * 1024

// encodePayload gzips the result's JSON contract
func encodePayload(result *entities.ExplorationResult) ([]byte, error) {
	raw, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("failed to encode exploration: %w", err)
	}

	var buf bytes.Buffer
	gzw := gzip.NewWriter(&buf)
	if _, err := gzw.Write(raw); err != nil {
		return nil, fmt.Errorf("failed to compress exploration: %w", err)
	}
	if err := gzw.Close(); err != nil {
		return nil, fmt.Errorf("failed to compress exploration: %w", err)
	}
	return buf.Bytes(), nil
}

func decodePayload(payload []byte) (*entities.ExplorationResult, error) {
	gzr, err := gzip.NewReader(bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to decompress exploration: %w", err)
	}
	defer func() { _ = gzr.Close() }()

	raw, err := io.ReadAll(gzr)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress exploration: %w", err)
	}

	var result entities.ExplorationResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("failed to decode exploration: %w", err)
	}
	return &result, nil
}

// splitPayload cuts payload into chunks of at most size bytes
func splitPayload(payload []byte, size int) [][]byte {
	var parts [][]byte
	for len(payload) > size {
		parts = append(parts, payload[:size])
		payload = payload[size:]
	}
	return append(parts, payload)
}
