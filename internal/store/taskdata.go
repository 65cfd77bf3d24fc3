package store

import (
	"encoding/json"
	"fmt"
)

// decodeTaskData parses a tasks-table data column: a JSON object mapping
// property names to string values.
func decodeTaskData(data string) (map[string]string, error) {
	props := make(map[string]string)
	if err := json.Unmarshal([]byte(data), &props); err != nil {
		return nil, fmt.Errorf("failed to decode task data: %w", err)
	}
	return props, nil
}

// encodeTaskData serializes task properties back into the data column
// format. encoding/json emits object keys in sorted order, so equal states
// always encode to identical bytes.
func encodeTaskData(props map[string]string) (string, error) {
	data, err := json.Marshal(props)
	if err != nil {
		return "", fmt.Errorf("failed to encode task data: %w", err)
	}
	return string(data), nil
}
