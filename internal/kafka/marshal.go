package kafka

import (
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"
)

// HeaderValue returns the value of the first header named key.
func HeaderValue(m kafka.Message, key string) string {
	for _, h := range m.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

// Headers converts a string map into kafka headers.
func Headers(in map[string]string) []kafka.Header {
	if len(in) == 0 {
		return nil
	}
	out := make([]kafka.Header, 0, len(in))
	for k, v := range in {
		out = append(out, kafka.Header{Key: k, Value: []byte(v)})
	}
	return out
}

// UnwrapPayload decodes an envelope payload into T.
func UnwrapPayload[T any](payload json.RawMessage) (T, error) {
	var t T
	if err := json.Unmarshal(payload, &t); err != nil {
		return t, fmt.Errorf("decode payload: %w", err)
	}
	return t, nil
}
