package stream

import (
	"bytes"
	"encoding/json"
)

var (
	framePrefix = []byte("data: ")
	frameSuffix = []byte("\n\n")

	// HeartbeatFrame is an SSE comment line. Clients ignore it; it exists to
	// detect dead connections and keep intermediaries from timing out.
	HeartbeatFrame = []byte(": ping\n\n")
)

// EncodeFrame serializes event as compact JSON wrapped in a single
// `data: <json>\n\n` frame.
func EncodeFrame(event any) ([]byte, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.Grow(len(framePrefix) + len(payload) + len(frameSuffix))
	buf.Write(framePrefix)
	buf.Write(payload)
	buf.Write(frameSuffix)
	return buf.Bytes(), nil
}
