package mcp

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
)

// lineCodec frames JSON-RPC objects as newline-delimited JSON, the framing
// MCP uses over stdio. json.Marshal escapes embedded newlines, so every
// object occupies exactly one line.
type lineCodec struct{}

func (lineCodec) WriteObject(stream io.Writer, obj interface{}) error {
	data, err := json.Marshal(obj)
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = stream.Write(data)
	return err
}

func (lineCodec) ReadObject(stream *bufio.Reader, v interface{}) error {
	for {
		line, err := stream.ReadBytes('\n')
		if len(bytes.TrimSpace(line)) == 0 {
			// Blank keep-alive lines are skipped; a bare EOF ends the
			// session cleanly.
			if err != nil {
				return err
			}
			continue
		}
		if err != nil && err != io.EOF {
			return err
		}
		return json.Unmarshal(line, v)
	}
}
