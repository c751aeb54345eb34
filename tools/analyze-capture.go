//go:build ignore

// Analyze-capture decodes a captured relay byte stream.
//
// The input file holds one hex string per line (whitespace ignored),
// each line being a chunk of raw bytes captured from the relay
// connection. All chunks are concatenated and walked frame by frame
// with the production frame reader and decoder, so a capture doubles
// as a regression corpus for the parser.
//
// Usage: go run tools/analyze-capture.go <hex-dump-file>
package main

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/muurk/recync/internal/protocol"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: analyze-capture <hex-dump-file>")
		fmt.Println("Example: analyze-capture captures/relay-20260829.hex")
		os.Exit(1)
	}

	data, err := os.ReadFile(os.Args[1])
	if err != nil {
		fmt.Printf("Error reading file: %v\n", err)
		os.Exit(1)
	}

	var raw []byte
	for i, line := range strings.Split(string(data), "\n") {
		line = strings.Join(strings.Fields(line), "")
		if line == "" {
			continue
		}
		chunk, err := hex.DecodeString(line)
		if err != nil {
			fmt.Printf("Error decoding line %d: %v\n", i+1, err)
			os.Exit(1)
		}
		raw = append(raw, chunk...)
	}

	fmt.Printf("=== Relay Capture Analyzer ===\n")
	fmt.Printf("File: %s\n", os.Args[1])
	fmt.Printf("Bytes: %d\n\n", len(raw))

	typeCounts := make(map[byte]int)
	deviceSeen := make(map[uint32]int)
	frames, decodeFailures := 0, 0

	r := bytes.NewReader(raw)
	for {
		frame, err := protocol.ReadFrame(r)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			fmt.Printf("Stream ends with torn frame: %v\n\n", err)
			break
		}
		frames++
		typeCounts[frame.Type]++

		msg, err := protocol.Decode(frame)
		if err != nil {
			decodeFailures++
			fmt.Printf("#%-4d %-12s DECODE FAILED: %v\n", frames, protocol.TypeString(frame.Type), err)
			continue
		}

		fmt.Printf("#%-4d %s\n", frames, msg)
		if status, ok := msg.(*protocol.StatusUpdate); ok {
			deviceSeen[status.DeviceID]++
		}
	}

	fmt.Printf("\n=== Statistics ===\n")
	fmt.Printf("Frames: %d (decode failures: %d)\n", frames, decodeFailures)
	for t, n := range typeCounts {
		fmt.Printf("  %-12s %d\n", protocol.TypeString(t), n)
	}
	if len(deviceSeen) > 0 {
		fmt.Printf("Devices reporting status:\n")
		for id, n := range deviceSeen {
			fmt.Printf("  %d: %d update(s)\n", id, n)
		}
	}
}
