package ai

import (
	"bufio"
	"bytes"
	"io"
)

// sseReader parses the data lines of a Server-Sent Events stream. Event
// names, ids and comments are ignored; chat completion endpoints only use
// data frames.
type sseReader struct {
	r *bufio.Reader
}

func newSSEReader(r io.Reader) *sseReader {
	return &sseReader{r: bufio.NewReader(r)}
}

// next returns the payload of the next data frame, or io.EOF at end of
// stream.
func (s *sseReader) next() ([]byte, error) {
	for {
		line, err := s.r.ReadBytes('\n')
		if err != nil {
			return nil, err
		}
		line = bytes.TrimRight(line, "\r\n")
		if !bytes.HasPrefix(line, []byte("data:")) {
			continue
		}
		return bytes.TrimSpace(line[len("data:"):]), nil
	}
}

// streamChunk is one decoded frame of an OpenAI-style streaming completion.
type streamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

func (c *streamChunk) content() string {
	if len(c.Choices) > 0 {
		return c.Choices[0].Delta.Content
	}
	return ""
}
