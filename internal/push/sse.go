package push

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
)

// SSEDialer subscribes to a Server-Sent Events endpoint such as a Mercure hub.
type SSEDialer struct {
	// Client must not set a Timeout; streams stay open indefinitely.
	Client *http.Client
}

func (d SSEDialer) Dial(ctx context.Context, url string, header http.Header) (Stream, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("push: %w", err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	client := d.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("push: dial: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("push: dial: status %d", resp.StatusCode)
	}
	return &sseStream{body: resp.Body, r: bufio.NewReader(resp.Body)}, nil
}

type sseStream struct {
	body io.ReadCloser
	r    *bufio.Reader
	once sync.Once
}

// Next returns the data of the next event. Multi-line data fields are joined
// with newlines; comments and other fields are skipped.
func (s *sseStream) Next() ([]byte, error) {
	var data []byte
	seen := false
	for {
		line, err := s.r.ReadBytes('\n')
		if err != nil {
			if err == io.EOF {
				return nil, io.ErrUnexpectedEOF
			}
			return nil, err
		}
		line = bytes.TrimRight(line, "\r\n")

		if len(line) == 0 {
			if seen {
				return data, nil
			}
			continue
		}
		if line[0] == ':' {
			continue
		}
		field, value, _ := bytes.Cut(line, []byte(":"))
		value = bytes.TrimPrefix(value, []byte(" "))
		if string(field) != "data" {
			continue
		}
		if seen {
			data = append(data, '\n')
		}
		data = append(data, value...)
		seen = true
	}
}

func (s *sseStream) Close() error {
	err := ErrClosed
	s.once.Do(func() { err = s.body.Close() })
	return err
}
