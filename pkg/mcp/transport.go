package mcp

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"sync"
)

// Transport carries raw JSON-RPC payloads between client and server.
type Transport interface {
	Send(ctx context.Context, payload []byte) error
	Receive(ctx context.Context) ([]byte, error)
	Close() error
}

// lineTransport speaks newline-delimited JSON-RPC over a byte stream, the
// framing used by stdio MCP servers. Payloads come from json.Marshal and
// therefore never contain raw newlines.
type lineTransport struct {
	reader      *bufio.Reader
	writer      io.Writer
	readCloser  io.Closer
	writeCloser io.Closer
	writeMu     sync.Mutex
}

func newLineTransport(in io.WriteCloser, out io.ReadCloser) *lineTransport {
	return &lineTransport{
		reader:      bufio.NewReader(out),
		writer:      in,
		readCloser:  out,
		writeCloser: in,
	}
}

func (t *lineTransport) Send(ctx context.Context, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	if _, err := t.writer.Write(payload); err != nil {
		return err
	}
	_, err := t.writer.Write([]byte{'\n'})
	return err
}

func (t *lineTransport) Receive(ctx context.Context) ([]byte, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		line, err := t.reader.ReadBytes('\n')
		if len(line) == 0 && err != nil {
			return nil, err
		}
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			if err != nil {
				return nil, err
			}
			continue
		}
		return line, nil
	}
}

func (t *lineTransport) Close() error {
	var err error
	if t.writeCloser != nil {
		if e := t.writeCloser.Close(); e != nil {
			err = e
		}
	}
	if t.readCloser != nil {
		if e := t.readCloser.Close(); e != nil && err == nil {
			err = e
		}
	}
	return err
}
