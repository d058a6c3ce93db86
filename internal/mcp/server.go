// Package mcp serves the engine's operations to AI assistants over the
// Model Context Protocol: JSON-RPC 2.0, newline-delimited objects, usually
// on stdio.
package mcp

import (
	"context"
	"io"
	"os"
	"sync"
	"time"

	"github.com/sourcegraph/jsonrpc2"
	"go.uber.org/zap"

	"stratum/internal/tools"
	"stratum/pkg/protocol"
)

const (
	defaultToolTimeout = 4 * time.Minute
	defaultMaxOutput   = 64 * 1024
)

type Config struct {
	// ToolTimeout bounds a single tools/call. Zero means the default.
	ToolTimeout time.Duration
	// MaxOutput caps the bytes of tool output returned per call; longer
	// output is truncated at a line boundary. Zero means the default.
	MaxOutput int
}

type Server struct {
	registry  *tools.Registry
	log       *zap.Logger
	timeout   time.Duration
	maxOutput int

	mu     sync.Mutex
	client protocol.Info
}

func NewServer(reg *tools.Registry, cfg Config, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.ToolTimeout <= 0 {
		cfg.ToolTimeout = defaultToolTimeout
	}
	if cfg.MaxOutput <= 0 {
		cfg.MaxOutput = defaultMaxOutput
	}
	return &Server{
		registry:  reg,
		log:       log.Named("mcp"),
		timeout:   cfg.ToolTimeout,
		maxOutput: cfg.MaxOutput,
	}
}

// Serve speaks MCP over rwc until the peer disconnects or ctx ends. Requests
// are handled concurrently so a long tools/call never blocks a ping.
func (s *Server) Serve(ctx context.Context, rwc io.ReadWriteCloser) error {
	stream := jsonrpc2.NewBufferedStream(rwc, lineCodec{})
	conn := jsonrpc2.NewConn(ctx, stream, jsonrpc2.AsyncHandler(s))
	defer conn.Close()

	s.log.Info("serving", zap.Strings("tools", s.registry.Names()))

	select {
	case <-ctx.Done():
		s.log.Info("server stopped")
	case <-conn.DisconnectNotify():
		s.log.Info("client disconnected")
	}
	return nil
}

type stdioPipe struct{}

func (stdioPipe) Read(p []byte) (int, error)  { return os.Stdin.Read(p) }
func (stdioPipe) Write(p []byte) (int, error) { return os.Stdout.Write(p) }

func (stdioPipe) Close() error {
	if err := os.Stdin.Close(); err != nil {
		return err
	}
	return os.Stdout.Close()
}

// Stdio is the transport `stratum mcp` serves on. Stdout carries only
// protocol frames; logging goes to stderr.
func Stdio() io.ReadWriteCloser {
	return stdioPipe{}
}
