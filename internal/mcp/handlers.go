package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sourcegraph/jsonrpc2"
	"go.uber.org/zap"

	"stratum/internal/report"
	"stratum/internal/tools"
	"stratum/pkg/protocol"
	"stratum/pkg/version"
)

// Handle dispatches one JSON-RPC request. It runs on the async handler's
// goroutine, so a slow tool call never starves other methods.
func (s *Server) Handle(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	switch req.Method {
	case protocol.MethodInitialize:
		s.handleInitialize(ctx, conn, req)
	case protocol.MethodInitialized:
		s.mu.Lock()
		client := s.client
		s.mu.Unlock()
		s.log.Info("session ready",
			zap.String("client", client.Name),
			zap.String("client_version", client.Version))
	case protocol.MethodPing:
		s.reply(ctx, conn, req, struct{}{})
	case protocol.MethodListTools:
		s.handleListTools(ctx, conn, req)
	case protocol.MethodCallTool:
		s.handleCallTool(ctx, conn, req)
	default:
		if req.Notif {
			s.log.Debug("ignoring notification", zap.String("method", req.Method))
			return
		}
		s.replyError(ctx, conn, req, jsonrpc2.CodeMethodNotFound,
			fmt.Sprintf("Method not found: %s", req.Method))
	}
}

func (s *Server) handleInitialize(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	var params protocol.InitializeParams
	if req.Params != nil {
		if err := json.Unmarshal(*req.Params, &params); err != nil {
			s.replyError(ctx, conn, req, jsonrpc2.CodeInvalidParams,
				fmt.Sprintf("Invalid initialize params: %v", err))
			return
		}
	}

	s.mu.Lock()
	s.client = params.ClientInfo
	s.mu.Unlock()

	negotiated := version.Negotiate(params.ProtocolVersion)
	s.log.Info("initialize",
		zap.String("client", params.ClientInfo.Name),
		zap.String("requested", params.ProtocolVersion),
		zap.String("negotiated", negotiated))

	s.reply(ctx, conn, req, protocol.InitializeResult{
		ProtocolVersion: negotiated,
		Capabilities:    protocol.Capabilities{},
		ServerInfo: protocol.Info{
			Name:    "stratum",
			Version: version.Version,
		},
	})
}

func (s *Server) handleListTools(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	list := s.registry.List()
	out := make([]protocol.Tool, 0, len(list))
	for _, t := range list {
		pt := protocol.Tool{
			Name:        t.Name(),
			Description: t.Description(),
			InputSchema: t.Schema(),
		}
		if at, ok := t.(tools.AnnotatedTool); ok {
			pt.Title = at.Title()
			pt.Annotations = at.Annotations()
		}
		out = append(out, pt)
	}
	s.reply(ctx, conn, req, protocol.ListToolsResult{Tools: out})
}

func (s *Server) handleCallTool(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	var params protocol.CallToolParams
	if req.Params != nil {
		if err := json.Unmarshal(*req.Params, &params); err != nil {
			s.replyError(ctx, conn, req, jsonrpc2.CodeInvalidParams,
				fmt.Sprintf("Invalid tool call params: %v", err))
			return
		}
	}
	if params.Name == "" {
		s.replyError(ctx, conn, req, jsonrpc2.CodeInvalidParams, "Tool name is required")
		return
	}

	start := time.Now()
	result, err := s.registry.ExecuteWithTimeout(ctx, params.Name, params.Arguments, s.timeout)
	if err != nil {
		var terr *tools.ToolError
		if errors.As(err, &terr) {
			s.log.Warn("tool call rejected",
				zap.String("tool", params.Name), zap.Error(err))
			s.replyError(ctx, conn, req, int64(terr.Code), terr.Message)
			return
		}
		// Failures of the tool's own work go back in-band so the
		// assistant can read them and react.
		s.log.Warn("tool failed", zap.String("tool", params.Name), zap.Error(err))
		res := protocol.Text(err.Error())
		res.IsError = true
		s.reply(ctx, conn, req, res)
		return
	}

	text, err := s.renderResult(result)
	if err != nil {
		s.replyError(ctx, conn, req, jsonrpc2.CodeInternalError,
			fmt.Sprintf("Marshal tool result: %v", err))
		return
	}

	s.log.Debug("tool call complete",
		zap.String("tool", params.Name),
		zap.Duration("elapsed", time.Since(start)))
	s.reply(ctx, conn, req, protocol.Text(text))
}

// renderResult turns a tool's return value into the text payload clients
// see. Strings pass through as-is, everything else is pretty-printed JSON.
// Output beyond the budget is cut at a line boundary.
func (s *Server) renderResult(result interface{}) (string, error) {
	text, ok := result.(string)
	if !ok {
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return "", err
		}
		text = string(data)
	}
	text, _ = report.Truncate(text, s.maxOutput)
	return text, nil
}

func (s *Server) reply(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request, result interface{}) {
	if req.Notif {
		return
	}
	if err := conn.Reply(ctx, req.ID, result); err != nil {
		s.log.Warn("reply failed", zap.String("method", req.Method), zap.Error(err))
	}
}

func (s *Server) replyError(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request, code int64, message string) {
	if req.Notif {
		return
	}
	rpcErr := &jsonrpc2.Error{Code: code, Message: message}
	if err := conn.ReplyWithError(ctx, req.ID, rpcErr); err != nil {
		s.log.Warn("error reply failed", zap.String("method", req.Method), zap.Error(err))
	}
}
