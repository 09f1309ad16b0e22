// Package server runs the MCP JSON-RPC loop over stdio.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/phuslu/log"

	"github.com/golovatskygroup/atlassian-lens/pkg/mcp"
)

const protocolVersion = "2024-11-05"

// ToolHandler serves tools/list and tools/call.
type ToolHandler interface {
	BuiltinTools() []mcp.Tool
	Handle(ctx context.Context, name string, args json.RawMessage) (*mcp.CallToolResult, error)
}

// Server is the MCP server. tools/call requests run concurrently, each with
// its own context that notifications/cancelled can cancel.
type Server struct {
	transport *mcp.Transport
	handler   ToolHandler
	info      mcp.ServerInfo
	logger    *log.Logger

	mu       sync.Mutex
	inflight map[string]context.CancelFunc
	wg       sync.WaitGroup
}

// New creates a server reading requests from in and writing responses to out.
func New(in io.Reader, out io.Writer, handler ToolHandler, info mcp.ServerInfo) *Server {
	return &Server{
		transport: mcp.NewTransport(in, out),
		handler:   handler,
		info:      info,
		logger:    &log.DefaultLogger,
		inflight:  make(map[string]context.CancelFunc),
	}
}

func (s *Server) SetLogger(l *log.Logger) {
	if l != nil {
		s.logger = l
	}
}

type readResult struct {
	req *mcp.Request
	err error
}

// Run serves until the input ends or ctx is done. In-flight tool calls are
// drained before it returns.
func (s *Server) Run(ctx context.Context) error {
	ctx, cancelAll := context.WithCancel(ctx)
	defer func() {
		cancelAll()
		s.wg.Wait()
	}()

	msgs := make(chan readResult)
	go func() {
		for {
			req, err := s.transport.ReadMessage()
			select {
			case msgs <- readResult{req, err}:
			case <-ctx.Done():
				return
			}
			if err != nil && !errors.Is(err, mcp.ErrInvalidMessage) {
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("shutting down")
			return nil
		case m := <-msgs:
			if m.err != nil {
				if errors.Is(m.err, io.EOF) {
					s.wg.Wait()
					return nil
				}
				if errors.Is(m.err, mcp.ErrInvalidMessage) {
					s.logger.Warn().Err(m.err).Msg("dropping message")
					s.write(mcp.NewErrorResponse(nil, mcp.ParseError, m.err.Error()))
					continue
				}
				return fmt.Errorf("read message: %w", m.err)
			}
			s.dispatch(ctx, m.req)
		}
	}
}

func (s *Server) dispatch(ctx context.Context, req *mcp.Request) {
	if req.JSONRPC != "2.0" || req.Method == "" {
		s.logger.Warn().Str("jsonrpc", req.JSONRPC).Str("method", req.Method).Msg("invalid request")
		if !req.IsNotification() {
			s.write(mcp.NewErrorResponse(req.ID, mcp.InvalidRequest, `Invalid request: expected jsonrpc "2.0" and a method`))
		}
		return
	}
	switch req.Method {
	case "initialize":
		s.write(s.handleInitialize(req))
	case "notifications/initialized":
		s.logger.Debug().Msg("client initialized")
	case "notifications/cancelled":
		s.handleCancelled(req)
	case "tools/list":
		s.write(s.handleListTools(req))
	case "tools/call":
		s.startCallTool(ctx, req)
	case "ping":
		s.write(s.handlePing(req))
	default:
		if req.IsNotification() {
			s.logger.Debug().Str("method", req.Method).Msg("ignoring notification")
			return
		}
		s.write(mcp.NewErrorResponse(req.ID, mcp.MethodNotFound, fmt.Sprintf("Method not found: %s", req.Method)))
	}
}

func (s *Server) write(resp *mcp.Response) {
	if resp == nil {
		return
	}
	if err := s.transport.WriteResponse(resp); err != nil {
		s.logger.Error().Err(err).Msg("error writing response")
	}
}

func (s *Server) handleInitialize(req *mcp.Request) *mcp.Response {
	result := mcp.InitializeResult{
		ProtocolVersion: protocolVersion,
		Capabilities: mcp.ServerCapabilities{
			Tools: &mcp.ToolsCapability{},
		},
		ServerInfo:   s.info,
		Instructions: s.buildInstructions(),
	}
	resp, err := mcp.NewResponse(req.ID, result)
	if err != nil {
		return mcp.NewErrorResponse(req.ID, mcp.InternalError, err.Error())
	}
	return resp
}

func (s *Server) handleListTools(req *mcp.Request) *mcp.Response {
	resp, err := mcp.NewResponse(req.ID, mcp.ListToolsResult{Tools: s.handler.BuiltinTools()})
	if err != nil {
		return mcp.NewErrorResponse(req.ID, mcp.InternalError, err.Error())
	}
	return resp
}

func (s *Server) handlePing(req *mcp.Request) *mcp.Response {
	resp, _ := mcp.NewResponse(req.ID, map[string]any{})
	return resp
}

func requestKey(id json.RawMessage) string {
	return string(bytes.TrimSpace(id))
}

// startCallTool runs the call in its own goroutine. A call cancelled by the
// client gets no response.
func (s *Server) startCallTool(ctx context.Context, req *mcp.Request) {
	callCtx, cancel := context.WithCancel(ctx)
	key := requestKey(req.ID)
	if !req.IsNotification() {
		s.mu.Lock()
		s.inflight[key] = cancel
		s.mu.Unlock()
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			s.mu.Lock()
			delete(s.inflight, key)
			s.mu.Unlock()
			cancel()
		}()

		resp := s.handleCallTool(callCtx, req)
		if req.IsNotification() {
			return
		}
		if callCtx.Err() != nil {
			s.logger.Info().Str("request", key).Msg("tool call cancelled; response dropped")
			return
		}
		s.write(resp)
	}()
}

func (s *Server) handleCallTool(ctx context.Context, req *mcp.Request) *mcp.Response {
	var params mcp.CallToolParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return mcp.NewErrorResponse(req.ID, mcp.InvalidParams, "Invalid params: "+err.Error())
	}

	result, err := s.handler.Handle(ctx, params.Name, params.Arguments)
	if err != nil {
		return mcp.NewErrorResponse(req.ID, mcp.InvalidParams, err.Error())
	}
	resp, err := mcp.NewResponse(req.ID, result)
	if err != nil {
		return mcp.NewErrorResponse(req.ID, mcp.InternalError, err.Error())
	}
	return resp
}

func (s *Server) handleCancelled(req *mcp.Request) {
	var params mcp.CancelledParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		s.logger.Warn().Err(err).Msg("invalid cancellation")
		return
	}
	key := requestKey(params.RequestID)
	s.mu.Lock()
	cancel, ok := s.inflight[key]
	s.mu.Unlock()
	if !ok {
		return
	}
	s.logger.Info().Str("request", key).Str("reason", params.Reason).Msg("cancelling tool call")
	cancel()
}

func (s *Server) buildInstructions() string {
	var sb strings.Builder
	sb.WriteString("Jira and Confluence search for the current Atlassian site.\n\n")
	sb.WriteString("Tools:\n")
	for _, t := range s.handler.BuiltinTools() {
		fmt.Fprintf(&sb, "- %s\n", t.Name)
	}
	sb.WriteString("\nPass several short keywords; each is searched separately and results are merged.\n")
	return sb.String()
}
