// Package mcpadapter exposes job status and brief chat as Model Context
// Protocol tools.
package mcpadapter

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kirillkom/brief-service/internal/core/domain"
	"github.com/kirillkom/brief-service/internal/core/ports"
)

const (
	toolJobStatus = "get_job_status"
	toolAskBrief  = "ask_about_brief"
)

type Server struct {
	jobs ports.JobReader
	chat ports.BriefChatter
	mcp  *server.MCPServer
}

func NewServer(version string, jobs ports.JobReader, chat ports.BriefChatter) *Server {
	s := &Server{jobs: jobs, chat: chat}
	s.mcp = server.NewMCPServer(
		"brief-service",
		version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
		server.WithInstructions("Look up brief generation jobs and ask questions answered only from a generated brief."),
	)

	s.mcp.AddTool(mcp.NewTool(toolJobStatus,
		mcp.WithDescription("Return the status of a brief generation job and the brief once it is done."),
		mcp.WithTitleAnnotation("Job status"),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("jobId", mcp.Required(), mcp.Description("Job id returned by the upload endpoint.")),
	), s.handleJobStatus)

	s.mcp.AddTool(mcp.NewTool(toolAskBrief,
		mcp.WithDescription("Answer a question using only the content of a brief. Pass the brief text or the id of a finished job."),
		mcp.WithTitleAnnotation("Ask about brief"),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("userMessage", mcp.Required(), mcp.Description("The question to answer.")),
		mcp.WithString("brief", mcp.Description("Brief text. Takes precedence over briefId.")),
		mcp.WithString("briefId", mcp.Description("Id of a job whose brief should be used.")),
	), s.handleAskBrief)

	return s
}

// Listen serves JSON-RPC over the given streams until ctx is cancelled.
func (s *Server) Listen(ctx context.Context, in io.Reader, out io.Writer) error {
	stdio := server.NewStdioServer(s.mcp)
	stdio.SetErrorLogger(slog.NewLogLogger(slog.Default().Handler(), slog.LevelError))
	return stdio.Listen(ctx, in, out)
}

type jobStatus struct {
	ID        string    `json:"id"`
	Filename  string    `json:"filename"`
	Status    string    `json:"status"`
	Brief     *string   `json:"brief"`
	Error     *string   `json:"error"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (s *Server) handleJobStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	jobID, err := req.RequireString("jobId")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		slog.Warn("mcp_tool_failed", "tool", toolJobStatus, "job_id", jobID, "error", err)
		return mcp.NewToolResultErrorFromErr("get job status", err), nil
	}

	status := jobStatus{
		ID:        job.ID,
		Filename:  job.Filename,
		Status:    string(job.Status),
		UpdatedAt: job.UpdatedAt,
	}
	if job.Brief != "" {
		status.Brief = &job.Brief
	}
	if job.Error != "" {
		status.Error = &job.Error
	}
	return mcp.NewToolResultJSON(status)
}

func (s *Server) handleAskBrief(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	question, err := req.RequireString("userMessage")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	answer, err := s.chat.Ask(ctx, domain.ChatRequest{
		Brief:       req.GetString("brief", ""),
		BriefID:     req.GetString("briefId", ""),
		UserMessage: question,
	})
	if err != nil {
		slog.Warn("mcp_tool_failed", "tool", toolAskBrief, "error", err)
		return mcp.NewToolResultErrorFromErr("ask about brief", err), nil
	}
	return mcp.NewToolResultText(answer.Answer), nil
}
