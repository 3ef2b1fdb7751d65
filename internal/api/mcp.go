package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kalambet/studyhub/internal/chat"
	"github.com/kalambet/studyhub/internal/model"
)

// MCPSpaces reads chat spaces. Implemented by entity.Spaces.
type MCPSpaces interface {
	Recent() ([]model.Space, error)
	Get(id string) (model.Space, bool, error)
}

// MCPJournals lists journal entries. Implemented by entity.Journals.
type MCPJournals interface {
	List() ([]model.Journal, error)
}

// MCPTasks reads and creates tasks. Implemented by entity.Tasks.
type MCPTasks interface {
	Create(p model.NewTask) (model.Task, error)
	List() ([]model.Task, error)
	Pending() ([]model.Task, error)
}

// MCPProfile reads the learner profile. Implemented by entity.Profile.
type MCPProfile interface {
	Get() (model.UserProfile, bool, error)
}

// MCPSendFunc sends a message as the signed-in user, e.g. workspace.Send.
type MCPSendFunc func(ctx context.Context, spaceID, text string) (*chat.Delivery, error)

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Spaces   MCPSpaces
	Journals MCPJournals
	Tasks    MCPTasks
	Profile  MCPProfile
	Send     MCPSendFunc // optional; if nil, send_message returns an error
}

// NewMCPServer creates an MCP server exposing the study workspace as tools
// and the learner profile as a resource.
func NewMCPServer(deps MCPDeps, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"studyhub",
		version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("studyhub: the learner's chat spaces, journals and tasks."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("list_spaces",
			mcp.WithDescription("List chat spaces, most recently active first."),
		),
		mcpListSpaces(deps),
	)

	s.AddTool(
		mcp.NewTool("read_space",
			mcp.WithDescription("Return the messages of a chat space in the order they were sent."),
			mcp.WithString("space_id", mcp.Description("Space id"), mcp.Required()),
		),
		mcpReadSpace(deps),
	)

	s.AddTool(
		mcp.NewTool("send_message",
			mcp.WithDescription("Send a message to a space as the learner and return the tutor's reply."),
			mcp.WithString("space_id", mcp.Description("Space id"), mcp.Required()),
			mcp.WithString("text", mcp.Description("Message text"), mcp.Required()),
		),
		mcpSendMessage(deps),
	)

	s.AddTool(
		mcp.NewTool("list_journals",
			mcp.WithDescription("List journal entries, most recently edited first."),
		),
		mcpListJournals(deps),
	)

	s.AddTool(
		mcp.NewTool("list_tasks",
			mcp.WithDescription("List tasks."),
			mcp.WithBoolean("pending", mcp.Description("Only tasks that are not done")),
		),
		mcpListTasks(deps),
	)

	s.AddTool(
		mcp.NewTool("add_task",
			mcp.WithDescription("Add a task to the learner's list."),
			mcp.WithString("title", mcp.Description("Task title"), mcp.Required()),
			mcp.WithString("description", mcp.Description("Optional details")),
			mcp.WithString("due", mcp.Description("Optional due date, YYYY-MM-DD or RFC 3339")),
		),
		mcpAddTask(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"user://profile",
			"Learner Profile",
			mcp.WithResourceDescription("Learner profile with derived counts as JSON"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceProfile(deps),
	)

	return s
}

func mcpListSpaces(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		spaces, err := deps.Spaces.Recent()
		if err != nil {
			return mcpError(fmt.Sprintf("listing spaces failed: %v", err)), nil
		}

		type spaceSummary struct {
			ID        string `json:"id"`
			Name      string `json:"name"`
			Messages  int    `json:"messages"`
			UpdatedAt string `json:"updated_at"`
		}
		out := make([]spaceSummary, len(spaces))
		for i, sp := range spaces {
			out[i] = spaceSummary{
				ID:        sp.ID,
				Name:      sp.Name,
				Messages:  len(sp.Messages),
				UpdatedAt: sp.UpdatedAt.Format(time.RFC3339),
			}
		}
		return mcpJSON(out)
	}
}

type mcpMessage struct {
	ID        string `json:"id"`
	Content   string `json:"content"`
	IsAI      bool   `json:"is_ai"`
	Timestamp string `json:"timestamp"`
}

func toMCPMessage(m model.Message) mcpMessage {
	return mcpMessage{ID: m.ID, Content: m.Content, IsAI: m.IsAI, Timestamp: m.Timestamp.Format(time.RFC3339)}
}

func mcpReadSpace(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString("space_id")
		if err != nil {
			return mcpError("space_id is required"), nil
		}
		sp, ok, err := deps.Spaces.Get(id)
		if err != nil {
			return mcpError(fmt.Sprintf("reading space failed: %v", err)), nil
		}
		if !ok {
			return mcpError(fmt.Sprintf("no space with id %s", id)), nil
		}

		msgs := make([]mcpMessage, len(sp.Messages))
		for i, m := range sp.Messages {
			msgs[i] = toMCPMessage(m)
		}
		return mcpJSON(msgs)
	}
}

func mcpSendMessage(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if deps.Send == nil {
			return mcpError("sending not available: no chat pipeline configured"), nil
		}
		id, err := req.RequireString("space_id")
		if err != nil {
			return mcpError("space_id is required"), nil
		}
		text, err := req.RequireString("text")
		if err != nil {
			return mcpError("text is required"), nil
		}

		d, err := deps.Send(ctx, id, text)
		if err != nil {
			if errors.Is(err, model.ErrNoActiveContext) {
				return mcpError(fmt.Sprintf("cannot send: %v; create a space and sign in first", err)), nil
			}
			return mcpError(fmt.Sprintf("send failed: %v", err)), nil
		}
		// The user's message is already stored; a failure below only means
		// the remote write or the reply did not happen.
		if err := d.Wait(ctx); err != nil {
			return mcpError(fmt.Sprintf("message saved locally, delivery stopped at %s: %v", d.State(), err)), nil
		}
		reply, ok := d.Reply()
		if !ok {
			return mcpError("message delivered without a reply"), nil
		}
		return mcpText(reply.Content), nil
	}
}

func mcpListJournals(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		journals, err := deps.Journals.List()
		if err != nil {
			return mcpError(fmt.Sprintf("listing journals failed: %v", err)), nil
		}

		type journalSummary struct {
			ID        string `json:"id"`
			Title     string `json:"title"`
			UpdatedAt string `json:"updated_at"`
		}
		out := make([]journalSummary, len(journals))
		for i, j := range journals {
			out[i] = journalSummary{ID: j.ID, Title: j.Title, UpdatedAt: j.UpdatedAt.Format(time.RFC3339)}
		}
		return mcpJSON(out)
	}
}

type mcpTask struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Completed   bool   `json:"completed"`
	Due         string `json:"due,omitempty"`
}

func toMCPTask(t model.Task) mcpTask {
	out := mcpTask{ID: t.ID, Title: t.Title, Description: t.Description, Completed: t.Completed}
	if t.DueDate != nil {
		out.Due = t.DueDate.Format(time.RFC3339)
	}
	return out
}

func mcpListTasks(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		load := deps.Tasks.List
		if req.GetBool("pending", false) {
			load = deps.Tasks.Pending
		}
		tasks, err := load()
		if err != nil {
			return mcpError(fmt.Sprintf("listing tasks failed: %v", err)), nil
		}
		out := make([]mcpTask, len(tasks))
		for i, t := range tasks {
			out[i] = toMCPTask(t)
		}
		return mcpJSON(out)
	}
}

func mcpAddTask(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		title, err := req.RequireString("title")
		if err != nil {
			return mcpError("title is required"), nil
		}
		p := model.NewTask{Title: title, Description: req.GetString("description", "")}
		if due := req.GetString("due", ""); due != "" {
			t, err := parseDueDate(due)
			if err != nil {
				return mcpError(err.Error()), nil
			}
			p.DueDate = &t
		}

		t, err := deps.Tasks.Create(p)
		if err != nil {
			return mcpError(fmt.Sprintf("adding task failed: %v", err)), nil
		}
		return mcpJSON(toMCPTask(t))
	}
}

func parseDueDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, errors.New("invalid due: use YYYY-MM-DD or RFC 3339")
	}
	return t, nil
}

func mcpResourceProfile(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		p, ok, err := deps.Profile.Get()
		if err != nil {
			return nil, fmt.Errorf("failed to get profile: %w", err)
		}
		if !ok {
			return nil, fmt.Errorf("no profile saved yet")
		}

		type profileView struct {
			ID        string   `json:"id"`
			Name      string   `json:"name"`
			Bio       string   `json:"bio,omitempty"`
			Interests []string `json:"interests"`
			Spaces    int      `json:"spaces_count"`
			Journals  int      `json:"journals_count"`
			Courses   int      `json:"courses_count"`
		}
		b, err := json.Marshal(profileView{
			ID:        p.ID,
			Name:      p.Name,
			Bio:       p.Bio,
			Interests: p.Interests,
			Spaces:    p.Counts.Spaces,
			Journals:  p.Counts.Journals,
			Courses:   p.Counts.Courses,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to marshal profile: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpJSON(v any) (*mcp.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return mcpError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcpText(string(b)), nil
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
