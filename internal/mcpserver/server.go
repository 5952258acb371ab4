// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes one user's board to LLM clients via stdio transport.
package mcpserver

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/shopspring/decimal"

	"github.com/starford/corkboard/internal/ai"
	"github.com/starford/corkboard/internal/apperr"
	"github.com/starford/corkboard/internal/board"
	"github.com/starford/corkboard/internal/render"
	"github.com/starford/corkboard/internal/session"
)

const itemFormatURI = "corkboard://item-format"

// Server wraps the MCP server with board tools.
type Server struct {
	mcp      *server.MCPServer
	sess     *session.Session
	analyzer *ai.Analyzer
}

// New creates a new MCP server acting on sess. analyzer may be nil.
func New(sess *session.Session, analyzer *ai.Analyzer) *Server {
	if analyzer == nil {
		analyzer = ai.New(nil, nil)
	}
	s := &Server{sess: sess, analyzer: analyzer}

	s.mcp = server.NewMCPServer(
		"Corkboard",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_items",
		mcp.WithDescription("List every item on the board in collection order as JSON. "+
			"See the "+itemFormatURI+" resource for the item shape."),
	), s.listItems)

	s.mcp.AddTool(mcp.NewTool("paint_order",
		mcp.WithDescription("List item ids in drawing order, back to front. Groups come first."),
	), s.paintOrder)

	s.mcp.AddTool(mcp.NewTool("create_item",
		mcp.WithDescription("Create an item with default size and content. Without x/y it is "+
			"centred in the viewport; otherwise centred on the world point (x, y)."),
		mcp.WithString("type", mcp.Required(), mcp.Description("Item type"),
			mcp.Enum(string(board.TypeNote), string(board.TypeTask), string(board.TypeGroup), string(board.TypeExpenseWidget))),
		mcp.WithNumber("x", mcp.Description("World x of the item centre")),
		mcp.WithNumber("y", mcp.Description("World y of the item centre")),
	), s.createItem)

	s.mcp.AddTool(mcp.NewTool("update_item",
		mcp.WithDescription("Merge fields into an item. The type cannot change, and fields that "+
			"do not belong to the item's type are rejected."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Item id")),
		mcp.WithObject("fields", mcp.Required(), mcp.Description("Partial item, e.g. {\"title\":\"Ship\",\"priority\":\"High\"}")),
	), s.updateItem)

	s.mcp.AddTool(mcp.NewTool("delete_item",
		mcp.WithDescription("Delete an item. Deleting a group releases its members."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Item id")),
	), s.deleteItem)

	s.mcp.AddTool(mcp.NewTool("move_item",
		mcp.WithDescription("Drag an item by a world-space delta. The item comes to the front, "+
			"a group carries its members, and a dropped item joins the group under its centre."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Item id")),
		mcp.WithNumber("dx", mcp.Required(), mcp.Description("World x delta")),
		mcp.WithNumber("dy", mcp.Required(), mcp.Description("World y delta")),
	), s.moveItem)

	s.mcp.AddTool(mcp.NewTool("add_expense",
		mcp.WithDescription("Add an expense to an expense widget. It is dated today."),
		mcp.WithString("widget_id", mcp.Required(), mcp.Description("Expense widget id")),
		mcp.WithString("description", mcp.Required(), mcp.Description("What was bought")),
		mcp.WithString("amount", mcp.Required(), mcp.Description("Non-negative decimal amount, e.g. \"12.50\"")),
		mcp.WithString("category", mcp.Description("Category (default General)")),
	), s.addExpense)

	s.mcp.AddTool(mcp.NewTool("analyze_workspace",
		mcp.WithDescription("Ask the AI model for a short HTML summary of the board."),
	), s.analyzeWorkspace)

	s.mcp.AddTool(mcp.NewTool("suggest_task",
		mcp.WithDescription("Ask the AI model to turn a note's text into a task suggestion and "+
			"append the suggestion to the note."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Note id")),
	), s.suggestTask)

	s.mcp.AddTool(mcp.NewTool("export_png",
		mcp.WithDescription("Render the board as a PNG image."),
	), s.exportPNG)

	s.mcp.AddResource(
		mcp.NewResource(itemFormatURI, "Board Item Format",
			mcp.WithResourceDescription("JSON shape of board items and the rules the board enforces."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readItemFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func errResult(err error) (*mcp.CallToolResult, error) {
	if errors.Is(err, apperr.ErrNotFound) {
		return mcp.NewToolResultError("not found: " + err.Error()), nil
	}
	return mcp.NewToolResultError(err.Error()), nil
}

func (s *Server) listItems(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.sess.Items())
}

func (s *Server) paintOrder(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	items := s.sess.PaintOrder()
	ids := make([]string, len(items))
	for i, it := range items {
		ids[i] = it.ID
	}
	return mcp.NewToolResultText(strings.Join(ids, "\n")), nil
}

func (s *Server) createItem(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	t, err := req.RequireString("type")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	args := req.GetArguments()
	_, hasX := args["x"]
	_, hasY := args["y"]

	var it board.Item
	if hasX && hasY {
		it, err = s.sess.CreateAt(board.ItemType(t), board.Position{X: req.GetFloat("x", 0), Y: req.GetFloat("y", 0)})
	} else {
		it, err = s.sess.Create(board.ItemType(t))
	}
	if err != nil {
		return errResult(err)
	}
	return jsonResult(it)
}

func (s *Server) updateItem(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	p, err := decodePatch(req.GetArguments()["fields"])
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.sess.Update(id, p); err != nil {
		return errResult(err)
	}
	it, _ := s.sess.Item(id)
	return jsonResult(it)
}

// decodePatch accepts the fields argument as an object or as a JSON string.
func decodePatch(v any) (board.Patch, error) {
	var raw []byte
	switch f := v.(type) {
	case nil:
		return board.Patch{}, fmt.Errorf("fields is required")
	case string:
		raw = []byte(f)
	default:
		var err error
		if raw, err = json.Marshal(f); err != nil {
			return board.Patch{}, err
		}
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	var p board.Patch
	if err := dec.Decode(&p); err != nil {
		return board.Patch{}, fmt.Errorf("invalid fields: %w", err)
	}
	return p, nil
}

func (s *Server) deleteItem(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.sess.Delete(id); err != nil {
		return errResult(err)
	}
	return mcp.NewToolResultText("deleted: " + id), nil
}

func (s *Server) moveItem(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	dx, err := req.RequireFloat("dx")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	dy, err := req.RequireFloat("dy")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.sess.Drag(id, dx, dy); err != nil {
		return errResult(err)
	}
	it, _ := s.sess.Item(id)
	return jsonResult(it)
}

func (s *Server) addExpense(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	widgetID, err := req.RequireString("widget_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	desc, err := req.RequireString("description")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	rawAmount, err := req.RequireString("amount")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	amount, err := decimal.NewFromString(rawAmount)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid amount %q", rawAmount)), nil
	}
	e, err := s.sess.AddExpense(widgetID, desc, amount, req.GetString("category", ""))
	if err != nil {
		return errResult(err)
	}
	return jsonResult(e)
}

func (s *Server) analyzeWorkspace(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(s.analyzer.Analyze(ctx, s.sess.Items(), s.sess.Expenses())), nil
}

func (s *Server) suggestTask(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	it, ok := s.sess.Item(id)
	if !ok {
		return mcp.NewToolResultError("not found: " + id), nil
	}
	note, ok := it.Body.(board.Note)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("%s is a %s, not a note", id, it.Type())), nil
	}
	sug, ok := s.analyzer.Classify(ctx, note.Content)
	if !ok {
		return mcp.NewToolResultText("no suggestion"), nil
	}
	content := ai.ApplySuggestion(note.Content, sug)
	if err := s.sess.Update(id, board.Patch{Content: &content}); err != nil {
		return errResult(err)
	}
	return jsonResult(sug)
}

func (s *Server) exportPNG(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var buf bytes.Buffer
	if err := render.PNG(&buf, s.sess.Items()); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	data := base64.StdEncoding.EncodeToString(buf.Bytes())
	return mcp.NewToolResultImage("board snapshot", data, "image/png"), nil
}

func (s *Server) readItemFormatResource(context.Context, mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      itemFormatURI,
			MIMEType: "text/markdown",
			Text:     ItemFormatContract,
		},
	}, nil
}
