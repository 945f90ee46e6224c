package mcp

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/mvp-joe/autodoc/internal/engine"
	"github.com/mvp-joe/autodoc/internal/parsers"
	"github.com/mvp-joe/autodoc/internal/tracking"
)

const (
	defaultPendingLimit = 100
	maxPendingLimit     = 1000
)

// toolDeps is what every handler closes over.
type toolDeps struct {
	tracker   Tracker
	settings  engine.SettingsProvider
	formatFor func(language string) string
	root      string
}

func (d toolDeps) resolve(path string) string {
	if !filepath.IsAbs(path) {
		path = filepath.Join(d.root, path)
	}
	return filepath.Clean(path)
}

func (d toolDeps) relative(path string) string {
	if d.root == "" {
		return path
	}
	if rel, err := filepath.Rel(d.root, path); err == nil {
		return filepath.ToSlash(rel)
	}
	return path
}

// AddPendingTool registers autodoc_pending, which lists functions whose
// accumulated change crossed the threshold.
func AddPendingTool(s *server.MCPServer, d toolDeps) {
	tool := mcp.NewTool(
		"autodoc_pending",
		mcp.WithDescription(`List functions that changed enough since their docstring was last written to need documentation.

Each function carries its tag ("auto", "highlight" or "ignore"), its accumulated change score, and the byte offset where a docstring belongs. Each file carries the docstring format to use.`),
		mcp.WithString("path",
			mcp.Description("Limit results to one file (absolute or relative to the project root)")),
		mcp.WithString("tag",
			mcp.Description("Only return functions with this tag: 'auto', 'highlight' or 'ignore'. By default ignored functions are omitted."),
			mcp.Enum("auto", "highlight", "ignore")),
		mcp.WithBoolean("include_body",
			mcp.Description("Include function bodies and existing docstrings (default: false)")),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of functions to return (1-1000, default: 100)")),
		mcp.WithReadOnlyHintAnnotation(true),
	)

	s.AddTool(tool, createPendingHandler(d))
}

func createPendingHandler(d toolDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		argsMap, errResult := parseToolArguments(request)
		if errResult != nil {
			return errResult, nil
		}

		path, err := parseStringArg(argsMap, "path", false)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		tagFilter, err := parseEnumArg(argsMap, "tag", "auto", "highlight", "ignore")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		includeBody := parseBoolArg(argsMap, "include_body", false)
		limit := parseClampedInt(argsMap, "limit", defaultPendingLimit, 1, maxPendingLimit)

		if path != "" {
			path = d.resolve(path)
		}

		settings := d.settings.Settings()
		resp := PendingResponse{Documents: []PendingDocument{}}

		for _, doc := range d.tracker.Pending() {
			if path != "" && doc.Path != path {
				continue
			}
			if resp.Total >= limit {
				break
			}

			language, _ := parsers.LanguageForPath(doc.Path)
			out := PendingDocument{Path: d.relative(doc.Path), Language: language}
			if d.formatFor != nil && language != "" {
				out.Format = d.formatFor(language)
			}

			for _, fn := range doc.Functions {
				tag := tracking.TagFor(fn.Body+fn.Docstring, settings.Tags, settings.DefaultTagMode)
				if tagFilter == "" && tag == tracking.TagIgnore {
					continue
				}
				if tagFilter != "" && tag.String() != tagFilter {
					continue
				}
				if resp.Total >= limit {
					break
				}
				out.Functions = append(out.Functions, toPendingFunction(fn, tag, includeBody))
				resp.Total++
			}

			if len(out.Functions) > 0 {
				resp.Documents = append(resp.Documents, out)
			}
		}

		return marshalToolResponse(resp)
	}
}

func toPendingFunction(fn tracking.Function, tag tracking.TagMode, includeBody bool) PendingFunction {
	p := PendingFunction{
		ID:              string(fn.ID()),
		Name:            fn.Name,
		Params:          fn.Params,
		Tag:             tag.String(),
		Score:           fn.RecordedChangeScore,
		StartOffset:     fn.StartOffset,
		EndOffset:       fn.EndOffset,
		DocstringOffset: fn.DocstringOffset,
		HasDocstring:    fn.HasDocstring(),
	}
	if includeBody {
		p.Body = fn.Body
		p.Docstring = fn.Docstring
	}
	return p
}

// AddAcknowledgeTool registers autodoc_acknowledge, which clears functions
// from the pending set once their docstrings are written or the change is
// dismissed.
func AddAcknowledgeTool(s *server.MCPServer, d toolDeps) {
	tool := mcp.NewTool(
		"autodoc_acknowledge",
		mcp.WithDescription("Mark functions as documented. Their change scores reset to zero and they leave the pending list until they change again."),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("File containing the functions (absolute or relative to the project root)")),
		mcp.WithArray("function_ids",
			mcp.Description("Function IDs as returned by autodoc_pending")),
		mcp.WithArray("names",
			mcp.Description("Function names; every pending function with a matching name is acknowledged")),
		mcp.WithDestructiveHintAnnotation(false),
	)

	s.AddTool(tool, createAcknowledgeHandler(d))
}

func createAcknowledgeHandler(d toolDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		argsMap, errResult := parseToolArguments(request)
		if errResult != nil {
			return errResult, nil
		}

		path, err := parseStringArg(argsMap, "path", true)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		ids := parseArrayArg(argsMap, "function_ids")
		names := parseArrayArg(argsMap, "names")
		if len(ids) == 0 && len(names) == 0 {
			return mcp.NewToolResultError("function_ids or names is required"), nil
		}

		abs := d.resolve(path)
		docID, ok := d.tracker.Lookup(abs)
		if !ok {
			return mcp.NewToolResultError(fmt.Sprintf("%s is not tracked", path)), nil
		}

		resp := AcknowledgeResponse{Path: d.relative(abs), Acknowledged: []string{}}

		if len(names) > 0 {
			byName := pendingByName(d.tracker.Pending(), docID)
			for _, name := range names {
				matched, ok := byName[name]
				if !ok {
					resp.NotFound = append(resp.NotFound, name)
					continue
				}
				for _, id := range matched {
					ids = append(ids, string(id))
				}
			}
		}

		seen := make(map[string]bool, len(ids))
		for _, id := range ids {
			if seen[id] {
				continue
			}
			seen[id] = true

			removed, err := d.tracker.Acknowledge(docID, tracking.FunctionID(id))
			if err != nil {
				return nil, fmt.Errorf("acknowledge failed: %w", err)
			}
			if removed {
				resp.Acknowledged = append(resp.Acknowledged, id)
			} else {
				resp.NotFound = append(resp.NotFound, id)
			}
		}

		return marshalToolResponse(resp)
	}
}

func pendingByName(pending []engine.DocumentPending, id tracking.DocumentID) map[string][]tracking.FunctionID {
	out := make(map[string][]tracking.FunctionID)
	for _, doc := range pending {
		if doc.DocumentID != id {
			continue
		}
		for i := range doc.Functions {
			fn := &doc.Functions[i]
			out[fn.Name] = append(out[fn.Name], fn.ID())
		}
	}
	return out
}

// AddCoverageTool registers autodoc_coverage.
func AddCoverageTool(s *server.MCPServer, d toolDeps) {
	tool := mcp.NewTool(
		"autodoc_coverage",
		mcp.WithDescription("Report how many tracked functions have docstrings and how many are pending, per file and in total."),
		mcp.WithString("path",
			mcp.Description("Limit the report to one file (absolute or relative to the project root)")),
		mcp.WithReadOnlyHintAnnotation(true),
	)

	s.AddTool(tool, createCoverageHandler(d))
}

func createCoverageHandler(d toolDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		argsMap, errResult := parseToolArguments(request)
		if errResult != nil {
			return errResult, nil
		}
		path, err := parseStringArg(argsMap, "path", false)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if path != "" {
			path = d.resolve(path)
		}

		resp := CoverageResponse{Documents: []CoverageEntry{}}
		for id, docPath := range d.tracker.Documents() {
			if path != "" && docPath != path {
				continue
			}
			stats, err := d.tracker.Coverage(id)
			if err != nil {
				continue
			}
			resp.Documents = append(resp.Documents, CoverageEntry{Path: d.relative(docPath), CoverageStats: stats})
			resp.Total.Functions += stats.Functions
			resp.Total.Documented += stats.Documented
			resp.Total.Pending += stats.Pending
		}

		if path != "" && len(resp.Documents) == 0 {
			return mcp.NewToolResultError(fmt.Sprintf("%s is not tracked", path)), nil
		}

		sort.Slice(resp.Documents, func(i, j int) bool { return resp.Documents[i].Path < resp.Documents[j].Path })
		resp.Total.Percent = 100
		if resp.Total.Functions > 0 {
			resp.Total.Percent = float64(resp.Total.Documented) / float64(resp.Total.Functions) * 100
		}
		return marshalToolResponse(resp)
	}
}
