package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"image"

	"github.com/disintegration/imaging"

	"github.com/2ufkpfb9daxnik/handwritten-formula/internal/batch"
	"github.com/2ufkpfb9daxnik/handwritten-formula/internal/contour"
	"github.com/2ufkpfb9daxnik/handwritten-formula/internal/fill"
	"github.com/2ufkpfb9daxnik/handwritten-formula/internal/holes"
	"github.com/2ufkpfb9daxnik/handwritten-formula/internal/overlay"
	"github.com/2ufkpfb9daxnik/handwritten-formula/internal/preprocess"
	"github.com/2ufkpfb9daxnik/handwritten-formula/internal/raster"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "formula_fill", "formula_holes").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
func (s *Server) handleToolsCall(ctx context.Context, req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	result, err := s.executeTool(ctx, params.Name, params.Arguments)
	if err != nil {
		s.log.Warn("tool failed", "tool", params.Name, "error", err)
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
func (s *Server) executeTool(ctx context.Context, name string, args json.RawMessage) (interface{}, error) {
	switch name {
	case "formula_info":
		return s.handleInfo(args)
	case "formula_holes":
		return s.handleHoles(args)
	case "formula_fill":
		return s.handleFill(args)
	case "formula_batch":
		return s.handleBatch(ctx, args)
	case "formula_overlay":
		return s.handleOverlay(args)
	case "formula_binarize":
		return s.handleBinarize(args)
	case "formula_compare":
		return s.handleCompare(args)
	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// On marshal failure it returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

func decodeArgs(args json.RawMessage, v interface{}) error {
	if len(args) == 0 {
		args = []byte("{}")
	}
	if err := json.Unmarshal(args, v); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}

type pathArgs struct {
	Path string `json:"path"`
}

type policyArgs struct {
	Path              string `json:"path"`
	UseElongationGate *bool  `json:"use_elongation_gate,omitempty"`
}

func (a policyArgs) policy(base holes.Policy) holes.Policy {
	if a.UseElongationGate != nil {
		base.UseElongationGate = *a.UseElongationGate
	}
	return base
}

// loadRaster decodes path through the cache.
func (s *Server) loadRaster(path string) (*raster.Raster, error) {
	if path == "" {
		return nil, errors.New("path is required")
	}
	img, err := s.cache.Load(path)
	if err != nil {
		return nil, err
	}
	r, _ := raster.FromImage(img)
	return r, nil
}

// loadForWrite decodes path from disk, bypassing the cache. Tools that
// overwrite a file must start from its current content.
func (s *Server) loadForWrite(path string) (image.Image, error) {
	if path == "" {
		return nil, errors.New("path is required")
	}
	s.cache.Evict(path)
	return raster.LoadImage(path)
}

func (s *Server) handleInfo(args json.RawMessage) (interface{}, error) {
	var a pathArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	return raster.LoadInfo(s.cache, a.Path)
}

// HolesResult lists the decision for every hole of an image.
type HolesResult struct {
	Width     int              `json:"width"`
	Height    int              `json:"height"`
	Contours  int              `json:"contours"`
	Filled    int              `json:"filled"`
	Protected int              `json:"protected"`
	Decisions []holes.Decision `json:"decisions"`
}

func (s *Server) handleHoles(args json.RawMessage) (interface{}, error) {
	var a policyArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	r, err := s.loadRaster(a.Path)
	if err != nil {
		return nil, err
	}

	res := &HolesResult{Width: r.Width, Height: r.Height, Decisions: []holes.Decision{}}
	set, err := contour.Extract(r)
	if errors.Is(err, contour.ErrEmpty) {
		return res, nil
	}
	if err != nil {
		return nil, err
	}
	res.Contours = set.Len()
	res.Decisions = holes.Analyze(set, a.policy(s.cfg.Policy))
	res.Filled, res.Protected = holes.Count(res.Decisions)
	return res, nil
}

type fillArgs struct {
	policyArgs
	DryRun bool `json:"dry_run"`
}

// FillResult reports the outcome of formula_fill.
type FillResult struct {
	Path      string `json:"path"`
	Filled    int    `json:"filled"`
	Protected int    `json:"protected"`
	Changed   bool   `json:"changed"`
	Written   bool   `json:"written"`
	InkAdded  int    `json:"ink_added"`
}

func (s *Server) handleFill(args json.RawMessage) (interface{}, error) {
	var a fillArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	img, err := s.loadForWrite(a.Path)
	if err != nil {
		return nil, err
	}
	r, _ := raster.FromImage(img)
	out, err := fill.Process(r, a.policy(s.cfg.Policy))
	if err != nil {
		return nil, err
	}

	res := &FillResult{
		Path:      a.Path,
		Filled:    out.Filled,
		Protected: out.Skipped,
		Changed:   out.Changed,
		InkAdded:  out.Diff.InkAdded,
	}
	if out.Changed && !a.DryRun {
		if err := raster.Save(a.Path, out.Result); err != nil {
			return nil, fmt.Errorf("%w: %w", batch.ErrWrite, err)
		}
		s.cache.Evict(a.Path)
		res.Written = true
	}
	return res, nil
}

type batchArgs struct {
	Root        string `json:"root"`
	Pattern     string `json:"pattern"`
	Ordering    string `json:"ordering"`
	Concurrency int    `json:"concurrency"`
	DryRun      bool   `json:"dry_run"`
}

// BatchResult is the summary of formula_batch with its report lines.
type BatchResult struct {
	*batch.Summary
	Report []string `json:"report"`
}

func (s *Server) handleBatch(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a batchArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	opts := s.cfg.RunnerOptions()
	if a.Root != "" {
		opts.Root = a.Root
	}
	if a.Pattern != "" {
		opts.Pattern = a.Pattern
	}
	if a.Ordering != "" {
		opts.Ordering = batch.Ordering(a.Ordering)
	}
	if a.Concurrency > 0 {
		opts.Concurrency = a.Concurrency
	}
	opts.DryRun = opts.DryRun || a.DryRun
	opts.Logger = s.log

	runner, err := batch.NewRunner(opts)
	if err != nil {
		return nil, err
	}
	summary, err := runner.Run(ctx)
	if err != nil {
		return nil, err
	}
	// Files may have been rewritten.
	s.cache.Clear()

	report := make([]string, 0, len(summary.Files)+1)
	for _, f := range summary.Files {
		report = append(report, f.Line())
	}
	report = append(report, summary.Footer())
	return &BatchResult{Summary: summary, Report: report}, nil
}

type overlayArgs struct {
	policyArgs
	Labels *bool `json:"labels,omitempty"`
}

func (s *Server) handleOverlay(args json.RawMessage) (interface{}, error) {
	var a overlayArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	r, err := s.loadRaster(a.Path)
	if err != nil {
		return nil, err
	}
	out, err := fill.Process(r, a.policy(s.cfg.Policy))
	if err != nil {
		return nil, err
	}
	o := s.cfg.Overlay
	if a.Labels != nil {
		o.Labels = *a.Labels
	}
	return overlay.Encode(r, out, o)
}

type binarizeArgs struct {
	Path          string `json:"path"`
	InPlace       bool   `json:"in_place"`
	EdgeThreshold *int   `json:"edge_threshold,omitempty"`
}

// BinarizeResult reports the outcome of formula_binarize. The image is
// returned inline unless it was written in place.
type BinarizeResult struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	InkPixels   int    `json:"ink_pixels"`
	Written     bool   `json:"written"`
	ImageBase64 string `json:"image_base64,omitempty"`
	MimeType    string `json:"mime_type,omitempty"`
}

func (s *Server) handleBinarize(args json.RawMessage) (interface{}, error) {
	var a binarizeArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	o := s.cfg.Binarize
	if a.EdgeThreshold != nil {
		o.EdgeThreshold = *a.EdgeThreshold
	}
	if err := o.Validate(); err != nil {
		return nil, err
	}

	load := s.cache.Load
	if a.InPlace {
		load = s.loadForWrite
	}
	if a.Path == "" {
		return nil, errors.New("path is required")
	}
	img, err := load(a.Path)
	if err != nil {
		return nil, err
	}
	r := preprocess.Binarize(img, o)
	res := &BinarizeResult{Width: r.Width, Height: r.Height, InkPixels: r.InkCount()}

	if a.InPlace {
		if err := raster.Save(a.Path, r); err != nil {
			return nil, fmt.Errorf("%w: %w", batch.ErrWrite, err)
		}
		s.cache.Evict(a.Path)
		res.Written = true
		return res, nil
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, r.ToImage(), imaging.PNG); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	res.ImageBase64 = base64.StdEncoding.EncodeToString(buf.Bytes())
	res.MimeType = "image/png"
	return res, nil
}

type compareArgs struct {
	PathA string `json:"path_a"`
	PathB string `json:"path_b"`
}

func (s *Server) handleCompare(args json.RawMessage) (interface{}, error) {
	var a compareArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	ra, err := s.loadRaster(a.PathA)
	if err != nil {
		return nil, err
	}
	rb, err := s.loadRaster(a.PathB)
	if err != nil {
		return nil, err
	}
	return raster.Diff(ra, rb)
}
