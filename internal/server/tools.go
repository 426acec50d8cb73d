package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

func pathProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Absolute path to the image file",
	}
}

func gateProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "boolean",
		"description": "Only fill holes whose aspect ratio exceeds the elongation ratio. Defaults to the server policy (off unless configured).",
	}
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		{
			Name:        "formula_info",
			Description: "Load an image and return its dimensions, format, number of gray levels, whether it is already two-valued and its ink pixel count.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "formula_holes",
			Description: "List every hole (background region enclosed by ink) of a binarized formula image with its bounding box, area, aspect ratio and whether it would be filled or protected. Does not modify the file.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path":                pathProperty(),
					"use_elongation_gate": gateProperty(),
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "formula_fill",
			Description: "Fill the thin holes left by broken strokes in one image and overwrite it when anything changed. Glyph interiors such as the loops of 0, 6, 8, A and B are protected.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path":                pathProperty(),
					"use_elongation_gate": gateProperty(),
					"dry_run": map[string]interface{}{
						"type":        "boolean",
						"description": "Compute the result without writing the file. Default false",
						"default":     false,
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "formula_batch",
			Description: "Fill thin holes in every matching image of a directory and return one report line per file plus the summary line.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"root": map[string]interface{}{
						"type":        "string",
						"description": "Directory holding the images. Defaults to the configured root",
					},
					"pattern": map[string]interface{}{
						"type":        "string",
						"description": "Regular expression the whole file name must match. Default ^formula_images_\\d+\\.png$",
					},
					"ordering": map[string]interface{}{
						"type":        "string",
						"enum":        []string{"lexical", "numeric"},
						"description": "Processing and report order. Default lexical",
					},
					"concurrency": map[string]interface{}{
						"type":        "integer",
						"description": "Number of files processed at once. Default from configuration",
					},
					"dry_run": map[string]interface{}{
						"type":        "boolean",
						"description": "Compute results without writing files. Default false",
						"default":     false,
					},
				},
			},
		},
		{
			Name:        "formula_overlay",
			Description: "Render the hole decisions of an image as a PNG: filled holes are outlined and tinted, protected holes outlined in a second color, each labelled with its contour index. Returns base64-encoded PNG.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path":                pathProperty(),
					"use_elongation_gate": gateProperty(),
					"labels": map[string]interface{}{
						"type":        "boolean",
						"description": "Draw contour indices next to each box. Default true",
						"default":     true,
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "formula_binarize",
			Description: "Binarize a scanned formula image by keeping pixels with a strong intensity gradient. Returns the result as base64-encoded PNG, or overwrites the file when in_place is set.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
					"in_place": map[string]interface{}{
						"type":        "boolean",
						"description": "Overwrite the source file. Default false",
						"default":     false,
					},
					"edge_threshold": map[string]interface{}{
						"type":        "integer",
						"description": "Normalized gradient magnitude (0-255) above which a pixel becomes ink. Default 30",
						"minimum":     0,
						"maximum":     255,
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "formula_compare",
			Description: "Compare two binarized images of the same size pixel by pixel and report how many pixels differ and how much ink was added or removed.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path_a": pathProperty(),
					"path_b": pathProperty(),
				},
				"required": []string{"path_a", "path_b"},
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
