package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// Shared argument schemas.
var (
	pathProperty = map[string]interface{}{
		"type":        "string",
		"description": "Absolute path to the label image (PNG, JPEG or GIF)",
	}
	patternProperty = map[string]interface{}{
		"type":        "string",
		"description": "Literal, case-sensitive substring the target line must contain. Default \"1\"",
	}
	yThresholdProperty = map[string]interface{}{
		"type":        "number",
		"description": "Maximum vertical distance in pixels between a word centre and its line anchor. Default 25",
		"minimum":     0,
	}
	anchorProperty = map[string]interface{}{
		"type":        "string",
		"description": "Line membership strategy: \"first\" pins the anchor to the line's first word, \"running-mean\" follows the mean of its words",
		"enum":        []string{"first", "running-mean"},
	}
	detectionsProperty = map[string]interface{}{
		"description": "Recorded OCR output: an array of blocks, each an array of [box, [text, score]], [box, text, score] or {box, text, confidence} entries. Boxes are four [x, y] corners",
		"type":        "array",
	}
)

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Image Information
		{
			Name:        "image_load",
			Description: "Load a label image and return its dimensions and format, and whether it will be upscaled before OCR. Caches the image for subsequent tools.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty,
				},
				"required": []string{"path"},
			},
		},

		// Line Extraction
		{
			Name:        "label_extract_line",
			Description: "Run OCR on a shipping label photo, rebuild its printed lines from word positions and return the line containing the pattern with the highest average confidence. Also returns every reconstructed line and the raw detections.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path":        pathProperty,
					"pattern":     patternProperty,
					"y_threshold": yThresholdProperty,
					"anchor":      anchorProperty,
					"include_crop": map[string]interface{}{
						"type":        "boolean",
						"description": "Include a base64 PNG crop of the matched line",
						"default":     false,
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "label_extract_from_detections",
			Description: "Select the target line from OCR detections produced elsewhere. Skips image processing entirely.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"detections":  detectionsProperty,
					"pattern":     patternProperty,
					"y_threshold": yThresholdProperty,
					"anchor":      anchorProperty,
				},
				"required": []string{"detections"},
			},
		},
		{
			Name:        "label_group_lines",
			Description: "Show how words are grouped into lines: text, anchor Y, average confidence and word count per line. Accepts an image path or recorded detections.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path":        pathProperty,
					"detections":  detectionsProperty,
					"y_threshold": yThresholdProperty,
					"anchor":      anchorProperty,
				},
			},
		},

		// Debug Views
		{
			Name:        "label_preprocess",
			Description: "Return the binarized image handed to the OCR engine as base64 PNG. Useful when recognition misses text.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty,
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "label_annotate_lines",
			Description: "Draw every detected word box on the label, one color per reconstructed line with its index, and return it as base64 PNG. The selected line is drawn thicker.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path":        pathProperty,
					"pattern":     patternProperty,
					"y_threshold": yThresholdProperty,
					"anchor":      anchorProperty,
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "label_ocr_info",
			Description: "Report whether the OCR engine is available, its version and installed languages.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
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
