package diagnose

import (
	"fmt"
	"strings"

	"github.com/zester4/fixium/engine/domain"
)

// systemPrompt tells the model exactly what JSON shape to answer with. The
// schema here is the contract ParseAnalysis enforces.
const systemPrompt = `You are an expert repair technician and diagnostic specialist. Analyze the provided images of a damaged device and provide a comprehensive repair diagnosis.

You must respond with valid JSON only, no markdown formatting. The response must match this exact structure:
{
  "diagnosis": {
    "damages": [
      {
        "type": "string - name of the damage",
        "description": "string - detailed description",
        "severity": "minor" | "moderate" | "severe",
        "location": "string - where on the device"
      }
    ],
    "difficulty": "beginner" | "intermediate" | "advanced",
    "estimatedTime": "string - time range like '30-45 min'",
    "confidence": number between 0-100,
    "failurePredictions": ["string - potential issues during repair"],
    "repairability": "high" | "medium" | "low"
  },
  "steps": [
    {
      "id": "step-1",
      "stepNumber": 1,
      "title": "string - short step title",
      "instruction": "string - detailed instruction",
      "detailedNotes": "string - optional additional notes",
      "toolsRequired": ["string - tool names"],
      "warningLevel": "info" | "caution" | "warning" (optional),
      "warningMessage": "string - warning if applicable",
      "estimatedTime": "string - time for this step",
      "imageAnnotations": [
        {
          "id": "ann-1",
          "type": "hotspot",
          "label": "Screw location",
          "x": 50,
          "y": 50,
          "color": "safe"
        }
      ]
    }
  ],
  "parts": [
    {
      "id": "part-1",
      "name": "string - part name",
      "partNumber": "string - optional part number",
      "estimatedCost": { "min": number, "max": number, "currency": "USD" },
      "suppliers": [{ "name": "string", "url": "string" }],
      "difficulty": "beginner" | "intermediate" | "advanced",
      "isRequired": boolean
    }
  ],
  "tools": [
    {
      "id": "tool-1",
      "name": "string - tool name",
      "icon": "string - icon name",
      "isRequired": boolean,
      "substitutes": ["string - alternative tools"]
    }
  ]
}

Be thorough, accurate, and prioritize safety. Include warnings for dangerous steps. Include imageAnnotations (hotspots) for critical locations in the steps.`

// buildUserPrompt names the device and enumerates the supplied photo roles
// in capture order, then appends any enrichment context.
func buildUserPrompt(device domain.DeviceInfo, photos []domain.CapturedPhoto, context []string) string {
	var b strings.Builder
	b.WriteString("Analyze this ")
	b.WriteString(string(device.Category))
	if device.Model != "" {
		fmt.Fprintf(&b, " (%s)", device.Model)
	}
	condition := device.Condition
	if condition == "" {
		condition = "unknown"
	}
	fmt.Fprintf(&b, " which has a reported condition of %q. ", condition)
	b.WriteString("Provide a complete repair diagnosis and step-by-step repair guide. The images show: ")
	for i, p := range photos {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%d) %s view", i+1, p.Role)
	}
	b.WriteString(".")

	for _, c := range context {
		b.WriteString("\n\n")
		b.WriteString(c)
	}
	return b.String()
}
