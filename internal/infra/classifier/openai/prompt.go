package openai

import (
	"fmt"
	"strings"

	domain "github.com/bryanwahyu/acoustic-health/internal/domain/analysis"
	"github.com/bryanwahyu/acoustic-health/internal/infra/classifier/signal"
)

// systemPrompt pins the JSON schema the response is parsed with.
const systemPrompt = `You are a reliability engineer who assesses rotating machinery from acoustic measurements.
You must produce one valid JSON object only (no markdown, no commentary, no code fences).

Requirements:
- health_score is an integer from 0 (failed) to 100 (perfect condition).
- fault_type is a short fault name such as "Bearing Wear", "Shaft Misalignment", "Cavitation",
  "Imbalance", or exactly "No Fault Detected" when the machine sounds healthy.
- confidence is a number from 0 to 100 with one decimal place.
- If measurements are missing, answer conservatively from the machine type and file metadata.

Schema:
{"health_score": 0, "fault_type": "<string>", "confidence": 0.0}`

// userPrompt describes the sample. Extracted features are included when available.
func userPrompt(req domain.ClassifyRequest, f *signal.Features) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Machine type: %s\n", req.Machine)
	fmt.Fprintf(&b, "File: %s (%s, %d bytes)\n", req.Artifact.OriginalName, req.Artifact.ContentType, req.Artifact.Size)
	if f != nil {
		fmt.Fprintf(&b, "Duration: %.2f s\n", f.Seconds)
		fmt.Fprintf(&b, "RMS level: %.4f (full scale = 1)\n", f.RMS)
		fmt.Fprintf(&b, "Peak level: %.4f\n", f.Peak)
		fmt.Fprintf(&b, "Crest factor: %.2f\n", f.CrestFactor)
		fmt.Fprintf(&b, "Clipped sample ratio: %.4f\n", f.ClipRatio)
	} else {
		b.WriteString("No decoded measurements are available for this format.\n")
	}
	b.WriteString("Respond with the JSON object per schema.")
	return b.String()
}
