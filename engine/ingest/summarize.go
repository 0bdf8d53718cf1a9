package ingest

import (
	"fmt"
	"strings"

	"github.com/zester4/fixium/engine/domain"
)

// Summarize renders a guide as one plain-text paragraph suitable for
// embedding: device, observed damages, repair shape, parts and tools.
func summarizeGuide(guide domain.RepairGuide) string {
	var b strings.Builder

	b.WriteString(string(guide.DeviceInfo.Category))
	if guide.DeviceInfo.Model != "" {
		fmt.Fprintf(&b, " (%s)", guide.DeviceInfo.Model)
	}
	if guide.DeviceInfo.Condition != "" {
		fmt.Fprintf(&b, ": %s", guide.DeviceInfo.Condition)
	}
	b.WriteString(".")

	if len(guide.Diagnosis.Damages) > 0 {
		names := make([]string, len(guide.Diagnosis.Damages))
		for i, d := range guide.Diagnosis.Damages {
			names[i] = d.Type
		}
		fmt.Fprintf(&b, " Damages: %s.", strings.Join(names, ", "))
	}

	fmt.Fprintf(&b, " Repair: %d steps, %s difficulty, %s repairability.",
		len(guide.Steps), guide.Diagnosis.Difficulty, guide.Diagnosis.Repairability)

	if len(guide.Parts) > 0 {
		names := make([]string, len(guide.Parts))
		for i, p := range guide.Parts {
			names[i] = p.Name
		}
		fmt.Fprintf(&b, " Parts: %s.", strings.Join(names, ", "))
	}
	if len(guide.Tools) > 0 {
		names := make([]string, len(guide.Tools))
		for i, t := range guide.Tools {
			names[i] = t.Name
		}
		fmt.Fprintf(&b, " Tools: %s.", strings.Join(names, ", "))
	}
	return b.String()
}
