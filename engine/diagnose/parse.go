package diagnose

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/zester4/fixium/engine/domain"
)

// Models regularly wrap the JSON in a markdown code fence despite being told
// not to.
var fencePattern = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")

// ParseAnalysis extracts the structured analysis from raw model output. The
// text may be wrapped in a ```json fence. Anything that fails JSON parsing
// or the structural validation gate comes back as a *ParseError carrying the
// raw text, never as a partial object.
func ParseAnalysis(text string) (domain.Analysis, error) {
	payload := strings.TrimSpace(text)
	if m := fencePattern.FindStringSubmatch(payload); m != nil {
		payload = strings.TrimSpace(m[1])
	}

	var a domain.Analysis
	if err := json.Unmarshal([]byte(payload), &a); err != nil {
		return domain.Analysis{}, &ParseError{Raw: text, Wrapped: err}
	}
	if err := domain.ValidateAnalysis(a); err != nil {
		return domain.Analysis{}, &ParseError{Raw: text, Wrapped: err}
	}
	return a, nil
}
