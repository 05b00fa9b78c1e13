package vision

import (
	"strings"

	jsoniter "github.com/json-iterator/go"

	"library-backend/internal/platform/apperr"
)

// ParseCandidates turns the model's reply text into candidates. The model is
// asked for a bare JSON array but often wraps it in a markdown fence, so the
// fence is stripped first. Entries that are not objects or have no title are
// dropped rather than failing the batch. Valid JSON that is not an array
// counts as zero candidates; only text that is not JSON at all is a
// PARSE_ERROR.
func ParseCandidates(raw string) ([]Candidate, error) {
	text := stripFence(strings.TrimSpace(raw))
	if text == "" {
		return []Candidate{}, nil
	}

	var elems []jsoniter.RawMessage
	if err := json.UnmarshalFromString(text, &elems); err != nil {
		var v any
		if json.UnmarshalFromString(text, &v) == nil {
			return []Candidate{}, nil
		}
		return nil, apperr.ErrParse("image analysis reply is not valid json")
	}

	out := make([]Candidate, 0, len(elems))
	for _, e := range elems {
		var c Candidate
		if err := json.Unmarshal(e, &c); err != nil {
			continue
		}
		if strings.TrimSpace(c.Title) == "" {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func stripFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
