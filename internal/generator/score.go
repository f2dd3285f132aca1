package generator

import (
	"encoding/json"
	"strings"

	"github.com/pkg/errors"
	"github.com/xeipuuv/gojsonschema"
)

// ErrMalformedScore is returned when a score payload does not match scoreSchema.
var ErrMalformedScore = errors.New("malformed score payload")

const scoreSchema = `{
	"type": "object",
	"required": ["score"],
	"properties": {
		"score": {"type": "integer", "minimum": 0, "maximum": 10}
	}
}`

var scoreSchemaLoader = gojsonschema.NewStringLoader(scoreSchema)

// ParseScore extracts the integer score from a {"score": n} payload.
// A single surrounding markdown code fence is tolerated.
func ParseScore(content string) (int, error) {
	body := stripFence(content)
	if !json.Valid([]byte(body)) {
		return 0, errors.Wrapf(ErrMalformedScore, "not json: %q", content)
	}

	result, err := gojsonschema.Validate(scoreSchemaLoader, gojsonschema.NewStringLoader(body))
	if err != nil {
		return 0, errors.Wrap(ErrMalformedScore, err.Error())
	}
	if !result.Valid() {
		reasons := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			reasons = append(reasons, e.String())
		}
		return 0, errors.Wrap(ErrMalformedScore, strings.Join(reasons, "; "))
	}

	var payload struct {
		Score float64 `json:"score"`
	}
	if err := json.Unmarshal([]byte(body), &payload); err != nil {
		return 0, errors.Wrap(ErrMalformedScore, err.Error())
	}
	return int(payload.Score), nil
}

func stripFence(content string) string {
	s := strings.TrimSpace(content)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
}
