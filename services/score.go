package services

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Candidate fields probed on every object level, in priority order. The
// provider has shipped all of these across its API versions; first field
// that normalizes wins.
var scoreKeys = []string{"ai_probability", "aiProbability", "ai_score", "score"}

// Fields carrying the complementary probability: normalized then inverted.
var inverseScoreKeys = []string{"human_probability", "humanProbability"}

// Wrapper keys the provider's RPC-style responses nest results under. The
// search recurses only through these, never through arbitrary keys.
var wrapperKeys = []string{"data", "result", "output", "content"}

// maxWrapperDepth bounds the nested-container search so cyclic or
// pathologically deep input always terminates.
const maxWrapperDepth = 4

// NormalizeScalar converts a loosely-typed score value into a probability
// in [0,1]. Strings may carry a trailing "%" and surrounding whitespace.
// Values in [0,1] pass through unchanged — an input of exactly 1 is read
// as the fraction 1.0, never as 1%. Values in (1,100] are read as
// percentages and divided by 100. Anything else (non-numeric, NaN, ±Inf,
// negative, >100) is absent.
func NormalizeScalar(v any) (float64, bool) {
	var f float64
	switch x := v.(type) {
	case nil:
		return 0, false
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int64:
		f = float64(x)
	case json.Number:
		parsed, err := x.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		s := strings.TrimSpace(x)
		s = strings.TrimSuffix(s, "%")
		s = strings.TrimSpace(s)
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	switch {
	case f >= 0 && f <= 1:
		return f, true
	case f > 1 && f <= 100:
		return f / 100, true
	}
	// Out-of-range values are absent, not clamped: clamping would
	// fabricate confidence the provider never reported.
	return 0, false
}

// ExtractAIScore probes a raw provider response for an AI-likelihood
// probability. It tries the direct score fields, then the complementary
// human-probability fields (inverted), then repeats the same search inside
// the known wrapper containers. Returns false when nothing anywhere in the
// structure normalizes.
func ExtractAIScore(response any) (float64, bool) {
	return extractScore(response, maxWrapperDepth)
}

func extractScore(node any, depth int) (float64, bool) {
	if depth < 0 {
		return 0, false
	}
	obj, ok := node.(map[string]any)
	if !ok {
		return 0, false
	}
	for _, key := range scoreKeys {
		if v, present := obj[key]; present {
			if score, valid := NormalizeScalar(v); valid {
				return score, true
			}
		}
	}
	for _, key := range inverseScoreKeys {
		if v, present := obj[key]; present {
			if score, valid := NormalizeScalar(v); valid {
				return 1 - score, true
			}
		}
	}
	for _, key := range wrapperKeys {
		child, present := obj[key]
		if !present {
			continue
		}
		// RPC-style responses sometimes wrap content blocks in a list.
		if list, isList := child.([]any); isList {
			for _, elem := range list {
				if score, valid := extractScore(elem, depth-1); valid {
					return score, true
				}
			}
			continue
		}
		if score, valid := extractScore(child, depth-1); valid {
			return score, true
		}
	}
	return 0, false
}
