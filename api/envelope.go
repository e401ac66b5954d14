package api

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
)

// EnvelopeKind tells how a list response was shaped
type EnvelopeKind int

const (
	// Raw list responses are a bare JSON array
	Raw EnvelopeKind = iota
	// Paginated list responses wrap the page in {count, next, previous, results}
	Paginated
)

func (k EnvelopeKind) String() string {
	if k == Paginated {
		return "paginated"
	}
	return "raw"
}

// Envelope is a decoded list response
type Envelope[T any] struct {
	Kind     EnvelopeKind
	Count    int
	Next     string
	Previous string
	Results  []T
}

// DecodeList resolves a list body into an Envelope. An object with a top-level
// "results" key is paginated; an array is raw; anything else is rejected.
func DecodeList[T any](data []byte) (Envelope[T], error) {
	var env Envelope[T]
	if !gjson.ValidBytes(data) {
		return env, fmt.Errorf("[api DecodeList] invalid JSON list payload")
	}

	res := gjson.ParseBytes(data)
	switch {
	case res.IsArray():
		env.Kind = Raw
		if err := json.Unmarshal(data, &env.Results); err != nil {
			return env, fmt.Errorf("[api DecodeList] %w", err)
		}
		env.Count = len(env.Results)

	case res.IsObject() && res.Get("results").Exists():
		env.Kind = Paginated
		if results := res.Get("results"); results.IsArray() {
			if err := json.Unmarshal([]byte(results.Raw), &env.Results); err != nil {
				return env, fmt.Errorf("[api DecodeList] %w", err)
			}
		}
		env.Count = len(env.Results)
		if count := res.Get("count"); count.Exists() {
			env.Count = int(count.Int())
		}
		env.Next = res.Get("next").String()
		env.Previous = res.Get("previous").String()

	default:
		return env, fmt.Errorf("[api DecodeList] unexpected list payload of type %s", res.Type)
	}

	if env.Results == nil {
		env.Results = []T{}
	}
	return env, nil
}
