package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/couchcryptid/dxcluster-spot-etl/internal/domain"
)

const (
	outcomeSpot         = "spot"
	outcomeUnrecognized = "unrecognized"
	outcomeMalformed    = "malformed_field"
)

type result struct {
	Seq      int             `json:"seq,omitempty"`
	Line     string          `json:"line"`
	Outcome  string          `json:"outcome"`
	Category domain.Category `json:"category,omitempty"`
	Dialect  domain.Dialect  `json:"dialect,omitempty"`
	Spot     domain.Spot     `json:"spot,omitempty"`
	Field    string          `json:"field,omitempty"`
	Error    string          `json:"error,omitempty"`
}

func classify(reg *domain.Registry, seq int, line string) result {
	r := result{Seq: seq, Line: line}
	c, err := reg.Classify(line)
	var malformed *domain.MalformedFieldError
	switch {
	case err == nil:
		r.Outcome = outcomeSpot
		r.Category, r.Dialect, r.Spot = c.Category, c.Dialect, c.Spot
	case errors.As(err, &malformed):
		r.Outcome = outcomeMalformed
		r.Category = malformed.Category
		r.Field = malformed.Field
		r.Error = err.Error()
	default:
		r.Outcome = outcomeUnrecognized
		r.Error = err.Error()
	}
	return r
}

// classifyAll parses every non-blank line of in. Seq is the 1-based line number.
func classifyAll(reg *domain.Registry, in io.Reader) ([]result, error) {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), 1<<20)

	var results []result
	seq := 0
	for scanner.Scan() {
		seq++
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		results = append(results, classify(reg, seq, line))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read line %d: %w", seq+1, err)
	}
	return results, nil
}

func onlySpots(results []result) []result {
	out := results[:0]
	for _, r := range results {
		if r.Outcome == outcomeSpot {
			out = append(out, r)
		}
	}
	return out
}
