// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package benchdata

import (
	"encoding/json"
	"fmt"
	"time"
)

// A SelfProfile is the per-query breakdown recorded by the compiler's
// self-profiler for one build.
type SelfProfile struct {
	QueryData     []QueryData
	ArtifactSizes []ArtifactSize
}

// QueryData is the aggregate timing of one query label.
type QueryData struct {
	Label               string
	SelfTime            time.Duration
	BlockedTime         time.Duration
	IncrementalLoadTime time.Duration
	NumberOfCacheHits   uint32
	InvocationCount     uint32
}

// ArtifactSize is the size in bytes of one compiler output artifact.
type ArtifactSize struct {
	Label string
	Value uint64
}

// summarizeDuration is how the summarize tool encodes durations.
type summarizeDuration struct {
	Secs  uint64 `json:"secs"`
	Nanos uint32 `json:"nanos"`
}

func (d summarizeDuration) duration() time.Duration {
	return time.Duration(d.Secs)*time.Second + time.Duration(d.Nanos)
}

type summarizeOutput struct {
	QueryData []struct {
		Label               string            `json:"label"`
		SelfTime            summarizeDuration `json:"self_time"`
		NumberOfCacheHits   uint32            `json:"number_of_cache_hits"`
		InvocationCount     uint32            `json:"invocation_count"`
		BlockedTime         summarizeDuration `json:"blocked_time"`
		IncrementalLoadTime summarizeDuration `json:"incremental_load_time"`
	} `json:"query_data"`
	ArtifactSizes []struct {
		Label string `json:"label"`
		Value uint64 `json:"value"`
	} `json:"artifact_sizes"`
}

// ParseSummarize decodes the JSON written by "summarize summarize --json".
func ParseSummarize(data []byte) (*SelfProfile, error) {
	var out summarizeOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("parsing self-profile summary: %w", err)
	}
	p := &SelfProfile{}
	for _, q := range out.QueryData {
		p.QueryData = append(p.QueryData, QueryData{
			Label:               q.Label,
			SelfTime:            q.SelfTime.duration(),
			BlockedTime:         q.BlockedTime.duration(),
			IncrementalLoadTime: q.IncrementalLoadTime.duration(),
			NumberOfCacheHits:   q.NumberOfCacheHits,
			InvocationCount:     q.InvocationCount,
		})
	}
	for _, a := range out.ArtifactSizes {
		p.ArtifactSizes = append(p.ArtifactSizes, ArtifactSize{a.Label, a.Value})
	}
	return p, nil
}
