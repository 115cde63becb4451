package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
)

// cue is one scheduled control message.
type cue struct {
	// At is the stream position in seconds.
	At    float64         `json:"at"`
	Patch json.RawMessage `json:"patch"`

	frame uint64
}

// schedule replays control messages at their stream positions.
type schedule struct {
	cues []cue
	next int
}

// parseSchedule reads one cue per line. Blank lines and lines starting
// with '#' are skipped.
func parseSchedule(r io.Reader, sampleRate float64) (*schedule, error) {
	s := &schedule{}
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := bytes.TrimSpace(sc.Bytes())
		if len(text) == 0 || text[0] == '#' {
			continue
		}
		var c cue
		if err := json.Unmarshal(text, &c); err != nil {
			return nil, fmt.Errorf("schedule line %d: %w", line, err)
		}
		if c.At < 0 {
			return nil, fmt.Errorf("schedule line %d: at must be >= 0: %g", line, c.At)
		}
		if len(c.Patch) == 0 {
			return nil, fmt.Errorf("schedule line %d: missing patch", line)
		}
		c.frame = uint64(c.At*sampleRate + 0.5)
		s.cues = append(s.cues, c)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading schedule: %w", err)
	}
	sort.SliceStable(s.cues, func(i, j int) bool { return s.cues[i].frame < s.cues[j].frame })
	return s, nil
}

// Due returns the patches whose position is before end, in order, and
// advances past them.
func (s *schedule) Due(end uint64) []json.RawMessage {
	if s == nil {
		return nil
	}
	var out []json.RawMessage
	for s.next < len(s.cues) && s.cues[s.next].frame < end {
		out = append(out, s.cues[s.next].Patch)
		s.next++
	}
	return out
}

// Len returns the number of cues not yet returned.
func (s *schedule) Len() int {
	if s == nil {
		return 0
	}
	return len(s.cues) - s.next
}
