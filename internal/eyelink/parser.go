// Package eyelink parses EyeLink ASC exports into typed, time-aligned
// records with gaze coordinates classified onto task-graph nodes.
//
// Parsing is a single fold over the lines of one session. Lines that match no
// known format are skipped; device logs are full of them.
package eyelink

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/encoding"

	"github.com/banshee-data/gaze.report/internal/spatial"
)

var (
	messagePattern  = regexp.MustCompile(`MSG\s+(\d+)\s+.*"time":\s+(\d+\.\d+).*"event":\s+"([^"]+)"`)
	fixationPattern = regexp.MustCompile(`EFIX\s+(L|R)\s+(\d+)\s+(\d+)\s+(\d+)\s+(\d+\.\d+)\s+(\d+\.\d+)\s+(\d+)`)
	gazePattern     = regexp.MustCompile(`^(\d+)\s+(\d+\.\d+)\s+(\d+\.\d+)`)
	blinkPattern    = regexp.MustCompile(`EBLINK\s+(?:(L|R)\s+)?(\d+)\s+(\d+)\s+(\d+)`)
	saccadePattern  = regexp.MustCompile(`ESACC\s+(L|R)\s+(\d+)\s+(\d+)\s+(\d+)\s+(\d+\.\d+)\s+(\d+\.\d+)\s+(\d+\.\d+)\s+(\d+\.\d+)\s+(\d+\.\d+)\s+(\d+)`)
)

// maxLineBytes bounds a single ASC line.
const maxLineBytes = 1 << 20

// Parser turns ASC lines into Records. It holds only immutable configuration;
// all running state lives in the State threaded through Step.
type Parser struct {
	classifier *spatial.Classifier
	encoding   encoding.Encoding
}

// Option configures a Parser.
type Option func(*Parser) error

// WithEncoding sets the character encoding of the input by IANA name.
func WithEncoding(name string) Option {
	return func(p *Parser) error {
		enc, err := LookupEncoding(name)
		if err != nil {
			return err
		}
		p.encoding = enc
		return nil
	}
}

// NewParser returns a Parser classifying coordinates with c. The input
// encoding defaults to ISO-8859-1.
func NewParser(c *spatial.Classifier, opts ...Option) (*Parser, error) {
	if c == nil {
		return nil, fmt.Errorf("eyelink: nil classifier")
	}
	p := &Parser{classifier: c, encoding: defaultEncoding}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Step folds one line into st and returns the new state together with the
// records the line produced, in category order.
func (p *Parser) Step(st State, line string) (State, []Record) {
	var out []Record

	if strings.Contains(line, "MSG") {
		var rec Record
		var ok bool
		if st, rec, ok = parseMessage(st, line); ok {
			out = append(out, rec)
		}
	}
	if strings.Contains(line, "EFIX") {
		if rec, ok := p.parseFixation(st, line); ok {
			out = append(out, rec)
		}
	}
	if len(line) > 0 && line[0] >= '0' && line[0] <= '9' {
		if rec, ok := p.parseGaze(st, line); ok {
			out = append(out, rec)
		}
	}
	if strings.Contains(line, "EBLINK") {
		if rec, ok := parseBlink(st, line); ok {
			out = append(out, rec)
		}
	}
	if strings.Contains(line, "ESACC") {
		if rec, ok := p.parseSaccade(st, line); ok {
			out = append(out, rec)
		}
	}
	return st, out
}

// Each decodes r and calls fn for every record in input order. A non-nil
// error from fn stops the parse and is returned.
func (p *Parser) Each(r io.Reader, fn func(Record) error) error {
	scan := bufio.NewScanner(p.encoding.NewDecoder().Reader(r))
	scan.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	var st State
	for scan.Scan() {
		var recs []Record
		st, recs = p.Step(st, scan.Text())
		for _, rec := range recs {
			if err := fn(rec); err != nil {
				return err
			}
		}
	}
	if err := scan.Err(); err != nil {
		return fmt.Errorf("read asc stream: %w", err)
	}
	return nil
}

// Parse consumes r completely and returns every record in input order.
func (p *Parser) Parse(r io.Reader) ([]Record, error) {
	var recs []Record
	err := p.Each(r, func(rec Record) error {
		recs = append(recs, rec)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return recs, nil
}

func parseMessage(st State, line string) (State, Record, bool) {
	m := messagePattern.FindStringSubmatch(line)
	if m == nil {
		return st, nil, false
	}
	trackerMs, err1 := strconv.ParseFloat(m[1], 64)
	expSec, err2 := strconv.ParseFloat(m[2], 64)
	if err1 != nil || err2 != nil {
		return st, nil, false
	}
	event := m[3]
	trackerSec := trackerMs / 1000
	offset := expSec - trackerSec

	st = st.applyMessage(event, offset, strings.Contains(event, driftCheck))
	return st, Message{
		Context:        st.context(),
		TrackerTime:    trackerSec,
		ExperimentTime: expSec,
		Drift:          offset - st.Offset,
	}, true
}

func (p *Parser) parseFixation(st State, line string) (Record, bool) {
	m := fixationPattern.FindStringSubmatch(line)
	if m == nil {
		return nil, false
	}
	v, ok := parseFloats(m[2:])
	if !ok {
		return nil, false
	}
	start, aligned := st.align(v[0])
	end, _ := st.align(v[1])
	return Fixation{
		Context:  st.context(),
		Eye:      m[1],
		Start:    start,
		End:      end,
		Duration: v[2] / 1000,
		Node:     p.classifier.Classify(v[3], v[4]),
		X:        v[3],
		Y:        v[4],
		Pupil:    v[5],
		Aligned:  aligned,
	}, true
}

func (p *Parser) parseGaze(st State, line string) (Record, bool) {
	m := gazePattern.FindStringSubmatch(line)
	if m == nil {
		return nil, false
	}
	v, ok := parseFloats(m[1:])
	if !ok {
		return nil, false
	}
	t, aligned := st.align(v[0])
	return Gaze{
		Context: st.context(),
		Time:    t,
		Node:    p.classifier.Classify(v[1], v[2]),
		X:       v[1],
		Y:       v[2],
		Aligned: aligned,
	}, true
}

func parseBlink(st State, line string) (Record, bool) {
	m := blinkPattern.FindStringSubmatch(line)
	if m == nil {
		return nil, false
	}
	v, ok := parseFloats(m[2:])
	if !ok {
		return nil, false
	}
	start, aligned := st.align(v[0])
	end, _ := st.align(v[1])
	return Blink{
		Context:  st.context(),
		Eye:      m[1],
		Start:    start,
		End:      end,
		Duration: v[2] / 1000,
		Aligned:  aligned,
	}, true
}

func (p *Parser) parseSaccade(st State, line string) (Record, bool) {
	m := saccadePattern.FindStringSubmatch(line)
	if m == nil {
		return nil, false
	}
	v, ok := parseFloats(m[2:])
	if !ok {
		return nil, false
	}
	start, aligned := st.align(v[0])
	end, _ := st.align(v[1])
	return Saccade{
		Context:      st.context(),
		Eye:          m[1],
		Start:        start,
		End:          end,
		Duration:     v[2] / 1000,
		StartX:       v[3],
		StartY:       v[4],
		EndX:         v[5],
		EndY:         v[6],
		Amplitude:    v[7],
		PeakVelocity: v[8],
		StartNode:    p.classifier.Classify(v[3], v[4]),
		EndNode:      p.classifier.Classify(v[5], v[6]),
		Aligned:      aligned,
	}, true
}

func parseFloats(fields []string) ([]float64, bool) {
	out := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, false
		}
		out[i] = v
	}
	return out, true
}
