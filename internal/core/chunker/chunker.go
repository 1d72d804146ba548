// Package chunker splits extracted asset text into bounded, semantically
// coherent segments. It is pure: no I/O, deterministic output, and it never
// fails — worst case it returns a single empty chunk.
package chunker

import (
	"regexp"
	"strings"
)

// DefaultTargetTokens is the default per-chunk token budget.
const DefaultTargetTokens = 500

// Options tunes a chunking run.
//
// TargetTokens:    approximate token budget per chunk (0 = default 500).
// DurationSeconds: total media duration for flat transcripts; when > 0 each
// chunk gets a time range interpolated from its token share. When 0 no time
// ranges are fabricated.
type Options struct {
	TargetTokens    int
	DurationSeconds float64
}

// Draft is one produced chunk, not yet persisted.
type Draft struct {
	Index      int
	Content    string
	TokenCount int
	StartSec   *float64
	EndSec     *float64
}

// Segment is a span of transcript text with provider-known time offsets.
type Segment struct {
	Text     string
	StartSec float64
	EndSec   float64
}

var (
	paragraphRe = regexp.MustCompile(`\n\s*\n`)
	sentenceRe  = regexp.MustCompile(`[^.!?]+[.!?]+['")\]]*\s*`)
)

// EstimateTokens approximates the token count of s as ceil(wordCount / 0.75).
func EstimateTokens(s string) int {
	words := len(strings.Fields(s))
	if words == 0 {
		return 0
	}
	return (words*4 + 2) / 3
}

// Chunk splits text into token-bounded drafts. Paragraphs are the primary
// unit; a paragraph exceeding twice the target is further split on sentence
// boundaries so no single unit dwarfs the budget. Empty input yields exactly
// one empty chunk, never zero.
func Chunk(text string, opts Options) []Draft {
	target := opts.TargetTokens
	if target <= 0 {
		target = DefaultTargetTokens
	}

	units := splitUnits(text, target)
	drafts := accumulate(units, target)

	if len(drafts) == 0 {
		drafts = []Draft{{Index: 0, Content: "", TokenCount: 0}}
	}
	if opts.DurationSeconds > 0 {
		interpolateTimes(drafts, opts.DurationSeconds)
	}
	return drafts
}

// ChunkSegments merges time-coded transcript segments into token-bounded
// drafts. Each draft spans from its first segment's start to its last
// segment's end. A single segment exceeding twice the target is split on
// sentence boundaries, with its time range apportioned by token share.
func ChunkSegments(segs []Segment, opts Options) []Draft {
	target := opts.TargetTokens
	if target <= 0 {
		target = DefaultTargetTokens
	}

	var expanded []Segment
	for _, sg := range segs {
		t := strings.TrimSpace(sg.Text)
		if t == "" {
			continue
		}
		if EstimateTokens(t) > 2*target {
			expanded = append(expanded, splitSegment(Segment{Text: t, StartSec: sg.StartSec, EndSec: sg.EndSec}, target)...)
		} else {
			expanded = append(expanded, Segment{Text: t, StartSec: sg.StartSec, EndSec: sg.EndSec})
		}
	}
	if len(expanded) == 0 {
		// Empty transcript sentinel: one empty chunk covering the full range.
		return Chunk("", opts)
	}

	var (
		drafts []Draft
		buf    []Segment
		bufTok int
	)
	flush := func() {
		if len(buf) == 0 {
			return
		}
		parts := make([]string, len(buf))
		for i, sg := range buf {
			parts[i] = sg.Text
		}
		start, end := buf[0].StartSec, buf[len(buf)-1].EndSec
		drafts = append(drafts, Draft{
			Index:      len(drafts),
			Content:    strings.Join(parts, "\n"),
			TokenCount: bufTok,
			StartSec:   &start,
			EndSec:     &end,
		})
		buf = nil
		bufTok = 0
	}

	for _, sg := range expanded {
		t := EstimateTokens(sg.Text)
		if bufTok > 0 && bufTok+t > target {
			flush()
		}
		buf = append(buf, sg)
		bufTok += t
	}
	flush()
	return drafts
}

// splitUnits breaks text into paragraphs, sentence-splitting any paragraph
// larger than twice the target budget.
func splitUnits(text string, target int) []string {
	var units []string
	for _, para := range paragraphRe.Split(text, -1) {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		if EstimateTokens(para) > 2*target {
			units = append(units, splitSentences(para)...)
		} else {
			units = append(units, para)
		}
	}
	return units
}

// splitSentences splits on sentence-ending punctuation, keeping the
// punctuation with its sentence. Text with no terminal punctuation comes
// back as a single unit.
func splitSentences(para string) []string {
	matches := sentenceRe.FindAllStringIndex(para, -1)
	if len(matches) == 0 {
		return []string{para}
	}
	var out []string
	last := 0
	for _, m := range matches {
		s := strings.TrimSpace(para[m[0]:m[1]])
		if s != "" {
			out = append(out, s)
		}
		last = m[1]
	}
	if tail := strings.TrimSpace(para[last:]); tail != "" {
		out = append(out, tail)
	}
	return out
}

// accumulate packs units into drafts, flushing whenever appending the next
// unit would exceed the target and the buffer is non-empty. The final
// non-empty buffer is always flushed.
func accumulate(units []string, target int) []Draft {
	var (
		drafts []Draft
		buf    []string
		bufTok int
	)
	flush := func() {
		if len(buf) == 0 {
			return
		}
		drafts = append(drafts, Draft{
			Index:      len(drafts),
			Content:    strings.Join(buf, "\n"),
			TokenCount: bufTok,
		})
		buf = buf[:0]
		bufTok = 0
	}
	for _, u := range units {
		t := EstimateTokens(u)
		if bufTok > 0 && bufTok+t > target {
			flush()
		}
		buf = append(buf, u)
		bufTok += t
	}
	flush()
	return drafts
}

// interpolateTimes apportions totalSec across drafts by token share, so time
// ranges are monotonically non-decreasing across increasing index.
func interpolateTimes(drafts []Draft, totalSec float64) {
	totalTok := 0
	for _, d := range drafts {
		totalTok += d.TokenCount
	}
	if totalTok == 0 {
		start, end := 0.0, totalSec
		for i := range drafts {
			s, e := start, end
			drafts[i].StartSec = &s
			drafts[i].EndSec = &e
		}
		return
	}
	cum := 0
	for i := range drafts {
		start := totalSec * float64(cum) / float64(totalTok)
		cum += drafts[i].TokenCount
		end := totalSec * float64(cum) / float64(totalTok)
		drafts[i].StartSec = &start
		drafts[i].EndSec = &end
	}
}

// splitSegment sentence-splits one oversized timed segment, apportioning its
// time range across the pieces by token share.
func splitSegment(sg Segment, target int) []Segment {
	sentences := splitSentences(sg.Text)
	if len(sentences) <= 1 {
		return []Segment{sg}
	}
	totalTok := 0
	for _, s := range sentences {
		totalTok += EstimateTokens(s)
	}
	if totalTok == 0 {
		return []Segment{sg}
	}
	span := sg.EndSec - sg.StartSec
	out := make([]Segment, 0, len(sentences))
	cum := 0
	for _, s := range sentences {
		start := sg.StartSec + span*float64(cum)/float64(totalTok)
		cum += EstimateTokens(s)
		end := sg.StartSec + span*float64(cum)/float64(totalTok)
		out = append(out, Segment{Text: s, StartSec: start, EndSec: end})
	}
	return out
}
