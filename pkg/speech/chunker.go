// Package speech turns tutor response text into speakable blocks.
//
// Tutor responses carry inline directive markup for the rendering layer
// (3D models, canvas drawings, handwritten notes, comparison tables) that
// must never reach the synthesis engine. Clean strips it; Blocks splits the
// cleaned text into large paragraph-aligned chunks so the synthesis engine
// can produce natural prosody across whole passages, while the size bound
// keeps per-request latency low enough for the playback pipeline to stay
// ahead of the output clock.
package speech

import (
	"regexp"
	"strings"
)

// MaxBlockLen is the soft upper bound on block length in characters. A
// single paragraph longer than the bound is kept whole rather than split
// mid-paragraph.
const MaxBlockLen = 800

// minBlockLen blocks at or below this trimmed length are dropped — stray
// punctuation left over from markup stripping is not worth a synthesis call.
const minBlockLen = 2

var (
	paragraphBreak = regexp.MustCompile(`\n\s*\n`)

	threeDDirective = regexp.MustCompile(`\[3D:.*?\]`)
	drawDirective   = regexp.MustCompile(`\[DRAW:.*?\]`)
	noteBlock       = regexp.MustCompile(`\[NOTE:.*?\|(.*?)\]`)
	noteEnd         = regexp.MustCompile(`\[END_NOTE\]`)
	diffBlock       = regexp.MustCompile(`\[DIFF:.*?\|.*?\]`)
	diffEnd         = regexp.MustCompile(`\[END_DIFF\]`)
	underscoreRun   = regexp.MustCompile(`_{2,}`)
	whitespaceRun   = regexp.MustCompile(`\s+`)
)

// Clean strips directive markup and formatting punctuation from text and
// collapses all whitespace runs to single spaces. Note blocks are replaced
// by their captured title fragment; every other directive span is removed
// entirely.
func Clean(text string) string {
	text = threeDDirective.ReplaceAllString(text, "")
	text = drawDirective.ReplaceAllString(text, "")
	text = noteBlock.ReplaceAllString(text, "$1")
	text = noteEnd.ReplaceAllString(text, "")
	text = diffBlock.ReplaceAllString(text, "")
	text = diffEnd.ReplaceAllString(text, "")
	text = strings.ReplaceAll(text, "*", "")
	text = strings.ReplaceAll(text, "#", "")
	text = underscoreRun.ReplaceAllString(text, " ")
	text = whitespaceRun.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// Blocks splits text into ordered speech blocks: paragraphs (blank-line
// separated) are cleaned individually, then greedily packed into blocks that
// stay under [MaxBlockLen] characters, joined by newlines. Blocks whose
// trimmed length is at most 2 characters are dropped.
//
// Blocks is pure: the same input always yields the same block sequence.
func Blocks(text string) []string {
	paragraphs := paragraphBreak.Split(text, -1)

	var blocks []string
	var current string
	for _, p := range paragraphs {
		p = Clean(p)
		if p == "" {
			continue
		}
		if len(current)+len(p) < MaxBlockLen {
			if current != "" {
				current += "\n"
			}
			current += p
		} else {
			if current != "" {
				blocks = append(blocks, strings.TrimSpace(current))
			}
			current = p
		}
	}
	if current != "" {
		blocks = append(blocks, strings.TrimSpace(current))
	}

	out := blocks[:0]
	for _, b := range blocks {
		if len(strings.TrimSpace(b)) > minBlockLen {
			out = append(out, b)
		}
	}
	return out
}
