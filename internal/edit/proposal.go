package edit

import (
	"encoding/json"
	"regexp"
	"strings"
)

// inline apply targets
const (
	TargetSelection   = "selection"
	TargetCurrentFile = "current_file"
)

// info string of the structured edit convention
const structuredFenceTag = "edit:v1"

// a code edit recovered from an assistant reply
type Proposal struct {
	// preview/apply target path, workspace-relative; empty when the reply
	// only names an inline target
	Path string `json:"path,omitempty"`

	// the proposed code block content
	Code string `json:"code"`

	// selection or current_file when the reply asks for an inline apply
	InlineTarget string `json:"inline_target,omitempty"`
}

// header line of a structured edit:v1 block
type proposalHeader struct {
	Path string `json:"path"`
}

var replaceContentRe = regexp.MustCompile(`Replace content of (.+?) with:`)

// ExtractProposal recovers an edit proposal from assistant text.
//
// The structured convention wins: a fenced block whose info string is
// edit:v1 carries a JSON header line naming the target path, followed by
// the proposed content. Untagged replies fall back to the first fence
// pair, with the preceding text scanned for a "Replace content of <path>
// with:" marker and for the words "selection" / "current file".
//
// No marker means no apply affordance: ok is false even when the reply
// contains a plain code block.
func ExtractProposal(text string) (Proposal, bool) {
	if p, ok := extractStructured(text); ok {
		return p, true
	}

	return extractPlainText(text)
}

func extractStructured(text string) (Proposal, bool) {
	opening := "```" + structuredFenceTag
	start := strings.Index(text, opening)
	if start < 0 {
		return Proposal{}, false
	}

	rest := text[start+len(opening):]
	rest = strings.TrimPrefix(rest, "\n")

	end := strings.Index(rest, "```")
	if end < 0 {
		return Proposal{}, false
	}

	block := rest[:end]

	headerLine, body, found := strings.Cut(block, "\n")
	if !found {
		headerLine = block
		body = ""
	}

	var header proposalHeader
	if err := json.Unmarshal([]byte(headerLine), &header); err != nil || header.Path == "" {
		return Proposal{}, false
	}

	return Proposal{
		Path: header.Path,
		Code: strings.TrimSuffix(body, "\n"),
	}, true
}

func extractPlainText(text string) (Proposal, bool) {
	code, preamble, ok := firstFencedBlock(text)
	if !ok {
		return Proposal{}, false
	}

	p := Proposal{Code: code}

	if m := replaceContentRe.FindStringSubmatch(preamble); m != nil {
		p.Path = strings.TrimSpace(m[1])
	}

	lower := strings.ToLower(preamble)

	switch {
	case strings.Contains(lower, "selection"):
		p.InlineTarget = TargetSelection
	case strings.Contains(lower, "current file"):
		p.InlineTarget = TargetCurrentFile
	}

	if p.Path == "" && p.InlineTarget == "" {
		return Proposal{}, false
	}

	return p, true
}

// returns the content of the first triple-backtick fence pair and the text
// preceding the opening fence
func firstFencedBlock(text string) (code, preamble string, ok bool) {
	start := strings.Index(text, "```")
	if start < 0 {
		return "", "", false
	}

	preamble = text[:start]
	rest := text[start+3:]

	// skip the info string on the opening fence line
	if nl := strings.Index(rest, "\n"); nl >= 0 {
		rest = rest[nl+1:]
	} else {
		return "", "", false
	}

	end := strings.Index(rest, "```")
	if end < 0 {
		return "", "", false
	}

	return strings.TrimSuffix(rest[:end], "\n"), preamble, true
}
