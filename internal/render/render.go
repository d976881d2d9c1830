// Package render formats grammatical analysis as a nested text tree.
// The tree nests clause, phrase, word, and segment levels, with
// grammar detail lines attached beneath each segment.
package render

import (
	"strconv"
	"strings"

	"github.com/kalimaproject/kalima/core/model"
	"github.com/kalimaproject/kalima/internal/storage"
)

// Node is one line of the rendered tree.
type Node struct {
	Label    string
	Children []*Node
}

func (n *Node) add(label string) *Node {
	child := &Node{Label: label}
	n.Children = append(n.Children, child)
	return child
}

// parseFeatures splits a "key:value | key:value" feature string into a
// map. Entries without a colon are ignored.
func parseFeatures(s string) map[string]string {
	out := map[string]string{}
	for _, part := range strings.Split(s, "|") {
		part = strings.TrimSpace(part)
		k, v, ok := strings.Cut(part, ":")
		if !ok {
			continue
		}
		k = strings.TrimSpace(k)
		v = strings.TrimSpace(v)
		if k != "" && v != "" {
			out[k] = v
		}
	}
	return out
}

// phraseLabel scans segments in order for the first feature string
// carrying a phrase label or function and builds the phrase node text.
func phraseLabel(segments []storage.VerseSegment) string {
	for _, seg := range segments {
		feats := parseFeatures(seg.Features)
		label, fn := feats["phrase"], feats["phrase_fn"]
		if label == "" && fn == "" {
			continue
		}
		switch {
		case label != "" && fn != "":
			return glossPhrase(label) + " (" + glossPhraseFn(fn) + ")"
		case label != "":
			return glossPhrase(label)
		default:
			return glossPhraseFn(fn)
		}
	}
	return "Phrase"
}

func isPrefix(seg storage.VerseSegment) bool {
	return strings.Contains(strings.ToLower(seg.Type), "prefix")
}

func isStem(seg storage.VerseSegment) bool {
	return strings.Contains(strings.ToLower(seg.Type), "stem")
}

// segmentNode builds the node for one segment with its detail lines.
func segmentNode(seg storage.VerseSegment) *Node {
	kind := "Stem"
	if isPrefix(seg) {
		kind = "Prefix"
	}
	label := kind
	if seg.Form != "" {
		label += ": " + seg.Form
	}
	node := &Node{Label: label}
	if seg.POS != "" {
		node.add(POSLongName(seg.POS))
	}
	if seg.Role != "" {
		node.add("Role: " + seg.Role)
	}
	if seg.Case != "" {
		node.add("Case: " + seg.Case)
	}
	feats := parseFeatures(seg.Features)
	if v := feats["invar"]; v != "" {
		node.add("Inflection: " + v)
	}
	if v := feats["poss"]; v != "" {
		node.add("State: " + v)
	}
	if seg.Root != "" {
		node.add("Root: " + seg.Root)
	}
	return node
}

// BuildTree arranges the verse's segments into a clause tree. Words
// are anchored to the whitespace-split verse text; segments declaring
// a word index land on that word, others on the current cursor
// position, which advances past each stem.
func BuildTree(verse model.Verse, segments []storage.VerseSegment) *Node {
	words := strings.Fields(verse.Text)
	span := len(words)
	for _, seg := range segments {
		if seg.WordIndex > span {
			span = seg.WordIndex
		}
	}

	byWord := make([][]storage.VerseSegment, span+1)
	cursor := 1
	for _, seg := range segments {
		idx := seg.WordIndex
		if idx <= 0 {
			idx = cursor
		}
		if idx < 1 {
			idx = 1
		}
		if idx > span {
			idx = span
		}
		byWord[idx] = append(byWord[idx], seg)
		if isStem(seg) {
			cursor = idx + 1
		} else {
			cursor = idx
		}
	}

	root := &Node{Label: "Clause: " + verse.Ref()}
	phrase := root.add(phraseLabel(segments))
	for i := 1; i <= span; i++ {
		label := "Word " + strconv.Itoa(i)
		if i <= len(words) {
			label += ": " + words[i-1]
		}
		word := phrase.add(label)
		for _, seg := range byWord[i] {
			word.Children = append(word.Children, segmentNode(seg))
		}
	}
	return root
}

// Tree renders the verse's analysis as connector-drawn text.
func Tree(verse model.Verse, segments []storage.VerseSegment) string {
	var b strings.Builder
	writeNode(&b, BuildTree(verse, segments), "")
	return b.String()
}

func writeNode(b *strings.Builder, n *Node, prefix string) {
	if prefix == "" {
		b.WriteString(n.Label)
		b.WriteByte('\n')
	}
	for i, child := range n.Children {
		last := i == len(n.Children)-1
		connector, cont := "|-- ", "|   "
		if last {
			connector, cont = "`-- ", "    "
		}
		b.WriteString(prefix)
		b.WriteString(connector)
		b.WriteString(child.Label)
		b.WriteByte('\n')
		writeNode(b, child, prefix+cont)
	}
}
