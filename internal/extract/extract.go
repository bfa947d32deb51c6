// Package extract turns fetched HTML into normalized plain text.
package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/abdusco/linkwatch/internal"
)

// hidden lists elements whose text is never rendered.
var hidden = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Noscript: true,
	atom.Template: true,
	atom.Head:     true,
}

// inline elements continue the surrounding word; everything else is a
// boundary between words.
var inline = map[atom.Atom]bool{
	atom.A: true, atom.Abbr: true, atom.B: true, atom.Bdi: true, atom.Bdo: true,
	atom.Cite: true, atom.Code: true, atom.Data: true, atom.Dfn: true, atom.Em: true,
	atom.I: true, atom.Kbd: true, atom.Mark: true, atom.Q: true, atom.S: true,
	atom.Samp: true, atom.Small: true, atom.Span: true, atom.Strong: true, atom.Sub: true,
	atom.Sup: true, atom.Time: true, atom.U: true, atom.Var: true, atom.Font: true,
}

// Text returns the visible text of the page body with whitespace runs
// collapsed to single spaces, capped at internal.MaxContentLength characters.
func Text(body []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}

	sel := doc.Find("body").First()
	if sel.Length() == 0 {
		sel = doc.Selection
	}

	var sb strings.Builder
	for _, n := range sel.Nodes {
		writeText(&sb, n)
	}

	return Normalize(sb.String()), nil
}

func writeText(sb *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		sb.WriteString(n.Data)
		return
	case html.ElementNode:
		if hidden[n.DataAtom] {
			return
		}
	}

	boundary := n.Type == html.ElementNode && !inline[n.DataAtom]
	if boundary {
		sb.WriteByte(' ')
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeText(sb, c)
	}
	if boundary {
		sb.WriteByte(' ')
	}
}

// Normalize collapses whitespace and caps the length.
func Normalize(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	return truncate(text, internal.MaxContentLength)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	n := 0
	for i := range s {
		if n == max {
			return s[:i]
		}
		n++
	}
	return s
}
