package scraper

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// maxAncestorDepth bounds the upward walk from a permission node.
const maxAncestorDepth = 64

type permissionKind int

const (
	permissionNone permissionKind = iota
	permissionView
	permissionManage
)

// permissionClassifier sorts permission nodes by their nearest section header.
// Ancestor text is computed once per node and reused across all permission nodes
// of the same snapshot.
type permissionClassifier struct {
	viewHeader   string
	manageHeader string
	text         map[*html.Node]string
}

func newPermissionClassifier(viewHeader, manageHeader string) *permissionClassifier {
	return &permissionClassifier{
		viewHeader:   viewHeader,
		manageHeader: manageHeader,
		text:         make(map[*html.Node]string),
	}
}

// classifyPermissions splits the nodes matching selector into view and manage lists.
// Nodes with no qualifying ancestor, or whose nearest qualifying ancestor holds
// both headers, are left out of both.
func classifyPermissions(doc *goquery.Document, selector, viewHeader, manageHeader string) (view, manage []string) {
	view, manage = []string{}, []string{}
	c := newPermissionClassifier(viewHeader, manageHeader)

	doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		node := s.Get(0)
		switch c.classify(node) {
		case permissionView:
			view = append(view, strings.TrimSpace(c.nodeText(node)))
		case permissionManage:
			manage = append(manage, strings.TrimSpace(c.nodeText(node)))
		}
	})
	return view, manage
}

// classify walks up from n's parent element. The first ancestor whose text
// contains either header decides; one holding both headers matches neither.
func (c *permissionClassifier) classify(n *html.Node) permissionKind {
	depth := 0
	for a := n.Parent; a != nil && a.Type == html.ElementNode; a = a.Parent {
		if depth >= maxAncestorDepth {
			return permissionNone
		}
		depth++

		text := c.nodeText(a)
		hasView := strings.Contains(text, c.viewHeader)
		hasManage := strings.Contains(text, c.manageHeader)
		switch {
		case hasView && hasManage:
			return permissionNone
		case hasView:
			return permissionView
		case hasManage:
			return permissionManage
		}
	}
	return permissionNone
}

func (c *permissionClassifier) nodeText(n *html.Node) string {
	if text, ok := c.text[n]; ok {
		return text
	}
	var buf bytes.Buffer
	collectText(n, &buf)
	text := buf.String()
	c.text[n] = text
	return text
}

func collectText(n *html.Node, buf *bytes.Buffer) {
	if n == nil {
		return
	}
	if n.Type == html.TextNode {
		buf.WriteString(n.Data)
		return
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		collectText(child, buf)
	}
}
