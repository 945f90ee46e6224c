package parsers

import (
	"bytes"
	"context"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/mvp-joe/autodoc/internal/tracking"
)

// ctxCheckInterval is how many nodes are visited between context checks.
const ctxCheckInterval = 256

// extractor collects the functions of one syntax tree.
type extractor struct {
	ctx     context.Context
	g       *grammar
	source  []byte
	visited int
	err     error
	out     []*tracking.Function
}

func (e *extractor) run(root *sitter.Node) ([]*tracking.Function, error) {
	walkTree(root, func(n *sitter.Node) bool {
		if e.err != nil {
			return false
		}
		e.visited++
		if e.visited%ctxCheckInterval == 0 {
			if err := e.ctx.Err(); err != nil {
				e.err = err
				return false
			}
		}
		if e.g.functionKinds[n.Kind()] {
			if fn := e.function(n); fn != nil {
				e.out = append(e.out, fn)
			}
		}
		// Nested functions and methods are tracked too.
		return true
	})
	if e.err != nil {
		return nil, e.err
	}
	tracking.SortByOffset(e.out)
	return e.out, nil
}

func (e *extractor) function(n *sitter.Node) *tracking.Function {
	name, params := e.signature(n)
	if name == "" {
		// Anonymous callbacks and lambdas are not documented.
		return nil
	}

	start, end := int(n.StartByte()), int(n.EndByte())
	fn := &tracking.Function{
		Name:        name,
		Params:      params,
		Language:    e.g.name,
		StartOffset: start,
		EndOffset:   end,
	}

	if e.g.innerDocstring {
		e.innerDocstring(n, fn)
	} else {
		e.leadingDocstring(n, fn)
	}
	if fn.Body == "" {
		fn.Body = string(e.source[start:end])
	}
	return fn
}

// signature returns the function's name and parameter list.
func (e *extractor) signature(n *sitter.Node) (string, []string) {
	if declarator := n.ChildByFieldName("declarator"); declarator != nil {
		return e.declaratorSignature(declarator)
	}

	var name string
	if nameNode := n.ChildByFieldName("name"); nameNode != nil {
		name = e.text(nameNode)
	} else if parent := n.Parent(); parent != nil && parent.Kind() == "variable_declarator" {
		if nameNode := parent.ChildByFieldName("name"); nameNode != nil {
			name = e.text(nameNode)
		}
	}

	if paramsNode := n.ChildByFieldName("parameters"); paramsNode != nil {
		return name, e.paramList(paramsNode)
	}
	if single := n.ChildByFieldName("parameter"); single != nil {
		return name, []string{e.text(single)}
	}
	return name, nil
}

// declaratorSignature unwraps C declarators such as `*(*f)(int a)` down to
// the function declarator.
func (e *extractor) declaratorSignature(d *sitter.Node) (string, []string) {
	var params []string
	for d != nil {
		switch d.Kind() {
		case "function_declarator":
			if params == nil {
				if paramsNode := d.ChildByFieldName("parameters"); paramsNode != nil {
					params = e.paramList(paramsNode)
				}
			}
			d = d.ChildByFieldName("declarator")
		case "pointer_declarator", "parenthesized_declarator", "reference_declarator":
			next := d.ChildByFieldName("declarator")
			if next == nil && d.NamedChildCount() > 0 {
				next = d.NamedChild(0)
			}
			d = next
		case "identifier", "field_identifier", "qualified_identifier":
			return e.text(d), params
		default:
			return "", params
		}
	}
	return "", params
}

func (e *extractor) paramList(n *sitter.Node) []string {
	var params []string
	for i := uint(0); i < n.NamedChildCount(); i++ {
		child := n.NamedChild(i)
		if child == nil || e.g.commentKinds[child.Kind()] {
			continue
		}
		if p := strings.TrimSpace(e.text(child)); p != "" {
			params = append(params, p)
		}
	}
	return params
}

// innerDocstring handles docstrings that are the first string statement of
// the body. The docstring statement is cut out of Body so that writing a
// docstring is not itself scored as a change.
func (e *extractor) innerDocstring(n *sitter.Node, fn *tracking.Function) {
	body := n.ChildByFieldName("body")
	if body == nil {
		fn.DocstringOffset = fn.EndOffset
		return
	}
	fn.DocstringOffset = int(body.StartByte())

	first := e.firstStatement(body)
	if first == nil || first.Kind() != "expression_statement" || first.NamedChildCount() != 1 {
		return
	}
	str := first.NamedChild(0)
	if str == nil || str.Kind() != "string" {
		return
	}

	fn.Docstring = e.text(str)
	fn.DocstringRange = &tracking.Range{Start: int(str.StartByte()), End: int(str.EndByte())}

	cutStart, cutEnd := int(first.StartByte()), int(first.EndByte())
	if next := first.NextNamedSibling(); next != nil {
		cutEnd = int(next.StartByte())
	}
	fn.Body = string(e.source[fn.StartOffset:cutStart]) + string(e.source[cutEnd:fn.EndOffset])
}

func (e *extractor) firstStatement(block *sitter.Node) *sitter.Node {
	for i := uint(0); i < block.NamedChildCount(); i++ {
		child := block.NamedChild(i)
		if child != nil && !e.g.commentKinds[child.Kind()] {
			return child
		}
	}
	return nil
}

// leadingDocstring handles doc comments placed directly above the function,
// or above the outermost wrapper around it.
func (e *extractor) leadingDocstring(n *sitter.Node, fn *tracking.Function) {
	anchor := n
	for parent := anchor.Parent(); parent != nil && e.g.wrapperKinds[parent.Kind()]; parent = anchor.Parent() {
		anchor = parent
	}
	fn.DocstringOffset = lineStart(e.source, int(anchor.StartByte()))

	var first, last *sitter.Node
	next := anchor
	for prev := anchor.PrevNamedSibling(); prev != nil; prev = prev.PrevNamedSibling() {
		if !e.adjacent(prev, next) {
			break
		}
		kind := prev.Kind()
		if e.g.skipKinds[kind] && first == nil {
			next = prev
			continue
		}
		if !e.g.commentKinds[kind] || !e.isDocComment(prev) {
			break
		}
		if last == nil {
			last = prev
		}
		first = prev
		next = prev
	}
	if first == nil {
		return
	}

	start, end := int(first.StartByte()), int(last.EndByte())
	fn.Docstring = strings.TrimRight(string(e.source[start:end]), "\r\n")
	fn.DocstringRange = &tracking.Range{Start: start, End: end}
}

// adjacent reports whether only whitespace without a blank line separates a
// from the following node b.
func (e *extractor) adjacent(a, b *sitter.Node) bool {
	aEnd, bStart := int(a.EndByte()), int(b.StartByte())
	if aEnd > bStart {
		return false
	}
	gap := e.source[aEnd:bStart]
	if len(bytes.TrimSpace(gap)) != 0 {
		return false
	}
	newlines := bytes.Count(gap, []byte("\n"))
	if aEnd > 0 && e.source[aEnd-1] == '\n' {
		newlines++
	}
	return newlines <= 1
}

func (e *extractor) isDocComment(n *sitter.Node) bool {
	if len(e.g.docPrefixes) == 0 {
		return true
	}
	text := strings.TrimSpace(e.text(n))
	for _, prefix := range e.g.docPrefixes {
		if strings.HasPrefix(text, prefix) {
			return true
		}
	}
	return false
}

func (e *extractor) text(n *sitter.Node) string {
	return extractNodeText(n, e.source)
}

// extractNodeText extracts the text content of a tree-sitter node.
func extractNodeText(node *sitter.Node, source []byte) string {
	if node == nil {
		return ""
	}
	return string(source[node.StartByte():node.EndByte()])
}

// walkTree walks a tree-sitter tree depth first. Returning false from the
// visitor skips the node's children.
func walkTree(node *sitter.Node, visitor func(*sitter.Node) bool) {
	if node == nil {
		return
	}
	if !visitor(node) {
		return
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		walkTree(node.Child(i), visitor)
	}
}

func lineStart(source []byte, offset int) int {
	if offset > len(source) {
		offset = len(source)
	}
	if i := bytes.LastIndexByte(source[:offset], '\n'); i >= 0 {
		return i + 1
	}
	return 0
}
