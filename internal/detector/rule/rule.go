// Copyright (C) sentryd authors.
// All rights reserved. This file is part of sentryd.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package rule implements the MatchRule combinators allowlist/blocklist
// detectors and rule-driven filters evaluate against a Log Atom: And, Or,
// Not, ValueMatch, ValueListMatch, and IPv4InRFC1918, plus an Expr rule
// that hands an atom's Match Tree to an expr-lang expression for the
// cases the fixed combinators don't cover.
package rule

import (
	"fmt"
	"net"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/clusterwatch/sentryd/internal/atom"
)

// Rule reports whether an Atom matches, mirroring MatchRule.match from the
// rule-iteration-until-match detectors it is grounded on.
type Rule interface {
	Match(a *atom.Atom) bool
}

// And matches when every sub-rule matches. An empty And matches everything.
type And []Rule

func (r And) Match(a *atom.Atom) bool {
	for _, sub := range r {
		if !sub.Match(a) {
			return false
		}
	}
	return true
}

// Or matches when any sub-rule matches. An empty Or matches nothing.
type Or []Rule

func (r Or) Match(a *atom.Atom) bool {
	for _, sub := range r {
		if sub.Match(a) {
			return true
		}
	}
	return false
}

// Not inverts a sub-rule.
type Not struct{ Rule Rule }

func (r Not) Match(a *atom.Atom) bool { return !r.Rule.Match(a) }

// ValueMatch matches when Path is present in the atom's Match Tree and its
// decoded value stringifies to Value.
type ValueMatch struct {
	Path  string
	Value string
}

func (r ValueMatch) Match(a *atom.Atom) bool {
	tree := a.Tree()
	if tree == nil {
		return false
	}
	el := tree.GetElement(r.Path)
	if el == nil {
		return false
	}
	return el.Value.String() == r.Value
}

// ValueListMatch matches when Path is present and its decoded value
// stringifies to one of Values.
type ValueListMatch struct {
	Path   string
	Values []string
}

func (r ValueListMatch) Match(a *atom.Atom) bool {
	tree := a.Tree()
	if tree == nil {
		return false
	}
	el := tree.GetElement(r.Path)
	if el == nil {
		return false
	}
	v := el.Value.String()
	for _, want := range r.Values {
		if v == want {
			return true
		}
	}
	return false
}

// rfc1918Blocks are the private IPv4 ranges IPv4InRFC1918 tests against.
var rfc1918Blocks = []*net.IPNet{
	mustParseCIDR("10.0.0.0/8"),
	mustParseCIDR("172.16.0.0/12"),
	mustParseCIDR("192.168.0.0/16"),
}

func mustParseCIDR(s string) *net.IPNet {
	_, n, err := net.ParseCIDR(s)
	if err != nil {
		panic(err)
	}
	return n
}

// IPv4InRFC1918 matches when Path's decoded value parses as an IPv4
// address inside one of the three RFC 1918 private ranges.
type IPv4InRFC1918 struct {
	Path string
}

func (r IPv4InRFC1918) Match(a *atom.Atom) bool {
	tree := a.Tree()
	if tree == nil {
		return false
	}
	el := tree.GetElement(r.Path)
	if el == nil {
		return false
	}
	ip := net.ParseIP(el.Value.String())
	if ip == nil {
		return false
	}
	ip4 := ip.To4()
	if ip4 == nil {
		return false
	}
	for _, block := range rfc1918Blocks {
		if block.Contains(ip4) {
			return true
		}
	}
	return false
}

// Expr matches by evaluating an expr-lang boolean expression against an
// environment built from the atom's Match Tree paths, falling back to
// false (never matching) whenever the expression errors.
type Expr struct {
	Source  string
	program *vm.Program
}

// NewExpr compiles src as a boolean expr-lang expression.
func NewExpr(src string) (*Expr, error) {
	p, err := expr.Compile(src, expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("rule: compiling expression %q: %w", src, err)
	}
	return &Expr{Source: src, program: p}, nil
}

func (r *Expr) Match(a *atom.Atom) bool {
	tree := a.Tree()
	if tree == nil {
		return false
	}
	env := make(map[string]any)
	for _, path := range tree.Paths() {
		if el := tree.GetElement(path); el != nil {
			env[path] = el.Value.Raw()
			continue
		}
		if list := tree.GetList(path); list != nil {
			values := make([]any, len(list))
			for i, el := range list {
				values[i] = el.Value.Raw()
			}
			env[path] = values
		}
	}
	out, err := expr.Run(r.program, env)
	if err != nil {
		return false
	}
	matched, _ := out.(bool)
	return matched
}
