package richerrors

import (
	"fmt"
	"regexp"
	"strings"
)

// Code is a validated, dot-separated hierarchical error code
// ("package.subsystem.name").
type Code struct {
	value string
}

var codeRegex = regexp.MustCompile(`^[a-z][a-z0-9_]*(\.[a-z][a-z0-9_]*)+$`)

// NewCode validates and constructs a Code.
func NewCode(s string) (Code, error) {
	if !codeRegex.MatchString(s) {
		return Code{}, fmt.Errorf("invalid code format %q: must be dot-separated lowercase segments (e.g. 'package.subsystem.name')", s)
	}
	return Code{value: s}, nil
}

// MustNewCode panics on an invalid code. Used for package-level var blocks.
func MustNewCode(s string) Code {
	c, err := NewCode(s)
	if err != nil {
		panic(err)
	}
	return c
}

func (c Code) String() string { return c.value }

// Package returns the prefix before the first dot.
func (c Code) Package() string {
	if idx := strings.Index(c.value, "."); idx != -1 {
		return c.value[:idx]
	}
	return ""
}

// Equals compares two codes by value.
func (c Code) Equals(other Code) bool { return c.value == other.value }

// Common codes shared across packages.
var (
	CommonInternal   = MustNewCode("common.internal")
	CommonValidation = MustNewCode("common.validation")
	CommonConflict   = MustNewCode("common.conflict")
	CommonNotFound   = MustNewCode("common.not_found")
)
