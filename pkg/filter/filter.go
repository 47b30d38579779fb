package filter

import (
	"errors"
	"fmt"

	"github.com/samber/lo"

	"github.com/limaJavier/coursecomb/config"
)

var ErrRejected = errors.New("query rejected")

const (
	infixStart = 2 // Infixes are matched against code[infixStart:infixEnd]
	infixEnd   = 5
)

// Policy screens queries before they reach the combinator: oversized lists and codes that are never offered to students are refused
type Policy struct {
	MaxCodes         int
	ForbiddenCodes   []string
	ForbiddenInfixes []string
}

func NewPolicy(cfg *config.FilterConfig) Policy {
	return Policy{
		MaxCodes:         cfg.MaxCodes,
		ForbiddenCodes:   cfg.ForbiddenCodes,
		ForbiddenInfixes: cfg.ForbiddenInfixes,
	}
}

func DefaultPolicy() Policy {
	return Policy{
		MaxCodes:         10,
		ForbiddenCodes:   []string{"HL471", "HL302"},
		ForbiddenInfixes: []string{"900"},
	}
}

// Check returns an error wrapping ErrRejected naming the first violation, or nil
func (policy Policy) Check(required, selected []string) error {
	if len(required) > policy.MaxCodes {
		return fmt.Errorf("%w: %v required codes exceed the limit of %v", ErrRejected, len(required), policy.MaxCodes)
	}
	if len(selected) > policy.MaxCodes {
		return fmt.Errorf("%w: %v selected codes exceed the limit of %v", ErrRejected, len(selected), policy.MaxCodes)
	}

	if code, found := lo.Find(required, policy.Forbidden); found {
		return fmt.Errorf("%w: required code %q is not allowed", ErrRejected, code)
	}
	if code, found := lo.Find(selected, policy.Forbidden); found {
		return fmt.Errorf("%w: selected code %q is not allowed", ErrRejected, code)
	}
	return nil
}

func (policy Policy) Forbidden(code string) bool {
	if lo.Contains(policy.ForbiddenCodes, code) {
		return true
	}
	if len(code) < infixEnd {
		return false
	}
	return lo.Contains(policy.ForbiddenInfixes, code[infixStart:infixEnd])
}
