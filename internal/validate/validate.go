// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package validate collects configuration problems so a bad config file is
// reported in one pass instead of one field per restart.
package validate

import (
	"cmp"
	"fmt"
	"net"
	"net/netip"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Problem is one rejected field.
type Problem struct {
	Field  string
	Value  any
	Reason string
}

func (p Problem) Error() string {
	return fmt.Sprintf("%s: %s", p.Field, p.Reason)
}

// Problems is the error returned by Validator.Err. It is never empty.
type Problems []Problem

func (ps Problems) Error() string {
	msgs := make([]string, len(ps))
	for i, p := range ps {
		msgs[i] = p.Error()
	}
	return "invalid configuration: " + strings.Join(msgs, "; ")
}

// Fields lists the rejected field names in report order.
func (ps Problems) Fields() []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.Field
	}
	return out
}

// Validator accumulates Problems. The zero value is ready to use.
type Validator struct {
	problems Problems
}

func New() *Validator { return &Validator{} }

// Add records a problem unconditionally.
func (v *Validator) Add(field string, value any, format string, args ...any) {
	v.problems = append(v.problems, Problem{
		Field:  field,
		Value:  value,
		Reason: fmt.Sprintf(format, args...),
	})
}

// Check records a problem when ok is false.
func (v *Validator) Check(ok bool, field string, value any, format string, args ...any) {
	if !ok {
		v.Add(field, value, format, args...)
	}
}

// Err returns the collected Problems, or nil when there are none.
func (v *Validator) Err() error {
	if len(v.problems) == 0 {
		return nil
	}
	return slices.Clone(v.problems)
}

// Listen accepts "host:port" with an optional host and a numeric port.
func (v *Validator) Listen(field, addr string) {
	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		v.Add(field, addr, "not a host:port address")
		return
	}
	if _, err := strconv.ParseUint(port, 10, 16); err != nil {
		v.Add(field, addr, "port %q is not a number in 0-65535", port)
	}
}

// Required rejects blank strings.
func (v *Validator) Required(field, value string) {
	v.Check(strings.TrimSpace(value) != "", field, value, "must not be empty")
}

// Enum rejects values outside allowed.
func (v *Validator) Enum(field, value string, allowed ...string) {
	v.Check(slices.Contains(allowed, value), field, value,
		"%q is not one of %s", value, strings.Join(allowed, ", "))
}

// Timeout rejects zero and negative durations.
func (v *Validator) Timeout(field string, d time.Duration) {
	v.Check(d > 0, field, d, "must be a positive duration, got %s", d)
}

// LogLevel accepts any level zerolog understands, except the empty level.
func (v *Validator) LogLevel(field, value string) {
	lvl, err := zerolog.ParseLevel(value)
	v.Check(err == nil && lvl != zerolog.NoLevel, field, value, "unknown log level %q", value)
}

// Networks accepts IP addresses and CIDR prefixes. Blank entries are skipped.
func (v *Validator) Networks(field string, entries []string) {
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		if _, err := netip.ParseAddr(e); err == nil {
			continue
		}
		if _, err := netip.ParsePrefix(e); err == nil {
			continue
		}
		v.Add(field, e, "%q is neither an IP address nor a CIDR prefix", e)
	}
}

// Between checks lo <= value <= hi.
func Between[T cmp.Ordered](v *Validator, field string, value, lo, hi T) {
	v.Check(value >= lo && value <= hi, field, value, "must be within [%v, %v], got %v", lo, hi, value)
}

// AtLeast checks value >= lo.
func AtLeast[T cmp.Ordered](v *Validator, field string, value, lo T) {
	v.Check(value >= lo, field, value, "must be at least %v, got %v", lo, value)
}
