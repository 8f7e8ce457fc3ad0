// Copyright 2025 Future Networks Research Group
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package serrors provides enhanced errors. Errors created with serrors carry
// additional context in the form of key/value pairs, an optional cause, and an
// optional stack trace. The returned errors support errors.Is and errors.As:
// for any error err returned by this package, errors.Is(err, err) is true, and
// if err wraps cause, errors.Is(err, cause) is true.
package serrors

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ctxPair is one item of context info.
type ctxPair struct {
	Key   string
	Value any
}

// basicError is the error implementation backing New, Wrap and Join.
type basicError struct {
	msg   string
	ctx   []ctxPair
	cause error
	stack *stack
}

func (e *basicError) Error() string {
	var buf bytes.Buffer
	buf.WriteString(e.msg)
	if len(e.ctx) != 0 {
		fmt.Fprint(&buf, " ")
		encodeContext(&buf, e.ctx)
	}
	if e.cause != nil {
		fmt.Fprintf(&buf, ": %s", e.cause)
	}
	return buf.String()
}

func (e *basicError) Unwrap() error {
	return e.cause
}

// MarshalLogObject implements zapcore.ObjectMarshaler for a structured log
// representation.
func (e *basicError) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("msg", e.msg)
	if e.cause != nil {
		if m, ok := e.cause.(zapcore.ObjectMarshaler); ok {
			if err := enc.AddObject("cause", m); err != nil {
				return err
			}
		} else {
			enc.AddString("cause", e.cause.Error())
		}
	}
	if e.stack != nil {
		if err := enc.AddArray("stacktrace", e.stack); err != nil {
			return err
		}
	}
	for _, pair := range e.ctx {
		zap.Any(pair.Key, pair.Value).AddTo(enc)
	}
	return nil
}

// StackTrace returns the attached stack trace if there is one.
func (e *basicError) StackTrace() StackTrace {
	if e.stack == nil {
		return nil
	}
	return e.stack.trace()
}

// New creates a new error with the given message and context, plus a stack
// dump. Avoid using this in performance-critical code; for sentinel errors
// plain errors.New is the better fit.
func New(msg string, errCtx ...any) error {
	return &basicError{
		msg:   msg,
		ctx:   mkContext(errCtx),
		stack: callers(),
	}
}

// Wrap returns an error that associates the given message with the given
// cause (an underlying error) and context. A stack dump is attached unless
// the cause already carries one.
func Wrap(msg string, cause error, errCtx ...any) error {
	e := &basicError{
		msg:   msg,
		ctx:   mkContext(errCtx),
		cause: cause,
	}
	var tracer interface{ StackTrace() StackTrace }
	if cause == nil || !errors.As(cause, &tracer) {
		e.stack = callers()
	}
	return e
}

// Join returns an error that associates the given error with the given cause
// and context. The returned error supports Is for both err and cause. If both
// err and cause are nil, Join returns nil.
func Join(err, cause error, errCtx ...any) error {
	if err == nil && cause == nil {
		return nil
	}
	return &joinedError{
		error: err,
		basicError: basicError{
			ctx:   mkContext(errCtx),
			cause: cause,
		},
	}
}

// joinedError aggregates context around an existing error, typically a
// sentinel. The base error is not assumed to be of any particular type.
type joinedError struct {
	basicError
	error error
}

func (e *joinedError) Error() string {
	var buf bytes.Buffer
	if e.error != nil {
		buf.WriteString(e.error.Error())
	}
	if len(e.ctx) != 0 {
		fmt.Fprint(&buf, " ")
		encodeContext(&buf, e.ctx)
	}
	if e.cause != nil {
		fmt.Fprintf(&buf, ": %s", e.cause)
	}
	return buf.String()
}

func (e *joinedError) Unwrap() []error {
	return []error{e.error, e.cause}
}

// MarshalLogObject implements zapcore.ObjectMarshaler. The base error is
// treated as a plain error and not dissected.
func (e *joinedError) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	if e.error != nil {
		enc.AddString("msg", e.error.Error())
	}
	if e.cause != nil {
		enc.AddString("cause", e.cause.Error())
	}
	for _, pair := range e.ctx {
		zap.Any(pair.Key, pair.Value).AddTo(enc)
	}
	return nil
}

// IsTimeout returns whether err is or is caused by a timeout error.
func IsTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}

// List is a slice of errors.
type List []error

// Error implements the error interface.
func (e List) Error() string {
	s := make([]string, 0, len(e))
	for _, err := range e {
		s = append(s, err.Error())
	}
	return fmt.Sprintf("[ %s ]", strings.Join(s, "; "))
}

// ToError returns the list as an error interface implementation, or nil if
// the list is empty.
func (e List) ToError() error {
	if len(e) == 0 {
		return nil
	}
	return e
}

// MarshalLogArray implements zapcore.ArrayMarshaler for a nicer logging
// format of error lists.
func (e List) MarshalLogArray(ae zapcore.ArrayEncoder) error {
	for _, err := range e {
		if m, ok := err.(zapcore.ObjectMarshaler); ok {
			if err := ae.AppendObject(m); err != nil {
				return err
			}
		} else {
			ae.AppendString(err.Error())
		}
	}
	return nil
}

func mkContext(errCtx []any) []ctxPair {
	if len(errCtx) == 0 {
		return nil
	}
	np := len(errCtx) / 2
	ctx := make([]ctxPair, np)
	for i := 0; i < np; i++ {
		ctx[i] = ctxPair{Key: fmt.Sprint(errCtx[2*i]), Value: errCtx[2*i+1]}
	}
	sort.Slice(ctx, func(a, b int) bool {
		return ctx[a].Key < ctx[b].Key
	})
	return ctx
}

func encodeContext(buf io.Writer, pairs []ctxPair) {
	fmt.Fprint(buf, "{")
	for i, p := range pairs {
		fmt.Fprintf(buf, "%s=%v", p.Key, p.Value)
		if i != len(pairs)-1 {
			fmt.Fprint(buf, "; ")
		}
	}
	fmt.Fprint(buf, "}")
}
