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

package router

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/fnrg-nfv/click/pkg/private/serrors"
)

// ProbabilityDenom is the fixed denominator of probability values. A
// probability p is carried as round(p * ProbabilityDenom) for determinism.
const ProbabilityDenom = 1 << 16

// Args holds the parsed configuration of one element: positional values in
// order, plus keyword values. An argument whose first word is upper case
// with a remainder, like "QUEUES q1 q2", is a keyword argument; everything
// else is positional.
type Args struct {
	Positional []string
	Keywords   map[string]string
}

// ParseArgs splits a raw element configuration into arguments. Arguments
// are separated by top-level commas; commas inside parentheses do not
// split. Empty configurations yield no arguments.
func ParseArgs(config string) (*Args, error) {
	args := &Args{Keywords: map[string]string{}}
	depth := 0
	start := 0
	flush := func(end int) error {
		arg := strings.TrimSpace(config[start:end])
		if arg == "" {
			return nil
		}
		if key, value, ok := splitKeyword(arg); ok {
			if _, dup := args.Keywords[key]; dup {
				return serrors.New("duplicate keyword", "keyword", key)
			}
			args.Keywords[key] = value
			return nil
		}
		if len(args.Keywords) != 0 {
			return serrors.New("positional argument after keyword", "argument", arg)
		}
		args.Positional = append(args.Positional, arg)
		return nil
	}
	for i := 0; i < len(config); i++ {
		switch config[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth < 0 {
				return nil, serrors.New("unbalanced parenthesis in configuration")
			}
		case ',':
			if depth == 0 {
				if err := flush(i); err != nil {
					return nil, err
				}
				start = i + 1
			}
		}
	}
	if depth != 0 {
		return nil, serrors.New("unbalanced parenthesis in configuration")
	}
	if err := flush(len(config)); err != nil {
		return nil, err
	}
	return args, nil
}

// splitKeyword recognizes "KEY value" arguments. The key must be upper
// case, start with a letter, and be followed by a non-empty value.
func splitKeyword(arg string) (key, value string, ok bool) {
	i := strings.IndexAny(arg, " \t")
	if i < 0 {
		return "", "", false
	}
	head := arg[:i]
	rest := strings.TrimSpace(arg[i:])
	if rest == "" || head[0] < 'A' || head[0] > 'Z' {
		return "", "", false
	}
	for j := 1; j < len(head); j++ {
		c := head[j]
		if (c < 'A' || c > 'Z') && (c < '0' || c > '9') && c != '_' {
			return "", "", false
		}
	}
	return head, rest, true
}

// String extracts an argument as a string. The argument may be given
// positionally at index pos or by keyword key; the keyword wins if both are
// present. Pass a negative pos for keyword-only arguments. The second
// return value reports whether the argument was present.
func (a *Args) String(pos int, key string) (string, bool) {
	if v, ok := a.Keywords[key]; ok {
		return v, true
	}
	if pos >= 0 && pos < len(a.Positional) {
		return a.Positional[pos], true
	}
	return "", false
}

// Int extracts an argument as an integer.
func (a *Args) Int(pos int, key string) (int, bool, error) {
	v, ok := a.String(pos, key)
	if !ok {
		return 0, false, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, true, serrors.New("invalid integer", "param", key, "value", v)
	}
	return n, true, nil
}

// Bool extracts an argument as a boolean (true/false).
func (a *Args) Bool(pos int, key string) (bool, bool, error) {
	v, ok := a.String(pos, key)
	if !ok {
		return false, false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, true, serrors.New("invalid boolean", "param", key, "value", v)
	}
	return b, true, nil
}

// Duration extracts an argument as a duration in Go syntax, e.g. "10ms".
func (a *Args) Duration(pos int, key string) (time.Duration, bool, error) {
	v, ok := a.String(pos, key)
	if !ok {
		return 0, false, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, true, serrors.New("invalid duration", "param", key, "value", v)
	}
	return d, true, nil
}

// Probability extracts an argument as a probability in 1/ProbabilityDenom
// units.
func (a *Args) Probability(pos int, key string) (int, bool, error) {
	v, ok := a.String(pos, key)
	if !ok {
		return 0, false, nil
	}
	p, err := ParseProbability(v)
	if err != nil {
		return 0, true, serrors.Join(err, nil, "param", key)
	}
	return p, true, nil
}

// Finish validates that at most n positional arguments were given and that
// every keyword is among the allowed set.
func (a *Args) Finish(n int, keys ...string) error {
	if len(a.Positional) > n {
		return serrors.New("too many arguments",
			"max", n, "got", len(a.Positional))
	}
	for key := range a.Keywords {
		allowed := false
		for _, k := range keys {
			if key == k {
				allowed = true
				break
			}
		}
		if !allowed {
			return serrors.New("unknown keyword", "keyword", key)
		}
	}
	return nil
}

// ParseProbability converts a decimal probability in [0, 1] to
// 1/ProbabilityDenom units, rounding to nearest.
func ParseProbability(s string) (int, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, serrors.New("invalid probability", "value", s)
	}
	if f < 0 || f > 1 {
		return 0, serrors.New("probability out of range [0, 1]", "value", s)
	}
	return int(math.Round(f * ProbabilityDenom)), nil
}

// FormatProbability renders a probability in 1/ProbabilityDenom units as
// its exact decimal expansion, so that reading a handler back parses to the
// identical value.
func FormatProbability(p int) string {
	return strconv.FormatFloat(float64(p)/ProbabilityDenom, 'f', -1, 64)
}
