package extfn

import (
	"errors"
	"fmt"
	"math/big"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"

	"xsltrace/internal/xdm"
)

// now is replaced in tests.
var now = time.Now

func stringDefs() []def {
	return []def{
		{"uuid", 0, 0, func([]*xdm.Sequence) (*xdm.Sequence, error) {
			return str(uuid.NewString()), nil
		}},
		{"timestamp", 0, 0, func([]*xdm.Sequence) (*xdm.Sequence, error) {
			return xdm.Singleton(xdm.Integer(now().UnixMilli())), nil
		}},
		{"trim", 1, 1, func(args []*xdm.Sequence) (*xdm.Sequence, error) {
			return str(strings.TrimSpace(stringArg(args, 0))), nil
		}},
		{"ifAbsent", 2, 2, func(args []*xdm.Sequence) (*xdm.Sequence, error) {
			if v := stringArg(args, 0); v != "" {
				return str(v), nil
			}
			return str(stringArg(args, 1)), nil
		}},
		{"indexOf", 2, 2, func(args []*xdm.Sequence) (*xdm.Sequence, error) {
			return integer(runeIndex(stringArg(args, 0), strings.Index(stringArg(args, 0), stringArg(args, 1)))), nil
		}},
		{"lastIndexOf", 2, 2, func(args []*xdm.Sequence) (*xdm.Sequence, error) {
			return integer(runeIndex(stringArg(args, 0), strings.LastIndex(stringArg(args, 0), stringArg(args, 1)))), nil
		}},
		{"left", 2, 2, withLength(left)},
		{"right", 2, 2, withLength(right)},
		{"pad", 3, 3, withPad(padEnd)},
		{"padRight", 3, 3, withPad(padEnd)},
		{"padFront", 3, 3, withPad(padStart)},
		{"padLeft", 3, 3, withPad(padStart)},
		{"padAndLimit", 3, 3, withPad(func(s string, n int, fill rune) (string, error) {
			if utf8.RuneCountInString(s) > n {
				return "", fmt.Errorf("%q is longer than %d", s, n)
			}
			return padEnd(s, n, fill)
		})},
		{"repeat", 2, 2, withLength(func(s string, n int) string {
			if n <= 0 {
				return ""
			}
			return strings.Repeat(s, n)
		})},
		{"substringAfterLast", 2, 2, func(args []*xdm.Sequence) (*xdm.Sequence, error) {
			s, sep := stringArg(args, 0), stringArg(args, 1)
			i := strings.LastIndex(s, sep)
			if i < 0 {
				return str(""), nil
			}
			return str(s[i+len(sep):]), nil
		}},
		{"substringBeforeLast", 2, 2, func(args []*xdm.Sequence) (*xdm.Sequence, error) {
			s, sep := stringArg(args, 0), stringArg(args, 1)
			i := strings.LastIndex(s, sep)
			if i < 0 {
				return str(""), nil
			}
			return str(s[:i]), nil
		}},
		{"concatSequence", 1, 8, func(args []*xdm.Sequence) (*xdm.Sequence, error) {
			return str(strings.Join(allStrings(args, 0), "")), nil
		}},
		{"concatSequenceFormat", 2, 3, func(args []*xdm.Sequence) (*xdm.Sequence, error) {
			values := allStrings(args[:1], 0)
			sep := stringArg(args, 1)
			skipEmpty := boolArg(args, 2)
			kept := values[:0]
			for _, v := range values {
				if skipEmpty && v == "" {
					continue
				}
				kept = append(kept, v)
			}
			return str(strings.Join(kept, sep)), nil
		}},
		{"normalizeUnicode", 1, 2, func(args []*xdm.Sequence) (*xdm.Sequence, error) {
			form := norm.NFC
			if optional(args, 1) {
				switch f := strings.ToUpper(strings.TrimSpace(stringArg(args, 1))); f {
				case "NFC":
				case "NFD":
					form = norm.NFD
				case "NFKC":
					form = norm.NFKC
				case "NFKD":
					form = norm.NFKD
				default:
					return nil, fmt.Errorf("unknown normalization form %q", f)
				}
			}
			return str(form.String(stringArg(args, 0))), nil
		}},
		{"xor", 2, 2, func(args []*xdm.Sequence) (*xdm.Sequence, error) {
			return boolean(boolArg(args, 0) != boolArg(args, 1)), nil
		}},
		{"random", 2, 2, func(args []*xdm.Sequence) (*xdm.Sequence, error) {
			bounds, err := ints(args, 0)
			if err != nil {
				return nil, err
			}
			lo, hi := bounds[0], bounds[1]
			if hi < lo {
				return nil, fmt.Errorf("empty range [%d, %d]", lo, hi)
			}
			return integer(lo + rand.IntN(hi-lo+1)), nil
		}},
		{"roundFraction", 2, 2, func(args []*xdm.Sequence) (*xdm.Sequence, error) {
			s, err := roundArgs(args)
			if err != nil {
				return nil, err
			}
			f, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, err
			}
			return double(f), nil
		}},
		{"stringRoundFraction", 2, 2, func(args []*xdm.Sequence) (*xdm.Sequence, error) {
			s, err := roundArgs(args)
			if err != nil {
				return nil, err
			}
			return str(s), nil
		}},
		{"renderXml", 1, 2, func(args []*xdm.Sequence) (*xdm.Sequence, error) {
			if !optional(args, 0) {
				return str(""), nil
			}
			n, ok := args[0].At(0).(*xdm.Node)
			if !ok {
				doc, err := xdm.ParseString(stringArg(args, 0))
				if err != nil {
					return nil, err
				}
				n = doc
			}
			out := xdm.Markup(n)
			if !boolArg(args, 1) {
				out = `<?xml version="1.0" encoding="UTF-8"?>` + out
			}
			return str(out), nil
		}},
	}
}

// runeIndex turns a byte offset into a 1-based character position; -1
// becomes 0.
func runeIndex(s string, i int) int {
	if i < 0 {
		return 0
	}
	return utf8.RuneCountInString(s[:i]) + 1
}

func withLength(f func(string, int) string) impl {
	return func(args []*xdm.Sequence) (*xdm.Sequence, error) {
		n, err := intArg(args, 1)
		if err != nil {
			return nil, err
		}
		return str(f(stringArg(args, 0), n)), nil
	}
}

func left(s string, n int) string {
	r := []rune(s)
	if n <= 0 {
		return ""
	}
	if n >= len(r) {
		return s
	}
	return string(r[:n])
}

func right(s string, n int) string {
	r := []rune(s)
	if n <= 0 {
		return ""
	}
	if n >= len(r) {
		return s
	}
	return string(r[len(r)-n:])
}

// withPad adapts (s, length, padChar) functions. Only the first rune of
// padChar is used; an empty padChar pads with spaces.
func withPad(f func(string, int, rune) (string, error)) impl {
	return func(args []*xdm.Sequence) (*xdm.Sequence, error) {
		n, err := intArg(args, 1)
		if err != nil {
			return nil, err
		}
		fill := ' '
		if p := stringArg(args, 2); p != "" {
			fill, _ = utf8.DecodeRuneInString(p)
		}
		out, err := f(stringArg(args, 0), n, fill)
		if err != nil {
			return nil, err
		}
		return str(out), nil
	}
}

func padEnd(s string, n int, fill rune) (string, error) {
	missing := n - utf8.RuneCountInString(s)
	if missing <= 0 {
		return s, nil
	}
	return s + strings.Repeat(string(fill), missing), nil
}

func padStart(s string, n int, fill rune) (string, error) {
	missing := n - utf8.RuneCountInString(s)
	if missing <= 0 {
		return s, nil
	}
	return strings.Repeat(string(fill), missing) + s, nil
}

func roundArgs(args []*xdm.Sequence) (string, error) {
	num, err := floatArg(args, 0)
	if err != nil {
		return "", err
	}
	digits, err := intArg(args, 1)
	if err != nil {
		return "", err
	}
	return roundHalfUp(num, digits)
}

// roundHalfUp rounds the shortest decimal form of num to digits places,
// halves away from zero, and returns it in plain notation.
func roundHalfUp(num float64, digits int) (string, error) {
	if digits < 0 {
		return "", errors.New("digits must not be negative")
	}
	r, ok := new(big.Rat).SetString(strconv.FormatFloat(num, 'g', -1, 64))
	if !ok {
		return "", fmt.Errorf("cannot round %v", num)
	}
	return r.FloatString(digits), nil
}
