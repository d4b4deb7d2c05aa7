package extfn

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"

	"xsltrace/internal/xdm"
)

func encodingDefs() []def {
	return []def{
		{"base64Length", 1, 1, func(args []*xdm.Sequence) (*xdm.Sequence, error) {
			data, err := decodeBase64(stringArg(args, 0))
			if err != nil {
				return nil, err
			}
			return integer(len(data)), nil
		}},
		{"base64ToHex", 1, 1, func(args []*xdm.Sequence) (*xdm.Sequence, error) {
			data, err := decodeBase64(stringArg(args, 0))
			if err != nil {
				return nil, err
			}
			return str(hex.EncodeToString(data)), nil
		}},
		{"base64ToString", 1, 2, func(args []*xdm.Sequence) (*xdm.Sequence, error) {
			data, err := decodeBase64(stringArg(args, 0))
			if err != nil {
				return nil, err
			}
			return decodeText(data, stringArg(args, 1))
		}},
		{"concatBase64", 1, 8, func(args []*xdm.Sequence) (*xdm.Sequence, error) {
			var out []byte
			for _, part := range allStrings(args, 0) {
				data, err := decodeBase64(part)
				if err != nil {
					return nil, err
				}
				out = append(out, data...)
			}
			return str(base64.StdEncoding.EncodeToString(out)), nil
		}},
		{"headBase64", 2, 2, func(args []*xdm.Sequence) (*xdm.Sequence, error) {
			data, n, err := base64AndInt(args)
			if err != nil {
				return nil, err
			}
			if n < 0 || n > len(data) {
				n = len(data)
			}
			return str(base64.StdEncoding.EncodeToString(data[:n])), nil
		}},
		{"substringBase64", 2, 3, func(args []*xdm.Sequence) (*xdm.Sequence, error) {
			data, start, err := base64AndInt(args)
			if err != nil {
				return nil, err
			}
			from := min(max(0, start-1), len(data))
			to := len(data)
			if optional(args, 2) {
				n, err := intArg(args, 2)
				if err != nil {
					return nil, err
				}
				to = from + min(max(n, 0), len(data)-from)
			}
			return str(base64.StdEncoding.EncodeToString(data[from:to])), nil
		}},
		{"trimBase64", 2, 3, func(args []*xdm.Sequence) (*xdm.Sequence, error) {
			data, begin, err := base64AndInt(args)
			if err != nil {
				return nil, err
			}
			end, err := intArg(args, 2)
			if err != nil {
				return nil, err
			}
			from := min(max(begin, 0), len(data))
			to := max(len(data)-max(end, 0), from)
			return str(base64.StdEncoding.EncodeToString(data[from:to])), nil
		}},
		{"padBase64", 3, 3, func(args []*xdm.Sequence) (*xdm.Sequence, error) {
			data, err := decodeBase64(stringArg(args, 0))
			if err != nil {
				return nil, err
			}
			filler, err := decodeBase64(stringArg(args, 1))
			if err != nil {
				return nil, err
			}
			n, err := intArg(args, 2)
			if err != nil {
				return nil, err
			}
			if len(data) >= n {
				return str(stringArg(args, 0)), nil
			}
			if len(filler) == 0 {
				return nil, fmt.Errorf("empty filler cannot pad to %d bytes", n)
			}
			out := make([]byte, 0, n)
			out = append(out, data...)
			for len(out) < n {
				out = append(out, filler[:min(len(filler), n-len(out))]...)
			}
			return str(base64.StdEncoding.EncodeToString(out)), nil
		}},
		{"hexLength", 1, 1, func(args []*xdm.Sequence) (*xdm.Sequence, error) {
			return integer(len(stringArg(args, 0)) / 2), nil
		}},
		{"hexToBase64", 1, 1, func(args []*xdm.Sequence) (*xdm.Sequence, error) {
			data, err := hex.DecodeString(stringArg(args, 0))
			if err != nil {
				return nil, err
			}
			return str(base64.StdEncoding.EncodeToString(data)), nil
		}},
		{"hexToString", 1, 2, func(args []*xdm.Sequence) (*xdm.Sequence, error) {
			data, err := hex.DecodeString(stringArg(args, 0))
			if err != nil {
				return nil, err
			}
			return decodeText(data, stringArg(args, 1))
		}},
		{"stringToBase64", 1, 2, func(args []*xdm.Sequence) (*xdm.Sequence, error) {
			data, err := encodeText(stringArg(args, 0), stringArg(args, 1))
			if err != nil {
				return nil, err
			}
			return str(base64.StdEncoding.EncodeToString(data)), nil
		}},
		{"stringToHex", 1, 2, func(args []*xdm.Sequence) (*xdm.Sequence, error) {
			data, err := encodeText(stringArg(args, 0), stringArg(args, 1))
			if err != nil {
				return nil, err
			}
			return str(strings.ToUpper(hex.EncodeToString(data))), nil
		}},
		{"hexEncode", 1, 1, func(args []*xdm.Sequence) (*xdm.Sequence, error) {
			return str(hex.EncodeToString([]byte(stringArg(args, 0)))), nil
		}},
	}
}

func decodeBase64(s string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("invalid base64: %w", err)
	}
	return data, nil
}

func base64AndInt(args []*xdm.Sequence) ([]byte, int, error) {
	data, err := decodeBase64(stringArg(args, 0))
	if err != nil {
		return nil, 0, err
	}
	n, err := intArg(args, 1)
	if err != nil {
		return nil, 0, err
	}
	return data, n, nil
}

// charset looks up an IANA character set name. An empty name is UTF-8,
// reported as a nil encoding.
func charset(name string) (encoding.Encoding, error) {
	name = strings.TrimSpace(name)
	if name == "" || strings.EqualFold(name, "UTF-8") || strings.EqualFold(name, "UTF8") {
		return nil, nil
	}
	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil {
		return nil, err
	}
	if enc == nil {
		return nil, fmt.Errorf("unsupported charset %q", name)
	}
	return enc, nil
}

func decodeText(data []byte, name string) (*xdm.Sequence, error) {
	enc, err := charset(name)
	if err != nil {
		return nil, err
	}
	if enc == nil {
		return str(string(data)), nil
	}
	out, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return nil, err
	}
	return str(string(out)), nil
}

func encodeText(s, name string) ([]byte, error) {
	enc, err := charset(name)
	if err != nil {
		return nil, err
	}
	if enc == nil {
		return []byte(s), nil
	}
	return enc.NewEncoder().Bytes([]byte(s))
}
