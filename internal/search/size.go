package search

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	serrors "github.com/searchfs/searchfs/internal/errors"
)

// SizeOp is the comparison a SizeRange applies to an entry's size.
type SizeOp int

const (
	// SizeAtLeast matches sizes >= Bytes.
	SizeAtLeast SizeOp = iota
	// SizeAtMost matches sizes <= Bytes.
	SizeAtMost
)

// String returns the SQL comparison operator.
func (op SizeOp) String() string {
	if op == SizeAtMost {
		return "<="
	}
	return ">="
}

// SizeRange is a parsed size expression.
type SizeRange struct {
	Op    SizeOp
	Bytes int64
}

// String renders the range back in parseable form, in raw bytes.
func (r SizeRange) String() string {
	sign := "+"
	if r.Op == SizeAtMost {
		sign = "-"
	}
	return sign + strconv.FormatInt(r.Bytes, 10)
}

var sizeUnits = map[byte]int64{
	'K': 1 << 10,
	'M': 1 << 20,
	'G': 1 << 30,
	'T': 1 << 40,
}

// ParseSize parses [+|-]<number>[K|M|G|T][B], case-insensitive, with binary
// units. No sign means "at least"; "-" means "at most".
//
//	"500M"  -> >= 524288000
//	"-1TB"  -> <= 1099511627776
//	"2048"  -> >= 2048
func ParseSize(expr string) (SizeRange, error) {
	s := strings.ToUpper(strings.TrimSpace(expr))
	if s == "" {
		return SizeRange{}, serrors.InvalidSize(expr, errors.New("empty size"))
	}

	r := SizeRange{Op: SizeAtLeast}
	switch s[0] {
	case '+':
		s = s[1:]
	case '-':
		r.Op = SizeAtMost
		s = s[1:]
	}

	s = strings.TrimSuffix(s, "B")
	mult := int64(1)
	if n := len(s); n > 0 {
		if m, ok := sizeUnits[s[n-1]]; ok {
			mult = m
			s = s[:n-1]
		}
	}

	if s == "" {
		return SizeRange{}, serrors.InvalidSize(expr, errors.New("missing number"))
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return SizeRange{}, serrors.InvalidSize(expr, fmt.Errorf("unexpected %q", s[i:]))
		}
	}

	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return SizeRange{}, serrors.InvalidSize(expr, err)
	}
	if n > math.MaxInt64/mult {
		return SizeRange{}, serrors.InvalidSize(expr, errors.New("size overflows 64 bits"))
	}

	r.Bytes = n * mult
	return r, nil
}
