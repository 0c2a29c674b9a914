package search

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	serrors "github.com/searchfs/searchfs/internal/errors"
	"github.com/searchfs/searchfs/internal/store"
)

// Filters selects entries. Every field is optional and set fields are
// combined with AND. The zero value matches every entry.
type Filters struct {
	// NamePattern is a glob on the base name where only * is special.
	NamePattern string

	// NameRegex is a Go regular expression searched for anywhere in the name.
	NameRegex string

	// Type restricts matches to files or directories.
	Type *store.EntryType

	// Size restricts files by size. Directories never match.
	Size *SizeRange

	// Directories limits matches to entries below any of these directories.
	Directories []string

	// StrictDirectory matches direct children of Directories only.
	StrictDirectory bool

	// IgnoreCase makes NamePattern ASCII case-insensitive.
	IgnoreCase bool

	ModifiedAfter  time.Time
	ModifiedBefore time.Time
	CreatedAfter   time.Time
	CreatedBefore  time.Time

	// Limit caps the number of results (0 = unlimited).
	Limit int
}

// HasCriteria reports whether any name, type, size or time filter is set.
// A directory scope on its own is not a criterion.
func (f Filters) HasCriteria() bool {
	return f.NamePattern != "" ||
		f.NameRegex != "" ||
		f.Type != nil ||
		f.Size != nil ||
		!f.ModifiedAfter.IsZero() || !f.ModifiedBefore.IsZero() ||
		!f.CreatedAfter.IsZero() || !f.CreatedBefore.IsZero()
}

// Clause is one condition of a Predicate. The set of clauses is closed.
type Clause interface {
	// SQL renders the clause as a boolean expression with ? placeholders.
	SQL() (string, []any)
	clause()
}

// NameGlob matches the base name against a glob where * is the only wildcard.
type NameGlob struct {
	Pattern    string
	IgnoreCase bool
}

func (NameGlob) clause() {}

// SQL uses GLOB (case-sensitive) or, when IgnoreCase is set, LIKE.
func (c NameGlob) SQL() (string, []any) {
	if c.IgnoreCase {
		return `name LIKE ? ESCAPE '\'`, []any{globToLike(c.Pattern)}
	}
	return "name GLOB ?", []any{escapeGlob(c.Pattern)}
}

// NameRegex matches names with the regexp SQL function registered by the store.
// It cannot use an index.
type NameRegex struct {
	Pattern string
}

func (NameRegex) clause() {}

func (c NameRegex) SQL() (string, []any) {
	return "name REGEXP ?", []any{c.Pattern}
}

// TypeIs matches one entry type.
type TypeIs struct {
	Type store.EntryType
}

func (TypeIs) clause() {}

func (c TypeIs) SQL() (string, []any) {
	return "type = ?", []any{c.Type.Value()}
}

// SizeCompare matches files whose size satisfies Range.
type SizeCompare struct {
	Range SizeRange
}

func (SizeCompare) clause() {}

func (c SizeCompare) SQL() (string, []any) {
	return "size IS NOT NULL AND size " + c.Range.Op.String() + " ?", []any{c.Range.Bytes}
}

// DirScope matches entries whose parent is one of Dirs, or with Strict unset,
// anywhere below one of them. Dirs must be absolute and clean.
type DirScope struct {
	Dirs   []string
	Strict bool
}

func (DirScope) clause() {}

// SQL expresses a subtree as a range on parent: every path below dir sorts
// in [dir+sep, dir+(sep+1)), so /a/bc never matches a scope of /a/b.
func (c DirScope) SQL() (string, []any) {
	parts := make([]string, 0, len(c.Dirs))
	args := make([]any, 0, len(c.Dirs)*3)

	for _, dir := range c.Dirs {
		if c.Strict {
			parts = append(parts, "parent = ?")
			args = append(args, dir)
			continue
		}
		lo, hi := subtreeRange(dir)
		parts = append(parts, "(parent = ? OR (parent >= ? AND parent < ?))")
		args = append(args, dir, lo, hi)
	}

	if len(parts) == 1 {
		return parts[0], args
	}
	return "(" + strings.Join(parts, " OR ") + ")", args
}

func subtreeRange(dir string) (string, string) {
	sep := string(filepath.Separator)
	lo := dir
	if !strings.HasSuffix(lo, sep) {
		lo += sep
	}
	hi := lo[:len(lo)-1] + string(filepath.Separator+1)
	return lo, hi
}

// TimeField names a timestamp column.
type TimeField string

const (
	FieldModified TimeField = "modified"
	FieldCreated  TimeField = "created"
)

// TimeRange matches entries with Field in [After, Before). A zero bound is open.
type TimeRange struct {
	Field  TimeField
	After  time.Time
	Before time.Time
}

func (TimeRange) clause() {}

func (c TimeRange) SQL() (string, []any) {
	var parts []string
	var args []any
	if !c.After.IsZero() {
		parts = append(parts, string(c.Field)+" >= ?")
		args = append(args, c.After.UnixNano())
	}
	if !c.Before.IsZero() {
		parts = append(parts, string(c.Field)+" < ?")
		args = append(args, c.Before.UnixNano())
	}
	return strings.Join(parts, " AND "), args
}

// Predicate is the AND of its clauses. No clauses matches everything.
type Predicate struct {
	Clauses []Clause
}

// SQL renders the WHERE expression (without the keyword) and its arguments.
// An empty predicate renders as "".
func (p Predicate) SQL() (string, []any) {
	var parts []string
	var args []any
	for _, c := range p.Clauses {
		s, a := c.SQL()
		if s == "" {
			continue
		}
		parts = append(parts, "("+s+")")
		args = append(args, a...)
	}
	return strings.Join(parts, " AND "), args
}

// IsEmpty reports whether the predicate has no clauses.
func (p Predicate) IsEmpty() bool {
	return len(p.Clauses) == 0
}

// BuildPredicate validates f and turns it into a Predicate. A bad regex,
// directory or time range fails here, before any row is read.
func BuildPredicate(f Filters) (Predicate, error) {
	var p Predicate

	if len(f.Directories) > 0 {
		dirs := make([]string, 0, len(f.Directories))
		for _, d := range f.Directories {
			if strings.TrimSpace(d) == "" {
				return Predicate{}, serrors.New(serrors.ErrCodeInvalidPath, "empty directory in scope", nil)
			}
			abs, err := filepath.Abs(d)
			if err != nil {
				return Predicate{}, serrors.New(serrors.ErrCodeInvalidPath,
					fmt.Sprintf("invalid directory: %s", d), err).WithDetail("path", d)
			}
			dirs = append(dirs, abs)
		}
		p.Clauses = append(p.Clauses, DirScope{Dirs: dirs, Strict: f.StrictDirectory})
	}

	if f.NamePattern != "" {
		p.Clauses = append(p.Clauses, NameGlob{Pattern: f.NamePattern, IgnoreCase: f.IgnoreCase})
	}

	if f.NameRegex != "" {
		if _, err := regexp.Compile(f.NameRegex); err != nil {
			return Predicate{}, serrors.InvalidRegex(f.NameRegex, err)
		}
		p.Clauses = append(p.Clauses, NameRegex{Pattern: f.NameRegex})
	}

	if f.Type != nil {
		p.Clauses = append(p.Clauses, TypeIs{Type: *f.Type})
	}

	if f.Size != nil {
		if f.Size.Bytes < 0 {
			return Predicate{}, serrors.InvalidSize(f.Size.String(), errors.New("negative size"))
		}
		p.Clauses = append(p.Clauses, SizeCompare{Range: *f.Size})
	}

	for _, tr := range []TimeRange{
		{Field: FieldModified, After: f.ModifiedAfter, Before: f.ModifiedBefore},
		{Field: FieldCreated, After: f.CreatedAfter, Before: f.CreatedBefore},
	} {
		if tr.After.IsZero() && tr.Before.IsZero() {
			continue
		}
		if !tr.After.IsZero() && !tr.Before.IsZero() && !tr.After.Before(tr.Before) {
			return Predicate{}, serrors.ValidationError(
				fmt.Sprintf("empty %s time range", tr.Field), nil).
				WithDetail("after", tr.After.Format(time.RFC3339)).
				WithDetail("before", tr.Before.Format(time.RFC3339))
		}
		p.Clauses = append(p.Clauses, tr)
	}

	return p, nil
}

// escapeGlob makes ? and [ literal so that only * stays special for GLOB.
func escapeGlob(pattern string) string {
	var b strings.Builder
	for _, r := range pattern {
		switch r {
		case '?':
			b.WriteString("[?]")
		case '[':
			b.WriteString("[[]")
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// globToLike turns * into % and escapes LIKE's own wildcards with \.
func globToLike(pattern string) string {
	var b strings.Builder
	for _, r := range pattern {
		switch r {
		case '*':
			b.WriteByte('%')
		case '%', '_', '\\':
			b.WriteByte('\\')
			b.WriteRune(r)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
