package search

import (
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	serrors "github.com/searchfs/searchfs/internal/errors"
	"github.com/searchfs/searchfs/internal/store"
)

func TestBuildPredicate_EmptyMatchesEverything(t *testing.T) {
	p, err := BuildPredicate(Filters{})
	require.NoError(t, err)

	where, args := p.SQL()
	assert.True(t, p.IsEmpty())
	assert.Empty(t, where)
	assert.Empty(t, args)
}

func TestBuildPredicate_ComposesWithAnd(t *testing.T) {
	// Given: every kind of filter
	typ := store.TypeFile
	size := SizeRange{Op: SizeAtMost, Bytes: 42}
	after := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	// When: building the predicate
	p, err := BuildPredicate(Filters{
		NamePattern:   "*.go",
		NameRegex:     `_test\.go$`,
		Type:          &typ,
		Size:          &size,
		Directories:   []string{"/src"},
		ModifiedAfter: after,
	})
	require.NoError(t, err)
	where, args := p.SQL()

	// Then: one parenthesised clause per filter joined by AND, values bound as args
	assert.Len(t, p.Clauses, 6)
	assert.Equal(t, 5, strings.Count(where, " AND ("), where)
	assert.Contains(t, where, "(name GLOB ?)")
	assert.Contains(t, where, "(name REGEXP ?)")
	assert.Contains(t, where, "(type = ?)")
	assert.Contains(t, where, "(size IS NOT NULL AND size <= ?)")
	assert.Contains(t, where, "(modified >= ?)")
	assert.Contains(t, args, "*.go")
	assert.Contains(t, args, `_test\.go$`)
	assert.Contains(t, args, int64(0))
	assert.Contains(t, args, int64(42))
	assert.Contains(t, args, after.UnixNano())

	// And: user text never reaches the SQL string
	assert.NotContains(t, where, "*.go")
	assert.NotContains(t, where, "/src")
}

func TestDirScope_SQL(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses / separated paths")
	}

	tests := []struct {
		name  string
		scope DirScope
		where string
		args  []any
	}{
		{
			name:  "strict",
			scope: DirScope{Dirs: []string{"/a/b"}, Strict: true},
			where: "parent = ?",
			args:  []any{"/a/b"},
		},
		{
			name:  "subtree",
			scope: DirScope{Dirs: []string{"/a/b"}},
			where: "(parent = ? OR (parent >= ? AND parent < ?))",
			args:  []any{"/a/b", "/a/b/", "/a/b0"},
		},
		{
			name:  "filesystem root",
			scope: DirScope{Dirs: []string{"/"}},
			where: "(parent = ? OR (parent >= ? AND parent < ?))",
			args:  []any{"/", "/", "0"},
		},
		{
			name:  "several strict dirs are OR-ed",
			scope: DirScope{Dirs: []string{"/x", "/y"}, Strict: true},
			where: "(parent = ? OR parent = ?)",
			args:  []any{"/x", "/y"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			where, args := tt.scope.SQL()
			assert.Equal(t, tt.where, where)
			assert.Equal(t, tt.args, args)
		})
	}
}

func TestBuildPredicate_CanonicalisesDirectories(t *testing.T) {
	p, err := BuildPredicate(Filters{Directories: []string{"rel/dir/", "."}})
	require.NoError(t, err)

	scope, ok := p.Clauses[0].(DirScope)
	require.True(t, ok)
	for _, d := range scope.Dirs {
		assert.True(t, filepath.IsAbs(d), d)
		assert.Equal(t, filepath.Clean(d), d)
	}
}

func TestNameGlob_Escaping(t *testing.T) {
	tests := []struct {
		name       string
		pattern    string
		ignoreCase bool
		where      string
		arg        string
	}{
		{"plain glob", "*.txt", false, "name GLOB ?", "*.txt"},
		{"question mark is literal", "what?.md", false, "name GLOB ?", "what[?].md"},
		{"bracket is literal", "[draft]*", false, "name GLOB ?", "[[]draft]*"},
		{"ignore case uses LIKE", "*.TXT", true, `name LIKE ? ESCAPE '\'`, "%.TXT"},
		{"LIKE wildcards are escaped", "50%_off*", true, `name LIKE ? ESCAPE '\'`, `50\%\_off%`},
		{"backslash is escaped", `a\b`, true, `name LIKE ? ESCAPE '\'`, `a\\b`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			where, args := NameGlob{Pattern: tt.pattern, IgnoreCase: tt.ignoreCase}.SQL()
			assert.Equal(t, tt.where, where)
			assert.Equal(t, []any{tt.arg}, args)
		})
	}
}

func TestTimeRange_SQL(t *testing.T) {
	a := time.Unix(100, 0)
	b := time.Unix(200, 0)

	where, args := TimeRange{Field: FieldCreated, After: a, Before: b}.SQL()
	assert.Equal(t, "created >= ? AND created < ?", where)
	assert.Equal(t, []any{a.UnixNano(), b.UnixNano()}, args)

	where, args = TimeRange{Field: FieldModified, Before: b}.SQL()
	assert.Equal(t, "modified < ?", where)
	assert.Equal(t, []any{b.UnixNano()}, args)
}

func TestBuildPredicate_Errors(t *testing.T) {
	now := time.Now()
	negative := SizeRange{Bytes: -1}

	tests := []struct {
		name    string
		filters Filters
		code    string
	}{
		{"bad regex", Filters{NameRegex: "img_(\\d+"}, serrors.ErrCodeInvalidRegex},
		{"empty directory", Filters{Directories: []string{" "}}, serrors.ErrCodeInvalidPath},
		{"inverted time range", Filters{ModifiedAfter: now, ModifiedBefore: now.Add(-time.Hour)}, serrors.ErrCodeInvalidInput},
		{"negative size", Filters{Size: &negative}, serrors.ErrCodeInvalidSize},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BuildPredicate(tt.filters)
			require.Error(t, err)
			assert.Equal(t, tt.code, serrors.GetCode(err))
		})
	}
}

func TestBuildPredicate_RegexErrorCarriesPattern(t *testing.T) {
	_, err := BuildPredicate(Filters{NameRegex: "a[b"})

	e, ok := serrors.As(err)
	require.True(t, ok)
	assert.Contains(t, e.Error(), "a[b")
}

func TestFilters_HasCriteria(t *testing.T) {
	typ := store.TypeDirectory

	assert.False(t, Filters{}.HasCriteria())
	assert.False(t, Filters{Directories: []string{"/x"}, StrictDirectory: true, Limit: 3}.HasCriteria())
	assert.True(t, Filters{NamePattern: "*"}.HasCriteria())
	assert.True(t, Filters{NameRegex: "x"}.HasCriteria())
	assert.True(t, Filters{Type: &typ}.HasCriteria())
	assert.True(t, Filters{Size: &SizeRange{}}.HasCriteria())
	assert.True(t, Filters{CreatedBefore: time.Now()}.HasCriteria())
}
