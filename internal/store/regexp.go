package store

import (
	"database/sql/driver"
	"fmt"
	"regexp"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"modernc.org/sqlite"
)

// regexpCacheSize bounds the number of compiled patterns kept between calls.
const regexpCacheSize = 64

var (
	regexpOnce    sync.Once
	regexpInitErr error
	regexpCache   *lru.Cache[string, *regexp.Regexp]
)

// registerRegexp installs regexp(pattern, value) on the modernc driver,
// which is what SQLite's `value REGEXP pattern` operator calls.
// Registration is driver-global, so it happens once per process.
func registerRegexp() error {
	regexpOnce.Do(func() {
		regexpCache, regexpInitErr = lru.New[string, *regexp.Regexp](regexpCacheSize)
		if regexpInitErr != nil {
			return
		}
		regexpInitErr = sqlite.RegisterDeterministicScalarFunction("regexp", 2, sqlRegexp)
	})
	return regexpInitErr
}

func sqlRegexp(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	pattern, ok := args[0].(string)
	if !ok {
		return nil, fmt.Errorf("regexp: pattern must be text, got %T", args[0])
	}

	var value string
	switch v := args[1].(type) {
	case nil:
		return nil, nil
	case string:
		value = v
	case []byte:
		value = string(v)
	default:
		value = fmt.Sprint(v)
	}

	re, err := compileCached(pattern)
	if err != nil {
		return nil, err
	}
	if re.MatchString(value) {
		return int64(1), nil
	}
	return int64(0), nil
}

func compileCached(pattern string) (*regexp.Regexp, error) {
	if re, ok := regexpCache.Get(pattern); ok {
		return re, nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	regexpCache.Add(pattern, re)
	return re, nil
}
