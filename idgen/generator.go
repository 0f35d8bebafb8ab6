package idgen

import (
	"crypto/md5"
	"encoding/hex"
	"math/rand/v2"
	"strconv"

	"github.com/google/uuid"
)

// Strategy names a registered generation strategy.
type Strategy string

const (
	StrategyNull            Strategy = "null"
	StrategyUUID            Strategy = "uuid"
	StrategyRandom          Strategy = "random"
	StrategyMD5             Strategy = "md5"
	StrategySnowflake       Strategy = "snowflake"
	StrategySnowflakeString Strategy = "snowflake-string"
	StrategySnowflakeHex    Strategy = "snowflake-hex"
)

// RandomLength is the length of ids produced by Random.
const RandomLength = 8

const randomAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// Generator produces identifiers of type T.
type Generator[T any] interface {
	Generate() (T, error)
}

// Func adapts a function to Generator.
type Func[T any] func() (T, error)

// Generate calls f.
func (f Func[T]) Generate() (T, error) { return f() }

// Null returns a generator that always yields the zero value, for callers that
// assign their own ids.
func Null[T any]() Generator[T] {
	return Func[T](func() (T, error) {
		var zero T
		return zero, nil
	})
}

// UUID returns a generator of random (v4) uuid strings.
func UUID() Generator[string] {
	return Func[string](func() (string, error) {
		return uuid.NewString(), nil
	})
}

// Random returns a generator of short random alphanumeric strings. It is not
// suitable for secrets.
func Random() Generator[string] {
	return Func[string](func() (string, error) {
		b := make([]byte, RandomLength)
		for i := range b {
			b[i] = randomAlphabet[rand.IntN(len(randomAlphabet))]
		}
		return string(b), nil
	})
}

// MD5 returns a generator of hex md5 digests of fresh uuid strings: fixed
// length, unique and non-sequential.
func MD5() Generator[string] {
	return Func[string](func() (string, error) {
		sum := md5.Sum([]byte(uuid.NewString()))
		return hex.EncodeToString(sum[:]), nil
	})
}

// SnowflakeInt returns a generator yielding the raw ids of s.
func SnowflakeInt(s *Snowflake) Generator[int64] {
	return Func[int64](s.NextID)
}

// SnowflakeString returns a generator yielding the ids of s in decimal.
func SnowflakeString(s *Snowflake) Generator[string] {
	return Func[string](func() (string, error) {
		id, err := s.NextID()
		if err != nil {
			return "", err
		}
		return strconv.FormatInt(id, 10), nil
	})
}

// SnowflakeHex returns a generator yielding the ids of s in lowercase hex.
func SnowflakeHex(s *Snowflake) Generator[string] {
	return Func[string](func() (string, error) {
		id, err := s.NextID()
		if err != nil {
			return "", err
		}
		return strconv.FormatInt(id, 16), nil
	})
}
