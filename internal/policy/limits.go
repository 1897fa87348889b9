package policy

import (
	"strconv"
	"strings"
	"sync"

	"github.com/wassette-project/wassette/internal/wasserr"
)

// ParsedLimit is a resource limit resolved to its base unit: bytes for
// memory, millicores for cpu.
type ParsedLimit struct {
	Value int64
}

var (
	memoryCache sync.Map // string -> ParsedLimit
	cpuCache    sync.Map // string -> ParsedLimit
)

var memorySuffixes = map[string]int64{
	"":   1,
	"Ki": 1 << 10,
	"Mi": 1 << 20,
	"Gi": 1 << 30,
	"Ti": 1 << 40,
}

// ParseMemory parses a k8s-style memory quantity: a plain integer (bytes) or
// an integer followed by Ki/Mi/Gi/Ti (base-2). Results are memoised since the
// same limit string recurs across grants for a class of components.
func ParseMemory(s string) (ParsedLimit, error) {
	if v, ok := memoryCache.Load(s); ok {
		return v.(ParsedLimit), nil
	}

	for _, suffix := range []string{"Ki", "Mi", "Gi", "Ti"} {
		if strings.HasSuffix(s, suffix) {
			numPart := strings.TrimSuffix(s, suffix)
			n, err := strconv.ParseInt(numPart, 10, 64)
			if err != nil || n < 0 {
				return ParsedLimit{}, wasserr.Newf(wasserr.InvalidLimit, "invalid memory limit %q", s)
			}
			parsed := ParsedLimit{Value: n * memorySuffixes[suffix]}
			memoryCache.Store(s, parsed)
			return parsed, nil
		}
	}

	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < 0 {
		return ParsedLimit{}, wasserr.Newf(wasserr.InvalidLimit, "invalid memory limit %q", s)
	}
	parsed := ParsedLimit{Value: n}
	memoryCache.Store(s, parsed)
	return parsed, nil
}

// ParseCPU parses a k8s-style cpu quantity: "Nm" for millicores, or a plain
// (possibly fractional) number of cores, returned as millicores.
func ParseCPU(s string) (ParsedLimit, error) {
	if v, ok := cpuCache.Load(s); ok {
		return v.(ParsedLimit), nil
	}

	if strings.HasSuffix(s, "m") {
		numPart := strings.TrimSuffix(s, "m")
		n, err := strconv.ParseInt(numPart, 10, 64)
		if err != nil || n < 0 {
			return ParsedLimit{}, wasserr.Newf(wasserr.InvalidLimit, "invalid cpu limit %q", s)
		}
		parsed := ParsedLimit{Value: n}
		cpuCache.Store(s, parsed)
		return parsed, nil
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 {
		return ParsedLimit{}, wasserr.Newf(wasserr.InvalidLimit, "invalid cpu limit %q", s)
	}
	parsed := ParsedLimit{Value: int64(f * 1000)}
	cpuCache.Store(s, parsed)
	return parsed, nil
}
