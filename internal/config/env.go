package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// lookup parses key with parse, returning def when the variable is unset,
// empty or malformed.
func lookup[T any](key string, def T, parse func(string) (T, error)) T {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	out, err := parse(v)
	if err != nil {
		return def
	}
	return out
}

func envStr(key, def string) string {
	return lookup(key, def, func(s string) (string, error) { return s, nil })
}

func envInt(key string, def int) int {
	return lookup(key, def, strconv.Atoi)
}

func envFloat(key string, def float64) float64 {
	return lookup(key, def, func(s string) (float64, error) { return strconv.ParseFloat(s, 64) })
}

func envDur(key string, def time.Duration) time.Duration {
	return lookup(key, def, time.ParseDuration)
}

func envBool(key string, def bool) bool {
	return lookup(key, def, parseBool)
}

// envList splits a comma-separated variable, dropping blank items.
func envList(key string) []string {
	var out []string
	for _, p := range strings.Split(os.Getenv(key), ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// parseBool accepts the usual spellings (1/0, true/false, yes/no, y/n,
// on/off) in any case.
func parseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "y", "on":
		return true, nil
	case "0", "false", "no", "n", "off":
		return false, nil
	}
	return false, fmt.Errorf("not a boolean: %q", s)
}

// normalizeBasePath ensures a leading '/' and drops trailing ones, except
// for the root itself.
func normalizeBasePath(p string) string {
	p = strings.Trim(strings.TrimSpace(p), "/")
	return "/" + p
}
