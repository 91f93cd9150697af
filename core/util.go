package core

import (
	"log"
	"os"
	"path/filepath"
	"strings"
)

// CleanString trims all leading and trailing whitespace in `s` and optionally lowers it.
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		return strings.ToLower(s)
	}
	return s
}

// Getwd tries to find the project root (the directory holding go.mod).
// go-test changes the working directory to the test package being run, so we walk up from there.
func Getwd() string {
	wd, err := os.Getwd()
	if err != nil {
		log.Fatal(err)
	}
	currDir := wd
	for {
		if fi, err := os.Stat(filepath.Join(currDir, "go.mod")); err == nil && !fi.IsDir() {
			return currDir
		}
		newDir := filepath.Dir(currDir)
		if newDir == string(os.PathSeparator) || newDir == currDir {
			return wd // binaries deployed without sources
		}
		currDir = newDir
	}
}

// UniqueStrings returns ss without blanks and duplicates, keeping first-seen order.
func UniqueStrings(ss []string) []string {
	seen := make(map[string]struct{}, len(ss))
	res := make([]string, 0, len(ss))
	for _, s := range ss {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		res = append(res, s)
	}
	return res
}

// ChunkStrings splits ss into consecutive batches of at most size items.
func ChunkStrings(ss []string, size int) [][]string {
	if len(ss) == 0 {
		return [][]string{}
	}
	if size <= 0 {
		size = len(ss)
	}
	chunks := make([][]string, 0, (len(ss)+size-1)/size)
	for start := 0; start < len(ss); start += size {
		end := start + size
		if end > len(ss) {
			end = len(ss)
		}
		chunks = append(chunks, ss[start:end])
	}
	return chunks
}

// StringSetDiff returns the items of a missing from b, in a's order.
func StringSetDiff(a, b []string) []string {
	in := make(map[string]struct{}, len(b))
	for _, s := range b {
		in[s] = struct{}{}
	}
	diff := make([]string, 0)
	for _, s := range a {
		if _, ok := in[s]; !ok {
			diff = append(diff, s)
		}
	}
	return diff
}

func ContainsString(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}
