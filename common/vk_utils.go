package common

import (
	"strings"
)

// Provides general helper functions for comparisons and conversions

// IsSubset reports whether every entry of a is contained in b. This is mainly used to check for extension and
// layer support during the initialization process.
func IsSubset(a []string, b []string) bool {
	for _, _a := range a {
		if !Contains(b, _a) {
			return false
		}
	}
	return true
}

// Missing lists the entries of required that are not in available, in the order of required.
func Missing(required []string, available []string) []string {
	var missing []string
	for _, r := range required {
		if !Contains(available, r) {
			missing = append(missing, r)
		}
	}
	return missing
}

func Contains(l []string, e string) bool {
	for i := range l {
		if l[i] == e {
			return true
		}
	}
	return false
}

// TerminatedStr ensures the given string is \x00 terminated as vulkan expects this in certain structs
func TerminatedStr(s string) string {
	if !strings.HasSuffix(s, "\x00") {
		return s + "\x00"
	}
	return s
}

// TerminatedStrs returns a terminated copy of strs, the input is left untouched.
func TerminatedStrs(strs []string) []string {
	out := make([]string, len(strs))
	for i := range strs {
		out[i] = TerminatedStr(strs[i])
	}
	return out
}

// uniqueIndices drops repeated queue family indices, keeping the first occurrence.
func uniqueIndices(l []uint32) []uint32 {
	var uniq []uint32
	for _, e := range l {
		if !inList(e, uniq) {
			uniq = append(uniq, e)
		}
	}
	return uniq
}

func inList(e uint32, l []uint32) bool {
	for i := range l {
		if l[i] == e {
			return true
		}
	}
	return false
}
