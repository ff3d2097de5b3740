package parser

import (
	"fmt"
	"regexp"
	"strings"
)

// Pair is a token pair typed by the user, each side a symbol or an address
type Pair struct {
	Src string
	Dst string
}

var pairPattern = regexp.MustCompile(`(?i)^([a-z0-9.]+)\s*(?:\s+to\s+|->|/)\s*([a-z0-9.]+)$`)

// ParsePair parses a pair command
// Examples:
//   - "BNB to BUSD"
//   - "select WBNB -> CAKE"
//   - "0xe9e7CEA3DedcA5984780Bafc599bD69ADd087D56/BNB"
func ParsePair(command string) (Pair, error) {
	command = strings.TrimSpace(command)

	// Remove the word "select" if present at the beginning
	if len(command) > 7 && strings.EqualFold(command[:7], "select ") {
		command = strings.TrimSpace(command[7:])
	}

	matches := pairPattern.FindStringSubmatch(command)
	if matches == nil {
		return Pair{}, fmt.Errorf("invalid pair format. Expected: '<token> to <token>' (e.g., 'BNB to BUSD')")
	}

	pair := Pair{
		Src: normalizeRef(matches[1]),
		Dst: normalizeRef(matches[2]),
	}
	if strings.EqualFold(pair.Src, pair.Dst) {
		return Pair{}, fmt.Errorf("source and destination are the same token: %s", pair.Src)
	}
	return pair, nil
}

// normalizeRef upper-cases symbols and leaves addresses untouched
func normalizeRef(ref string) string {
	if strings.HasPrefix(ref, "0x") || strings.HasPrefix(ref, "0X") {
		return ref
	}
	return strings.ToUpper(ref)
}
