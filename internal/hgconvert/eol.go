package hgconvert

import (
	"bufio"
	"bytes"
	"fmt"
	"strings"
)

// eolAttribute maps .hgeol's four line-ending modes to the gitattributes
// token that reproduces the same checkout behavior.
var eolAttribute = map[string]string{
	"native": "text=auto",
	"LF":     "text eol=lf",
	"CRLF":   "text eol=crlf",
	"BIN":    "-text",
}

// translateEol converts a .hgeol file's "[patterns]" section (a list of
// "<glob> = <mode>" lines) into the equivalent gitattributes lines. The
// "[repository]" section, which sets hg-specific native-mode defaults with
// no gitattributes equivalent, is dropped with an explanatory comment.
func translateEol(data []byte) []byte {
	var out bytes.Buffer
	section := ""
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := sc.Text()
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]") {
			section = strings.TrimSuffix(strings.TrimPrefix(trimmed, "["), "]")
			if section == "repository" {
				fmt.Fprintln(&out, "# .hgeol [repository] defaults have no gitattributes equivalent")
			}
			continue
		}
		if trimmed == "" || strings.HasPrefix(trimmed, "#") || strings.HasPrefix(trimmed, ";") {
			continue
		}
		if section != "patterns" {
			continue
		}
		pattern, mode, ok := strings.Cut(trimmed, "=")
		if !ok {
			continue
		}
		pattern, mode = strings.TrimSpace(pattern), strings.TrimSpace(mode)
		attr, known := eolAttribute[mode]
		if !known {
			fmt.Fprintf(&out, "# unrecognized .hgeol mode %q for %s\n", mode, pattern)
			continue
		}
		fmt.Fprintf(&out, "%s %s\n", pattern, attr)
	}
	return out.Bytes()
}
