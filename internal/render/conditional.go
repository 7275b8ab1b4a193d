// Package render implements the template text engine and the render
// orchestrator: conditional block evaluation, marker substitution, and the
// hand-off to the external PDF converter and blob store.
package render

import (
	"errors"
	"fmt"
	"strings"
)

// Conditional marker syntax. A block looks like
// "[[IF.MASCOTAS]] ... [[ENDIF.MASCOTAS]]" and is kept or dropped based on
// the boolean flag of the same name.
const (
	ifPrefix    = "[[IF."
	endifPrefix = "[[ENDIF."
	markerClose = "]]"
)

// ErrUnbalancedConditional reports an [[ENDIF.X]] that does not match the
// innermost open block. This is a template authoring defect, not bad user
// input.
var ErrUnbalancedConditional = errors.New("render: unbalanced conditional")

// ErrUnterminatedConditional reports an [[IF.X]] left open at end of input.
var ErrUnterminatedConditional = errors.New("render: unterminated conditional")

// EvalConditionals resolves every conditional block in text against flags
// in a single left-to-right scan. True blocks have their markers stripped
// and their body retained for further processing; false blocks are
// discarded as an opaque unit, so conditionals for other flags nested
// inside a false block are never evaluated on their own. Flags absent from
// the map count as false.
//
// The scan keeps an explicit stack of open flag names, runs in O(len(text))
// and never backtracks.
func EvalConditionals(text string, flags map[string]bool) (string, error) {
	var out strings.Builder
	out.Grow(len(text))

	var stack []string
	i := 0
	for i < len(text) {
		next := strings.Index(text[i:], "[[")
		if next < 0 {
			out.WriteString(text[i:])
			break
		}
		out.WriteString(text[i : i+next])
		i += next

		flag, tokenLen, isEnd, ok := parseConditionalToken(text[i:])
		if !ok {
			// Not a conditional marker (a placeholder, or stray brackets);
			// copy the opening brackets through and keep scanning.
			out.WriteString("[[")
			i += 2
			continue
		}

		if isEnd {
			if len(stack) == 0 || stack[len(stack)-1] != flag {
				return "", fmt.Errorf("%w: [[ENDIF.%s]] at offset %d", ErrUnbalancedConditional, flag, i)
			}
			stack = stack[:len(stack)-1]
			i += tokenLen
			continue
		}

		if flags[flag] {
			stack = append(stack, flag)
			i += tokenLen
			continue
		}

		// False block: jump straight past the matching end marker without
		// interpreting anything inside it.
		after, err := skipBlock(text, i+tokenLen, flag)
		if err != nil {
			return "", err
		}
		i = after
	}

	if len(stack) > 0 {
		return "", fmt.Errorf("%w: [[IF.%s]] still open at end of template",
			ErrUnterminatedConditional, stack[len(stack)-1])
	}
	return out.String(), nil
}

// parseConditionalToken inspects s (which starts with "[[") and, when it is
// a conditional marker, returns the flag name, the token's byte length, and
// whether it is an end marker.
func parseConditionalToken(s string) (flag string, tokenLen int, isEnd, ok bool) {
	var prefix string
	switch {
	case strings.HasPrefix(s, ifPrefix):
		prefix = ifPrefix
	case strings.HasPrefix(s, endifPrefix):
		prefix, isEnd = endifPrefix, true
	default:
		return "", 0, false, false
	}
	close := strings.Index(s[len(prefix):], markerClose)
	if close < 0 {
		return "", 0, false, false
	}
	flag = s[len(prefix) : len(prefix)+close]
	if flag == "" || strings.ContainsAny(flag, " \t\n[") {
		return "", 0, false, false
	}
	return flag, len(prefix) + close + len(markerClose), isEnd, true
}

// skipBlock advances past the [[ENDIF.flag]] matching an already-consumed
// [[IF.flag]], honoring nesting of the same flag. It returns the offset of
// the first byte after the end marker.
func skipBlock(text string, from int, flag string) (int, error) {
	open := ifPrefix + flag + markerClose
	closeMarker := endifPrefix + flag + markerClose
	depth := 1
	i := from
	for depth > 0 {
		nextOpen := strings.Index(text[i:], open)
		nextClose := strings.Index(text[i:], closeMarker)
		if nextClose < 0 {
			return 0, fmt.Errorf("%w: [[IF.%s]] has no matching end marker",
				ErrUnterminatedConditional, flag)
		}
		if nextOpen >= 0 && nextOpen < nextClose {
			depth++
			i += nextOpen + len(open)
			continue
		}
		depth--
		i += nextClose + len(closeMarker)
	}
	return i, nil
}
