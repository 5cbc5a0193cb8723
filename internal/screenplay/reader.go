/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package screenplay

import (
	"bufio"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// maxLineBytes bounds a single physical line; longer lines fail the read.
const maxLineBytes = 4 << 20

// ReadLines splits document text into RawLines. Text is NFC normalized;
// lines that are not valid UTF-8 are sanitized and flagged Invalid.
func ReadLines(text string) ([]RawLine, error) {
	text = strings.TrimPrefix(text, "\ufeff")
	sc := bufio.NewScanner(strings.NewReader(text))
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	var out []RawLine
	for sc.Scan() {
		raw := strings.TrimRight(sc.Text(), "\r")
		invalid := !utf8.ValidString(raw)
		if invalid {
			raw = strings.ToValidUTF8(raw, "\uFFFD")
		}
		raw = norm.NFC.String(raw)
		out = append(out, RawLine{Index: len(out), Text: raw, Indent: leadingWhitespace(raw), Invalid: invalid})
	}
	if err := sc.Err(); err != nil {
		return out, fmt.Errorf("read line %d: %w", len(out)+1, err)
	}
	return out, nil
}

func leadingWhitespace(s string) int {
	n := 0
	for _, r := range s {
		if r == '\f' || !unicode.IsSpace(r) {
			break
		}
		n++
	}
	return n
}
