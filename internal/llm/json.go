package llm

import "strings"

// ExtractJSON returns the JSON payload embedded in a model reply. It prefers a
// fenced ```json block, then any fenced block holding an object or array,
// then the first balanced object or array outside other fenced blocks. It
// returns "" when the reply holds no JSON candidate.
func ExtractJSON(s string) string {
	blocks, prose := fencedBlocks(s)
	for _, b := range blocks {
		if b.lang == "json" {
			return b.body
		}
	}
	for _, b := range blocks {
		if b.lang == "" && looksLikeJSON(b.body) {
			return b.body
		}
	}
	return balancedJSON(prose)
}

type fenced struct {
	lang string
	body string
}

// fencedBlocks splits s into its ``` blocks and the text outside them. An
// unterminated fence is left in the prose.
func fencedBlocks(s string) ([]fenced, string) {
	var blocks []fenced
	var prose strings.Builder
	for {
		idx := strings.Index(s, "```")
		if idx == -1 {
			break
		}
		rest := s[idx+3:]
		end := strings.Index(rest, "```")
		if end == -1 {
			break
		}
		prose.WriteString(s[:idx])
		prose.WriteByte('\n')

		body := rest[:end]
		lang := ""
		if nl := strings.IndexByte(body, '\n'); nl != -1 {
			lang = strings.ToLower(strings.TrimSpace(body[:nl]))
			body = body[nl+1:]
		} else {
			body = strings.TrimSpace(body)
			if rest, ok := strings.CutPrefix(body, "json"); ok {
				lang, body = "json", strings.TrimSpace(rest)
			}
		}
		blocks = append(blocks, fenced{lang: lang, body: strings.Trim(body, "\r\n")})
		s = rest[end+3:]
	}
	prose.WriteString(s)
	return blocks, prose.String()
}

func looksLikeJSON(s string) bool {
	s = strings.TrimSpace(s)
	return strings.HasPrefix(s, "{") || strings.HasPrefix(s, "[")
}

// balancedJSON scans for the first '{' or '[' and returns the text up to its
// matching closer. Brackets inside string literals are ignored.
func balancedJSON(s string) string {
	start := strings.IndexAny(s, "{[")
	if start == -1 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		ch := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{', '[':
			depth++
		case '}', ']':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}
