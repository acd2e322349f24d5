package pipeline

import (
	"strings"

	"github.com/gin-gonic/gin"
)

const formModeKey = "form_extended"

// FormOptions records the configured form-decoding mode on the request
// context so handlers calling FormParams get consistent behavior.
func FormOptions(extended bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(formModeKey, extended)
		c.Next()
	}
}

// FormParams decodes the request's urlencoded form. In the default shallow
// mode every key maps to its last value verbatim. In extended mode keys
// using bracket notation ("user[address][city]=x") expand into nested maps.
func FormParams(c *gin.Context) (map[string]interface{}, error) {
	if err := c.Request.ParseForm(); err != nil {
		return nil, err
	}

	out := make(map[string]interface{}, len(c.Request.PostForm))
	extended := c.GetBool(formModeKey)

	for key, values := range c.Request.PostForm {
		value := values[len(values)-1]
		if !extended {
			out[key] = value
			continue
		}
		assignNested(out, splitBracketKey(key), value)
	}
	return out, nil
}

// splitBracketKey turns "a[b][c]" into ["a","b","c"]. Malformed brackets
// fall back to the literal key.
func splitBracketKey(key string) []string {
	open := strings.IndexByte(key, '[')
	if open <= 0 || !strings.HasSuffix(key, "]") {
		return []string{key}
	}

	parts := []string{key[:open]}
	rest := key[open:]
	for len(rest) > 0 {
		if rest[0] != '[' {
			return []string{key}
		}
		end := strings.IndexByte(rest, ']')
		if end < 2 {
			// No closing bracket or an empty segment.
			return []string{key}
		}
		parts = append(parts, rest[1:end])
		rest = rest[end+1:]
	}
	return parts
}

func assignNested(m map[string]interface{}, path []string, value string) {
	for i, part := range path {
		if i == len(path)-1 {
			m[part] = value
			return
		}
		next, ok := m[part].(map[string]interface{})
		if !ok {
			next = make(map[string]interface{})
			m[part] = next
		}
		m = next
	}
}
