package pipeline

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func formContext(t *testing.T, body string, extended bool) *gin.Context {
	t.Helper()
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("POST", "/submit", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	c.Set(formModeKey, extended)
	return c
}

func TestFormParamsShallow(t *testing.T) {
	c := formContext(t, "name=alice&user[city]=berlin", false)

	params, err := FormParams(c)
	if err != nil {
		t.Fatalf("FormParams: %v", err)
	}
	if params["name"] != "alice" {
		t.Errorf("expected name=alice, got %v", params["name"])
	}
	// Shallow mode keeps bracket keys literal.
	if params["user[city]"] != "berlin" {
		t.Errorf("expected literal bracket key, got %v", params)
	}
}

func TestFormParamsExtended(t *testing.T) {
	c := formContext(t, "user[address][city]=berlin&user[name]=alice", true)

	params, err := FormParams(c)
	if err != nil {
		t.Fatalf("FormParams: %v", err)
	}
	user, ok := params["user"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected nested user map, got %v", params["user"])
	}
	if user["name"] != "alice" {
		t.Errorf("expected user.name=alice, got %v", user["name"])
	}
	address, ok := user["address"].(map[string]interface{})
	if !ok || address["city"] != "berlin" {
		t.Errorf("expected user.address.city=berlin, got %v", user["address"])
	}
}

func TestFormParamsExtendedMalformedKey(t *testing.T) {
	c := formContext(t, "broken[key=v", true)

	params, err := FormParams(c)
	if err != nil {
		t.Fatalf("FormParams: %v", err)
	}
	if params["broken[key"] != "v" {
		t.Errorf("expected malformed bracket key kept literal, got %v", params)
	}
}

func TestSplitBracketKey(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"plain", []string{"plain"}},
		{"a[b]", []string{"a", "b"}},
		{"a[b][c]", []string{"a", "b", "c"}},
		{"[b]", []string{"[b]"}},
		{"a[]", []string{"a[]"}},
	}
	for _, tc := range cases {
		got := splitBracketKey(tc.in)
		if len(got) != len(tc.want) {
			t.Errorf("%s: got %v, want %v", tc.in, got, tc.want)
			continue
		}
		for i := range got {
			if got[i] != tc.want[i] {
				t.Errorf("%s: got %v, want %v", tc.in, got, tc.want)
			}
		}
	}
}
