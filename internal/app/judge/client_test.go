package judge

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestCleanStripsLeadingJunk(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"\ufeffprint(1)", "print(1)"},
		{"\x00\x01hello", "hello"},
		{"line1\r\nline2\r\n", "line1\nline2"},
		{"answer  \t\n", "answer"},
		{"  indented stays", "  indented stays"},
		{"", ""},
	}
	for _, c := range cases {
		if got := Clean(c.in); got != c.want {
			t.Errorf("Clean(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestOutputsEqualNormalizesBothSides(t *testing.T) {
	if !OutputsEqual("42\r\n", "42\n") {
		t.Error("CRLF output should match LF expectation")
	}
	if !OutputsEqual("\ufeff42", "42") {
		t.Error("BOM-prefixed output should match")
	}
	if OutputsEqual("42", "43") {
		t.Error("different outputs must not match")
	}
}

func TestLanguageID(t *testing.T) {
	cases := map[string]int{
		"cpp":        54,
		"C++":        54,
		"c":          50,
		"java":       62,
		"Python3":    71,
		"py":         71,
		"js":         63,
		"nodejs":     63,
		"71":         71,
		"  rust  ":   63, // unknown aliases fall back to node
		"whitespace": 63,
	}
	for lang, want := range cases {
		if got := LanguageID(lang); got != want {
			t.Errorf("LanguageID(%q) = %d, want %d", lang, got, want)
		}
	}
}

func b64(s string) *string {
	v := base64.StdEncoding.EncodeToString([]byte(s))
	return &v
}

func TestExecuteDecodesBase64Response(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path + "?" + r.URL.RawQuery

		var req judge0Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		if req.LanguageID != 71 {
			t.Errorf("language_id = %d, want 71", req.LanguageID)
		}
		src, err := base64.StdEncoding.DecodeString(req.SourceCode)
		if err != nil {
			t.Errorf("source_code is not base64: %v", err)
		} else if string(src) != "print(1+2)" {
			t.Errorf("source_code = %q, want %q", src, "print(1+2)")
		}

		resp := map[string]interface{}{
			"stdout": b64("3\n"),
			"status": map[string]interface{}{"id": 3, "description": "Accepted"},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewJudge0Client(server.URL, "", time.Second)
	res := client.Execute(context.Background(), "print(1+2)", 71, "")

	if gotPath != "/submissions?wait=true&base64_encoded=true" {
		t.Errorf("unexpected path %q", gotPath)
	}
	if res.Failed() {
		t.Fatalf("unexpected failure: %+v", res)
	}
	if res.Stdout != "3" {
		t.Errorf("stdout = %q, want %q", res.Stdout, "3")
	}
	if res.Status != "Accepted" {
		t.Errorf("status = %q", res.Status)
	}
}

func TestExecuteStderrMeansFailed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]interface{}{
			"stdout": b64("partial"),
			"stderr": b64("Traceback (most recent call last)"),
			"status": map[string]interface{}{"id": 11, "description": "Runtime Error (NZEC)"},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewJudge0Client(server.URL, "", time.Second)
	res := client.Execute(context.Background(), "boom", 71, "")
	if !res.Failed() {
		t.Fatalf("expected failure, got %+v", res)
	}
}

func TestExecuteServerErrorIsFailedTestNotError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down for maintenance", http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewJudge0Client(server.URL, "", time.Second)
	res := client.Execute(context.Background(), "print(1)", 71, "")
	if !res.TimedOut || !res.Failed() {
		t.Fatalf("expected synthetic failure, got %+v", res)
	}
}

func TestExecuteUnreachableJudge(t *testing.T) {
	client := NewJudge0Client("http://127.0.0.1:1", "", 100*time.Millisecond)
	res := client.Execute(context.Background(), "print(1)", 71, "")
	if !res.Failed() {
		t.Fatalf("expected failure for unreachable judge, got %+v", res)
	}
}

func TestExecutePlainTextFallback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		out := "not base64 at all!!"
		resp := map[string]interface{}{
			"stdout": &out,
			"status": map[string]interface{}{"id": 3, "description": "Accepted"},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewJudge0Client(server.URL, "", time.Second)
	res := client.Execute(context.Background(), "print(1)", 71, "")
	if res.Stdout != "not base64 at all!!" {
		t.Errorf("plain text fallback not applied: %q", res.Stdout)
	}
}
