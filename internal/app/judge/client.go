package judge

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Result is the normalized outcome of executing one (source, language, stdin)
// triple. Fields are already cleaned (BOM stripped, CRLF normalized).
type Result struct {
	Stdout        string
	Stderr        string
	CompileOutput string
	Status        string
	TimedOut      bool
}

// Failed reports whether the run produced anything that disqualifies the
// test: stderr output, compiler output, or a timeout/transport failure.
func (r Result) Failed() bool {
	return r.TimedOut || r.Stderr != "" || r.CompileOutput != ""
}

// Client executes untrusted code against the external judge. Implementations
// must never return transport failures as errors: callers treat judge
// unavailability as a failed test, not a crash.
type Client interface {
	Execute(ctx context.Context, source string, languageID int, stdin string) Result
}

// Judge0 language ids for the aliases the duel clients send.
func LanguageID(lang string) int {
	s := strings.ToLower(strings.TrimSpace(lang))
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	switch s {
	case "cpp", "c++":
		return 54
	case "c":
		return 50
	case "java":
		return 62
	case "python", "py", "python3":
		return 71
	case "javascript", "js", "node", "nodejs":
		return 63
	default:
		return 63
	}
}

const leadingJunk = "\x00\x01\x02\x03\x04\x05\x06\x07\x08\n\x0b\x0c\r\x0e\x0f\x10\x11\x12\x13\x14\x15\x16\x17\x18\x19\x1a\x1b\x1c\x1d\x1e\x1f\ufeff"

// Clean strips a leading BOM and control characters, normalizes CRLF and trims
// trailing whitespace. Applied to submitted code, stdin, expected output and
// judge output before any comparison.
func Clean(s string) string {
	s = strings.TrimLeft(s, leadingJunk)
	s = strings.ReplaceAll(s, "\r", "")
	return strings.TrimRight(s, " \t\n")
}

// OutputsEqual compares judge stdout against an expected output after
// normalizing both sides.
func OutputsEqual(actual, expected string) bool {
	return Clean(actual) == Clean(expected)
}

type judge0Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewJudge0Client builds a Client for a Judge0-compatible endpoint. timeout is
// the request-level bound; it should stay below the per-test budget recorded
// on the room's problem.
func NewJudge0Client(baseURL, apiKey string, timeout time.Duration) Client {
	return &judge0Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
	}
}

// judge0Request carries base64 fields: base64_encoded=true applies to the
// request body as well as the response.
type judge0Request struct {
	SourceCode string `json:"source_code"`
	LanguageID int    `json:"language_id"`
	Stdin      string `json:"stdin"`
}

type judge0Response struct {
	Stdout        *string `json:"stdout"`
	Stderr        *string `json:"stderr"`
	CompileOutput *string `json:"compile_output"`
	Message       *string `json:"message"`
	Status        struct {
		ID          int    `json:"id"`
		Description string `json:"description"`
	} `json:"status"`
}

func (c *judge0Client) Execute(ctx context.Context, source string, languageID int, stdin string) Result {
	body, err := json.Marshal(judge0Request{
		SourceCode: base64.StdEncoding.EncodeToString([]byte(Clean(source))),
		LanguageID: languageID,
		Stdin:      base64.StdEncoding.EncodeToString([]byte(Clean(stdin))),
	})
	if err != nil {
		return failure(fmt.Sprintf("marshal: %v", err))
	}

	endpoint := c.baseURL + "/submissions?wait=true&base64_encoded=true"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return failure(fmt.Sprintf("request: %v", err))
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-RapidAPI-Key", c.apiKey)
		if u, err := url.Parse(c.baseURL); err == nil {
			req.Header.Set("X-RapidAPI-Host", u.Host)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		log.Printf("WARN: judge request failed: %v", err)
		return failure("judge unavailable")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Printf("WARN: judge returned status %d", resp.StatusCode)
		return failure(fmt.Sprintf("judge error: %d", resp.StatusCode))
	}

	var payload judge0Response
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return failure("judge response malformed")
	}

	res := Result{
		Stdout:        Clean(decodeBase64Field(payload.Stdout)),
		Stderr:        Clean(decodeBase64Field(payload.Stderr)),
		CompileOutput: Clean(decodeBase64Field(payload.CompileOutput)),
		Status:        payload.Status.Description,
	}
	if res.Status == "" {
		res.Status = "Unknown"
	}
	return res
}

// failure is the synthetic failed-test result used for any transport problem.
func failure(status string) Result {
	return Result{Status: status, TimedOut: true}
}

// Judge0 with base64_encoded=true returns base64 strings; fall back to the
// raw value when a server sends plain text anyway.
func decodeBase64Field(f *string) string {
	if f == nil {
		return ""
	}
	decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(*f))
	if err != nil {
		return *f
	}
	return string(decoded)
}
