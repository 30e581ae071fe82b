package main

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"

	"github.com/janoszen/dotrollcli/internal/config"
	"github.com/janoszen/dotrollcli/internal/query"
	"github.com/janoszen/dotrollcli/internal/query/querytest"
)

// isolate keeps the user's config file and DOTROLL_* variables out of a test.
func isolate(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("HOME", dir)
	for _, k := range []string{"API_KEY", "API_ENDPOINT", "API_VERSION", "API_USERNAME", "API_PASSWORD", "API_TIMEOUT", "OUTPUT_FORMAT", "LOGGING_LEVEL", "LOGGING_FILE"} {
		t.Setenv(config.EnvPrefix+"_"+k, "")
	}
}

func runWithArgs(args ...string) (int, string, string) {
	var stdout, stderr bytes.Buffer
	code := run(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func executeWith(q query.Handler, args ...string) (int, string, string) {
	var stdout, stderr bytes.Buffer
	code := execute(args, env{
		stdout: &stdout,
		stderr: &stderr,
		newQuery: func(config.Config, *slog.Logger) (query.Handler, error) {
			return q, nil
		},
	})
	return code, stdout.String(), stderr.String()
}

// Keep these exit codes stable: they matter in scripts.
func TestRun_NoArgs_Exit2(t *testing.T) {
	code, _, stderr := runWithArgs()
	if code != 2 {
		t.Fatalf("exit=%d, want 2", code)
	}
	if !strings.Contains(stderr, "no action given") {
		t.Fatalf("stderr=%q, want no action message", stderr)
	}
}

func TestRun_UnknownFlag_Exit2(t *testing.T) {
	if code, _, _ := runWithArgs("--registerdomain"); code != 2 {
		t.Fatalf("exit=%d, want 2", code)
	}
}

func TestRun_PositionalArgs_Exit2(t *testing.T) {
	if code, _, _ := runWithArgs("--domain-list", "nope"); code != 2 {
		t.Fatalf("exit=%d, want 2", code)
	}
}

func TestRun_IncompatibleActions_Exit2(t *testing.T) {
	code, _, stderr := runWithArgs("--domain-list", "--domain-availability", "janoszen.hu")
	if code != 2 {
		t.Fatalf("exit=%d, want 2", code)
	}
	if !strings.Contains(stderr, "--domain-availability and --domain-list are incompatible") {
		t.Fatalf("stderr=%q", stderr)
	}
}

func TestRun_CurrencyRules_Exit2(t *testing.T) {
	cases := [][]string{
		{"--domain-prices"},
		{"--hosting-prices", "--currency", "GBP"},
		{"--vps-prices", "--currency", ""},
		{"--domain-list", "--currency", "HUF"},
		{"--domain-availability", "not a domain"},
		{"--domain-list", "--json", "--plain"},
		{"--domain-list", "--format", "yaml", "--json"},
		{"--domain-list", "--verbose", "--quiet"},
	}
	for _, args := range cases {
		if code, _, _ := runWithArgs(args...); code != 2 {
			t.Fatalf("%q: exit=%d, want 2", args, code)
		}
	}
}

func TestRun_MissingAPIKey_Exit2(t *testing.T) {
	isolate(t)

	code, _, stderr := runWithArgs("--domain-list")
	if code != 2 {
		t.Fatalf("exit=%d, want 2", code)
	}
	if !strings.Contains(stderr, "missing API key") {
		t.Fatalf("stderr=%q", stderr)
	}
}

func TestRun_Version_Exit0(t *testing.T) {
	code, stdout, _ := runWithArgs("--version")
	if code != 0 {
		t.Fatalf("exit=%d, want 0", code)
	}
	if !strings.HasPrefix(stdout, "dotrollcli ") {
		t.Fatalf("stdout=%q", stdout)
	}
}

func TestExecute_DomainList_JSON(t *testing.T) {
	isolate(t)

	q := querytest.New().ExpectGet("domain/list", 200, `["janoszen.hu"]`)
	code, stdout, stderr := executeWith(q, "--domain-list", "--apikey", "k", "--json")
	if code != 0 {
		t.Fatalf("exit=%d, want 0 (stderr=%q)", code, stderr)
	}
	var got []string
	if err := json.Unmarshal([]byte(stdout), &got); err != nil {
		t.Fatalf("decode stdout %q: %v", stdout, err)
	}
	if !reflect.DeepEqual(got, []string{"janoszen.hu"}) {
		t.Fatalf("stdout=%v", got)
	}
	q.AssertDone(t)
}

func TestExecute_DomainAvailability_Table(t *testing.T) {
	isolate(t)

	q := querytest.New().ExpectGet("domain/search/janoszen.hu", 200, `{"status":"available"}`)
	code, stdout, stderr := executeWith(q, "--domain-availability", "https://JanosZen.HU/", "--apikey", "k", "--format", "table")
	if code != 0 {
		t.Fatalf("exit=%d, want 0 (stderr=%q)", code, stderr)
	}
	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	if len(lines) != 2 || !strings.HasPrefix(lines[0], "FIELD") || strings.Join(strings.Fields(lines[1]), " ") != "status available" {
		t.Fatalf("stdout=%q", stdout)
	}
	q.AssertDone(t)
}

func TestExecute_PricesFromEnv(t *testing.T) {
	isolate(t)
	t.Setenv("DOTROLL_API_KEY", "from-env")
	t.Setenv("DOTROLL_OUTPUT_FORMAT", "plain")

	q := querytest.New().ExpectGet("vps/prices/EUR", 200, `{"small":{"monthly":10,"yearly":100}}`)
	code, stdout, stderr := executeWith(q, "--vps-prices", "--currency", "eur")
	if code != 0 {
		t.Fatalf("exit=%d, want 0 (stderr=%q)", code, stderr)
	}
	if stdout != "small\t10\t100\n" {
		t.Fatalf("stdout=%q", stdout)
	}
	q.AssertDone(t)
}

func TestExecute_QueryFailed_Exit1(t *testing.T) {
	isolate(t)

	q := querytest.New().ExpectGet("hosting/prices/USD", 503, `{"error":"maintenance"}`)
	code, stdout, stderr := executeWith(q, "--hosting-prices", "--currency", "USD", "--apikey", "k")
	if code != 1 {
		t.Fatalf("exit=%d, want 1", code)
	}
	if stdout != "" {
		t.Fatalf("stdout=%q, want empty", stdout)
	}
	if !strings.Contains(stderr, "query failed") || !strings.Contains(stderr, "http 503") {
		t.Fatalf("stderr=%q", stderr)
	}
}

func TestRun_RESTEndToEnd(t *testing.T) {
	isolate(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rest/2.0/domain/prices/HUF" {
			t.Errorf("path=%q", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if r.Header.Get("X-API-Key") != "k" {
			t.Errorf("api key=%q", r.Header.Get("X-API-Key"))
		}
		_, _ = w.Write([]byte(`{"hu":{"register":2500,"renew":2500}}`))
	}))
	defer srv.Close()

	code, stdout, stderr := runWithArgs(
		"--domain-prices", "--currency", "huf",
		"--apiendpoint", srv.URL+"/rest", "--apiversion", "2.0", "--apikey", "k",
		"--plain",
	)
	if code != 0 {
		t.Fatalf("exit=%d, want 0 (stderr=%q)", code, stderr)
	}
	if stdout != "hu\t2500\t2500\n" {
		t.Fatalf("stdout=%q", stdout)
	}
}
