package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/Societec/poeditor-connector/config"
	"github.com/Societec/poeditor-connector/poeditor"
	"github.com/Societec/poeditor-connector/settings"
)

func isolateEnv(t *testing.T) {
	t.Helper()
	t.Setenv(config.EnvAPIToken, "")
	t.Setenv("XDG_DATA_HOME", t.TempDir())
}

// stubAPI serves the three POEditor endpoints plus downloads.
func stubAPI(t *testing.T) *httptest.Server {
	t.Helper()
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/languages/list":
			io.WriteString(w, `{"response":{"status":"success"},"result":{"languages":[
				{"name":"English","code":"en","translations":12,"percentage":100},
				{"name":"French","code":"fr","translations":6,"percentage":50}]}}`)
		case r.URL.Path == "/projects/export":
			_ = r.ParseForm()
			fmt.Fprintf(w, `{"result":{"url":%q}}`, srv.URL+"/download/"+r.PostForm.Get("language"))
		case strings.HasPrefix(r.URL.Path, "/download/"):
			io.WriteString(w, "content-"+strings.TrimPrefix(r.URL.Path, "/download/"))
		case r.URL.Path == "/projects/upload":
			io.WriteString(w, `{"result":{"terms":{"parsed":3,"added":1,"deleted":0},"translations":{"parsed":3,"added":2,"updated":1}}}`)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func writeProjectConfig(t *testing.T, baseURL string, files map[string]string) (path, dir string) {
	t.Helper()
	dir = t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "en.xtb"), []byte("<xtb/>"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	var mapping []string
	for lang, name := range files {
		mapping = append(mapping, fmt.Sprintf("%q: %q", lang, name))
	}
	body := fmt.Sprintf(`{
  "apiToken": "tok",
  "projectId": 42,
  "baseUrl": %q,
  "importFile": %q,
  "exportDir": %q,
  "exportFiles": {%s}
}`, baseURL, filepath.Join(dir, "en.xtb"), filepath.Join(dir, "out"), strings.Join(mapping, ", "))

	path = filepath.Join(dir, "poeditor.json")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path, dir
}

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRootRequiresConfig(t *testing.T) {
	isolateEnv(t)

	_, err := execute(t, "")
	var te *taskError
	if !errors.As(err, &te) || te.task != "export" {
		t.Fatalf("Execute() error = %v, want export task error", err)
	}
	if !strings.Contains(err.Error(), "--config") {
		t.Fatalf("error %q should mention --config", err)
	}
}

func TestExportCommand(t *testing.T) {
	isolateEnv(t)
	srv := stubAPI(t)
	path, dir := writeProjectConfig(t, srv.URL, map[string]string{"en": "en.xtb", "fr": "fr.xtb"})

	if _, err := execute(t, "", "--config", path, "--max-concurrent", "1"); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}

	for _, lang := range []string{"en", "fr"} {
		data, err := os.ReadFile(filepath.Join(dir, "out", lang+".xtb"))
		if err != nil {
			t.Fatalf("ReadFile(%s): %v", lang, err)
		}
		if string(data) != "content-"+lang {
			t.Fatalf("%s.xtb = %q", lang, data)
		}
	}
}

func TestExportCommandMissingMapping(t *testing.T) {
	isolateEnv(t)
	srv := stubAPI(t)
	path, _ := writeProjectConfig(t, srv.URL, map[string]string{"en": "en.xtb"})

	_, err := execute(t, "", "-c", path)
	var te *taskError
	if !errors.As(err, &te) || te.task != "export" {
		t.Fatalf("Execute() error = %v, want export task error", err)
	}
	if !poeditor.IsKind(err, poeditor.KindMissingMapping) {
		t.Fatalf("Execute() error = %v, want missing mapping", err)
	}
}

func TestUploadCommand(t *testing.T) {
	isolateEnv(t)
	srv := stubAPI(t)
	path, _ := writeProjectConfig(t, srv.URL, nil)

	if _, err := execute(t, "", "--config", path, "--upload"); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
}

func TestUploadCommandFailure(t *testing.T) {
	isolateEnv(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()
	path, _ := writeProjectConfig(t, srv.URL, nil)

	_, err := execute(t, "", "-c", path, "-u")
	var te *taskError
	if !errors.As(err, &te) || te.task != "upload" {
		t.Fatalf("Execute() error = %v, want upload task error", err)
	}
	var e *poeditor.Error
	if !errors.As(err, &e) || e.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("Execute() error = %v, want status 503", err)
	}
}

func TestLanguagesCommand(t *testing.T) {
	isolateEnv(t)
	srv := stubAPI(t)
	path, _ := writeProjectConfig(t, srv.URL, map[string]string{"en": "en.xtb"})

	out, err := execute(t, "", "languages", "--config", path)
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}

	var rows [][]string
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		rows = append(rows, strings.Fields(line))
	}
	want := [][]string{
		{"CODE", "NAME", "TRANSLATIONS", "DONE", "FILE"},
		{"en", "English", "12", "100.0%", "en.xtb"},
		{"fr", "French", "6", "50.0%", "-"},
	}
	if !reflect.DeepEqual(rows, want) {
		t.Fatalf("languages output = %q, want rows %v", out, want)
	}
}

func TestAuthLoginStatusLogout(t *testing.T) {
	isolateEnv(t)

	if _, err := execute(t, "secret-token-1234\n", "auth", "login", "--project", "42"); err != nil {
		t.Fatalf("auth login error: %v", err)
	}
	if got := settings.Token("42"); got != "secret-token-1234" {
		t.Fatalf("stored token = %q", got)
	}

	if _, err := execute(t, "", "auth", "login", "--token", "default-token-9999"); err != nil {
		t.Fatalf("auth login --token error: %v", err)
	}
	if got := settings.ResolveToken("7"); got != "default-token-9999" {
		t.Fatalf("ResolveToken(7) = %q, want default token", got)
	}

	out, err := execute(t, "", "auth", "status")
	if err != nil {
		t.Fatalf("auth status error: %v", err)
	}
	for _, want := range []string{"42", "secr...1234", "default", "defa...9999", config.EnvAPIToken} {
		if !strings.Contains(out, want) {
			t.Fatalf("auth status output %q should contain %q", out, want)
		}
	}
	if strings.Contains(out, "secret-token-1234") {
		t.Fatalf("auth status leaked a token: %q", out)
	}

	if _, err := execute(t, "", "auth", "logout", "--project", "42"); err != nil {
		t.Fatalf("auth logout error: %v", err)
	}
	if got := settings.Token("42"); got != "" {
		t.Fatalf("token after logout = %q", got)
	}
	if got := settings.Token(settings.DefaultKey); got == "" {
		t.Fatalf("default token should survive a project logout")
	}

	if _, err := execute(t, "", "auth", "logout"); err != nil {
		t.Fatalf("auth logout (all) error: %v", err)
	}
	if got := len(settings.Load()); got != 0 {
		t.Fatalf("store has %d entries after logout, want 0", got)
	}
}

func TestAuthLoginEmptyInput(t *testing.T) {
	isolateEnv(t)

	if _, err := execute(t, "\n", "auth", "login"); err == nil {
		t.Fatalf("auth login with empty input should fail")
	}
}

func TestPrintTokenStatusEnv(t *testing.T) {
	isolateEnv(t)
	var buf bytes.Buffer
	printTokenStatus(&buf, settings.Store{}, "env-token-abcdef")

	out := buf.String()
	if !strings.Contains(out, "no tokens stored") {
		t.Fatalf("output %q should report an empty store", out)
	}
	if !strings.Contains(out, "env-...cdef") {
		t.Fatalf("output %q should show the masked env token", out)
	}
}

func TestErrorLines(t *testing.T) {
	err := errors.Join(errors.New("export [fr]: boom"), errors.New("export [de]: no exportFiles entry"))
	want := []string{"export [fr]: boom", "export [de]: no exportFiles entry"}

	if got := errorLines(err); !reflect.DeepEqual(got, want) {
		t.Fatalf("errorLines() = %#v, want %#v", got, want)
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "", "version")
	if err != nil {
		t.Fatalf("version error: %v", err)
	}
	if !strings.HasPrefix(out, "poeditor-connector version "+version) {
		t.Fatalf("version output = %q", out)
	}
}
