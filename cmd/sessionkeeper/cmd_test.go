package main

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/sessionkeeper/pkg/config"
	"github.com/entrhq/sessionkeeper/pkg/session"
)

const expiredPage = `<html><body><div class="banner">Your session has expired</div></body></html>`
const healthyPage = `<html><body><h1>My Drive</h1></body></html>`

func TestCheckSnapshot_File(t *testing.T) {
	dir := t.TempDir()
	expired := filepath.Join(dir, "expired.html")
	healthy := filepath.Join(dir, "healthy.html")
	require.NoError(t, os.WriteFile(expired, []byte(expiredPage), 0o600))
	require.NoError(t, os.WriteFile(healthy, []byte(healthyPage), 0o600))

	v, err := checkSnapshot(context.Background(), expired, session.DefaultRules())
	require.NoError(t, err)
	assert.Equal(t, session.Expired, v.State)
	assert.Equal(t, "Your session has expired", v.Match)

	v, err = checkSnapshot(context.Background(), healthy, session.DefaultRules())
	require.NoError(t, err)
	assert.Equal(t, session.Healthy, v.State)

	_, err = checkSnapshot(context.Background(), filepath.Join(dir, "missing.html"), session.DefaultRules())
	assert.Error(t, err)
}

func TestCheckSnapshot_URL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(`<button>Tentar novamente</button>`))
	}))
	defer srv.Close()

	v, err := checkSnapshot(context.Background(), srv.URL, session.DefaultRules())
	require.NoError(t, err)
	assert.Equal(t, session.Expired, v.State)
	assert.Equal(t, "Tentar novamente", v.Match)
}

func TestReport(t *testing.T) {
	var out bytes.Buffer

	err := report(&out, "page.html", session.Verdict{State: session.Expired, Match: "Try again"})
	assert.ErrorIs(t, err, errExpired)
	assert.Contains(t, out.String(), `page.html: expired (matched "Try again")`)

	out.Reset()
	assert.NoError(t, report(&out, "page.html", session.Verdict{State: session.Healthy}))
	assert.Equal(t, "page.html: healthy\n", out.String())

	out.Reset()
	v := session.Verdict{State: session.Healthy, ProbeErr: session.ErrDetectionInconclusive}
	assert.NoError(t, report(&out, "page.html", v))
	assert.Contains(t, out.String(), "inconclusive")
}

func TestIsURL(t *testing.T) {
	assert.True(t, isURL("https://drive.google.com"))
	assert.True(t, isURL("http://localhost:8080/x"))
	assert.False(t, isURL("saved/drive.html"))
	assert.False(t, isURL("file:///tmp/drive.html"))
}

func TestPrintTick(t *testing.T) {
	var out bytes.Buffer
	hook := printTick(&out)

	hook(session.Verdict{State: session.Healthy}, nil)
	assert.Empty(t, out.String())

	hook(session.Verdict{State: session.Expired, Match: "Try again"}, &session.Outcome{Resolved: true, ViaRetry: true})
	assert.Contains(t, out.String(), "restored: resolved_retry")

	out.Reset()
	hook(session.Verdict{State: session.Expired, Match: "Try again"}, &session.Outcome{Err: session.ErrNoCredentials})
	assert.Contains(t, out.String(), "not restored")
}

func TestVisitSteps(t *testing.T) {
	list := visitSteps(nil, []string{"https://a.example", "https://b.example"}, time.Hour)
	require.Len(t, list, 2)
	assert.Equal(t, "visit https://a.example", list[0].Name)
	assert.Equal(t, "visit https://b.example", list[1].Name)
}

func TestLoadSettings(t *testing.T) {
	for _, key := range []string{
		"SESSIONKEEPER_CONFIG", "SESSIONKEEPER_RULES_FILE", "SESSIONKEEPER_POLL_INTERVAL",
		"SESSIONKEEPER_MAX_LOGIN_ATTEMPTS", "SESSIONKEEPER_METRICS_ADDR", "GOOGLE_EMAIL", "GOOGLE_PASSWORD",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	dir := t.TempDir()
	dotenv := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(dotenv, []byte("GOOGLE_EMAIL=agent@example.com\nGOOGLE_PASSWORD=secret\nSESSIONKEEPER_POLL_INTERVAL=7s\n"), 0o600))

	oldCfg, oldEnv := cfgFile, envFiles
	defer func() { cfgFile, envFiles = oldCfg, oldEnv }()
	cfgFile = filepath.Join(dir, "config.json")
	envFiles = []string{dotenv}

	settings, err := loadSettings()
	require.NoError(t, err)
	assert.Equal(t, 7*time.Second, settings.Monitor.PollInterval)
	assert.Equal(t, 3, settings.Monitor.MaxLoginAttempts)
	assert.Equal(t, &session.Credentials{Email: "agent@example.com", Password: "secret"}, settings.Credentials)
	assert.Equal(t, session.DefaultRules(), settings.Rules)
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"version"})
	defer func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	}()

	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "sessionkeeper version "+version)
}

func TestConfigCommands(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	dotenv := filepath.Join(dir, "empty.env")
	require.NoError(t, os.WriteFile(dotenv, nil, 0o600))

	var out bytes.Buffer
	oldCfg, oldEnv := cfgFile, envFiles
	rootCmd.SetOut(&out)
	t.Cleanup(resetSetFlags)
	defer func() {
		cfgFile, envFiles = oldCfg, oldEnv
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	}()

	execute := func(args ...string) error {
		out.Reset()
		rootCmd.SetArgs(append(args, "--config", path, "--env-file", dotenv))
		return rootCmd.Execute()
	}

	assert.ErrorIs(t, execute("config", "set"), errNoChanges)
	assert.NoFileExists(t, path)

	require.NoError(t, execute("config", "set", "--email", "agent@example.com", "--poll-interval", "30s", "--headless"))
	assert.Contains(t, out.String(), "Saved "+path)

	require.NoError(t, execute("config", "set", "--password", "hunter2"))

	saved, err := config.NewDefaultManager(path)
	require.NoError(t, err)
	store := saved.Store()
	data, err := store.GetSection(config.SectionIDCredentials)
	require.NoError(t, err)
	assert.Equal(t, "agent@example.com", data["email"])
	assert.Equal(t, "hunter2", data["password"])
	data, err = store.GetSection(config.SectionIDMonitor)
	require.NoError(t, err)
	assert.Equal(t, "30s", data["poll_interval"])
	assert.Equal(t, true, data["headless"])

	require.NoError(t, execute("config", "show"))
	shown := out.String()
	assert.Contains(t, shown, "Config file:   "+path)
	assert.Contains(t, shown, "[credentials] Login Credentials")
	assert.Contains(t, shown, "email: agent@example.com")
	assert.Contains(t, shown, "password: "+maskedPassword)
	assert.NotContains(t, shown, "hunter2")
	assert.Contains(t, shown, "poll_interval: 30s")

	require.NoError(t, execute("config", "reset"))
	assert.Contains(t, out.String(), "to defaults")

	saved, err = config.NewDefaultManager(path)
	require.NoError(t, err)
	data, err = saved.Store().GetSection(config.SectionIDMonitor)
	require.NoError(t, err)
	assert.Equal(t, "2s", data["poll_interval"])
	data, err = saved.Store().GetSection(config.SectionIDCredentials)
	require.NoError(t, err)
	assert.Equal(t, "", data["email"])
}

func TestConfigSet_RejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")

	oldCfg, oldEnv := cfgFile, envFiles
	defer func() {
		cfgFile, envFiles = oldCfg, oldEnv
		rootCmd.SetArgs(nil)
	}()
	t.Cleanup(resetSetFlags)

	rootCmd.SetArgs([]string{"config", "set", "--max-login-attempts", "0", "--config", path, "--env-file", filepath.Join(dir, "none.env")})
	err := rootCmd.Execute()
	assert.ErrorContains(t, err, "max login attempts must be at least 1")
	assert.NoFileExists(t, path)
}

// resetSetFlags clears values left on the config set flags by an earlier
// Execute.
func resetSetFlags() {
	configSetCmd.Flags().VisitAll(func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	})
}

func TestJoinClose(t *testing.T) {
	closeErr := errors.New("browser did not stop")
	runErr := errors.New("step failed")

	run := func(err error, closeFn func() error) (result error) {
		defer joinClose(&result, closeFn)
		return err
	}

	assert.NoError(t, run(nil, func() error { return nil }))
	assert.ErrorIs(t, run(nil, func() error { return closeErr }), closeErr)
	assert.ErrorIs(t, run(runErr, func() error { return nil }), runErr)

	err := run(runErr, func() error { return closeErr })
	assert.ErrorIs(t, err, runErr)
	assert.ErrorIs(t, err, closeErr)
}
