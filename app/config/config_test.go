package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scanner.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadFullConfig(t *testing.T) {
	path := writeConfig(t, `
app:
  name: scanner-test
  version: 2.1.0
  fail_fast: true
  scan_timeout_seconds: 10
  max_concurrency: 8
auth:
  token: hunter2
rate_limit:
  enabled: true
  rps: 5
  burst: 10
catalog:
  enabled: true
extractor:
  labels: [ORG]
  min_score: 0.6
scanners:
  - name: competitors
    competitors: [Acme, Globex]
    threshold: 0.85
    redact: true
    extra_suffixes: [labs]
    catalog_group: analytics
  - name: partners
    competitors: [Initech]
`)

	require.NoError(t, Load(path))
	defer func() { C = Defaults() }()

	assert.Equal(t, "scanner-test", C.App.Name)
	assert.Equal(t, "2.1.0", C.App.Version)
	assert.True(t, C.App.FailFast)
	assert.Equal(t, int64(8), C.App.MaxConcurrency)
	assert.Equal(t, "10s", C.App.ScanTimeout().String())
	assert.Equal(t, "hunter2", C.Auth.Token)
	assert.True(t, C.RateLimit.Enabled)
	assert.True(t, C.Catalog.Enabled)
	assert.Equal(t, []string{"ORG"}, C.Extractor.Labels)

	require.Len(t, C.Scanners, 2)
	first := C.Scanners[0]
	assert.Equal(t, "competitors", first.Name)
	assert.Equal(t, []string{"Acme", "Globex"}, first.Competitors)
	assert.Equal(t, 0.85, first.Threshold)
	assert.True(t, first.Redact)
	assert.Equal(t, []string{"labs"}, first.ExtraSuffixes)
	assert.Equal(t, "analytics", first.CatalogGroup)
	assert.Equal(t, "partners", C.Scanners[1].Name)
}

func TestLoadKeepsDefaultsForMissingKeys(t *testing.T) {
	path := writeConfig(t, `
scanners:
  - name: competitors
    competitors: [Acme]
`)

	require.NoError(t, Load(path))
	defer func() { C = Defaults() }()

	assert.Equal(t, "competitor-scanner", C.App.Name)
	assert.Equal(t, "1.0.0", C.App.Version)
	assert.Equal(t, 30, C.App.ScanTimeoutSeconds)
	assert.Equal(t, int64(4), C.App.MaxConcurrency)
	assert.False(t, C.RateLimit.Enabled)
	assert.Empty(t, C.Auth.Token)
}

func TestLoadMissingFile(t *testing.T) {
	err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestExpandEnvSubstitution(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
		in   string
		want string
	}{
		{
			name: "set variable",
			env:  map[string]string{"SCANNER_TOKEN": "abc"},
			in:   "token: ${SCANNER_TOKEN}",
			want: "token: abc",
		},
		{
			name: "unset with default",
			in:   "threshold: ${SCANNER_THRESHOLD:0.75}",
			want: "threshold: 0.75",
		},
		{
			name: "set variable beats default",
			env:  map[string]string{"SCANNER_THRESHOLD": "0.9"},
			in:   "threshold: ${SCANNER_THRESHOLD:0.75}",
			want: "threshold: 0.9",
		},
		{
			name: "empty variable beats default",
			env:  map[string]string{"SCANNER_TOKEN": ""},
			in:   "token: ${SCANNER_TOKEN:fallback}",
			want: "token: ",
		},
		{
			name: "unset without default",
			in:   "token: ${SCANNER_TOKEN}",
			want: "token: ",
		},
		{
			name: "default keeps colons",
			in:   "host: ${MEILI_HOST:http://localhost:7700}",
			want: "host: http://localhost:7700",
		},
		{
			name: "multiple references",
			env:  map[string]string{"A": "1", "B": "2"},
			in:   "pair: ${A}-${B}",
			want: "pair: 1-2",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			assert.Equal(t, tc.want, string(expandEnv([]byte(tc.in))))
		})
	}
}

func TestLoadAppliesEnvSubstitution(t *testing.T) {
	t.Setenv("API_TOKEN", "from-env")

	path := writeConfig(t, `
auth:
  token: ${API_TOKEN:}
scanners:
  - name: competitors
    competitors: [Acme]
`)

	require.NoError(t, Load(path))
	defer func() { C = Defaults() }()

	assert.Equal(t, "from-env", C.Auth.Token)
}
