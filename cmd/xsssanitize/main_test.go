package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/njchilds90/xsssanitizer/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(append(args, "--log-level=error"))
	err := cmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestStdin(t *testing.T) {
	got, err := execute(t, `<a href="javascript:x" onclick="y">t</a>`)
	require.NoError(t, err)
	assert.Equal(t, `<a>t</a>`, got)

	got, err = execute(t, `<script>s</script>`, "-")
	require.NoError(t, err)
	assert.Equal(t, `s`, got)
}

func TestFiles_InArgumentOrder(t *testing.T) {
	dir := t.TempDir()
	var args []string
	for i, body := range []string{
		`<p onclick="1">one</p>`,
		`<script>two</script>`,
		`<img src="javascript:3">`,
		`<b>four</b>`,
	} {
		args = append(args, writeFile(t, dir, string(rune('a'+i))+".html", body))
	}
	got, err := execute(t, "", append(args, "--jobs=2")...)
	require.NoError(t, err)
	assert.Equal(t, `<p>one</p>two<img><b>four</b>`, got)
}

func TestFiles_Write(t *testing.T) {
	dir := t.TempDir()
	dirty := writeFile(t, dir, "dirty.html", `<div onmouseover="x">hi</div>`)
	clean := writeFile(t, dir, "clean.html", `<div>fine</div>`)

	got, err := execute(t, "", dirty, clean, "--write")
	require.NoError(t, err)
	assert.Empty(t, got)

	data, err := os.ReadFile(dirty)
	require.NoError(t, err)
	assert.Equal(t, `<div>hi</div>`, string(data))

	data, err = os.ReadFile(clean)
	require.NoError(t, err)
	assert.Equal(t, `<div>fine</div>`, string(data))
}

func TestFiles_Missing(t *testing.T) {
	_, err := execute(t, "", filepath.Join(t.TempDir(), "nope.html"))
	assert.ErrorContains(t, err, "failed to read")
}

func TestPolicyFlags(t *testing.T) {
	got, err := execute(t, `<section>a<div>b</div><span class="c" title="t">d</span></section>`,
		"--remove-elements=div", "--remove-attributes=cla*", "--keep-inner-html=false")
	require.NoError(t, err)
	assert.Equal(t, `<section>a<span title="t">d</span></section>`, got)
}

func TestAllowlist(t *testing.T) {
	got, err := execute(t, `<b>x</b><script>y</script>`, "--allowlist=strict")
	require.NoError(t, err)
	assert.Equal(t, `xy`, got)

	_, err = execute(t, `x`, "--allowlist=loose")
	assert.ErrorContains(t, err, "unknown allowlist")
}

func TestPage(t *testing.T) {
	got, err := execute(t, `<!DOCTYPE html><html><head></head><body><script>x</script></body></html>`, "--page")
	require.NoError(t, err)
	assert.Equal(t, `<!DOCTYPE html><html><head></head><body>x</body></html>`, got)
}

func TestConfigFileAndEnv(t *testing.T) {
	path := writeFile(t, t.TempDir(), "xsssanitize.yaml", `
policy:
  elements_to_remove: [marquee]
  keep_inner_html: false
`)
	t.Setenv("XSSSANITIZE_POLICY_ATTRIBUTES_TO_REMOVE", "id")

	got, err := execute(t, `<marquee>gone</marquee><script>kept</script><p id="x" onclick="y">t</p>`, "--config", path)
	require.NoError(t, err)
	assert.Equal(t, `<script>kept</script><p onclick="y">t</p>`, got)
}

func TestPolicyCommand(t *testing.T) {
	got, err := execute(t, "", "policy", "--remove-elements=div,script", "--keep-inner-html=false")
	require.NoError(t, err)

	var doc struct {
		Policy config.PolicyView `yaml:"policy"`
	}
	require.NoError(t, yaml.Unmarshal([]byte(got), &doc))
	assert.Equal(t, []string{"div", "script"}, doc.Policy.ElementsToRemove)
	assert.Equal(t, []string{"on*", "accesskey"}, doc.Policy.AttributesToRemove)
	assert.False(t, doc.Policy.KeepInnerHTML)
}
