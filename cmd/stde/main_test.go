package main

import (
	"bytes"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const blink = `{"id":"blink","signals":[{"id":"led","type":"bit","bits":1,"io":"output","desc":"status led"}],
"states":[{"id":"off","x":100,"y":100,"code":"","desc":"","q":{"led":"0"}},{"id":"on","x":500,"y":100,"code":"","desc":"","q":{"led":"1"}}],
"transitions":[{"u":0,"v":1,"u.angle":0,"v.angle":3.14159,"cond":"tick"},{"u":1,"v":0,"u.angle":3.14159,"v.angle":0,"cond":"tick"}]}`

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--config", filepath.Join(t.TempDir(), "none.yaml")}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestInfo(t *testing.T) {
	out, err := run(t, "info", writeTemp(t, "blink.json", blink))
	require.NoError(t, err)
	assert.Contains(t, out, "ID:          blink")
	assert.Contains(t, out, "States:      2")
	assert.Contains(t, out, "[1] on")
	assert.Contains(t, out, "led=1")
	assert.Contains(t, out, "off -> on  tick")
}

func TestValidate(t *testing.T) {
	good := writeTemp(t, "good.json", blink)
	out, err := run(t, "validate", good)
	require.NoError(t, err)
	assert.Contains(t, out, "ok (2 states, 2 transitions)")

	bad := writeTemp(t, "bad.json", `{"states":[],"transitions":[{"u":3,"v":0,"u.angle":0,"v.angle":0,"cond":""}]}`)
	out, err = run(t, "validate", good, bad)
	assert.EqualError(t, err, "1 of 2 files failed validation")
	assert.Contains(t, out, "bad.json")
	assert.Contains(t, out, "out of range")
}

func TestValidateStrict(t *testing.T) {
	lonely := writeTemp(t, "lonely.json", `{"id":"","signals":[],"states":[
		{"id":"a","x":0,"y":0,"code":"","desc":"","q":{}},
		{"id":"b","x":400,"y":0,"code":"","desc":"","q":{}}],"transitions":[]}`)

	out, err := run(t, "validate", lonely)
	require.NoError(t, err)
	assert.Contains(t, out, "warning: isolated_state")

	_, err = run(t, "validate", "--strict", lonely)
	assert.Error(t, err)
}

func TestFmt(t *testing.T) {
	path := writeTemp(t, "blink.json", blink)
	out, err := run(t, "fmt", path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "{\n  \"id\": \"blink\""))

	_, err = run(t, "fmt", "-w", path)
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, out, string(data))

	out, err = run(t, "fmt", "--compact", path)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(out, "\n"))
}

func TestDot(t *testing.T) {
	out, err := run(t, "dot", writeTemp(t, "blink.json", blink))
	require.NoError(t, err)
	assert.Contains(t, out, "digraph STD {")
	assert.Contains(t, out, `label="blink";`)
	assert.Contains(t, out, `s1 -> s0 [label="tick"];`)
}

func TestRenderSVGToStdout(t *testing.T) {
	out, err := run(t, "render", "-f", "svg", "--width", "500", writeTemp(t, "blink.json", blink))
	require.NoError(t, err)
	assert.Contains(t, out, `width="500"`)
	assert.Contains(t, out, ">blink<")
}

func TestRenderPNGFile(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "blink.png")
	_, err := run(t, "render", "-o", dest, "--width", "400", "--height", "300", writeTemp(t, "blink.json", blink))
	require.NoError(t, err)

	f, err := os.Open(dest)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, 400, img.Bounds().Dx())
}

func TestRenderUnknownFormat(t *testing.T) {
	_, err := run(t, "render", "-f", "gif", writeTemp(t, "blink.json", blink))
	assert.ErrorContains(t, err, "unknown format")
}

func TestBadLogLevel(t *testing.T) {
	_, err := run(t, "--log-level", "loud", "info", writeTemp(t, "blink.json", blink))
	assert.Error(t, err)
}

func TestLayout(t *testing.T) {
	path := writeTemp(t, "blink.json", blink)
	out, err := run(t, "layout", "-a", "grid", path)
	require.NoError(t, err)
	assert.Contains(t, out, `"x": 150`)
	assert.Contains(t, out, `"x": 450`)

	_, err = run(t, "layout", "-w", "--hgap", "0", path)
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"y": 95`)
	assert.Contains(t, string(data), `"y": 295`)

	_, err = run(t, "layout", "-a", "spiral", path)
	assert.ErrorContains(t, err, "grid, circular or layered")
}
