package main

import (
	"bytes"
	"context"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/dawn-toolbox/internal/config"
	"github.com/Faultbox/dawn-toolbox/internal/source"
	"github.com/Faultbox/dawn-toolbox/pkg/dwn"
)

const sceneYAML = `
objects:
  - name: base
    mesh:
      vertices: [[0, 0, 0], [1, 0, 0], [1, 1, 0], [0, 1, 0]]
      polygons: [[0, 1, 2, 3]]
  - name: arm
    parent: base
    position: [0, 2, 0]
    mesh:
      vertices: [[0, 0, 0], [1, 0, 0], [0, 1, 0]]
      polygons: [[0, 1, 2]]
`

// setup writes the sample scene and an empty config file so the user's own
// config never leaks into a test.
func setup(t *testing.T) (dir, input, cfg string) {
	t.Helper()
	dir = t.TempDir()
	input = filepath.Join(dir, "scene.yaml")
	cfg = filepath.Join(dir, "dwntool.yaml")
	require.NoError(t, os.WriteFile(input, []byte(sceneYAML), 0644))
	require.NoError(t, os.WriteFile(cfg, nil, 0644))
	return dir, input, cfg
}

func exportScene(t *testing.T) string {
	t.Helper()
	dir, input, cfg := setup(t)
	out := filepath.Join(dir, "out")

	var stdout bytes.Buffer
	require.NoError(t, run("export", []string{"-config", cfg, "-o", out, input}, &stdout))
	assert.Contains(t, stdout.String(), "(2 objects,")
	return filepath.Join(out, "scene"+dwn.Extension)
}

func TestExport(t *testing.T) {
	path := exportScene(t)

	s, err := dwn.DecodeFile(path)
	require.NoError(t, err)
	assert.Len(t, s.Objects, 2)
	assert.Equal(t, []int{0}, s.Roots())
	assert.Equal(t, []int{1}, s.TransformNodes[0].Children)
}

func TestExportFailures(t *testing.T) {
	dir, input, cfg := setup(t)
	missing := filepath.Join(dir, "missing.yaml")

	var stdout bytes.Buffer
	err := run("x", []string{"-config", cfg, "-o", dir, input, missing}, &stdout)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2 exports failed")
	assert.FileExists(t, filepath.Join(dir, "scene.dwn"))
}

func TestInfo(t *testing.T) {
	path := exportScene(t)

	var stdout bytes.Buffer
	require.NoError(t, run("info", []string{path}, &stdout))

	out := stdout.String()
	assert.Contains(t, out, "DWNSCENE v1")
	for _, tag := range []string{dwn.TagAccessors, dwn.TagMeshes, dwn.TagObjects, dwn.TagTransformNodes, dwn.TagVertexLayouts, dwn.TagBuffers} {
		assert.Contains(t, out, tag)
	}
	assert.Contains(t, out, "  node 0: object 0, 2 triangles")
	assert.Contains(t, out, "    node 1: object 1, 1 triangles")
}

func TestDump(t *testing.T) {
	path := exportScene(t)

	var stdout bytes.Buffer
	require.NoError(t, run("dump", []string{path}, &stdout))

	out := stdout.String()
	assert.True(t, strings.HasPrefix(out, "# DWNSCENE v1"))
	assert.Contains(t, out, "Position@1 Normal@2")
	assert.Contains(t, out, "Mesh mesh=0")
	assert.Contains(t, out, "children=[1]")
}

func TestInfoWorld(t *testing.T) {
	data := []byte("GRSW\x01\x02")
	gnd := make([]byte, 40)
	copy(gnd, "town.gnd")
	data = append(data, make([]byte, 40)...)
	data = append(data, gnd...)
	data = append(data, 0, 0, 0, 0) // no objects

	path := filepath.Join(t.TempDir(), "town.rsw")
	require.NoError(t, os.WriteFile(path, data, 0644))

	var stdout bytes.Buffer
	require.NoError(t, run("info", []string{path}, &stdout))
	assert.Contains(t, stdout.String(), "Version: 1.2")
	assert.Contains(t, stdout.String(), "Ground:  town.gnd")
	assert.Contains(t, stdout.String(), "Model:   0")
}

func TestInfoBadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.dwn")
	require.NoError(t, os.WriteFile(path, []byte("NOTASCENE"), 0644))

	err := run("info", []string{path}, &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad.dwn")
}

func TestConfigInit(t *testing.T) {
	dir := t.TempDir()

	var stdout bytes.Buffer
	require.NoError(t, run("config", []string{"init", dir}, &stdout))

	path := filepath.Join(dir, config.FileName)
	assert.Equal(t, "Wrote "+path+"\n", stdout.String())

	cfg, err := config.Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
}

func TestUsage(t *testing.T) {
	tests := []struct {
		command string
		args    []string
	}{
		{"export", nil},
		{"watch", nil},
		{"info", nil},
		{"dump", []string{"a.dwn", "b.dwn"}},
		{"config", nil},
		{"config", []string{"reset"}},
	}
	for _, tt := range tests {
		t.Run(tt.command, func(t *testing.T) {
			err := run(tt.command, tt.args, &bytes.Buffer{})
			assert.ErrorIs(t, err, errUsage)
		})
	}
}

func TestWatchUnsupportedInput(t *testing.T) {
	err := run("watch", []string{"scene.fbx"}, &bytes.Buffer{})
	assert.ErrorIs(t, err, source.ErrUnknownFormat)
}

func TestUnknownCommand(t *testing.T) {
	err := run("frobnicate", nil, &bytes.Buffer{})
	require.Error(t, err)
	assert.NotErrorIs(t, err, errUsage)
	assert.Contains(t, err.Error(), "unknown command")
}

func TestHelp(t *testing.T) {
	var stdout bytes.Buffer
	require.NoError(t, run("help", nil, &stdout))
	assert.Contains(t, stdout.String(), "dwntool <command>")
}

// syncBuffer lets the test read output while watch is still writing it.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestWatch(t *testing.T) {
	dir, input, cfg := setup(t)

	flags := config.RegisterFlags(flag.NewFlagSet("watch", flag.ContinueOnError))
	flags.Config = cfg
	s, err := newSession(flags)
	require.NoError(t, err)
	defer s.Close()

	ctx, cancel := context.WithCancel(context.Background())
	var stdout syncBuffer
	done := make(chan error, 1)
	go func() { done <- s.watch(ctx, input, 10*time.Millisecond, &stdout) }()

	exports := func() int { return strings.Count(stdout.String(), " -> ") }
	require.Eventually(t, func() bool { return exports() == 1 }, 5*time.Second, 10*time.Millisecond)

	// Keep rewriting until the watcher is known to be registered.
	require.Eventually(t, func() bool {
		_ = os.WriteFile(input, []byte(sceneYAML), 0644)
		return exports() >= 2
	}, 5*time.Second, 100*time.Millisecond)
	assert.FileExists(t, filepath.Join(dir, "scene.dwn"))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
	}
}
