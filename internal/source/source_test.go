package source

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/dawn-toolbox/pkg/grf"
)

// minimalRSM returns a v1.1 model with a single one-triangle node.
func minimalRSM() []byte {
	var b bytes.Buffer
	le := func(v any) { _ = binary.Write(&b, binary.LittleEndian, v) }
	name := func(s string) {
		buf := make([]byte, 40)
		copy(buf, s)
		b.Write(buf)
	}
	f32 := func(vs ...float32) {
		for _, v := range vs {
			le(math.Float32bits(v))
		}
	}

	b.WriteString("GRSM")
	b.Write([]byte{1, 1})
	le(int32(0))              // animation length
	le(int32(1))              // shading
	b.Write(make([]byte, 16)) // reserved
	le(int32(0))              // textures
	name("root")
	le(int32(1)) // nodes

	name("root")
	name("")
	le(int32(0))                      // node textures
	f32(1, 0, 0, 0, 1, 0, 0, 0, 1)    // matrix
	f32(0, 0, 0, 0, 0, 0, 0, 0, 0, 1) // offset, position, angle, axis
	f32(1, 1, 1)                      // scale
	le(int32(3))
	f32(0, 0, 0, 1, 0, 0, 0, 1, 0)
	le(int32(1))
	f32(0, 0)
	le(int32(1))
	le([8]uint16{0, 1, 2, 0, 0, 0, 0, 0})
	le(int32(0)) // two-sided
	le(int32(0)) // position keys
	le(int32(0)) // rotation keys
	return b.Bytes()
}

// writeGRF writes an archive holding one zlib-compressed file.
func writeGRF(t *testing.T, name string, data []byte) string {
	t.Helper()

	var z bytes.Buffer
	zw := zlib.NewWriter(&z)
	zw.Write(data)
	zw.Close()
	payload := z.Bytes()
	aligned := (len(payload) + 7) &^ 7

	var table bytes.Buffer
	table.WriteString(name)
	table.WriteByte(0)
	binary.Write(&table, binary.LittleEndian, []uint32{uint32(len(payload)), uint32(aligned), uint32(len(data))})
	table.WriteByte(1)
	binary.Write(&table, binary.LittleEndian, uint32(0))

	var zt bytes.Buffer
	tw := zlib.NewWriter(&zt)
	tw.Write(table.Bytes())
	tw.Close()

	var out bytes.Buffer
	out.WriteString("Master of Magic")
	out.Write(make([]byte, 15))
	binary.Write(&out, binary.LittleEndian, []uint32{uint32(aligned), 0, 1 + 7, 0x200})
	out.Write(payload)
	out.Write(make([]byte, aligned-len(payload)))
	binary.Write(&out, binary.LittleEndian, []uint32{uint32(zt.Len()), uint32(table.Len())})
	out.Write(zt.Bytes())

	path := filepath.Join(t.TempDir(), "test.grf")
	require.NoError(t, os.WriteFile(path, out.Bytes(), 0o644))
	return path
}

func TestLoad_Files(t *testing.T) {
	dir := t.TempDir()
	files := map[string][]byte{
		"model.rsm":  minimalRSM(),
		"scene.yaml": []byte(sceneYAML),
		"scene.YML":  []byte(sceneYAML),
		"scene.toml": []byte(sceneTOML),
	}
	for name, data := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), data, 0o644))
	}

	tests := []struct {
		file    string
		objects int
	}{
		{"model.rsm", 1},
		{"scene.yaml", 3},
		{"scene.YML", 3},
		{"scene.toml", 3},
	}

	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			doc, err := Load(filepath.Join(dir, tt.file), Options{})
			require.NoError(t, err)
			assert.Len(t, doc.Objects, tt.objects)
		})
	}
}

func TestLoad_RSMFlatShading(t *testing.T) {
	doc, err := ParseRSM(minimalRSM(), false)
	require.NoError(t, err)

	obj := doc.Objects[0]
	assert.Equal(t, "root", obj.Name)
	assert.False(t, obj.Mesh.Smooth)
	assert.Nil(t, obj.Mesh.Colors, "v1.1 models have no vertex colours")
	assert.Len(t, obj.Mesh.Loops, 3)
}

func TestLoad_FromArchive(t *testing.T) {
	archives, err := grf.OpenSet([]string{writeGRF(t, `data\model\tree.rsm`, minimalRSM())})
	require.NoError(t, err)
	defer archives.Close()

	doc, err := Load(`data\model\tree.rsm`, Options{Archives: archives})
	require.NoError(t, err)
	assert.Len(t, doc.Objects, 1)

	_, err = Load(`data\model\missing.rsm`, Options{Archives: archives})
	assert.ErrorIs(t, err, grf.ErrNotFound)

	_, err = Load("models/missing.rsm", Options{Archives: archives})
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoad_Unknown(t *testing.T) {
	_, err := Load("scene.fbx", Options{})
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestSupported(t *testing.T) {
	assert.True(t, Supported("a/b/House.RSM"))
	assert.True(t, Supported("scene.toml"))
	assert.True(t, Supported("prontera.rsw"))
	assert.False(t, Supported("scene.dwn"))
	assert.False(t, Supported("README"))
}
