package formats

import (
	"errors"
	"testing"
)

// rswBuilder assembles RSW test files.
type rswBuilder struct {
	rsmBuilder
	version RSWVersion
}

func (b *rswBuilder) fixed(s string, size int) {
	buf := make([]byte, size)
	copy(buf, s)
	b.Write(buf)
}

func (b *rswBuilder) header(objects int) {
	v := b.version
	b.WriteString("GRSW")
	b.u8(v.Major)
	b.u8(v.Minor)
	switch {
	case v.AtLeast(2, 5):
		b.i32(int32(v.BuildNumber))
		b.u8(0)
	case v.AtLeast(2, 2):
		b.u8(uint8(v.BuildNumber))
	}
	b.fixed("prontera.ini", rswFileNameSize)
	b.fixed("prontera.gnd", rswFileNameSize)
	if v.AtLeast(1, 4) {
		b.fixed("prontera.gat", rswFileNameSize)
		b.fixed("", rswFileNameSize)
	}
	if v.AtLeast(1, 3) && !v.AtLeast(2, 6) {
		b.f32(-1.5)
		b.i32(0)
		b.f32(1, 2, 3)
		b.i32(3)
	}
	if v.AtLeast(1, 5) {
		b.i32(45)
		b.i32(30)
		b.f32(1, 1, 1)
		b.f32(0.3, 0.3, 0.3)
	}
	if v.AtLeast(1, 7) {
		b.f32(0.5)
	}
	if v.AtLeast(1, 6) {
		b.i32(-500)
		b.i32(500)
		b.i32(-500)
		b.i32(500)
	}
	b.i32(int32(objects))
}

func (b *rswBuilder) model(name, file string, pos, rot, scale [3]float32) {
	b.i32(int32(RSWObjectModel))
	b.fixed(name, rswFileNameSize)
	b.i32(0)
	b.f32(1)
	b.i32(0)
	if b.version.AtLeast(2, 6) && b.version.BuildNumber >= 162 {
		b.u8(0)
	}
	b.fixed(file, rswLongNameSize)
	b.fixed("", rswLongNameSize)
	b.f32(pos[:]...)
	b.f32(rot[:]...)
	b.f32(scale[:]...)
}

func (b *rswBuilder) light(name string) {
	b.i32(int32(RSWObjectLight))
	b.fixed(name, rswLongNameSize)
	b.f32(1, 2, 3, 1, 1, 1, 50)
}

func (b *rswBuilder) sound(name string) {
	b.i32(int32(RSWObjectSound))
	b.fixed(name, rswLongNameSize)
	b.fixed("bird.wav", rswLongNameSize)
	b.f32(1, 2, 3, 0.8)
	b.i32(10)
	b.i32(10)
	b.f32(100)
	if b.version.AtLeast(2, 0) {
		b.f32(4)
	}
}

func (b *rswBuilder) effect(name string) {
	b.i32(int32(RSWObjectEffect))
	b.fixed(name, rswLongNameSize)
	b.f32(1, 2, 3)
	b.i32(47)
	b.f32(0, 1, 2, 3, 4)
}

func makeRSW(v RSWVersion) []byte {
	b := &rswBuilder{version: v}
	b.header(5)
	b.model("house01", `prontera\house.rsm`, [3]float32{10, -5, 20}, [3]float32{0, 90, 0}, [3]float32{1, 1, 1})
	b.light("lamp")
	b.sound("birds")
	b.effect("smoke")
	b.model("tree", `tree.rsm`, [3]float32{-3, 0, 4}, [3]float32{}, [3]float32{2, 2, 2})
	return b.Bytes()
}

func TestParseRSW_MagicValidation(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		wantErr error
	}{
		{"invalid magic", append([]byte("XXXX"), makeRSW(RSWVersion{Major: 2, Minor: 1})[4:]...), ErrInvalidRSWMagic},
		{"empty data", []byte{}, ErrTruncatedRSWData},
		{"truncated magic", []byte("GRS"), ErrTruncatedRSWData},
		{"missing version", []byte("GRSW\x02"), ErrTruncatedRSWData},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRSW(tt.data)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("got error %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseRSW_Versions(t *testing.T) {
	tests := []struct {
		name    string
		version RSWVersion
		wantErr bool
	}{
		{"v1.2", RSWVersion{Major: 1, Minor: 2}, false},
		{"v1.4", RSWVersion{Major: 1, Minor: 4}, false},
		{"v1.9", RSWVersion{Major: 1, Minor: 9}, false},
		{"v2.1", RSWVersion{Major: 2, Minor: 1}, false},
		{"v2.2", RSWVersion{Major: 2, Minor: 2, BuildNumber: 1}, false},
		{"v2.5", RSWVersion{Major: 2, Minor: 5, BuildNumber: 161}, false},
		{"v2.6.162", RSWVersion{Major: 2, Minor: 6, BuildNumber: 162}, false},
		{"v0.1", RSWVersion{Major: 0, Minor: 1}, true},
		{"v2.7", RSWVersion{Major: 2, Minor: 7}, true},
		{"v3.0", RSWVersion{Major: 3, Minor: 0}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rsw, err := ParseRSW(makeRSW(tt.version))
			if tt.wantErr {
				if !errors.Is(err, ErrUnsupportedRSWVersion) {
					t.Fatalf("got error %v, want ErrUnsupportedRSWVersion", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if rsw.Version != tt.version {
				t.Errorf("version = %+v, want %+v", rsw.Version, tt.version)
			}
			if len(rsw.Objects) != 5 {
				t.Fatalf("got %d objects, want 5", len(rsw.Objects))
			}
			if got := len(rsw.Models()); got != 2 {
				t.Errorf("got %d models, want 2", got)
			}
		})
	}
}

func TestParseRSW_Objects(t *testing.T) {
	rsw, err := ParseRSW(makeRSW(RSWVersion{Major: 2, Minor: 1}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if rsw.GndFile != "prontera.gnd" || rsw.GatFile != "prontera.gat" {
		t.Errorf("file references = %q, %q", rsw.GndFile, rsw.GatFile)
	}
	if rsw.Water.Level != -1.5 || rsw.Water.AnimSpeed != 3 {
		t.Errorf("water = %+v", rsw.Water)
	}
	if rsw.Light.Longitude != 45 || rsw.Light.Opacity != 0.5 {
		t.Errorf("light = %+v", rsw.Light)
	}

	wantTypes := []RSWObjectType{RSWObjectModel, RSWObjectLight, RSWObjectSound, RSWObjectEffect, RSWObjectModel}
	wantNames := []string{"house01", "lamp", "birds", "smoke", "tree"}
	for i, obj := range rsw.Objects {
		if obj.Type != wantTypes[i] || obj.Name != wantNames[i] {
			t.Errorf("object %d = %s %q, want %s %q", i, obj.Type, obj.Name, wantTypes[i], wantNames[i])
		}
	}

	house := rsw.Objects[0].Model
	if house.ModelName != `prontera\house.rsm` {
		t.Errorf("model name = %q", house.ModelName)
	}
	if house.Position != [3]float32{10, -5, 20} || house.Rotation != [3]float32{0, 90, 0} {
		t.Errorf("house placement = %v %v", house.Position, house.Rotation)
	}
	if tree := rsw.Objects[4].Model; tree.Scale != [3]float32{2, 2, 2} {
		t.Errorf("tree scale = %v", tree.Scale)
	}

	counts := rsw.CountByType()
	if counts[RSWObjectModel] != 2 || counts[RSWObjectSound] != 1 {
		t.Errorf("counts = %v", counts)
	}
}

func TestParseRSW_UnknownObjectType(t *testing.T) {
	b := &rswBuilder{version: RSWVersion{Major: 2, Minor: 1}}
	b.header(1)
	b.i32(9)
	b.fixed("mystery", rswLongNameSize)

	_, err := ParseRSW(b.Bytes())
	if !errors.Is(err, ErrUnknownObjectType) {
		t.Errorf("got error %v, want ErrUnknownObjectType", err)
	}
}

func TestParseRSW_Truncated(t *testing.T) {
	data := makeRSW(RSWVersion{Major: 2, Minor: 1})
	for _, n := range []int{10, 100, len(data) - 1} {
		if _, err := ParseRSW(data[:n]); !errors.Is(err, ErrTruncatedRSWData) {
			t.Errorf("len %d: got error %v, want ErrTruncatedRSWData", n, err)
		}
	}
}

func TestParseRSW_HugeObjectCount(t *testing.T) {
	b := &rswBuilder{version: RSWVersion{Major: 1, Minor: 9}}
	b.header(1 << 30)

	if _, err := ParseRSW(b.Bytes()); !errors.Is(err, ErrTruncatedRSWData) {
		t.Errorf("got error %v, want ErrTruncatedRSWData", err)
	}
}

func TestRSWVersion_String(t *testing.T) {
	if got := (RSWVersion{Major: 2, Minor: 1}).String(); got != "2.1" {
		t.Errorf("got %q", got)
	}
	if got := (RSWVersion{Major: 2, Minor: 6, BuildNumber: 162}).String(); got != "2.6.162" {
		t.Errorf("got %q", got)
	}
}
