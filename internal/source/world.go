package source

import (
	"errors"
	"fmt"
	gomath "math"
	"path"
	"strings"

	"go.uber.org/zap"

	"github.com/Faultbox/dawn-toolbox/internal/assets"
	"github.com/Faultbox/dawn-toolbox/internal/logger"
	"github.com/Faultbox/dawn-toolbox/pkg/formats"
	"github.com/Faultbox/dawn-toolbox/pkg/host"
	"github.com/Faultbox/dawn-toolbox/pkg/math"
)

// ModelSource supplies parsed RSM models by data-relative path
// ("model/prontera/house.rsm").
type ModelSource interface {
	Model(name string) (*formats.RSM, error)
}

// WorldFiles supplies the models and the ground file a world refers to.
type WorldFiles interface {
	ModelSource
	Load(name string) ([]byte, error)
}

// ParseRSW parses a world and converts it with FromRSW. The ground named by
// the world, when present, becomes the first object (see FromGND).
func ParseRSW(data []byte, files WorldFiles, smooth bool) (*host.Document, error) {
	rsw, err := formats.ParseRSW(data)
	if err != nil {
		return nil, err
	}
	doc, err := FromRSW(rsw, files, smooth)
	if err != nil {
		return nil, err
	}
	if rsw.GndFile == "" {
		return doc, nil
	}

	ground, err := loadGround(files, rsw.GndFile)
	switch {
	case errors.Is(err, assets.ErrNotFound):
		logger.Warn("ground not found", zap.String("file", rsw.GndFile))
	case err != nil:
		return nil, err
	case ground != nil:
		doc.Objects = append([]*host.Object{ground}, doc.Objects...)
	}
	return doc, nil
}

func loadGround(files WorldFiles, name string) (*host.Object, error) {
	data, err := files.Load(name)
	if err != nil {
		return nil, err
	}
	gnd, err := formats.ParseGND(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", name, err)
	}
	return FromGND(gnd), nil
}

// FromRSW places a copy of every model instance of a world. Each instance
// contributes the objects FromRSM makes for its model, named
// "instance/node", with the instance placement folded into the model's root
// objects. Instances whose model cannot be found are skipped.
func FromRSW(rsw *formats.RSW, models ModelSource, smooth bool) (*host.Document, error) {
	doc := &host.Document{}
	skipped := 0

	for i, inst := range rsw.Models() {
		file := path.Join("model", strings.ReplaceAll(inst.ModelName, "\\", "/"))
		rsm, err := models.Model(file)
		if errors.Is(err, assets.ErrNotFound) {
			logger.Warn("model not found, instance skipped",
				zap.String("instance", inst.Name), zap.String("model", inst.ModelName))
			skipped++
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("instance %d (%s): %w", i, inst.Name, err)
		}

		name := inst.Name
		if name == "" {
			name = fmt.Sprintf("instance%d", i)
		}
		place := instanceMatrix(inst)
		for _, obj := range FromRSM(rsm, smooth).Objects {
			if obj.Parent == nil {
				obj.Matrix = place.Mul(obj.Matrix)
			}
			obj.Name = name + "/" + obj.Name
			doc.Objects = append(doc.Objects, obj)
		}
	}

	logger.Debug("world converted",
		zap.Int("instances", len(rsw.Models())),
		zap.Int("skipped", skipped),
		zap.Int("objects", len(doc.Objects)))
	return doc, nil
}

// instanceMatrix is T * Ry * Rx * Rz * S with the rotation given in degrees.
func instanceMatrix(m *formats.RSWModel) math.Mat4 {
	const toRad = gomath.Pi / 180
	rx := m.Rotation[0] * toRad
	ry := m.Rotation[1] * toRad
	rz := m.Rotation[2] * toRad

	return math.Translate(m.Position[0], m.Position[1], m.Position[2]).
		Mul(math.RotateY(ry)).
		Mul(math.RotateX(rx)).
		Mul(math.RotateZ(rz)).
		Mul(math.Scale(m.Scale[0], m.Scale[1], m.Scale[2]))
}
