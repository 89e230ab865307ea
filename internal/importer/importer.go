// Package importer runs one container load end to end: decode, prepare,
// then each asset builder in turn. A failing builder is recorded on the
// Result and the remaining builders still run.
package importer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Faultbox/midgard-fbx/internal/config"
	"github.com/Faultbox/midgard-fbx/pkg/anim"
	"github.com/Faultbox/midgard-fbx/pkg/fbx"
	"github.com/Faultbox/midgard-fbx/pkg/material"
	"github.com/Faultbox/midgard-fbx/pkg/mesh"
	"github.com/Faultbox/midgard-fbx/pkg/rig"
)

// Result holds every asset built from one container. Each asset type has
// its own error; a nil error with an empty slice means the container has
// none of that asset.
type Result struct {
	LoadID  uuid.UUID
	Path    string
	Version string
	Scene   *fbx.Scene

	Rig    *rig.Rig
	RigErr error

	Meshes  []*mesh.Mesh
	MeshErr error

	Materials   []*material.Material
	MaterialErr error

	Clips   []*anim.Clip
	AnimErr error

	Elapsed time.Duration
}

// Err joins the per-asset errors.
func (r *Result) Err() error {
	return errors.Join(r.RigErr, r.MeshErr, r.MaterialErr, r.AnimErr)
}

// Option configures Import.
type Option func(*options)

type options struct {
	logger *zap.Logger
}

// WithLogger sets the logger. Every entry of one load carries its load_id.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// Import loads the container at path. Decoding and indexing failures are
// returned as the error and no Result is produced. ctx is checked between
// builders; once it is done the load is abandoned and ctx.Err is returned.
func Import(ctx context.Context, path string, cfg *config.Config, opts ...Option) (*Result, error) {
	o := options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	if cfg == nil {
		cfg = config.Default()
	}

	start := time.Now()
	res := &Result{LoadID: uuid.New(), Path: path}
	log := o.logger.With(zap.String("load_id", res.LoadID.String()), zap.String("path", path))

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	doc, err := fbx.DecodeFile(path)
	if err != nil {
		log.Error("decode failed", zap.Error(err))
		return nil, err
	}
	res.Version = doc.VersionString()

	scene, err := fbx.Prepare(doc, path)
	if err != nil {
		log.Error("prepare failed", zap.Error(err))
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	res.Scene = scene
	log.Debug("container decoded",
		zap.String("version", res.Version),
		zap.Int("objects", scene.Graph.ObjectCount()),
		zap.Int("connections", len(scene.Graph.Connections())))

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	res.Rig, res.RigErr = rig.Build(scene, rig.WithLogger(log.Named("rig")))
	if res.Rig != nil && res.RigErr == nil {
		res.RigErr = res.Rig.Err()
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	res.Meshes, res.MeshErr = mesh.Build(scene, res.Rig, mesh.WithLogger(log.Named("mesh")))

	if !cfg.Import.SkipMaterials {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res.Materials, res.MaterialErr = material.Build(scene,
			material.WithLogger(log.Named("material")),
			material.WithSearchPaths(cfg.Import.TexturePaths...),
			material.WithProbe(cfg.Import.ProbeTextures))
	}

	if !cfg.Import.SkipAnimations {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res.Clips, res.AnimErr = anim.Build(scene, res.Rig,
			anim.WithLogger(log.Named("anim")),
			anim.WithFrameRate(cfg.Import.SampleRate))
	}

	res.Elapsed = time.Since(start)
	fields := []zap.Field{
		zap.Int("bones", boneCount(res.Rig)),
		zap.Int("meshes", len(res.Meshes)),
		zap.Int("materials", len(res.Materials)),
		zap.Int("clips", len(res.Clips)),
		zap.Duration("elapsed", res.Elapsed),
	}
	if err := res.Err(); err != nil {
		log.Warn("import finished with errors", append(fields, zap.Error(err))...)
	} else {
		log.Info("import finished", fields...)
	}
	return res, nil
}

func boneCount(r *rig.Rig) int {
	if r == nil {
		return 0
	}
	return len(r.Bones)
}
