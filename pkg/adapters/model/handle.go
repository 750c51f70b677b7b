package model

import (
	"github.com/aescanero/mlsvc/pkg/ports"
	"go.uber.org/zap"
)

// Handle is the startup-time result of loading the model artifact.
// It is implemented only by Loaded and Unloaded.
type Handle interface {
	IsLoaded() bool
	Version() string
	sealed()
}

// Loaded wraps a usable classifier
type Loaded struct {
	Model   ports.Classifier
	version string
}

// Unloaded records why no model is available
type Unloaded struct {
	Reason  error
	version string
}

// NewLoaded creates a handle around a ready classifier
func NewLoaded(model ports.Classifier, version string) Loaded {
	return Loaded{Model: model, version: version}
}

// NewUnloaded creates a handle for a failed load
func NewUnloaded(reason error, version string) Unloaded {
	return Unloaded{Reason: reason, version: version}
}

func (l Loaded) IsLoaded() bool  { return true }
func (l Loaded) Version() string { return l.version }
func (Loaded) sealed()           {}

func (u Unloaded) IsLoaded() bool  { return false }
func (u Unloaded) Version() string { return u.version }
func (Unloaded) sealed()           {}

// Load reads the artifact at path. A failure is logged and produces an
// Unloaded handle; the process keeps serving in degraded mode.
func Load(path, version string, logger *zap.Logger) Handle {
	clf, err := LoadFile(path)
	if err != nil {
		logger.Warn("could not load model",
			zap.String("path", path),
			zap.String("version", version),
			zap.Error(err))
		return NewUnloaded(err, version)
	}

	logger.Info("model loaded",
		zap.String("path", path),
		zap.String("version", version),
		zap.Int("features", clf.NumFeatures()),
		zap.Int("classes", clf.NumClasses()))

	return NewLoaded(clf, version)
}
