package loader

import (
	"log/slog"

	"github.com/Carmen-Shannon/oxy-rootmotion/engine/model"
)

// LoaderBuilderOption is a functional option for configuring a Loader via NewLoader.
type LoaderBuilderOption func(*loader)

// WithLogger is an option builder that sets the logger used to report imports.
//
// Parameters:
//   - logger: the logger, ignored when nil
//
// Returns:
//   - LoaderBuilderOption: a function that applies the logger option to a loader
func WithLogger(logger *slog.Logger) LoaderBuilderOption {
	return func(l *loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithModel is an option builder that pre-populates the model cache with a model.
//
// Parameters:
//   - key: the cache key for the model
//   - imported: the model to cache
//
// Returns:
//   - LoaderBuilderOption: a function that applies the model option to a loader
func WithModel(key string, imported *model.ImportedModel) LoaderBuilderOption {
	return func(l *loader) {
		l.modelCache[key] = imported
	}
}
