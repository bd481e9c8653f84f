package inference

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"dengue-platform/internal/features"
	"dengue-platform/internal/models"
	"dengue-platform/pkg/logging"
)

// ArtifactSource opens model artifacts by name. pkg/storage provides file and object
// store implementations.
type ArtifactSource interface {
	Open(ctx context.Context, name string) (io.ReadCloser, error)
}

// RegistryOptions selects where predictions are computed
type RegistryOptions struct {
	// RemoteURL, when set, sends feature matrices to an inference server instead of
	// evaluating artifact coefficients in process.
	RemoteURL     string
	RemoteTimeout time.Duration
}

// Registry holds every loaded model. It is built once and never mutated.
type Registry struct {
	models map[string]*Model
}

// ArtifactName returns the artifact file name for modelType
func ArtifactName(modelType string) string {
	return modelType + ".json"
}

// LoadRegistry loads the artifact of every supported model type from source
func LoadRegistry(ctx context.Context, source ArtifactSource, opts RegistryOptions, logger *logging.StructuredLogger) (*Registry, error) {
	reg := &Registry{models: make(map[string]*Model)}

	for _, modelType := range features.ModelTypes() {
		def, err := features.Lookup(modelType)
		if err != nil {
			return nil, err
		}

		artifact, err := readArtifact(ctx, source, modelType)
		if err != nil {
			return nil, err
		}

		model, err := buildModel(def, artifact, opts)
		if err != nil {
			return nil, fmt.Errorf("model %s: %w", modelType, err)
		}
		reg.models[modelType] = model

		logger.Info(ctx, "[MODEL_LOAD] Model loaded", logging.Fields{
			"model_type":    modelType,
			"model_version": model.Version,
			"features":      len(model.Features),
			"backend":       backendName(model.Predictor),
			"encoding":      encoderSource(model.Encoder),
		})
	}

	return reg, nil
}

func readArtifact(ctx context.Context, source ArtifactSource, modelType string) (*Artifact, error) {
	rc, err := source.Open(ctx, ArtifactName(modelType))
	if err != nil {
		return nil, fmt.Errorf("failed to open artifact for %s: %w", modelType, err)
	}
	defer rc.Close()

	a, err := DecodeArtifact(rc)
	if err != nil {
		return nil, fmt.Errorf("model %s: %w", modelType, err)
	}
	return a, nil
}

// NewRegistry builds a registry from already-loaded models
func NewRegistry(loaded ...*Model) *Registry {
	reg := &Registry{models: make(map[string]*Model, len(loaded))}
	for _, m := range loaded {
		reg.models[m.Type] = m
	}
	return reg
}

func buildModel(def *features.Definition, a *Artifact, opts RegistryOptions) (*Model, error) {
	if a.ModelType != def.ModelType() {
		return nil, fmt.Errorf("artifact declares model_type %q", a.ModelType)
	}
	if !sameColumns(a.Features, def.Features()) {
		return nil, fmt.Errorf("artifact features [%s] do not match pipeline output [%s]",
			strings.Join(a.Features, ","), strings.Join(def.Features(), ","))
	}

	m := &Model{
		Type:     def.ModelType(),
		Version:  a.Version,
		Features: def.Features(),
	}

	if opts.RemoteURL != "" {
		m.Predictor = NewHTTPPredictor(opts.RemoteURL, def.ModelType(), opts.RemoteTimeout)
	} else {
		m.Predictor = NewLinearModel(a)
	}

	if def.Grouped() {
		if len(a.Encoding) > 0 {
			version := a.EncodingVersion
			if version == "" {
				version = a.Version
			}
			m.Encoder = features.NewMappingEncoder(version, a.Encoding)
		} else {
			m.Encoder = features.LabelEncoder{}
		}
	}

	return m, nil
}

// Get returns the model for modelType
func (r *Registry) Get(modelType string) (*Model, error) {
	m, ok := r.models[modelType]
	if !ok {
		return nil, &models.UnknownModelTypeError{ModelType: modelType}
	}
	return m, nil
}

// List describes every loaded model, ordered by type
func (r *Registry) List() []Info {
	out := make([]Info, 0, len(r.models))
	for _, m := range r.models {
		info := Info{
			ModelType:      m.Type,
			Version:        m.Version,
			FeatureCount:   len(m.Features),
			Grouped:        m.Encoder != nil,
			EncodingSource: encoderSource(m.Encoder),
			Backend:        backendName(m.Predictor),
		}
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ModelType < out[j].ModelType })
	return out
}

func encoderSource(enc features.Encoder) string {
	if enc == nil {
		return ""
	}
	return enc.Source()
}

func backendName(p Predictor) string {
	switch p.(type) {
	case *LinearModel:
		return "linear"
	case *HTTPPredictor:
		return "remote"
	default:
		return "custom"
	}
}
