package matching

import (
	"encoding/json"
	"fmt"
	"log"
	"math"
	"math/rand"
	"os"
)

// layerSizes is the fixed network shape: 5 features in, one score out.
// Hidden layers use ReLU, the output layer sigmoid.
var layerSizes = []int{5, 8, 4, 1}

// fallbackSeed makes the untrained fallback model deterministic, so two
// instances that both fail to load weights still rank identically.
const fallbackSeed = 42

type layer struct {
	// weights[i][j] is the weight from input j to neuron i.
	Weights [][]float64 `json:"weights"`
	Biases  []float64   `json:"biases"`
}

type modelFile struct {
	Layers []layer `json:"layers"`
}

// Model is a small dense network scoring a feature vector to [0,1]. It is
// immutable after load, so one instance serves all goroutines.
type Model struct {
	layers  []layer
	trained bool
}

// LoadModel reads trained weights from a JSON file. Any failure — missing
// file, bad JSON, wrong shape — falls back to a deterministic random
// initialization of the same architecture so the service keeps serving,
// flagged on the model source gauge.
func LoadModel(path string) *Model {
	model, err := loadTrained(path)
	if err != nil {
		log.Printf("⚠️ Failed to load model weights from %s, using fallback: %v", path, err)
		modelSource.Set(0)
		return fallbackModel()
	}

	log.Printf("✅ Loaded trained model weights from %s", path)
	modelSource.Set(1)
	return model
}

func loadTrained(path string) (*Model, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var file modelFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("invalid model file: %w", err)
	}

	if len(file.Layers) != len(layerSizes)-1 {
		return nil, fmt.Errorf("expected %d layers, got %d", len(layerSizes)-1, len(file.Layers))
	}
	for i, l := range file.Layers {
		in, out := layerSizes[i], layerSizes[i+1]
		if len(l.Weights) != out || len(l.Biases) != out {
			return nil, fmt.Errorf("layer %d: expected %d neurons", i, out)
		}
		for _, row := range l.Weights {
			if len(row) != in {
				return nil, fmt.Errorf("layer %d: expected %d inputs per neuron", i, in)
			}
		}
	}

	return &Model{layers: file.Layers, trained: true}, nil
}

func fallbackModel() *Model {
	rng := rand.New(rand.NewSource(fallbackSeed))

	layers := make([]layer, len(layerSizes)-1)
	for i := range layers {
		in, out := layerSizes[i], layerSizes[i+1]
		l := layer{
			Weights: make([][]float64, out),
			Biases:  make([]float64, out),
		}
		for n := 0; n < out; n++ {
			l.Weights[n] = make([]float64, in)
			for j := 0; j < in; j++ {
				l.Weights[n][j] = rng.Float64() - 0.5
			}
			l.Biases[n] = rng.Float64() - 0.5
		}
		layers[i] = l
	}

	return &Model{layers: layers}
}

// Trained reports whether real weights were loaded, as opposed to the
// random fallback.
func (m *Model) Trained() bool {
	return m.trained
}

// Score runs the forward pass and returns a value in (0,1).
func (m *Model) Score(features []float64) float64 {
	values := features
	last := len(m.layers) - 1

	for i, l := range m.layers {
		next := make([]float64, len(l.Weights))
		for n, row := range l.Weights {
			sum := l.Biases[n]
			for j, w := range row {
				sum += w * values[j]
			}
			if i == last {
				next[n] = sigmoid(sum)
			} else {
				next[n] = relu(sum)
			}
		}
		values = next
	}

	return values[0]
}

func relu(x float64) float64 {
	return math.Max(0, x)
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}
