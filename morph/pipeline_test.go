package morph

import (
	"bytes"
	"context"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/b0tShaman/hotseats/data"
	"github.com/b0tShaman/hotseats/ml"
	"github.com/b0tShaman/hotseats/weights"
)

func testArch() ml.Architecture {
	return ml.Architecture{InputSize: 16, Channels: 3, Stages: []int{4, 8}, KernelSize: 3, PoolSize: 2, LatentDim: 6}
}

func newTestModels(t *testing.T, arch ml.Architecture) *Models {
	t.Helper()
	rng := rand.New(rand.NewPCG(3, 4))
	enc, err := ml.NewEncoder(arch, ml.WithSeed(9))
	require.NoError(t, err)
	enc.InitWeights(rng)
	dec, err := ml.NewDecoder(arch)
	require.NoError(t, err)
	dec.InitWeights(rng)

	models, err := NewModels(enc, dec)
	require.NoError(t, err)
	return models
}

func pngBytes(t *testing.T, size int, fill func(y, x, c int) float64) []byte {
	t.Helper()
	img := ml.NewTensor(ml.Shape{H: size, W: size, C: 3})
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			for c := 0; c < 3; c++ {
				img.Set(y, x, c, fill(y, x, c))
			}
		}
	}
	var buf bytes.Buffer
	require.NoError(t, data.EncodePNG(&buf, img))
	return buf.Bytes()
}

func chairA(t *testing.T) []byte {
	return pngBytes(t, 24, func(y, x, c int) float64 { return float64((x+c)%8) / 8 })
}

func chairB(t *testing.T) []byte {
	return pngBytes(t, 40, func(y, x, c int) float64 { return float64((y*c)%5) / 5 })
}

func TestMorphProducesOrderedFrames(t *testing.T) {
	arch := testArch()
	models := newTestModels(t, arch)
	p, err := NewPipeline(models, Options{Workers: 3})
	require.NoError(t, err)

	res, err := p.Morph(context.Background(), chairA(t), chairB(t), 10)
	require.NoError(t, err)

	require.Len(t, res.Frames, 10)
	require.Len(t, res.Latents, 10)
	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, res.LatentA.Mean, res.Latents[0])

	for i, frame := range res.Frames {
		assert.Equal(t, arch.InputShape(), frame.Shape)
		want, err := models.Decoder.Decode(res.Latents[i])
		require.NoError(t, err)
		assert.Equal(t, want.Data, frame.Data, "frame %d out of order", i)
	}
}

func TestMorphMeanSourceIsRepeatable(t *testing.T) {
	models := newTestModels(t, testArch())
	p, err := NewPipeline(models, Options{})
	require.NoError(t, err)

	first, err := p.Morph(context.Background(), chairA(t), chairB(t), 4)
	require.NoError(t, err)
	second, err := p.Morph(context.Background(), chairA(t), chairB(t), 4)
	require.NoError(t, err)
	assert.Equal(t, first.Latents, second.Latents)
	assert.NotEqual(t, first.RunID, second.RunID)
}

func TestMorphSampleSourceUsesSample(t *testing.T) {
	models := newTestModels(t, testArch())
	p, err := NewPipeline(models, Options{LatentSource: LatentSample})
	require.NoError(t, err)

	res, err := p.Morph(context.Background(), chairA(t), chairB(t), 2)
	require.NoError(t, err)
	assert.Equal(t, res.LatentA.Sample, res.Latents[0])
}

func TestMorphSingleStepReconstructsA(t *testing.T) {
	models := newTestModels(t, testArch())
	p, err := NewPipeline(models, Options{})
	require.NoError(t, err)

	res, err := p.Morph(context.Background(), chairA(t), chairB(t), 1)
	require.NoError(t, err)
	require.Len(t, res.Frames, 1)
	require.Len(t, res.Latents, 1)
	assert.Equal(t, res.LatentA.Mean, res.Latents[0])

	want, err := models.Decoder.Decode(res.LatentA.Mean)
	require.NoError(t, err)
	assert.Equal(t, want.Data, res.Frames[0].Data)
}

func TestMorphNamesTheBadInput(t *testing.T) {
	models := newTestModels(t, testArch())
	p, err := NewPipeline(models, Options{})
	require.NoError(t, err)

	_, err = p.Morph(context.Background(), chairA(t), []byte("not an image"), 5)
	require.ErrorIs(t, err, data.ErrDecode)
	assert.Contains(t, err.Error(), "image B")

	_, err = p.Morph(context.Background(), chairA(t), chairB(t), 0)
	assert.ErrorIs(t, err, ErrInvalidSteps)
}

func TestMorphHonoursCancellation(t *testing.T) {
	models := newTestModels(t, testArch())
	p, err := NewPipeline(models, Options{Workers: 1})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = p.Morph(ctx, chairA(t), chairB(t), 5)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewPipelineRejectsUnknownSource(t *testing.T) {
	_, err := NewPipeline(newTestModels(t, testArch()), Options{LatentSource: "median"})
	assert.Error(t, err)
	_, err = NewPipeline(nil, Options{})
	assert.Error(t, err)
}

func TestNewModelsRejectsMismatchedPair(t *testing.T) {
	arch := testArch()
	enc, err := ml.NewEncoder(arch)
	require.NoError(t, err)
	other := arch
	other.LatentDim = 5
	dec, err := ml.NewDecoder(other)
	require.NoError(t, err)

	_, err = NewModels(enc, dec)
	assert.ErrorIs(t, err, ml.ErrModelLoad)
}

func serveWeights(t *testing.T, files map[string]string, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path, ok := files[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		hits.Add(1)
		http.ServeFile(w, r, path)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestLoadModelsProvisionsAndLoads(t *testing.T) {
	arch := testArch()
	src := newTestModels(t, arch)
	remote := t.TempDir()
	encPath := filepath.Join(remote, "enc.gob")
	decPath := filepath.Join(remote, "dec.gob")
	require.NoError(t, src.Encoder.SaveToFile(encPath))
	require.NoError(t, src.Decoder.SaveToFile(decPath))

	var hits atomic.Int32
	srv := serveWeights(t, map[string]string{"/enc": encPath, "/dec": decPath}, &hits)

	cache := t.TempDir()
	cfg := ModelsConfig{
		Arch:        arch,
		EncoderURL:  srv.URL + "/enc",
		DecoderURL:  srv.URL + "/dec",
		EncoderPath: filepath.Join(cache, "encoder.gob"),
		DecoderPath: filepath.Join(cache, "decoder.gob"),
	}
	prov := weights.NewProvisioner(time.Second)

	models, err := LoadModels(context.Background(), cfg, prov, nil)
	require.NoError(t, err)
	assert.Equal(t, int32(2), hits.Load())

	z := []float64{0.3, -0.2, 0.1, 0, 1, -1}
	want, err := src.Decoder.Decode(z)
	require.NoError(t, err)
	got, err := models.Decoder.Decode(z)
	require.NoError(t, err)
	assert.Equal(t, want.Data, got.Data)

	_, err = LoadModels(context.Background(), cfg, prov, nil)
	require.NoError(t, err)
	assert.Equal(t, int32(2), hits.Load(), "cached artifacts must not be fetched again")
}

func TestLoadModelsRejectsSkewedWeights(t *testing.T) {
	arch := testArch()
	dir := t.TempDir()
	src := newTestModels(t, arch)
	encPath := filepath.Join(dir, "encoder.gob")
	decPath := filepath.Join(dir, "decoder.gob")
	require.NoError(t, src.Encoder.SaveToFile(encPath))
	require.NoError(t, src.Decoder.SaveToFile(decPath))

	skewed := arch
	skewed.LatentDim = 8
	_, err := LoadModels(context.Background(), ModelsConfig{Arch: skewed, EncoderPath: encPath, DecoderPath: decPath}, nil, nil)
	assert.ErrorIs(t, err, ml.ErrModelLoad)
}

func TestLoadModelsReportsProvisionFailure(t *testing.T) {
	var hits atomic.Int32
	srv := serveWeights(t, map[string]string{}, &hits)
	dir := t.TempDir()
	cfg := ModelsConfig{
		Arch:        testArch(),
		EncoderURL:  srv.URL + "/missing",
		DecoderURL:  srv.URL + "/missing",
		EncoderPath: filepath.Join(dir, "encoder.gob"),
		DecoderPath: filepath.Join(dir, "decoder.gob"),
	}
	_, err := LoadModels(context.Background(), cfg, weights.NewProvisioner(time.Second), nil)
	assert.ErrorIs(t, err, weights.ErrProvision)

	_, statErr := os.Stat(cfg.EncoderPath)
	assert.True(t, os.IsNotExist(statErr))
}

func TestLoadModelsWithoutURLsNeedsCachedFiles(t *testing.T) {
	dir := t.TempDir()
	cfg := ModelsConfig{
		Arch:        testArch(),
		EncoderPath: filepath.Join(dir, "encoder.gob"),
		DecoderPath: filepath.Join(dir, "decoder.gob"),
	}
	_, err := LoadModels(context.Background(), cfg, weights.NewProvisioner(time.Second), nil)
	assert.ErrorIs(t, err, ml.ErrModelLoad)
	assert.NotErrorIs(t, err, weights.ErrProvision)
	assert.Contains(t, err.Error(), "weights:")
}
