package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/raine/ai-camera-cloud/internal/imaging"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGemini(t *testing.T, handler http.HandlerFunc) *GeminiModel {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	model, err := NewGeminiModel(context.Background(), GeminiConfig{
		APIKey:  "test-key",
		Model:   "gemini-test",
		BaseURL: ts.URL + "/",
		Options: Options{MaxTokens: 512, Temperature: lo.ToPtr(0.7)},
	})
	require.NoError(t, err)
	return model
}

func TestNewGeminiModel_NoAPIKey(t *testing.T) {
	_, err := NewGeminiModel(context.Background(), GeminiConfig{})
	assert.True(t, errors.Is(err, ErrBackendUnavailable))
}

func TestGeminiModel_Analyze(t *testing.T) {
	var body map[string]any
	model := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "models/gemini-test:generateContent"), r.URL.Path)
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &body))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"candidates": [{"content": {"role": "model", "parts": [{"text": "一把实木椅子，属于家具，适合餐厅使用。"}]}, "finishReason": "STOP"}],
			"usageMetadata": {"promptTokenCount": 120, "candidatesTokenCount": 30, "totalTokenCount": 150}
		}`))
	})

	img := &imaging.Image{Data: []byte{0x89, 0x50, 0x4E, 0x47}, MIMEType: "image/png"}
	result, err := model.Analyze(context.Background(), img, "请详细分析这个椅子物体", Options{MaxTokens: 64})
	require.NoError(t, err)

	assert.Equal(t, "一把实木椅子，属于家具，适合餐厅使用。", result.Description)
	assert.Equal(t, []string{"家具"}, result.Tags)
	assert.Equal(t, liveConfidence, result.Confidence)
	assert.Equal(t, "gemini-test", result.Model)
	assert.True(t, model.Live())

	genConfig, ok := body["generationConfig"].(map[string]any)
	require.True(t, ok, "generationConfig missing from request")
	assert.EqualValues(t, 64, genConfig["maxOutputTokens"])
	assert.InDelta(t, 0.7, genConfig["temperature"], 0.0001)
}

func TestGeminiModel_AnalyzeKeepsZeroTemperature(t *testing.T) {
	var body map[string]any
	model := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &body))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"candidates": [{"content": {"role": "model", "parts": [{"text": "一台相机"}]}}]}`))
	})

	img := &imaging.Image{Data: []byte{1, 2, 3}, MIMEType: "image/jpeg"}
	_, err := model.Analyze(context.Background(), img, "prompt", Options{Temperature: lo.ToPtr(0.0)})
	require.NoError(t, err)

	genConfig := body["generationConfig"].(map[string]any)
	require.Contains(t, genConfig, "temperature")
	assert.EqualValues(t, 0, genConfig["temperature"])
	assert.EqualValues(t, 512, genConfig["maxOutputTokens"])
}

func TestGeminiModel_ResolveOptions(t *testing.T) {
	model := &GeminiModel{defaults: Options{MaxTokens: 512, Temperature: lo.ToPtr(0.7)}}

	resolved := model.ResolveOptions(Options{})
	assert.Equal(t, 512, resolved.MaxTokens)
	assert.Equal(t, 0.7, *resolved.Temperature)

	resolved = model.ResolveOptions(Options{MaxTokens: 64, Temperature: lo.ToPtr(0.0)})
	assert.Equal(t, 64, resolved.MaxTokens)
	assert.Equal(t, 0.0, *resolved.Temperature)
}

func TestGeminiModel_AnalyzeBackendError(t *testing.T) {
	model := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error": {"code": 400, "message": "bad image", "status": "INVALID_ARGUMENT"}}`))
	})

	img := &imaging.Image{Data: []byte{1, 2, 3}, MIMEType: "image/jpeg"}
	_, err := model.Analyze(context.Background(), img, "prompt", Options{})

	var inferenceErr *InferenceError
	require.True(t, errors.As(err, &inferenceErr))
	assert.Equal(t, "gemini-test", inferenceErr.Model)
}

func TestGeminiModel_AnalyzeEmptyCandidates(t *testing.T) {
	model := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"candidates": []}`))
	})

	img := &imaging.Image{Data: []byte{1, 2, 3}, MIMEType: "image/jpeg"}
	_, err := model.Analyze(context.Background(), img, "prompt", Options{})

	var inferenceErr *InferenceError
	require.True(t, errors.As(err, &inferenceErr))
	assert.Contains(t, err.Error(), "no response from Gemini")
}

func TestCalculateGeminiCost(t *testing.T) {
	assert.InDelta(t, 0.30+2.50, calculateGeminiCost(1_000_000, 1_000_000), 1e-9)
	assert.Zero(t, calculateGeminiCost(0, 0))
}
