package pipeline

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNewHTTPPipeline_RequiresHost(t *testing.T) {
	if _, err := NewHTTPPipeline(HTTPConfig{}); err == nil {
		t.Fatal("NewHTTPPipeline() accepted an empty host")
	}
}

func TestHTTPPipeline_Txt2Img(t *testing.T) {
	wantImage := []byte("png-bytes")
	var gotRoute string
	var gotBody map[string]interface{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotRoute = r.URL.Path
		data, _ := io.ReadAll(r.Body)
		json.Unmarshal(data, &gotBody)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"images": []string{base64.StdEncoding.EncodeToString(wantImage)},
		})
	}))
	defer server.Close()

	p, err := NewHTTPPipeline(HTTPConfig{Host: server.URL})
	if err != nil {
		t.Fatal(err)
	}

	params := validParams()
	params.LoRAs = []LoRAWeight{{Path: "loras/pixel-art-xl.safetensors", Weight: 0.9}}
	params.NegativePrompt = "blurry, text"

	image, err := p.Run(context.Background(), params)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !bytes.Equal(image, wantImage) {
		t.Errorf("Run() returned %q, want %q", image, wantImage)
	}
	if gotRoute != "/sdapi/v1/txt2img" {
		t.Errorf("route = %q, want /sdapi/v1/txt2img", gotRoute)
	}

	prompt, _ := gotBody["prompt"].(string)
	if !strings.Contains(prompt, "<lora:pixel-art-xl:0.9>") {
		t.Errorf("prompt %q missing lora tag", prompt)
	}
	if gotBody["negative_prompt"] != "blurry, text" {
		t.Errorf("negative_prompt = %v", gotBody["negative_prompt"])
	}
	override, _ := gotBody["override_settings"].(map[string]interface{})
	if override["sd_model_checkpoint"] != "sd15.safetensors" {
		t.Errorf("override_settings = %v, want checkpoint set", override)
	}
}

func TestHTTPPipeline_Img2ImgRouting(t *testing.T) {
	var gotRoute string
	var gotBody map[string]interface{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotRoute = r.URL.Path
		data, _ := io.ReadAll(r.Body)
		json.Unmarshal(data, &gotBody)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"images": []string{base64.StdEncoding.EncodeToString([]byte("edited"))},
		})
	}))
	defer server.Close()

	p, err := NewHTTPPipeline(HTTPConfig{Host: server.URL})
	if err != nil {
		t.Fatal(err)
	}

	params := validParams()
	params.Reference = []byte("reference-image")
	params.Mask = []byte("mask-image")
	params.Strength = 0.6

	if _, err := p.Run(context.Background(), params); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if gotRoute != "/sdapi/v1/img2img" {
		t.Errorf("route = %q, want /sdapi/v1/img2img", gotRoute)
	}

	inits, _ := gotBody["init_images"].([]interface{})
	if len(inits) != 1 {
		t.Fatalf("init_images = %v, want one entry", gotBody["init_images"])
	}
	decoded, err := base64.StdEncoding.DecodeString(inits[0].(string))
	if err != nil || string(decoded) != "reference-image" {
		t.Errorf("init_images[0] did not round-trip the reference")
	}
	if gotBody["mask"] == nil || gotBody["mask"] == "" {
		t.Error("mask missing from img2img request")
	}
	if gotBody["denoising_strength"] != 0.6 {
		t.Errorf("denoising_strength = %v, want 0.6", gotBody["denoising_strength"])
	}
}

func TestHTTPPipeline_ClassifiesServerFailures(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		sentinel error
	}{
		{
			name:     "oom in error body",
			status:   http.StatusInternalServerError,
			body:     `{"detail": "CUDA out of memory"}`,
			sentinel: ErrOutOfMemory,
		},
		{
			name:     "precision in detail of 200 response",
			status:   http.StatusOK,
			body:     `{"images": [], "detail": "\"LayerNormKernelImpl\" not implemented for 'Half'"}`,
			sentinel: ErrPrecisionMismatch,
		},
		{
			name:     "kernel failure",
			status:   http.StatusInternalServerError,
			body:     `{"detail": "no kernel image is available"}`,
			sentinel: ErrMissingKernel,
		},
		{
			name:     "generic failure",
			status:   http.StatusInternalServerError,
			body:     `{"detail": "something else entirely"}`,
			sentinel: ErrGenerationFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			}))
			defer server.Close()

			p, err := NewHTTPPipeline(HTTPConfig{Host: server.URL})
			if err != nil {
				t.Fatal(err)
			}
			_, err = p.Run(context.Background(), validParams())
			if !errors.Is(err, tt.sentinel) {
				t.Errorf("Run() error = %v, want %v", err, tt.sentinel)
			}
		})
	}
}

func TestHTTPPipeline_UnreachableHost(t *testing.T) {
	p, err := NewHTTPPipeline(HTTPConfig{Host: "http://127.0.0.1:1"})
	if err != nil {
		t.Fatal(err)
	}
	_, err = p.Run(context.Background(), validParams())
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("Run() error = %v, want ErrUnavailable", err)
	}
}

func TestWithLoRATags(t *testing.T) {
	got := withLoRATags("a fox", []LoRAWeight{
		{Path: "loras/pixel.safetensors", Weight: 0.9},
		{Path: `C:\models\sticker.safetensors`, Weight: 1},
	})
	want := "a fox <lora:pixel:0.9> <lora:sticker:1>"
	if got != want {
		t.Errorf("withLoRATags() = %q, want %q", got, want)
	}

	if got := withLoRATags("plain", nil); got != "plain" {
		t.Errorf("withLoRATags() with no adapters = %q, want unchanged", got)
	}
}
