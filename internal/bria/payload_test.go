package bria

import (
	"reflect"
	"testing"
)

const (
	testEngineBase = "https://engine.test"
	testLegacyBase = "https://legacy.test"
)

func build(t *testing.T, op Operation, p Payload) (string, map[string]any) {
	t.Helper()
	ep, ok := endpoints[op]
	if !ok {
		t.Fatalf("no endpoint for %s", op)
	}
	return buildRequest(testEngineBase, testLegacyBase, op, ep, p)
}

func TestBuildRequest_GenFillCarriesVersion(t *testing.T) {
	url, body := build(t, OpGenerativeFill, Payload{Image: "img", Mask: "mask", Prompt: "fill"})

	if url != testEngineBase+"/v2/image/edit/gen_fill" {
		t.Errorf("url = %q", url)
	}
	if body["version"] != 2 {
		t.Errorf("version = %v, want 2", body["version"])
	}
}

func TestBuildRequest_ReplaceBackgroundModeDefault(t *testing.T) {
	_, body := build(t, OpReplaceBackground, Payload{Image: "img", Prompt: "beach"})
	if body["mode"] != "high_control" {
		t.Errorf("mode = %v, want high_control default", body["mode"])
	}

	_, body = build(t, OpReplaceBackground, Payload{Image: "img", Prompt: "beach", Mode: "fast"})
	if body["mode"] != "fast" {
		t.Errorf("mode = %v, want explicit value kept", body["mode"])
	}
}

func TestBuildRequest_UpscaleCodecDefault(t *testing.T) {
	_, body := build(t, OpUpscaleVideo, Payload{Video: "https://cdn.example.com/v.mp4", DesiredIncrease: "2"})
	if body["output_container_and_codec"] != "mp4_h265" {
		t.Errorf("codec = %v, want mp4_h265 default", body["output_container_and_codec"])
	}
}

func TestBuildRequest_VideoBackgroundColorForwarded(t *testing.T) {
	_, body := build(t, OpRemoveVideoBackground, Payload{
		Video:           "https://cdn.example.com/v.mp4",
		BackgroundColor: "#00FF00",
	})
	if body["background_color"] != "#00FF00" {
		t.Errorf("background_color = %v", body["background_color"])
	}

	_, body = build(t, OpRemoveVideoBackground, Payload{Video: "https://cdn.example.com/v.mp4"})
	if _, present := body["background_color"]; present {
		t.Error("background_color should be omitted when unset")
	}
}

func TestBuildRequest_StructuredPromptImagesStripped(t *testing.T) {
	_, body := build(t, OpGenerateStructuredPrompt, Payload{
		Images: []string{"data:image/png;base64,AAAA", "https://cdn.example.com/ref.png"},
	})
	want := []string{"AAAA", "https://cdn.example.com/ref.png"}
	if !reflect.DeepEqual(body["images"], want) {
		t.Errorf("images = %v, want %v", body["images"], want)
	}
	if _, present := body["prompt"]; present {
		t.Error("prompt should be omitted when unset")
	}
}

func TestBuildGenerateImage_V2Seed(t *testing.T) {
	seed := 42
	url, body := buildGenerateImage(testEngineBase, testLegacyBase, Payload{
		Prompt: "a fox",
		Seed:   &seed,
	})

	if url != testEngineBase+"/v2/image/generate" {
		t.Errorf("url = %q", url)
	}
	if body["seed"] != 42 {
		t.Errorf("seed = %v, want 42", body["seed"])
	}
	if body["aspect_ratio"] != "1:1" {
		t.Errorf("aspect_ratio = %v, want 1:1 default", body["aspect_ratio"])
	}
}

func TestEncodeStructuredPrompt(t *testing.T) {
	if got := encodeStructuredPrompt("already a string"); got != "already a string" {
		t.Errorf("string passthrough = %q", got)
	}

	got := encodeStructuredPrompt(map[string]any{"scene": "forest"})
	if got != `{"scene":"forest"}` {
		t.Errorf("encoded = %q", got)
	}
}

func TestOperationKind(t *testing.T) {
	videoOps := []Operation{OpUpscaleVideo, OpRemoveVideoBackground, OpForegroundMask}
	for _, op := range videoOps {
		if op.Kind() != KindVideo {
			t.Errorf("%s kind = %v, want video", op, op.Kind())
		}
	}
	imageOps := []Operation{OpGenerateImage, OpRemoveBackground, OpErase, OpGenerativeFill}
	for _, op := range imageOps {
		if op.Kind() != KindImage {
			t.Errorf("%s kind = %v, want image", op, op.Kind())
		}
	}
}
