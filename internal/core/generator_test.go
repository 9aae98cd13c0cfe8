package core

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"gwi.com/chat-agent/internal/config"
)

func TestMockGeneratorTemplates(t *testing.T) {
	g := NewMockGenerator(0, 0)
	for i := range mockTemplates {
		g.pick = func(int) int { return i }
		reply, err := g.Generate(context.Background(), GenerationRequest{Prompt: "why is the sky blue", ModelID: "gpt-4o-mini"})
		if err != nil {
			t.Fatalf("template %d: %v", i, err)
		}
		if !strings.Contains(reply, `"why is the sky blue"`) {
			t.Errorf("template %d does not quote the prompt: %q", i, reply)
		}
		if strings.Contains(reply, "%!") {
			t.Errorf("template %d has a formatting error: %q", i, reply)
		}
	}

	g.pick = func(int) int { return 2 }
	reply, _ := g.Generate(context.Background(), GenerationRequest{Prompt: "x", ModelID: "gpt-4o-mini"})
	if !strings.Contains(reply, "GPT-4o Mini") {
		t.Errorf("model template should name the model: %q", reply)
	}
}

func TestMockGeneratorMentionsPageContext(t *testing.T) {
	g := NewMockGenerator(0, 0)
	reply, err := g.Generate(context.Background(), GenerationRequest{
		Prompt:      "summarize",
		ModelID:     "gpt-4o",
		PageContext: &PageContext{Content: "lots of text", URL: "https://example.com/post"},
	})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if !strings.Contains(reply, "https://example.com/post") {
		t.Errorf("reply should mention the analyzed page: %q", reply)
	}
}

func TestMockGeneratorHonoursCancellation(t *testing.T) {
	g := NewMockGenerator(time.Minute, 0)
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err := g.Generate(ctx, GenerationRequest{Prompt: "x"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if time.Since(start) > 5*time.Second {
		t.Fatal("generator did not abandon on cancel")
	}
}

func TestBuildUserPrompt(t *testing.T) {
	plain := BuildUserPrompt(GenerationRequest{Prompt: "hello"})
	if plain != "hello" {
		t.Errorf("prompt without context = %q", plain)
	}

	withPage := BuildUserPrompt(GenerationRequest{
		Prompt:      "what is this about?",
		PageContext: &PageContext{Content: "  Go is a language.  ", URL: "https://go.dev"},
	})
	for _, want := range []string{"https://go.dev", "--- CONTEXT START ---\nGo is a language.\n--- CONTEXT END ---", "what is this about?"} {
		if !strings.Contains(withPage, want) {
			t.Errorf("prompt %q missing %q", withPage, want)
		}
	}

	blank := BuildUserPrompt(GenerationRequest{Prompt: "q", PageContext: &PageContext{Content: "   "}})
	if blank != "q" {
		t.Errorf("blank context should be ignored, got %q", blank)
	}
}

func TestNewGenerator(t *testing.T) {
	gen, closeFn, err := NewGenerator(context.Background(), config.Config{GeneratorBackend: config.GeneratorMock}, nil)
	if err != nil {
		t.Fatalf("NewGenerator(mock) failed: %v", err)
	}
	if _, ok := gen.(*MockGenerator); !ok {
		t.Errorf("got %T, want *MockGenerator", gen)
	}
	if err := closeFn(); err != nil {
		t.Errorf("close failed: %v", err)
	}

	gen, _, err = NewGenerator(context.Background(), config.Config{GeneratorBackend: config.GeneratorOpenAI, OpenAIAPIKey: "sk-test"}, nil)
	if err != nil {
		t.Fatalf("NewGenerator(openai) failed: %v", err)
	}
	if _, ok := gen.(*OpenAIGenerator); !ok {
		t.Errorf("got %T, want *OpenAIGenerator", gen)
	}

	if _, _, err := NewGenerator(context.Background(), config.Config{GeneratorBackend: "oracle"}, nil); err == nil {
		t.Error("expected error for unknown backend")
	}
}
