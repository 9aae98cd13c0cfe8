package core

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"
)

var mockTemplates = []string{
	"I understand your question: \"%[1]s\". This is an interesting topic that deserves a closer look.",
	"Good question! Let me think about \"%[1]s\" and give you a detailed answer.",
	"Based on the %[2]s model, I can say the following about \"%[1]s\": it is a multifaceted topic.",
	"Regarding \"%[1]s\": the answer depends on context, but I can suggest several approaches.",
}

// MockGenerator fills a canned template after a simulated network delay.
type MockGenerator struct {
	MinDelay time.Duration
	Jitter   time.Duration

	pick func(n int) int
}

func NewMockGenerator(minDelay, jitter time.Duration) *MockGenerator {
	return &MockGenerator{MinDelay: minDelay, Jitter: jitter, pick: rand.IntN}
}

func (g *MockGenerator) Generate(ctx context.Context, req GenerationRequest) (string, error) {
	delay := g.MinDelay
	if g.Jitter > 0 {
		delay += time.Duration(rand.Int64N(int64(g.Jitter)))
	}
	if delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-timer.C:
		}
	} else if err := ctx.Err(); err != nil {
		return "", err
	}

	pick := g.pick
	if pick == nil {
		pick = rand.IntN
	}
	reply := fmt.Sprintf(mockTemplates[pick(len(mockTemplates))], req.Prompt, ModelDisplayName(req.ModelID))
	if req.PageContext != nil && !req.PageContext.empty() {
		reply += fmt.Sprintf("\n\nTaking into account the context of the page %s, I can add that the question relates to the analyzed content.", req.PageContext.URL)
	}
	return reply, nil
}
