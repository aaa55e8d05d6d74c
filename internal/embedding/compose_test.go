package embedding

import (
	"strings"
	"testing"

	"github.com/NGJIERU/fyp-ai-lms-sub000/internal/logger"
	"github.com/NGJIERU/fyp-ai-lms-sub000/internal/types"
)

func testLogger() *logger.Logger {
	return logger.NewNop()
}

func TestComposeMaterialTextDoublesTitle(t *testing.T) {
	m := &types.Material{
		Title:       "Graph Theory Basics",
		Description: "An introduction to graphs.",
	}
	text := ComposeMaterialText(m)
	if got := strings.Count(text, "Graph Theory Basics"); got != 2 {
		t.Fatalf("expected title twice, found %d occurrences", got)
	}
	if !strings.Contains(text, "An introduction to graphs.") {
		t.Fatal("description missing from composed text")
	}
}

func TestComposeTopicTextDoublesTitle(t *testing.T) {
	topic := &types.SyllabusTopic{
		TopicTitle:   "Dynamic Programming",
		TopicContent: "Memoization and tabulation.",
	}
	text := ComposeTopicText(topic)
	if got := strings.Count(text, "Dynamic Programming"); got != 2 {
		t.Fatalf("expected topic title twice, found %d occurrences", got)
	}
}

func TestComposeMaterialTextBoundsContent(t *testing.T) {
	m := &types.Material{
		Title:       "T",
		ContentText: strings.Repeat("x", 10_000),
	}
	text := ComposeMaterialText(m)
	if len(text) > 2200 {
		t.Fatalf("composed text should bound content, got %d chars", len(text))
	}
}
