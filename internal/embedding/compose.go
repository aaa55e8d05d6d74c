package embedding

import (
	"strings"

	"github.com/NGJIERU/fyp-ai-lms-sub000/internal/types"
)

// ComposeMaterialText builds the embedding input for a material. The title
// appears twice: it is the strongest topical signal and double weight pulls
// the vector toward it.
func ComposeMaterialText(m *types.Material) string {
	parts := []string{m.Title, m.Title, m.Description, m.Snippet}
	content := m.ContentText
	if len(content) > 2000 {
		content = content[:2000]
	}
	parts = append(parts, content)
	return joinNonEmpty(parts)
}

// ComposeTopicText builds the embedding input for a syllabus topic, with
// the topic title double-weighted over the free-text content.
func ComposeTopicText(t *types.SyllabusTopic) string {
	return joinNonEmpty([]string{t.TopicTitle, t.TopicTitle, t.TopicContent})
}

func joinNonEmpty(parts []string) string {
	kept := parts[:0]
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " ")
}
