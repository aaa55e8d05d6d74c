package dedup

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/NGJIERU/fyp-ai-lms-sub000/internal/logger"
	"github.com/NGJIERU/fyp-ai-lms-sub000/internal/repos"
	"github.com/NGJIERU/fyp-ai-lms-sub000/internal/types"
)

const titleSimilarityThreshold = 0.85

var (
	arxivIDPattern  = regexp.MustCompile(`(\d{4}\.\d{4,5})`)
	punctPattern    = regexp.MustCompile(`[^\w\s]`)
	trackingExact   = map[string]bool{"ref": true, "source": true, "fbclid": true, "gclid": true, "mc_cid": true, "mc_eid": true, "feature": true}
	trackingPrefix  = "utm_"
)

// MatchType tags how a duplicate was detected.
type MatchType string

const (
	MatchURL             MatchType = "url"
	MatchContentHash     MatchType = "content_hash"
	MatchTitleSimilarity MatchType = "title_similarity"
)

// Match is one detected duplicate of a material.
type Match struct {
	MaterialID uuid.UUID `json:"material_id"`
	Title      string    `json:"title"`
	MatchType  MatchType `json:"match_type"`
	Confidence float64   `json:"confidence"`
}

// Group is a set of persisted materials that duplicate each other; KeepID
// is the recommended survivor (highest quality score).
type Group struct {
	MatchType   MatchType   `json:"match_type"`
	Key         string      `json:"key"`
	KeepID      uuid.UUID   `json:"keep_id"`
	MaterialIDs []uuid.UUID `json:"material_ids"`
}

type Deduplicator struct {
	db        *gorm.DB
	log       *logger.Logger
	materials repos.MaterialRepo
	mappings  repos.MappingRepo
}

func New(db *gorm.DB, baseLog *logger.Logger, materials repos.MaterialRepo, mappings repos.MappingRepo) *Deduplicator {
	return &Deduplicator{
		db:        db,
		log:       baseLog.With("component", "Deduplicator"),
		materials: materials,
		mappings:  mappings,
	}
}

// NormalizeURL produces the canonical form of a URL: scheme and host
// lower-cased, www. stripped, tracking parameters removed, with YouTube
// and arXiv collapsed to their id-based canonical addresses. Path and
// query values keep their case since video ids are case-sensitive.
// Applying it twice is a no-op.
func NormalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return strings.ToLower(raw)
	}

	host := strings.TrimPrefix(strings.ToLower(parsed.Hostname()), "www.")

	switch {
	case host == "youtube.com" || host == "m.youtube.com":
		if id := parsed.Query().Get("v"); id != "" {
			return "https://youtube.com/watch?v=" + id
		}
	case host == "youtu.be":
		if id := strings.Trim(parsed.Path, "/"); id != "" {
			return "https://youtube.com/watch?v=" + id
		}
	case host == "arxiv.org" || host == "export.arxiv.org":
		if m := arxivIDPattern.FindString(parsed.Path); m != "" {
			return "https://arxiv.org/abs/" + m
		}
	}

	query := parsed.Query()
	for key := range query {
		folded := strings.ToLower(key)
		if strings.HasPrefix(folded, trackingPrefix) || trackingExact[folded] {
			query.Del(key)
		}
	}

	path := strings.TrimRight(parsed.Path, "/")
	normalized := strings.ToLower(parsed.Scheme) + "://" + host + path
	if encoded := query.Encode(); encoded != "" {
		normalized += "?" + encoded
	}
	return normalized
}

// ContentHash hashes whitespace-collapsed, lower-cased text. Empty input
// yields an empty string rather than the hash of "", so empty materials
// never collide with each other.
func ContentHash(text string) string {
	collapsed := strings.ToLower(strings.Join(strings.Fields(text), " "))
	if collapsed == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(collapsed))
	return hex.EncodeToString(sum[:])
}

// TitleSimilarity is a Ratcliff/Obershelp sequence ratio over the titles
// with punctuation stripped and case folded. Result is in [0,1].
func TitleSimilarity(a, b string) float64 {
	ca := cleanTitle(a)
	cb := cleanTitle(b)
	if ca == "" && cb == "" {
		return 1.0
	}
	if ca == "" || cb == "" {
		return 0.0
	}
	matched := matchingChars([]rune(ca), []rune(cb))
	return 2.0 * float64(matched) / float64(len([]rune(ca))+len([]rune(cb)))
}

func cleanTitle(s string) string {
	s = punctPattern.ReplaceAllString(strings.ToLower(s), "")
	return strings.Join(strings.Fields(s), " ")
}

// matchingChars counts characters in common the way difflib does: longest
// common substring, then recurse on both flanks.
func matchingChars(a, b []rune) int {
	ai, bi, size := longestCommonSubstring(a, b)
	if size == 0 {
		return 0
	}
	total := size
	total += matchingChars(a[:ai], b[:bi])
	total += matchingChars(a[ai+size:], b[bi+size:])
	return total
}

func longestCommonSubstring(a, b []rune) (int, int, int) {
	bestA, bestB, bestLen := 0, 0, 0
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				curr[j] = prev[j-1] + 1
				if curr[j] > bestLen {
					bestLen = curr[j]
					bestA = i - bestLen
					bestB = j - bestLen
				}
			} else {
				curr[j] = 0
			}
		}
		prev, curr = curr, prev
	}
	return bestA, bestB, bestLen
}

// FindDuplicates checks a material against all other persisted materials:
// exact normalized-URL match first, then content-hash match, then
// same-source title similarity. Matches are unique per material id with
// the strongest match type winning.
func (d *Deduplicator) FindDuplicates(ctx context.Context, material *types.Material) ([]Match, error) {
	if material == nil {
		return nil, nil
	}
	candidates, err := d.materials.ListAll(ctx, nil, 0)
	if err != nil {
		return nil, fmt.Errorf("list materials: %w", err)
	}

	matches := make([]Match, 0, 4)
	seen := map[uuid.UUID]bool{material.ID: true}
	targetURL := NormalizeURL(material.URL)

	for _, c := range candidates {
		if seen[c.ID] {
			continue
		}
		if targetURL != "" && NormalizeURL(c.URL) == targetURL {
			matches = append(matches, Match{MaterialID: c.ID, Title: c.Title, MatchType: MatchURL, Confidence: 1.0})
			seen[c.ID] = true
		}
	}

	if material.ContentHash != "" {
		for _, c := range candidates {
			if seen[c.ID] || c.ContentHash == "" {
				continue
			}
			if c.ContentHash == material.ContentHash {
				matches = append(matches, Match{MaterialID: c.ID, Title: c.Title, MatchType: MatchContentHash, Confidence: 1.0})
				seen[c.ID] = true
			}
		}
	}

	for _, c := range candidates {
		if seen[c.ID] || !strings.EqualFold(c.SourceName, material.SourceName) {
			continue
		}
		if sim := TitleSimilarity(material.Title, c.Title); sim >= titleSimilarityThreshold {
			matches = append(matches, Match{MaterialID: c.ID, Title: c.Title, MatchType: MatchTitleSimilarity, Confidence: sim})
			seen[c.ID] = true
		}
	}

	return matches, nil
}

// ScanAllDuplicates groups every persisted material by normalized URL and
// by content hash and reports groups larger than one, recommending the
// highest-quality member as the keeper.
func (d *Deduplicator) ScanAllDuplicates(ctx context.Context, limit int) ([]Group, error) {
	materials, err := d.materials.ListAll(ctx, nil, limit)
	if err != nil {
		return nil, fmt.Errorf("list materials: %w", err)
	}

	byURL := make(map[string][]*types.Material)
	byHash := make(map[string][]*types.Material)
	for _, m := range materials {
		if u := NormalizeURL(m.URL); u != "" {
			byURL[u] = append(byURL[u], m)
		}
		if m.ContentHash != "" {
			byHash[m.ContentHash] = append(byHash[m.ContentHash], m)
		}
	}

	groups := make([]Group, 0)
	inGroup := make(map[uuid.UUID]bool)
	appendGroups := func(buckets map[string][]*types.Material, mt MatchType) {
		for key, members := range buckets {
			if len(members) < 2 {
				continue
			}
			fresh := false
			for _, m := range members {
				if !inGroup[m.ID] {
					fresh = true
				}
			}
			if !fresh {
				continue
			}
			keep := members[0]
			ids := make([]uuid.UUID, 0, len(members))
			for _, m := range members {
				ids = append(ids, m.ID)
				inGroup[m.ID] = true
				if m.QualityScore > keep.QualityScore {
					keep = m
				}
			}
			groups = append(groups, Group{MatchType: mt, Key: key, KeepID: keep.ID, MaterialIDs: ids})
		}
	}
	appendGroups(byURL, MatchURL)
	appendGroups(byHash, MatchContentHash)

	d.log.Info("Duplicate scan finished", "materials", len(materials), "groups", len(groups))
	return groups, nil
}

// MergeDuplicates collapses removeIDs into keepID inside one transaction:
// topic mappings are re-pointed (a mapping colliding with one the keeper
// already holds keeps the higher relevance score), view/download counters
// are summed onto the keeper, and the removed rows are deleted.
func (d *Deduplicator) MergeDuplicates(ctx context.Context, keepID uuid.UUID, removeIDs []uuid.UUID) error {
	if len(removeIDs) == 0 {
		return nil
	}
	for _, id := range removeIDs {
		if id == keepID {
			return fmt.Errorf("merge: keep id %s present in remove set", keepID)
		}
	}

	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		keep, err := d.materials.GetByID(ctx, tx, keepID)
		if err != nil {
			return err
		}
		if keep == nil {
			return fmt.Errorf("merge: keep material %s not found", keepID)
		}

		removed, err := d.materials.GetByIDs(ctx, tx, removeIDs)
		if err != nil {
			return err
		}

		var views, downloads int64
		for _, m := range removed {
			views += m.ViewCount
			downloads += m.DownloadCount

			mappings, err := d.mappings.ListByMaterial(ctx, tx, m.ID)
			if err != nil {
				return err
			}
			for _, mapping := range mappings {
				existing, err := d.mappings.GetForSlot(ctx, tx, keepID, mapping.CourseID, mapping.WeekNumber)
				if err != nil {
					return err
				}
				if existing != nil {
					if mapping.RelevanceScore > existing.RelevanceScore {
						if err := d.mappings.UpdateScore(ctx, tx, existing.ID, mapping.RelevanceScore); err != nil {
							return err
						}
					}
					if err := d.mappings.DeleteByID(ctx, tx, mapping.ID); err != nil {
						return err
					}
					continue
				}
				if err := d.mappings.Repoint(ctx, tx, mapping.ID, keepID); err != nil {
					return err
				}
			}
		}

		if err := d.materials.AddCounters(ctx, tx, keepID, views, downloads); err != nil {
			return err
		}
		if err := d.materials.Delete(ctx, tx, removeIDs); err != nil {
			return err
		}

		d.log.Info("Merged duplicate materials", "keep_id", keepID, "removed", len(removeIDs))
		return nil
	})
}
