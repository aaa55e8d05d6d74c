package dedup

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/NGJIERU/fyp-ai-lms-sub000/internal/logger"
	"github.com/NGJIERU/fyp-ai-lms-sub000/internal/repos"
	"github.com/NGJIERU/fyp-ai-lms-sub000/internal/types"
)

type dedupFixture struct {
	db        *gorm.DB
	materials repos.MaterialRepo
	mappings  repos.MappingRepo
	dedup     *Deduplicator
}

func newDedupFixture(t *testing.T) *dedupFixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	// Every pooled connection gets its own :memory: database; pin the
	// pool to one so reads outside a transaction see the migrated schema.
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrap sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&types.Material{}, &types.MaterialTopicMapping{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	log := logger.NewNop()
	materials := repos.NewMaterialRepo(db, log)
	mappings := repos.NewMappingRepo(db, log)
	return &dedupFixture{
		db:        db,
		materials: materials,
		mappings:  mappings,
		dedup:     New(db, log, materials, mappings),
	}
}

func (f *dedupFixture) seedMaterial(t *testing.T, m *types.Material) *types.Material {
	t.Helper()
	created, err := f.materials.Create(context.Background(), nil, m)
	if err != nil {
		t.Fatalf("seed material %q: %v", m.Title, err)
	}
	return created
}

func TestFindDuplicatesRanksMatchTypes(t *testing.T) {
	f := newDedupFixture(t)
	ctx := context.Background()

	target := f.seedMaterial(t, &types.Material{
		Title:       "Introduction to Graph Theory",
		URL:         "https://youtube.com/watch?v=graphs01",
		SourceName:  "youtube",
		ContentHash: ContentHash("graphs are sets of vertices and edges"),
	})
	urlDup := f.seedMaterial(t, &types.Material{
		Title:      "Graph Theory (mirror)",
		URL:        "https://www.youtube.com/watch?v=graphs01&utm_source=share",
		SourceName: "youtube",
	})
	hashDup := f.seedMaterial(t, &types.Material{
		Title:       "Vertices and Edges",
		URL:         "https://example.com/vertices",
		SourceName:  "webarticle",
		ContentHash: ContentHash("Graphs   ARE sets of vertices and edges"),
	})
	titleDup := f.seedMaterial(t, &types.Material{
		Title:      "Introduction to Graph Theory!",
		URL:        "https://youtube.com/watch?v=graphs02",
		SourceName: "youtube",
	})
	f.seedMaterial(t, &types.Material{
		Title:      "Thermodynamics Basics",
		URL:        "https://example.com/thermo",
		SourceName: "webarticle",
	})

	matches, err := f.dedup.FindDuplicates(ctx, target)
	if err != nil {
		t.Fatalf("FindDuplicates: %v", err)
	}
	if len(matches) != 3 {
		t.Fatalf("matches = %d, want 3: %+v", len(matches), matches)
	}

	byID := make(map[uuid.UUID]Match, len(matches))
	for _, m := range matches {
		byID[m.MaterialID] = m
	}
	if m := byID[urlDup.ID]; m.MatchType != MatchURL || m.Confidence != 1.0 {
		t.Fatalf("url dup detected as %+v", m)
	}
	if m := byID[hashDup.ID]; m.MatchType != MatchContentHash {
		t.Fatalf("hash dup detected as %+v", m)
	}
	m, ok := byID[titleDup.ID]
	if !ok || m.MatchType != MatchTitleSimilarity {
		t.Fatalf("title dup detected as %+v (found %v)", m, ok)
	}
	if m.Confidence < titleSimilarityThreshold || m.Confidence > 1.0 {
		t.Fatalf("title confidence %f out of range", m.Confidence)
	}
}

func TestFindDuplicatesNilMaterial(t *testing.T) {
	f := newDedupFixture(t)
	matches, err := f.dedup.FindDuplicates(context.Background(), nil)
	if err != nil || matches != nil {
		t.Fatalf("nil material should be a no-op, got %v / %v", matches, err)
	}
}

func TestScanAllDuplicatesKeepsHighestQuality(t *testing.T) {
	f := newDedupFixture(t)
	ctx := context.Background()

	hash := ContentHash("the same lecture notes body")
	f.seedMaterial(t, &types.Material{
		Title:        "Lecture Notes",
		URL:          "https://a.example.com/notes",
		ContentHash:  hash,
		QualityScore: 0.4,
	})
	high := f.seedMaterial(t, &types.Material{
		Title:        "Lecture Notes (official)",
		URL:          "https://b.example.com/notes",
		ContentHash:  hash,
		QualityScore: 0.9,
	})
	f.seedMaterial(t, &types.Material{
		Title: "Unrelated",
		URL:   "https://c.example.com/other",
	})

	groups, err := f.dedup.ScanAllDuplicates(ctx, 0)
	if err != nil {
		t.Fatalf("ScanAllDuplicates: %v", err)
	}
	if len(groups) != 1 {
		t.Fatalf("groups = %d, want 1: %+v", len(groups), groups)
	}
	g := groups[0]
	if g.MatchType != MatchContentHash {
		t.Fatalf("match type = %s", g.MatchType)
	}
	if g.KeepID != high.ID {
		t.Fatalf("keeper = %s, want highest-quality %s", g.KeepID, high.ID)
	}
	if len(g.MaterialIDs) != 2 {
		t.Fatalf("group members = %d, want 2", len(g.MaterialIDs))
	}
}

func TestMergeDuplicatesRepointsAndSumsCounters(t *testing.T) {
	f := newDedupFixture(t)
	ctx := context.Background()
	courseID := uuid.New()

	keep := f.seedMaterial(t, &types.Material{
		Title:     "Keeper",
		URL:       "https://example.com/keep",
		ViewCount: 10,
	})
	dup := f.seedMaterial(t, &types.Material{
		Title:         "Duplicate",
		URL:           "https://example.com/dup",
		ViewCount:     5,
		DownloadCount: 2,
	})

	// Week 1 collides with a mapping the keeper already holds; week 2 is
	// only on the duplicate and must move over.
	if _, err := f.mappings.Create(ctx, nil, &types.MaterialTopicMapping{
		MaterialID: keep.ID, CourseID: courseID, WeekNumber: 1, RelevanceScore: 0.5,
	}); err != nil {
		t.Fatalf("seed keeper mapping: %v", err)
	}
	if _, err := f.mappings.Create(ctx, nil, &types.MaterialTopicMapping{
		MaterialID: dup.ID, CourseID: courseID, WeekNumber: 1, RelevanceScore: 0.9,
	}); err != nil {
		t.Fatalf("seed colliding mapping: %v", err)
	}
	if _, err := f.mappings.Create(ctx, nil, &types.MaterialTopicMapping{
		MaterialID: dup.ID, CourseID: courseID, WeekNumber: 2, RelevanceScore: 0.7,
	}); err != nil {
		t.Fatalf("seed movable mapping: %v", err)
	}

	if err := f.dedup.MergeDuplicates(ctx, keep.ID, []uuid.UUID{dup.ID}); err != nil {
		t.Fatalf("MergeDuplicates: %v", err)
	}

	gone, err := f.materials.GetByID(ctx, nil, dup.ID)
	if err != nil {
		t.Fatalf("GetByID removed: %v", err)
	}
	if gone != nil {
		t.Fatal("duplicate material should be deleted")
	}

	merged, err := f.materials.GetByID(ctx, nil, keep.ID)
	if err != nil {
		t.Fatalf("GetByID keeper: %v", err)
	}
	if merged.ViewCount != 15 || merged.DownloadCount != 2 {
		t.Fatalf("counters = %d views / %d downloads, want 15 / 2",
			merged.ViewCount, merged.DownloadCount)
	}

	week1, err := f.mappings.GetForSlot(ctx, nil, keep.ID, courseID, 1)
	if err != nil || week1 == nil {
		t.Fatalf("keeper week-1 mapping missing: %v", err)
	}
	if week1.RelevanceScore != 0.9 {
		t.Fatalf("collision should keep higher relevance, got %f", week1.RelevanceScore)
	}
	week2, err := f.mappings.GetForSlot(ctx, nil, keep.ID, courseID, 2)
	if err != nil || week2 == nil {
		t.Fatalf("week-2 mapping was not re-pointed: %v", err)
	}

	orphans, err := f.mappings.ListByMaterial(ctx, nil, dup.ID)
	if err != nil {
		t.Fatalf("ListByMaterial: %v", err)
	}
	if len(orphans) != 0 {
		t.Fatalf("duplicate still owns %d mappings", len(orphans))
	}
}

func TestMergeDuplicatesRejectsKeepInRemoveSet(t *testing.T) {
	f := newDedupFixture(t)
	id := uuid.New()
	if err := f.dedup.MergeDuplicates(context.Background(), id, []uuid.UUID{id}); err == nil {
		t.Fatal("merge should reject keep id inside the remove set")
	}
	if err := f.dedup.MergeDuplicates(context.Background(), id, nil); err != nil {
		t.Fatalf("empty remove set should be a no-op, got %v", err)
	}
}
