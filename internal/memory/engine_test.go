package memory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/oraculo-ai/oraculo/internal/config"
	"github.com/oraculo-ai/oraculo/internal/lexicon"
	"github.com/oraculo-ai/oraculo/internal/models"
)

var engineNow = time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)

type fakeProfiles struct {
	stored map[uuid.UUID]*models.UserProfile
}

func (f *fakeProfiles) GetByUserID(_ context.Context, userID uuid.UUID) (*models.UserProfile, error) {
	return f.stored[userID], nil
}

func (f *fakeProfiles) Upsert(_ context.Context, profile *models.UserProfile) error {
	f.stored[profile.UserID] = profile
	return nil
}

type fakeMemories struct {
	stored  []models.ContextualMemory
	expired []uuid.UUID
}

func (f *fakeMemories) Create(_ context.Context, memory *models.ContextualMemory) error {
	if memory.ID == uuid.Nil {
		memory.ID = uuid.New()
	}
	f.stored = append(f.stored, *memory)
	return nil
}

func (f *fakeMemories) GetActiveByUserID(_ context.Context, userID uuid.UUID) ([]models.ContextualMemory, error) {
	var active []models.ContextualMemory
	for _, m := range f.stored {
		if m.UserID == userID && m.Active(engineNow) {
			active = append(active, m)
		}
	}
	return active, nil
}

func (f *fakeMemories) Update(_ context.Context, memory *models.ContextualMemory) error {
	for i := range f.stored {
		if f.stored[i].ID == memory.ID {
			f.stored[i] = *memory
			return nil
		}
	}
	return nil
}

func (f *fakeMemories) Expire(_ context.Context, id uuid.UUID, at time.Time) error {
	f.expired = append(f.expired, id)
	for i := range f.stored {
		if f.stored[i].ID == id {
			f.stored[i].ExpiresAt = &at
		}
	}
	return nil
}

type fakeInteractions struct {
	stored []models.Interaction
}

func (f *fakeInteractions) Create(_ context.Context, interaction *models.Interaction) error {
	f.stored = append(f.stored, *interaction)
	return nil
}

func (f *fakeInteractions) GetByID(_ context.Context, id uuid.UUID) (*models.Interaction, error) {
	for i := range f.stored {
		if f.stored[i].ID == id {
			return &f.stored[i], nil
		}
	}
	return nil, nil
}

func (f *fakeInteractions) RecentByUserID(_ context.Context, userID uuid.UUID, limit int) ([]models.Interaction, error) {
	var recent []models.Interaction
	for i := len(f.stored) - 1; i >= 0 && len(recent) < limit; i-- {
		if f.stored[i].UserID == userID {
			recent = append(recent, f.stored[i])
		}
	}
	return recent, nil
}

func (f *fakeInteractions) CountByUserID(_ context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	for _, i := range f.stored {
		if i.UserID == userID {
			count++
		}
	}
	return count, nil
}

type fakeProblems struct {
	stored   []models.ProblemContext
	resolved []uuid.UUID
	decays   int
}

func (f *fakeProblems) Create(_ context.Context, problem *models.ProblemContext) error {
	if problem.ID == uuid.Nil {
		problem.ID = uuid.New()
	}
	f.stored = append(f.stored, *problem)
	return nil
}

func (f *fakeProblems) RecentByUserID(_ context.Context, userID uuid.UUID, limit int) ([]models.ProblemContext, error) {
	var recent []models.ProblemContext
	for i := len(f.stored) - 1; i >= 0 && len(recent) < limit; i-- {
		if f.stored[i].UserID == userID {
			recent = append(recent, f.stored[i])
		}
	}
	return recent, nil
}

func (f *fakeProblems) MarkResolved(_ context.Context, id uuid.UUID, resolution string) error {
	f.resolved = append(f.resolved, id)
	for i := range f.stored {
		if f.stored[i].ID == id {
			f.stored[i].Resolved = true
			f.stored[i].Resolution = resolution
		}
	}
	return nil
}

func (f *fakeProblems) DecayRatings(_ context.Context, _ uuid.UUID, _ time.Time) (int64, error) {
	f.decays++
	return 0, nil
}

type fakePatterns struct {
	observed map[string]models.Concept
}

func (f *fakePatterns) Observe(_ context.Context, _ uuid.UUID, term string, concept models.Concept) error {
	if f.observed == nil {
		f.observed = make(map[string]models.Concept)
	}
	f.observed[term] = concept
	return nil
}

func (f *fakePatterns) ByUserID(_ context.Context, _ uuid.UUID) ([]models.LanguagePattern, error) {
	return nil, nil
}

type fakeLexiconStore struct {
	corrections  map[string]int
	observations int
}

func (f *fakeLexiconStore) ObserveTerm(_ context.Context, _ lexicon.Entry) (int, error) {
	return 1, nil
}

func (f *fakeLexiconStore) ObserveCorrection(_ context.Context, typo, _ string) (int, error) {
	if f.corrections == nil {
		f.corrections = make(map[string]int)
	}
	f.corrections[typo]++
	return f.observations, nil
}

func (f *fakeLexiconStore) LoadLearned(_ context.Context, _ *lexicon.Lexicon, _ int) (int, error) {
	return 0, nil
}

type fakeScheduler struct {
	calls      []uuid.UUID
	learnCalls []uuid.UUID
}

func (f *fakeScheduler) ScheduleConsolidation(_ context.Context, userID uuid.UUID) error {
	f.calls = append(f.calls, userID)
	return nil
}

func (f *fakeScheduler) ScheduleLearnInteraction(_ context.Context, _ uuid.UUID, interactionID uuid.UUID) error {
	f.learnCalls = append(f.learnCalls, interactionID)
	return nil
}

type engineFixture struct {
	engine       *Engine
	profiles     *fakeProfiles
	memories     *fakeMemories
	interactions *fakeInteractions
	problems     *fakeProblems
	patterns     *fakePatterns
	lexiconStore *fakeLexiconStore
	lexicon      *lexicon.Lexicon
}

func newEngineFixture(t *testing.T, mutate func(*config.Memory), scheduler Scheduler) *engineFixture {
	t.Helper()

	cfg := config.Memory{
		MergeThreshold:       0.70,
		RepetitionThreshold:  0.85,
		RepetitionWindow:     24 * time.Hour,
		ConsolidationCadence: 10,
		SamplingSeed:         "oraculo",
	}
	if mutate != nil {
		mutate(&cfg)
	}

	f := &engineFixture{
		profiles:     &fakeProfiles{stored: make(map[uuid.UUID]*models.UserProfile)},
		memories:     &fakeMemories{},
		interactions: &fakeInteractions{},
		problems:     &fakeProblems{},
		patterns:     &fakePatterns{},
		lexiconStore: &fakeLexiconStore{},
		lexicon:      lexicon.New(),
	}
	f.engine = NewEngine(EngineParams{
		Profiles:     f.profiles,
		Memories:     f.memories,
		Interactions: f.interactions,
		Problems:     f.problems,
		Patterns:     f.patterns,
		LexiconStore: f.lexiconStore,
		Lexicon:      f.lexicon,
		Config:       cfg,
		Logger:       zap.NewNop(),
		Scheduler:    scheduler,
	}).WithClock(func() time.Time { return engineNow })
	return f
}

func TestRecordInteractionStoresExchange(t *testing.T) {
	t.Parallel()
	f := newEngineFixture(t, nil, nil)
	userID := uuid.New()

	interaction, err := f.engine.RecordInteraction(context.Background(), RecordRequest{
		UserID:   userID,
		Question: "quantos clientes temos cadastrados",
		Answer:   "1.240 clientes",
	})
	if err != nil {
		t.Fatalf("RecordInteraction() error = %v", err)
	}
	if interaction.ID == uuid.Nil {
		t.Error("interaction ID not assigned")
	}
	if interaction.Sentiment != 0 {
		t.Errorf("sentiment = %v, want neutral 0", interaction.Sentiment)
	}
	if interaction.Repeated {
		t.Error("first question flagged as repeated")
	}
	if len(f.interactions.stored) != 1 {
		t.Fatalf("stored %d interactions, want 1", len(f.interactions.stored))
	}
	if len(f.memories.stored) != 0 {
		t.Errorf("neutral exchange created %d memories, want 0", len(f.memories.stored))
	}
}

func TestRecordInteractionValidation(t *testing.T) {
	t.Parallel()
	f := newEngineFixture(t, nil, nil)

	if _, err := f.engine.RecordInteraction(context.Background(), RecordRequest{
		UserID: uuid.Nil, Question: "quantos clientes",
	}); err == nil {
		t.Error("expected error for missing user id")
	}
	if _, err := f.engine.RecordInteraction(context.Background(), RecordRequest{
		UserID: uuid.New(), Question: "   ",
	}); err == nil {
		t.Error("expected error for blank question")
	}
}

func TestRecordInteractionNegativeFeedback(t *testing.T) {
	t.Parallel()
	f := newEngineFixture(t, nil, nil)
	userID := uuid.New()

	interaction, err := f.engine.RecordInteraction(context.Background(), RecordRequest{
		UserID:   userID,
		Question: "qual o faturamento de marco",
		Answer:   "R$ 10.000",
		Feedback: "veio errado, o numero nao bate",
		Interpretation: &models.Interpretation{
			Intent:         models.IntentQuantityLookup,
			CandidateQuery: "SELECT COALESCE(SUM(valor_total), 0) AS total FROM sysroh.tb_vendas",
		},
	})
	if err != nil {
		t.Fatalf("RecordInteraction() error = %v", err)
	}
	if interaction.Sentiment >= 0 {
		t.Errorf("sentiment = %v, want negative", interaction.Sentiment)
	}

	if len(f.memories.stored) != 1 {
		t.Fatalf("stored %d memories, want 1 feedback memory", len(f.memories.stored))
	}
	memory := f.memories.stored[0]
	if memory.ContextType != models.ContextFeedback {
		t.Errorf("context type = %q, want %q", memory.ContextType, models.ContextFeedback)
	}
	if memory.Importance != negativeImportance {
		t.Errorf("importance = %d, want %d", memory.Importance, negativeImportance)
	}
	if memory.ExpiresAt == nil {
		t.Fatal("feedback memory has no expiry")
	}
	if got := memory.ExpiresAt.Sub(engineNow); got != negativeTTL {
		t.Errorf("expiry = %v from now, want %v", got, negativeTTL)
	}

	if len(f.problems.stored) != 1 {
		t.Fatalf("stored %d problems, want 1", len(f.problems.stored))
	}
	problem := f.problems.stored[0]
	if problem.ProblemType != "dados_incorretos" {
		t.Errorf("problem type = %q, want dados_incorretos", problem.ProblemType)
	}
	if problem.QueryPattern == "" {
		t.Error("problem lost the candidate query pattern")
	}
	if f.problems.decays != 1 {
		t.Errorf("decays = %d, want 1", f.problems.decays)
	}
}

func TestRecordInteractionResolvesProblem(t *testing.T) {
	t.Parallel()
	f := newEngineFixture(t, nil, nil)
	userID := uuid.New()

	problemID := uuid.New()
	f.problems.stored = append(f.problems.stored, models.ProblemContext{
		ID:          problemID,
		UserID:      userID,
		ProblemType: "dados_incorretos",
		Question:    "qual o faturamento de marco",
		CreatedAt:   engineNow.Add(-time.Hour),
	})

	_, err := f.engine.RecordInteraction(context.Background(), RecordRequest{
		UserID:   userID,
		Question: "qual o faturamento de marco",
		Answer:   "R$ 12.400",
		Feedback: "agora sim, funcionou, obrigado",
	})
	if err != nil {
		t.Fatalf("RecordInteraction() error = %v", err)
	}
	if len(f.problems.resolved) != 1 || f.problems.resolved[0] != problemID {
		t.Errorf("resolved = %v, want [%s]", f.problems.resolved, problemID)
	}
}

func TestRecordInteractionDetectsRepetition(t *testing.T) {
	t.Parallel()
	f := newEngineFixture(t, nil, nil)
	userID := uuid.New()

	f.interactions.stored = append(f.interactions.stored, models.Interaction{
		ID:        uuid.New(),
		UserID:    userID,
		Question:  "quantos clientes temos em sao paulo",
		CreatedAt: engineNow.Add(-2 * time.Hour),
	})

	interaction, err := f.engine.RecordInteraction(context.Background(), RecordRequest{
		UserID:   userID,
		Question: "quantos clientes temos em sao paulo",
	})
	if err != nil {
		t.Fatalf("RecordInteraction() error = %v", err)
	}
	if !interaction.Repeated {
		t.Error("identical question within the window not flagged as repeated")
	}

	if len(f.memories.stored) != 1 {
		t.Fatalf("stored %d memories, want 1 repetition memory", len(f.memories.stored))
	}
	if f.memories.stored[0].Importance != repetitionImportance {
		t.Errorf("importance = %d, want %d", f.memories.stored[0].Importance, repetitionImportance)
	}
}

func TestRecordInteractionRepetitionWindowExpires(t *testing.T) {
	t.Parallel()
	f := newEngineFixture(t, nil, nil)
	userID := uuid.New()

	f.interactions.stored = append(f.interactions.stored, models.Interaction{
		ID:        uuid.New(),
		UserID:    userID,
		Question:  "quantos clientes temos em sao paulo",
		CreatedAt: engineNow.Add(-25 * time.Hour),
	})

	interaction, err := f.engine.RecordInteraction(context.Background(), RecordRequest{
		UserID:   userID,
		Question: "quantos clientes temos em sao paulo",
	})
	if err != nil {
		t.Fatalf("RecordInteraction() error = %v", err)
	}
	if interaction.Repeated {
		t.Error("question outside the repetition window flagged as repeated")
	}
}

func TestRecordInteractionConsolidationCadence(t *testing.T) {
	t.Parallel()
	scheduler := &fakeScheduler{}
	f := newEngineFixture(t, func(cfg *config.Memory) {
		cfg.ConsolidationCadence = 2
	}, scheduler)
	userID := uuid.New()

	questions := []string{
		"quantos clientes temos",
		"vendas de ontem",
		"faturamento do trimestre",
		"clientes por estado",
	}
	for _, q := range questions {
		if _, err := f.engine.RecordInteraction(context.Background(), RecordRequest{
			UserID: userID, Question: q,
		}); err != nil {
			t.Fatalf("RecordInteraction(%q) error = %v", q, err)
		}
	}

	// Interactions 2 and 4 hit the cadence.
	if len(scheduler.calls) != 2 {
		t.Errorf("scheduled %d consolidations, want 2", len(scheduler.calls))
	}
	for _, id := range scheduler.calls {
		if id != userID {
			t.Errorf("scheduled for %s, want %s", id, userID)
		}
	}
}

func TestRecordInteractionProfileSampling(t *testing.T) {
	t.Parallel()
	f := newEngineFixture(t, func(cfg *config.Memory) {
		cfg.ProfileSampleRate = 1
	}, nil)
	userID := uuid.New()

	if _, err := f.engine.RecordInteraction(context.Background(), RecordRequest{
		UserID:   userID,
		Question: "me mostra em tabela os clientes de sao paulo",
	}); err != nil {
		t.Fatalf("RecordInteraction() error = %v", err)
	}

	profile := f.profiles.stored[userID]
	if profile == nil {
		t.Fatal("profile not created under full sampling")
	}
	if profile.InteractionCount != 1 {
		t.Errorf("interaction count = %d, want 1", profile.InteractionCount)
	}
	if profile.FormatScores[models.FormatTable] == 0 {
		t.Error("table format signal not accumulated")
	}
}

func TestRecordInteractionLearnsCorrections(t *testing.T) {
	t.Parallel()
	f := newEngineFixture(t, func(cfg *config.Memory) {
		cfg.LearningSampleRate = 1
	}, nil)
	f.lexiconStore.observations = correctionPromotionFloor
	userID := uuid.New()

	_, err := f.engine.RecordInteraction(context.Background(), RecordRequest{
		UserID:   userID,
		Question: "qual o fturamento de marco",
		Interpretation: &models.Interpretation{
			Corrections: map[string]string{"fturamento": "faturamento"},
			Metrics: []models.Entity{
				{Surface: "fturamento", Concept: models.ConceptRevenue, Kind: models.EntityMetric},
			},
		},
	})
	if err != nil {
		t.Fatalf("RecordInteraction() error = %v", err)
	}

	if f.lexiconStore.corrections["fturamento"] != 1 {
		t.Errorf("correction observations = %v, want fturamento observed once", f.lexiconStore.corrections)
	}
	if correct, ok := f.lexicon.Snapshot().Correction("fturamento"); !ok || correct != "faturamento" {
		t.Errorf("correction not promoted: got (%q, %v)", correct, ok)
	}
	if f.patterns.observed["fturamento"] != models.ConceptRevenue {
		t.Errorf("language pattern not observed: %v", f.patterns.observed)
	}
}

func TestRecordInteractionSchedulesLearning(t *testing.T) {
	t.Parallel()
	scheduler := &fakeScheduler{}
	f := newEngineFixture(t, func(cfg *config.Memory) {
		cfg.LearningSampleRate = 1
	}, scheduler)
	userID := uuid.New()

	interaction, err := f.engine.RecordInteraction(context.Background(), RecordRequest{
		UserID:   userID,
		Question: "quantos clientes temos",
		Interpretation: &models.Interpretation{
			Metrics: []models.Entity{
				{Surface: "clientes", Concept: models.ConceptContact, Kind: models.EntityMetric},
			},
		},
	})
	if err != nil {
		t.Fatalf("RecordInteraction() error = %v", err)
	}

	if len(scheduler.learnCalls) != 1 || scheduler.learnCalls[0] != interaction.ID {
		t.Errorf("scheduled learning = %v, want [%s]", scheduler.learnCalls, interaction.ID)
	}
	if len(f.patterns.observed) != 0 {
		t.Errorf("patterns observed inline despite scheduler: %v", f.patterns.observed)
	}
}

func TestLearnInteraction(t *testing.T) {
	t.Parallel()
	f := newEngineFixture(t, nil, nil)
	userID := uuid.New()

	interaction := models.Interaction{
		ID:        uuid.New(),
		UserID:    userID,
		Question:  "quantos clientes em sao paulo",
		CreatedAt: engineNow,
	}
	f.interactions.stored = append(f.interactions.stored, interaction)

	if err := f.engine.LearnInteraction(context.Background(), userID, interaction.ID); err != nil {
		t.Fatalf("LearnInteraction() error = %v", err)
	}
	if f.patterns.observed["clientes"] != models.ConceptContact {
		t.Errorf("clientes not observed: %v", f.patterns.observed)
	}

	// Unknown interaction is a no-op, not an error.
	if err := f.engine.LearnInteraction(context.Background(), userID, uuid.New()); err != nil {
		t.Errorf("LearnInteraction() for missing interaction: %v", err)
	}
}

func TestGetContext(t *testing.T) {
	t.Parallel()
	f := newEngineFixture(t, nil, nil)
	userID := uuid.New()

	for i := 0; i < 5; i++ {
		f.memories.stored = append(f.memories.stored, models.ContextualMemory{
			ID:          uuid.New(),
			UserID:      userID,
			Content:     "fato sobre o usuario",
			ContextType: models.ContextOther,
			Importance:  3,
			CreatedAt:   engineNow.Add(-time.Duration(i) * time.Hour),
		})
	}
	for i := 0; i < 4; i++ {
		f.problems.stored = append(f.problems.stored, models.ProblemContext{
			ID:        uuid.New(),
			UserID:    userID,
			Question:  "pergunta com problema",
			CreatedAt: engineNow.Add(-time.Duration(i) * time.Hour),
		})
	}

	memCtx, err := f.engine.GetContext(context.Background(), userID)
	if err != nil {
		t.Fatalf("GetContext() error = %v", err)
	}
	if memCtx.ProfileSummary == "" {
		t.Error("missing profile summary for fresh user")
	}
	if len(memCtx.TopMemories) != contextTopMemories {
		t.Errorf("got %d memories, want %d", len(memCtx.TopMemories), contextTopMemories)
	}
	if len(memCtx.RecentProblems) != contextRecentProblems {
		t.Errorf("got %d problems, want %d", len(memCtx.RecentProblems), contextRecentProblems)
	}
}

func TestLearnFact(t *testing.T) {
	t.Parallel()
	f := newEngineFixture(t, nil, nil)
	userID := uuid.New()

	id, err := f.engine.LearnFact(context.Background(), userID, "prefere relatorios semanais", models.ContextPreference, 9, 10)
	if err != nil {
		t.Fatalf("LearnFact() error = %v", err)
	}
	if id == uuid.Nil {
		t.Error("no memory id returned")
	}

	stored := f.memories.stored[0]
	if stored.Importance != models.MaxImportance {
		t.Errorf("importance = %d, want clamped to %d", stored.Importance, models.MaxImportance)
	}
	if stored.ExpiresAt == nil {
		t.Fatal("expiry not set")
	}
	if got := stored.ExpiresAt.Sub(engineNow); got != 10*24*time.Hour {
		t.Errorf("expiry = %v from now, want 10 days", got)
	}

	if _, err := f.engine.LearnFact(context.Background(), userID, "permanente", models.ContextOther, 0, 0); err != nil {
		t.Fatalf("LearnFact() error = %v", err)
	}
	permanent := f.memories.stored[1]
	if permanent.Importance != models.MinImportance {
		t.Errorf("importance = %d, want clamped to %d", permanent.Importance, models.MinImportance)
	}
	if permanent.ExpiresAt != nil {
		t.Error("zero expiresInDays must not set an expiry")
	}

	if _, err := f.engine.LearnFact(context.Background(), uuid.Nil, "x", models.ContextOther, 3, 0); err == nil {
		t.Error("expected error for missing user id")
	}
	if _, err := f.engine.LearnFact(context.Background(), userID, "  ", models.ContextOther, 3, 0); err == nil {
		t.Error("expected error for blank content")
	}
}

func TestConsolidateThroughEngine(t *testing.T) {
	t.Parallel()
	f := newEngineFixture(t, nil, nil)
	userID := uuid.New()

	duplicate := func(age time.Duration, importance int) models.ContextualMemory {
		return models.ContextualMemory{
			ID:          uuid.New(),
			UserID:      userID,
			Content:     "cliente acompanha faturamento mensal",
			ContextType: models.ContextMetric,
			Importance:  importance,
			CreatedAt:   engineNow.Add(-age),
		}
	}
	f.memories.stored = append(f.memories.stored,
		duplicate(48*time.Hour, 2),
		duplicate(1*time.Hour, 3),
	)

	result, err := f.engine.Consolidate(context.Background(), userID)
	if err != nil {
		t.Fatalf("Consolidate() error = %v", err)
	}
	if result.Merged != 1 || result.Removed != 1 {
		t.Errorf("result = %+v, want 1 merged, 1 removed", result)
	}
	if len(f.memories.expired) != 1 {
		t.Errorf("expired %d memories, want 1", len(f.memories.expired))
	}

	again, err := f.engine.Consolidate(context.Background(), userID)
	if err != nil {
		t.Fatalf("second Consolidate() error = %v", err)
	}
	if again.Merged != 0 || again.Removed != 0 {
		t.Errorf("second pass = %+v, want no changes", again)
	}
}

func TestRecordInteractionInlineConsolidation(t *testing.T) {
	t.Parallel()
	f := newEngineFixture(t, func(cfg *config.Memory) {
		cfg.ConsolidationCadence = 1
	}, nil)
	userID := uuid.New()

	f.memories.stored = append(f.memories.stored,
		models.ContextualMemory{
			ID: uuid.New(), UserID: userID,
			Content:     "cliente acompanha faturamento mensal",
			ContextType: models.ContextMetric, Importance: 2,
			CreatedAt: engineNow.Add(-48 * time.Hour),
		},
		models.ContextualMemory{
			ID: uuid.New(), UserID: userID,
			Content:     "cliente acompanha faturamento mensal",
			ContextType: models.ContextMetric, Importance: 2,
			CreatedAt: engineNow.Add(-1 * time.Hour),
		},
	)

	if _, err := f.engine.RecordInteraction(context.Background(), RecordRequest{
		UserID: userID, Question: "quantos clientes temos",
	}); err != nil {
		t.Fatalf("RecordInteraction() error = %v", err)
	}
	if len(f.memories.expired) != 1 {
		t.Errorf("inline consolidation expired %d memories, want 1", len(f.memories.expired))
	}
}
