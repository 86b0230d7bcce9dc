package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/oraculo-ai/oraculo/internal/config"
	"github.com/oraculo-ai/oraculo/internal/database"
	"github.com/oraculo-ai/oraculo/internal/interpreter"
	"github.com/oraculo-ai/oraculo/internal/lexicon"
	"github.com/oraculo-ai/oraculo/internal/models"
)

const (
	// repetitionHistory bounds how many past questions are compared.
	repetitionHistory = 10

	// negative feedback becomes a prominent, month-long memory; a repeated
	// question a lighter, shorter one.
	negativeImportance = 4
	negativeTTL        = 30 * 24 * time.Hour
	repetitionImportance = 3
	repetitionTTL        = 15 * 24 * time.Hour

	// problem ratings from the last 3 days decay when fresh feedback is bad.
	problemDecayWindow = 3 * 24 * time.Hour

	contextTopMemories    = 3
	contextRecentProblems = 2
	patternHistory        = 50

	// a typo correction seen this often is promoted into the lexicon.
	correctionPromotionFloor = 3
)

// Scheduler defers a consolidation pass instead of running it inline.
// The queue-backed implementation lives next to the workers; tests and the
// standalone binary can leave it nil to consolidate synchronously.
type Scheduler interface {
	ScheduleConsolidation(ctx context.Context, userID uuid.UUID) error
	ScheduleLearnInteraction(ctx context.Context, userID, interactionID uuid.UUID) error
}

// Engine is the conversational memory core: it records interactions, learns
// from them under a deterministic sampling policy, and serves bounded context
// for prompt enrichment. Writes for one user are serialized; different users
// never block each other.
type Engine struct {
	profiles     database.ProfileRepositoryInterface
	memories     database.MemoryRepositoryInterface
	interactions database.InteractionRepositoryInterface
	problems     database.ProblemRepositoryInterface
	patterns     database.LanguagePatternRepositoryInterface
	lexiconStore database.LexiconRepositoryInterface

	lexicon   *lexicon.Lexicon
	cfg       config.Memory
	logger    *zap.Logger
	scheduler Scheduler
	now       func() time.Time

	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

// EngineParams collects the engine's dependencies.
type EngineParams struct {
	Profiles     database.ProfileRepositoryInterface
	Memories     database.MemoryRepositoryInterface
	Interactions database.InteractionRepositoryInterface
	Problems     database.ProblemRepositoryInterface
	Patterns     database.LanguagePatternRepositoryInterface
	LexiconStore database.LexiconRepositoryInterface
	Lexicon      *lexicon.Lexicon
	Config       config.Memory
	Logger       *zap.Logger
	Scheduler    Scheduler
}

// NewEngine creates a memory engine.
func NewEngine(params EngineParams) *Engine {
	return &Engine{
		profiles:     params.Profiles,
		memories:     params.Memories,
		interactions: params.Interactions,
		problems:     params.Problems,
		patterns:     params.Patterns,
		lexiconStore: params.LexiconStore,
		lexicon:      params.Lexicon,
		cfg:          params.Config,
		logger:       params.Logger,
		scheduler:    params.Scheduler,
		now:          time.Now,
		locks:        make(map[uuid.UUID]*sync.Mutex),
	}
}

// WithClock fixes the engine's reference time; used by tests.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

func (e *Engine) userLock(userID uuid.UUID) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	lock, ok := e.locks[userID]
	if !ok {
		lock = &sync.Mutex{}
		e.locks[userID] = lock
	}
	return lock
}

// RecordRequest is one exchange to commit to memory.
type RecordRequest struct {
	UserID         uuid.UUID
	Question       string
	Answer         string
	Feedback       string
	Interpretation *models.Interpretation
}

// RecordInteraction stores the exchange and runs the learning side effects:
// sentiment, repetition detection, problem tracking, sampled profile and
// lexicon updates, and the consolidation cadence.
func (e *Engine) RecordInteraction(ctx context.Context, req RecordRequest) (*models.Interaction, error) {
	if req.UserID == uuid.Nil {
		return nil, fmt.Errorf("user id is required")
	}
	if strings.TrimSpace(req.Question) == "" {
		return nil, fmt.Errorf("question is required")
	}

	lock := e.userLock(req.UserID)
	lock.Lock()
	defer lock.Unlock()

	now := e.now()
	snap := e.lexicon.Snapshot()

	sentimentSource := req.Feedback
	if sentimentSource == "" {
		sentimentSource = req.Question
	}
	score, label := AnalyzeSentiment(sentimentSource)

	recent, err := e.interactions.RecentByUserID(ctx, req.UserID, repetitionHistory)
	if err != nil {
		return nil, fmt.Errorf("failed to load recent interactions: %w", err)
	}
	repeated := e.detectRepetition(req.Question, recent, snap, now)

	interaction := &models.Interaction{
		ID:        uuid.New(),
		UserID:    req.UserID,
		Question:  req.Question,
		Answer:    req.Answer,
		Feedback:  req.Feedback,
		Sentiment: score,
		Repeated:  repeated,
		CreatedAt: now,
	}
	if req.Interpretation != nil {
		interaction.Intent = req.Interpretation.Intent
		interaction.CandidateQuery = req.Interpretation.CandidateQuery
	}
	if err := e.interactions.Create(ctx, interaction); err != nil {
		return nil, fmt.Errorf("failed to store interaction: %w", err)
	}

	if label == SentimentNegative {
		e.recordNegative(ctx, req, interaction, now)
	}
	if label == SentimentPositive && req.Feedback != "" {
		e.resolveProblems(ctx, req.UserID, req.Question, req.Answer, snap)
	}
	if repeated {
		e.recordRepetition(ctx, req.UserID, req.Question, now)
	}

	count, err := e.interactions.CountByUserID(ctx, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to count interactions: %w", err)
	}

	if sample(e.cfg.SamplingSeed, req.UserID, count, e.cfg.ProfileSampleRate) {
		if err := e.refreshProfileLocked(ctx, req.UserID, count, snap); err != nil {
			e.logger.Warn("failed to update profile", zap.Error(err))
		}
	}
	if sample(e.cfg.SamplingSeed, req.UserID, count, e.cfg.LearningSampleRate) {
		// Corrections need the interpretation in hand, so they always run
		// inline; pattern extraction can go to the worker.
		e.learnCorrections(ctx, req, snap)
		if e.scheduler != nil {
			if err := e.scheduler.ScheduleLearnInteraction(ctx, req.UserID, interaction.ID); err != nil {
				e.logger.Warn("failed to schedule interaction learning", zap.Error(err))
				e.observePatterns(ctx, req)
			}
		} else {
			e.observePatterns(ctx, req)
		}
	}

	if count%int64(e.cfg.ConsolidationCadence) == 0 {
		e.triggerConsolidation(ctx, req.UserID)
	}

	return interaction, nil
}

// detectRepetition compares the question against the user's recent history
// inside the repetition window.
func (e *Engine) detectRepetition(question string, recent []models.Interaction, snap *lexicon.Snapshot, now time.Time) bool {
	cutoff := now.Add(-e.cfg.RepetitionWindow)
	for _, past := range recent {
		if past.CreatedAt.Before(cutoff) {
			continue
		}
		if interpreter.Similarity(question, past.Question, snap) >= e.cfg.RepetitionThreshold {
			return true
		}
	}
	return false
}

func (e *Engine) recordNegative(ctx context.Context, req RecordRequest, interaction *models.Interaction, now time.Time) {
	expiry := now.Add(negativeTTL)
	memory := &models.ContextualMemory{
		UserID:      req.UserID,
		Content:     fmt.Sprintf("feedback negativo: %s", firstNonEmpty(req.Feedback, req.Question)),
		ContextType: models.ContextFeedback,
		Importance:  negativeImportance,
		CreatedAt:   now,
		ExpiresAt:   &expiry,
	}
	if err := e.memories.Create(ctx, memory); err != nil {
		e.logger.Warn("failed to store negative feedback memory", zap.Error(err))
	}

	problem := &models.ProblemContext{
		UserID:        req.UserID,
		ProblemType:   classifyProblemType(req.Feedback + " " + req.Question),
		Question:      req.Question,
		SuccessRating: 2,
		CreatedAt:     now,
	}
	if req.Interpretation != nil {
		problem.QueryPattern = req.Interpretation.CandidateQuery
	}
	if err := e.problems.Create(ctx, problem); err != nil {
		e.logger.Warn("failed to store problem context", zap.Error(err))
	}

	if affected, err := e.problems.DecayRatings(ctx, req.UserID, now.Add(-problemDecayWindow)); err != nil {
		e.logger.Warn("failed to decay problem ratings", zap.Error(err))
	} else if affected > 0 {
		e.logger.Debug("problem ratings decayed", zap.Int64("affected", affected))
	}
}

// resolveProblems marks a recent unresolved problem as answered when the user
// reacts positively to a similar question.
func (e *Engine) resolveProblems(ctx context.Context, userID uuid.UUID, question, answer string, snap *lexicon.Snapshot) {
	problems, err := e.problems.RecentByUserID(ctx, userID, contextRecentProblems*3)
	if err != nil {
		e.logger.Warn("failed to load problems for resolution", zap.Error(err))
		return
	}
	for _, p := range problems {
		if p.Resolved {
			continue
		}
		if interpreter.Similarity(question, p.Question, snap) >= e.cfg.MergeThreshold {
			if err := e.problems.MarkResolved(ctx, p.ID, answer); err != nil {
				e.logger.Warn("failed to mark problem resolved", zap.Error(err))
			}
			return
		}
	}
}

func (e *Engine) recordRepetition(ctx context.Context, userID uuid.UUID, question string, now time.Time) {
	expiry := now.Add(repetitionTTL)
	memory := &models.ContextualMemory{
		UserID:      userID,
		Content:     fmt.Sprintf("pergunta recorrente: %s", question),
		ContextType: models.ContextFeedback,
		Importance:  repetitionImportance,
		CreatedAt:   now,
		ExpiresAt:   &expiry,
	}
	if err := e.memories.Create(ctx, memory); err != nil {
		e.logger.Warn("failed to store repetition memory", zap.Error(err))
	}
}

// RefreshProfile recomputes and persists one user's linguistic profile from
// their recorded history. The worker runs this for analyze_patterns jobs.
func (e *Engine) RefreshProfile(ctx context.Context, userID uuid.UUID) error {
	lock := e.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	count, err := e.interactions.CountByUserID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to count interactions: %w", err)
	}
	return e.refreshProfileLocked(ctx, userID, count, e.lexicon.Snapshot())
}

func (e *Engine) refreshProfileLocked(ctx context.Context, userID uuid.UUID, count int64, snap *lexicon.Snapshot) error {
	profile, err := e.profiles.GetByUserID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to load profile: %w", err)
	}
	if profile == nil {
		profile = models.NewUserProfile(userID)
	}
	profile.InteractionCount = count

	interactions, err := e.interactions.RecentByUserID(ctx, userID, patternHistory)
	if err != nil {
		return fmt.Errorf("failed to load interactions: %w", err)
	}
	patterns, err := e.patterns.ByUserID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to load language patterns: %w", err)
	}

	report := AnalyzePatterns(interactions, patterns, snap)
	profile.InteractionStyle = report.Style
	for format, points := range report.FormatScores {
		profile.FormatScores[format] += points
	}
	if preferred := report.PreferredFormat(); preferred != "" {
		profile.ResponseFormat = preferred
	}
	for metric, points := range report.MetricFocus {
		profile.FavoriteMetrics[metric] += points
	}

	if err := e.profiles.Upsert(ctx, profile); err != nil {
		return fmt.Errorf("failed to persist profile: %w", err)
	}
	return nil
}

// observePatterns records which surface terms the user reached each concept
// through.
func (e *Engine) observePatterns(ctx context.Context, req RecordRequest) {
	if req.Interpretation == nil {
		return
	}
	for _, entity := range append(req.Interpretation.Metrics, req.Interpretation.Dimensions...) {
		if err := e.patterns.Observe(ctx, req.UserID, entity.Surface, entity.Concept); err != nil {
			e.logger.Warn("failed to observe language pattern", zap.Error(err))
		}
	}
}

// learnCorrections persists accepted typo corrections; typos seen often
// enough get promoted into the live lexicon.
func (e *Engine) learnCorrections(ctx context.Context, req RecordRequest, snap *lexicon.Snapshot) {
	if req.Interpretation == nil {
		return
	}
	for typo, correct := range req.Interpretation.Corrections {
		if _, ok := snap.Correction(typo); ok {
			continue
		}
		observations, err := e.lexiconStore.ObserveCorrection(ctx, typo, correct)
		if err != nil {
			e.logger.Warn("failed to observe correction", zap.Error(err))
			continue
		}
		if observations >= correctionPromotionFloor {
			if e.lexicon.LearnCorrection(typo, correct) {
				e.logger.Info("typo correction promoted",
					zap.String("typo", typo),
					zap.String("correct", correct),
				)
			}
		}
	}
}

// LearnInteraction re-runs language-pattern extraction for a stored
// interaction. The worker calls this for learn_interaction jobs, so pattern
// observation can happen off the request path.
func (e *Engine) LearnInteraction(ctx context.Context, userID, interactionID uuid.UUID) error {
	interaction, err := e.interactions.GetByID(ctx, interactionID)
	if err != nil {
		return fmt.Errorf("failed to load interaction: %w", err)
	}
	if interaction == nil || interaction.UserID != userID {
		return nil
	}

	lock := e.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	snap := e.lexicon.Snapshot()
	for _, token := range strings.Fields(lexicon.Fold(interaction.Question)) {
		if snap.IsStopword(token) {
			continue
		}
		entry, ok := snap.Lookup(token)
		if !ok {
			continue
		}
		if err := e.patterns.Observe(ctx, userID, token, entry.Concept); err != nil {
			e.logger.Warn("failed to observe language pattern", zap.Error(err))
		}
	}
	return nil
}

func (e *Engine) triggerConsolidation(ctx context.Context, userID uuid.UUID) {
	if e.scheduler != nil {
		if err := e.scheduler.ScheduleConsolidation(ctx, userID); err != nil {
			e.logger.Warn("failed to schedule consolidation", zap.Error(err))
		}
		return
	}
	if _, err := e.consolidateLocked(ctx, userID); err != nil {
		e.logger.Warn("inline consolidation failed", zap.Error(err))
	}
}

// GetContext assembles the bounded context bundle for prompt enrichment:
// profile summary, the top active memories and the most recent problems.
func (e *Engine) GetContext(ctx context.Context, userID uuid.UUID) (*models.MemoryContext, error) {
	profile, err := e.profiles.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
	if profile == nil {
		profile = models.NewUserProfile(userID)
	}

	memories, err := e.memories.GetActiveByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load memories: %w", err)
	}
	if len(memories) > contextTopMemories {
		memories = memories[:contextTopMemories]
	}

	problems, err := e.problems.RecentByUserID(ctx, userID, contextRecentProblems)
	if err != nil {
		return nil, fmt.Errorf("failed to load problems: %w", err)
	}

	return &models.MemoryContext{
		ProfileSummary: profile.Summary(),
		Profile:        profile,
		TopMemories:    memories,
		RecentProblems: problems,
	}, nil
}

// LearnFact stores an explicit fact about the user. Importance is clamped to
// the valid range; a zero expiry means the fact never expires.
func (e *Engine) LearnFact(ctx context.Context, userID uuid.UUID, content string, contextType models.ContextType, importance int, expiresInDays int) (uuid.UUID, error) {
	if userID == uuid.Nil {
		return uuid.Nil, fmt.Errorf("user id is required")
	}
	if strings.TrimSpace(content) == "" {
		return uuid.Nil, fmt.Errorf("content is required")
	}
	if importance < models.MinImportance {
		importance = models.MinImportance
	}
	if importance > models.MaxImportance {
		importance = models.MaxImportance
	}

	now := e.now()
	memory := &models.ContextualMemory{
		ID:          uuid.New(),
		UserID:      userID,
		Content:     content,
		ContextType: contextType,
		Importance:  importance,
		CreatedAt:   now,
	}
	if expiresInDays > 0 {
		expiry := now.Add(time.Duration(expiresInDays) * 24 * time.Hour)
		memory.ExpiresAt = &expiry
	}

	lock := e.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	if err := e.memories.Create(ctx, memory); err != nil {
		return uuid.Nil, fmt.Errorf("failed to store fact: %w", err)
	}
	return memory.ID, nil
}

// Consolidate merges near-duplicate memories for one user. Safe to re-run;
// a second pass over consolidated memories changes nothing.
func (e *Engine) Consolidate(ctx context.Context, userID uuid.UUID) (ConsolidationResult, error) {
	lock := e.userLock(userID)
	lock.Lock()
	defer lock.Unlock()
	return e.consolidateLocked(ctx, userID)
}

func (e *Engine) consolidateLocked(ctx context.Context, userID uuid.UUID) (ConsolidationResult, error) {
	now := e.now()
	memories, err := e.memories.GetActiveByUserID(ctx, userID)
	if err != nil {
		return ConsolidationResult{}, fmt.Errorf("failed to load memories: %w", err)
	}

	updated, expired, result := consolidate(memories, e.lexicon.Snapshot(), e.cfg.MergeThreshold, now)
	for i := range updated {
		if err := e.memories.Update(ctx, &updated[i]); err != nil {
			return result, fmt.Errorf("failed to update survivor: %w", err)
		}
	}
	for _, m := range expired {
		if err := e.memories.Expire(ctx, m.ID, now); err != nil {
			return result, fmt.Errorf("failed to expire memory: %w", err)
		}
	}

	if result.Merged > 0 || result.Removed > 0 {
		e.logger.Info("memories consolidated",
			zap.String("user_id", userID.String()),
			zap.Int("merged", result.Merged),
			zap.Int("removed", result.Removed),
		)
	}
	return result, nil
}

// AnalyzePatterns builds the pattern report for one user from their recent
// history.
func (e *Engine) AnalyzePatterns(ctx context.Context, userID uuid.UUID) (*PatternReport, error) {
	interactions, err := e.interactions.RecentByUserID(ctx, userID, patternHistory)
	if err != nil {
		return nil, fmt.Errorf("failed to load interactions: %w", err)
	}
	patterns, err := e.patterns.ByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load language patterns: %w", err)
	}
	return AnalyzePatterns(interactions, patterns, e.lexicon.Snapshot()), nil
}

func classifyProblemType(text string) string {
	folded := lexicon.Fold(text)
	switch {
	case containsAny(folded, "errado", "errada", "incorreto", "incorreta", "nao bate", "divergente"):
		return "dados_incorretos"
	case containsAny(folded, "lento", "lenta", "demorado", "demorou", "travou", "timeout"):
		return "desempenho"
	case containsAny(folded, "nao entendeu", "nao entendi", "confuso", "confusa", "sem sentido"):
		return "interpretacao"
	case containsAny(folded, "erro", "falhou", "falha", "quebrou", "bug"):
		return "consulta_falhou"
	default:
		return "outro"
	}
}

func containsAny(text string, terms ...string) bool {
	for _, term := range terms {
		if strings.Contains(text, term) {
			return true
		}
	}
	return false
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
