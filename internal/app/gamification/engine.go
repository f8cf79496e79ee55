// Package gamification implements the engine that owns a user's progress:
// point accounting, badge and milestone unlocks, the daily challenge and
// the point multiplier. Every mutation is persisted through a
// domain.KVStore and announced on a domain.Publisher.
package gamification

import (
	"fmt"
	"log/slog"
	"math"
	"slices"
	"sync"
	"time"

	"github.com/attnlab/dopamind/internal/domain"
)

// Point awards fixed by the game rules.
const (
	PageVisitPoints      = 25
	DailyChallengePoints = 100
)

// PointsResult is returned by AddPoints.
type PointsResult struct {
	Awarded int `json:"pointsEarned"`
	Total   int `json:"totalPoints"`
}

// ChallengeStatus is the read-only view of the daily challenge.
type ChallengeStatus struct {
	domain.DailyChallenge
	Phase           domain.ChallengePhase `json:"phase"`
	CanClaim        bool                  `json:"canClaim"`
	ProgressPercent float64               `json:"progressPercent"`
	Description     string                `json:"description"`
	Multiplier      float64               `json:"multiplier"`
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock replaces time.Now for the daily-reset check.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithLogger sets the engine logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithRequiredPages sets the daily challenge target used on every reset.
func WithRequiredPages(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.required = n
		}
	}
}

// WithLegacySync also writes the userProgress record on every save.
func WithLegacySync(on bool) Option {
	return func(e *Engine) { e.legacySync = on }
}

// WithResetHook runs fn after every ResetAll, outside the engine lock.
func WithResetHook(fn func()) Option {
	return func(e *Engine) { e.onReset = fn }
}

// Engine is the sole owner and mutator of a ProgressState.
// It is safe for concurrent use; commands are serialized.
type Engine struct {
	store domain.KVStore
	bus   domain.Publisher

	now        func() time.Time
	logger     *slog.Logger
	required   int
	legacySync bool
	onReset    func()

	rules      []badgeRule
	milestones []domain.MilestoneDefinition

	mu         sync.Mutex
	state      domain.ProgressState
	persistErr error
}

// New loads persisted progress from store and performs the daily-reset
// check. Absent or unreadable records yield the zero state; the failure
// is kept in PersistenceErr. bus may be nil.
func New(store domain.KVStore, bus domain.Publisher, opts ...Option) *Engine {
	e := &Engine{
		store:      store,
		bus:        bus,
		now:        time.Now,
		logger:     slog.Default(),
		required:   domain.DefaultRequiredPages,
		rules:      allBadgeRules(),
		milestones: AllMilestones(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With("component", "engine")

	e.mu.Lock()
	defer e.mu.Unlock()

	migrated := e.loadLocked()
	rolled := e.rolloverLocked()
	if migrated || rolled {
		e.persistLocked("load")
	}
	return e
}

// ─── Commands ───────────────────────────────────────────────────────────────

// AddPoints awards floor(amount × multiplier) points and runs badge and
// milestone evaluation.
func (e *Engine) AddPoints(amount int, sourceType string) (PointsResult, error) {
	if amount <= 0 {
		return PointsResult{}, domain.InvalidArgument("AddPoints", "amount %d must be positive", amount)
	}
	if sourceType == "" {
		sourceType = domain.SourceGeneral
	}

	var events []domain.Event
	e.mu.Lock()
	if limit := e.maxAwardLocked(); amount > limit {
		e.mu.Unlock()
		return PointsResult{}, domain.InvalidArgument("AddPoints", "amount %d exceeds %d", amount, limit)
	}
	e.rolloverLocked()
	res := e.addPointsLocked(amount, sourceType, &events)
	e.persistLocked("AddPoints")
	e.mu.Unlock()

	e.publish(events)
	return res, nil
}

// VisitPage records pageID and awards PageVisitPoints the first time it is
// seen. It reports whether the page was new.
func (e *Engine) VisitPage(pageID string) (bool, error) {
	if pageID == "" {
		return false, domain.InvalidArgument("VisitPage", "page id is empty")
	}

	var events []domain.Event
	e.mu.Lock()
	rolled := e.rolloverLocked()
	if e.state.HasVisited(pageID) {
		if rolled {
			e.persistLocked("VisitPage")
		}
		e.mu.Unlock()
		return false, nil
	}
	e.state.PagesVisited = append(e.state.PagesVisited, pageID)
	e.addPointsLocked(PageVisitPoints, domain.SourcePageVisit, &events)
	e.persistLocked("VisitPage")
	e.mu.Unlock()

	e.publish(events)
	return true, nil
}

// CompleteQuiz records a quiz result and returns the points awarded for it.
// The award goes through the regular evaluation pass first; the quiz
// badges unlock afterwards and are not re-evaluated until the next command.
func (e *Engine) CompleteQuiz(scorePercent int) (int, error) {
	if scorePercent < 0 || scorePercent > 100 {
		return 0, domain.InvalidArgument("CompleteQuiz", "score %d outside 0..100", scorePercent)
	}

	var events []domain.Event
	e.mu.Lock()
	e.rolloverLocked()

	e.state.QuizScore = scorePercent
	e.state.QuizCompleted = true

	var awarded int
	if base := scorePercent / 2; base > 0 {
		awarded = e.addPointsLocked(base, domain.SourceQuiz, &events).Awarded
	}
	if scorePercent == 100 {
		e.unlockLocked(domain.BadgeQuizMaster, &events)
	}
	if scorePercent >= 50 {
		e.unlockLocked(domain.BadgeMaster, &events)
	}

	events = append(events, domain.QuizCompleted{ScorePercent: scorePercent, PointsAwarded: awarded})
	e.persistLocked("CompleteQuiz")
	e.mu.Unlock()

	e.publish(events)
	return awarded, nil
}

// CompleteDailyChallenge claims today's challenge. It returns false unless
// the challenge is claimable.
func (e *Engine) CompleteDailyChallenge() bool {
	var events []domain.Event
	e.mu.Lock()
	rolled := e.rolloverLocked()
	if !e.state.DailyChallenge.CanClaim() {
		if rolled {
			e.persistLocked("CompleteDailyChallenge")
		}
		e.mu.Unlock()
		return false
	}

	e.state.DailyChallenge.Completed = true
	res := e.addPointsLocked(DailyChallengePoints, domain.SourceDailyChallenge, &events)
	e.state.MultiplierTenths = min(e.state.MultiplierTenths+domain.MultiplierStepTenths, domain.MultiplierMaxTenths)
	events = append(events, domain.DailyChallengeCompleted{PointsAwarded: res.Awarded})
	e.persistLocked("CompleteDailyChallenge")
	e.mu.Unlock()

	e.publish(events)
	return true
}

// ResetDailyChallenge starts a fresh challenge dated today and decays the
// multiplier by one step.
func (e *Engine) ResetDailyChallenge() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.resetChallengeLocked()
	e.persistLocked("ResetDailyChallenge")
}

// ResetAll returns to the zero state and erases persisted records.
func (e *Engine) ResetAll() {
	e.mu.Lock()
	e.state = domain.NewProgressState(e.today(), e.required)
	e.persistErr = nil
	if e.store != nil {
		for _, key := range []string{StateKey, LegacyKey} {
			if err := e.store.Delete(key); err != nil {
				e.recordPersistErr("ResetAll", err)
			}
		}
	}
	e.mu.Unlock()

	e.logger.Info("progress reset")
	if e.onReset != nil {
		e.onReset()
	}
}

// Sync merges the record another writer left in the store into memory:
// sets are unioned, points take the maximum and the daily challenge with
// the later reset date wins. No events are published for merged progress.
func (e *Engine) Sync() error {
	if e.store == nil {
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	payload, err := e.store.Get(StateKey)
	if err != nil {
		e.recordPersistErr("Sync", err)
		return domain.PersistenceError("Sync", err)
	}
	if payload != "" {
		remote, err := Decode(payload)
		if err != nil {
			e.recordPersistErr("Sync", err)
			return domain.PersistenceError("Sync", err)
		}
		e.state = merge(e.state, remote)
	}
	e.rolloverLocked()
	e.persistLocked("Sync")
	return nil
}

// ─── Queries ────────────────────────────────────────────────────────────────

// Points returns the current total.
func (e *Engine) Points() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Points
}

// State returns a deep copy of the progress state.
func (e *Engine) State() domain.ProgressState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Clone()
}

// UnlockedBadges resolves unlocked ids in unlock order.
func (e *Engine) UnlockedBadges() []domain.BadgeDefinition {
	e.mu.Lock()
	ids := slices.Clone(e.state.Badges)
	e.mu.Unlock()

	out := make([]domain.BadgeDefinition, 0, len(ids))
	for _, id := range ids {
		if def, ok := e.Badge(id); ok {
			out = append(out, def)
		}
	}
	return out
}

// BadgeDefinitions returns the badge catalog.
func (e *Engine) BadgeDefinitions() []domain.BadgeDefinition {
	out := make([]domain.BadgeDefinition, len(e.rules))
	for i, r := range e.rules {
		out[i] = r.Def
	}
	return out
}

// MilestoneDefinitions returns the milestone catalog, ascending.
func (e *Engine) MilestoneDefinitions() []domain.MilestoneDefinition {
	return slices.Clone(e.milestones)
}

// Badge looks up a catalog entry.
func (e *Engine) Badge(id domain.BadgeID) (domain.BadgeDefinition, bool) {
	for _, r := range e.rules {
		if r.Def.ID == id {
			return r.Def, true
		}
	}
	return domain.BadgeDefinition{}, false
}

// Milestone looks up a catalog entry by threshold.
func (e *Engine) Milestone(threshold int) (domain.MilestoneDefinition, bool) {
	for _, m := range e.milestones {
		if m.Threshold == threshold {
			return m, true
		}
	}
	return domain.MilestoneDefinition{}, false
}

// DailyChallengeStatus reports the challenge as it stands today. A
// challenge dated on an earlier day is shown as already rolled over;
// the rollover itself happens on the next command.
func (e *Engine) DailyChallengeStatus() ChallengeStatus {
	e.mu.Lock()
	dc := e.state.DailyChallenge
	tenths := e.state.MultiplierTenths
	e.mu.Unlock()

	if today := e.today(); dc.LastResetDate != today {
		dc = domain.DailyChallenge{Required: e.required, LastResetDate: today}
		tenths = max(tenths-domain.MultiplierStepTenths, domain.MultiplierMinTenths)
	}
	return ChallengeStatus{
		DailyChallenge:  dc,
		Phase:           dc.Phase(),
		CanClaim:        dc.CanClaim(),
		ProgressPercent: dc.ProgressPercent(),
		Description:     fmt.Sprintf("Visit %d different pages today!", dc.Required),
		Multiplier:      float64(tenths) / 10,
	}
}

// ProgressPercent is unlocked badges over catalog size, as a percentage.
func (e *Engine) ProgressPercent() float64 {
	e.mu.Lock()
	n := len(e.state.Badges)
	e.mu.Unlock()
	return float64(n) / float64(len(e.rules)) * 100
}

// PersistenceErr returns the most recent load or save failure, or nil once
// a later save succeeds.
func (e *Engine) PersistenceErr() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.persistErr
}

// ─── Internals (callers hold e.mu) ──────────────────────────────────────────

func (e *Engine) today() string {
	return e.now().Format(domain.DateLayout)
}

func (e *Engine) applyMultiplier(amount int) int {
	return amount * e.state.MultiplierTenths / 10
}

// maxAwardLocked is the largest AddPoints amount that cannot overflow the
// total, with room left for every badge and milestone bonus.
func (e *Engine) maxAwardLocked() int {
	headroom := len(e.rules) * domain.BadgeBonusPoints
	for _, m := range e.milestones {
		headroom += m.BonusPoints
	}
	room := math.MaxInt - e.state.Points - headroom
	if room <= 0 {
		return 0
	}
	return room / domain.MultiplierMaxTenths
}

func (e *Engine) addPointsLocked(amount int, sourceType string, events *[]domain.Event) PointsResult {
	prev := e.state.Points
	final := e.applyMultiplier(amount)
	e.state.Points += final
	if domain.CountsTowardChallenge(sourceType) {
		e.state.DailyChallenge.VisitedToday++
	}
	e.evaluateLocked(prev, events)

	*events = append(*events, domain.PointsEarned{
		Points:      final,
		SourceType:  sourceType,
		TotalPoints: e.state.Points,
	})
	return PointsResult{Awarded: final, Total: e.state.Points}
}

// evaluateLocked runs the badge pass against a snapshot of points and
// pages, then the milestone pass for thresholds crossed since prev.
// Milestones compare against the live total so a bonus never skips a
// higher threshold. Milestone bonuses do not feed back into the badge
// pass; the next command picks them up.
func (e *Engine) evaluateLocked(prev int, events *[]domain.Event) {
	snap := badgeStats{Points: e.state.Points, Pages: len(e.state.PagesVisited)}
	for _, r := range e.rules {
		if r.Predicate != nil && r.Predicate(snap) {
			e.unlockLocked(r.Def.ID, events)
		}
	}

	for _, m := range e.milestones {
		if prev < m.Threshold && m.Threshold <= e.state.Points && !e.state.HasMilestone(m.Threshold) {
			e.state.Milestones = append(e.state.Milestones, m.Threshold)
			e.state.Points += m.BonusPoints
			*events = append(*events, domain.MilestoneReached{Milestone: m, TotalPoints: e.state.Points})
		}
	}
}

// unlockLocked adds id once and pays the flat badge bonus.
func (e *Engine) unlockLocked(id domain.BadgeID, events *[]domain.Event) {
	if e.state.HasBadge(id) {
		return
	}
	def, ok := e.Badge(id)
	if !ok {
		return
	}
	e.state.Badges = append(e.state.Badges, id)
	e.state.Points += domain.BadgeBonusPoints
	*events = append(*events, domain.BadgeUnlocked{
		Badge:       def,
		BonusPoints: domain.BadgeBonusPoints,
		TotalPoints: e.state.Points,
	})
}

// rolloverLocked resets the challenge when the calendar day changed.
func (e *Engine) rolloverLocked() bool {
	if e.state.DailyChallenge.LastResetDate == e.today() {
		return false
	}
	e.resetChallengeLocked()
	return true
}

func (e *Engine) resetChallengeLocked() {
	e.state.DailyChallenge = domain.DailyChallenge{
		Required:      e.required,
		LastResetDate: e.today(),
	}
	e.state.MultiplierTenths = max(e.state.MultiplierTenths-domain.MultiplierStepTenths, domain.MultiplierMinTenths)
}

// loadLocked restores state from the store, migrating the legacy record
// when only that exists. It reports whether a migration happened.
func (e *Engine) loadLocked() bool {
	e.state = domain.NewProgressState(e.today(), e.required)
	if e.store == nil {
		return false
	}

	payload, err := e.store.Get(StateKey)
	if err != nil {
		e.recordPersistErr("load", err)
		return false
	}
	if payload != "" {
		s, err := Decode(payload)
		if err != nil {
			e.recordPersistErr("load", err)
			return false
		}
		e.state = s
		return false
	}

	legacy, err := e.store.Get(LegacyKey)
	if err != nil {
		e.recordPersistErr("load", err)
		return false
	}
	if legacy == "" {
		return false
	}
	lp, err := DecodeLegacy(legacy)
	if err == nil {
		var s domain.ProgressState
		if s, err = MigrateLegacy(lp, e.today(), e.required); err == nil {
			e.state = s
			e.logger.Info("migrated legacy progress", "points", s.Points, "badges", len(s.Badges))
			return true
		}
	}
	e.recordPersistErr("migrate", err)
	return false
}

func (e *Engine) persistLocked(op string) {
	if e.store == nil {
		return
	}
	payload, err := Encode(e.state)
	if err == nil {
		err = e.store.Set(StateKey, payload)
	}
	if err == nil && e.legacySync {
		var legacy string
		if legacy, err = EncodeLegacy(e.state); err == nil {
			err = e.store.Set(LegacyKey, legacy)
		}
	}
	if err != nil {
		e.recordPersistErr(op, err)
		return
	}
	e.persistErr = nil
}

func (e *Engine) recordPersistErr(op string, err error) {
	e.persistErr = domain.PersistenceError(op, err)
	e.logger.Warn("persistence failure", "op", op, "error", err)
}

// publish runs outside e.mu so subscribers may query the engine.
func (e *Engine) publish(events []domain.Event) {
	if e.bus == nil {
		return
	}
	for _, ev := range events {
		if err := e.bus.Publish(ev); err != nil {
			e.logger.Warn("publish failed", "event", ev.Kind(), "error", err)
		}
	}
}

// merge reconciles two states written by different processes.
func merge(local, remote domain.ProgressState) domain.ProgressState {
	out := local.Clone()
	out.Points = max(local.Points, remote.Points)
	for _, id := range remote.Badges {
		if !out.HasBadge(id) {
			out.Badges = append(out.Badges, id)
		}
	}
	for _, t := range remote.Milestones {
		if !out.HasMilestone(t) {
			out.Milestones = append(out.Milestones, t)
		}
	}
	slices.Sort(out.Milestones)
	for _, p := range remote.PagesVisited {
		if !out.HasVisited(p) {
			out.PagesVisited = append(out.PagesVisited, p)
		}
	}
	out.QuizCompleted = local.QuizCompleted || remote.QuizCompleted
	out.QuizScore = max(local.QuizScore, remote.QuizScore)

	ld, rd := local.DailyChallenge, remote.DailyChallenge
	switch {
	case rd.LastResetDate > ld.LastResetDate:
		out.DailyChallenge = rd
		out.MultiplierTenths = remote.MultiplierTenths
	case rd.LastResetDate == ld.LastResetDate:
		out.DailyChallenge.VisitedToday = max(ld.VisitedToday, rd.VisitedToday)
		out.DailyChallenge.Completed = ld.Completed || rd.Completed
		out.MultiplierTenths = max(local.MultiplierTenths, remote.MultiplierTenths)
	}
	return out
}
