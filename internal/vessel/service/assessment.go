// Package service assembles vessel assessments: it reconciles port-authority
// arrivals with the vessel registry, scores the result, and records or
// alerts on it.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jmerrifield20/seasense/internal/alerts"
	"github.com/jmerrifield20/seasense/internal/auditlog"
	"github.com/jmerrifield20/seasense/internal/reconcile"
	"github.com/jmerrifield20/seasense/internal/threat"
	"github.com/jmerrifield20/seasense/internal/vessel/model"
	"github.com/jmerrifield20/seasense/internal/vessel/repository"
	"github.com/jmerrifield20/seasense/pkg/imo"
)

// ErrEmptyQuery is returned by searches given a blank query.
var ErrEmptyQuery = errors.New("search query is empty")

// Defaults applied when Config leaves a field zero.
const (
	DefaultWorkers       = 8
	DefaultWindow        = 72 * time.Hour
	DefaultSearchWindow  = 24 * time.Hour
	DefaultSearchLimit   = 50
	DefaultAlertCooldown = 12 * time.Hour
)

// VesselStore reads registry records. *repository.VesselRepository and
// *repository.SQLiteStore satisfy it.
type VesselStore interface {
	GetByIMO(ctx context.Context, imo string) (*model.Vessel, error)
	SearchByName(ctx context.Context, name string, limit int) ([]*model.Vessel, error)
}

// ArrivalStore reads the port-authority feeds. *repository.ArrivalRepository
// and *repository.SQLiteStore satisfy it.
type ArrivalStore interface {
	LatestDue(ctx context.Context, q repository.DueQuery) ([]*model.Arrival, error)
	SearchArrived(ctx context.Context, query string, since time.Time, limit int) ([]*model.Arrival, error)
}

// RegistryLookup adapts a VesselStore to reconcile.Lookup, reporting
// repository.ErrNotFound as a nil record.
func RegistryLookup(store VesselStore) reconcile.Lookup {
	return reconcile.LookupFunc(func(ctx context.Context, id string) (*model.Vessel, error) {
		v, err := store.GetByIMO(ctx, id)
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return v, err
	})
}

// Assessment is one arrival reconciled and scored.
//
// VesselDetails is set only when the arrival resolved to a registry record.
// A conflicting record is reported as RegistryCandidate instead, since it
// describes a different hull.
type Assessment struct {
	VesselDetails        *model.Vessel    `json:"vesselDetails"`
	VesselArrivalDetails *model.Arrival   `json:"vesselArrivalDetails"`
	Resolution           reconcile.Status `json:"resolution"`
	RegistryCandidate    *model.Vessel    `json:"registryCandidate,omitempty"`
	Score                threat.Result    `json:"score"`
}

// ScoreReport is the result of scoring a registry record directly.
type ScoreReport struct {
	Vessel      *model.Vessel
	Result      threat.Result
	LedgerEntry *auditlog.Entry // nil when no ledger is configured or the append failed
}

// Config holds assessment settings.
type Config struct {
	Workers       int           // concurrent assessments per batch
	Window        time.Duration // how far ahead Arriving looks
	SearchWindow  time.Duration // how far back Search looks
	SearchLimit   int
	AlertMinLevel int           // 0 disables alerts
	AlertCooldown time.Duration // repeat alerts for a vessel at the same level are suppressed this long
}

// AssessmentService reconciles and scores vessels.
type AssessmentService struct {
	vessels  VesselStore
	arrivals ArrivalStore
	lookup   reconcile.Lookup
	resolver *reconcile.Resolver
	scorer   threat.Scorer
	ledger   auditlog.Ledger  // nil = no ledger writes
	alerts   alerts.Publisher // nil = no alerts
	metrics  *Metrics         // nil = no metrics
	sent     *alertSuppressor
	cfg      Config
	now      func() time.Time
	logger   *zap.Logger
}

// NewAssessmentService creates an AssessmentService. Registry lookups go
// straight to vessels until SetLookup installs a cache.
func NewAssessmentService(vessels VesselStore, arrivals ArrivalStore, resolver *reconcile.Resolver, scorer threat.Scorer, cfg Config, logger *zap.Logger) *AssessmentService {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}
	if cfg.SearchWindow <= 0 {
		cfg.SearchWindow = DefaultSearchWindow
	}
	if cfg.SearchLimit <= 0 {
		cfg.SearchLimit = DefaultSearchLimit
	}
	if cfg.AlertCooldown <= 0 {
		cfg.AlertCooldown = DefaultAlertCooldown
	}
	if resolver == nil {
		resolver = reconcile.New(reconcile.Config{})
	}
	return &AssessmentService{
		vessels:  vessels,
		arrivals: arrivals,
		lookup:   RegistryLookup(vessels),
		resolver: resolver,
		scorer:   scorer,
		sent:     newAlertSuppressor(cfg.AlertCooldown),
		cfg:      cfg,
		now:      time.Now,
		logger:   logger,
	}
}

// SetLookup replaces the registry lookup used for reconciliation, typically
// with a cached one wrapping RegistryLookup.
func (s *AssessmentService) SetLookup(l reconcile.Lookup) {
	s.lookup = l
}

// SetLedger configures the assessment ledger written by ScoreIMO.
func (s *AssessmentService) SetLedger(l auditlog.Ledger) {
	s.ledger = l
}

// SetPublisher configures alert delivery.
func (s *AssessmentService) SetPublisher(p alerts.Publisher) {
	s.alerts = p
}

// SetMetrics configures outcome counters.
func (s *AssessmentService) SetMetrics(m *Metrics) {
	s.metrics = m
}

// SetClock overrides the time source.
func (s *AssessmentService) SetClock(now func() time.Time) {
	s.now = now
}

// Ruleset returns the ruleset assessments are scored with.
func (s *AssessmentService) Ruleset() *threat.Ruleset {
	return s.scorer.Ruleset()
}

// Assess reconciles one arrival and scores it. Only a registry failure is
// returned as an error; unresolved arrivals are scored with the synthetic
// unresolved rules.
func (s *AssessmentService) Assess(ctx context.Context, arrival *model.Arrival) (*Assessment, error) {
	out, err := s.resolver.Resolve(ctx, arrival, s.lookup)
	if err != nil {
		return nil, err
	}

	a := &Assessment{VesselArrivalDetails: arrival, Resolution: out.Status}
	switch out.Status {
	case reconcile.StatusResolved:
		a.VesselDetails = out.Record
		a.Score = s.scorer.Score(out.Record)
	case reconcile.StatusConflictingIdentity:
		a.RegistryCandidate = out.Record
		a.Score = s.scorer.ScoreUnresolved(threat.UnresolvedConflictingIdentity)
	default:
		a.Score = s.scorer.ScoreUnresolved(threat.UnresolvedMissingIdentifier)
	}

	s.metrics.RecordAssessment(a.Resolution, a.Score.Level, len(a.Score.Warnings))
	s.maybeAlert(ctx, a)
	return a, nil
}

// AssessAll assesses arrivals concurrently and returns the assessments in
// input order. The first registry failure cancels the batch.
func (s *AssessmentService) AssessAll(ctx context.Context, arrivals []*model.Arrival) ([]*Assessment, error) {
	results := make([]*Assessment, len(arrivals))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Workers)
	for i, arr := range arrivals {
		g.Go(func() error {
			a, err := s.Assess(gctx, arr)
			if err != nil {
				return err
			}
			results[i] = a
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Arriving assesses the latest due-to-arrive record of every vessel expected
// within window (Config.Window when zero), or of one vessel when id is set.
func (s *AssessmentService) Arriving(ctx context.Context, id string, window time.Duration) ([]*Assessment, error) {
	if window <= 0 {
		window = s.cfg.Window
	}
	now := s.now().UTC()
	q := repository.DueQuery{From: now, To: now.Add(window)}
	if id = strings.TrimSpace(id); id != "" {
		q = repository.DueQuery{IMO: imo.Normalize(id)}
	}

	due, err := s.arrivals.LatestDue(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list due arrivals: %w", err)
	}
	return s.AssessAll(ctx, due)
}

// Search assesses recently arrived vessels whose IMO or call sign equals
// query or whose name contains it.
func (s *AssessmentService) Search(ctx context.Context, query string) ([]*Assessment, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	since := s.now().UTC().Add(-s.cfg.SearchWindow)
	arrived, err := s.arrivals.SearchArrived(ctx, query, since, s.cfg.SearchLimit)
	if err != nil {
		return nil, fmt.Errorf("search arrivals: %w", err)
	}
	return s.AssessAll(ctx, arrived)
}

// GetVessel returns the registry record for an IMO, or repository.ErrNotFound.
func (s *AssessmentService) GetVessel(ctx context.Context, id string) (*model.Vessel, error) {
	id = imo.Normalize(id)
	if id == "" {
		return nil, repository.ErrNotFound
	}
	return s.vessels.GetByIMO(ctx, id)
}

// SearchVessels returns registry records whose current or former name
// contains name.
func (s *AssessmentService) SearchVessels(ctx context.Context, name string) ([]*model.Vessel, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyQuery
	}
	return s.vessels.SearchByName(ctx, name, s.cfg.SearchLimit)
}

// ScoreIMO scores a registry record directly and records the result in the
// ledger on behalf of actor.
func (s *AssessmentService) ScoreIMO(ctx context.Context, id, actor string) (*ScoreReport, error) {
	v, err := s.GetVessel(ctx, id)
	if err != nil {
		return nil, err
	}
	r := &ScoreReport{Vessel: v, Result: s.scorer.Score(v)}
	s.metrics.RecordAssessment(reconcile.StatusResolved, r.Result.Level, len(r.Result.Warnings))
	r.LedgerEntry = s.appendLedger(ctx, v.IMO, actor, r.Result)
	return r, nil
}

// appendLedger records an assessment without failing the request.
func (s *AssessmentService) appendLedger(ctx context.Context, id, actor string, res threat.Result) *auditlog.Entry {
	if s.ledger == nil {
		return nil
	}
	if actor == "" {
		actor = auditlog.SystemActor
	}
	e, err := s.ledger.Append(ctx, id, auditlog.ActionAssess, actor, res)
	if err != nil {
		s.logger.Error("ledger append failed (non-fatal)", zap.String("imo", id), zap.Error(err))
		return nil
	}
	s.metrics.RecordLedgerAppend()
	return e
}

func (s *AssessmentService) maybeAlert(ctx context.Context, a *Assessment) {
	if s.alerts == nil || s.cfg.AlertMinLevel <= 0 || a.Score.Level < s.cfg.AlertMinLevel {
		return
	}
	key := alertKey(a.VesselArrivalDetails, a.Score.Level)
	if !s.sent.claim(key, s.now()) {
		s.metrics.RecordAlertSuppressed()
		return
	}

	alert := alerts.Alert{Resolution: string(a.Resolution), Score: a.Score.Score, Level: a.Score.Level}
	if arr := a.VesselArrivalDetails; arr != nil {
		alert.IMO = imo.Normalize(arr.IMO)
		alert.VesselName = arr.VesselName
		alert.Callsign = arr.Callsign
	}
	for _, cr := range a.Score.CheckedRules {
		if cr.Tripped {
			alert.TrippedRules = append(alert.TrippedRules, cr.Name)
		}
	}
	alert = alerts.NewAlert(alert)

	err := s.alerts.Publish(ctx, alert)
	s.metrics.RecordAlert(err == nil)
	if err != nil {
		s.sent.release(key)
		s.logger.Warn("alert publish failed", zap.String("imo", alert.IMO), zap.Error(err))
	}
}
