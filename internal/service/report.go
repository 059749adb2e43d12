package service

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"explainx/internal/model"
	"explainx/internal/reporting"
	"explainx/internal/repository"
	"explainx/internal/storage"
)

var (
	ErrNoActiveAccount   = errors.New("no active ad account found")
	ErrInvalidStatus     = errors.New("invalid report status")
	ErrInvalidDate       = errors.New("invalid date, expected YYYY-MM-DD")
	ErrSnapshotNotFound  = errors.New("snapshot not found")
	ErrSnapshotsDisabled = errors.New("snapshot storage is not configured")
)

const (
	defaultProfileConcurrency = 4
	retryBatchSize            = 500
	snapshotURLExpiry         = 15 * time.Minute
	storeWriteTimeout         = 10 * time.Second
	// retryCooldown keeps job-level retries of one tick away from reports
	// that tick already re-requested.
	retryCooldown = time.Hour
)

// ReportListResult is the service-level DTO for paginated reports.
type ReportListResult struct {
	Items []model.Report `json:"data"`
	Total int            `json:"total"`
}

// DailySummary is uploaded to object storage after every daily run.
type DailySummary struct {
	Date        string          `json:"date"`
	Profiles    int             `json:"profiles"`
	Skipped     []string        `json:"skipped_profiles"`
	Requested   int             `json:"requested"`
	Failed      int             `json:"failed"`
	Results     []ProfileResult `json:"results"`
	GeneratedAt time.Time       `json:"generated_at"`
}

// ProfileResult maps report keys to upstream ids, or to the error that kept them from being requested.
type ProfileResult struct {
	ProfileID string            `json:"profile_id"`
	Reports   map[string]string `json:"reports"`
	Errors    map[string]string `json:"errors,omitempty"`
}

// ReportAPI authorizes report requests for an ad account.
type ReportAPI interface {
	Authorize(ctx context.Context, acc *model.AdAccount) (reporting.Creator, error)
}

// ReportService defines the report use cases run by the cron jobs and the admin API.
type ReportService interface {
	// ProcessDailyReports requests yesterday's reports for every connected profile
	// that does not have them yet.
	ProcessDailyReports(ctx context.Context) error

	// RetryFailedReports re-requests FAILED reports that still have attempts left.
	RetryFailedReports(ctx context.Context) error

	// List returns reports using limit/offset, optionally filtered by status.
	List(ctx context.Context, status string, limit, offset int) (*ReportListResult, error)

	// SnapshotURL returns a pre-signed URL for the daily summary of date (YYYY-MM-DD).
	SnapshotURL(ctx context.Context, date string) (string, error)
}

// ReportDeps wires the report service. Store may be nil when object storage is disabled.
type ReportDeps struct {
	Accounts    repository.AdAccountRepository
	Profiles    repository.ProfileRepository
	Reports     repository.ReportRepository
	Store       storage.Storage
	API         ReportAPI
	Log         *zap.Logger
	Location    *time.Location
	MaxAttempts int
	Concurrency int
}

type reportService struct {
	accounts    repository.AdAccountRepository
	profiles    repository.ProfileRepository
	reports     repository.ReportRepository
	store       storage.Storage
	api         ReportAPI
	log         *zap.Logger
	loc         *time.Location
	maxAttempts int
	concurrency int
	now         func() time.Time
}

// NewReportService constructs a new ReportService.
func NewReportService(d ReportDeps) ReportService {
	s := &reportService{
		accounts:    d.Accounts,
		profiles:    d.Profiles,
		reports:     d.Reports,
		store:       d.Store,
		api:         d.API,
		log:         d.Log,
		loc:         d.Location,
		maxAttempts: d.MaxAttempts,
		concurrency: d.Concurrency,
		now:         time.Now,
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if s.loc == nil {
		s.loc = time.UTC
	}
	if s.maxAttempts <= 0 {
		s.maxAttempts = 3
	}
	if s.concurrency <= 0 {
		s.concurrency = defaultProfileConcurrency
	}
	return s
}

func (s *reportService) authorize(ctx context.Context) (reporting.Creator, error) {
	acc, err := s.accounts.FindActive(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoActiveAccount
		}
		return nil, fmt.Errorf("load ad account: %w", err)
	}
	creator, err := s.api.Authorize(ctx, acc)
	if err != nil {
		return nil, fmt.Errorf("authorize reporting client: %w", err)
	}
	return creator, nil
}

// yesterday is the previous calendar day in the scheduler timezone, as a UTC date.
func (s *reportService) yesterday() time.Time {
	y, m, d := s.now().In(s.loc).Date()
	return time.Date(y, m, d-1, 0, 0, 0, 0, time.UTC)
}

func (s *reportService) ProcessDailyReports(ctx context.Context) error {
	creator, err := s.authorize(ctx)
	if err != nil {
		return err
	}

	day := s.yesterday()
	profiles, err := s.profiles.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("list active profiles: %w", err)
	}
	refs, err := s.reports.ListRequested(ctx, earliestStart(day))
	if err != nil {
		return fmt.Errorf("list requested reports: %w", err)
	}
	have := make(map[reportSlot]bool, len(refs))
	for _, ref := range refs {
		have[slotOf(ref.ProfileID, ref.ReportKey, ref.StartDate)] = true
	}

	summary := &DailySummary{
		Date:     day.Format(reporting.DateLayout),
		Profiles: len(profiles),
		Skipped:  make([]string, 0),
		Results:  make([]ProfileResult, 0, len(profiles)),
	}
	s.log.Info("daily_reports_start",
		zap.String("date", summary.Date),
		zap.Int("profiles", len(profiles)),
	)

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, p := range profiles {
		pid := p.ProfileID
		missing := missingConfigs(have, pid, day)
		if len(missing) == 0 {
			s.log.Info("daily_reports_profile_skipped", zap.String("profile_id", pid), zap.String("date", summary.Date))
			summary.Skipped = append(summary.Skipped, pid)
			continue
		}
		g.Go(func() error {
			res, err := s.requestProfile(gctx, creator, pid, day, missing)
			mu.Lock()
			summary.Results = append(summary.Results, res)
			summary.Requested += len(res.Reports)
			summary.Failed += len(res.Errors)
			mu.Unlock()
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	summary.GeneratedAt = s.now().UTC()
	if err := s.uploadSummary(ctx, day, summary); err != nil {
		return err
	}

	s.log.Info("daily_reports_done",
		zap.String("date", summary.Date),
		zap.Int("requested", summary.Requested),
		zap.Int("failed", summary.Failed),
		zap.Int("skipped", len(summary.Skipped)),
	)
	return nil
}

// reportSlot is the unit of coverage: one report type for one profile and window start.
type reportSlot struct {
	profileID string
	reportKey string
	start     string
}

func slotOf(profileID, key string, start time.Time) reportSlot {
	return reportSlot{profileID: profileID, reportKey: key, start: start.UTC().Format(reporting.DateLayout)}
}

// earliestStart is the oldest window start any config uses for day.
func earliestStart(day time.Time) time.Time {
	earliest := day
	for _, cfg := range reporting.Configs {
		if start, _ := cfg.Window(day); start.Before(earliest) {
			earliest = start
		}
	}
	return earliest
}

func missingConfigs(have map[reportSlot]bool, profileID string, day time.Time) []reporting.Config {
	var out []reporting.Config
	for _, cfg := range reporting.Configs {
		start, _ := cfg.Window(day)
		if !have[slotOf(profileID, cfg.Key, start)] {
			out = append(out, cfg)
		}
	}
	return out
}

// requestProfile requests the given report configs for one profile. Upstream
// failures become FAILED rows; only storage errors and cancellation are returned.
// Once a request was sent its row is written even if ctx is cancelled meanwhile.
func (s *reportService) requestProfile(ctx context.Context, creator reporting.Creator, profileID string, day time.Time, configs []reporting.Config) (ProfileResult, error) {
	res := ProfileResult{
		ProfileID: profileID,
		Reports:   make(map[string]string),
	}

	for _, cfg := range configs {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		start, end := cfg.Window(day)
		name := cfg.ReportName(day)
		extID, reqErr := creator.CreateReport(ctx, profileID, reporting.NewRequest(cfg, name, start, end))
		if reqErr != nil && ctx.Err() != nil {
			return res, ctx.Err()
		}

		now := s.now().UTC()
		rep := &model.Report{
			ID:        uuid.NewString(),
			Name:      name,
			ProfileID: profileID,
			ReportKey: cfg.Key,
			AdProduct: cfg.AdProduct,
			StartDate: start,
			EndDate:   end,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if reqErr != nil {
			rep.Status = model.ReportFailed
			rep.Attempts = 1
			rep.LastError = reqErr.Error()
			if res.Errors == nil {
				res.Errors = make(map[string]string)
			}
			res.Errors[cfg.Key] = reqErr.Error()
			s.log.Warn("report_request_failed",
				zap.String("profile_id", profileID),
				zap.String("report_key", cfg.Key),
				zap.Error(reqErr),
			)
		} else {
			rep.Status = model.ReportPending
			rep.ExternalReportID = extID
			res.Reports[cfg.Key] = extID
		}

		if err := s.storeReport(ctx, rep); err != nil {
			return res, fmt.Errorf("store %s report for profile %s: %w", cfg.Key, profileID, err)
		}
	}
	return res, nil
}

func (s *reportService) storeReport(ctx context.Context, rep *model.Report) error {
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), storeWriteTimeout)
	defer cancel()
	_, err := s.reports.Create(wctx, rep)
	return err
}

func (s *reportService) uploadSummary(ctx context.Context, day time.Time, summary *DailySummary) error {
	if s.store == nil {
		return nil
	}
	body, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("encode daily summary: %w", err)
	}
	_, err = s.store.Put(ctx, storage.SnapshotKey(day), bytes.NewReader(body), storage.PutObjectOptions{
		Size:        int64(len(body)),
		ContentType: "application/json",
		Metadata:    map[string]string{"report-date": summary.Date},
	})
	if err != nil {
		return fmt.Errorf("upload daily summary: %w", err)
	}
	return nil
}

// RetryFailedReports spends at most one attempt per report per call: a
// report rejected upstream is marked FAILED, which moves it behind the
// cooldown. Only listing, authorization and storage errors are returned.
func (s *reportService) RetryFailedReports(ctx context.Context) error {
	now := s.now().UTC()
	items, err := s.reports.ListRetryable(ctx, s.maxAttempts, now.Add(-retryCooldown), retryBatchSize)
	if err != nil {
		return fmt.Errorf("list failed reports: %w", err)
	}
	if len(items) == 0 {
		s.log.Info("retry_reports_none")
		return nil
	}

	creator, err := s.authorize(ctx)
	if err != nil {
		return err
	}

	var errs []error
	requested, failed, abandoned := 0, 0, 0
	for _, rep := range items {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		var extID string
		var reqErr error
		if cfg, ok := reporting.ConfigFor(rep.ReportKey); ok {
			extID, reqErr = creator.CreateReport(ctx, rep.ProfileID, reporting.NewRequest(cfg, rep.Name, rep.StartDate, rep.EndDate))
			if reqErr != nil && ctx.Err() != nil {
				errs = append(errs, ctx.Err())
				break
			}
		} else {
			reqErr = fmt.Errorf("unknown report type %q", rep.ReportKey)
		}

		if reqErr != nil {
			if err := s.reports.MarkFailed(ctx, rep.ID, reqErr.Error(), s.now().UTC()); err != nil {
				errs = append(errs, fmt.Errorf("mark report %s failed: %w", rep.ID, err))
				continue
			}
			failed++
			fields := []zap.Field{
				zap.String("report_id", rep.ID),
				zap.String("profile_id", rep.ProfileID),
				zap.String("report_key", rep.ReportKey),
				zap.Int("attempts", rep.Attempts+1),
				zap.Int("max_attempts", s.maxAttempts),
				zap.Error(reqErr),
			}
			if rep.Attempts+1 >= s.maxAttempts {
				abandoned++
				s.log.Warn("report_abandoned", fields...)
			} else {
				s.log.Warn("report_retry_failed", fields...)
			}
			continue
		}

		if err := s.reports.MarkRequested(ctx, rep.ID, extID, s.now().UTC()); err != nil {
			errs = append(errs, fmt.Errorf("mark report %s requested: %w", rep.ID, err))
			continue
		}
		requested++
	}

	s.log.Info("retry_reports_done",
		zap.Int("candidates", len(items)),
		zap.Int("requested", requested),
		zap.Int("failed", failed),
		zap.Int("abandoned", abandoned),
		zap.Int("errors", len(errs)),
	)
	return errors.Join(errs...)
}

// List returns paginated reports without exposing repository types.
func (s *reportService) List(ctx context.Context, status string, limit, offset int) (*ReportListResult, error) {
	if limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	f := repository.ReportFilter{}
	if status != "" {
		st := model.ReportStatus(strings.ToUpper(status))
		if !st.Valid() {
			return nil, ErrInvalidStatus
		}
		f.Status = st
	}

	res, err := s.reports.List(ctx, f, repository.PageQuery{Limit: limit, Offset: offset})
	if err != nil {
		return nil, err
	}
	return &ReportListResult{Items: res.Items, Total: res.Total}, nil
}

func (s *reportService) SnapshotURL(ctx context.Context, date string) (string, error) {
	day, err := time.Parse(reporting.DateLayout, date)
	if err != nil {
		return "", ErrInvalidDate
	}
	if s.store == nil {
		return "", ErrSnapshotsDisabled
	}

	key := storage.SnapshotKey(day)
	if _, err := s.store.Stat(ctx, key); err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return "", ErrSnapshotNotFound
		}
		return "", fmt.Errorf("stat snapshot: %w", err)
	}
	return s.store.PresignGet(ctx, key, snapshotURLExpiry)
}
