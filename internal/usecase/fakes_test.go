package usecase

import (
	"bytes"
	"context"
	"errors"
	"slices"
	"sort"
	"sync"
	"time"

	"job-match/internal/domain/embedding"
	"job-match/internal/domain/match"
	"job-match/internal/domain/notification"
	"job-match/internal/repository"

	"github.com/google/uuid"
)

type fakeJobs struct {
	docs map[uuid.UUID]repository.JobDocument
	err  error
}

func (f *fakeJobs) GetJobDocument(_ context.Context, id uuid.UUID) (repository.JobDocument, error) {
	if f.err != nil {
		return repository.JobDocument{}, f.err
	}
	d, ok := f.docs[id]
	if !ok {
		return repository.JobDocument{}, repository.ErrJobNotFound
	}
	return d, nil
}

type fakeResumes struct {
	texts map[uuid.UUID]string
}

func (f *fakeResumes) GetResumeText(_ context.Context, id uuid.UUID) (string, error) {
	t, ok := f.texts[id]
	if !ok {
		return "", repository.ErrResumeNotFound
	}
	return t, nil
}

type vectorKey struct {
	kind  embedding.Kind
	owner uuid.UUID
}

type fakeVectors struct {
	mu      sync.Mutex
	records map[vectorKey]embedding.Record
	listErr error
}

func newFakeVectors() *fakeVectors {
	return &fakeVectors{records: map[vectorKey]embedding.Record{}}
}

func (f *fakeVectors) Put(_ context.Context, rec embedding.Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records[vectorKey{rec.Kind, rec.OwnerID}] = rec
	return nil
}

func (f *fakeVectors) Get(_ context.Context, kind embedding.Kind, owner uuid.UUID) (embedding.Record, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[vectorKey{kind, owner}]
	return rec, ok, nil
}

func (f *fakeVectors) ListPage(_ context.Context, kind embedding.Kind, after uuid.UUID, limit int) ([]embedding.Record, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []embedding.Record
	for k, rec := range f.records {
		if k.kind == kind && bytes.Compare(k.owner[:], after[:]) > 0 {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i].OwnerID[:], out[j].OwnerID[:]) < 0
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeVectors) putResume(owner uuid.UUID, vec ...float32) {
	_ = f.Put(context.Background(), embedding.Record{Kind: embedding.KindResume, OwnerID: owner, Vector: vec, ContentHash: "h"})
}

type fakeMatches struct {
	mu        sync.Mutex
	rows      map[match.Key]match.JobMatch
	upsertErr error
	upserts   int
}

func newFakeMatches() *fakeMatches {
	return &fakeMatches{rows: map[match.Key]match.JobMatch{}}
}

func (f *fakeMatches) Upsert(_ context.Context, m repository.JobMatchUpsert) (match.JobMatch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.upsertErr != nil {
		return match.JobMatch{}, f.upsertErr
	}
	f.upserts++
	k := match.Key{UserID: m.UserID, JobID: m.JobID}
	row, ok := f.rows[k]
	if !ok {
		row = match.JobMatch{ID: uuid.New(), UserID: m.UserID, JobID: m.JobID}
	}
	row.MatchScore = m.Score
	row.SimilarityScore = m.Similarity
	row.MatchedAt = m.MatchedAt
	f.rows[k] = row
	return row, nil
}

func (f *fakeMatches) MarkNotified(_ context.Context, keys []match.Key, at time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, k := range keys {
		row, ok := f.rows[k]
		if !ok {
			continue
		}
		if !row.Notified {
			row.Notified = true
			t := at
			row.NotifiedAt = &t
		}
		f.rows[k] = row
		n++
	}
	return n, nil
}

func (f *fakeMatches) ListUnnotified(_ context.Context, limit int) ([]match.JobMatch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []match.JobMatch
	for _, row := range f.rows {
		if !row.Notified {
			out = append(out, row)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeMatches) ListByUser(_ context.Context, userID uuid.UUID, minScore int) ([]repository.UserMatchedJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []repository.UserMatchedJob
	for _, row := range f.rows {
		if row.UserID == userID && row.MatchScore >= minScore {
			out = append(out, repository.UserMatchedJob{JobID: row.JobID, MatchScore: row.MatchScore, Notified: row.Notified})
		}
	}
	slices.SortFunc(out, func(a, b repository.UserMatchedJob) int { return b.MatchScore - a.MatchScore })
	return out, nil
}

func (f *fakeMatches) get(userID, jobID uuid.UUID) (match.JobMatch, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[match.Key{UserID: userID, JobID: jobID}]
	return row, ok
}

func (f *fakeMatches) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rows)
}

type countingProvider struct {
	mu     sync.Mutex
	vector []float32
	err    error
	calls  int
}

func (p *countingProvider) Embed(context.Context, string) ([]float32, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	return slices.Clone(p.vector), nil
}

func (p *countingProvider) ModelName() string { return "fake-embedding" }

func (p *countingProvider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

type fakePrefs struct {
	prefs map[uuid.UUID]notification.Preferences
}

func (f *fakePrefs) Get(_ context.Context, userID uuid.UUID) (notification.Preferences, bool, error) {
	p, ok := f.prefs[userID]
	return p, ok, nil
}

type fakeLogs struct {
	mu      sync.Mutex
	entries []notification.LogEntry
}

func (f *fakeLogs) Append(_ context.Context, e notification.LogEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, e)
	return nil
}

func (f *fakeLogs) all() []notification.LogEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.entries)
}

type recordingEmail struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (r *recordingEmail) SendEmail(_ context.Context, to, subject, _ string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, to+"|"+subject)
	return nil
}

func (r *recordingEmail) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.sent)
}

var errStore = errors.New("connection reset")
