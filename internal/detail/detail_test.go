package detail_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobwatch/scraper-service/internal/detail"
	"jobwatch/scraper-service/internal/model"
)

// memStore is an in-memory Store. ArchiveAndUpdate mirrors the all-or-
// nothing contract: when failArchive is set it returns an error having
// mutated nothing, like a rolled-back transaction.
type memStore struct {
	details     map[string]*model.JobDetail // keyed by posting ID
	history     []model.JobDetailHistory
	creates     int
	archives    int
	failArchive bool
	failCreate  bool
}

func newMemStore() *memStore {
	return &memStore{details: make(map[string]*model.JobDetail)}
}

func (s *memStore) FindByPosting(_ context.Context, postingID string) (*model.JobDetail, error) {
	if d, ok := s.details[postingID]; ok {
		cp := *d
		return &cp, nil
	}
	return nil, nil
}

func (s *memStore) FindExtractionByChecksum(_ context.Context, sum string) (string, bool, error) {
	for _, d := range s.details {
		if d.Checksum == sum {
			return d.ExtractedJSON, true, nil
		}
	}
	for _, h := range s.history {
		if h.Checksum == sum {
			return h.ExtractedJSON, true, nil
		}
	}
	return "", false, nil
}

func (s *memStore) CreateDetail(_ context.Context, d *model.JobDetail) error {
	if s.failCreate {
		return errors.New("insert failed")
	}
	s.creates++
	d.ID = fmt.Sprintf("detail-%d", s.creates)
	cp := *d
	s.details[d.JobPostingID] = &cp
	return nil
}

func (s *memStore) ArchiveAndUpdate(_ context.Context, existing *model.JobDetail, fields model.ScrapedFields, extracted, sum string) error {
	if s.failArchive {
		return errors.New("transaction aborted")
	}
	s.archives++
	prior := s.details[existing.JobPostingID]
	s.history = append(s.history, model.JobDetailHistory{
		JobDetailID:     prior.ID,
		Title:           prior.Title,
		CompanyName:     prior.CompanyName,
		Location:        prior.Location,
		DescriptionText: prior.DescriptionText,
		ExtractedJSON:   prior.ExtractedJSON,
		Checksum:        prior.Checksum,
	})
	prior.Title = fields.Title
	prior.CompanyName = fields.CompanyName
	prior.Location = fields.Location
	prior.DescriptionText = fields.Description
	prior.ExtractedJSON = extracted
	prior.Checksum = sum
	return nil
}

// countingExtractor returns a fixed payload and counts invocations.
type countingExtractor struct {
	calls   int
	payload string
	err     error
}

func (e *countingExtractor) Extract(context.Context, model.ScrapedFields) (json.RawMessage, error) {
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	return json.RawMessage(e.payload), nil
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var sampleFields = model.ScrapedFields{
	Title:       "Backend Engineer",
	CompanyName: "Acme",
	Location:    "Berlin",
	Description: "Go, Postgres, Redis.",
}

func TestProcess_UnseenCreatesDetail(t *testing.T) {
	store := newMemStore()
	ext := &countingExtractor{payload: `{"skills":["go"]}`}
	det := detail.NewDetector(store, ext, discard())

	out, err := det.Process(context.Background(), "p1", sampleFields)
	require.NoError(t, err)
	assert.Equal(t, detail.Unseen, out)
	assert.Equal(t, 1, ext.calls)
	assert.Equal(t, 1, store.creates)

	want, err := detail.Fingerprint(sampleFields)
	require.NoError(t, err)
	created := store.details["p1"]
	require.NotNil(t, created)
	assert.Equal(t, want, created.Checksum)
	assert.Equal(t, `{"skills":["go"]}`, created.ExtractedJSON)
	assert.Empty(t, store.history)
}

func TestProcess_UnchangedIsNoOp(t *testing.T) {
	store := newMemStore()
	ext := &countingExtractor{payload: `{}`}
	det := detail.NewDetector(store, ext, discard())

	_, err := det.Process(context.Background(), "p1", sampleFields)
	require.NoError(t, err)

	// Re-scrape with identical fields: no writes, no extraction.
	out, err := det.Process(context.Background(), "p1", sampleFields)
	require.NoError(t, err)
	assert.Equal(t, detail.Unchanged, out)
	assert.Equal(t, 1, ext.calls, "extractor must not run for unchanged content")
	assert.Equal(t, 1, store.creates)
	assert.Zero(t, store.archives)
	assert.Empty(t, store.history)
}

func TestProcess_ChangedArchivesAndUpdates(t *testing.T) {
	store := newMemStore()
	ext := &countingExtractor{payload: `{"v":1}`}
	det := detail.NewDetector(store, ext, discard())

	_, err := det.Process(context.Background(), "p1", sampleFields)
	require.NoError(t, err)
	firstSum := store.details["p1"].Checksum

	updated := sampleFields
	updated.Description = "Go, Postgres, Redis. Now with Kafka."
	ext.payload = `{"v":2}`

	out, err := det.Process(context.Background(), "p1", updated)
	require.NoError(t, err)
	assert.Equal(t, detail.Changed, out)
	assert.Equal(t, 1, store.archives)

	require.Len(t, store.history, 1)
	snap := store.history[0]
	assert.Equal(t, firstSum, snap.Checksum, "history holds the pre-update state")
	assert.Equal(t, `{"v":1}`, snap.ExtractedJSON)
	assert.Equal(t, sampleFields.Description, snap.DescriptionText)

	newSum, err := detail.Fingerprint(updated)
	require.NoError(t, err)
	assert.Equal(t, newSum, store.details["p1"].Checksum)
	assert.Equal(t, `{"v":2}`, store.details["p1"].ExtractedJSON)
}

func TestProcess_FailedTransactionLeavesPriorState(t *testing.T) {
	store := newMemStore()
	ext := &countingExtractor{payload: `{"v":1}`}
	det := detail.NewDetector(store, ext, discard())

	_, err := det.Process(context.Background(), "p1", sampleFields)
	require.NoError(t, err)
	before := *store.details["p1"]

	store.failArchive = true
	updated := sampleFields
	updated.Title = "Staff Engineer"

	_, err = det.Process(context.Background(), "p1", updated)
	require.Error(t, err)
	assert.Empty(t, store.history, "no partial history write")
	assert.Equal(t, before, *store.details["p1"], "detail row untouched after rollback")
}

func TestProcess_CrossPostingDedupSkipsExtraction(t *testing.T) {
	store := newMemStore()
	ext := &countingExtractor{payload: `{"skills":["go"]}`}
	det := detail.NewDetector(store, ext, discard())

	// Two distinct postings carrying byte-identical content (a repost
	// under a new ID). The second must reuse the first's extraction.
	_, err := det.Process(context.Background(), "p1", sampleFields)
	require.NoError(t, err)
	out, err := det.Process(context.Background(), "p2", sampleFields)
	require.NoError(t, err)

	assert.Equal(t, detail.Unseen, out)
	assert.Equal(t, 1, ext.calls, "extractor invoked at most once across both postings")
	assert.Equal(t, 2, store.creates)
	assert.Equal(t, store.details["p1"].ExtractedJSON, store.details["p2"].ExtractedJSON)
}

func TestFingerprint_CoversScrapedSubsetOnly(t *testing.T) {
	a, err := detail.Fingerprint(sampleFields)
	require.NoError(t, err)
	b, err := detail.Fingerprint(sampleFields)
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Regexp(t, `^[0-9a-f]{64}$`, a)

	changed := sampleFields
	changed.Location = "Munich"
	c, err := detail.Fingerprint(changed)
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
}

func TestProcess_ExtractionFailureSurfaces(t *testing.T) {
	store := newMemStore()
	ext := &countingExtractor{err: errors.New("provider down")}
	det := detail.NewDetector(store, ext, discard())

	_, err := det.Process(context.Background(), "p1", sampleFields)
	require.Error(t, err)
	assert.Zero(t, store.creates, "nothing persisted when extraction fails")
}
