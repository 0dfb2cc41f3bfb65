package service

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/lexweave/depoflow/internal/domain"
	"github.com/lexweave/depoflow/internal/domain/document"
	"github.com/lexweave/depoflow/internal/domain/event"
	"github.com/lexweave/depoflow/internal/domain/firm"
	"github.com/lexweave/depoflow/internal/domain/job"
	"github.com/lexweave/depoflow/internal/domain/objection"
	"github.com/lexweave/depoflow/internal/domain/user"
	"github.com/lexweave/depoflow/internal/port/database"
	"github.com/lexweave/depoflow/internal/port/messagequeue"
)

// mockStore is an in-memory database.Store. It mirrors the transactional
// semantics the real store enforces (balance re-check under the firm lock,
// claim race, transition table) closely enough for service-level tests. The
// mutex stands in for the firm row lock serializing intake and settle.
type mockStore struct {
	mu sync.Mutex

	users      map[string]*user.User
	firms      map[string]*firm.Firm
	documents  map[string]*document.Document
	jobs       map[string]*job.Job
	billing    []firm.BillingRecord
	objections []objection.Objection
	audits     []event.AuditEntry

	nextID int

	documentStatsCalls int

	appendAuditErr error
	loadAuditPages []*event.AuditPage

	// intakeFailMidway makes CompleteUpload fail after the document and job
	// inserts, rolling back like the real transaction would.
	intakeFailMidway error
}

func newMockStore() *mockStore {
	return &mockStore{
		users:     map[string]*user.User{},
		firms:     map[string]*firm.Firm{},
		documents: map[string]*document.Document{},
		jobs:      map[string]*job.Job{},
	}
}

func (m *mockStore) id(prefix string) string {
	m.nextID++
	return prefix + "-" + strconv.Itoa(m.nextID)
}

func (m *mockStore) addFirm(f *firm.Firm) *firm.Firm {
	if f.ID == "" {
		f.ID = m.id("firm")
	}
	m.firms[f.ID] = f
	return f
}

func (m *mockStore) addDocument(d *document.Document) *document.Document {
	if d.ID == "" {
		d.ID = m.id("doc")
	}
	m.documents[d.ID] = d
	return d
}

func (m *mockStore) addJob(j *job.Job) *job.Job {
	if j.ID == "" {
		j.ID = m.id("job")
	}
	m.jobs[j.ID] = j
	return j
}

// --- Users ---

func (m *mockStore) UpsertUser(_ context.Context, subject, email, name string) (*user.User, error) {
	if u, ok := m.users[subject]; ok {
		return u, nil
	}
	u := &user.User{ID: m.id("user"), Subject: subject, Email: email, Name: name}
	m.users[subject] = u
	return u, nil
}

func (m *mockStore) AttachUserToFirm(_ context.Context, userID, firmID string, role user.Role) error {
	for _, u := range m.users {
		if u.ID == userID {
			u.FirmID = firmID
			u.Role = role
			return nil
		}
	}
	return domain.ErrNotFound
}

func (m *mockStore) ListFirmMembers(_ context.Context) ([]user.Member, error) {
	var members []user.Member
	for _, u := range m.users {
		if u.FirmID != "" {
			members = append(members, user.Member{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role})
		}
	}
	return members, nil
}

// --- Firms ---

func (m *mockStore) CreateFirm(ctx context.Context, name, ownerID string, credits int64, maxMembers int, settings firm.Settings) (*firm.Firm, error) {
	f := m.addFirm(&firm.Firm{
		Name:       name,
		OwnerID:    ownerID,
		Credits:    credits,
		MaxMembers: maxMembers,
		Settings:   settings,
	})
	_ = m.AttachUserToFirm(ctx, ownerID, f.ID, user.RoleAdmin)
	return f, nil
}

func (m *mockStore) GetFirm(_ context.Context, id string) (*firm.Firm, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.firms[id]
	if !ok {
		return nil, fmt.Errorf("firm %s: %w", id, domain.ErrNotFound)
	}
	copied := *f
	return &copied, nil
}

func (m *mockStore) UpdateFirmSettings(_ context.Context, id string, settings firm.Settings) error {
	f, ok := m.firms[id]
	if !ok {
		return domain.ErrNotFound
	}
	f.Settings = settings
	return nil
}

// --- Ledger ---

func (m *mockStore) SettleCredits(_ context.Context, req database.SettleRequest) (*firm.BillingRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.settleLocked(req)
}

// settleLocked applies one credit movement with the balance clamped at zero,
// the way the real store settles under the firm row lock.
func (m *mockStore) settleLocked(req database.SettleRequest) (*firm.BillingRecord, error) {
	f, ok := m.firms[req.FirmID]
	if !ok {
		return nil, fmt.Errorf("firm %s: %w", req.FirmID, domain.ErrNotFound)
	}

	before := f.Credits
	after := before + req.Delta
	if f.Unlimited() {
		after = before
	} else {
		if after < 0 {
			after = 0
		}
		f.Credits = after
	}

	rec := firm.BillingRecord{
		ID:            m.id("bill"),
		FirmID:        req.FirmID,
		UserID:        req.UserID,
		DocumentID:    req.DocumentID,
		Type:          req.Type,
		CreditsDelta:  req.Delta,
		BalanceBefore: before,
		BalanceAfter:  after,
		Description:   req.Description,
		CreatedAt:     time.Now(),
	}
	m.billing = append(m.billing, rec)
	return &rec, nil
}

func (m *mockStore) ListBillingRecords(_ context.Context, _ int) ([]firm.BillingRecord, error) {
	return m.billing, nil
}

// --- Intake ---

func (m *mockStore) CompleteUpload(_ context.Context, req database.IntakeRequest) (*database.IntakeResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	f, ok := m.firms[req.FirmID]
	if !ok {
		return nil, fmt.Errorf("firm %s: %w", req.FirmID, domain.ErrNotFound)
	}
	if !f.Unlimited() && f.Credits < req.Cost {
		return nil, fmt.Errorf("balance %d below cost %d: %w", f.Credits, req.Cost, domain.ErrInsufficientCredits)
	}

	doc := m.addDocument(&document.Document{
		FirmID:       req.FirmID,
		UserID:       req.UserID,
		FileName:     req.Doc.FileName,
		OriginalName: req.Doc.OriginalName,
		FileSize:     req.Doc.FileSize,
		MimeType:     req.Doc.MimeType,
		StorageID:    req.Doc.StorageID,
		Status:       document.StatusQueued,
		Metadata:     req.Doc.Metadata,
		UploadedAt:   time.Now(),
	})
	j := m.addJob(&job.Job{
		DocumentID: doc.ID,
		FirmID:     req.FirmID,
		UserID:     req.UserID,
		Type:       job.TypeExtractText,
		Status:     job.StatusPending,
	})

	// An induced failure at this point rolls everything back, like an error
	// between the inserts and the debit would inside the real transaction.
	if m.intakeFailMidway != nil {
		delete(m.documents, doc.ID)
		delete(m.jobs, j.ID)
		return nil, m.intakeFailMidway
	}

	rec, err := m.settleLocked(database.SettleRequest{
		FirmID:      req.FirmID,
		UserID:      req.UserID,
		DocumentID:  doc.ID,
		Delta:       -req.Cost,
		Type:        firm.BillingDocumentProcessing,
		Description: req.Description,
	})
	if err != nil {
		return nil, err
	}

	m.audits = append(m.audits, event.AuditEntry{
		FirmID:       req.FirmID,
		UserID:       req.UserID,
		Action:       event.ActionDocumentUploaded,
		ResourceType: "document",
		ResourceID:   doc.ID,
	})
	return &database.IntakeResult{Document: doc, Job: j, Billing: rec}, nil
}

// --- Documents ---

func (m *mockStore) ListDocuments(_ context.Context, status document.Status, _ int) ([]document.Document, error) {
	var docs []document.Document
	for _, d := range m.documents {
		if status != "" && d.Status != status {
			continue
		}
		if status == "" && d.Status == document.StatusDeleted {
			continue
		}
		docs = append(docs, *d)
	}
	return docs, nil
}

func (m *mockStore) GetDocument(_ context.Context, id string) (*document.Document, error) {
	d, ok := m.documents[id]
	if !ok {
		return nil, fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
	}
	return d, nil
}

func (m *mockStore) TransitionDocument(_ context.Context, id string, to document.Status, fields document.TransitionFields) (*document.Document, error) {
	d, ok := m.documents[id]
	if !ok {
		return nil, fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
	}
	if !document.CanTransition(d.Status, to) {
		return nil, fmt.Errorf("document %s: %s -> %s: %w", id, d.Status, to, domain.ErrInvalidTransition)
	}
	d.Status = to
	if fields.ProcessingStarted != nil {
		d.ProcessingStarted = fields.ProcessingStarted
	}
	if fields.ProcessingCompleted != nil {
		d.ProcessingCompleted = fields.ProcessingCompleted
	}
	if fields.PageCount != nil {
		d.PageCount = *fields.PageCount
	}
	if fields.WordCount != nil {
		d.WordCount = *fields.WordCount
	}
	if fields.ErrorMessage != nil {
		d.ErrorMessage = *fields.ErrorMessage
	}
	return d, nil
}

func (m *mockStore) DocumentStats(_ context.Context) (*document.Stats, error) {
	m.documentStatsCalls++
	stats := &document.Stats{ByStatus: map[document.Status]int{}}
	for _, d := range m.documents {
		if d.Status == document.StatusDeleted {
			continue
		}
		stats.Total++
		stats.ByStatus[d.Status]++
		stats.TotalSize += d.FileSize
		stats.TotalPages += int64(d.PageCount)
	}
	stats.TotalObjections = int64(len(m.objections))
	return stats, nil
}

// --- Jobs ---

func (m *mockStore) EnqueueJob(_ context.Context, documentID, userID string, t job.Type) (*job.Job, error) {
	d, ok := m.documents[documentID]
	if !ok {
		return nil, fmt.Errorf("document %s: %w", documentID, domain.ErrNotFound)
	}
	return m.addJob(&job.Job{
		DocumentID: documentID,
		FirmID:     d.FirmID,
		UserID:     userID,
		Type:       t,
		Status:     job.StatusPending,
	}), nil
}

func (m *mockStore) GetJob(_ context.Context, id string) (*job.Job, error) {
	j, ok := m.jobs[id]
	if !ok {
		return nil, fmt.Errorf("job %s: %w", id, domain.ErrNotFound)
	}
	return j, nil
}

func (m *mockStore) ListJobsByDocument(_ context.Context, documentID string) ([]job.Job, error) {
	var jobs []job.Job
	for _, j := range m.jobs {
		if j.DocumentID == documentID {
			jobs = append(jobs, *j)
		}
	}
	return jobs, nil
}

func (m *mockStore) ListPendingJobs(_ context.Context, now time.Time, _ int) ([]job.Job, error) {
	var jobs []job.Job
	for _, j := range m.jobs {
		if j.Status != job.StatusPending {
			continue
		}
		if j.NextRetryAt != nil && j.NextRetryAt.After(now) {
			continue
		}
		jobs = append(jobs, *j)
	}
	return jobs, nil
}

func (m *mockStore) ClaimJob(_ context.Context, id string) (*job.Job, error) {
	j, ok := m.jobs[id]
	if !ok {
		return nil, fmt.Errorf("job %s: %w", id, domain.ErrNotFound)
	}
	if j.Status != job.StatusPending {
		return nil, fmt.Errorf("job %s is %s: %w", id, j.Status, domain.ErrAlreadyClaimed)
	}
	now := time.Now()
	j.Status = job.StatusRunning
	j.StartedAt = &now
	return j, nil
}

func (m *mockStore) UpdateJobProgress(_ context.Context, id string, progress int) (*job.Job, error) {
	j, ok := m.jobs[id]
	if !ok || j.Status != job.StatusRunning {
		return nil, fmt.Errorf("job %s: %w", id, domain.ErrNotFound)
	}
	j.Progress = progress
	return j, nil
}

func (m *mockStore) CompleteJob(_ context.Context, id string, res job.CompleteResult) (*job.Job, error) {
	j, ok := m.jobs[id]
	if !ok {
		return nil, fmt.Errorf("job %s: %w", id, domain.ErrNotFound)
	}
	if j.Status != job.StatusRunning {
		return nil, fmt.Errorf("job %s is %s: %w", id, j.Status, domain.ErrInvalidTransition)
	}
	now := time.Now()
	j.Status = job.StatusCompleted
	j.Progress = 100
	j.CompletedAt = &now
	j.Result = res.Result
	if d, ok := m.documents[j.DocumentID]; ok {
		if res.PageCount > d.PageCount {
			d.PageCount = res.PageCount
		}
		if res.WordCount > d.WordCount {
			d.WordCount = res.WordCount
		}
	}
	return j, nil
}

func (m *mockStore) RetryJob(_ context.Context, id, errMsg string, nextRetryAt time.Time) (*job.Job, error) {
	j, ok := m.jobs[id]
	if !ok {
		return nil, fmt.Errorf("job %s: %w", id, domain.ErrNotFound)
	}
	if j.Status != job.StatusRunning {
		return nil, fmt.Errorf("job %s is %s: %w", id, j.Status, domain.ErrInvalidTransition)
	}
	j.Status = job.StatusPending
	j.RetryCount++
	j.NextRetryAt = &nextRetryAt
	j.StartedAt = nil
	j.ErrorMessage = errMsg
	return j, nil
}

func (m *mockStore) FailJobTerminal(_ context.Context, id, errMsg string) (*job.Job, error) {
	j, ok := m.jobs[id]
	if !ok {
		return nil, fmt.Errorf("job %s: %w", id, domain.ErrNotFound)
	}
	if j.Status != job.StatusRunning {
		return nil, fmt.Errorf("job %s is %s: %w", id, j.Status, domain.ErrInvalidTransition)
	}
	now := time.Now()
	j.Status = job.StatusFailed
	j.CompletedAt = &now
	j.ErrorMessage = errMsg
	m.cascadeDocumentFailure(j.DocumentID, errMsg)
	return j, nil
}

// cascadeDocumentFailure fails a document still in flight, whether it made
// it to processing or stayed queued because the claim transition was lost.
func (m *mockStore) cascadeDocumentFailure(documentID, errMsg string) {
	d, ok := m.documents[documentID]
	if !ok {
		return
	}
	if d.Status == document.StatusQueued || d.Status == document.StatusProcessing {
		d.Status = document.StatusFailed
		d.ErrorMessage = errMsg
	}
}

func (m *mockStore) CancelJob(_ context.Context, id string) (*job.Job, error) {
	j, ok := m.jobs[id]
	if !ok {
		return nil, fmt.Errorf("job %s: %w", id, domain.ErrNotFound)
	}
	if j.Status != job.StatusPending && j.Status != job.StatusRunning {
		return nil, fmt.Errorf("job %s is %s: %w", id, j.Status, domain.ErrInvalidTransition)
	}
	j.Status = job.StatusCancelled
	m.cascadeDocumentFailure(j.DocumentID, "processing cancelled")
	return j, nil
}

// --- Objections ---

func (m *mockStore) CreateObjections(_ context.Context, reqs []objection.CreateRequest) (int, error) {
	for _, r := range reqs {
		d, ok := m.documents[r.DocumentID]
		if !ok {
			return 0, fmt.Errorf("document %s: %w", r.DocumentID, domain.ErrNotFound)
		}
		m.objections = append(m.objections, objection.Objection{
			ID:              m.id("obj"),
			DocumentID:      r.DocumentID,
			FirmID:          d.FirmID,
			JobID:           r.JobID,
			Category:        r.Category,
			PageStart:       r.PageStart,
			LineStart:       r.LineStart,
			SequencePattern: r.SequencePattern,
			ObjectionText:   r.ObjectionText,
		})
	}
	return len(reqs), nil
}

func (m *mockStore) ListObjections(_ context.Context, f objection.Filter, _ int) ([]objection.Objection, error) {
	var out []objection.Objection
	for _, o := range m.objections {
		if f.DocumentID != "" && o.DocumentID != f.DocumentID {
			continue
		}
		if f.Category != "" && o.Category != f.Category {
			continue
		}
		if f.SequencePattern != "" && o.SequencePattern != f.SequencePattern {
			continue
		}
		out = append(out, o)
	}
	return out, nil
}

// --- Audit ---

func (m *mockStore) AppendAudit(_ context.Context, entry *event.AuditEntry) error {
	if m.appendAuditErr != nil {
		return m.appendAuditErr
	}
	m.audits = append(m.audits, *entry)
	return nil
}

func (m *mockStore) LoadAudit(_ context.Context, _ *event.AuditFilter, _ string, _ int) (*event.AuditPage, error) {
	if len(m.loadAuditPages) > 0 {
		page := m.loadAuditPages[0]
		m.loadAuditPages = m.loadAuditPages[1:]
		return page, nil
	}
	return &event.AuditPage{Entries: m.audits, Total: len(m.audits)}, nil
}

// auditActions returns the actions recorded so far, in order.
func (m *mockStore) auditActions() []string {
	actions := make([]string, len(m.audits))
	for i := range m.audits {
		actions[i] = m.audits[i].Action
	}
	return actions
}

// mockQueue implements messagequeue.Queue for testing.
type mockQueue struct {
	mu        sync.Mutex
	published []struct {
		subject string
		data    []byte
	}
	publishErr error
}

func (q *mockQueue) Publish(_ context.Context, subject string, data []byte) error {
	if q.publishErr != nil {
		return q.publishErr
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.published = append(q.published, struct {
		subject string
		data    []byte
	}{subject, data})
	return nil
}

func (q *mockQueue) Subscribe(_ context.Context, _ string, _ messagequeue.Handler) (func(), error) {
	return func() {}, nil
}

func (q *mockQueue) Drain() error      { return nil }
func (q *mockQueue) Close() error      { return nil }
func (q *mockQueue) IsConnected() bool { return true }

// mockBlob implements blobstore.Provider for testing.
type mockBlob struct {
	uploadURL   string
	downloadURL string
	err         error
}

func (b *mockBlob) SignedUploadURL(_ context.Context, objectName, _ string, _ time.Duration) (string, error) {
	if b.err != nil {
		return "", b.err
	}
	if b.uploadURL != "" {
		return b.uploadURL, nil
	}
	return "https://storage.test/upload/" + objectName, nil
}

func (b *mockBlob) SignedDownloadURL(_ context.Context, objectName string, _ time.Duration) (string, error) {
	if b.err != nil {
		return "", b.err
	}
	if b.downloadURL != "" {
		return b.downloadURL, nil
	}
	return "https://storage.test/download/" + objectName, nil
}

// mockCache implements cache.Cache for testing.
type mockCache struct {
	data map[string][]byte

	gets, sets, deletes int
}

func newMockCache() *mockCache {
	return &mockCache{data: map[string][]byte{}}
}

func (c *mockCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.gets++
	v, ok := c.data[key]
	return v, ok, nil
}

func (c *mockCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.sets++
	c.data[key] = value
	return nil
}

func (c *mockCache) Delete(_ context.Context, key string) error {
	c.deletes++
	delete(c.data, key)
	return nil
}
