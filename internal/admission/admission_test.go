package admission

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/celerix-dev/celerix-ivr/internal/engine"
	"github.com/celerix-dev/celerix-ivr/pkg/schema"
	"github.com/celerix-dev/celerix-ivr/pkg/sdk"
)

const (
	callerTable  = "callers"
	counterTable = "counters"
)

// spyStore counts counter calls and can inject failures.
type spyStore struct {
	*engine.MemStore
	mu           sync.Mutex
	counterCalls int
	getErr       error
	updateErr    error
}

func (s *spyStore) GetItem(ctx context.Context, table, key string) (sdk.Item, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	return s.MemStore.GetItem(ctx, table, key)
}

func (s *spyStore) UpdateItem(ctx context.Context, table, key string, fields sdk.Item) error {
	if s.updateErr != nil {
		return s.updateErr
	}
	return s.MemStore.UpdateItem(ctx, table, key, fields)
}

func (s *spyStore) IncrementIfBelow(ctx context.Context, table, key, field string, limit int64) (bool, error) {
	s.mu.Lock()
	s.counterCalls++
	s.mu.Unlock()
	return s.MemStore.IncrementIfBelow(ctx, table, key, field, limit)
}

var fixedNow = time.Unix(200, 0)

func validRecord() schema.CallerRecord {
	return schema.CallerRecord{
		Token:               "tok-1",
		CandidateName:       "Alex",
		JobPostID:           "job-1",
		OpportunityResultID: "opp-1",
		CandidateEmail:      "alex@example.com",
		RecruiterEmail:      "rec@example.com",
		MaxCandidates:       2,
		Expiry:              1000,
		PhoneNumber:         "+15550100",
		Active:              true,
	}
}

func setup(t *testing.T, records ...schema.CallerRecord) (*spyStore, *Gate) {
	t.Helper()
	store := &spyStore{MemStore: engine.NewMemStore(nil, nil)}
	err := engine.Seed(context.Background(), store.MemStore, callerTable, "prompts", schema.SeedFile{Callers: records})
	if err != nil {
		t.Fatalf("Seed failed: %v", err)
	}

	counter := &Counter{Store: store, Table: counterTable}
	gate := &Gate{
		Validator: &Validator{Records: store, Table: callerTable, Counter: counter, Now: func() time.Time { return fixedNow }},
		Consumer:  &Consumer{Records: store, Table: callerTable},
	}
	return store, gate
}

func count(t *testing.T, store *spyStore) int64 {
	t.Helper()
	n, _, err := store.GetCount(context.Background(), counterTable, "job-1", CountField)
	if err != nil {
		t.Fatalf("GetCount failed: %v", err)
	}
	return n
}

func consumed(t *testing.T, store *spyStore, token string) bool {
	t.Helper()
	rec, err := sdk.Get[schema.CallerRecord](context.Background(), store.MemStore, callerTable, token)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	return rec.Consumed
}

func TestAdmit_Found(t *testing.T) {
	store, gate := setup(t, validRecord())

	res, err := gate.Admit(context.Background(), "tok-1", "+15550100")
	if err != nil {
		t.Fatalf("Admit failed: %v", err)
	}
	if res.Code != Found {
		t.Fatalf("Expected Found, got %s", res.Code)
	}
	if res.Candidate == nil || res.Candidate.CandidateName != "Alex" || res.Candidate.OpportunityResultID != "opp-1" {
		t.Errorf("Unexpected candidate: %+v", res.Candidate)
	}
	if n := count(t, store); n != 1 {
		t.Errorf("Expected counter 1, got %d", n)
	}
	if !consumed(t, store, "tok-1") {
		t.Error("Token should be consumed after Found")
	}
}

func TestAdmit_SecondCallIsAlreadyCalled(t *testing.T) {
	store, gate := setup(t, validRecord())
	ctx := context.Background()

	gate.Admit(ctx, "tok-1", "+15550100")
	res, err := gate.Admit(ctx, "tok-1", "+15550100")
	if err != nil {
		t.Fatalf("Admit failed: %v", err)
	}
	if res.Code != AlreadyCalled {
		t.Errorf("Expected AlreadyCalled, got %s", res.Code)
	}
	if n := count(t, store); n != 1 {
		t.Errorf("Counter must not move for a consumed token, got %d", n)
	}
}

func TestValidate_NotFound(t *testing.T) {
	store, gate := setup(t)

	res, _, err := gate.Validator.Validate(context.Background(), "missing", "+15550100")
	if err != nil || res.Code != NotFound {
		t.Errorf("Expected NotFound, got %s (%v)", res.Code, err)
	}
	if store.counterCalls != 0 {
		t.Error("Counter must not be consulted for unknown tokens")
	}
}

func TestValidate_PhoneMismatchBeforeCounter(t *testing.T) {
	rec := validRecord()
	rec.Consumed = true
	store, gate := setup(t, rec)

	res, _, err := gate.Validator.Validate(context.Background(), "tok-1", "+15559999")
	if err != nil || res.Code != PhoneNotMatch {
		t.Errorf("Expected PhoneNotMatch, got %s (%v)", res.Code, err)
	}
	if store.counterCalls != 0 {
		t.Error("Counter must not be consulted on phone mismatch")
	}
}

func TestValidate_ConsumedWinsOverExpiry(t *testing.T) {
	rec := validRecord()
	rec.Consumed = true
	rec.Active = false
	rec.Expiry = 1
	store, gate := setup(t, rec)

	res, _, _ := gate.Validator.Validate(context.Background(), "tok-1", "+15550100")
	if res.Code != AlreadyCalled {
		t.Errorf("Expected AlreadyCalled, got %s", res.Code)
	}
	if store.counterCalls != 0 {
		t.Error("Counter must not be consulted for consumed tokens")
	}
}

func TestValidate_JobExpired(t *testing.T) {
	rec := validRecord()
	rec.Expiry = 100 // now is 200
	_, gate := setup(t, rec)

	res, _, err := gate.Validator.Validate(context.Background(), "tok-1", "+15550100")
	if err != nil || res.Code != JobExpired {
		t.Errorf("Expected JobExpired, got %s (%v)", res.Code, err)
	}

	rec = validRecord()
	rec.Expiry = 200 // expiry == now is expired
	_, gate = setup(t, rec)
	res, _, _ = gate.Validator.Validate(context.Background(), "tok-1", "+15550100")
	if res.Code != JobExpired {
		t.Errorf("Expected JobExpired at expiry boundary, got %s", res.Code)
	}
}

func TestValidate_Inactive(t *testing.T) {
	rec := validRecord()
	rec.Active = false
	store, gate := setup(t, rec)

	res, _, _ := gate.Validator.Validate(context.Background(), "tok-1", "+15550100")
	if res.Code != JobExpired {
		t.Errorf("Expected JobExpired, got %s", res.Code)
	}
	if store.counterCalls != 0 {
		t.Error("Counter must not be consulted for inactive records")
	}
}

func TestValidate_QuotaReached(t *testing.T) {
	store, gate := setup(t, validRecord())
	ctx := context.Background()
	store.IncrementField(ctx, counterTable, "job-1", CountField, 2)

	res, _, err := gate.Validator.Validate(ctx, "tok-1", "+15550100")
	if err != nil || res.Code != NotAcceptingMoreCandidates {
		t.Errorf("Expected NotAcceptingMoreCandidates, got %s (%v)", res.Code, err)
	}
	if n := count(t, store); n != 2 {
		t.Errorf("Counter should stay at 2, got %d", n)
	}
	if consumed(t, store, "tok-1") {
		t.Error("Rejected caller must not be consumed")
	}
}

func TestValidate_MissingInput(t *testing.T) {
	_, gate := setup(t, validRecord())

	_, _, err := gate.Validator.Validate(context.Background(), " ", "+15550100")
	if !errors.Is(err, ErrMissingInput) {
		t.Errorf("Expected ErrMissingInput, got %v", err)
	}
}

func TestValidate_StoreFailureIsNotABusinessCode(t *testing.T) {
	store, gate := setup(t, validRecord())
	boom := errors.New("store unreachable")
	store.getErr = boom

	res, _, err := gate.Validator.Validate(context.Background(), "tok-1", "+15550100")
	if !errors.Is(err, boom) {
		t.Errorf("Expected wrapped store error, got %v", err)
	}
	if res.Code != "" {
		t.Errorf("No result code expected on failure, got %s", res.Code)
	}
}

func TestAdmit_ConsumeFailureKeepsReservation(t *testing.T) {
	store, gate := setup(t, validRecord())
	boom := errors.New("write failed")
	store.updateErr = boom

	_, err := gate.Admit(context.Background(), "tok-1", "+15550100")
	if !errors.Is(err, boom) {
		t.Fatalf("Expected consume error, got %v", err)
	}
	if n := count(t, store); n != 1 {
		t.Errorf("Reserved slot is not rolled back, expected 1, got %d", n)
	}
}

func TestConsume_Idempotent(t *testing.T) {
	store, gate := setup(t, validRecord())
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := gate.Consumer.Consume(ctx, "tok-1"); err != nil {
			t.Fatalf("Consume #%d failed: %v", i+1, err)
		}
	}
	if !consumed(t, store, "tok-1") {
		t.Error("Token should be consumed")
	}
}

func TestAdmit_LastSlotUnderContention(t *testing.T) {
	var records []schema.CallerRecord
	for _, tok := range []string{"a", "b", "c", "d", "e", "f", "g", "h"} {
		rec := validRecord()
		rec.Token = tok
		rec.MaxCandidates = 1
		records = append(records, rec)
	}
	store, gate := setup(t, records...)

	results := make(chan Code, len(records))
	var wg sync.WaitGroup
	for _, rec := range records {
		wg.Add(1)
		go func(token string) {
			defer wg.Done()
			res, err := gate.Admit(context.Background(), token, "+15550100")
			if err == nil {
				results <- res.Code
			}
		}(rec.Token)
	}
	wg.Wait()
	close(results)

	found := 0
	for code := range results {
		if code == Found {
			found++
		} else if code != NotAcceptingMoreCandidates {
			t.Errorf("Unexpected code %s", code)
		}
	}
	if found != 1 {
		t.Errorf("Expected exactly one admission, got %d", found)
	}
	if n := count(t, store); n != 1 {
		t.Errorf("Counter must not exceed the quota, got %d", n)
	}
}
