package sdk_test

import (
	"context"
	"errors"
	"testing"

	"github.com/celerix-dev/celerix-ivr/pkg/schema"
	"github.com/celerix-dev/celerix-ivr/pkg/sdk"
)

// MockStore implements ItemReader for testing SDK helpers
type MockStore struct {
	data map[string]sdk.Item
}

func (m *MockStore) GetItem(ctx context.Context, table, key string) (sdk.Item, error) {
	item, ok := m.data[table+"/"+key]
	if !ok {
		return nil, sdk.ErrNotFound
	}
	return item, nil
}

func TestGenericGetWithJsonConversion(t *testing.T) {
	// Simulate data coming from JSON or DynamoDB (numbers as float64)
	ms := &MockStore{data: map[string]sdk.Item{
		"callers/tok-1": {
			"token":         "tok-1",
			"candidateName": "Bob",
			"maxCandidates": float64(25),
			"expiry":        float64(1700000000),
			"active":        true,
		},
	}}

	rec, err := sdk.Get[schema.CallerRecord](context.Background(), ms, "callers", "tok-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	if rec.CandidateName != "Bob" || rec.MaxCandidates != 25 || rec.Expiry != 1700000000 || !rec.Active {
		t.Errorf("Unexpected record: %+v", rec)
	}
}

func TestGenericGetMissing(t *testing.T) {
	ms := &MockStore{data: map[string]sdk.Item{}}

	_, err := sdk.Get[schema.CallerRecord](context.Background(), ms, "callers", "nope")
	if !errors.Is(err, sdk.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestEncodeDecode(t *testing.T) {
	rec := schema.CallerRecord{Token: "t", PhoneNumber: "+15550100", MaxCandidates: 3}

	item, err := sdk.Encode(rec)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if item["phoneNumber"] != "+15550100" {
		t.Errorf("Expected phoneNumber attribute, got %v", item)
	}

	var back schema.CallerRecord
	if err := sdk.Decode(item, &back); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if back != rec {
		t.Errorf("Expected %+v, got %+v", rec, back)
	}
}

func TestToInt64(t *testing.T) {
	cases := []struct {
		in   any
		want int64
		ok   bool
	}{
		{int(4), 4, true},
		{int64(7), 7, true},
		{float64(2), 2, true},
		{float64(2.5), 0, false},
		{"12", 12, true},
		{"twelve", 0, false},
		{true, 0, false},
	}

	for _, c := range cases {
		got, err := sdk.ToInt64(c.in)
		if c.ok && (err != nil || got != c.want) {
			t.Errorf("ToInt64(%v): expected %d, got %d (%v)", c.in, c.want, got, err)
		}
		if !c.ok && !errors.Is(err, sdk.ErrInvalidCount) {
			t.Errorf("ToInt64(%v): expected ErrInvalidCount, got %v", c.in, err)
		}
	}
}
