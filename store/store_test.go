package store

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func openTest(t *testing.T) *Store {
	t.Helper()
	s, err := OpenInMemory()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func strp(s string) *string { return &s }

func TestAppendRecent(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	for i := 0; i < 7; i++ {
		err := s.Append(ctx, Record{
			ID:        fmt.Sprintf("id-%d", i),
			Timestamp: time.Date(2026, 1, 1, 0, 0, i, 0, time.UTC).Format(time.RFC3339),
			Text:      fmt.Sprintf("text %d", i),
			Duration:  float64(i),
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	recs, err := s.Recent(ctx, 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 5 {
		t.Fatalf("got %d records, want 5", len(recs))
	}
	for i, r := range recs {
		if want := fmt.Sprintf("id-%d", 6-i); r.ID != want {
			t.Errorf("record %d = %s, want %s", i, r.ID, want)
		}
		if r.CreatedAt.IsZero() {
			t.Errorf("record %d has no created_at", i)
		}
	}

	n, err := s.Count(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 7 {
		t.Errorf("count = %d, want 7", n)
	}
}

func TestNullableFields(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	if err := s.Append(ctx, Record{ID: "a", Text: "plain"}); err != nil {
		t.Fatal(err)
	}
	if err := s.Append(ctx, Record{ID: "b", Text: "full", AudioRef: strp("audio_files/x.flac"), Summary: strp("short")}); err != nil {
		t.Fatal(err)
	}

	recs, err := s.Recent(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 2 {
		t.Fatalf("got %d records", len(recs))
	}
	if recs[0].AudioRef == nil || *recs[0].AudioRef != "audio_files/x.flac" || recs[0].Summary == nil {
		t.Errorf("optional fields lost: %+v", recs[0])
	}
	if recs[1].AudioRef != nil || recs[1].Summary != nil {
		t.Errorf("expected nil optional fields: %+v", recs[1])
	}
}

func TestRecentEmpty(t *testing.T) {
	recs, err := openTest(t).Recent(context.Background(), 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 0 {
		t.Fatalf("got %d records from empty store", len(recs))
	}
}

func TestPersistsAcrossOpen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	s.Append(ctx, Record{ID: "first", Text: "one"})
	s.Close()

	s, err = Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	s.Append(ctx, Record{ID: "second", Text: "two"})

	recs, err := s.Recent(ctx, 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 2 || recs[0].ID != "second" || recs[1].ID != "first" {
		t.Fatalf("unexpected order after reopen: %+v", recs)
	}
}

func TestClosed(t *testing.T) {
	s, err := OpenInMemory()
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if err := s.Append(context.Background(), Record{ID: "x"}); !errors.Is(err, ErrClosed) {
		t.Fatalf("got %v, want ErrClosed", err)
	}
	if _, err := s.Recent(context.Background(), 1); !errors.Is(err, ErrClosed) {
		t.Fatalf("got %v, want ErrClosed", err)
	}
}
