package cache

import (
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-lawcast/core"
)

func notices(numbers ...int64) []core.Notice {
	out := make([]core.Notice, 0, len(numbers))
	for _, number := range numbers {
		out = append(out, core.Notice{Number: number, Subject: "notice"})
	}
	return out
}

func numbersOf(items []core.Notice) []int64 {
	out := make([]int64, 0, len(items))
	for _, item := range items {
		out = append(out, item.Number)
	}
	return out
}

func assertInvariants(t *testing.T, c *NoticeCache) {
	t.Helper()
	snapshot := c.Recent(c.Info().MaxSize)
	if len(snapshot) > c.Info().MaxSize {
		t.Fatalf("snapshot exceeds cap: %d > %d", len(snapshot), c.Info().MaxSize)
	}
	for i := 1; i < len(snapshot); i++ {
		if snapshot[i-1].Number <= snapshot[i].Number {
			t.Fatalf("snapshot not strictly descending: %v", numbersOf(snapshot))
		}
	}
}

func TestInitialize_SortsTruncatesAndMarksReady(t *testing.T) {
	c := New(3, 10)
	c.Initialize(notices(4, 9, 1, 7, 3))

	if got := numbersOf(c.Recent(10)); !reflect.DeepEqual(got, []int64{9, 7, 4}) {
		t.Fatalf("unexpected snapshot %v", got)
	}
	info := c.Info()
	if !info.Initialized || info.Size != 3 || info.MaxSize != 3 || info.LastUpdated == nil {
		t.Fatalf("unexpected info %#v", info)
	}
}

func TestUpdate_IsIdempotent(t *testing.T) {
	c := New(5, 10)
	c.Initialize(notices(1, 2))
	batch := notices(3, 4, 2)

	c.Update(batch)
	first := numbersOf(c.Recent(10))
	c.Update(batch)
	second := numbersOf(c.Recent(10))

	if !reflect.DeepEqual(first, second) {
		t.Fatalf("update not idempotent: %v vs %v", first, second)
	}
	if !reflect.DeepEqual(first, []int64{4, 3, 2, 1}) {
		t.Fatalf("unexpected snapshot %v", first)
	}
}

func TestUpdate_ExistingEntriesWinTies(t *testing.T) {
	c := New(5, 10)
	c.Initialize([]core.Notice{{Number: 1, Subject: "original"}})
	c.Update([]core.Notice{{Number: 1, Subject: "edited"}, {Number: 2, Subject: "new"}})

	recent := c.Recent(10)
	if recent[1].Subject != "original" {
		t.Fatalf("cached copy should survive an upstream edit, got %q", recent[1].Subject)
	}
}

func TestUpdate_BeforeInitializeSeeds(t *testing.T) {
	c := New(5, 10)
	c.Update(notices(2, 1))
	if !c.Info().Initialized {
		t.Fatalf("first update should initialize the cache")
	}
	if got := numbersOf(c.Recent(0)); !reflect.DeepEqual(got, []int64{2, 1}) {
		t.Fatalf("unexpected snapshot %v", got)
	}
}

func TestUpdate_KeepsOrderingAndCap(t *testing.T) {
	c := New(4, 10)
	c.Initialize(notices(10))
	for _, batch := range [][]int64{{3, 12, 11}, {20, 1, 15, 11}, {2, 2, 2}, {30, 29, 28, 27, 26, 25}} {
		c.Update(notices(batch...))
		assertInvariants(t, c)
		if c.Info().Size > 4 {
			t.Fatalf("cap exceeded after %v", batch)
		}
	}
	if got := numbersOf(c.Recent(10)); !reflect.DeepEqual(got, []int64{30, 29, 28, 27}) {
		t.Fatalf("unexpected snapshot %v", got)
	}
}

func TestDiffNew_ReturnsUnseenNumbers(t *testing.T) {
	c := New(10, 10)
	c.Initialize(notices(5, 6, 7))

	got := numbersOf(c.DiffNew(notices(5, 6, 7, 8, 9)))
	if !reflect.DeepEqual(got, []int64{8, 9}) {
		t.Fatalf("expected {8,9}, got %v", got)
	}
}

func TestDiffNew_EmptyBeforeInitialize(t *testing.T) {
	c := New(10, 10)
	if got := c.DiffNew(notices(1, 2, 3)); len(got) != 0 {
		t.Fatalf("expected no new notices before initialization, got %v", numbersOf(got))
	}
}

func TestDiffNew_IgnoresEvictedTailWhenFull(t *testing.T) {
	c := New(3, 10)
	c.Initialize(notices(10, 9, 8, 7, 6))

	got := numbersOf(c.DiffNew(notices(11, 10, 9, 8, 7, 6)))
	if !reflect.DeepEqual(got, []int64{11}) {
		t.Fatalf("expected only 11, got %v", got)
	}
}

func TestDiffNew_DeduplicatesWithinBatch(t *testing.T) {
	c := New(10, 10)
	c.Initialize(notices(1))
	got := numbersOf(c.DiffNew(notices(2, 2, 3)))
	if !reflect.DeepEqual(got, []int64{2, 3}) {
		t.Fatalf("expected {2,3}, got %v", got)
	}
}

func TestRecent_ClampsAndCopies(t *testing.T) {
	c := New(5, 2)
	c.Initialize([]core.Notice{
		{Number: 3, Attachments: []core.Attachment{{Name: "a"}}},
		{Number: 2},
		{Number: 1},
	})

	if got := len(c.Recent(0)); got != 2 {
		t.Fatalf("default limit should apply, got %d", got)
	}
	if got := len(c.Recent(100)); got != 3 {
		t.Fatalf("limit should clamp to size, got %d", got)
	}
	recent := c.Recent(1)
	recent[0].Attachments[0].Name = "mutated"
	if c.Recent(1)[0].Attachments[0].Name != "a" {
		t.Fatalf("readers must not share attachments with the snapshot")
	}
}

func TestClear_ResetsState(t *testing.T) {
	c := New(5, 10)
	c.Initialize(notices(1, 2))
	c.Clear()

	info := c.Info()
	if info.Initialized || info.Size != 0 || info.LastUpdated != nil {
		t.Fatalf("expected cleared info, got %#v", info)
	}
	if got := c.DiffNew(notices(3)); len(got) != 0 {
		t.Fatalf("cleared cache must suppress diffs")
	}
}

func TestInfo_UsesClock(t *testing.T) {
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c := New(5, 10, WithClock(func() time.Time { return fixed }))
	c.Initialize(notices(1))
	if info := c.Info(); info.LastUpdated == nil || !info.LastUpdated.Equal(fixed) {
		t.Fatalf("expected last updated %s, got %#v", fixed, info.LastUpdated)
	}
}

func TestConcurrentReadsDuringUpdates(t *testing.T) {
	c := New(20, 10)
	c.Initialize(notices(1))

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := int64(2); i < 200; i++ {
			c.Update(notices(i, i-1))
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			snapshot := c.Recent(20)
			for j := 1; j < len(snapshot); j++ {
				if snapshot[j-1].Number <= snapshot[j].Number {
					t.Errorf("reader observed unsorted snapshot %v", numbersOf(snapshot))
					return
				}
			}
		}
	}()
	wg.Wait()
	assertInvariants(t, c)
}
