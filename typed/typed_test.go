package typed

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"

	"github.com/unkn0wn-root/kvstore"
	"github.com/unkn0wn-root/kvstore/codec"
	"github.com/unkn0wn-root/kvstore/memory"
)

type recHooks struct {
	mu      sync.Mutex
	codec   []string
	backend []string
}

func (h *recHooks) CodecFailure(op, part string, _ error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.codec = append(h.codec, op+":"+part)
}

func (h *recHooks) BackendFailure(op string, _ error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.backend = append(h.backend, op)
}

type recLogger struct {
	kvstore.NopLogger
	mu    *sync.Mutex
	warns *[]string
}

func (l recLogger) Warn(msg string, f kvstore.Fields) {
	l.mu.Lock()
	defer l.mu.Unlock()
	*l.warns = append(*l.warns, fmt.Sprintf("%s op=%v part=%v", msg, f["op"], f["part"]))
}

func expectGet[K any, V comparable](t *testing.T, s kvstore.Getter[K, V], k K, want V, wantOK bool) {
	t.Helper()
	got, ok, err := s.Get(context.Background(), k)
	if err != nil {
		t.Fatalf("Get(%v): %v", k, err)
	}
	if ok != wantOK || got != want {
		t.Fatalf("Get(%v) = (%v, %v), want (%v, %v)", k, got, ok, want, wantOK)
	}
}

func expectSet[K any, V comparable](t *testing.T, s kvstore.Setter[K, V], k K, v V, wantPrev V, wantOK bool) {
	t.Helper()
	prev, ok, err := s.Set(context.Background(), k, v)
	if err != nil {
		t.Fatalf("Set(%v): %v", k, err)
	}
	if ok != wantOK || prev != wantPrev {
		t.Fatalf("Set(%v) prev = (%v, %v), want (%v, %v)", k, prev, ok, wantPrev, wantOK)
	}
}

func TestScenarioMatchesReferenceBackend(t *testing.T) {
	ref := memory.New[string, int]()
	var bin kvstore.Store[string, int] = Must[string, int](memory.NewBytes())

	for _, s := range []kvstore.Store[string, int]{ref, bin} {
		expectGet[string, int](t, s, "test", 0, false)
		expectSet[string, int](t, s, "test", 32, 0, false)
		expectGet[string, int](t, s, "test", 32, true)

		expectSet[string, int](t, s, "test", 42, 32, true)
		expectGet[string, int](t, s, "test", 42, true)

		expectGet[string, int](t, s, "test2", 0, false)
		expectSet[string, int](t, s, "test2", 2, 0, false)
		expectSet[string, int](t, s, "test3", 3, 0, false)
		expectGet[string, int](t, s, "test2", 2, true)
	}
}

func TestFloatKeysMatchReferenceEquality(t *testing.T) {
	negZero := math.Copysign(0, -1)
	ref := memory.New[float64, int]()
	bin := Must[float64, int](memory.NewBytes())

	for _, s := range []kvstore.Store[float64, int]{ref, bin} {
		expectSet[float64, int](t, s, 0.0, 1, 0, false)
		expectGet[float64, int](t, s, negZero, 1, true)
		expectSet[float64, int](t, s, negZero, 2, 1, true)
		expectGet[float64, int](t, s, 0.0, 2, true)
		expectGet[float64, int](t, s, 1.5, 0, false)
	}
}

type orderKey struct {
	Tenant uuid.UUID
	Region string
	Seq    uint64
}

type order struct {
	Items    []string
	Total    int64
	Placed   time.Time
	Metadata map[string]string
	Parent   *orderKey
}

func TestStructuredKeysAndValuesRoundTrip(t *testing.T) {
	ctx := context.Background()
	inner := memory.NewBytes()
	s := Must[orderKey, order](inner)

	tenant := uuid.New()
	k1 := orderKey{Tenant: tenant, Region: "eu", Seq: 1}
	k2 := orderKey{Tenant: tenant, Region: "eu", Seq: 2}
	v1 := order{
		Items:    []string{"book", "pen"},
		Total:    1250,
		Placed:   time.Date(2025, time.January, 2, 3, 4, 5, 6, time.UTC),
		Metadata: map[string]string{"channel": "web", "coupon": "X1"},
	}
	v2 := order{Items: []string{"lamp"}, Total: 99, Parent: &k1}

	if _, ok, err := s.Set(ctx, k1, v1); err != nil || ok {
		t.Fatalf("Set k1: ok=%v err=%v", ok, err)
	}
	if _, ok, err := s.Set(ctx, k2, v2); err != nil || ok {
		t.Fatalf("Set k2: ok=%v err=%v", ok, err)
	}

	// an equal key built independently addresses the same entry
	same := orderKey{Tenant: uuid.MustParse(tenant.String()), Region: "e" + "u", Seq: 1}
	got, ok, err := s.Get(ctx, same)
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if diff := cmp.Diff(v1, got); diff != "" {
		t.Fatalf("value mismatch (-want +got):\n%s", diff)
	}

	prev, ok, err := s.Set(ctx, k2, v1)
	if err != nil || !ok {
		t.Fatalf("Set k2 again: ok=%v err=%v", ok, err)
	}
	if diff := cmp.Diff(v2, prev); diff != "" {
		t.Fatalf("prior mismatch (-want +got):\n%s", diff)
	}
	if inner.Len() != 2 {
		t.Fatalf("inner Len = %d, want 2", inner.Len())
	}
}

func TestCustomCodecs(t *testing.T) {
	ctx := context.Background()
	s, err := New[string, map[string]int](memory.NewBytes(), Options[string, map[string]int]{
		KeyCodec:   codec.String{},
		ValueCodec: codec.MustCBOR[map[string]int](true),
	})
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]int{"a": 1, "b": 2}
	if _, _, err := s.Set(ctx, "counts", want); err != nil {
		t.Fatal(err)
	}
	got, ok, err := s.Get(ctx, "counts")
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("mismatch:\n%s", diff)
	}
}

func TestDecodeFailureIsErrorNotAbsence(t *testing.T) {
	ctx := context.Background()
	inner := memory.NewBytes()
	hooks := &recHooks{}
	var mu sync.Mutex
	var warns []string
	s, err := New[string, int64](inner, Options[string, int64]{
		Hooks:  hooks,
		Logger: recLogger{mu: &mu, warns: &warns},
	})
	if err != nil {
		t.Fatal(err)
	}

	bk, _ := codec.Binary[string]{}.Encode("k")
	if _, _, err := inner.Set(ctx, bk, []byte("not-an-int64")); err != nil {
		t.Fatal(err)
	}

	_, ok, err := s.Get(ctx, "k")
	if ok || err == nil {
		t.Fatalf("Get on foreign bytes: ok=%v err=%v, want error", ok, err)
	}
	var kerr *kvstore.Error
	if !errors.As(err, &kerr) || kerr.Op != "get" || kerr.Msg != "decode value" {
		t.Fatalf("unexpected error shape: %#v", err)
	}
	if !errors.Is(err, codec.ErrTrailingBytes) {
		t.Fatalf("expected wrapped codec error, got %v", err)
	}

	// Set still replaces; only the prior value is undecodable
	_, ok, err = s.Set(ctx, "k", 7)
	if ok || err == nil {
		t.Fatalf("Set over foreign bytes: ok=%v err=%v, want error", ok, err)
	}
	if !errors.As(err, &kerr) || kerr.Msg != "decode prior value" {
		t.Fatalf("unexpected error: %v", err)
	}
	expectGet[string, int64](t, s, "k", 7, true)

	if diff := cmp.Diff([]string{"get:value", "set:prior"}, hooks.codec); diff != "" {
		t.Fatalf("hooks mismatch:\n%s", diff)
	}
	if len(warns) != 2 {
		t.Fatalf("expected 2 warn logs, got %v", warns)
	}
}

func TestEncodeFailure(t *testing.T) {
	ctx := context.Background()
	inner := memory.NewBytes()
	hooks := &recHooks{}
	s, err := New[string, func()](inner, Options[string, func()]{Hooks: hooks})
	if err != nil {
		t.Fatal(err)
	}
	_, _, err = s.Set(ctx, "k", func() {})
	var ute *codec.UnsupportedTypeError
	if !errors.As(err, &ute) {
		t.Fatalf("expected UnsupportedTypeError, got %v", err)
	}
	if inner.Len() != 0 {
		t.Fatalf("failed encode must not touch inner store")
	}

	ks, err := New[any, int](inner, Options[any, int]{Hooks: hooks})
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := ks.Get(ctx, 1); !errors.As(err, &ute) {
		t.Fatalf("expected UnsupportedTypeError on key encode, got %v", err)
	}
	if diff := cmp.Diff([]string{"set:value", "get:key"}, hooks.codec); diff != "" {
		t.Fatalf("hooks mismatch:\n%s", diff)
	}
}

func TestBackendFailurePropagates(t *testing.T) {
	ctx := context.Background()
	inner := memory.NewBytes()
	hooks := &recHooks{}
	s, err := New[string, string](inner, Options[string, string]{Hooks: hooks})
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Close(ctx); err != nil {
		t.Fatal(err)
	}
	if _, _, err := s.Get(ctx, "k"); !kvstore.IsClosed(err) {
		t.Fatalf("Get after Close: %v, want ErrClosed", err)
	}
	if _, _, err := s.Set(ctx, "k", "v"); !kvstore.IsClosed(err) {
		t.Fatalf("Set after Close: %v, want ErrClosed", err)
	}
	if diff := cmp.Diff([]string{"get", "set"}, hooks.backend); diff != "" {
		t.Fatalf("hooks mismatch:\n%s", diff)
	}

	cctx, cancel := context.WithCancel(ctx)
	cancel()
	live := Must[string, string](memory.NewBytes())
	if _, _, err := live.Set(cctx, "k", "v"); !errors.Is(err, context.Canceled) {
		t.Fatalf("Set with cancelled ctx: %v", err)
	}
	expectGet[string, string](t, live, "k", "", false)
}

func TestNilInner(t *testing.T) {
	if _, err := New[string, int](nil, Options[string, int]{}); !errors.Is(err, kvstore.ErrNilStore) {
		t.Fatalf("expected ErrNilStore, got %v", err)
	}
}

func TestConcurrentDisjointWriters(t *testing.T) {
	ctx := context.Background()
	s := Must[[2]uint32, string](memory.NewBytes())

	const writers, perWriter = 8, 100
	var wg sync.WaitGroup
	wg.Add(writers)
	for w := 0; w < writers; w++ {
		go func(w uint32) {
			defer wg.Done()
			for i := uint32(0); i < perWriter; i++ {
				if _, _, err := s.Set(ctx, [2]uint32{w, i}, fmt.Sprintf("%d/%d", w, i)); err != nil {
					t.Errorf("Set: %v", err)
				}
			}
		}(uint32(w))
	}
	wg.Wait()

	for w := uint32(0); w < writers; w++ {
		for i := uint32(0); i < perWriter; i++ {
			expectGet[[2]uint32, string](t, s, [2]uint32{w, i}, fmt.Sprintf("%d/%d", w, i), true)
		}
	}
}

func TestAsyncThroughAdapter(t *testing.T) {
	ctx := context.Background()
	s := Must[string, int](memory.NewBytes())

	res, err := kvstore.SetAsync[string, int](ctx, s, "a", 1).Await(ctx)
	if err != nil || res.Found {
		t.Fatalf("SetAsync: %+v, %v", res, err)
	}
	res, err = kvstore.GetAsync[string, int](ctx, s, "a").Await(ctx)
	if err != nil || !res.Found || res.Value != 1 {
		t.Fatalf("GetAsync: %+v, %v", res, err)
	}
}
