package redis

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/redis/rueidis"
	"github.com/redis/rueidis/mock"
	"go.uber.org/mock/gomock"

	"github.com/kailas-cloud/knowdex/internal/db"
)

// --- client.go tests ---

func TestNewStore_Validation(t *testing.T) {
	if _, err := NewStore(Config{}); err == nil {
		t.Error("expected error for empty addrs")
	}
	if _, err := NewStore(Config{Addrs: []string{"localhost:6379"}, Flavor: "memcached"}); err == nil {
		t.Error("expected error for unknown flavor")
	}
}

func TestPing_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("PING")).
		Return(mock.Result(mock.RedisString("PONG")))

	s := NewStoreForTest(c, FlavorRedis)
	if err := s.Ping(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestPing_Error(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("PING")).
		Return(mock.ErrorResult(context.DeadlineExceeded))

	s := NewStoreForTest(c, FlavorRedis)
	if err := s.Ping(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestFlavorDefaultsToRedis(t *testing.T) {
	if f := NewStoreForTest(nil, "").Flavor(); f != FlavorRedis {
		t.Errorf("flavor = %q, want redis", f)
	}
}

func TestContainsIgnoreCase(t *testing.T) {
	tests := []struct {
		s, sub string
		want   bool
	}{
		{"Index Already Exists", "index already exists", true},
		{"UNKNOWN INDEX NAME", "unknown index name", true},
		{"hello world", "world", true},
		{"short", "longer than input", false},
		{"", "", true},
	}
	for _, tc := range tests {
		if got := containsIgnoreCase(tc.s, tc.sub); got != tc.want {
			t.Errorf("containsIgnoreCase(%q, %q) = %v, want %v", tc.s, tc.sub, got, tc.want)
		}
	}
}

// --- hash.go tests ---

func TestHSet_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "HSET" && cmd[1] == "mykey"
		})).
		Return(mock.Result(mock.RedisInt64(1)))

	s := NewStoreForTest(c, FlavorRedis)
	if err := s.HSet(context.Background(), "mykey", map[string]string{"f1": "v1"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestHSet_Error(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "HSET"
		})).
		Return(mock.ErrorResult(context.DeadlineExceeded))

	s := NewStoreForTest(c, FlavorRedis)
	err := s.HSet(context.Background(), "mykey", map[string]string{"f": "v"})
	if !isDBError(err) {
		t.Errorf("expected db.Error, got %T", err)
	}
}

func TestHGetAll_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("HGETALL", "mykey")).
		Return(mock.Result(mock.RedisMap(map[string]rueidis.RedisMessage{
			"f1": mock.RedisString("v1"),
			"f2": mock.RedisString("v2"),
		})))

	s := NewStoreForTest(c, FlavorRedis)
	m, err := s.HGetAll(context.Background(), "mykey")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m["f1"] != "v1" || m["f2"] != "v2" {
		t.Errorf("unexpected map: %v", m)
	}
}

func TestHGetAllMulti_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		DoMulti(gomock.Any(), gomock.Any(), gomock.Any()).
		Return([]rueidis.RedisResult{
			mock.Result(mock.RedisMap(map[string]rueidis.RedisMessage{
				"f": mock.RedisString("a"),
			})),
			mock.Result(mock.RedisMap(map[string]rueidis.RedisMessage{
				"f": mock.RedisString("b"),
			})),
		})

	s := NewStoreForTest(c, FlavorRedis)
	results, err := s.HGetAllMulti(context.Background(), []string{"k1", "k2"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 2 || results[0]["f"] != "a" || results[1]["f"] != "b" {
		t.Errorf("unexpected results: %v", results)
	}
}

func TestHGetAllMulti_Empty(t *testing.T) {
	s := NewStoreForTest(nil, FlavorRedis) // client not called
	results, err := s.HGetAllMulti(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if results != nil {
		t.Errorf("expected nil, got %v", results)
	}
}

func TestDel_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("DEL", "mykey")).
		Return(mock.Result(mock.RedisInt64(1)))

	s := NewStoreForTest(c, FlavorRedis)
	if err := s.Del(context.Background(), "mykey"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestDelMulti_Batches(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	keys := make([]string, delBatchSize+1)
	for i := range keys {
		keys[i] = "k"
	}

	c.EXPECT().
		DoMulti(gomock.Any(), gomock.Any(), gomock.Any()).
		Return([]rueidis.RedisResult{
			mock.Result(mock.RedisInt64(delBatchSize)),
			mock.Result(mock.RedisInt64(1)),
		})

	s := NewStoreForTest(c, FlavorRedis)
	if err := s.DelMulti(context.Background(), keys); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestDelMulti_Error(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		DoMulti(gomock.Any(), gomock.Any()).
		Return([]rueidis.RedisResult{mock.ErrorResult(context.DeadlineExceeded)})

	s := NewStoreForTest(c, FlavorRedis)
	if err := s.DelMulti(context.Background(), []string{"a", "b"}); !isDBError(err) {
		t.Fatalf("expected db.Error, got %v", err)
	}
}

func TestDelMulti_Empty(t *testing.T) {
	s := NewStoreForTest(nil, FlavorRedis)
	if err := s.DelMulti(context.Background(), nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestScan_MultiPage(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	first := true
	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "SCAN"
		})).
		DoAndReturn(func(_ context.Context, _ rueidis.Completed) rueidis.RedisResult {
			if first {
				first = false
				return mock.Result(mock.RedisArray(
					mock.RedisInt64(42), // cursor=42 means more
					mock.RedisArray(mock.RedisString("key1")),
				))
			}
			return mock.Result(mock.RedisArray(
				mock.RedisInt64(0), // cursor=0 means done
				mock.RedisArray(mock.RedisString("key2")),
			))
		}).Times(2)

	s := NewStoreForTest(c, FlavorRedis)
	keys, err := s.Scan(context.Background(), "prefix:*")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !slices.Equal(keys, []string{"key1", "key2"}) {
		t.Fatalf("unexpected keys %v", keys)
	}
}

// --- kv.go tests ---

func TestGet_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("GET", "mykey")).
		Return(mock.Result(mock.RedisBlobString("value")))

	s := NewStoreForTest(c, FlavorRedis)
	data, err := s.Get(context.Background(), "mykey")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != "value" {
		t.Errorf("unexpected data: %s", data)
	}
}

func TestGet_NotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("GET", "mykey")).
		Return(mock.Result(mock.RedisNil()))

	s := NewStoreForTest(c, FlavorRedis)
	_, err := s.Get(context.Background(), "mykey")
	if !errors.Is(err, db.ErrKeyNotFound) {
		t.Errorf("expected ErrKeyNotFound, got %v", err)
	}
}

func TestSet_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("SET", "mykey", "myvalue")).
		Return(mock.Result(mock.RedisString("OK")))

	s := NewStoreForTest(c, FlavorRedis)
	if err := s.Set(context.Background(), "mykey", []byte("myvalue")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSetWithTTL_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("SET", "mykey", "myvalue", "EX", "60")).
		Return(mock.Result(mock.RedisString("OK")))

	s := NewStoreForTest(c, FlavorRedis)
	if err := s.SetWithTTL(context.Background(), "mykey", []byte("myvalue"), time.Minute); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSetWithTTL_ZeroMeansNoExpiry(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("SET", "mykey", "myvalue")).
		Return(mock.Result(mock.RedisString("OK")))

	s := NewStoreForTest(c, FlavorRedis)
	if err := s.SetWithTTL(context.Background(), "mykey", []byte("myvalue"), 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// --- index.go tests ---

func TestCreateIndex_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "FT.CREATE" && cmd[1] == "test:idx" && slices.Contains(cmd, "HNSW")
		})).
		Return(mock.Result(mock.RedisString("OK")))

	s := NewStoreForTest(c, FlavorRedis)
	idx, err := db.NewIndex("test:idx").
		Prefix("test:").
		TagWithOpts("__tokens", ",", false).
		VectorHNSW("__vector", 4, db.DistanceCosine, 16, 200).As("vector").
		Build()
	if err != nil {
		t.Fatal(err)
	}
	if err := s.CreateIndex(context.Background(), idx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCreateIndex_AlreadyExists(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "FT.CREATE"
		})).
		Return(mock.Result(mock.RedisError("Index already exists")))

	s := NewStoreForTest(c, FlavorRedis)
	err := s.CreateIndex(context.Background(), &db.IndexDefinition{
		Name:   "test:idx",
		Fields: []db.IndexField{{Name: "f", Type: db.IndexFieldTag}},
	})
	if !errors.Is(err, db.ErrIndexExists) {
		t.Errorf("expected ErrIndexExists, got %v", err)
	}
}

func TestIndexExists_True(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("FT.INFO", "test:idx")).
		Return(mock.Result(mock.RedisArray(mock.RedisString("index_name"), mock.RedisString("test:idx"))))

	s := NewStoreForTest(c, FlavorRedis)
	exists, err := s.IndexExists(context.Background(), "test:idx")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !exists {
		t.Error("expected true")
	}
}

func TestIndexExists_False(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("FT.INFO", "test:idx")).
		Return(mock.Result(mock.RedisError("Unknown Index name")))

	s := NewStoreForTest(c, FlavorRedis)
	exists, err := s.IndexExists(context.Background(), "test:idx")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if exists {
		t.Error("expected false")
	}
}

func TestSupportsTagSearch(t *testing.T) {
	ctx := context.Background()
	if !NewStoreForTest(nil, FlavorRedis).SupportsTagSearch(ctx) {
		t.Error("Redis store should support tag search")
	}
	if NewStoreForTest(nil, FlavorValkey).SupportsTagSearch(ctx) {
		t.Error("Valkey store should not support tag search")
	}
}

func TestBuildCreateArgs(t *testing.T) {
	_, err := buildCreateArgs(&db.IndexDefinition{Name: "", Fields: []db.IndexField{{Name: "f", Type: db.IndexFieldTag}}})
	if err == nil {
		t.Error("expected error for empty name")
	}

	args, err := buildCreateArgs(&db.IndexDefinition{
		Name:     "i",
		Prefixes: []string{"p:"},
		Fields: []db.IndexField{{
			Name: "__vector", Alias: "vector", Type: db.IndexFieldVector,
			VectorDim: 8, VectorM: 16,
		}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "i ON HASH PREFIX 1 p: SCHEMA __vector AS vector VECTOR HNSW 8 TYPE FLOAT32 DIM 8 DISTANCE_METRIC COSINE M 16"
	if got := strings.Join(args, " "); got != want {
		t.Errorf("args = %q\nwant   %q", got, want)
	}
}

func TestBuildCreateArgs_Invalid(t *testing.T) {
	for name, def := range map[string]*db.IndexDefinition{
		"no fields":      {Name: "i"},
		"empty field":    {Name: "i", Fields: []db.IndexField{{Type: db.IndexFieldTag}}},
		"zero dim":       {Name: "i", Fields: []db.IndexField{{Name: "v", Type: db.IndexFieldVector}}},
		"bad index name": {Name: "a b", Fields: []db.IndexField{{Name: "f"}}},
	} {
		if _, err := buildCreateArgs(def); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestFieldArgs_IPDistanceAndEF(t *testing.T) {
	got := strings.Join(fieldArgs(&db.IndexField{
		Name: "v", Type: db.IndexFieldVector, VectorDim: 4,
		VectorDistance: db.DistanceIP, VectorEFConstruct: 200,
	}), " ")
	want := "v VECTOR HNSW 8 TYPE FLOAT32 DIM 4 DISTANCE_METRIC IP EF_CONSTRUCTION 200"
	if got != want {
		t.Errorf("args = %q\nwant   %q", got, want)
	}
}

func TestFieldArgs_TagOptions(t *testing.T) {
	args := fieldArgs(&db.IndexField{
		Name: "__tokens", Type: db.IndexFieldTag, TagSeparator: ",", TagCaseSensitive: true,
	})
	if got := strings.Join(args, " "); got != "__tokens TAG SEPARATOR , CASESENSITIVE" {
		t.Errorf("args = %q", got)
	}
}

// --- search.go tests ---

func TestSearchKNN_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			q := strings.Join(cmd, " ")
			return cmd[0] == "FT.SEARCH" &&
				strings.Contains(q, "*=>[KNN 20 @vector $BLOB]") &&
				strings.Contains(q, "RETURN 2 __payload __vector_score") &&
				strings.Contains(q, "LIMIT 0 20")
		})).
		Return(mock.Result(mock.RedisArray(
			mock.RedisInt64(2), // total
			mock.RedisString("doc:1"),
			mock.RedisArray(
				mock.RedisString("__vector_score"),
				mock.RedisString("0.1"), // distance 0.1 → similarity 0.9
				mock.RedisString("__payload"),
				mock.RedisString("{}"),
			),
			mock.RedisString("doc:2"),
			mock.RedisArray(
				mock.RedisString("__vector_score"),
				mock.RedisString("1.7"), // opposite vectors clamp to 0
			),
		)))

	s := NewStoreForTest(c, FlavorRedis)
	result, err := s.SearchKNN(context.Background(), &db.KNNQuery{
		IndexName:    "idx",
		Vector:       []float32{0.1, 0.2},
		K:            20,
		ReturnFields: []string{"__payload"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(result.Entries))
	}
	if s := result.Entries[0].Score; s < 0.89 || s > 0.91 {
		t.Errorf("expected score ~0.9, got %f", s)
	}
	if result.Entries[1].Score != 0 {
		t.Errorf("expected clamped score 0, got %f", result.Entries[1].Score)
	}
	if _, ok := result.Entries[0].Fields["__vector_score"]; ok {
		t.Error("__vector_score must be stripped from fields")
	}
}

func TestSearchKNN_WithFilter(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "FT.SEARCH" && cmd[2] == "(@__has_embedding:{1})=>[KNN 5 @emb $BLOB]"
		})).
		Return(mock.Result(mock.RedisArray(mock.RedisInt64(0))))

	s := NewStoreForTest(c, FlavorValkey)
	result, err := s.SearchKNN(context.Background(), &db.KNNQuery{
		IndexName: "idx",
		Field:     "emb",
		Filter:    "@__has_embedding:{1}",
		Vector:    []float32{0.1},
		K:         5,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Entries) != 0 {
		t.Errorf("expected 0 entries, got %d", len(result.Entries))
	}
}

func TestSearchKNN_Error(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), gomock.Any()).
		Return(mock.ErrorResult(context.DeadlineExceeded))

	s := NewStoreForTest(c, FlavorRedis)
	_, err := s.SearchKNN(context.Background(), &db.KNNQuery{IndexName: "idx", Vector: []float32{0.1}, K: 10})
	if !errors.Is(err, context.DeadlineExceeded) || !isDBError(err) {
		t.Fatalf("expected wrapped deadline error, got %v", err)
	}
}

func TestSearchKNN_Validation(t *testing.T) {
	s := &Store{}
	ctx := context.Background()

	if _, err := s.SearchKNN(ctx, &db.KNNQuery{Vector: []float32{0.1}, K: 10}); err == nil {
		t.Error("expected error for empty index name")
	}
	if _, err := s.SearchKNN(ctx, &db.KNNQuery{IndexName: "idx", K: 10}); err == nil {
		t.Error("expected error for empty vector")
	}
	if _, err := s.SearchKNN(ctx, &db.KNNQuery{IndexName: "idx", Vector: []float32{0.1}}); err == nil {
		t.Error("expected error for k=0")
	}
}

func TestSearchTags_Redis(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "FT.SEARCH" && cmd[2] == "@__tokens:{postgres|k8s\\-db}"
		})).
		Return(mock.Result(mock.RedisArray(
			mock.RedisInt64(1),
			mock.RedisString("knowdex:patterns:a"),
			mock.RedisArray(mock.RedisString("__text"), mock.RedisString("postgres operator")),
		)))

	s := NewStoreForTest(c, FlavorRedis)
	result, err := s.SearchTags(context.Background(), &db.TagQuery{
		IndexName: "knowdex:patterns:idx",
		Field:     "__tokens",
		Tags:      []string{"postgres", "k8s-db"},
		Limit:     100,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Entries) != 1 || result.Entries[0].Fields["__text"] != "postgres operator" {
		t.Fatalf("unexpected entries %+v", result.Entries)
	}
}

func TestSearchTags_ValkeyScanFallback(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "SCAN" && slices.Contains(cmd, "knowdex:patterns:*")
		})).
		Return(mock.Result(mock.RedisArray(
			mock.RedisInt64(0),
			mock.RedisArray(
				mock.RedisString("knowdex:patterns:b"),
				mock.RedisString("knowdex:patterns:a"),
				mock.RedisString("knowdex:patterns:c"),
			),
		)))

	// keys are sorted before fetching: a, b, c
	c.EXPECT().
		DoMulti(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return([]rueidis.RedisResult{
			mock.Result(mock.RedisMap(map[string]rueidis.RedisMessage{
				"__tokens": mock.RedisString("redis,cache"),
				"__text":   mock.RedisString("redis cache"),
			})),
			mock.Result(mock.RedisMap(map[string]rueidis.RedisMessage{
				"__tokens": mock.RedisString("postgres"),
			})),
			mock.Result(mock.RedisMap(map[string]rueidis.RedisMessage{
				"__tokens": mock.RedisString("Cache,queue"),
				"__text":   mock.RedisString("cache queue"),
			})),
		})

	s := NewStoreForTest(c, FlavorValkey)
	result, err := s.SearchTags(context.Background(), &db.TagQuery{
		IndexName:    "knowdex:patterns:idx",
		Field:        "__tokens",
		Tags:         []string{"cache"},
		Limit:        10,
		ReturnFields: []string{"__text"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Total != 2 || len(result.Entries) != 2 {
		t.Fatalf("expected 2 matches, got %+v", result)
	}
	if result.Entries[0].Key != "knowdex:patterns:a" || result.Entries[1].Key != "knowdex:patterns:c" {
		t.Errorf("unexpected keys %s, %s", result.Entries[0].Key, result.Entries[1].Key)
	}
	if _, ok := result.Entries[0].Fields["__tokens"]; ok {
		t.Error("only requested fields must be returned")
	}
}

func TestSearchTags_Validation(t *testing.T) {
	s := &Store{}
	ctx := context.Background()

	if _, err := s.SearchTags(ctx, &db.TagQuery{Field: "f", Tags: []string{"a"}, Limit: 1}); err == nil {
		t.Error("expected error for empty index name")
	}
	if _, err := s.SearchTags(ctx, &db.TagQuery{IndexName: "i", Tags: []string{"a"}, Limit: 1}); err == nil {
		t.Error("expected error for empty field")
	}
	if _, err := s.SearchTags(ctx, &db.TagQuery{IndexName: "i", Field: "f", Tags: []string{"a"}}); err == nil {
		t.Error("expected error for zero limit")
	}

	res, err := s.SearchTags(ctx, &db.TagQuery{IndexName: "i", Field: "f", Limit: 1})
	if err != nil || len(res.Entries) != 0 {
		t.Errorf("no tags must match nothing, got %+v, %v", res, err)
	}
}

func TestSearchList_Redis(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("FT.SEARCH", "idx", "*", "LIMIT", "0", "10")).
		Return(mock.Result(mock.RedisArray(
			mock.RedisInt64(2),
			mock.RedisString("doc:1"),
			mock.RedisArray(mock.RedisString("f"), mock.RedisString("v1")),
			mock.RedisString("doc:2"),
			mock.RedisArray(mock.RedisString("f"), mock.RedisString("v2")),
		)))

	s := NewStoreForTest(c, FlavorRedis)
	result, err := s.SearchList(context.Background(), "idx", "*", 0, 10, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Total != 2 || len(result.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %+v", result)
	}
}

func TestSearchList_ValkeyWildcardFallback(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "SCAN"
		})).
		Return(mock.Result(mock.RedisArray(
			mock.RedisInt64(0),
			mock.RedisArray(mock.RedisString("knowdex:col:doc2"), mock.RedisString("knowdex:col:doc1")),
		)))

	c.EXPECT().
		Do(gomock.Any(), mock.Match("HGETALL", "knowdex:col:doc1")).
		Return(mock.Result(mock.RedisMap(map[string]rueidis.RedisMessage{
			"__text": mock.RedisString("hello"),
		})))

	s := NewStoreForTest(c, FlavorValkey)
	result, err := s.SearchList(context.Background(), "knowdex:col:idx", "*", 0, 1, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Total != 2 {
		t.Fatalf("expected total 2, got %d", result.Total)
	}
	if len(result.Entries) != 1 || result.Entries[0].Fields["__text"] != "hello" {
		t.Fatalf("unexpected entries %+v", result.Entries)
	}
}

func TestSearchCount_Redis(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("FT.SEARCH", "idx", "*", "LIMIT", "0", "0")).
		Return(mock.Result(mock.RedisArray(mock.RedisInt64(42))))

	s := NewStoreForTest(c, FlavorRedis)
	count, err := s.SearchCount(context.Background(), "idx", "*")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 42 {
		t.Errorf("expected 42, got %d", count)
	}
}

func TestSearchCount_ValkeyWildcardFallback(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "SCAN"
		})).
		Return(mock.Result(mock.RedisArray(
			mock.RedisInt64(0),
			mock.RedisArray(mock.RedisString("a"), mock.RedisString("b"), mock.RedisString("c")),
		)))

	s := NewStoreForTest(c, FlavorValkey)
	count, err := s.SearchCount(context.Background(), "knowdex:col:idx", "*")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 3 {
		t.Errorf("expected 3, got %d", count)
	}
}

func TestIndexToKeyPrefix(t *testing.T) {
	tests := map[string]string{
		"knowdex:patterns:idx": "knowdex:patterns:",
		"custom":               "custom:",
	}
	for in, want := range tests {
		if got := indexToKeyPrefix(in); got != want {
			t.Errorf("indexToKeyPrefix(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestBuildTagQuery(t *testing.T) {
	got := buildTagQuery("__tokens", []string{"a b", "x|y", "v1.2"})
	want := `@__tokens:{a\ b|x\|y|v1\.2}`
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestVectorToBytes(t *testing.T) {
	if b := vectorToBytes([]float32{1.0, 2.0}); len(b) != 8 {
		t.Fatalf("expected 8 bytes, got %d", len(b))
	}
}

// --- helpers ---

// isDBError is a test helper for checking wrapped db.Error.
func isDBError(err error) bool {
	var dbErr *db.Error
	return errors.As(err, &dbErr)
}

func hreplaceCmds() []any {
	return []any{
		mock.Match("MULTI"),
		mock.Match("DEL", "mykey"),
		mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "HSET" && cmd[1] == "mykey" && slices.Contains(cmd, "f1")
		}),
		mock.Match("EXEC"),
	}
}

func TestHReplace_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		DoMulti(gomock.Any(), hreplaceCmds()...).
		Return([]rueidis.RedisResult{
			mock.Result(mock.RedisString("OK")),
			mock.Result(mock.RedisString("QUEUED")),
			mock.Result(mock.RedisString("QUEUED")),
			mock.Result(mock.RedisArray(mock.RedisInt64(1), mock.RedisInt64(1))),
		})

	s := NewStoreForTest(c, FlavorRedis)
	if err := s.HReplace(context.Background(), "mykey", map[string]string{"f1": "v1"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestHReplace_ConnectionError(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		DoMulti(gomock.Any(), hreplaceCmds()...).
		Return([]rueidis.RedisResult{
			mock.Result(mock.RedisString("OK")),
			mock.Result(mock.RedisString("QUEUED")),
			mock.ErrorResult(errors.New("conn reset")),
			mock.ErrorResult(errors.New("conn reset")),
		})

	s := NewStoreForTest(c, FlavorRedis)
	err := s.HReplace(context.Background(), "mykey", map[string]string{"f1": "v1"})
	if !isDBError(err) {
		t.Fatalf("expected db.Error, got %v", err)
	}
}

func TestHReplace_QueuedCommandFails(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		DoMulti(gomock.Any(), hreplaceCmds()...).
		Return([]rueidis.RedisResult{
			mock.Result(mock.RedisString("OK")),
			mock.Result(mock.RedisString("QUEUED")),
			mock.Result(mock.RedisString("QUEUED")),
			mock.Result(mock.RedisArray(
				mock.RedisInt64(1),
				mock.RedisError("OOM command not allowed when used memory > 'maxmemory'"),
			)),
		})

	s := NewStoreForTest(c, FlavorRedis)
	err := s.HReplace(context.Background(), "mykey", map[string]string{"f1": "v1"})
	if !isDBError(err) || !strings.Contains(err.Error(), "OOM") {
		t.Fatalf("expected OOM db.Error, got %v", err)
	}
}

func TestHReplace_NoFields(t *testing.T) {
	s := NewStoreForTest(nil, FlavorRedis)
	if err := s.HReplace(context.Background(), "mykey", nil); !isDBError(err) {
		t.Fatalf("expected db.Error, got %v", err)
	}
}
