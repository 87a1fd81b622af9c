package settings

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "data", "panel.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteStore_ReadMissing(t *testing.T) {
	s := openTestStore(t)

	_, ok, err := s.ReadEndpoint(context.Background(), "alice")
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("expected no row")
	}
}

func TestSQLiteStore_UpsertIsIdempotent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := s.UpsertEndpoint(ctx, "alice", "mc.example.com", 25575, "pw"); err != nil {
			t.Fatalf("upsert %d: %v", i, err)
		}
	}
	if err := s.UpsertEndpoint(ctx, "alice", "mc2.example.com", 25580, "pw2"); err != nil {
		t.Fatal(err)
	}

	row, ok, err := s.ReadEndpoint(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected a row")
	}
	want := StoredEndpoint{Host: "mc2.example.com", Port: "25580", Password: "pw2"}
	if row != want {
		t.Errorf("row = %+v, want %+v", row, want)
	}

	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM rcon_config").Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("row count = %d, want 1", count)
	}
}

func TestSQLiteStore_ConcurrentUpserts(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(port int) {
			defer wg.Done()
			if err := s.UpsertEndpoint(ctx, "alice", "h", port, "pw"); err != nil {
				t.Error(err)
			}
		}(25575 + i)
	}
	wg.Wait()

	if _, ok, err := s.ReadEndpoint(ctx, "alice"); err != nil || !ok {
		t.Errorf("read after concurrent upserts: ok=%v err=%v", ok, err)
	}
}

func TestSQLiteStore_MalformedPortFallsBack(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if _, err := s.db.Exec(
		"INSERT INTO rcon_config (tenant, host, port, password) VALUES (?, ?, ?, ?)",
		"alice", nil, "notanumber", "pw",
	); err != nil {
		t.Fatal(err)
	}

	ep, err := NewResolver(ModeMulti, s).Resolve(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if ep.Host != DefaultHost || ep.Port != DefaultPort {
		t.Errorf("addr = %q, want %s:%d", ep.Addr(), DefaultHost, DefaultPort)
	}
	if ep.Provenance != ProvenanceStored || ep.Password != "pw" {
		t.Errorf("endpoint = %+v, want stored with password", ep)
	}
}

func TestSQLiteStore_ResolverRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	r := NewResolver(ModeSingle, s, WithLookupEnv(noEnv))

	if err := r.Save(ctx, "anyone", "10.0.0.9", 25590, "secret"); err != nil {
		t.Fatal(err)
	}

	ep, err := r.Resolve(ctx, "someone-else")
	if err != nil {
		t.Fatal(err)
	}
	if ep.Addr() != "10.0.0.9:25590" || ep.Provenance != ProvenanceStored {
		t.Errorf("endpoint = %+v, want stored 10.0.0.9:25590", ep)
	}
}
