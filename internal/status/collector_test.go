package status

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"reflect"
	"strings"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestCollect(t *testing.T) {
	dir := t.TempDir()
	var s Sources
	for name, content := range map[string]string{
		"single.status": singleStatus,
		"multi.status":  markerMulti2 + "\n" + multi2Line + "\n",
	} {
		if _, err := s.Add(writeStatus(t, dir, name, content)); err != nil {
			t.Fatal(err)
		}
	}

	c := NewCollector(&s, Policy{CollectIndividualUsers: true, ImprovedNamingSchema: true}, testLogger())
	rec := &recorder{}
	results, err := c.Collect(rec)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	for _, r := range results {
		if !r.Produced || r.Err != nil {
			t.Errorf("%s: produced=%v err=%v", r.Source.Name, r.Produced, r.Err)
		}
	}
	// two single-mode traffic observations plus one client
	if len(rec.obs) != 3 {
		t.Errorf("got %d observations, want 3", len(rec.obs))
	}
	if len(rec.conns) != 1 {
		t.Errorf("got %d connections, want 1", len(rec.conns))
	}
}

func TestCollectSkipsMissingFile(t *testing.T) {
	dir := t.TempDir()
	var s Sources
	gone, err := s.Add(writeStatus(t, dir, "gone.status", markerMulti2+"\n"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Add(writeStatus(t, dir, "ok.status", markerMulti2+"\n"+multi2Line+"\n")); err != nil {
		t.Fatal(err)
	}
	if err := os.Remove(gone.Path); err != nil {
		t.Fatal(err)
	}

	c := NewCollector(&s, Policy{CollectIndividualUsers: true}, testLogger())
	results, err := c.Collect(&recorder{})
	if err != nil {
		t.Fatalf("one good source should succeed the cycle, got %v", err)
	}
	if !errors.Is(results[0].Err, os.ErrNotExist) || results[0].Produced {
		t.Errorf("missing source result = %+v", results[0])
	}
	if !results[1].Produced {
		t.Errorf("good source result = %+v", results[1])
	}
}

func TestCollectNoData(t *testing.T) {
	dir := t.TempDir()
	var s Sources
	if _, err := s.Add(writeStatus(t, dir, "empty.status", markerMulti4+"\n")); err != nil {
		t.Fatal(err)
	}

	c := NewCollector(&s, Policy{CollectIndividualUsers: true}, testLogger())
	if _, err := c.Collect(&recorder{}); !errors.Is(err, ErrNoData) {
		t.Fatalf("got %v, want ErrNoData", err)
	}

	empty := NewCollector(&Sources{}, DefaultPolicy(), testLogger())
	if _, err := empty.Collect(&recorder{}); !errors.Is(err, ErrNoData) {
		t.Fatalf("no sources: got %v, want ErrNoData", err)
	}
}

func TestCollectTrustsDetectedFormat(t *testing.T) {
	dir := t.TempDir()
	var s Sources
	src, err := s.Add(writeStatus(t, dir, "vpn.status", markerMulti2+"\n"+multi2Line+"\n"))
	if err != nil {
		t.Fatal(err)
	}
	// The file switches to version 3 after configuration; lines no longer
	// match the version 2 layout and nothing is produced.
	writeStatus(t, dir, "vpn.status", markerMulti3+"\n"+multi3Line+"\n")

	c := NewCollector(&s, Policy{CollectIndividualUsers: true}, testLogger())
	if _, err := c.Collect(&recorder{}); !errors.Is(err, ErrNoData) {
		t.Fatalf("got %v, want ErrNoData", err)
	}
	if src.Format != FormatMulti2 {
		t.Errorf("format changed to %v", src.Format)
	}
}

func TestCollectPolicyGating(t *testing.T) {
	dir := t.TempDir()
	lines := []string{markerMulti2}
	for _, cn := range []string{"alice", "bob", "carol"} {
		lines = append(lines, strings.Replace(multi2Line, "bob", cn, 1))
	}
	var s Sources
	if _, err := s.Add(writeStatus(t, dir, "vpn.status", strings.Join(lines, "\n")+"\n")); err != nil {
		t.Fatal(err)
	}

	c := NewCollector(&s, Policy{CollectUserCount: true}, testLogger())
	rec := &recorder{}
	if _, err := c.Collect(rec); err != nil {
		t.Fatal(err)
	}
	want := []Observation{{Category: CategoryUsers, PluginInstance: "vpn.status", TypeInstance: "vpn.status", Gauge: 3}}
	if !reflect.DeepEqual(rec.obs, want) {
		t.Fatalf("observations = %+v, want %+v", rec.obs, want)
	}
}

func TestCollectIdempotent(t *testing.T) {
	dir := t.TempDir()
	var s Sources
	if _, err := s.Add(writeStatus(t, dir, "vpn.status", markerMulti4+"\n"+multi4Line+"\n")); err != nil {
		t.Fatal(err)
	}
	c := NewCollector(&s, allPolicy(), testLogger())

	first, second := &recorder{}, &recorder{}
	if _, err := c.Collect(first); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Collect(second); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(first.obs, second.obs) {
		t.Fatalf("cycles differ:\n%+v\n%+v", first.obs, second.obs)
	}
}

func TestPolicyValidate(t *testing.T) {
	if err := DefaultPolicy().Validate(); err != nil {
		t.Errorf("default policy: %v", err)
	}
	if err := (Policy{ImprovedNamingSchema: true}).Validate(); !errors.Is(err, ErrNothingToCollect) {
		t.Errorf("got %v, want ErrNothingToCollect", err)
	}
	for _, p := range []Policy{{CollectCompression: true}, {CollectUserCount: true}, {CollectIndividualUsers: true}} {
		if err := p.Validate(); err != nil {
			t.Errorf("%+v: %v", p, err)
		}
	}
}
