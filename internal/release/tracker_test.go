package release_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/mock/gomock"

	"nvimrag/internal/release"
	"nvimrag/internal/release/mocks"
)

func TestTracker_NeedsUpdate_NewVersion(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	tmpDir := t.TempDir()
	cachePath := filepath.Join(tmpDir, "releases.json")

	lookup := mocks.NewMockLookup(ctrl)
	lookup.EXPECT().LatestVersion(gomock.Any(), "folke", "lazy.nvim").Return("v11.0.0", nil).Times(2)

	tracker := release.NewTracker(cachePath, lookup)

	got, err := tracker.NeedsUpdate(context.Background(), "folke", "lazy.nvim")
	if err != nil {
		t.Fatalf("NeedsUpdate() error = %v", err)
	}
	if !got {
		t.Error("NeedsUpdate() = false on first observation, want true")
	}

	// Same version a second time: no update, cache unchanged.
	got, err = tracker.NeedsUpdate(context.Background(), "folke", "lazy.nvim")
	if err != nil {
		t.Fatalf("NeedsUpdate() error = %v", err)
	}
	if got {
		t.Error("NeedsUpdate() = true with unchanged version, want false")
	}
	if v, ok := tracker.Cached("folke/lazy.nvim"); !ok || v != "v11.0.0" {
		t.Errorf("Cached() = %q, %v", v, ok)
	}
}

func TestTracker_NeedsUpdate_VersionChange(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	tmpDir := t.TempDir()
	cachePath := filepath.Join(tmpDir, "releases.json")

	lookup := mocks.NewMockLookup(ctrl)
	gomock.InOrder(
		lookup.EXPECT().LatestVersion(gomock.Any(), "o", "r").Return("v1.0.0", nil),
		lookup.EXPECT().LatestVersion(gomock.Any(), "o", "r").Return("v1.1.0", nil),
		lookup.EXPECT().LatestVersion(gomock.Any(), "o", "r").Return("v1.1.0", nil),
	)

	tracker := release.NewTracker(cachePath, lookup)
	ctx := context.Background()

	if got, _ := tracker.NeedsUpdate(ctx, "o", "r"); !got {
		t.Error("first observation should need update")
	}
	if got, _ := tracker.NeedsUpdate(ctx, "o", "r"); !got {
		t.Error("version change should need update")
	}
	if got, _ := tracker.NeedsUpdate(ctx, "o", "r"); got {
		t.Error("unchanged version should not need update")
	}

	// The persisted cache reflects the last acted-on version.
	reloaded := release.NewTracker(cachePath, lookup)
	if v, ok := reloaded.Cached("o/r"); !ok || v != "v1.1.0" {
		t.Errorf("persisted cache = %q, %v, want v1.1.0", v, ok)
	}
}

func TestTracker_NeedsUpdate_LookupFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	tmpDir := t.TempDir()
	cachePath := filepath.Join(tmpDir, "releases.json")

	// Seed a cache, then make every lookup fail.
	seed := mocks.NewMockLookup(ctrl)
	seed.EXPECT().LatestVersion(gomock.Any(), "o", "r").Return("v2.0.0", nil)
	seeded := release.NewTracker(cachePath, seed)
	if got, _ := seeded.NeedsUpdate(context.Background(), "o", "r"); !got {
		t.Fatal("seeding should report an update")
	}
	before, err := os.ReadFile(cachePath)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}

	failing := mocks.NewMockLookup(ctrl)
	failing.EXPECT().LatestVersion(gomock.Any(), "o", "r").Return("", errors.New("network down"))
	failing.EXPECT().LatestVersion(gomock.Any(), "o", "r").Return(release.VersionUnknown, nil)

	tracker := release.NewTracker(cachePath, failing)
	for i := 0; i < 2; i++ {
		got, err := tracker.NeedsUpdate(context.Background(), "o", "r")
		if err != nil {
			t.Fatalf("NeedsUpdate() error = %v", err)
		}
		if got {
			t.Error("indeterminate lookup should not report an update")
		}
	}

	after, err := os.ReadFile(cachePath)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if string(before) != string(after) {
		t.Error("cache file changed after failed lookups")
	}
}

func TestTracker_NeedsUpdate_UnknownNeverCached(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	lookup := mocks.NewMockLookup(ctrl)
	lookup.EXPECT().LatestVersion(gomock.Any(), "o", "r").Return(release.VersionUnknown, nil)

	tracker := release.NewTracker(filepath.Join(t.TempDir(), "releases.json"), lookup)
	if got, _ := tracker.NeedsUpdate(context.Background(), "o", "r"); got {
		t.Error("unknown version should not report an update")
	}
	if _, ok := tracker.Cached("o/r"); ok {
		t.Error("unknown version must not be cached")
	}
}

func TestNewTracker_MalformedCache(t *testing.T) {
	tmpDir := t.TempDir()
	cachePath := filepath.Join(tmpDir, "releases.json")
	if err := os.WriteFile(cachePath, []byte("{not json"), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	tracker := release.NewTracker(cachePath, nil)
	if _, ok := tracker.Cached("o/r"); ok {
		t.Error("malformed cache should start the tracker empty")
	}
}
