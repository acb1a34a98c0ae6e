package ops

import (
	"context"
	"path/filepath"
	"testing"

	"tubevault/internal/mediakind"
	"tubevault/internal/testsupport"
)

func TestDownloadRegistersObservedDestinations(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenLibrary(t, cfg)
	ctx := context.Background()

	channel := testsupport.NewChannel(t, store, "Chan")
	if err := store.SetSourceURL(ctx, channel.ID, "https://example.invalid/chan"); err != nil {
		t.Fatal(err)
	}
	known := testsupport.NewVideo(t, store, channel.ID, "Old Video", ".mp4", false)

	cfg.Downloader.Binary = testsupport.StubScript(t, filepath.Join(testsupport.BaseDir(cfg), "bin"), "fake-yt-dlp",
		`echo "[download] Destination: New Video.mp4"
echo "[download] Destination: Old Video.mp4"
echo "[download] 100% of 1.00MiB"
exit 0
`)

	op := NewDownload(store, mediakind.Default(), cfg, 0, nil, nil)
	run, state := runOperation(t, op)

	if state != StateCompleted {
		t.Fatalf("state = %v, want completed", state)
	}
	if run.Tally.New != 1 || run.Tally.Matched != 1 || run.Tally.Success != 2 || run.Tally.Fail != 0 {
		t.Fatalf("tally = %+v, want new=1 matched=1 success=2", run.Tally)
	}

	fresh, err := store.FindVideoByStem(ctx, channel.ID, "New Video")
	if err != nil || fresh == nil || !fresh.Downloaded {
		t.Fatalf("new entity = %+v (err %v), want downloaded", fresh, err)
	}
	old, err := store.GetByID(ctx, known.ID)
	if err != nil || !old.Downloaded {
		t.Fatalf("known entity = %+v (err %v), want downloaded", old, err)
	}
}

func TestDownloadSkipsContainersWithoutURL(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenLibrary(t, cfg)

	testsupport.NewChannel(t, store, "No URL")

	op := NewDownload(store, mediakind.Default(), cfg, 0, nil, nil)
	run, state := runOperation(t, op)
	if state != StateCompleted {
		t.Fatalf("state = %v, want completed", state)
	}
	if run.JobTotal != 0 {
		t.Fatalf("job total = %d, want 0", run.JobTotal)
	}
}

func TestDownloadErrorLinesAreTallied(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenLibrary(t, cfg)
	ctx := context.Background()

	channel := testsupport.NewChannel(t, store, "Chan")
	if err := store.SetSourceURL(ctx, channel.ID, "https://example.invalid/chan"); err != nil {
		t.Fatal(err)
	}

	cfg.Downloader.Binary = testsupport.StubScript(t, filepath.Join(testsupport.BaseDir(cfg), "bin"), "fake-yt-dlp",
		`echo "ERROR: video unavailable" >&2
echo "WARNING: throttled" >&2
exit 0
`)

	op := NewDownload(store, mediakind.Default(), cfg, 0, nil, nil)
	run, state := runOperation(t, op)

	if state != StateCompleted {
		t.Fatalf("state = %v, want completed", state)
	}
	if run.Tally.Fail != 1 {
		t.Fatalf("fail = %d, want 1 (warnings are not failures)", run.Tally.Fail)
	}
}

func TestDownloadFreeSpacePreflightAborts(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithMinFreeGiB(1<<20))
	store := testsupport.MustOpenLibrary(t, cfg)

	op := NewDownload(store, mediakind.Default(), cfg, 0, nil, nil)
	_, state := runOperation(t, op)
	if state != StateFatal {
		t.Fatalf("state = %v, want fatal when free space is below the floor", state)
	}
}

func TestDownloadArgsHonorConfig(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Downloader.Binary = "yt-dlp"
	cfg.Downloader.FormatOverride = "bestvideo+bestaudio"
	cfg.Downloader.ExtraArgs = []string{"--no-mtime"}
	store := testsupport.MustOpenLibrary(t, cfg)

	op := NewDownload(store, mediakind.Default(), cfg, 0, nil, nil)
	argv := op.buildArgs("/lib/Chan", "https://example.invalid/chan")

	want := map[string]bool{
		"--download-archive": false,
		"-f":                 false,
		"--no-mtime":         false,
		"--write-thumbnail":  false,
	}
	for _, arg := range argv {
		if _, ok := want[arg]; ok {
			want[arg] = true
		}
	}
	for flag, seen := range want {
		if !seen {
			t.Errorf("argv missing %s: %v", flag, argv)
		}
	}
	if argv[len(argv)-1] != "https://example.invalid/chan" {
		t.Fatalf("url not last: %v", argv)
	}
}
