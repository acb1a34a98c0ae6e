package mediakind

import "testing"

func TestExtensionClassification(t *testing.T) {
	tables := Default()

	if !tables.IsVideo(".mp4") {
		t.Fatalf("expected .mp4 to be video")
	}
	if !tables.IsVideo("MKV") {
		t.Fatalf("expected bare uppercase extension to normalize")
	}
	if tables.IsVideo(".jpg") {
		t.Fatalf("did not expect .jpg to be video")
	}
	if !tables.IsMedia(".m4a") {
		t.Fatalf("expected audio extension to count as media")
	}
	if !tables.IsThumbnail(".webp") {
		t.Fatalf("expected .webp thumbnail")
	}
}

func TestNewDeduplicates(t *testing.T) {
	tables := New([]string{".mp4", "mp4", ".MP4"}, nil, nil)
	if got := tables.VideoExtensions(); len(got) != 1 || got[0] != ".mp4" {
		t.Fatalf("unexpected extensions: %v", got)
	}
}

func TestSplitStem(t *testing.T) {
	stem, ext := SplitStem("clip.WEBM")
	if stem != "clip" || ext != ".WEBM" {
		t.Fatalf("unexpected split %q %q", stem, ext)
	}
	stem, ext = SplitStem("/library/channel/video one.mp4")
	if stem != "video one" || ext != ".mp4" {
		t.Fatalf("unexpected split %q %q", stem, ext)
	}
}

func TestFragmentDetection(t *testing.T) {
	if !IsFragment("clip.f137") {
		t.Fatalf("expected fragment marker to match")
	}
	if IsFragment("clip.final") {
		t.Fatalf("non-numeric marker should not match")
	}
	if got := FragmentRoot("clip.f22"); got != "clip" {
		t.Fatalf("unexpected fragment root %q", got)
	}
	if got := FragmentRoot("clip"); got != "clip" {
		t.Fatalf("fragment root should pass through, got %q", got)
	}
}
