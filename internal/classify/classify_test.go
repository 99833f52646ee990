package classify

import "testing"

func TestClassifyDirectory(t *testing.T) {
	c := New(nil)

	// Directory flag wins regardless of extension
	if kind := c.Classify("/footage/clips.mp4", true); kind != KindDirectory {
		t.Errorf("expected directory, got %s", kind)
	}
	if kind := c.Classify("/footage/day1", true); kind != KindDirectory {
		t.Errorf("expected directory, got %s", kind)
	}
}

func TestClassifyVideo(t *testing.T) {
	c := New(nil)

	cases := []string{
		"/footage/a.mp4",
		"/footage/b.MP4",
		"/footage/c.Mov",
		"/footage/d.blk",
		"/footage/nested/dir/e.mkv",
	}
	for _, path := range cases {
		if kind := c.Classify(path, false); kind != KindVideo {
			t.Errorf("expected %s to classify as video, got %s", path, kind)
		}
	}
}

func TestClassifyOther(t *testing.T) {
	c := New(nil)

	cases := []string{
		"/footage/readme.txt",
		"/footage/still.jpg",
		"/footage/noext",
		"/footage/archive.mp4.bak",
	}
	for _, path := range cases {
		if kind := c.Classify(path, false); kind != KindOther {
			t.Errorf("expected %s to classify as other, got %s", path, kind)
		}
	}
}

func TestClassifyAdditionalExtensions(t *testing.T) {
	c := New([]string{".R3D", ".braw"})

	if kind := c.Classify("/footage/a.r3d", false); kind != KindVideo {
		t.Errorf("expected additional extension .r3d to classify as video, got %s", kind)
	}
	if kind := c.Classify("/footage/b.BRAW", false); kind != KindVideo {
		t.Errorf("expected additional extension .braw to classify as video, got %s", kind)
	}
}

func TestClassifyDeterministic(t *testing.T) {
	c := New(nil)

	for i := 0; i < 3; i++ {
		if kind := c.Classify("/footage/a.mp4", false); kind != KindVideo {
			t.Fatalf("classification changed between calls: %s", kind)
		}
	}
}
