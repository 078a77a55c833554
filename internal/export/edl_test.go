package export

import (
	"strings"
	"testing"
)

func TestGenerateEDL_SingleClip(t *testing.T) {
	clips := []ResolvedClip{{
		ClipName:  "Intro",
		MediaPath: "/media/intro.mp4",
		Start:     0,
		End:       2,
	}}

	edl := GenerateEDL(clips, "Project One", 30.0)

	if !strings.Contains(edl, "TITLE: Project One") {
		t.Fatalf("missing title in EDL: %q", edl)
	}
	if !strings.Contains(edl, "FCM: NON-DROP FRAME") {
		t.Fatalf("missing non-drop-frame FCM: %q", edl)
	}
	if !strings.Contains(edl, "001  AX       V     C        00:00:00:00 00:00:02:00 00:00:00:00 00:00:02:00") {
		t.Fatalf("missing event line: %q", edl)
	}
	if !strings.Contains(edl, "* FROM CLIP NAME:  Intro") {
		t.Fatalf("missing clip name comment: %q", edl)
	}
	if !strings.Contains(edl, "* MEDIA PATH:  /media/intro.mp4") {
		t.Fatalf("missing media path comment: %q", edl)
	}
}

func TestGenerateEDL_MultipleClips(t *testing.T) {
	clips := []ResolvedClip{
		{ClipName: "Clip A", MediaPath: "/a.mp4", Start: 0, End: 1},
		{ClipName: "Clip B", MediaPath: "/b.mp4", Start: 1, End: 2.5},
	}

	edl := GenerateEDL(clips, "Multi", 30.0)

	if !strings.Contains(edl, "001  AX       V     C        00:00:00:00 00:00:01:00 00:00:00:00 00:00:01:00") {
		t.Fatalf("first event line mismatch: %q", edl)
	}
	if !strings.Contains(edl, "002  AX       V     C        00:00:01:00 00:00:02:15 00:00:01:00 00:00:02:15") {
		t.Fatalf("second event line mismatch or bad record offset: %q", edl)
	}
}

func TestGenerateEDL_DropFrame(t *testing.T) {
	clips := []ResolvedClip{{ClipName: "Clip", MediaPath: "/x.mp4", Start: 0, End: 1}}
	edl := GenerateEDL(clips, "Drop", 29.97)

	if !strings.Contains(edl, "FCM: DROP FRAME") {
		t.Fatalf("expected drop frame FCM, got: %q", edl)
	}
}

func TestGenerateEDL_RecordTimesFollowQueueOrder(t *testing.T) {
	clips := []ResolvedClip{
		{ClipName: "late", MediaPath: "/v.mp4", Start: 60, End: 62},
		{ClipName: "early", MediaPath: "/v.mp4", Start: 0, End: 0.5},
	}

	edl := GenerateEDL(clips, "Order", 0)

	if !strings.Contains(edl, "001  AX       V     C        00:01:00:00 00:01:02:00 00:00:00:00 00:00:02:00") {
		t.Fatalf("first event mismatch: %q", edl)
	}
	if !strings.Contains(edl, "002  AX       V     C        00:00:00:00 00:00:00:15 00:00:02:00 00:00:02:15") {
		t.Fatalf("second event mismatch: %q", edl)
	}
}

func TestSecondsToTimecode(t *testing.T) {
	tests := []struct {
		name    string
		seconds float64
		fps     int
		want    string
	}{
		{name: "zero", seconds: 0, fps: 30, want: "00:00:00:00"},
		{name: "one second", seconds: 1, fps: 30, want: "00:00:01:00"},
		{name: "fractional second", seconds: 0.5, fps: 30, want: "00:00:00:15"},
		{name: "one minute", seconds: 60, fps: 30, want: "00:01:00:00"},
		{name: "one hour", seconds: 3600, fps: 30, want: "01:00:00:00"},
		{name: "25 fps", seconds: 2.2, fps: 25, want: "00:00:02:05"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := secondsToTimecode(tc.seconds, tc.fps)
			if got != tc.want {
				t.Fatalf("secondsToTimecode(%v, %d) = %q, want %q", tc.seconds, tc.fps, got, tc.want)
			}
		})
	}
}
