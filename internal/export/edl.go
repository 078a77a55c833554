package export

import (
	"fmt"
	"math"
	"strings"
)

// DefaultFrameRate is used when a request carries none.
const DefaultFrameRate = 30.0

// GenerateEDL renders clips as a CMX3600 edit list. Record times are laid
// end to end in clip order.
func GenerateEDL(clips []ResolvedClip, title string, frameRate float64) string {
	fps := int(math.Round(frameRate))
	if fps <= 0 {
		fps = int(DefaultFrameRate)
	}

	isDropFrame := math.Abs(frameRate-29.97) < 0.01 || math.Abs(frameRate-59.94) < 0.01

	lines := []string{fmt.Sprintf("TITLE: %s", title)}
	if isDropFrame {
		lines = append(lines, "FCM: DROP FRAME")
	} else {
		lines = append(lines, "FCM: NON-DROP FRAME")
	}
	lines = append(lines, "")

	recordFrames := 0
	for i, clip := range clips {
		in := toFrames(clip.Start, fps)
		out := toFrames(clip.End, fps)
		length := out - in

		lines = append(lines,
			fmt.Sprintf("%03d  %-8s %-5s C        %s %s %s %s", i+1, "AX", "V",
				framesToTimecode(in, fps), framesToTimecode(out, fps),
				framesToTimecode(recordFrames, fps), framesToTimecode(recordFrames+length, fps)),
			fmt.Sprintf("* FROM CLIP NAME:  %s", clip.ClipName),
			fmt.Sprintf("* MEDIA PATH:  %s", clip.MediaPath),
		)

		recordFrames += length
	}

	lines = append(lines, "")
	return strings.Join(lines, "\n")
}

func toFrames(seconds float64, fps int) int {
	return int(math.Round(seconds * float64(fps)))
}

func secondsToTimecode(seconds float64, fps int) string {
	return framesToTimecode(toFrames(seconds, fps), fps)
}

func framesToTimecode(totalFrames, fps int) string {
	frames := totalFrames % fps
	totalSeconds := totalFrames / fps
	secs := totalSeconds % 60
	totalMinutes := totalSeconds / 60
	minutes := totalMinutes % 60
	hours := totalMinutes / 60
	return fmt.Sprintf("%02d:%02d:%02d:%02d", hours, minutes, secs, frames)
}
