package export

// ExportRequest asks for an EDL of clips. When Clips is empty the caller
// fills it from the session queue.
type ExportRequest struct {
	ProjectName string      `json:"project_name"`
	Format      string      `json:"format"`
	FrameRate   float64     `json:"frame_rate"`
	OutputDir   string      `json:"output_dir"`
	Clips       []ClipInput `json:"clips,omitempty"`
}

type ClipInput struct {
	ClipName string  `json:"clip_name"`
	Start    float64 `json:"start"`
	End      float64 `json:"end"`
}

type ResolvedClip struct {
	ClipName  string
	MediaPath string
	Start     float64
	End       float64
}

type ExportResponse struct {
	Status     string `json:"status"`
	Format     string `json:"format"`
	OutputPath string `json:"output_path"`
	ClipCount  int    `json:"clip_count"`
}
