package domain

// ResultIndicator selects the icon shown next to a terminal result.
type ResultIndicator string

const (
	IndicatorSuccess ResultIndicator = "success"
	IndicatorFailure ResultIndicator = "failure"
)

// ResultView is the presentable form of a terminal outcome.
type ResultView struct {
	Indicator            ResultIndicator `json:"indicator"`
	Title                string          `json:"title"`
	Message              string          `json:"message"`
	DownloadVisible      bool            `json:"downloadVisible"`
	DownloadURL          string          `json:"downloadUrl,omitempty"`
	DownloadName         string          `json:"downloadName,omitempty"`
	NewConversionVisible bool            `json:"newConversionVisible"`
	ProgressVisible      bool            `json:"progressVisible"`
}

// View is the full render model of the conversion screen.
type View struct {
	Status          JobStatus   `json:"status"`
	JobID           string      `json:"jobId,omitempty"`
	FileName        string      `json:"fileName"`
	FileSize        string      `json:"fileSize,omitempty"`
	Progress        float64     `json:"progress"`
	ProgressVisible bool        `json:"progressVisible"`
	ProgressText    string      `json:"progressText,omitempty"`
	TriggerEnabled  bool        `json:"triggerEnabled"`
	TriggerLabel    string      `json:"triggerLabel"`
	Error           string      `json:"error,omitempty"`
	Result          *ResultView `json:"result,omitempty"`
}
