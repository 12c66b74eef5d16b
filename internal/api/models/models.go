// Package models holds the request and response bodies of the HTTP API.
package models

import "time"

// Health check models
type HealthData struct {
	Status  string `json:"status" example:"ok" doc:"Service status"`
	Message string `json:"message" example:"API is healthy" doc:"Status message"`
}

type HealthResponse struct {
	Body HealthData
}

// Version models
type VersionData struct {
	Version   string `json:"version" example:"dev" doc:"Application version"`
	GitCommit string `json:"git_commit" example:"abc1234" doc:"Git commit SHA"`
	BuildDate string `json:"build_date" example:"2026-01-15 14:30" doc:"Build timestamp"`
	BuildID   string `json:"build_id" example:"a1b2c3d4" doc:"Unique build identifier"`
	GoVersion string `json:"go_version" example:"go1.24.11" doc:"Go compiler version"`
	Compiler  string `json:"compiler" example:"gc" doc:"Compiler used"`
	Platform  string `json:"platform" example:"linux/amd64" doc:"Platform"`
	Modified  bool   `json:"modified,omitempty" doc:"Built from a tree with uncommitted changes"`
}

type VersionResponse struct {
	Body VersionData
}

// Filter models
type FilterInfo struct {
	Name        string   `json:"name" example:"overlay" doc:"Filter name used in graph descriptions"`
	Description string   `json:"description" doc:"What the filter does"`
	Options     []string `json:"options,omitempty" example:"[\"x\",\"y\"]" doc:"Option names in positional order"`
}

type FilterListData struct {
	Filters []FilterInfo `json:"filters" doc:"Registered filters"`
	Count   int          `json:"count" example:"9" doc:"Number of filters"`
}

type FilterListResponse struct {
	Body FilterListData
}

// Graph validation models
type GraphValidateRequest struct {
	Body struct {
		Graph string `json:"graph" minLength:"1" example:"[in] scale=iw/2:ih/2 [out]" doc:"Filter graph description"`
	}
}

type PadInfo struct {
	Name      string `json:"name" example:"in" doc:"Pad label"`
	Direction string `json:"direction" example:"input" enum:"input,output" doc:"Whether the pad consumes or produces frames"`
	MediaType string `json:"media_type" example:"video" doc:"Media type of the pad"`
	Node      string `json:"node" example:"Parsed_scale_0" doc:"Filter instance owning the pad"`
	Index     int    `json:"index" example:"0" doc:"Pad index on the filter"`
}

type GraphValidateData struct {
	Valid bool      `json:"valid" doc:"Whether the description compiles"`
	Pads  []PadInfo `json:"pads,omitempty" doc:"Open pads the graph exposes"`
	Error string    `json:"error,omitempty" doc:"Compile error"`
	// Position is the byte offset of a parse error, or -1.
	Position int `json:"position" example:"-1" doc:"Byte offset of a parse error, -1 when not applicable"`
}

type GraphValidateResponse struct {
	Body GraphValidateData
}

// Job models
type VideoSourceData struct {
	Width       int    `json:"width,omitempty" example:"1280" minimum:"0" doc:"Test pattern width"`
	Height      int    `json:"height,omitempty" example:"720" minimum:"0" doc:"Test pattern height"`
	PixelFormat string `json:"pixel_format,omitempty" example:"yuv420p" doc:"Test pattern pixel format"`
}

type AudioSourceData struct {
	SampleRate int     `json:"sample_rate,omitempty" example:"48000" minimum:"0" doc:"Tone sample rate"`
	Channels   int     `json:"channels,omitempty" example:"2" minimum:"0" doc:"Tone channel count"`
	Frequency  float64 `json:"frequency,omitempty" example:"440" minimum:"0" doc:"Tone frequency in Hz"`
}

type JobData struct {
	ID                    string          `json:"id,omitempty" example:"overlay" doc:"Job identifier, taken from the path on update"`
	Name                  string          `json:"name,omitempty" example:"Overlay demo" doc:"Display name"`
	Graph                 string          `json:"graph,omitempty" doc:"Filter graph description"`
	Frames                int             `json:"frames,omitempty" example:"100" minimum:"0" doc:"Frames produced per input"`
	MaxFrames             int             `json:"max_frames,omitempty" example:"0" minimum:"0" doc:"Stop after this many pump cycles"`
	Video                 VideoSourceData `json:"video,omitempty" doc:"Video test pattern settings"`
	Audio                 AudioSourceData `json:"audio,omitempty" doc:"Audio tone settings"`
	Output                string          `json:"output,omitempty" example:"out/%s.yuv" doc:"Raw output file"`
	Encode                string          `json:"encode,omitempty" example:"mkv" doc:"Container to encode outputs into"`
	PixelFormats          []string        `json:"pixel_formats,omitempty" doc:"Pixel formats outputs may deliver"`
	BindOrder             string          `json:"bind_order,omitempty" example:"outputs-first" enum:"outputs-first,inputs-first" doc:"Endpoint bind order"`
	BackpressureThreshold int             `json:"backpressure_threshold,omitempty" example:"1" minimum:"0" doc:"Pending requests that trigger a probe"`
	CreatedAt             time.Time       `json:"created_at,omitempty" doc:"Creation time"`
	UpdatedAt             time.Time       `json:"updated_at,omitempty" doc:"Last update time"`
}

type JobRequest struct {
	Body JobData
}

type JobUpdateRequest struct {
	JobID string `path:"job_id" example:"overlay" doc:"Job identifier"`
	Body  JobData
}

type JobResponse struct {
	Body JobData
}

type JobListData struct {
	Jobs  []JobData `json:"jobs" doc:"Stored jobs"`
	Count int       `json:"count" example:"1" doc:"Number of jobs"`
}

type JobListResponse struct {
	Body JobListData
}

type JobIDInput struct {
	JobID string `path:"job_id" example:"overlay" doc:"Job identifier"`
}

// Run models
type OutputData struct {
	Name    string `json:"name" example:"out1" doc:"Output pad"`
	Path    string `json:"path" example:"out.yuv" doc:"Raw file"`
	Format  string `json:"format" example:"video 1280x720 yuv420p" doc:"Negotiated format"`
	Frames  int    `json:"frames" example:"100" doc:"Frames written"`
	Bytes   int64  `json:"bytes" example:"138240000" doc:"Bytes written"`
	Play    string `json:"play,omitempty" doc:"ffplay command displaying the file"`
	Encoded string `json:"encoded,omitempty" example:"out.mkv" doc:"Encoded container file"`
}

type RunData struct {
	JobID         string       `json:"job_id" example:"overlay" doc:"Job identifier"`
	State         string       `json:"state" example:"running" enum:"running,finished,failed,stopped" doc:"Run state"`
	StartedAt     time.Time    `json:"started_at" doc:"Start time"`
	FinishedAt    *time.Time   `json:"finished_at,omitempty" doc:"End time"`
	Error         string       `json:"error,omitempty" doc:"Failure reason"`
	GraphID       string       `json:"graph_id,omitempty" doc:"Graph instance of the run"`
	Reason        string       `json:"reason,omitempty" example:"output_eof" doc:"Why the pump stopped"`
	Cycles        int          `json:"cycles" doc:"Pump cycles"`
	FramesFed     int          `json:"frames_fed" doc:"Frames pushed into inputs"`
	FramesDrained int          `json:"frames_drained" doc:"Frames pulled from outputs"`
	Outputs       []OutputData `json:"outputs,omitempty" doc:"Files written"`
}

type RunResponse struct {
	Body RunData
}

// Event stream models
type StreamConnectedData struct {
	Message   string `json:"message" example:"event stream connected"`
	Timestamp string `json:"timestamp" example:"2026-01-15T10:30:00Z"`
}

type EventStreamInput struct {
	GraphID string `query:"graph_id" doc:"Only forward events of this graph instance"`
}
