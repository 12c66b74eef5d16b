package api

import (
	"context"
	"errors"
	"net/http"
	"sort"

	"github.com/danielgtaylor/huma/v2"
	"github.com/smazurov/framegraph/internal/api/models"
	"github.com/smazurov/framegraph/internal/jobs"
	"github.com/smazurov/framegraph/internal/runner"
)

func (s *Server) registerJobRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "list-jobs",
		Method:      http.MethodGet,
		Path:        "/api/jobs",
		Summary:     "List Jobs",
		Description: "List every job in the jobs file",
		Tags:        []string{"jobs"},
		Errors:      []int{401},
		Security:    withAuth(),
	}, func(_ context.Context, _ *struct{}) (*models.JobListResponse, error) {
		all := s.store.All()
		ids := make([]string, 0, len(all))
		for id := range all {
			ids = append(ids, id)
		}
		sort.Strings(ids)

		out := make([]models.JobData, len(ids))
		for i, id := range ids {
			out[i] = jobToAPI(all[id])
		}
		return &models.JobListResponse{
			Body: models.JobListData{Jobs: out, Count: len(out)},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID:   "create-job",
		Method:        http.MethodPost,
		Path:          "/api/jobs",
		Summary:       "Create Job",
		Description:   "Add a job to the jobs file. The graph must compile",
		Tags:          []string{"jobs"},
		DefaultStatus: http.StatusCreated,
		Errors:        []int{400, 401, 409, 422, 500},
		Security:      withAuth(),
	}, func(_ context.Context, input *models.JobRequest) (*models.JobResponse, error) {
		job := jobFromAPI(input.Body)
		if err := s.checkGraph(job); err != nil {
			return nil, err
		}
		if err := s.store.Add(job); err != nil {
			return nil, mapJobError(err)
		}
		return s.jobResponse(job.ID)
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-job",
		Method:      http.MethodGet,
		Path:        "/api/jobs/{job_id}",
		Summary:     "Get Job",
		Description: "Get one job as stored, without defaults applied",
		Tags:        []string{"jobs"},
		Errors:      []int{401, 404},
		Security:    withAuth(),
	}, func(_ context.Context, input *models.JobIDInput) (*models.JobResponse, error) {
		return s.jobResponse(input.JobID)
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "update-job",
		Method:      http.MethodPut,
		Path:        "/api/jobs/{job_id}",
		Summary:     "Update Job",
		Description: "Replace a job. Runs already in progress keep the old definition",
		Tags:        []string{"jobs"},
		Errors:      []int{400, 401, 404, 422, 500},
		Security:    withAuth(),
	}, func(_ context.Context, input *models.JobUpdateRequest) (*models.JobResponse, error) {
		job := jobFromAPI(input.Body)
		job.ID = input.JobID
		if err := s.checkGraph(job); err != nil {
			return nil, err
		}
		if err := s.store.Update(input.JobID, job); err != nil {
			return nil, mapJobError(err)
		}
		return s.jobResponse(input.JobID)
	})

	huma.Register(s.api, huma.Operation{
		OperationID:   "delete-job",
		Method:        http.MethodDelete,
		Path:          "/api/jobs/{job_id}",
		Summary:       "Delete Job",
		Description:   "Remove a job from the jobs file. A running job must be stopped first",
		Tags:          []string{"jobs"},
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{401, 404, 409, 500},
		Security:      withAuth(),
	}, func(_ context.Context, input *models.JobIDInput) (*struct{}, error) {
		if s.manager != nil {
			if status, ok := s.manager.Status(input.JobID); ok && status.State == runner.RunRunning {
				return nil, huma.Error409Conflict("job " + input.JobID + " is running")
			}
		}
		if err := s.store.Remove(input.JobID); err != nil {
			return nil, mapJobError(err)
		}
		return &struct{}{}, nil
	})
}

func (s *Server) registerRunRoutes() {
	if s.manager == nil {
		return
	}

	huma.Register(s.api, huma.Operation{
		OperationID:   "start-run",
		Method:        http.MethodPost,
		Path:          "/api/jobs/{job_id}/run",
		Summary:       "Start Run",
		Description:   "Run a stored job in the background",
		Tags:          []string{"runs"},
		DefaultStatus: http.StatusAccepted,
		Errors:        []int{400, 401, 404, 409, 503},
		Security:      withAuth(),
	}, func(_ context.Context, input *models.JobIDInput) (*models.RunResponse, error) {
		job, ok := s.store.Get(input.JobID)
		if !ok {
			return nil, huma.Error404NotFound("job " + input.JobID + " not found")
		}
		status, err := s.manager.Start(job)
		if err != nil {
			return nil, mapJobError(err)
		}
		return &models.RunResponse{Body: runToAPI(status)}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-run",
		Method:      http.MethodGet,
		Path:        "/api/jobs/{job_id}/run",
		Summary:     "Get Run",
		Description: "Get the state of the latest run of a job",
		Tags:        []string{"runs"},
		Errors:      []int{401, 404},
		Security:    withAuth(),
	}, func(_ context.Context, input *models.JobIDInput) (*models.RunResponse, error) {
		status, ok := s.manager.Status(input.JobID)
		if !ok {
			return nil, huma.Error404NotFound("job " + input.JobID + " has not run")
		}
		return &models.RunResponse{Body: runToAPI(status)}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "stop-run",
		Method:      http.MethodDelete,
		Path:        "/api/jobs/{job_id}/run",
		Summary:     "Stop Run",
		Description: "Cancel a running job and wait for its pump to exit",
		Tags:        []string{"runs"},
		Errors:      []int{401, 409},
		Security:    withAuth(),
	}, func(_ context.Context, input *models.JobIDInput) (*models.RunResponse, error) {
		status, err := s.manager.Stop(input.JobID)
		if err != nil {
			return nil, mapJobError(err)
		}
		return &models.RunResponse{Body: runToAPI(status)}, nil
	})
}

func (s *Server) jobResponse(id string) (*models.JobResponse, error) {
	job, ok := s.store.Get(id)
	if !ok {
		return nil, huma.Error404NotFound("job " + id + " not found")
	}
	return &models.JobResponse{Body: jobToAPI(job)}, nil
}

// checkGraph rejects jobs whose graph, or the default one, does not compile.
func (s *Server) checkGraph(job jobs.JobSpec) error {
	if res := s.validateGraph(job.WithDefaults().Graph); !res.Valid {
		return huma.Error422UnprocessableEntity("graph: " + res.Error)
	}
	return nil
}

func mapJobError(err error) error {
	var jobErr *jobs.JobError
	if !errors.As(err, &jobErr) {
		return huma.Error500InternalServerError("internal server error", err)
	}
	switch jobErr.Code {
	case jobs.ErrCodeJobNotFound:
		return huma.Error404NotFound(jobErr.Message, err)
	case jobs.ErrCodeJobExists, jobs.ErrCodeJobRunning, jobs.ErrCodeNotRunning:
		return huma.Error409Conflict(jobErr.Message, err)
	case jobs.ErrCodeInvalidJob:
		return huma.Error400BadRequest(jobErr.Message, err)
	case jobs.ErrCodeStopped:
		return huma.Error503ServiceUnavailable(jobErr.Message, err)
	default:
		return huma.Error500InternalServerError(jobErr.Message, err)
	}
}

func jobFromAPI(d models.JobData) jobs.JobSpec {
	return jobs.JobSpec{
		ID:        d.ID,
		Name:      d.Name,
		Graph:     d.Graph,
		Frames:    d.Frames,
		MaxFrames: d.MaxFrames,
		Video: jobs.VideoSource{
			Width:       d.Video.Width,
			Height:      d.Video.Height,
			PixelFormat: d.Video.PixelFormat,
		},
		Audio: jobs.AudioSource{
			SampleRate: d.Audio.SampleRate,
			Channels:   d.Audio.Channels,
			Frequency:  d.Audio.Frequency,
		},
		Output:                d.Output,
		Encode:                d.Encode,
		PixelFormats:          d.PixelFormats,
		BindOrder:             d.BindOrder,
		BackpressureThreshold: d.BackpressureThreshold,
	}
}

func jobToAPI(j jobs.JobSpec) models.JobData {
	return models.JobData{
		ID:        j.ID,
		Name:      j.Name,
		Graph:     j.Graph,
		Frames:    j.Frames,
		MaxFrames: j.MaxFrames,
		Video: models.VideoSourceData{
			Width:       j.Video.Width,
			Height:      j.Video.Height,
			PixelFormat: j.Video.PixelFormat,
		},
		Audio: models.AudioSourceData{
			SampleRate: j.Audio.SampleRate,
			Channels:   j.Audio.Channels,
			Frequency:  j.Audio.Frequency,
		},
		Output:                j.Output,
		Encode:                j.Encode,
		PixelFormats:          j.PixelFormats,
		BindOrder:             j.BindOrder,
		BackpressureThreshold: j.BackpressureThreshold,
		CreatedAt:             j.CreatedAt,
		UpdatedAt:             j.UpdatedAt,
	}
}

func runToAPI(st runner.RunStatus) models.RunData {
	data := models.RunData{
		JobID:     st.JobID,
		State:     string(st.State),
		StartedAt: st.StartedAt,
		Error:     st.Error,
	}
	if !st.FinishedAt.IsZero() {
		finished := st.FinishedAt
		data.FinishedAt = &finished
	}
	if res := st.Result; res != nil {
		data.GraphID = res.GraphID
		data.Reason = string(res.Stats.Reason)
		data.Cycles = res.Stats.Cycles
		data.FramesFed = res.Stats.FramesFed
		data.FramesDrained = res.Stats.FramesDrained
		for _, o := range res.Outputs {
			data.Outputs = append(data.Outputs, models.OutputData{
				Name:    o.Name,
				Path:    o.Path,
				Format:  o.Params.String(),
				Frames:  o.Frames,
				Bytes:   o.Bytes,
				Play:    o.Play,
				Encoded: o.Encoded,
			})
		}
	}
	return data
}
