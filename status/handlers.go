package status

import (
	"bytes"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/jobrunner/component"
	"github.com/kbukum/jobrunner/errors"
	"github.com/kbukum/jobrunner/version"
)

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status     component.HealthStatus `json:"status"`
	Service    string                 `json:"service"`
	Pipeline   string                 `json:"pipeline"`
	Version    string                 `json:"version"`
	Uptime     string                 `json:"uptime"`
	Timestamp  string                 `json:"timestamp"`
	Components []component.Health     `json:"components"`
}

// JobInfo describes one job in GET /jobs.
type JobInfo struct {
	Name       string   `json:"name"`
	Stage      string   `json:"stage"`
	StageIndex int      `json:"stage_index"`
	Inputs     []string `json:"inputs"`
}

func (s *Server) health(c *gin.Context) {
	components := s.checker(c.Request.Context())
	status := component.StatusHealthy
	for _, h := range components {
		if h.Status == component.StatusUnhealthy {
			status = component.StatusUnhealthy
			break
		}
		if h.Status == component.StatusDegraded {
			status = component.StatusDegraded
		}
	}

	code := http.StatusOK
	if status == component.StatusUnhealthy {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, HealthResponse{
		Status:     status,
		Service:    s.service,
		Pipeline:   s.runner.Label(),
		Version:    version.Short(),
		Uptime:     time.Since(s.started).Round(time.Second).String(),
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		Components: components,
	})
}

func (s *Server) performance(c *gin.Context) {
	c.JSON(http.StatusOK, s.runner.Snapshot())
}

func (s *Server) listJobs(c *gin.Context) {
	jobs := make([]JobInfo, 0)
	for _, st := range s.runner.Stages() {
		for _, j := range st.Jobs() {
			jobs = append(jobs, jobInfo(st.Name(), st.Index(), j.Name(), j.RequiredInputs()))
		}
	}
	c.JSON(http.StatusOK, jobs)
}

func (s *Server) getJob(c *gin.Context) {
	name := c.Param("name")
	for _, st := range s.runner.Stages() {
		for _, j := range st.Jobs() {
			if j.Name() == name {
				c.JSON(http.StatusOK, jobInfo(st.Name(), st.Index(), j.Name(), j.RequiredInputs()))
				return
			}
		}
	}
	respondError(c, errors.NotFound("job", name))
}

func (s *Server) graph(c *gin.Context) {
	var buf bytes.Buffer
	if err := s.runner.WriteDOT(&buf); err != nil {
		respondError(c, err)
		return
	}
	c.Data(http.StatusOK, "text/vnd.graphviz; charset=utf-8", buf.Bytes())
}

func jobInfo(stage string, index int, name string, inputs []string) JobInfo {
	if inputs == nil {
		inputs = []string{}
	}
	return JobInfo{Name: name, Stage: stage, StageIndex: index, Inputs: inputs}
}

// respondError writes err as an ErrorResponse with the status of its
// AppError, or 500 for other errors.
func respondError(c *gin.Context, err error) {
	appErr := errors.ToAppError(err)
	code := appErr.HTTPStatus
	if code == 0 {
		code = http.StatusInternalServerError
	}
	c.JSON(code, appErr.ToResponse())
}
