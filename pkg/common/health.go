package common

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
)

// HealthResponse is the body of the liveness and readiness endpoints
type HealthResponse struct {
	Status  string            `json:"status"`
	Service string            `json:"service"`
	Version string            `json:"version"`
	Checks  map[string]string `json:"checks,omitempty"`
}

// HealthCheck answers liveness probes
func HealthCheck(serviceName, version string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, HealthResponse{
			Status:  "healthy",
			Service: serviceName,
			Version: version,
		})
	}
}

// HealthCheckWithDeps answers readiness probes, running every dependency
// check concurrently. Any failing check makes the service unavailable.
func HealthCheckWithDeps(serviceName, version string, checks map[string]func() error) gin.HandlerFunc {
	return func(c *gin.Context) {
		results := make(map[string]string, len(checks))
		healthy := true

		var (
			mu sync.Mutex
			wg sync.WaitGroup
		)
		for name, check := range checks {
			wg.Add(1)
			go func(name string, check func() error) {
				defer wg.Done()
				err := check()

				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					results[name] = "unhealthy: " + err.Error()
					healthy = false
					return
				}
				results[name] = "healthy"
			}(name, check)
		}
		wg.Wait()

		resp := HealthResponse{Status: "healthy", Service: serviceName, Version: version, Checks: results}
		code := http.StatusOK
		if !healthy {
			resp.Status = "unhealthy"
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, resp)
	}
}
